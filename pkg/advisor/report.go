package advisor

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/forest6511/hygienectl/pkg/credential"
	"github.com/forest6511/hygienectl/pkg/hygiene"
)

// Sentiment is the overall tone of a security report.
type Sentiment string

const (
	SentimentNeutral   Sentiment = "neutral"
	SentimentCritical  Sentiment = "critical"
	SentimentWarning   Sentiment = "warning"
	SentimentPositive  Sentiment = "positive"
	SentimentExcellent Sentiment = "excellent"
)

// Finding categories shared by problems and actions.
const (
	KindReuse   = "reuse"
	KindWeak    = "weak"
	KindAging   = "aging"
	KindGeneral = "general"
)

const (
	maxProblems = 3
	maxActions  = 3

	// shortPasswordLen is the report's own weakness cutoff, by length only.
	shortPasswordLen = 8
)

// criticalTitle matches titles of accounts whose compromise cascades.
var criticalTitle = regexp.MustCompile(`(?i)mail|bank|google|apple`)

// Problem is one detected issue.
type Problem struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Text     string `json:"text"`
}

// Action is one concrete remediation step.
type Action struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Report is the narrative security report.
type Report struct {
	RiskSummary string    `json:"riskSummary"`
	Sentiment   Sentiment `json:"sentiment"`
	Problems    []Problem `json:"problems"`
	Actions     []Action  `json:"actions"`
}

type band struct {
	below     int
	sentiment Sentiment
	summary   string
}

// bands are checked in order; the first band whose bound exceeds the score wins.
var bands = []band{
	{50, SentimentCritical, "Your vault is in critical condition. Immediate action is required to secure your digital identity. Multiple high-risk vulnerabilities detected."},
	{75, SentimentWarning, "Your security posture is average. While you have some strong passwords, there are significant vulnerabilities that attackers could exploit."},
	{90, SentimentPositive, "Good job! Your vault is secure, but there are a few specific opportunities to reach perfection and eliminate all re-use."},
}

const (
	emptySummary     = "Your vault is empty. Start by adding your most critical accounts (email, banking) to build your security foundation."
	excellentSummary = "Excellent! Your vault is fortress-level secure. You are effectively invisible to most automated attacks. Keep up the great maintenance."
	genericAction    = "Run the Threat Model analyzer to see if you are protected against specific attack vectors."
)

// SecurityReport builds the report for in.
func SecurityReport(in Input) Report {
	r := Report{Problems: []Problem{}, Actions: []Action{}}
	r.RiskSummary, r.Sentiment = summarize(in)

	if n := len(in.Reuse); n > 0 {
		r.Problems = append(r.Problems, Problem{
			Type:     KindReuse,
			Severity: "high",
			Text:     fmt.Sprintf("%d password%s reused across multiple accounts.", n, plural(n, "s are", " is")),
		})
		r.Actions = append(r.Actions, reuseAction(in))
	}

	if weak := shortItems(in.Items); len(weak) > 0 {
		n := len(weak)
		r.Problems = append(r.Problems, Problem{
			Type:     KindWeak,
			Severity: "critical",
			Text:     fmt.Sprintf("%d password%s extremely weak (short).", n, plural(n, "s are", " is")),
		})
		r.Actions = append(r.Actions, Action{
			Type: KindWeak,
			Text: fmt.Sprintf("Strengthen the password for %s using the Generator.", weak[0].Title),
		})
	}

	if stale := hygiene.OlderThan(in.Items, hygiene.StaleAge, in.Now); len(stale) > 0 {
		n := len(stale)
		r.Problems = append(r.Problems, Problem{
			Type:     KindAging,
			Severity: "medium",
			Text:     fmt.Sprintf("%d password%s not been updated in over 6 months.", n, plural(n, "s have", " has")),
		})
		if len(r.Actions) < maxActions {
			r.Actions = append(r.Actions, Action{
				Type: KindAging,
				Text: fmt.Sprintf("Consider rotating the password for %s to stay ahead of breaches.", stale[0].Title),
			})
		}
	}

	if len(r.Actions) == 0 && len(in.Items) > 0 {
		r.Actions = append(r.Actions, Action{Type: KindGeneral, Text: genericAction})
	}

	if len(r.Problems) > maxProblems {
		r.Problems = r.Problems[:maxProblems]
	}
	if len(r.Actions) > maxActions {
		r.Actions = r.Actions[:maxActions]
	}
	return r
}

func summarize(in Input) (string, Sentiment) {
	if len(in.Items) == 0 {
		return emptySummary, SentimentNeutral
	}
	for _, b := range bands {
		if in.Health < b.below {
			return b.summary, b.sentiment
		}
	}
	return excellentSummary, SentimentExcellent
}

// reuseAction targets the first reused item with a critical-looking title,
// falling back to the first reused item.
func reuseAction(in Input) Action {
	var first *credential.Item
	for i := range in.Items {
		item := &in.Items[i]
		if _, ok := in.Reuse[item.ID]; !ok {
			continue
		}
		if criticalTitle.MatchString(item.Title) {
			first = item
			break
		}
		if first == nil {
			first = item
		}
	}
	if first == nil {
		return Action{Type: KindReuse, Text: "Review your reused passwords and generate unique ones for each account."}
	}
	return Action{
		Type: KindReuse,
		Text: fmt.Sprintf("Urgent: Stop using the same password for %s. Rotate it immediately.", first.Title),
	}
}

func shortItems(items []credential.Item) []credential.Item {
	var out []credential.Item
	for _, item := range items {
		if utf8.RuneCountInString(item.Password) < shortPasswordLen {
			out = append(out, item)
		}
	}
	return out
}
