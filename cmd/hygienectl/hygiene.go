package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/hygienectl/pkg/advisor"
	"github.com/forest6511/hygienectl/pkg/generator"
	"github.com/forest6511/hygienectl/pkg/hygiene"
	"github.com/forest6511/hygienectl/pkg/security"
	"github.com/forest6511/hygienectl/pkg/timeline"
	"github.com/forest6511/hygienectl/pkg/vault"
)

// Hygiene command flags
var (
	hygieneJSON    bool
	timelineWindow int
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(tipsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(timelineCmd)

	for _, c := range []*cobra.Command{analyzeCmd, scoreCmd, tipsCmd, reportCmd, timelineCmd} {
		c.Flags().BoolVar(&hygieneJSON, "json", false, "Output in JSON format")
	}
	timelineCmd.Flags().IntVarP(&timelineWindow, "window", "w", timeline.DefaultTrendWindow, "Number of trailing snapshots")
}

// analysis is the analyzer view of one password.
type analysis struct {
	Length           int                 `json:"length"`
	Entropy          int                 `json:"entropy"`
	EffectiveEntropy int                 `json:"effectiveEntropy"`
	Strength         string              `json:"strength"`
	Meter            int                 `json:"meter"`
	Complexity       string              `json:"complexity"`
	CrackTime        string              `json:"crackTime"`
	Weaknesses       []security.Weakness `json:"weaknesses"`
}

func analyze(p string) analysis {
	raw := security.CalculateEntropy(p)
	effective := security.CalculateEffectiveEntropy(p)
	level := security.LevelForBits(effective)
	return analysis{
		Length:           len([]rune(p)),
		Entropy:          raw,
		EffectiveEntropy: effective,
		Strength:         level.String(),
		Meter:            int(level),
		Complexity:       security.Complexity(raw),
		CrackTime:        security.EstimateCrackTime(effective).Label(),
		Weaknesses:       security.ExplainWeakness(p),
	}
}

// analyzeCmd explains the strength of one password
var analyzeCmd = &cobra.Command{
	Use:   "analyze [id|title]",
	Short: "Analyze a password's entropy, crack time and weaknesses",
	Long: `Analyze a password. Without arguments the password is read from a hidden
prompt and never stored. With an item reference the stored password is
analyzed without being printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password, title string
		if len(args) == 1 {
			if err := ensureUnlocked(cmd.Context()); err != nil {
				return err
			}
			item, err := resolve(args[0])
			if err != nil {
				return err
			}
			password, title = item.Password, item.Title
		} else {
			p, err := promptSecret("Enter password to analyze: ")
			if err != nil {
				return err
			}
			password = p
		}
		if password == "" {
			return errors.New("password is empty")
		}

		a := analyze(password)
		if hygieneJSON {
			return printJSON(a)
		}

		if title != "" {
			fmt.Printf("Analysis for '%s'\n\n", title)
		}
		fmt.Printf("Strength:          %s %s\n", a.Strength, meter(a.Meter))
		fmt.Printf("Length:            %d\n", a.Length)
		fmt.Printf("Entropy:           %d bits (%s complexity)\n", a.Entropy, a.Complexity)
		fmt.Printf("Effective entropy: %d bits\n", a.EffectiveEntropy)
		fmt.Printf("Time to crack:     %s\n", a.CrackTime)
		if len(a.Weaknesses) > 0 {
			fmt.Println()
			fmt.Println("Weaknesses:")
			for _, w := range a.Weaknesses {
				fmt.Printf("  [%s] %s\n", strings.ToUpper(string(w.Severity)), w.Message)
			}
		}
		return nil
	},
}

// scoreCmd shows the health score, radar and readiness
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Show the vault health score and risk profile",
	Long: `Show the vault health score (0-100).

The score starts at 100 and deducts:
  - up to 40 for the share of weak passwords (< 50 bits)
  - 5 per reused password, capped at 30
  - up to 20 for the share of passwords older than 90 days
  - 10 when the vault holds fewer than 3 items`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		view, err := v.Analytics()
		if err != nil {
			return err
		}

		if hygieneJSON {
			return printJSON(struct {
				Health     int                  `json:"health"`
				ItemCount  int                  `json:"itemCount"`
				WeakCount  int                  `json:"weakCount"`
				ReuseCount int                  `json:"reuseCount"`
				Radar      hygiene.RadarMetrics `json:"radar"`
				Stats      hygiene.Stats        `json:"stats"`
			}{view.Health, len(view.Items), view.WeakCount, len(view.Reuse), view.Radar, view.Stats})
		}

		emoji, rating := healthRating(view.Health)
		fmt.Printf("%s Health Score: %d/100 (%s)\n\n", emoji, view.Health, rating)
		fmt.Printf("Items: %d   Weak: %d   Reused: %d\n\n", len(view.Items), view.WeakCount, len(view.Reuse))

		fmt.Println("Risk profile (higher is better):")
		fmt.Printf("  Entropy:     %3d %s\n", view.Radar.Entropy, progressBar(view.Radar.Entropy, 100))
		fmt.Printf("  Uniqueness:  %3d %s\n", view.Radar.Reuse, progressBar(view.Radar.Reuse, 100))
		fmt.Printf("  Freshness:   %3d %s\n", view.Radar.Aging, progressBar(view.Radar.Aging, 100))
		fmt.Printf("  Breach risk: %3d %s\n", view.Radar.BreachRisk, progressBar(view.Radar.BreachRisk, 100))
		fmt.Printf("  Health:      %3d %s\n", view.Radar.Health, progressBar(view.Radar.Health, 100))
		fmt.Println()

		s := view.Stats
		fmt.Printf("Level %d  (%d/%d XP) %s\n\n", s.Level, s.TotalXP, s.NextLevelXP, progressBar(s.ProgressInLevel, hygiene.XPPerLevel))
		fmt.Printf("Readiness: %d%%\n", s.Readiness.Percent)
		for _, c := range s.Readiness.Checklist {
			mark := "✗"
			if c.Met {
				mark = "✓"
			}
			fmt.Printf("  %s %s\n", mark, c.Label)
		}
		return nil
	},
}

// tipsCmd shows the prioritized tips
var tipsCmd = &cobra.Command{
	Use:   "tips",
	Short: "Show hygiene tips, most urgent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		view, err := v.Analytics()
		if err != nil {
			return err
		}
		if hygieneJSON {
			return printJSON(view.Tips)
		}
		for _, tip := range view.Tips {
			fmt.Printf("%s %s\n   %s\n\n", tipIcon(tip.Type), tip.Title, tip.Msg)
		}
		return nil
	},
}

// reportCmd shows the narrative security report
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the security report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		view, err := v.Analytics()
		if err != nil {
			return err
		}
		r := view.Report
		if hygieneJSON {
			return printJSON(r)
		}

		fmt.Printf("Security Report (%s)\n\n", r.Sentiment)
		fmt.Println(r.RiskSummary)
		if len(r.Problems) > 0 {
			fmt.Println()
			fmt.Println("Problems:")
			for i, p := range r.Problems {
				fmt.Printf("  %d. [%s] %s\n", i+1, strings.ToUpper(p.Severity), p.Text)
			}
		}
		if len(r.Actions) > 0 {
			fmt.Println()
			fmt.Println("Recommended actions:")
			for _, a := range r.Actions {
				fmt.Printf("  - %s\n", a.Text)
			}
		}
		return nil
	},
}

// timelineCmd shows the daily health snapshots
var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show daily health snapshots and the trend",
	RunE: func(cmd *cobra.Command, args []string) error {
		if timelineWindow < 1 {
			return errors.New("window must be at least 1")
		}
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		snaps, err := v.Timeline(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read timeline: %w", err)
		}
		if len(snaps) > timelineWindow {
			snaps = snaps[len(snaps)-timelineWindow:]
		}
		trend := timeline.Trend(snaps, timelineWindow)

		if hygieneJSON {
			return printJSON(struct {
				Snapshots []timeline.Snapshot `json:"snapshots"`
				Trend     int                 `json:"trend"`
			}{snaps, trend})
		}
		if len(snaps) == 0 {
			fmt.Println("No snapshots recorded yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tSCORE\t\tWEAK\tREUSED")
		for _, s := range snaps {
			fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\n",
				s.Time().Format(time.DateOnly), s.HealthScore, progressBar(s.HealthScore, 100), s.WeakCount, s.ReuseCount)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nTrend over %d snapshots: %+d\n", len(snaps), trend)
		return nil
	},
}

// itemPassword generates a password or prompts for one.
func itemPassword(generate bool) (string, error) {
	if generate {
		return generator.Generate(generator.DefaultOptions())
	}
	password, err := promptSecret("Enter item password: ")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", vault.ErrPasswordRequired
	}
	return password, nil
}

// warnIfWeak prints the same warning the vault records in the audit log.
func warnIfWeak(password string) {
	if bits := security.CalculateEntropy(password); bits < vault.WeakAuditEntropy {
		fmt.Fprintf(os.Stderr, "warning: weak password (%d bits); try 'hygienectl generate'\n", bits)
	}
}

// printItemTable writes one row per item. Passwords are never printed.
func printItemTable(out io.Writer, items []vault.VaultItem, view *vault.View, fullIDs bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUSERNAME\tSITE\tBITS\tAGE\tFLAGS")
	for _, item := range items {
		id := item.ID
		if !fullIDs && len(id) > 8 {
			id = id[:8]
		}
		bits := security.CalculateEntropy(item.Password)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			id, item.Title, item.Username, item.Site, bits,
			formatAge(item.Age(view.GeneratedAt)), itemFlags(item, bits, view))
	}
	_ = w.Flush()
}

func itemFlags(item vault.VaultItem, bits int, view *vault.View) string {
	var flags []string
	if bits < hygiene.ListWeakEntropyBits {
		flags = append(flags, "weak")
	}
	if n := view.Reuse[item.ID]; n > 0 {
		flags = append(flags, fmt.Sprintf("reused x%d", n))
	}
	if hygiene.IsOld(item, view.GeneratedAt) {
		flags = append(flags, "old")
	}
	return strings.Join(flags, ",")
}

func formatAge(d time.Duration) string {
	days := int(d.Hours() / 24)
	switch {
	case days < 1:
		return "today"
	case days < 60:
		return fmt.Sprintf("%dd", days)
	case days < 730:
		return fmt.Sprintf("%dmo", days/30)
	default:
		return fmt.Sprintf("%dy", days/365)
	}
}

func healthRating(score int) (emoji, rating string) {
	switch {
	case score >= 90:
		return "🔒", "Excellent"
	case score >= 75:
		return "🔒", "Good"
	case score >= 50:
		return "⚠️", "Fair"
	default:
		return "🚨", "Critical"
	}
}

func tipIcon(t advisor.TipType) string {
	switch t {
	case advisor.TipDanger:
		return "🚨"
	case advisor.TipWarning:
		return "⚠️"
	case advisor.TipSuccess:
		return "✅"
	default:
		return "💡"
	}
}

// meter draws the 0..5 strength meter.
func meter(level int) string {
	return "[" + strings.Repeat("■", level) + strings.Repeat("□", int(security.StrengthExcellent)-level) + "]"
}

// progressBar creates a simple ASCII progress bar.
func progressBar(value, maxVal int) string {
	width := 20
	if value < 0 {
		value = 0
	}
	if value > maxVal {
		value = maxVal
	}
	filled := value * width / maxVal
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func printJSON(val any) error {
	data, err := json.MarshalIndent(val, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
