package security

import (
	"fmt"
	"regexp"
)

// Severity indicates the urgency of a weakness.
type Severity string

const (
	// SeverityCritical requires immediate attention.
	SeverityCritical Severity = "critical"
	// SeverityWarning should be addressed soon.
	SeverityWarning Severity = "warning"
	// SeverityInfo is informational only.
	SeverityInfo Severity = "info"
)

// WeaknessType identifies the category of a weakness.
type WeaknessType string

const (
	WeaknessLength     WeaknessType = "length"
	WeaknessEntropy    WeaknessType = "entropy"
	WeaknessRepetition WeaknessType = "repetition"
	WeaknessDictionary WeaknessType = "dictionary"
	WeaknessPattern    WeaknessType = "pattern"
	WeaknessStructure  WeaknessType = "structure"
	WeaknessCharset    WeaknessType = "charset"
)

// Weakness is a single human-readable finding about a password.
type Weakness struct {
	Type     WeaknessType `json:"type"`
	Severity Severity     `json:"severity"`
	Message  string       `json:"message"`
}

var wordThenDigits = regexp.MustCompile(`^[a-zA-Z]+[0-9]+$`)

// ExplainWeakness runs every check in a fixed order and returns the findings.
// Dictionary, sequence and keyboard checks report only their first match.
// An empty password yields the critical length finding.
func ExplainWeakness(p string) []Weakness {
	n := len([]rune(p))
	folded := fold(p)
	entropy := CalculateEntropy(p)

	var out []Weakness
	add := func(t WeaknessType, s Severity, format string, args ...any) {
		out = append(out, Weakness{Type: t, Severity: s, Message: fmt.Sprintf(format, args...)})
	}

	switch {
	case n < 8:
		add(WeaknessLength, SeverityCritical, "Only %d characters long. Passwords should be at least 12 characters.", n)
	case n < 12:
		add(WeaknessLength, SeverityWarning, "%d characters is below the recommended 12+ character minimum.", n)
	}
	if n == 0 {
		return out
	}

	switch {
	case entropy < 28:
		add(WeaknessEntropy, SeverityCritical, "Extremely low randomness (%d bits). Can be cracked instantly.", entropy)
	case entropy < 40:
		add(WeaknessEntropy, SeverityWarning, "Low randomness (%d bits). Vulnerable to brute-force attacks.", entropy)
	}

	if rep := DetectRepeatedSubstrings(p); rep != nil {
		sev := SeverityWarning
		if rep.Count >= 3 {
			sev = SeverityCritical
		}
		add(WeaknessRepetition, sev, "Contains repeated pattern %q %d times (%d%% of password).", rep.Pattern, rep.Count, rep.Coverage)
	}

	if w, ok := firstContained(folded, CommonWords); ok {
		add(WeaknessDictionary, SeverityCritical, "Contains common word %q. Easily guessed by attackers.", w)
	}
	if s, ok := firstContained(folded, sequences); ok {
		add(WeaknessPattern, SeverityWarning, "Contains sequential pattern %q. Predictable and easy to guess.", s)
	}
	if k, ok := firstContained(folded, keyboardPatterns); ok {
		add(WeaknessPattern, SeverityWarning, "Contains keyboard pattern %q. Common and easily cracked.", k)
	}

	if r, count, ok := firstRun(p, 3); ok {
		add(WeaknessRepetition, SeverityWarning, "Character %q repeated %d times. Reduces password strength.", string(r), count)
	}

	if wordThenDigits.MatchString(p) && n < 15 {
		add(WeaknessStructure, SeverityWarning, "Predictable structure: word followed by numbers. Common pattern attackers try first.")
	}

	c := classify(p)
	switch {
	case c.lower && !c.upper:
		add(WeaknessCharset, SeverityInfo, "Only lowercase letters. Add uppercase, numbers, and symbols for better security.")
	case c.upper && !c.lower:
		add(WeaknessCharset, SeverityInfo, "Only uppercase letters. Mix case and add numbers or symbols for better security.")
	}
	if !c.symbol {
		add(WeaknessCharset, SeverityInfo, "No special characters. Adding symbols (!@#$%%^&*) significantly increases strength.")
	}

	return out
}

// firstRun finds the leftmost run of at least minRun identical runes and
// returns the rune and the full run length.
func firstRun(p string, minRun int) (rune, int, bool) {
	runes := []rune(p)
	for i := 0; i < len(runes); {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= minRun {
			return runes[i], j - i, true
		}
		i = j
	}
	return 0, 0, false
}
