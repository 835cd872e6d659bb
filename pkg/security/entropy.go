// Package security provides password strength analysis for vault items.
//
// Scores are heuristic. Raw entropy uses a character-pool model; effective
// entropy applies multiplicative penalties for guessable structure.
package security

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Character pool sizes used by CalculateEntropy.
const (
	PoolLower  = 26
	PoolUpper  = 26
	PoolDigit  = 10
	PoolSymbol = 32
)

// Penalty factors applied by CalculateEffectiveEntropy.
const (
	penaltyTripleRepeat = 0.3
	penaltyDoubleRepeat = 0.6
	penaltyCommonWord   = 0.7
	penaltySequence     = 0.8
)

// minRepeatLength is the shortest password considered for repeated substrings.
const minRepeatLength = 6

// penaltyWords is the short list used for the effective entropy penalty.
var penaltyWords = []string{
	"password", "admin", "user", "login", "welcome", "letmein", "monkey", "dragon", "master",
}

// CommonWords is the dictionary used for weakness reports and breach risk.
var CommonWords = []string{
	"password", "admin", "user", "login", "welcome", "letmein", "monkey",
	"dragon", "master", "sunshine", "princess", "football", "shadow",
	"michael", "jennifer", "computer", "baseball", "jordan", "harley",
}

var penaltySequences = []string{
	"123", "234", "345", "456", "567", "678", "789", "abc", "bcd", "cde",
}

var sequences = []string{
	"123", "234", "345", "456", "567", "678", "789",
	"abc", "bcd", "cde", "def", "efg", "fgh", "xyz",
}

var keyboardPatterns = []string{"qwerty", "asdf", "zxcv", "qazwsx", "1qaz2wsx"}

// fold returns the case-folded form used for pattern matching. Casers hold
// state, so one is made per call.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// firstContained returns the first entry of list found in s.
func firstContained(s string, list []string) (string, bool) {
	for _, w := range list {
		if strings.Contains(s, w) {
			return w, true
		}
	}
	return "", false
}

// ContainsCommonWord reports the first CommonWords entry found in p, ignoring case.
func ContainsCommonWord(p string) (string, bool) {
	return firstContained(fold(p), CommonWords)
}

type charClasses struct {
	lower, upper, digit, symbol bool
}

func classify(p string) charClasses {
	var c charClasses
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			c.lower = true
		case r >= 'A' && r <= 'Z':
			c.upper = true
		case r >= '0' && r <= '9':
			c.digit = true
		default:
			c.symbol = true
		}
	}
	return c
}

func (c charClasses) pool() int {
	pool := 0
	if c.lower {
		pool += PoolLower
	}
	if c.upper {
		pool += PoolUpper
	}
	if c.digit {
		pool += PoolDigit
	}
	if c.symbol {
		pool += PoolSymbol
	}
	return pool
}

// CalculateEntropy returns floor(length * log2(pool)) bits, where pool is the
// sum of the character classes present in p. Length counts runes.
func CalculateEntropy(p string) int {
	if p == "" {
		return 0
	}
	pool := classify(p).pool()
	if pool == 0 {
		return 0
	}
	n := len([]rune(p))
	return int(math.Floor(float64(n) * math.Log2(float64(pool))))
}

// RepeatedPattern describes a password built from a repeated leading substring.
type RepeatedPattern struct {
	Pattern  string `json:"pattern"`
	Count    int    `json:"count"`
	Coverage int    `json:"coverage"` // percent of the password, rounded
}

// DetectRepeatedSubstrings reports whether p is mostly consecutive repeats of
// its leading substring. Substring lengths 3 through len/2 are tried smallest
// first; the first with at least two repeats covering 70% or more wins.
// Matching ignores case. Passwords shorter than six characters return nil.
func DetectRepeatedSubstrings(p string) *RepeatedPattern {
	runes := []rune(fold(p))
	n := len(runes)
	if n < minRepeatLength {
		return nil
	}

	for size := 3; size <= n/2; size++ {
		lead := string(runes[:size])

		count := 0
		for pos := 0; pos+size <= n; pos += size {
			if string(runes[pos:pos+size]) != lead {
				break
			}
			count++
		}

		coverage := float64(count*size) / float64(n)
		if count >= 2 && coverage >= 0.7 {
			return &RepeatedPattern{
				Pattern:  lead,
				Count:    count,
				Coverage: int(math.Round(coverage * 100)),
			}
		}
	}
	return nil
}

// CalculateEffectiveEntropy returns raw entropy reduced by multiplicative
// penalties for a repeated pattern, a common word and a sequential run.
// The result never exceeds CalculateEntropy(p).
func CalculateEffectiveEntropy(p string) int {
	if p == "" {
		return 0
	}

	entropy := CalculateEntropy(p)
	factor := 1.0

	if rep := DetectRepeatedSubstrings(p); rep != nil {
		if rep.Count >= 3 {
			factor *= penaltyTripleRepeat
		} else {
			factor *= penaltyDoubleRepeat
		}
	}

	folded := fold(p)
	if _, ok := firstContained(folded, penaltyWords); ok {
		factor *= penaltyCommonWord
	}
	if _, ok := firstContained(folded, penaltySequences); ok {
		factor *= penaltySequence
	}

	return int(math.Floor(float64(entropy) * factor))
}

// CrackTime classifies how long an offline attack would take.
type CrackTime string

const (
	CrackInstant        CrackTime = "instant"
	CrackSecondsMinutes CrackTime = "seconds-minutes"
	CrackHoursDays      CrackTime = "hours-days"
	CrackWeeksMonths    CrackTime = "weeks-months"
	CrackYears          CrackTime = "years"
	CrackCenturies      CrackTime = "centuries+"
)

// EstimateCrackTime buckets an entropy value into a CrackTime class.
func EstimateCrackTime(bits int) CrackTime {
	switch {
	case bits < 28:
		return CrackInstant
	case bits < 40:
		return CrackSecondsMinutes
	case bits < 50:
		return CrackHoursDays
	case bits < 65:
		return CrackWeeksMonths
	case bits < 80:
		return CrackYears
	default:
		return CrackCenturies
	}
}

// Label returns the display string for the class.
func (c CrackTime) Label() string {
	switch c {
	case CrackInstant:
		return "Instantly"
	case CrackSecondsMinutes:
		return "Seconds to Minutes"
	case CrackHoursDays:
		return "Hours to Days"
	case CrackWeeksMonths:
		return "Weeks to Months"
	case CrackYears:
		return "Years"
	case CrackCenturies:
		return "Centuries+"
	default:
		return "Unknown"
	}
}
