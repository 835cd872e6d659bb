package security

import (
	"strings"
	"testing"
)

func TestCalculateEntropy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     int
	}{
		{"empty", "", 0},
		{"eight_lowercase", "aaaaaaaa", 37},
		{"digits_only", "1234", 13},
		{"lower_upper", "abcDEF", 34},
		{"all_classes", "Tr0ub4dor&3", 72},
		{"symbol_only", "!!!!", 20},
		{"unicode_counts_runes", "ééé", 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateEntropy(tt.password); got != tt.want {
				t.Errorf("CalculateEntropy(%q) = %d, want %d", tt.password, got, tt.want)
			}
		})
	}
}

func TestCalculateEntropy_NonDecreasingInLength(t *testing.T) {
	prev := 0
	for n := 1; n <= 64; n++ {
		got := CalculateEntropy(strings.Repeat("x", n))
		if got < prev {
			t.Fatalf("CalculateEntropy length %d = %d, less than %d", n, got, prev)
		}
		prev = got
	}
}

func TestDetectRepeatedSubstrings(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     *RepeatedPattern
	}{
		{"triple_abc", "abcabcabc", &RepeatedPattern{Pattern: "abc", Count: 3, Coverage: 100}},
		{"no_repeat", "abcdef", nil},
		{"too_short", "abab", nil},
		{"case_insensitive", "LikeBoyslikeboys", &RepeatedPattern{Pattern: "likeboys", Count: 2, Coverage: 100}},
		{"partial_coverage", "abcabcX", &RepeatedPattern{Pattern: "abc", Count: 2, Coverage: 86}},
		{"low_coverage", "abcabcXYZW", nil},
		{"same_char", "aaaaaaaa", &RepeatedPattern{Pattern: "aaa", Count: 2, Coverage: 75}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectRepeatedSubstrings(tt.password)
			if tt.want == nil {
				if got != nil {
					t.Errorf("DetectRepeatedSubstrings(%q) = %+v, want nil", tt.password, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("DetectRepeatedSubstrings(%q) = nil, want %+v", tt.password, tt.want)
			}
			if *got != *tt.want {
				t.Errorf("DetectRepeatedSubstrings(%q) = %+v, want %+v", tt.password, got, tt.want)
			}
		})
	}
}

func TestCalculateEffectiveEntropy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     int
	}{
		{"empty", "", 0},
		{"no_penalty", "Zx9!qL2#vB7$", 78},
		// 56 raw bits, repeat x4 (0.3) and sequence "abc" (0.8)
		{"repeat_and_sequence", "abcabcabcabc", 13},
		// 47 raw bits, "password" (0.7)
		{"common_word", "xpasswordq", 32},
		// 25 raw bits, sequence "123" (0.8)
		{"sequence", "x1234", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateEffectiveEntropy(tt.password); got != tt.want {
				t.Errorf("CalculateEffectiveEntropy(%q) = %d, want %d", tt.password, got, tt.want)
			}
		})
	}
}

func TestCalculateEffectiveEntropy_NeverExceedsRaw(t *testing.T) {
	inputs := []string{
		"", "a", "password", "Password123!", "abcabcabc", "qwertyuiop",
		"letmeinletmein", "Zx9!qL2#vB7$", "monkey123", "ÄÖÜäöü", "      ",
	}
	for _, p := range inputs {
		if eff, raw := CalculateEffectiveEntropy(p), CalculateEntropy(p); eff > raw {
			t.Errorf("CalculateEffectiveEntropy(%q) = %d > CalculateEntropy = %d", p, eff, raw)
		}
	}
}

func TestEstimateCrackTime(t *testing.T) {
	tests := []struct {
		bits      int
		want      CrackTime
		wantLabel string
	}{
		{0, CrackInstant, "Instantly"},
		{27, CrackInstant, "Instantly"},
		{28, CrackSecondsMinutes, "Seconds to Minutes"},
		{39, CrackSecondsMinutes, "Seconds to Minutes"},
		{40, CrackHoursDays, "Hours to Days"},
		{50, CrackWeeksMonths, "Weeks to Months"},
		{65, CrackYears, "Years"},
		{79, CrackYears, "Years"},
		{80, CrackCenturies, "Centuries+"},
		{200, CrackCenturies, "Centuries+"},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got := EstimateCrackTime(tt.bits)
			if got != tt.want {
				t.Errorf("EstimateCrackTime(%d) = %v, want %v", tt.bits, got, tt.want)
			}
			if got.Label() != tt.wantLabel {
				t.Errorf("Label() = %q, want %q", got.Label(), tt.wantLabel)
			}
		})
	}
}

func TestEmptyPasswordIsInstant(t *testing.T) {
	if got := EstimateCrackTime(CalculateEntropy("")); got != CrackInstant {
		t.Errorf("EstimateCrackTime(empty) = %v, want %v", got, CrackInstant)
	}
}

func TestContainsCommonWord(t *testing.T) {
	if w, ok := ContainsCommonWord("MySunShine!"); !ok || w != "sunshine" {
		t.Errorf("ContainsCommonWord() = %q, %v, want sunshine, true", w, ok)
	}
	if _, ok := ContainsCommonWord("Zx9!qL2#vB7$"); ok {
		t.Error("ContainsCommonWord() matched a random password")
	}
}
