package security

import (
	"strings"
	"testing"
)

func hasWeakness(ws []Weakness, typ WeaknessType, sev Severity, contains string) bool {
	for _, w := range ws {
		if w.Type == typ && w.Severity == sev && strings.Contains(w.Message, contains) {
			return true
		}
	}
	return false
}

func TestExplainWeakness_Empty(t *testing.T) {
	got := ExplainWeakness("")
	if len(got) != 1 {
		t.Fatalf("ExplainWeakness(\"\") returned %d findings, want 1", len(got))
	}
	if got[0].Type != WeaknessLength || got[0].Severity != SeverityCritical {
		t.Errorf("ExplainWeakness(\"\")[0] = %+v, want critical length", got[0])
	}
}

func TestExplainWeakness_RepeatedCharacter(t *testing.T) {
	got := ExplainWeakness("aaaaaaaa")

	checks := []struct {
		typ      WeaknessType
		sev      Severity
		contains string
	}{
		{WeaknessLength, SeverityWarning, "8 characters"},
		{WeaknessEntropy, SeverityWarning, "37 bits"},
		{WeaknessRepetition, SeverityWarning, `repeated pattern "aaa" 2 times`},
		{WeaknessRepetition, SeverityWarning, `Character "a" repeated 8 times`},
		{WeaknessCharset, SeverityInfo, "Only lowercase"},
		{WeaknessCharset, SeverityInfo, "No special characters"},
	}
	for _, c := range checks {
		if !hasWeakness(got, c.typ, c.sev, c.contains) {
			t.Errorf("ExplainWeakness(aaaaaaaa) missing %s/%s %q; got %+v", c.typ, c.sev, c.contains, got)
		}
	}
}

func TestExplainWeakness_Order(t *testing.T) {
	got := ExplainWeakness("password123")

	want := []WeaknessType{
		WeaknessLength,     // 11 chars
		WeaknessDictionary, // password
		WeaknessPattern,    // 123
		WeaknessStructure,  // word + digits
		WeaknessCharset,    // lowercase only
		WeaknessCharset,    // no symbol
	}
	if len(got) != len(want) {
		t.Fatalf("ExplainWeakness(password123) = %d findings, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Type != w {
			t.Errorf("finding[%d].Type = %s, want %s", i, got[i].Type, w)
		}
	}
}

func TestExplainWeakness_FirstMatchOnly(t *testing.T) {
	got := ExplainWeakness("Password-Admin-qwerty-asdf-abc-xyz!")

	count := map[string]int{}
	for _, w := range got {
		switch {
		case w.Type == WeaknessDictionary:
			count["dictionary"]++
		case strings.Contains(w.Message, "keyboard"):
			count["keyboard"]++
		case strings.Contains(w.Message, "sequential"):
			count["sequence"]++
		}
	}
	for k, n := range count {
		if n != 1 {
			t.Errorf("%s findings = %d, want 1", k, n)
		}
	}
	if !hasWeakness(got, WeaknessDictionary, SeverityCritical, `"password"`) {
		t.Errorf("expected first dictionary word to be password: %+v", got)
	}
	if !hasWeakness(got, WeaknessPattern, SeverityWarning, `"abc"`) {
		t.Errorf("expected first sequence to be abc: %+v", got)
	}
}

func TestExplainWeakness_TripleRepeatIsCritical(t *testing.T) {
	got := ExplainWeakness("XyzXyzXyz")
	if !hasWeakness(got, WeaknessRepetition, SeverityCritical, `"xyz" 3 times (100%`) {
		t.Errorf("ExplainWeakness(XyzXyzXyz) = %+v, want critical repetition", got)
	}
}

func TestExplainWeakness_Uppercase(t *testing.T) {
	got := ExplainWeakness("HELLOWORLD")
	if !hasWeakness(got, WeaknessCharset, SeverityInfo, "Only uppercase") {
		t.Errorf("ExplainWeakness(HELLOWORLD) = %+v, want uppercase-only info", got)
	}
}

func TestExplainWeakness_Strong(t *testing.T) {
	got := ExplainWeakness("Zx9!qL2#vB7$mN4&")
	if len(got) != 0 {
		t.Errorf("ExplainWeakness(strong) = %+v, want none", got)
	}
}

func TestExplainWeakness_LongWordDigitsNotStructural(t *testing.T) {
	got := ExplainWeakness("correcthorsebattery2024")
	for _, w := range got {
		if w.Type == WeaknessStructure {
			t.Errorf("unexpected structure finding for long password: %+v", w)
		}
	}
}

func TestFirstRun(t *testing.T) {
	tests := []struct {
		in        string
		wantRune  rune
		wantCount int
		wantOK    bool
	}{
		{"abc", 0, 0, false},
		{"aab", 0, 0, false},
		{"xaaab", 'a', 3, true},
		{"bbbbccc", 'b', 4, true},
		{"ééé", 'é', 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, n, ok := firstRun(tt.in, 3)
			if r != tt.wantRune || n != tt.wantCount || ok != tt.wantOK {
				t.Errorf("firstRun(%q) = %q, %d, %v, want %q, %d, %v", tt.in, r, n, ok, tt.wantRune, tt.wantCount, tt.wantOK)
			}
		})
	}
}
