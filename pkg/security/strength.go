package security

import "unicode/utf8"

// PasswordStrength is the 0..5 meter level shown next to a password.
type PasswordStrength int

const (
	// StrengthNone is an empty password.
	StrengthNone PasswordStrength = iota
	// StrengthWeak is below 40 effective bits.
	StrengthWeak
	// StrengthFair is at least 40 effective bits.
	StrengthFair
	// StrengthGood is at least 50 effective bits.
	StrengthGood
	// StrengthStrong is at least 65 effective bits.
	StrengthStrong
	// StrengthExcellent is at least 80 effective bits.
	StrengthExcellent
)

// String returns a human-readable representation of the password strength.
func (s PasswordStrength) String() string {
	switch s {
	case StrengthNone:
		return "None"
	case StrengthWeak:
		return "Weak"
	case StrengthFair:
		return "Fair"
	case StrengthGood:
		return "Good"
	case StrengthStrong:
		return "Strong"
	case StrengthExcellent:
		return "Excellent"
	default:
		return "Unknown"
	}
}

// StrengthLevel maps the effective entropy of p onto the meter.
func StrengthLevel(p string) PasswordStrength {
	return LevelForBits(CalculateEffectiveEntropy(p))
}

// LevelForBits maps an entropy value onto the meter.
func LevelForBits(bits int) PasswordStrength {
	switch {
	case bits >= 80:
		return StrengthExcellent
	case bits >= 65:
		return StrengthStrong
	case bits >= 50:
		return StrengthGood
	case bits >= 40:
		return StrengthFair
	case bits > 0:
		return StrengthWeak
	default:
		return StrengthNone
	}
}

// Complexity labels an entropy value for the analyzer view.
func Complexity(bits int) string {
	switch {
	case bits > 60:
		return "High"
	case bits > 35:
		return "Medium"
	case bits > 0:
		return "Low"
	default:
		return "None"
	}
}

// CompositionPoints awards one point each for length over 8, length over 12,
// an uppercase letter, a digit and a symbol. Range 0..5.
func CompositionPoints(p string) int {
	if p == "" {
		return 0
	}
	points := 0
	n := utf8.RuneCountInString(p)
	if n > 8 {
		points++
	}
	if n > 12 {
		points++
	}
	c := classify(p)
	if c.upper {
		points++
	}
	if c.digit {
		points++
	}
	if c.symbol {
		points++
	}
	return points
}
