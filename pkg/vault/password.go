package vault

import (
	"fmt"
	"unicode/utf8"

	"github.com/forest6511/hygienectl/pkg/security"
)

// Master password limits
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// PasswordValidationResult contains the result of master password validation
type PasswordValidationResult struct {
	Valid    bool                      // Whether password meets minimum requirements
	Strength security.PasswordStrength // Meter level from effective entropy
	Warnings []string                  // Suggestions for improvement (not errors)
}

// ValidateMasterPassword checks the hard length limits and collects
// suggestions from the weakness explainer. Only the length limits make a
// password invalid.
func ValidateMasterPassword(password string) *PasswordValidationResult {
	result := &PasswordValidationResult{Valid: true}

	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		result.Valid = false
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
		return result
	}
	if n > MaxPasswordLength {
		result.Valid = false
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Password must be at most %d characters", MaxPasswordLength))
		return result
	}

	result.Strength = security.StrengthLevel(password)
	for _, w := range security.ExplainWeakness(password) {
		if w.Severity != security.SeverityInfo {
			result.Warnings = append(result.Warnings, w.Message)
		}
	}
	return result
}

func checkMasterPassword(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n < MinPasswordLength:
		return ErrPasswordTooShort
	case n > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}
