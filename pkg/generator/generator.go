// Package generator produces random passwords from a configurable character set.
package generator

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Character sets
const (
	CharsetLowercase = "abcdefghijklmnopqrstuvwxyz"
	CharsetUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	CharsetDigits    = "0123456789"
	CharsetSymbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// Length limits
const (
	MinLength     = 8
	MaxLength     = 64
	DefaultLength = 16
)

var (
	ErrInvalidLength = fmt.Errorf("generator: length must be between %d and %d", MinLength, MaxLength)
	ErrEmptyCharset  = errors.New("generator: character set is empty")
)

// Options selects the character classes. Lowercase letters are always included.
type Options struct {
	Length    int // 0 means DefaultLength
	Uppercase bool
	Numbers   bool
	Symbols   bool
	Exclude   string // characters removed from the set
}

// DefaultOptions enables every class at the default length.
func DefaultOptions() Options {
	return Options{Length: DefaultLength, Uppercase: true, Numbers: true, Symbols: true}
}

// Generate returns a password drawn uniformly from the selected set using crypto/rand.
func Generate(opts Options) (string, error) {
	length := opts.Length
	if length == 0 {
		length = DefaultLength
	}
	if length < MinLength || length > MaxLength {
		return "", ErrInvalidLength
	}

	charset := buildCharset(opts)
	if charset == "" {
		return "", ErrEmptyCharset
	}

	n := big.NewInt(int64(len(charset)))
	password := make([]byte, length)
	for i := range password {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("generator: failed to generate random number: %w", err)
		}
		password[i] = charset[idx.Int64()]
	}
	return string(password), nil
}

func buildCharset(opts Options) string {
	var b strings.Builder
	b.WriteString(CharsetLowercase)
	if opts.Uppercase {
		b.WriteString(CharsetUppercase)
	}
	if opts.Numbers {
		b.WriteString(CharsetDigits)
	}
	if opts.Symbols {
		b.WriteString(CharsetSymbols)
	}
	if opts.Exclude == "" {
		return b.String()
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(opts.Exclude, r) {
			return -1
		}
		return r
	}, b.String())
}
