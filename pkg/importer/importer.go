// Package importer reads login credentials from other password managers'
// export files. Supports 1Password CSV, Bitwarden JSON, and LastPass CSV.
//
// Only logins are imported. Notes, cards, identities and TOTP seeds have no
// place in a vault item and are skipped or dropped with a warning.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/hygienectl/pkg/vault"
)

// Source represents the source password manager format.
type Source string

const (
	Source1Password Source = "1password"
	SourceBitwarden Source = "bitwarden"
	SourceLastPass  Source = "lastpass"
)

// ImportedItem is one login read from an export file.
type ImportedItem struct {
	// Item is ready to pass to Vault.AddPassword.
	Item vault.NewItem

	// OriginalName is the entry name as it appeared in the export.
	OriginalName string

	// Tags are the folders or groups from the source. Informational only.
	Tags []string
}

// ImportResult contains the results of an import operation.
type ImportResult struct {
	Items    []*ImportedItem
	Warnings []string
	Skipped  []SkippedItem
}

// SkippedItem represents an entry that was not imported.
type SkippedItem struct {
	OriginalName string
	Reason       string
}

// Skip reasons
const (
	ReasonNoPassword  = "no password"
	ReasonNotLogin    = "not a login"
	ReasonSecureNote  = "secure note"
	ReasonUnsupported = "unsupported item type"
)

// Parser is the interface for export format parsers.
type Parser interface {
	Parse(data []byte) (*ImportResult, error)
	Source() Source
}

func newResult() *ImportResult {
	return &ImportResult{
		Items:    make([]*ImportedItem, 0),
		Warnings: make([]string, 0),
		Skipped:  make([]SkippedItem, 0),
	}
}

// newItem builds an ImportedItem, falling back to the site host or a counter
// when the entry has no name.
func newItem(name, site, username, password string, tags []string, counter *int) *ImportedItem {
	title := NormalizeValue(name)
	if title == "" {
		title = FallbackTitle(site, *counter)
		*counter++
	}
	return &ImportedItem{
		Item: vault.NewItem{
			Title:    truncateRunes(title, vault.MaxTitleLength),
			Username: NormalizeValue(username),
			Password: password,
			Site:     NormalizeValue(site),
		},
		OriginalName: name,
		Tags:         tags,
	}
}

// FallbackTitle names an entry that has none:
// 1. Use the site hostname
// 2. If no site, use "Imported item N"
func FallbackTitle(site string, counter int) string {
	if site != "" {
		if host := extractHostname(site); host != "" {
			return host
		}
	}
	return fmt.Sprintf("Imported item %d", counter)
}

// extractHostname extracts the hostname from a URL.
func extractHostname(urlStr string) string {
	urlStr = strings.TrimPrefix(urlStr, "https://")
	urlStr = strings.TrimPrefix(urlStr, "http://")

	if idx := strings.Index(urlStr, "/"); idx != -1 {
		urlStr = urlStr[:idx]
	}
	if idx := strings.Index(urlStr, ":"); idx != -1 {
		urlStr = urlStr[:idx]
	}
	return strings.TrimPrefix(urlStr, "www.")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// DecodeHTMLEntities decodes common HTML entities found in LastPass exports.
func DecodeHTMLEntities(s string) string {
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&apos;", "'")
	return s
}

// NormalizeValue trims whitespace and normalizes Unicode to NFC.
func NormalizeValue(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// IsEmptyOrWhitespace checks if a string is empty or contains only whitespace.
func IsEmptyOrWhitespace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// Adder stores a new item. *vault.Vault satisfies it.
type Adder interface {
	AddPassword(ctx context.Context, in vault.NewItem) (*vault.VaultItem, error)
}

// Summary reports what Apply wrote.
type Summary struct {
	Added  int
	Failed []SkippedItem
}

// Apply adds every parsed item. A rejected item is recorded and the rest are
// still attempted; a locked vault stops the import.
func Apply(ctx context.Context, dst Adder, result *ImportResult) (*Summary, error) {
	sum := &Summary{}
	for _, it := range result.Items {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if _, err := dst.AddPassword(ctx, it.Item); err != nil {
			if errors.Is(err, vault.ErrVaultLocked) {
				return sum, err
			}
			sum.Failed = append(sum.Failed, SkippedItem{OriginalName: it.OriginalName, Reason: err.Error()})
			continue
		}
		sum.Added++
	}
	return sum, nil
}

// GetParser returns a parser for the given source.
func GetParser(source Source) (Parser, error) {
	switch source {
	case Source1Password:
		return &OnePasswordParser{}, nil
	case SourceBitwarden:
		return &BitwardenParser{}, nil
	case SourceLastPass:
		return &LastPassParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported import source: %s", source)
	}
}

// ValidSources returns a list of valid source names.
func ValidSources() []string {
	return []string{
		string(Source1Password),
		string(SourceBitwarden),
		string(SourceLastPass),
	}
}
