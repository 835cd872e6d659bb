// Package cli provides shared utilities for CLI commands.
package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"github.com/forest6511/hygienectl/pkg/credential"
)

// Errors
var (
	ErrNoMatch   = errors.New("no item matches")
	ErrAmbiguous = errors.New("reference matches more than one item")
)

// foldCase case-folds s. A Caser is stateful, so each call gets its own.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

// ResolveItem finds the single item referenced by ref. ref is tried as an
// exact id, then as a title (case-insensitive), then as a glob pattern over
// titles that must match exactly one item.
func ResolveItem(ref string, items []credential.Item) (*credential.Item, error) {
	for i := range items {
		if items[i].ID == ref {
			return &items[i], nil
		}
	}

	var byTitle []int
	for i := range items {
		if foldCase(items[i].Title) == foldCase(ref) {
			byTitle = append(byTitle, i)
		}
	}
	if len(byTitle) == 0 && hasGlob(ref) {
		matched, err := matchTitles(ref, items)
		if err != nil {
			return nil, err
		}
		byTitle = matched
	}

	switch len(byTitle) {
	case 0:
		return nil, fmt.Errorf("%w '%s'", ErrNoMatch, ref)
	case 1:
		return &items[byTitle[0]], nil
	default:
		return nil, fmt.Errorf("%w: '%s' (%d items, use the id)", ErrAmbiguous, ref, len(byTitle))
	}
}

// FilterItems returns the items whose title or site matches any of the
// patterns, case-insensitively, preserving input order. No patterns returns
// every item.
func FilterItems(patterns []string, items []credential.Item) ([]credential.Item, error) {
	if len(patterns) == 0 {
		return items, nil
	}

	for _, p := range patterns {
		// Validate pattern syntax
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern '%s': %w", p, err)
		}
	}

	var result []credential.Item
	for _, it := range items {
		for _, p := range patterns {
			if matchFold(p, it.Title) || (it.Site != "" && matchFold(p, it.Site)) {
				result = append(result, it)
				break
			}
		}
	}
	return result, nil
}

func matchTitles(pattern string, items []credential.Item) ([]int, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
	}
	var out []int
	for i := range items {
		if matchFold(pattern, items[i].Title) {
			out = append(out, i)
		}
	}
	return out, nil
}

// matchFold reports a case-insensitive glob match. A pattern without glob
// characters matches as a substring.
func matchFold(pattern, s string) bool {
	pattern, s = foldCase(pattern), foldCase(s)
	if !hasGlob(pattern) {
		return strings.Contains(s, pattern)
	}
	ok, _ := filepath.Match(pattern, s)
	return ok
}

func hasGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
