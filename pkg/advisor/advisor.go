// Package advisor turns hygiene metrics into human-readable guidance.
//
// Both rule sets are evaluated in a fixed order. The order is the priority
// shown to the user, so callers must not re-sort the output.
package advisor

import (
	"time"

	"github.com/forest6511/hygienectl/pkg/credential"
	"github.com/forest6511/hygienectl/pkg/hygiene"
)

// Input is the snapshot of vault state the rules are evaluated against.
type Input struct {
	Items  []credential.Item
	Reuse  hygiene.ReuseMap
	Health int
	Now    time.Time
}

// NewInput computes the reuse map and health score for items.
func NewInput(items []credential.Item, now time.Time) Input {
	reuse := hygiene.CheckReuse(items)
	return Input{
		Items:  items,
		Reuse:  reuse,
		Health: hygiene.CalculateHealthScore(items, reuse, now),
		Now:    now,
	}
}

func plural(n int, many, one string) string {
	if n > 1 {
		return many
	}
	return one
}
