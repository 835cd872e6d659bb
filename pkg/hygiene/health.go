package hygiene

import (
	"math"
	"time"

	"github.com/forest6511/hygienectl/pkg/credential"
	"github.com/forest6511/hygienectl/pkg/security"
)

// Thresholds used across the aggregator.
const (
	// WeakEntropyBits marks a password weak for the health score (raw entropy).
	WeakEntropyBits = 50
	// ListWeakEntropyBits marks a password weak in listings and the timeline.
	ListWeakEntropyBits = 45

	Day = 24 * time.Hour
	// RotationAge is the age after which a password counts as old.
	RotationAge = 90 * Day
	// StaleAge is the age used by the security report.
	StaleAge = 180 * Day
	// AncientAge is the age after which a password is overdue.
	AncientAge = 365 * Day
)

// Health score weights.
const (
	weakWeight        = 40
	reusePerItem      = 5
	reuseMaxPenalty   = 30
	oldWeight         = 20
	smallVaultSize    = 3
	smallVaultPenalty = 10
)

// IsOld reports whether the item was last changed more than RotationAge ago.
func IsOld(item credential.Item, now time.Time) bool {
	return item.Age(now) > RotationAge
}

// OlderThan returns the items whose age exceeds d.
func OlderThan(items []credential.Item, d time.Duration, now time.Time) []credential.Item {
	var out []credential.Item
	for _, item := range items {
		if item.Age(now) > d {
			out = append(out, item)
		}
	}
	return out
}

// AgedBetween returns the items with lo < age <= hi.
func AgedBetween(items []credential.Item, lo, hi time.Duration, now time.Time) []credential.Item {
	var out []credential.Item
	for _, item := range items {
		if age := item.Age(now); age > lo && age <= hi {
			out = append(out, item)
		}
	}
	return out
}

// WeakerThan returns the items whose raw entropy is below bits.
func WeakerThan(items []credential.Item, bits int) []credential.Item {
	var out []credential.Item
	for _, item := range items {
		if security.CalculateEntropy(item.Password) < bits {
			out = append(out, item)
		}
	}
	return out
}

// WeakCount counts items below ListWeakEntropyBits.
func WeakCount(items []credential.Item) int {
	return len(WeakerThan(items, ListWeakEntropyBits))
}

// CalculateHealthScore returns the 0..100 hygiene score.
//
// Starting from 100 it deducts the weak fraction times 40, five points per
// reused item capped at 30, the old fraction times 20, and a flat 10 when the
// vault holds fewer than three items. An empty vault scores 100.
func CalculateHealthScore(items []credential.Item, reuse ReuseMap, now time.Time) int {
	total := len(items)
	if total == 0 {
		return 100
	}

	score := 100.0

	weak := len(WeakerThan(items, WeakEntropyBits))
	score -= float64(weak) / float64(total) * weakWeight

	if n := len(reuse); n > 0 {
		score -= float64(min(reuseMaxPenalty, n*reusePerItem))
	}

	old := len(OlderThan(items, RotationAge, now))
	score -= float64(old) / float64(total) * oldWeight

	if total < smallVaultSize {
		score -= smallVaultPenalty
	}

	return int(math.Floor(math.Max(0, math.Min(100, score))))
}
