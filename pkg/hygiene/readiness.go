package hygiene

import (
	"math"
	"time"

	"github.com/forest6511/hygienectl/pkg/credential"
	"github.com/forest6511/hygienectl/pkg/security"
)

// Progression constants.
const (
	XPPerPoint     = 50
	XPPerLevel     = 1000
	HealthyScore   = 80
	MinVaultVolume = 5
)

// CheckItem is one line of the readiness checklist.
type CheckItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Met   bool   `json:"met"`
}

// Readiness summarizes how close the vault is to good hygiene.
type Readiness struct {
	Percent   int         `json:"percent"`
	Checklist []CheckItem `json:"checklist"`
	Ready     bool        `json:"ready"`
}

// Stats is the progression view: experience, level and readiness.
type Stats struct {
	TotalXP         int       `json:"totalXP"`
	Level           int       `json:"level"`
	NextLevelXP     int       `json:"nextLevelXP"`
	ProgressInLevel int       `json:"progressInLevel"`
	ProgressPercent float64   `json:"progressPercent"`
	Readiness       Readiness `json:"readiness"`
}

// CalculateStats awards XPPerPoint experience per composition point of every
// password and evaluates the readiness checklist.
func CalculateStats(items []credential.Item, reuse ReuseMap, health int, now time.Time) Stats {
	xp := 0
	for _, item := range items {
		xp += security.CompositionPoints(item.Password) * XPPerPoint
	}

	level := 1 + xp/XPPerLevel
	progress := xp - (level-1)*XPPerLevel

	checklist := []CheckItem{
		{ID: "reuse", Label: "No Reused Passwords", Met: len(reuse) == 0},
		{ID: "weak", Label: "Vault Health > 80", Met: health >= HealthyScore},
		{ID: "old", Label: "No Old Passwords (>90d)", Met: len(OlderThan(items, RotationAge, now)) == 0},
		{ID: "volume", Label: "At least 5 Items", Met: len(items) >= MinVaultVolume},
	}
	met := 0
	for _, c := range checklist {
		if c.Met {
			met++
		}
	}
	percent := int(math.Floor(float64(met) / float64(len(checklist)) * 100))

	return Stats{
		TotalXP:         xp,
		Level:           level,
		NextLevelXP:     level * XPPerLevel,
		ProgressInLevel: progress,
		ProgressPercent: math.Min(100, math.Max(0, float64(progress)/XPPerLevel*100)),
		Readiness: Readiness{
			Percent:   percent,
			Checklist: checklist,
			Ready:     percent == 100,
		},
	}
}
