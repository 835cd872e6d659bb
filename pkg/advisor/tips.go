package advisor

import (
	"fmt"

	"github.com/forest6511/hygienectl/pkg/hygiene"
)

// TipType is the visual weight of a tip.
type TipType string

const (
	TipDanger  TipType = "danger"
	TipWarning TipType = "warning"
	TipInfo    TipType = "info"
	TipSuccess TipType = "success"
)

const (
	// tipWeakEntropyBits is stricter than the health score threshold.
	tipWeakEntropyBits = 40
	criticalHealth     = 50
)

// Tip is one piece of advice.
type Tip struct {
	Type  TipType `json:"type"`
	Title string  `json:"title"`
	Msg   string  `json:"msg"`
}

type tipRule struct {
	name  string
	check func(Input) (Tip, bool)
}

var tipRules = []tipRule{
	{"reuse", reuseTip},
	{"ancient", ancientTip},
	{"health", healthTip},
	{"weak", weakTip},
	{"rotation", rotationTip},
}

// SmartTips evaluates every tip rule in order and returns the tips that fired.
// When no rule fires a single success tip is returned.
func SmartTips(in Input) []Tip {
	var tips []Tip
	for _, r := range tipRules {
		if tip, ok := r.check(in); ok {
			tips = append(tips, tip)
		}
	}
	if len(tips) == 0 {
		tips = append(tips, Tip{
			Type:  TipSuccess,
			Title: "Great Job!",
			Msg:   "Your password hygiene is excellent. Keep it up!",
		})
	}
	return tips
}

func reuseTip(in Input) (Tip, bool) {
	n := len(in.Reuse)
	if n == 0 {
		return Tip{}, false
	}
	title := fmt.Sprintf("%d Reused Passwords", n)
	if n == 1 {
		title = "Reuse Detected"
	}
	return Tip{
		Type:  TipDanger,
		Title: title,
		Msg:   fmt.Sprintf("You have %d accounts sharing passwords. One breach could expose them all.", n),
	}, true
}

func ancientTip(in Input) (Tip, bool) {
	n := len(hygiene.OlderThan(in.Items, hygiene.AncientAge, in.Now))
	if n == 0 {
		return Tip{}, false
	}
	return Tip{
		Type:  TipDanger,
		Title: "Ancient Passwords Detected",
		Msg:   fmt.Sprintf("%d passwords are over a year old. Rotate them immediately.", n),
	}, true
}

func healthTip(in Input) (Tip, bool) {
	if in.Health >= criticalHealth {
		return Tip{}, false
	}
	return Tip{
		Type:  TipWarning,
		Title: "Weak Overall Hygiene",
		Msg:   "Your vault health is critical. Prioritize updating weak passwords.",
	}, true
}

func weakTip(in Input) (Tip, bool) {
	n := len(hygiene.WeakerThan(in.Items, tipWeakEntropyBits))
	if n == 0 {
		return Tip{}, false
	}
	return Tip{
		Type:  TipWarning,
		Title: "Strengthen Weak Passwords",
		Msg:   fmt.Sprintf("%d passwords are easily crackable. Aim for > 50 bits of entropy.", n),
	}, true
}

func rotationTip(in Input) (Tip, bool) {
	n := len(hygiene.AgedBetween(in.Items, hygiene.RotationAge, hygiene.AncientAge, in.Now))
	if n == 0 {
		return Tip{}, false
	}
	return Tip{
		Type:  TipInfo,
		Title: "Rotation Suggested",
		Msg:   fmt.Sprintf("%d passwords haven't been changed in 3 months.", n),
	}, true
}
