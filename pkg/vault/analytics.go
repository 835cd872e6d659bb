package vault

import (
	"context"
	"time"

	"github.com/forest6511/hygienectl/pkg/advisor"
	"github.com/forest6511/hygienectl/pkg/audit"
	"github.com/forest6511/hygienectl/pkg/hygiene"
	"github.com/forest6511/hygienectl/pkg/timeline"
)

// View is the derived analytics for the current item set. It is rebuilt
// after every mutation and never persisted.
type View struct {
	GeneratedAt time.Time            `json:"generatedAt"`
	Items       []VaultItem          `json:"-"`
	Reuse       hygiene.ReuseMap     `json:"reuse"`
	ReuseGroups []hygiene.ReuseGroup `json:"reuseGroups"`
	Health      int                  `json:"health"`
	WeakCount   int                  `json:"weakCount"`
	Radar       hygiene.RadarMetrics `json:"radar"`
	Tips        []advisor.Tip        `json:"tips"`
	Report      advisor.Report       `json:"report"`
	Stats       hygiene.Stats        `json:"stats"`
}

// Analytics returns the analytics view, computing it if the cache is stale.
func (v *Vault) Analytics() (*View, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.session.Unlocked() {
		return nil, ErrVaultLocked
	}
	return v.viewLocked(), nil
}

func (v *Vault) viewLocked() *View {
	if v.view != nil {
		return v.view
	}

	now := v.now()
	items := make([]VaultItem, len(v.items))
	copy(items, v.items)

	groups := hygiene.FindReuseGroups(items)
	reuse := make(hygiene.ReuseMap)
	for _, g := range groups {
		for _, id := range g.IDs {
			reuse[id] = g.Count
		}
	}
	health := hygiene.CalculateHealthScore(items, reuse, now)
	in := advisor.Input{Items: items, Reuse: reuse, Health: health, Now: now}

	v.view = &View{
		GeneratedAt: now,
		Items:       items,
		Reuse:       reuse,
		ReuseGroups: groups,
		Health:      health,
		WeakCount:   hygiene.WeakCount(items),
		Radar:       hygiene.CalculateRadarMetrics(items, reuse, now),
		Tips:        advisor.SmartTips(in),
		Report:      advisor.SecurityReport(in),
		Stats:       hygiene.CalculateStats(items, reuse, health, now),
	}
	return v.view
}

// Timeline returns the recorded snapshots, oldest first.
func (v *Vault) Timeline(ctx context.Context) ([]timeline.Snapshot, error) {
	if !v.IsUnlocked() {
		return nil, ErrVaultLocked
	}
	return v.timeline.List(ctx)
}

// AuditEvents returns up to limit audit events newest first; 0 means all.
func (v *Vault) AuditEvents(ctx context.Context, limit int, since time.Time) ([]audit.Event, error) {
	if !v.IsUnlocked() {
		return nil, ErrVaultLocked
	}
	return v.audit.ListEvents(ctx, limit, since)
}

// ClearAudit empties the audit log, leaving a single warning event.
func (v *Vault) ClearAudit(ctx context.Context) error {
	if !v.IsUnlocked() {
		return ErrVaultLocked
	}
	return v.audit.Clear(ctx)
}

// VerifyAudit checks the audit chain against the current key.
func (v *Vault) VerifyAudit(ctx context.Context) (*audit.VerifyResult, error) {
	if !v.IsUnlocked() {
		return nil, ErrVaultLocked
	}
	return v.audit.Verify(ctx)
}
