// Package timeline records at most one health snapshot per local calendar day.
package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/forest6511/hygienectl/pkg/store"
)

// DefaultTrendWindow is the number of trailing snapshots Trend compares.
const DefaultTrendWindow = 30

// Snapshot is one day's health metrics.
type Snapshot struct {
	Timestamp   int64 `json:"timestamp"` // Unix milliseconds
	HealthScore int   `json:"healthScore"`
	WeakCount   int   `json:"weakCount"`
	ReuseCount  int   `json:"reuseCount"`
}

// Time returns the snapshot timestamp in local time.
func (s Snapshot) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Recorder writes snapshots to the timeline collection.
type Recorder struct {
	store store.Store
	now   func() time.Time
	mu    sync.Mutex
}

// NewRecorder creates a recorder over s. now is the clock; nil means time.Now.
func NewRecorder(s store.Store, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{store: s, now: now}
}

// RecordSnapshot appends a snapshot unless one already exists for today.
// It reports whether a snapshot was written.
func (r *Recorder) RecordSnapshot(ctx context.Context, score, weak, reuse int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	today := startOfDay(now)

	existing, err := r.List(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range existing {
		if startOfDay(s.Time().In(now.Location())).Equal(today) {
			return false, nil
		}
	}

	data, err := json.Marshal(Snapshot{
		Timestamp:   now.UnixMilli(),
		HealthScore: score,
		WeakCount:   weak,
		ReuseCount:  reuse,
	})
	if err != nil {
		return false, fmt.Errorf("timeline: failed to marshal snapshot: %w", err)
	}
	if _, err := r.store.Append(ctx, store.CollectionTimeline, data); err != nil {
		return false, fmt.Errorf("timeline: failed to write snapshot: %w", err)
	}
	return true, nil
}

// List returns every snapshot in ascending timestamp order.
func (r *Recorder) List(ctx context.Context) ([]Snapshot, error) {
	records, err := r.store.GetAll(ctx, store.CollectionTimeline)
	if err != nil {
		return nil, fmt.Errorf("timeline: failed to read snapshots: %w", err)
	}
	snaps := make([]Snapshot, 0, len(records))
	for _, rec := range records {
		var s Snapshot
		if err := json.Unmarshal(rec.Value, &s); err != nil {
			return nil, fmt.Errorf("timeline: corrupted snapshot %s: %w", rec.Key, err)
		}
		snaps = append(snaps, s)
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Timestamp < snaps[j].Timestamp
	})
	return snaps, nil
}

// Trend returns the health score change across the last window snapshots.
// A window of 0 or less uses DefaultTrendWindow. Fewer than two snapshots
// yield 0.
func Trend(snaps []Snapshot, window int) int {
	if window <= 0 {
		window = DefaultTrendWindow
	}
	if len(snaps) > window {
		snaps = snaps[len(snaps)-window:]
	}
	if len(snaps) < 2 {
		return 0
	}
	return snaps[len(snaps)-1].HealthScore - snaps[0].HealthScore
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
