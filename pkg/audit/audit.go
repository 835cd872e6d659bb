// Package audit provides an append-only event journal with an HMAC chain for
// tamper detection. Events live in the store's audit collection.
package audit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/forest6511/hygienectl/pkg/store"
)

// EventType classifies an audit event.
type EventType string

// Event types
const (
	TypeCreate  EventType = "create"
	TypeDelete  EventType = "delete"
	TypeWarning EventType = "warning"
)

// TimeLayout formats Event.TimeString, e.g. "3:04:05 PM - 1/2/2006".
const TimeLayout = "3:04:05 PM - 1/2/2006"

const genesis = "genesis"

// ErrNoKey is returned when writing or verifying before SetHMACKey.
var ErrNoKey = errors.New("audit: HMAC key not set")

// Event is a single audit record.
type Event struct {
	Timestamp  int64     `json:"timestamp"` // Unix milliseconds
	Type       EventType `json:"type"`
	Msg        string    `json:"msg"`
	TimeString string    `json:"timeString"`
	Chain      Chain     `json:"chain"`
}

// Time returns the event timestamp in local time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Chain provides HMAC chain for tamper detection
type Chain struct {
	Sequence int64  `json:"seq"`  // Sequence number
	PrevHash string `json:"prev"` // Previous record HMAC
	HMAC     string `json:"hmac"` // This record's HMAC
}

// Logger appends events to the audit collection.
type Logger struct {
	store store.Store
	now   func() time.Time

	mu       sync.Mutex
	hmacKey  []byte
	sequence int64
	prevHash string
}

// NewLogger creates a logger over s. now is the clock; nil means time.Now.
func NewLogger(s store.Store, now func() time.Time) *Logger {
	if now == nil {
		now = time.Now
	}
	return &Logger{store: s, now: now, prevHash: genesis}
}

// SetHMACKey derives the chain key from the master key using HKDF-SHA256 and
// resumes the chain from the last stored event.
func (l *Logger) SetHMACKey(ctx context.Context, masterKey []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := hkdf.New(sha256.New, masterKey, nil, []byte("hygienectl-audit-v1"))
	key := make([]byte, 32)
	if _, err := r.Read(key); err != nil {
		return fmt.Errorf("audit: failed to derive HMAC key: %w", err)
	}
	l.hmacKey = key

	events, err := l.readAll(ctx)
	if err != nil {
		// Not fatal; the chain restarts and Verify will report the gap
		l.sequence, l.prevHash = 0, genesis
		return nil
	}
	l.sequence, l.prevHash = 0, genesis
	if n := len(events); n > 0 {
		l.sequence = events[n-1].Chain.Sequence
		l.prevHash = events[n-1].Chain.HMAC
	}
	return nil
}

// ForgetKey wipes the chain key. Writes fail with ErrNoKey until the next SetHMACKey.
func (l *Logger) ForgetKey() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.hmacKey {
		l.hmacKey[i] = 0
	}
	l.hmacKey = nil
}

// AddLog appends an event stamped with the current time.
func (l *Logger) AddLog(ctx context.Context, typ EventType, msg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addLocked(ctx, typ, msg)
}

func (l *Logger) addLocked(ctx context.Context, typ EventType, msg string) error {
	if l.hmacKey == nil {
		return ErrNoKey
	}

	now := l.now()
	event := Event{
		Timestamp:  now.UnixMilli(),
		Type:       typ,
		Msg:        msg,
		TimeString: now.Format(TimeLayout),
		Chain: Chain{
			Sequence: l.sequence + 1,
			PrevHash: l.prevHash,
		},
	}
	event.Chain.HMAC = l.sign(&event)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: failed to marshal event: %w", err)
	}
	if _, err := l.store.Append(ctx, store.CollectionAudit, data); err != nil {
		return fmt.Errorf("audit: failed to write event: %w", err)
	}

	l.sequence = event.Chain.Sequence
	l.prevHash = event.Chain.HMAC
	return nil
}

// buildRecordData creates the data to be HMACed
func buildRecordData(e *Event) []byte {
	return []byte(fmt.Sprintf("%d|%s|%s|%s|%d|%s",
		e.Timestamp, e.Type, e.Msg, e.TimeString, e.Chain.Sequence, e.Chain.PrevHash))
}

func (l *Logger) sign(e *Event) string {
	mac := hmac.New(sha256.New, l.hmacKey)
	mac.Write(buildRecordData(e))
	return hex.EncodeToString(mac.Sum(nil))
}

func (l *Logger) readAll(ctx context.Context) ([]Event, error) {
	records, err := l.store.GetAll(ctx, store.CollectionAudit)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to read events: %w", err)
	}
	events := make([]Event, 0, len(records))
	for _, r := range records {
		var e Event
		if err := json.Unmarshal(r.Value, &e); err != nil {
			return nil, fmt.Errorf("audit: corrupted event %s: %w", r.Key, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// Events returns every event, newest first.
func (l *Logger) Events(ctx context.Context) ([]Event, error) {
	return l.ListEvents(ctx, 0, time.Time{})
}

// ListEvents returns events newest first.
// limit: maximum number of events to return (0 = all)
// since: only return events after this time (zero = no filter)
func (l *Logger) ListEvents(ctx context.Context, limit int, since time.Time) ([]Event, error) {
	events, err := l.readAll(ctx)
	if err != nil {
		return nil, err
	}

	if !since.IsZero() {
		filtered := events[:0]
		for _, e := range events {
			if e.Timestamp > since.UnixMilli() {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	// reverse append order first so ties keep the latest write on top
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp > events[j].Timestamp
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// Clear erases the journal and records that it was cleared.
func (l *Logger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Clear(ctx, store.CollectionAudit); err != nil {
		return fmt.Errorf("audit: failed to clear events: %w", err)
	}
	l.sequence, l.prevHash = 0, genesis
	return l.addLocked(ctx, TypeWarning, "Audit log cleared by user")
}

// VerifyResult contains the results of chain verification
type VerifyResult struct {
	Valid        bool     `json:"valid"`
	RecordsTotal int      `json:"records_total"`
	Errors       []string `json:"errors,omitempty"`
}

// Verify walks the journal in append order and checks sequence numbers,
// chain links and HMACs.
func (l *Logger) Verify(ctx context.Context) (*VerifyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hmacKey == nil {
		return nil, ErrNoKey
	}
	events, err := l.readAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Valid: true}
	expectedPrev := genesis
	var expectedSeq int64 = 1

	for i := range events {
		e := &events[i]
		result.RecordsTotal++

		if e.Chain.Sequence != expectedSeq {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"sequence gap at record %d: expected %d, got %d", i+1, expectedSeq, e.Chain.Sequence))
		}
		if e.Chain.PrevHash != expectedPrev {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"chain broken at record %d", i+1))
		}
		if !hmac.Equal([]byte(e.Chain.HMAC), []byte(l.sign(e))) {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"HMAC mismatch at record %d: possible tampering", i+1))
		}

		expectedPrev = e.Chain.HMAC
		expectedSeq = e.Chain.Sequence + 1
	}
	return result, nil
}
