package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/forest6511/hygienectl/pkg/store"
)

// fakeClock returns a clock that advances one second per call.
func fakeClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(time.Second)
		return now
	}
}

func newTestLogger(t *testing.T) (*Logger, store.Store) {
	t.Helper()
	s := store.NewMemory()
	l := NewLogger(s, fakeClock(time.Date(2025, 3, 14, 15, 9, 26, 0, time.Local)))

	masterKey := make([]byte, 32)
	for i := range masterKey {
		masterKey[i] = byte(i)
	}
	if err := l.SetHMACKey(context.Background(), masterKey); err != nil {
		t.Fatalf("SetHMACKey failed: %v", err)
	}
	return l, s
}

func TestAddLogWithoutKey(t *testing.T) {
	l := NewLogger(store.NewMemory(), nil)

	err := l.AddLog(context.Background(), TypeCreate, "Added password for Gmail")
	if !errors.Is(err, ErrNoKey) {
		t.Errorf("AddLog() error = %v, want %v", err, ErrNoKey)
	}
}

func TestAddLog(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLogger(t)

	if err := l.AddLog(ctx, TypeCreate, "Added password for Gmail"); err != nil {
		t.Fatalf("AddLog failed: %v", err)
	}

	records, err := s.GetAll(ctx, store.CollectionAudit)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	var event Event
	if err := json.Unmarshal(records[0].Value, &event); err != nil {
		t.Fatalf("failed to parse record: %v", err)
	}

	if event.Type != TypeCreate {
		t.Errorf("expected type %s, got %s", TypeCreate, event.Type)
	}
	if event.Msg != "Added password for Gmail" {
		t.Errorf("unexpected msg %q", event.Msg)
	}
	if event.TimeString != "3:09:26 PM - 3/14/2025" {
		t.Errorf("unexpected timeString %q", event.TimeString)
	}
	if event.Chain.Sequence != 1 {
		t.Errorf("expected sequence 1, got %d", event.Chain.Sequence)
	}
	if event.Chain.PrevHash != "genesis" {
		t.Errorf("expected prevHash 'genesis', got %s", event.Chain.PrevHash)
	}
	if event.Chain.HMAC == "" {
		t.Error("expected non-empty HMAC")
	}
}

func TestEventsNewestFirst(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLogger(t)

	msgs := []string{"first", "second", "third"}
	for _, m := range msgs {
		if err := l.AddLog(ctx, TypeCreate, m); err != nil {
			t.Fatalf("AddLog failed: %v", err)
		}
	}

	events, err := l.Events(ctx)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, want := range []string{"third", "second", "first"} {
		if events[i].Msg != want {
			t.Errorf("events[%d].Msg = %q, want %q", i, events[i].Msg, want)
		}
	}
}

func TestEventsSameMillisecond(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)
	l := NewLogger(s, func() time.Time { return fixed })
	if err := l.SetHMACKey(ctx, make([]byte, 32)); err != nil {
		t.Fatalf("SetHMACKey failed: %v", err)
	}

	for _, m := range []string{"a", "b"} {
		if err := l.AddLog(ctx, TypeWarning, m); err != nil {
			t.Fatalf("AddLog failed: %v", err)
		}
	}

	events, err := l.Events(ctx)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if events[0].Msg != "b" {
		t.Errorf("events[0].Msg = %q, want b", events[0].Msg)
	}
}

func TestListEventsLimitAndSince(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLogger(t)

	for i := 0; i < 5; i++ {
		if err := l.AddLog(ctx, TypeCreate, "event"); err != nil {
			t.Fatalf("AddLog failed: %v", err)
		}
	}

	events, err := l.ListEvents(ctx, 2, time.Time{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}

	all, _ := l.Events(ctx)
	since := all[2].Time()
	events, err = l.ListEvents(ctx, 0, since)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events after %v, got %d", since, len(events))
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLogger(t)

	for i := 0; i < 3; i++ {
		if err := l.AddLog(ctx, TypeCreate, "event"); err != nil {
			t.Fatalf("AddLog failed: %v", err)
		}
	}
	if err := l.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	events, err := l.Events(ctx)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event after clear, got %d", len(events))
	}
	if events[0].Type != TypeWarning || events[0].Msg != "Audit log cleared by user" {
		t.Errorf("unexpected event after clear: %+v", events[0])
	}

	result, err := l.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("chain invalid after clear: %v", result.Errors)
	}
}

func TestChainIntegrity(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLogger(t)

	for i := 0; i < 5; i++ {
		if err := l.AddLog(ctx, TypeCreate, "event"); err != nil {
			t.Fatalf("AddLog failed on iteration %d: %v", i, err)
		}
	}

	result, err := l.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected valid chain, got errors: %v", result.Errors)
	}
	if result.RecordsTotal != 5 {
		t.Errorf("expected 5 records, got %d", result.RecordsTotal)
	}
}

func TestTamperDetection(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLogger(t)

	for i := 0; i < 3; i++ {
		if err := l.AddLog(ctx, TypeCreate, "event"); err != nil {
			t.Fatalf("AddLog failed: %v", err)
		}
	}

	records, _ := s.GetAll(ctx, store.CollectionAudit)
	var event Event
	if err := json.Unmarshal(records[1].Value, &event); err != nil {
		t.Fatalf("failed to parse record: %v", err)
	}
	event.Msg = "Deleted password for Bank"
	data, _ := json.Marshal(event)
	if err := s.Put(ctx, store.CollectionAudit, records[1].Key, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	result, err := l.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.Valid {
		t.Error("expected tampered chain to be invalid")
	}
}

func TestDeletedRecordDetected(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLogger(t)

	for i := 0; i < 3; i++ {
		if err := l.AddLog(ctx, TypeCreate, "event"); err != nil {
			t.Fatalf("AddLog failed: %v", err)
		}
	}

	records, _ := s.GetAll(ctx, store.CollectionAudit)
	if err := s.Delete(ctx, store.CollectionAudit, records[1].Key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	result, err := l.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.Valid {
		t.Error("expected chain with a gap to be invalid")
	}
}

func TestChainResumesAfterRekey(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLogger(t)

	if err := l.AddLog(ctx, TypeCreate, "before"); err != nil {
		t.Fatalf("AddLog failed: %v", err)
	}
	l.ForgetKey()
	if err := l.AddLog(ctx, TypeWarning, "locked"); !errors.Is(err, ErrNoKey) {
		t.Fatalf("AddLog after ForgetKey error = %v, want %v", err, ErrNoKey)
	}

	// a fresh logger over the same store picks up the chain
	l2 := NewLogger(s, nil)
	masterKey := make([]byte, 32)
	for i := range masterKey {
		masterKey[i] = byte(i)
	}
	if err := l2.SetHMACKey(ctx, masterKey); err != nil {
		t.Fatalf("SetHMACKey failed: %v", err)
	}
	if err := l2.AddLog(ctx, TypeCreate, "after"); err != nil {
		t.Fatalf("AddLog failed: %v", err)
	}

	result, err := l2.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.Valid || result.RecordsTotal != 2 {
		t.Errorf("Verify() = %+v, want 2 valid records", result)
	}
}

func TestWrongKeyFailsVerify(t *testing.T) {
	ctx := context.Background()
	l, s := newTestLogger(t)

	if err := l.AddLog(ctx, TypeCreate, "event"); err != nil {
		t.Fatalf("AddLog failed: %v", err)
	}

	other := NewLogger(s, nil)
	wrongKey := make([]byte, 32)
	wrongKey[0] = 0xFF
	if err := other.SetHMACKey(ctx, wrongKey); err != nil {
		t.Fatalf("SetHMACKey failed: %v", err)
	}

	result, err := other.Verify(ctx)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.Valid {
		t.Error("expected verification with a different key to fail")
	}
}
