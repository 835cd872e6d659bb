package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a map-backed Store. Nothing is persisted.
type Memory struct {
	mu     sync.RWMutex
	data   map[string]map[string][]byte
	seq    map[string]uint64
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{
		data: make(map[string]map[string][]byte),
		seq:  make(map[string]uint64),
	}
	for _, c := range Collections {
		m.data[c] = make(map[string][]byte)
	}
	return m
}

func (m *Memory) precheck(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed {
		return ErrClosed
	}
	return checkCollection(collection)
}

// Put stores a copy of value under key.
func (m *Memory) Put(ctx context.Context, collection, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.precheck(ctx, collection); err != nil {
		return err
	}
	m.data[collection][key] = append([]byte(nil), value...)
	return nil
}

// Append stores a copy of value under the next sequence number.
func (m *Memory) Append(ctx context.Context, collection string, value []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.precheck(ctx, collection); err != nil {
		return "", err
	}
	m.seq[collection]++
	key := sequenceKey(m.seq[collection])
	m.data[collection][key] = append([]byte(nil), value...)
	return key, nil
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(ctx context.Context, collection, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.precheck(ctx, collection); err != nil {
		return nil, err
	}
	v, ok := m.data[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// GetAll returns copies of every record in key order.
func (m *Memory) GetAll(ctx context.Context, collection string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.precheck(ctx, collection); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(m.data[collection]))
	for k, v := range m.data[collection] {
		out = append(out, Record{Key: k, Value: append([]byte(nil), v...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Delete removes key. Missing keys are ignored.
func (m *Memory) Delete(ctx context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.precheck(ctx, collection); err != nil {
		return err
	}
	delete(m.data[collection], key)
	return nil
}

// Clear removes every record in the collection.
func (m *Memory) Clear(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.precheck(ctx, collection); err != nil {
		return err
	}
	m.data[collection] = make(map[string][]byte)
	return nil
}

// Close marks the store closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
