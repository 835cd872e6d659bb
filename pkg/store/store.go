// Package store provides the named-collection key/value storage that backs a vault.
//
// Four collections exist: vault (encrypted records keyed by item id), meta
// (salt and verifier), audit and timeline (auto-keyed, append-only).
// Backends: bbolt (default), SQLite and an in-memory map for tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Collection names.
const (
	CollectionVault    = "vault"
	CollectionMeta     = "meta"
	CollectionAudit    = "audit"
	CollectionTimeline = "timeline"
)

// Collections lists every collection a backend must provide.
var Collections = []string{CollectionVault, CollectionMeta, CollectionAudit, CollectionTimeline}

// Driver names accepted by Open.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// File permissions for on-disk backends.
const (
	FileMode = 0600 // Owner read/write only
	DirMode  = 0700 // Owner read/write/execute only
)

// Errors
var (
	ErrNotFound          = errors.New("store: key not found")
	ErrUnknownCollection = errors.New("store: unknown collection")
	ErrUnknownDriver     = errors.New("store: unknown driver")
	ErrClosed            = errors.New("store: store is closed")
)

// Record is a single key/value pair returned by GetAll.
type Record struct {
	Key   string
	Value []byte
}

// Store is the storage collaborator used by the vault.
//
// Values are opaque bytes. GetAll returns records in ascending key order.
// Append assigns a monotonically increasing key, so append order and key
// order agree. Delete of a missing key is not an error.
type Store interface {
	Put(ctx context.Context, collection, key string, value []byte) error
	Append(ctx context.Context, collection string, value []byte) (string, error)
	Get(ctx context.Context, collection, key string) ([]byte, error)
	GetAll(ctx context.Context, collection string) ([]Record, error)
	Delete(ctx context.Context, collection, key string) error
	Clear(ctx context.Context, collection string) error
	Close() error
}

// Config selects and locates a backend.
type Config struct {
	Driver string // bolt, sqlite or memory; empty means bolt
	Path   string // database file for on-disk drivers
}

// Open creates the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverBolt:
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		return OpenBolt(ctx, cfg.Path)
	case DriverSQLite:
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		return OpenSQLite(ctx, cfg.Path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func ensureDir(path string) error {
	if path == "" {
		return errors.New("store: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return fmt.Errorf("store: failed to create directory: %w", err)
	}
	return nil
}

func checkCollection(collection string) error {
	for _, c := range Collections {
		if c == collection {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
}

// sequenceKey formats an auto-assigned key so lexical order matches numeric order.
func sequenceKey(n uint64) string {
	return fmt.Sprintf("%020d", n)
}

// CheckPermissions returns a warning for each of dir and file that is
// readable or writable by group or other. Missing paths are skipped.
func CheckPermissions(dir, file string) []string {
	var warnings []string
	if info, err := os.Stat(dir); err == nil {
		if perm := info.Mode().Perm(); perm&0077 != 0 {
			warnings = append(warnings, fmt.Sprintf("vault directory has insecure permissions %04o (expected %04o)", perm, DirMode))
		}
	}
	if info, err := os.Stat(file); err == nil {
		if perm := info.Mode().Perm(); perm&0077 != 0 {
			warnings = append(warnings, fmt.Sprintf("%s has insecure permissions %04o (expected %04o)", filepath.Base(file), perm, FileMode))
		}
	}
	return warnings
}
