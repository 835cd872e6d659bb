package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLite stores all collections in a single records table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database at path.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}

	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: failed to set pragma: %w", err)
		}
	}

	s := &SQLite{db: db}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to create tables: %w", err)
	}

	if path != ":memory:" {
		if err := os.Chmod(path, FileMode); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: failed to set database permissions: %w", err)
		}
	}
	return s, nil
}

func (s *SQLite) createTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL,
			key TEXT NOT NULL,
			value BLOB NOT NULL,
			PRIMARY KEY (collection, key)
		)
	`)
	if err != nil {
		return err
	}

	// per-collection counters for Append
	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sequences (
			collection TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)
	`)
	return err
}

func (s *SQLite) precheck(collection string) error {
	if s.db == nil {
		return ErrClosed
	}
	return checkCollection(collection)
}

// Put stores value under key, replacing any previous value.
func (s *SQLite) Put(ctx context.Context, collection, key string, value []byte) error {
	if err := s.precheck(collection); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (collection, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(collection, key) DO UPDATE SET value = excluded.value`,
		collection, key, value)
	if err != nil {
		return fmt.Errorf("store: failed to put %s/%s: %w", collection, key, err)
	}
	return nil
}

// Append stores value under the collection's next sequence number.
func (s *SQLite) Append(ctx context.Context, collection string, value []byte) (string, error) {
	if err := s.precheck(collection); err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq uint64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO sequences (collection, value) VALUES (?, 1)
		 ON CONFLICT(collection) DO UPDATE SET value = value + 1
		 RETURNING value`, collection).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("store: failed to advance sequence: %w", err)
	}

	key := sequenceKey(seq)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (collection, key, value) VALUES (?, ?, ?)`,
		collection, key, value); err != nil {
		return "", fmt.Errorf("store: failed to append to %s: %w", collection, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("store: failed to commit transaction: %w", err)
	}
	return key, nil
}

// Get returns the value stored under key.
func (s *SQLite) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := s.precheck(collection); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE collection = ? AND key = ?`,
		collection, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: failed to get %s/%s: %w", collection, key, err)
	}
	return value, nil
}

// GetAll returns every record in key order.
func (s *SQLite) GetAll(ctx context.Context, collection string) ([]Record, error) {
	if err := s.precheck(collection); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM records WHERE collection = ? ORDER BY key`, collection)
	if err != nil {
		return nil, fmt.Errorf("store: failed to read %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Key, &r.Value); err != nil {
			return nil, fmt.Errorf("store: failed to scan %s: %w", collection, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: failed to read %s: %w", collection, err)
	}
	return out, nil
}

// Delete removes key. Missing keys are ignored.
func (s *SQLite) Delete(ctx context.Context, collection, key string) error {
	if err := s.precheck(collection); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND key = ?`, collection, key); err != nil {
		return fmt.Errorf("store: failed to delete %s/%s: %w", collection, key, err)
	}
	return nil
}

// Clear removes every record in the collection. The sequence keeps counting.
func (s *SQLite) Clear(ctx context.Context, collection string) error {
	if err := s.precheck(collection); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("store: failed to clear %s: %w", collection, err)
	}
	return nil
}

// Close closes the database. Calling Close twice is safe.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
