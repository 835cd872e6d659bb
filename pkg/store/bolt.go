package store

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// Bolt stores each collection in its own bucket.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) a bbolt database at path and ensures every
// collection bucket exists.
func OpenBolt(ctx context.Context, path string) (*Bolt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, FileMode, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: failed to open boltdb: %w", err)
	}

	b := &Bolt{db: db}
	if err := b.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to initialize buckets: %w", err)
	}
	return b, nil
}

func (b *Bolt) initBuckets() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		for _, c := range Collections {
			if _, err := tx.CreateBucketIfNotExists([]byte(c)); err != nil {
				return fmt.Errorf("create %s bucket: %w", c, err)
			}
		}
		return nil
	})
}

func (b *Bolt) precheck(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.db == nil {
		return ErrClosed
	}
	return checkCollection(collection)
}

// Put stores value under key, replacing any previous value.
func (b *Bolt) Put(ctx context.Context, collection, key string, value []byte) error {
	if err := b.precheck(ctx, collection); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(collection)).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("store: failed to put %s/%s: %w", collection, key, err)
	}
	return nil
}

// Append stores value under the bucket's next sequence number.
func (b *Bolt) Append(ctx context.Context, collection string, value []byte) (string, error) {
	if err := b.precheck(ctx, collection); err != nil {
		return "", err
	}
	var key string
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(collection))
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		key = sequenceKey(seq)
		return bkt.Put([]byte(key), value)
	})
	if err != nil {
		return "", fmt.Errorf("store: failed to append to %s: %w", collection, err)
	}
	return key, nil
}

// Get returns a copy of the value stored under key.
func (b *Bolt) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := b.precheck(ctx, collection); err != nil {
		return nil, err
	}
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(collection)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// bbolt values are only valid for the life of the transaction
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetAll returns every record in key order.
func (b *Bolt) GetAll(ctx context.Context, collection string) ([]Record, error) {
	if err := b.precheck(ctx, collection); err != nil {
		return nil, err
	}
	var out []Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(collection)).ForEach(func(k, v []byte) error {
			out = append(out, Record{Key: string(k), Value: append([]byte(nil), v...)})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to read %s: %w", collection, err)
	}
	return out, nil
}

// Delete removes key. Missing keys are ignored.
func (b *Bolt) Delete(ctx context.Context, collection, key string) error {
	if err := b.precheck(ctx, collection); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(collection)).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("store: failed to delete %s/%s: %w", collection, key, err)
	}
	return nil
}

// Clear removes every record in the collection. The sequence keeps counting.
func (b *Bolt) Clear(ctx context.Context, collection string) error {
	if err := b.precheck(ctx, collection); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(collection))
		seq := bkt.Sequence()
		if err := tx.DeleteBucket([]byte(collection)); err != nil {
			return err
		}
		nb, err := tx.CreateBucket([]byte(collection))
		if err != nil {
			return err
		}
		return nb.SetSequence(seq)
	})
	if err != nil {
		return fmt.Errorf("store: failed to clear %s: %w", collection, err)
	}
	return nil
}

// Close closes the database. Calling Close twice is safe.
func (b *Bolt) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
