// Package store provides the persistent and in-memory key-value backends
// the config resolver runs against. Both expose the same associative
// contract: multi-key reads where absent keys are simply missing from the
// result, and multi-key writes applied as a unit.
package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const defaultBucket = "confcache"

// Bolt is a persistent store backed by a single-file bbolt database. All
// keys of one call share a transaction, so a reader never observes a
// half-applied Set. Safe for concurrent use.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

// BoltOptions tunes OpenBolt. The zero value is usable.
type BoltOptions struct {
	// Bucket overrides the bucket name.
	Bucket string
}

// OpenBolt initializes or opens a Bolt store at the given path. The parent
// directory is created if it does not exist; bbolt alone would only create
// the file.
func OpenBolt(path string, opts BoltOptions) (*Bolt, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create store directory %s", dir)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open store %s", path)
	}
	bucket := []byte(defaultBucket)
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create bucket")
	}
	return &Bolt{db: db, bucket: bucket}, nil
}

// Close closes the underlying database.
func (s *Bolt) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get reads the requested keys in one view transaction. Values are copied
// out of the transaction and safe to retain.
func (s *Bolt) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, k := range keys {
			if v := b.Get([]byte(k)); v != nil {
				out[k] = append([]byte(nil), v...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "store read")
	}
	return out, nil
}

// Set writes all entries in one update transaction.
func (s *Bolt) Set(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for k, v := range entries {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "store write")
}

// Delete removes the given keys in one update transaction. Missing keys are
// not an error.
func (s *Bolt) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "store delete")
}
