// Package bolt stores blobs in a local bbolt database file.
package bolt

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

var bucket = []byte("blobs")

// Blobs implements ports.BlobStore on a bbolt file.
type Blobs struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Blobs, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Blobs{db: db}, nil
}

// Get returns the value under key.
func (b *Blobs) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucket).Get([]byte(key))
		if v == nil {
			return domain.ErrBlobNotFound
		}
		// v is only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

// Set stores value under key.
func (b *Blobs) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), value)
	})
}

// Ping reports whether the database is open.
func (b *Blobs) Ping(_ context.Context) error {
	return b.db.View(func(tx *bbolt.Tx) error { return nil })
}

// Close releases the file lock.
func (b *Blobs) Close() error {
	return b.db.Close()
}
