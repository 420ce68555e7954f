// Package memory provides a process-local ports.BlobStore.
package memory

import (
	"context"
	"sync"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// Blobs is an in-memory ports.BlobStore.
type Blobs struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobs creates an empty store.
func NewBlobs() *Blobs {
	return &Blobs{data: make(map[string][]byte)}
}

// Get returns a copy of the value under key.
func (b *Blobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (b *Blobs) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = append([]byte(nil), value...)
	return nil
}
