package valkey

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// Blobs implements ports.BlobStore using Valkey (Redis-compatible).
type Blobs struct {
	client valkey.Client
	prefix string
}

// New creates a new Valkey client. Keys are stored as prefix+key.
func New(addr, prefix string) (*Blobs, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Blobs{client: client, prefix: prefix}, nil
}

// Get retrieves a value by key.
func (b *Blobs) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := b.client.Do(ctx, b.client.B().Get().Key(b.prefix+key).Build())
	if err := cmd.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, domain.ErrBlobNotFound
		}
		return nil, err
	}
	return cmd.AsBytes()
}

// Set stores a value without expiry.
func (b *Blobs) Set(ctx context.Context, key string, value []byte) error {
	cmd := b.client.Do(ctx,
		b.client.B().Set().Key(b.prefix+key).Value(valkey.BinaryString(value)).Build(),
	)
	return cmd.Error()
}

// Ping checks connectivity.
func (b *Blobs) Ping(ctx context.Context) error {
	return b.client.Do(ctx, b.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (b *Blobs) Close() {
	b.client.Close()
}
