package ports

import (
	"context"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// BlobStore persists serialized snapshots under fixed keys.
// Get returns domain.ErrBlobNotFound for an absent key.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// ReverseGeocoder converts a coordinate into an ISO country code.
// An empty code with a nil error means the service knows no country there.
type ReverseGeocoder interface {
	CountryCode(ctx context.Context, p domain.LatLng) (string, error)
}

// BoundarySource returns the boundary geometries of a country.
type BoundarySource interface {
	Boundaries(ctx context.Context, countryCode string) ([]domain.Geometry, error)
}

// Prompter asks the user for text. ok is false when the user cancelled.
type Prompter interface {
	Ask(ctx context.Context, q domain.Question) (answer string, ok bool, err error)
}

// Notifier acknowledges state changes to the user.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// EventPublisher publishes map events to a message broker.
type EventPublisher interface {
	PublishMapEvent(ctx context.Context, event *domain.MapEvent) error
}
