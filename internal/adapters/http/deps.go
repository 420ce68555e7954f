package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/pinmap/internal/adapters/mapview"
	"github.com/samirrijal/pinmap/internal/core/usecases"
)

// Dependencies holds everything the HTTP handlers need.
type Dependencies struct {
	Session *usecases.Session
	View    *mapview.View
	NATS    *nats.Conn // nil disables the WebSocket relay
	Checks  map[string]func(ctx context.Context) error
	Version string
}
