package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
)

// publish sends ev when a publisher is configured. Broker failures never
// affect the map state.
func publish(ctx context.Context, pub ports.EventPublisher, ev domain.MapEvent) {
	if pub == nil {
		return
	}
	ev.At = time.Now().UTC()
	if err := pub.PublishMapEvent(ctx, &ev); err != nil {
		slog.WarnContext(ctx, "publish map event failed", "type", ev.Type, "error", err)
	}
}
