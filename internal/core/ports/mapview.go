package ports

import (
	"context"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// MarkerLayer holds the rendered markers.
type MarkerLayer interface {
	AddMarker(ctx context.Context, m domain.Marker)
	RemoveMarker(ctx context.Context, id string) bool
	SetMarkerDescription(ctx context.Context, id, description string) bool
	Marker(id string) (domain.Marker, bool)
	Markers() []domain.Marker
}

// OverlayLayer is the dedicated layer for country overlays.
type OverlayLayer interface {
	ClearOverlays(ctx context.Context)
	AddOverlay(ctx context.Context, o domain.CountryOverlay)
	Overlays() []domain.CountryOverlay
}

// ClickHandler reacts to a click on the map. created is non-nil when the
// click produced a new place.
type ClickHandler func(ctx context.Context, at domain.LatLng) (created *domain.Place, err error)

// ClickSource delivers map clicks to at most one attached handler.
type ClickSource interface {
	OnClick(h ClickHandler)
	OffClick()
}
