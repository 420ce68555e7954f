// Package mapview is the in-process map widget: it keeps the rendered markers
// and country overlays, dispatches clicks, and announces changes.
package mapview

import (
	"context"
	"sync"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
)

// View implements ports.MarkerLayer, ports.OverlayLayer and ports.ClickSource.
type View struct {
	mu       sync.RWMutex
	markers  []domain.Marker
	overlays []domain.CountryOverlay
	onClick  ports.ClickHandler
}

// New creates an empty View.
func New() *View {
	return &View{}
}

// AddMarker renders m.
func (v *View) AddMarker(_ context.Context, m domain.Marker) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markers = append(v.markers, m)
}

// RemoveMarker removes the marker with the given ID.
func (v *View) RemoveMarker(_ context.Context, id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, m := range v.markers {
		if m.ID == id {
			v.markers = append(v.markers[:i], v.markers[i+1:]...)
			return true
		}
	}
	return false
}

// SetMarkerDescription updates the text shown by a marker.
func (v *View) SetMarkerDescription(_ context.Context, id, description string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.markers {
		if v.markers[i].ID == id {
			v.markers[i].Description = description
			return true
		}
	}
	return false
}

// Marker returns the marker with the given ID.
func (v *View) Marker(id string) (domain.Marker, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, m := range v.markers {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Marker{}, false
}

// MarkerForPlace returns the marker rendered for a place.
func (v *View) MarkerForPlace(placeID string) (domain.Marker, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, m := range v.markers {
		if m.PlaceID == placeID {
			return m, true
		}
	}
	return domain.Marker{}, false
}

// Markers returns the rendered markers in creation order.
func (v *View) Markers() []domain.Marker {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]domain.Marker, len(v.markers))
	copy(out, v.markers)
	return out
}

// ClearOverlays empties the overlay layer.
func (v *View) ClearOverlays(_ context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.overlays = nil
}

// AddOverlay renders o on the overlay layer.
func (v *View) AddOverlay(_ context.Context, o domain.CountryOverlay) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.overlays = append(v.overlays, o)
}

// Overlays returns the rendered overlays.
func (v *View) Overlays() []domain.CountryOverlay {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]domain.CountryOverlay, len(v.overlays))
	copy(out, v.overlays)
	return out
}

// OnClick attaches h, replacing any previous handler.
func (v *View) OnClick(h ports.ClickHandler) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onClick = h
}

// OffClick detaches the click handler.
func (v *View) OffClick() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onClick = nil
}

// Clickable reports whether a click handler is attached.
func (v *View) Clickable() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.onClick != nil
}

// Click delivers a map click to the attached handler. It returns
// domain.ErrClickIgnored when no handler is attached.
func (v *View) Click(ctx context.Context, at domain.LatLng) (*domain.Place, error) {
	v.mu.RLock()
	h := v.onClick
	v.mu.RUnlock()
	if h == nil {
		return nil, domain.ErrClickIgnored
	}
	return h(ctx, at)
}
