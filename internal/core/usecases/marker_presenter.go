package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
)

// DefaultPlaceholder is shown by markers whose place has no description.
const DefaultPlaceholder = "No description"

// Questions asked during marker interaction.
const (
	QuestionAction         = "Choose an option: [1] Edit description, [2] Delete marker"
	QuestionNewDescription = "Enter a new description:"
)

// MarkerPresenter projects places onto markers and routes marker
// interaction back into the PlaceStore.
type MarkerPresenter struct {
	markers     ports.MarkerLayer
	store       *PlaceStore
	mode        *ModeState
	prompter    ports.Prompter
	publisher   ports.EventPublisher
	placeholder string

	mu       sync.Mutex
	onDelete func(ctx context.Context)
}

// NewMarkerPresenter creates a MarkerPresenter. publisher may be nil.
func NewMarkerPresenter(
	markers ports.MarkerLayer,
	store *PlaceStore,
	mode *ModeState,
	prompter ports.Prompter,
	publisher ports.EventPublisher,
	placeholder string,
) *MarkerPresenter {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return &MarkerPresenter{
		markers:     markers,
		store:       store,
		mode:        mode,
		prompter:    prompter,
		publisher:   publisher,
		placeholder: placeholder,
	}
}

// OnDelete registers fn to run after a marker deletion, typically a
// boundary recomputation.
func (p *MarkerPresenter) OnDelete(fn func(ctx context.Context)) {
	p.mu.Lock()
	p.onDelete = fn
	p.mu.Unlock()
}

// Present renders a marker for place. The marker accepts interaction only if
// the map is in edit mode right now; later mode changes do not alter it.
func (p *MarkerPresenter) Present(ctx context.Context, place domain.Place) domain.Marker {
	m := domain.Marker{
		ID:          uuid.NewString(),
		PlaceID:     place.ID,
		Lat:         place.Lat,
		Lng:         place.Lng,
		Description: p.display(place.Description),
		Interactive: p.mode.Editing(),
	}
	p.markers.AddMarker(ctx, m)
	return m
}

// PresentAll renders a marker for each place.
func (p *MarkerPresenter) PresentAll(ctx context.Context, places []domain.Place) []domain.Marker {
	out := make([]domain.Marker, 0, len(places))
	for _, place := range places {
		out = append(out, p.Present(ctx, place))
	}
	return out
}

// WithdrawAll removes every rendered marker.
func (p *MarkerPresenter) WithdrawAll(ctx context.Context) {
	for _, m := range p.markers.Markers() {
		p.markers.RemoveMarker(ctx, m.ID)
	}
}

// Activate runs the marker interaction: the user either edits the
// description or deletes the marker. Any other answer is a no-op.
func (p *MarkerPresenter) Activate(ctx context.Context, markerID string) error {
	m, ok := p.markers.Marker(markerID)
	if !ok {
		return domain.ErrMarkerNotFound
	}
	if !m.Interactive {
		return domain.ErrMarkerNotInteractive
	}

	action, ok, err := p.prompter.Ask(ctx, domain.Question{Text: QuestionAction})
	if err != nil {
		return fmt.Errorf("ask action: %w", err)
	}
	if !ok {
		return nil
	}

	switch strings.TrimSpace(action) {
	case domain.ActionEdit:
		return p.edit(ctx, m)
	case domain.ActionDelete:
		p.delete(ctx, m)
	}
	return nil
}

func (p *MarkerPresenter) edit(ctx context.Context, m domain.Marker) error {
	description, ok, err := p.prompter.Ask(ctx, domain.Question{
		Text:    QuestionNewDescription,
		Default: m.Description,
	})
	if err != nil {
		return fmt.Errorf("ask description: %w", err)
	}
	if !ok {
		return nil
	}

	p.markers.SetMarkerDescription(ctx, m.ID, p.display(description))
	if !p.store.UpdateByID(ctx, m.PlaceID, description) {
		slog.DebugContext(ctx, "edited marker has no backing place", "marker_id", m.ID, "place_id", m.PlaceID)
		return nil
	}
	if place, ok := p.store.Get(m.PlaceID); ok {
		publish(ctx, p.publisher, domain.MapEvent{Type: domain.EventPlaceUpdated, Place: &place, MarkerID: m.ID})
	}
	return nil
}

func (p *MarkerPresenter) delete(ctx context.Context, m domain.Marker) {
	event := domain.MapEvent{Type: domain.EventPlaceDeleted, MarkerID: m.ID}
	if place, ok := p.store.Get(m.PlaceID); ok {
		event.Place = &place
	}

	p.markers.RemoveMarker(ctx, m.ID)
	p.store.RemoveByID(ctx, m.PlaceID)
	publish(ctx, p.publisher, event)

	p.mu.Lock()
	onDelete := p.onDelete
	p.mu.Unlock()
	if onDelete != nil {
		onDelete(ctx)
	}
}

func (p *MarkerPresenter) display(description string) string {
	if description == "" {
		return p.placeholder
	}
	return description
}
