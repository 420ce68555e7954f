package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/pinmap/internal/adapters/mapview"
	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/usecases"
)

type presenterEnv struct {
	view      *mapview.View
	store     *usecases.PlaceStore
	mode      *usecases.ModeState
	prompter  *mockPrompter
	publisher *mockPublisher
	presenter *usecases.MarkerPresenter
}

func newPresenterEnv(mode domain.Mode, prompter *mockPrompter) *presenterEnv {
	e := &presenterEnv{
		view:      mapview.New(),
		store:     usecases.NewPlaceStore(newMockBlobs(), ""),
		mode:      usecases.NewModeState(mode),
		prompter:  prompter,
		publisher: &mockPublisher{},
	}
	e.presenter = usecases.NewMarkerPresenter(e.view, e.store, e.mode, prompter, e.publisher, "")
	return e
}

// pin stores p and presents its marker.
func (e *presenterEnv) pin(p domain.Place) domain.Marker {
	p = e.store.Add(context.Background(), p)
	return e.presenter.Present(context.Background(), p)
}

func TestMarkerPresenter_PresentUsesPlaceholder(t *testing.T) {
	e := newPresenterEnv(domain.ModeEdit, answers())

	m := e.pin(domain.Place{Lat: 1, Lng: 2})

	if m.Description != usecases.DefaultPlaceholder {
		t.Errorf("expected placeholder, got %q", m.Description)
	}
	if m.ID == "" || m.PlaceID == "" {
		t.Errorf("expected explicit IDs, got %+v", m)
	}
	if _, ok := e.view.Marker(m.ID); !ok {
		t.Error("expected marker on the layer")
	}
}

func TestMarkerPresenter_CustomPlaceholder(t *testing.T) {
	view := mapview.New()
	p := usecases.NewMarkerPresenter(view, usecases.NewPlaceStore(newMockBlobs(), ""),
		usecases.NewModeState(domain.ModeEdit), answers(), nil, "(untitled)")

	if m := p.Present(context.Background(), domain.Place{}); m.Description != "(untitled)" {
		t.Errorf("expected custom placeholder, got %q", m.Description)
	}
}

func TestMarkerPresenter_InteractivityFixedAtCreation(t *testing.T) {
	e := newPresenterEnv(domain.ModeView, answers())

	viewMarker := e.pin(paris)
	if viewMarker.Interactive {
		t.Fatal("marker created in view mode must not be interactive")
	}

	// Switch the shared flag through a controller, as the session does.
	ctrl := usecases.NewModeController(e.mode, e.view, nil, nil)
	ctrl.SetMode(context.Background(), true)

	if err := e.presenter.Activate(context.Background(), viewMarker.ID); !errors.Is(err, domain.ErrMarkerNotInteractive) {
		t.Errorf("expected ErrMarkerNotInteractive, got %v", err)
	}
	if editMarker := e.pin(london); !editMarker.Interactive {
		t.Error("marker created in edit mode must be interactive")
	}
}

func TestMarkerPresenter_ActivateUnknownMarker(t *testing.T) {
	e := newPresenterEnv(domain.ModeEdit, answers())
	if err := e.presenter.Activate(context.Background(), "missing"); !errors.Is(err, domain.ErrMarkerNotFound) {
		t.Errorf("expected ErrMarkerNotFound, got %v", err)
	}
}

func TestMarkerPresenter_EditDescription(t *testing.T) {
	e := newPresenterEnv(domain.ModeEdit, answers(domain.ActionEdit, "Big Ben"))
	m := e.pin(london)

	if err := e.presenter.Activate(context.Background(), m.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := e.view.Marker(m.ID)
	if got.Description != "Big Ben" {
		t.Errorf("expected marker text updated, got %q", got.Description)
	}
	place, _ := e.store.Get(m.PlaceID)
	if place.Description != "Big Ben" {
		t.Errorf("expected place updated, got %q", place.Description)
	}
	if len(e.prompter.asked) != 2 || e.prompter.asked[1].Default != "London" {
		t.Errorf("expected the current description as default, got %+v", e.prompter.asked)
	}
	if types := e.publisher.types(); len(types) != 1 || types[0] != domain.EventPlaceUpdated {
		t.Errorf("expected place.updated, got %v", types)
	}
}

func TestMarkerPresenter_EditToEmptyShowsPlaceholder(t *testing.T) {
	e := newPresenterEnv(domain.ModeEdit, answers(domain.ActionEdit, ""))
	m := e.pin(london)

	if err := e.presenter.Activate(context.Background(), m.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := e.view.Marker(m.ID)
	if got.Description != usecases.DefaultPlaceholder {
		t.Errorf("expected placeholder, got %q", got.Description)
	}
	if place, _ := e.store.Get(m.PlaceID); place.Description != "" {
		t.Errorf("expected empty stored description, got %q", place.Description)
	}
}

func TestMarkerPresenter_EditPlaceholderDefault(t *testing.T) {
	e := newPresenterEnv(domain.ModeEdit, answers(domain.ActionEdit))
	m := e.pin(domain.Place{Lat: 1, Lng: 1})

	if err := e.presenter.Activate(context.Background(), m.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.prompter.asked[1].Default != usecases.DefaultPlaceholder {
		t.Errorf("expected placeholder offered as default, got %q", e.prompter.asked[1].Default)
	}
}

func TestMarkerPresenter_EditCancelled(t *testing.T) {
	e := newPresenterEnv(domain.ModeEdit, answers(domain.ActionEdit))
	m := e.pin(london)

	if err := e.presenter.Activate(context.Background(), m.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if place, _ := e.store.Get(m.PlaceID); place.Description != "London" {
		t.Errorf("expected description unchanged, got %q", place.Description)
	}
}

func TestMarkerPresenter_Delete(t *testing.T) {
	e := newPresenterEnv(domain.ModeEdit, answers(domain.ActionDelete))
	m := e.pin(london)
	keep := e.pin(paris)

	deleted := 0
	e.presenter.OnDelete(func(ctx context.Context) { deleted++ })

	if err := e.presenter.Activate(context.Background(), m.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := e.view.Marker(m.ID); ok {
		t.Error("expected marker removed")
	}
	if _, ok := e.store.Get(m.PlaceID); ok {
		t.Error("expected place removed")
	}
	if _, ok := e.store.Get(keep.PlaceID); !ok {
		t.Error("expected other place kept")
	}
	if deleted != 1 {
		t.Errorf("expected delete hook once, got %d", deleted)
	}
	if types := e.publisher.types(); len(types) != 1 || types[0] != domain.EventPlaceDeleted {
		t.Errorf("expected place.deleted, got %v", types)
	}
	if ev := e.publisher.events[0]; ev.Place == nil || ev.Place.ID != m.PlaceID {
		t.Errorf("expected deleted place on the event, got %+v", ev.Place)
	}
}

func TestMarkerPresenter_DeleteWithoutBackingPlace(t *testing.T) {
	e := newPresenterEnv(domain.ModeEdit, answers(domain.ActionDelete))
	m := e.presenter.Present(context.Background(), domain.Place{ID: "gone", Lat: 1, Lng: 2})

	if err := e.presenter.Activate(context.Background(), m.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := e.view.Marker(m.ID); ok {
		t.Error("expected marker removed")
	}
	if len(e.publisher.events) != 1 {
		t.Fatalf("expected one event, got %v", e.publisher.types())
	}
	if ev := e.publisher.events[0]; ev.Place != nil || ev.MarkerID != m.ID {
		t.Errorf("expected marker-only place.deleted, got %+v", ev)
	}
}

func TestMarkerPresenter_DeleteKeepsDuplicateAtSameSpot(t *testing.T) {
	e := newPresenterEnv(domain.ModeEdit, answers(domain.ActionDelete))
	first := e.pin(london)
	second := e.pin(london)

	if err := e.presenter.Activate(context.Background(), first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := e.store.Get(second.PlaceID); !ok {
		t.Error("deleting one marker must not drop a duplicate place")
	}
}

func TestMarkerPresenter_OtherAnswersAreNoop(t *testing.T) {
	for name, prompter := range map[string]*mockPrompter{
		"cancelled": answers(),
		"unknown":   answers("3"),
		"blank":     answers(""),
	} {
		t.Run(name, func(t *testing.T) {
			e := newPresenterEnv(domain.ModeEdit, prompter)
			m := e.pin(london)

			if err := e.presenter.Activate(context.Background(), m.ID); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(e.store.List()) != 1 || len(e.view.Markers()) != 1 {
				t.Error("expected nothing to change")
			}
			if len(e.publisher.types()) != 0 {
				t.Errorf("expected no events, got %v", e.publisher.types())
			}
		})
	}
}

func TestMarkerPresenter_PromptError(t *testing.T) {
	prompter := &mockPrompter{askFn: func(ctx context.Context, q domain.Question) (string, bool, error) {
		return "", false, errPromptBroken
	}}
	e := newPresenterEnv(domain.ModeEdit, prompter)
	m := e.pin(london)

	if err := e.presenter.Activate(context.Background(), m.ID); !errors.Is(err, errPromptBroken) {
		t.Errorf("expected prompt error, got %v", err)
	}
}

func TestMarkerPresenter_WithdrawAll(t *testing.T) {
	e := newPresenterEnv(domain.ModeEdit, answers())
	e.pin(london)
	e.pin(paris)

	e.presenter.WithdrawAll(context.Background())

	if len(e.view.Markers()) != 0 {
		t.Errorf("expected no markers, got %d", len(e.view.Markers()))
	}
	if len(e.store.List()) != 2 {
		t.Error("withdrawing markers must not touch places")
	}
}
