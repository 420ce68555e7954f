package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
)

// QuestionPlaceDescription is asked when the user clicks the map in edit mode.
const QuestionPlaceDescription = "Enter a description for this place:"

// SessionOptions tunes a Session.
type SessionOptions struct {
	// InitialMode is applied once by Start.
	InitialMode domain.Mode
	// RerenderMarkersOnToggle re-presents every marker after a mode change so
	// that existing markers pick up the new mode.
	RerenderMarkersOnToggle bool
}

// Session wires the place store, marker presenter, boundary resolver and
// mode controller into one map session.
type Session struct {
	store     *PlaceStore
	presenter *MarkerPresenter
	resolver  *BoundaryResolver
	modes     *ModeController
	prompter  ports.Prompter
	publisher ports.EventPublisher
	opts      SessionOptions

	inflight sync.WaitGroup
	stopCtx  context.Context
	stop     context.CancelFunc
}

// NewSession creates a Session and registers its handlers on the components.
func NewSession(
	store *PlaceStore,
	presenter *MarkerPresenter,
	resolver *BoundaryResolver,
	modes *ModeController,
	prompter ports.Prompter,
	publisher ports.EventPublisher,
	opts SessionOptions,
) *Session {
	s := &Session{
		store:     store,
		presenter: presenter,
		resolver:  resolver,
		modes:     modes,
		prompter:  prompter,
		publisher: publisher,
		opts:      opts,
	}
	s.stopCtx, s.stop = context.WithCancel(context.Background())
	modes.SetCreateHandler(s.HandleClick)
	presenter.OnDelete(s.RefreshAsync)
	if opts.RerenderMarkersOnToggle {
		modes.OnToggle(func(ctx context.Context, _ domain.Mode) { s.rerenderMarkers(ctx) })
	}
	return s
}

func (s *Session) Store() *PlaceStore { return s.store }
func (s *Session) Presenter() *MarkerPresenter { return s.presenter }
func (s *Session) Resolver() *BoundaryResolver { return s.resolver }
func (s *Session) Modes() *ModeController { return s.modes }

// Start applies the initial mode, restores persisted places, presents their
// markers and resolves the country highlights.
func (s *Session) Start(ctx context.Context) domain.Resolution {
	s.Restore(ctx)
	return s.Refresh(ctx)
}

// StartAsync is Start with the highlight resolution left running in the
// background. Places and markers are in place when it returns.
func (s *Session) StartAsync(ctx context.Context) {
	s.Restore(ctx)
	s.RefreshAsync(ctx)
}

// Restore applies the initial mode, loads the persisted places and presents
// their markers without touching the highlights.
func (s *Session) Restore(ctx context.Context) {
	s.modes.SetMode(ctx, s.opts.InitialMode == domain.ModeEdit)

	places := s.store.Load(ctx)
	s.presenter.PresentAll(ctx, places)
	slog.InfoContext(ctx, "places restored", "count", len(places), "mode", s.modes.Mode())
}

// HandleClick is the click-to-create handler attached in edit mode. It asks
// for a description and, unless the answer is empty or cancelled, presents a
// marker, stores the place and schedules a boundary recomputation.
func (s *Session) HandleClick(ctx context.Context, at domain.LatLng) (*domain.Place, error) {
	if !s.modes.State().Editing() {
		return nil, nil
	}
	if !at.Valid() {
		return nil, domain.ErrInvalidCoordinates
	}

	description, ok, err := s.prompter.Ask(ctx, domain.Question{Text: QuestionPlaceDescription})
	if err != nil {
		return nil, fmt.Errorf("ask description: %w", err)
	}
	if !ok || description == "" {
		return nil, nil
	}

	place := domain.Place{Lat: at.Lat, Lng: at.Lng, Description: description}
	place = s.store.Add(ctx, place)
	marker := s.presenter.Present(ctx, place)
	publish(ctx, s.publisher, domain.MapEvent{Type: domain.EventPlaceCreated, Place: &place, MarkerID: marker.ID})

	s.RefreshAsync(ctx)
	return &place, nil
}

// Refresh recomputes the country highlights for the current places and
// waits for the result.
func (s *Session) Refresh(ctx context.Context) domain.Resolution {
	return s.resolver.Resolve(ctx, s.store.List())
}

// RefreshAsync recomputes the highlights in the background. The run outlives
// ctx cancellation but keeps its values (request ID, logger). Shutdown
// cancels it.
func (s *Session) RefreshAsync(ctx context.Context) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	release := context.AfterFunc(s.stopCtx, cancel)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()
		defer release()
		s.Refresh(ctx)
	}()
}

// Settle blocks until every background recomputation has finished.
func (s *Session) Settle() {
	s.inflight.Wait()
}

// Shutdown cancels the background recomputations and waits for them until
// ctx is done.
func (s *Session) Shutdown(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background refresh still running: %w", ctx.Err())
	}
}

func (s *Session) rerenderMarkers(ctx context.Context) {
	s.presenter.WithdrawAll(ctx)
	s.presenter.PresentAll(ctx, s.store.List())
}
