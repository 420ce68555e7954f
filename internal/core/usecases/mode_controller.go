package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
)

// ModeState holds the single edit/view flag. The controller writes it, the
// presenter and session read it at call time.
type ModeState struct {
	mu   sync.RWMutex
	mode domain.Mode
}

// NewModeState creates a ModeState starting in mode.
func NewModeState(mode domain.Mode) *ModeState {
	if mode != domain.ModeEdit {
		mode = domain.ModeView
	}
	return &ModeState{mode: mode}
}

// Mode returns the current mode.
func (s *ModeState) Mode() domain.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Editing reports whether the map is in edit mode.
func (s *ModeState) Editing() bool {
	return s.Mode() == domain.ModeEdit
}

func (s *ModeState) set(mode domain.Mode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

// Acknowledgements shown after a mode change.
const (
	MsgEditMode = "Edit mode enabled."
	MsgViewMode = "View mode enabled."
)

// ModeController gates the create/edit/delete affordances behind ModeState.
type ModeController struct {
	state     *ModeState
	clicks    ports.ClickSource
	notifier  ports.Notifier
	publisher ports.EventPublisher

	mu       sync.Mutex
	onCreate ports.ClickHandler
	onToggle func(ctx context.Context, mode domain.Mode)
}

// NewModeController creates a ModeController. notifier and publisher may be nil.
func NewModeController(state *ModeState, clicks ports.ClickSource, notifier ports.Notifier, publisher ports.EventPublisher) *ModeController {
	return &ModeController{state: state, clicks: clicks, notifier: notifier, publisher: publisher}
}

// State returns the mode flag shared with the presenter.
func (c *ModeController) State() *ModeState { return c.state }

// Mode returns the current mode.
func (c *ModeController) Mode() domain.Mode { return c.state.Mode() }

// SetCreateHandler sets the click-to-create handler attached in edit mode.
func (c *ModeController) SetCreateHandler(h ports.ClickHandler) {
	c.mu.Lock()
	c.onCreate = h
	c.mu.Unlock()
}

// OnToggle registers fn to run after every mode change.
func (c *ModeController) OnToggle(fn func(ctx context.Context, mode domain.Mode)) {
	c.mu.Lock()
	c.onToggle = fn
	c.mu.Unlock()
}

// SetMode switches between edit and view mode, attaching or detaching the
// click-to-create handler, and acknowledges the new mode to the user.
func (c *ModeController) SetMode(ctx context.Context, edit bool) {
	c.mu.Lock()
	mode := domain.ModeFor(edit)
	c.state.set(mode)

	msg := MsgViewMode
	if edit {
		if c.onCreate != nil {
			c.clicks.OnClick(c.onCreate)
		}
		msg = MsgEditMode
	} else {
		c.clicks.OffClick()
	}
	toggle := c.onToggle
	c.mu.Unlock()

	slog.InfoContext(ctx, "mode changed", "mode", mode)
	if c.notifier != nil {
		if err := c.notifier.Notify(ctx, msg); err != nil {
			slog.WarnContext(ctx, "mode acknowledgement failed", "error", err)
		}
	}
	publish(ctx, c.publisher, domain.MapEvent{Type: domain.EventModeChanged, Mode: mode})

	if toggle != nil {
		toggle(ctx, mode)
	}
}
