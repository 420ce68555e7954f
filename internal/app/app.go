// Package app assembles a map session from configuration. It is shared by
// the API server and the pinctl CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/pinmap/internal/adapters/bolt"
	"github.com/samirrijal/pinmap/internal/adapters/mapview"
	"github.com/samirrijal/pinmap/internal/adapters/memory"
	natsadapter "github.com/samirrijal/pinmap/internal/adapters/nats"
	"github.com/samirrijal/pinmap/internal/adapters/nominatim"
	"github.com/samirrijal/pinmap/internal/adapters/postgres"
	"github.com/samirrijal/pinmap/internal/adapters/valkey"
	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
	"github.com/samirrijal/pinmap/internal/core/usecases"
	"github.com/samirrijal/pinmap/internal/pkg/config"
)

// Check reports whether one dependency is ready.
type Check func(ctx context.Context) error

// App is a fully wired map session and its infrastructure.
type App struct {
	Config    *config.Config
	View      *mapview.View
	Session   *usecases.Session
	Publisher *natsadapter.Publisher // nil when NATS is disabled
	Checks    map[string]Check

	closers []func()
}

// Options selects the user-facing collaborators.
type Options struct {
	Prompter ports.Prompter
	Notifier ports.Notifier
	// Geocoder overrides the Nominatim client, mainly for tests.
	Geocoder interface {
		ports.ReverseGeocoder
		ports.BoundarySource
	}
	// Blobs overrides the configured storage driver.
	Blobs ports.BlobStore
}

// Build wires storage, geocoder, event bus and the session components. The
// session is not started.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, View: mapview.New(), Checks: make(map[string]Check)}

	blobs := opts.Blobs
	if blobs == nil {
		var err error
		blobs, err = a.openBlobs(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	geo := opts.Geocoder
	if geo == nil {
		client, err := nominatim.New(nominatim.Config{
			BaseURL:       cfg.Geocoder.BaseURL,
			UserAgent:     cfg.Geocoder.UserAgent,
			Email:         cfg.Geocoder.Email,
			RatePerSecond: cfg.Geocoder.RatePerSecond,
			Burst:         cfg.Geocoder.Burst,
			Timeout:       cfg.Geocoder.Timeout(),
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("geocoder: %w", err)
		}
		geo = client
	}

	// Keep the interface nil when NATS is off so publishers skip cleanly.
	var publisher ports.EventPublisher
	if cfg.NATS.URL != "" {
		p, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			a.Publisher = p
			publisher = p
			a.closers = append(a.closers, p.Close)
			a.Checks["nats"] = func(context.Context) error {
				if !p.Conn().IsConnected() {
					return fmt.Errorf("disconnected")
				}
				return nil
			}
		}
	}

	state := usecases.NewModeState(domain.ModeForOrigin(cfg.Mode.Origin))
	store := usecases.NewPlaceStore(blobs, cfg.Storage.Key)
	modes := usecases.NewModeController(state, a.View, opts.Notifier, publisher)
	presenter := usecases.NewMarkerPresenter(a.View, store, state, opts.Prompter, publisher, cfg.Map.Placeholder)
	resolver := usecases.NewBoundaryResolver(geo, geo, a.View, publisher, cfg.Resolver.Concurrency)

	a.Session = usecases.NewSession(store, presenter, resolver, modes, opts.Prompter, publisher, usecases.SessionOptions{
		InitialMode:             state.Mode(),
		RerenderMarkersOnToggle: cfg.Mode.RerenderMarkers,
	})
	return a, nil
}

func (a *App) openBlobs(ctx context.Context) (ports.BlobStore, error) {
	cfg := a.Config
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.NewBlobs(), nil
	case config.DriverBolt:
		b, err := bolt.Open(cfg.Storage.BoltPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = b.Close() })
		a.Checks["storage"] = b.Ping
		return b, nil
	case config.DriverValkey:
		b, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, b.Close)
		a.Checks["storage"] = b.Ping
		return b, nil
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.Checks["storage"] = db.Ping
		return postgres.NewBlobRepo(db), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// DefaultDrainTimeout bounds how long Close waits for background
// recomputations.
const DefaultDrainTimeout = 5 * time.Second

// Close cancels background recomputations, waits for them up to
// DefaultDrainTimeout and releases infrastructure.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultDrainTimeout)
	defer cancel()
	a.Shutdown(ctx)
}

// Shutdown is Close with the drain bounded by ctx.
func (a *App) Shutdown(ctx context.Context) {
	if a.Session != nil {
		if err := a.Session.Shutdown(ctx); err != nil {
			slog.WarnContext(ctx, "session drain incomplete", "error", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
