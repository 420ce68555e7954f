package usecases

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
	"github.com/samirrijal/pinmap/internal/pkg/metrics"
	"github.com/samirrijal/pinmap/internal/pkg/telemetry"
)

// DefaultResolverConcurrency bounds in-flight geocoder requests per stage.
const DefaultResolverConcurrency = 4

// BoundaryResolver derives the countries covering a set of places and renders
// one overlay group per country into its overlay layer.
//
// Every run takes a generation token when it starts. Only a run whose token
// is still the latest may touch the layer, so a slow older run can never
// overwrite the result of a newer one.
type BoundaryResolver struct {
	geocoder    ports.ReverseGeocoder
	boundaries  ports.BoundarySource
	layer       ports.OverlayLayer
	publisher   ports.EventPublisher
	concurrency int
	tracer      trace.Tracer

	generation atomic.Uint64
	renderMu   sync.Mutex
}

// NewBoundaryResolver creates a BoundaryResolver. publisher may be nil.
func NewBoundaryResolver(
	geocoder ports.ReverseGeocoder,
	boundaries ports.BoundarySource,
	layer ports.OverlayLayer,
	publisher ports.EventPublisher,
	concurrency int,
) *BoundaryResolver {
	if concurrency <= 0 {
		concurrency = DefaultResolverConcurrency
	}
	return &BoundaryResolver{
		geocoder:    geocoder,
		boundaries:  boundaries,
		layer:       layer,
		publisher:   publisher,
		concurrency: concurrency,
		tracer:      otel.Tracer(telemetry.ScopeUsecases),
	}
}

// Generation returns the token of the most recently started run.
func (r *BoundaryResolver) Generation() uint64 {
	return r.generation.Load()
}

// Resolve rebuilds the overlay layer from places. Per-item fetch failures are
// logged and counted; they never abort the run. A cancelled or expired ctx
// only loses the lookups it interrupted: the latest run still renders the
// countries that resolved.
func (r *BoundaryResolver) Resolve(ctx context.Context, places []domain.Place) domain.Resolution {
	start := time.Now()
	gen := r.generation.Add(1)

	ctx, span := r.tracer.Start(ctx, telemetry.SpanResolve, trace.WithAttributes(
		attribute.Int64("generation", int64(gen)),
		attribute.Int("places", len(places)),
	))
	defer span.End()

	res := domain.Resolution{Generation: gen, Countries: []string{}}
	defer func() {
		res.Duration = time.Since(start)
		metrics.ResolverDuration.Observe(res.Duration.Seconds())
	}()

	if !r.clear(ctx, gen) {
		metrics.ResolverRuns.WithLabelValues("stale").Inc()
		return res
	}
	if len(places) == 0 {
		metrics.ResolverRuns.WithLabelValues("empty").Inc()
		metrics.OverlaysRendered.Set(0)
		res.Applied = true
		publish(ctx, r.publisher, domain.MapEvent{Type: domain.EventOverlaysRendered, Generation: gen})
		return res
	}

	codes, geoFailures := r.resolveCountries(ctx, places)
	overlays, boundaryFailures := r.fetchBoundaries(ctx, codes)

	res.Countries = codes
	res.Overlays = len(overlays)
	res.Failures = geoFailures + boundaryFailures

	if err := ctx.Err(); err != nil {
		// Lookups cut short count as failures; what did resolve is still drawn.
		slog.WarnContext(ctx, "boundary resolution interrupted, rendering partial result",
			"generation", gen, "countries", codes, "failures", res.Failures, "error", err)
		ctx = context.WithoutCancel(ctx)
	}

	res.Applied = r.render(ctx, gen, overlays)
	if !res.Applied {
		slog.DebugContext(ctx, "discarding stale boundary resolution",
			"generation", gen, "latest", r.generation.Load())
		metrics.ResolverRuns.WithLabelValues("stale").Inc()
		return res
	}

	metrics.ResolverRuns.WithLabelValues("applied").Inc()
	span.SetAttributes(attribute.Int("countries", len(codes)), attribute.Int("overlays", len(overlays)))
	slog.InfoContext(ctx, "country highlights rendered",
		"generation", gen, "countries", codes, "overlays", len(overlays), "failures", res.Failures)
	publish(ctx, r.publisher, domain.MapEvent{
		Type:       domain.EventOverlaysRendered,
		Generation: gen,
		Countries:  codes,
	})
	return res
}

// clear empties the layer if gen is still the latest run.
func (r *BoundaryResolver) clear(ctx context.Context, gen uint64) bool {
	r.renderMu.Lock()
	defer r.renderMu.Unlock()
	if gen != r.generation.Load() {
		return false
	}
	r.layer.ClearOverlays(ctx)
	return true
}

// render replaces the layer contents with overlays if gen is still the latest run.
func (r *BoundaryResolver) render(ctx context.Context, gen uint64, overlays []domain.CountryOverlay) bool {
	r.renderMu.Lock()
	defer r.renderMu.Unlock()
	if gen != r.generation.Load() {
		return false
	}
	r.layer.ClearOverlays(ctx)
	for _, o := range overlays {
		r.layer.AddOverlay(ctx, o)
	}
	metrics.OverlaysRendered.Set(float64(len(overlays)))
	return true
}

// resolveCountries reverse-geocodes every place and returns the distinct,
// sorted country codes together with the number of failed lookups.
func (r *BoundaryResolver) resolveCountries(ctx context.Context, places []domain.Place) ([]string, int) {
	ctx, span := r.tracer.Start(ctx, telemetry.SpanResolveCountries)
	defer span.End()

	var (
		mu       sync.Mutex
		codes    = make(map[string]struct{})
		failures int
	)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, p := range places {
		g.Go(func() error {
			code, err := r.geocoder.CountryCode(ctx, p.Point())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				metrics.ResolverItemFailures.WithLabelValues("reverse").Inc()
				slog.WarnContext(ctx, "reverse geocode failed",
					"place_id", p.ID, "lat", p.Lat, "lng", p.Lng, "error", err)
				return nil
			}
			if code = normalizeCountryCode(code); code != "" {
				codes[code] = struct{}{}
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(codes))
	for c := range codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, failures
}

// fetchBoundaries loads the boundary features of every code. Overlays come
// back grouped by code in the order of codes.
func (r *BoundaryResolver) fetchBoundaries(ctx context.Context, codes []string) ([]domain.CountryOverlay, int) {
	ctx, span := r.tracer.Start(ctx, telemetry.SpanFetchBoundaries, trace.WithAttributes(
		attribute.StringSlice("countries", codes),
	))
	defer span.End()

	var (
		mu       sync.Mutex
		byCode   = make(map[string][]domain.CountryOverlay, len(codes))
		failures int
	)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, code := range codes {
		g.Go(func() error {
			geoms, err := r.boundaries.Boundaries(ctx, code)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				metrics.ResolverItemFailures.WithLabelValues("boundary").Inc()
				slog.WarnContext(ctx, "boundary fetch failed", "country", code, "error", err)
				return nil
			}
			for _, geom := range geoms {
				if isEmptyGeometry(geom) {
					continue
				}
				byCode[code] = append(byCode[code], domain.CountryOverlay{
					CountryCode: code,
					Geometry:    geom,
					Style:       domain.CountryStyle,
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	var overlays []domain.CountryOverlay
	for _, code := range codes {
		overlays = append(overlays, byCode[code]...)
	}
	return overlays, failures
}

func normalizeCountryCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func isEmptyGeometry(g domain.Geometry) bool {
	trimmed := bytes.TrimSpace(g)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
