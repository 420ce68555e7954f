// Package nominatim implements the reverse-geocode and boundary ports against
// a Nominatim (OpenStreetMap) compatible HTTP API.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/pkg/metrics"
	"github.com/samirrijal/pinmap/internal/pkg/telemetry"
)

// DefaultBaseURL is the public OpenStreetMap Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Config configures a Client.
type Config struct {
	BaseURL   string
	UserAgent string
	Email     string // sent as the email parameter, asked for by the usage policy
	// RatePerSecond caps outgoing requests; zero or less disables the cap.
	RatePerSecond float64
	Burst         int
	// Timeout bounds each request; zero means no timeout.
	Timeout time.Duration
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nominatim %s: HTTP %d", e.Op, e.StatusCode)
}

// ErrRateLimited matches a 429 StatusError via errors.Is.
var ErrRateLimited = errors.New("nominatim rate limited")

func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// Client talks to Nominatim. It implements ports.ReverseGeocoder and
// ports.BoundarySource.
type Client struct {
	base      *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	email     string
	tracer    trace.Tracer
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", raw)
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		base:      base,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: cfg.UserAgent,
		email:     cfg.Email,
		tracer:    otel.Tracer(telemetry.ScopeGeocoder),
	}, nil
}

type reverseResponse struct {
	Address *struct {
		CountryCode string `json:"country_code"`
	} `json:"address"`
	Error string `json:"error"`
}

// CountryCode reverse-geocodes p. Points outside any country (open sea)
// yield an empty code and no error.
func (c *Client) CountryCode(ctx context.Context, p domain.LatLng) (string, error) {
	ctx, span := c.tracer.Start(ctx, telemetry.SpanReverseGeocode, trace.WithAttributes(
		attribute.Float64("lat", p.Lat),
		attribute.Float64("lng", p.Lng),
	))
	defer span.End()

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Lng, 'f', -1, 64))
	q.Set("zoom", "3")

	var r reverseResponse
	if err := c.getJSON(ctx, "reverse", "/reverse", q, &r); err != nil {
		span.RecordError(err)
		return "", err
	}
	if r.Address == nil {
		slog.DebugContext(ctx, "reverse geocode returned no address", "lat", p.Lat, "lng", p.Lng, "reason", r.Error)
		return "", nil
	}
	return strings.ToLower(r.Address.CountryCode), nil
}

type searchResponse struct {
	Features []struct {
		Geometry json.RawMessage `json:"geometry"`
	} `json:"features"`
}

// Boundaries returns the GeoJSON geometries of the country with the given
// ISO code. A response without features yields an empty slice.
func (c *Client) Boundaries(ctx context.Context, countryCode string) ([]domain.Geometry, error) {
	ctx, span := c.tracer.Start(ctx, telemetry.SpanBoundarySearch, trace.WithAttributes(
		attribute.String("country", countryCode),
	))
	defer span.End()

	q := url.Values{}
	q.Set("format", "geojson")
	q.Set("countrycodes", countryCode)
	q.Set("polygon_geojson", "1")

	var r searchResponse
	if err := c.getJSON(ctx, "boundary", "/search", q, &r); err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := make([]domain.Geometry, 0, len(r.Features))
	for _, f := range r.Features {
		if len(f.Geometry) == 0 || string(f.Geometry) == "null" {
			continue
		}
		out = append(out, domain.Geometry(f.Geometry))
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out any) error {
	if c.email != "" {
		q.Set("email", c.email)
	}
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = q.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.GeocodeRequests.WithLabelValues(op, "throttled").Inc()
		return fmt.Errorf("nominatim %s: wait for rate limiter: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("nominatim %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	t0 := time.Now()
	resp, err := c.http.Do(req)
	metrics.GeocodeDuration.WithLabelValues(op).Observe(time.Since(t0).Seconds())
	if err != nil {
		metrics.GeocodeRequests.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("nominatim %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.GeocodeRequests.WithLabelValues(op, "http_"+strconv.Itoa(resp.StatusCode)).Inc()
		return &StatusError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.GeocodeRequests.WithLabelValues(op, "decode_error").Inc()
		return fmt.Errorf("nominatim %s: decode: %w", op, err)
	}
	metrics.GeocodeRequests.WithLabelValues(op, "ok").Inc()
	slog.DebugContext(ctx, "nominatim response", "op", op, "duration_ms", time.Since(t0).Milliseconds())
	return nil
}
