package telemetry

// Span names used for tracing the reconciliation pipeline.
const (
	SpanResolve          = "boundary.resolve"
	SpanResolveCountries = "boundary.resolve_countries"
	SpanFetchBoundaries  = "boundary.fetch_boundaries"
	SpanReverseGeocode   = "geocoder.reverse"
	SpanBoundarySearch   = "geocoder.boundary"
)

// Instrumentation scope names.
const (
	ScopeUsecases = "github.com/samirrijal/pinmap/internal/core/usecases"
	ScopeGeocoder = "github.com/samirrijal/pinmap/internal/adapters/nominatim"
)
