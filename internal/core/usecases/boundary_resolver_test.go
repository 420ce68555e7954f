package usecases_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/samirrijal/pinmap/internal/adapters/mapview"
	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/usecases"
)

func newResolver(geo *mockGeocoder) (*usecases.BoundaryResolver, *mapview.View) {
	view := mapview.New()
	return usecases.NewBoundaryResolver(geo, geo, view, nil, 2), view
}

func overlayCodes(view *mapview.View) []string {
	var codes []string
	for _, o := range view.Overlays() {
		codes = append(codes, o.CountryCode)
	}
	return codes
}

func TestBoundaryResolver_HighlightsDistinctCountries(t *testing.T) {
	geo := europeGeocoder()
	r, view := newResolver(geo)

	res := r.Resolve(context.Background(), []domain.Place{london, paris, lyon})

	if !res.Applied {
		t.Fatal("expected resolution to be applied")
	}
	if !reflect.DeepEqual(res.Countries, []string{"fr", "gb"}) {
		t.Errorf("expected [fr gb], got %v", res.Countries)
	}
	if got := overlayCodes(view); !reflect.DeepEqual(got, []string{"fr", "gb"}) {
		t.Errorf("expected one overlay per country, got %v", got)
	}
	if geo.calls("fr") != 1 {
		t.Errorf("expected fr boundaries fetched once, got %d", geo.calls("fr"))
	}
	for _, o := range view.Overlays() {
		if o.Style != domain.CountryStyle {
			t.Errorf("unexpected style %+v", o.Style)
		}
	}
}

func TestBoundaryResolver_NormalizesAndSkipsEmptyCodes(t *testing.T) {
	geo := &mockGeocoder{countryFn: func(ctx context.Context, p domain.LatLng) (string, error) {
		switch p.Lat {
		case 1:
			return " GB ", nil
		case 2:
			return "gb", nil
		}
		return "", nil // open sea
	}}
	r, _ := newResolver(geo)

	res := r.Resolve(context.Background(), []domain.Place{{Lat: 1}, {Lat: 2}, {Lat: 3}})

	if !reflect.DeepEqual(res.Countries, []string{"gb"}) {
		t.Errorf("expected [gb], got %v", res.Countries)
	}
	if res.Failures != 0 {
		t.Errorf("an unknown country is not a failure, got %d", res.Failures)
	}
}

func TestBoundaryResolver_MultiPartCountry(t *testing.T) {
	geo := europeGeocoder()
	geo.boundariesFn = func(ctx context.Context, code string) ([]domain.Geometry, error) {
		return []domain.Geometry{polygon, polygon, domain.Geometry("null"), nil}, nil
	}
	r, view := newResolver(geo)

	res := r.Resolve(context.Background(), []domain.Place{paris})

	if res.Overlays != 2 || len(view.Overlays()) != 2 {
		t.Errorf("expected 2 overlays with empty geometries skipped, got %d/%d", res.Overlays, len(view.Overlays()))
	}
}

func TestBoundaryResolver_ReverseGeocodeFailureIsIsolated(t *testing.T) {
	geo := &mockGeocoder{countryFn: func(ctx context.Context, p domain.LatLng) (string, error) {
		if p.Lng < 0 {
			return "", errors.New("503 from geocoder")
		}
		return "fr", nil
	}}
	r, view := newResolver(geo)

	res := r.Resolve(context.Background(), []domain.Place{london, paris})

	if !res.Applied || res.Failures != 1 {
		t.Fatalf("expected applied run with 1 failure, got %+v", res)
	}
	if got := overlayCodes(view); !reflect.DeepEqual(got, []string{"fr"}) {
		t.Errorf("expected fr only, got %v", got)
	}
}

func TestBoundaryResolver_BoundaryFailureIsIsolated(t *testing.T) {
	geo := europeGeocoder()
	geo.boundariesFn = func(ctx context.Context, code string) ([]domain.Geometry, error) {
		if code == "gb" {
			return nil, errors.New("timeout")
		}
		return []domain.Geometry{polygon}, nil
	}
	r, view := newResolver(geo)

	res := r.Resolve(context.Background(), []domain.Place{london, paris})

	if !reflect.DeepEqual(res.Countries, []string{"fr", "gb"}) {
		t.Errorf("codes are still reported, got %v", res.Countries)
	}
	if got := overlayCodes(view); !reflect.DeepEqual(got, []string{"fr"}) {
		t.Errorf("expected fr only, got %v", got)
	}
	if res.Failures != 1 {
		t.Errorf("expected 1 failure, got %d", res.Failures)
	}
}

func TestBoundaryResolver_Idempotent(t *testing.T) {
	r, view := newResolver(europeGeocoder())
	places := []domain.Place{london, paris}

	first := r.Resolve(context.Background(), places)
	second := r.Resolve(context.Background(), places)

	if second.Generation != first.Generation+1 {
		t.Errorf("expected generations to advance, got %d then %d", first.Generation, second.Generation)
	}
	if len(view.Overlays()) != 2 {
		t.Errorf("expected overlays replaced not duplicated, got %d", len(view.Overlays()))
	}
}

func TestBoundaryResolver_EmptyClearsLayer(t *testing.T) {
	r, view := newResolver(europeGeocoder())
	r.Resolve(context.Background(), []domain.Place{paris})

	res := r.Resolve(context.Background(), nil)

	if !res.Applied || len(res.Countries) != 0 {
		t.Errorf("expected applied empty resolution, got %+v", res)
	}
	if len(view.Overlays()) != 0 {
		t.Errorf("expected empty layer, got %d overlays", len(view.Overlays()))
	}
}

func TestBoundaryResolver_StaleRunIsDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	geo := europeGeocoder()
	geo.boundariesFn = func(ctx context.Context, code string) ([]domain.Geometry, error) {
		if code == "fr" {
			close(entered)
			<-release
		}
		return []domain.Geometry{polygon}, nil
	}
	r, view := newResolver(geo)

	done := make(chan domain.Resolution)
	go func() { done <- r.Resolve(context.Background(), []domain.Place{paris}) }()
	<-entered

	newer := r.Resolve(context.Background(), []domain.Place{london})
	close(release)
	older := <-done

	if !newer.Applied {
		t.Error("expected newer run applied")
	}
	if older.Applied {
		t.Error("expected older run discarded")
	}
	if got := overlayCodes(view); !reflect.DeepEqual(got, []string{"gb"}) {
		t.Errorf("expected newer result on the layer, got %v", got)
	}
	if r.Generation() != newer.Generation {
		t.Errorf("expected generation %d, got %d", newer.Generation, r.Generation())
	}
}

func TestBoundaryResolver_DeadlineKeepsResolvedCountries(t *testing.T) {
	geo := europeGeocoder()
	r, view := newResolver(geo)

	first := r.Resolve(context.Background(), []domain.Place{paris, london})
	if !first.Applied {
		t.Fatal("expected first run applied")
	}

	geo.countryFn = func(ctx context.Context, p domain.LatLng) (string, error) {
		if p.Lng < 0 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "fr", nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := r.Resolve(ctx, []domain.Place{paris, london})

	if !res.Applied {
		t.Fatal("expected latest run applied despite the deadline")
	}
	if res.Failures != 1 {
		t.Errorf("expected 1 failure, got %d", res.Failures)
	}
	if got := overlayCodes(view); !reflect.DeepEqual(got, []string{"fr"}) {
		t.Errorf("expected fr to stay highlighted, got %v", got)
	}
}

func TestBoundaryResolver_CancelledStaleRunDoesNotRender(t *testing.T) {
	entered := make(chan struct{})
	geo := europeGeocoder()
	geo.countryFn = func(ctx context.Context, p domain.LatLng) (string, error) {
		if p.Lng > 0 {
			close(entered)
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "gb", nil
	}
	r, view := newResolver(geo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan domain.Resolution)
	go func() { done <- r.Resolve(ctx, []domain.Place{paris}) }()
	<-entered

	newer := r.Resolve(context.Background(), []domain.Place{london})
	cancel()
	older := <-done

	if !newer.Applied || older.Applied {
		t.Fatalf("expected only the newer run applied, got newer=%v older=%v", newer.Applied, older.Applied)
	}
	if got := overlayCodes(view); !reflect.DeepEqual(got, []string{"gb"}) {
		t.Errorf("expected newer result on the layer, got %v", got)
	}
}

func TestBoundaryResolver_PublishesRenderEvent(t *testing.T) {
	geo := europeGeocoder()
	pub := &mockPublisher{err: errors.New("broker down")}
	r := usecases.NewBoundaryResolver(geo, geo, mapview.New(), pub, 0)

	res := r.Resolve(context.Background(), []domain.Place{paris})

	if !res.Applied {
		t.Fatal("publish failure must not affect the run")
	}
	if len(pub.events) != 1 || pub.events[0].Type != domain.EventOverlaysRendered {
		t.Fatalf("expected one overlays.rendered event, got %v", pub.types())
	}
	if pub.events[0].Generation != res.Generation {
		t.Errorf("expected generation %d, got %d", res.Generation, pub.events[0].Generation)
	}
}

func TestScenario_SinglePlaceInGB(t *testing.T) {
	ctx := context.Background()
	blobs := newMockBlobs()
	store := usecases.NewPlaceStore(blobs, "")
	store.Load(ctx)
	store.Add(ctx, domain.Place{Lat: 51.5, Lng: -0.09, Description: "A"})

	geo := &mockGeocoder{countryFn: func(ctx context.Context, p domain.LatLng) (string, error) {
		return "gb", nil
	}}
	r, view := newResolver(geo)
	r.Resolve(ctx, store.List())

	if got := overlayCodes(view); !reflect.DeepEqual(got, []string{"gb"}) {
		t.Errorf("expected exactly one gb overlay, got %v", got)
	}
	persisted := storedPlaces(t, blobs)
	if len(persisted) != 1 || persisted[0].Description != "A" {
		t.Fatalf("expected one persisted entry A, got %+v", persisted)
	}

	if !store.Update(ctx, 51.5, -0.09, "B") {
		t.Fatal("expected update to find the place")
	}
	if store.Update(ctx, 10, 10, "C") {
		t.Fatal("expected not-found signal")
	}
	persisted = storedPlaces(t, blobs)
	if len(persisted) != 1 || persisted[0].Description != "B" {
		t.Errorf("expected single entry B, got %+v", persisted)
	}
}
