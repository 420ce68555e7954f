package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/pinmap/internal/adapters/http"
	"github.com/samirrijal/pinmap/internal/adapters/mapview"
	"github.com/samirrijal/pinmap/internal/adapters/memory"
	"github.com/samirrijal/pinmap/internal/adapters/prompt"
	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/usecases"
)

// ---- Mock geocoder ----

type mockGeocoder struct {
	countryFn    func(ctx context.Context, at domain.LatLng) (string, error)
	boundariesFn func(ctx context.Context, code string) ([]domain.Geometry, error)
}

func (m *mockGeocoder) CountryCode(ctx context.Context, at domain.LatLng) (string, error) {
	if m.countryFn != nil {
		return m.countryFn(ctx, at)
	}
	return "", nil
}

func (m *mockGeocoder) Boundaries(ctx context.Context, code string) ([]domain.Geometry, error) {
	if m.boundariesFn != nil {
		return m.boundariesFn(ctx, code)
	}
	return nil, nil
}

// ukGeocoder puts everything in GB with a single polygon.
func ukGeocoder() *mockGeocoder {
	return &mockGeocoder{
		countryFn: func(ctx context.Context, at domain.LatLng) (string, error) { return "GB", nil },
		boundariesFn: func(ctx context.Context, code string) ([]domain.Geometry, error) {
			return []domain.Geometry{domain.Geometry(`{"type":"Polygon","coordinates":[]}`)}, nil
		},
	}
}

// ---- Test helpers ----

type testEnv struct {
	deps  *handler.Dependencies
	blobs *memory.Blobs
	app   *fiber.App
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func newEnv(t *testing.T, mode domain.Mode, geo *mockGeocoder, seed ...domain.Place) *testEnv {
	t.Helper()
	ctx := context.Background()

	blobs := memory.NewBlobs()
	if len(seed) > 0 {
		data, err := json.Marshal(seed)
		if err != nil {
			t.Fatal(err)
		}
		if err := blobs.Set(ctx, usecases.DefaultPlacesKey, data); err != nil {
			t.Fatal(err)
		}
	}
	if geo == nil {
		geo = &mockGeocoder{}
	}

	view := mapview.New()
	store := usecases.NewPlaceStore(blobs, "")
	state := usecases.NewModeState(mode)
	modes := usecases.NewModeController(state, view, nil, nil)
	presenter := usecases.NewMarkerPresenter(view, store, state, prompt.Scripted{}, nil, "")
	resolver := usecases.NewBoundaryResolver(geo, geo, view, nil, 2)
	session := usecases.NewSession(store, presenter, resolver, modes, prompt.Scripted{}, nil,
		usecases.SessionOptions{InitialMode: mode})
	session.Start(ctx)
	t.Cleanup(session.Settle)

	deps := &handler.Dependencies{Session: session, View: view}
	return &testEnv{deps: deps, blobs: blobs, app: setupApp(deps)}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httpResponse {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return &httpResponse{Status: resp.StatusCode, Header: resp.Header.Get, Body: b}
}

type httpResponse struct {
	Status int
	Header func(string) string
	Body   []byte
}

func (r *httpResponse) decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("decode %s: %v", r.Body, err)
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil)

	resp := env.do(t, "GET", "/v1/health", "")
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	var body map[string]any
	resp.decode(t, &body)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
	if body["mode"] != "edit" {
		t.Errorf("expected mode edit, got %v", body["mode"])
	}
}

func TestReady_FailingCheck(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil)
	env.deps.Checks = map[string]func(context.Context) error{
		"storage": func(context.Context) error { return errors.New("disk gone") },
	}

	resp := env.do(t, "GET", "/v1/ready", "")
	if resp.Status != 503 {
		t.Fatalf("expected 503, got %d", resp.Status)
	}
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	resp.decode(t, &body)
	if body.Checks["storage"] != "error: disk gone" {
		t.Errorf("unexpected storage check %q", body.Checks["storage"])
	}
	if body.Checks["nats"] != "not configured" {
		t.Errorf("unexpected nats check %q", body.Checks["nats"])
	}
}

// ---- Places ----

func TestListPlaces_Pagination(t *testing.T) {
	var seed []domain.Place
	for i := range 5 {
		seed = append(seed, domain.Place{ID: fmt.Sprintf("p%d", i), Lat: float64(i), Lng: float64(i), Description: "x"})
	}
	env := newEnv(t, domain.ModeEdit, nil, seed...)

	resp := env.do(t, "GET", "/v1/places?offset=2&limit=2", "")
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	var result struct {
		Data       []domain.Place `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	resp.decode(t, &result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 || result.Data[0].ID != "p2" {
		t.Errorf("expected page starting at p2, got %+v", result.Data)
	}
	if !strings.Contains(resp.Header("Link"), `rel="next"`) {
		t.Errorf("expected next link, got %q", resp.Header("Link"))
	}
	if resp.Header("Cache-Control") != "no-store" {
		t.Errorf("expected no-store, got %q", resp.Header("Cache-Control"))
	}
}

func TestNearbyPlaces(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil,
		domain.Place{ID: "paris", Lat: 48.8566, Lng: 2.3522, Description: "Paris"},
		domain.Place{ID: "versailles", Lat: 48.8049, Lng: 2.1204, Description: "Versailles"},
		domain.Place{ID: "london", Lat: 51.5074, Lng: -0.1278, Description: "London"},
	)

	resp := env.do(t, "GET", "/v1/places/nearby?lat=48.85&lng=2.34&radius=30000", "")
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	var result []struct {
		ID       string  `json:"id"`
		Distance float64 `json:"distance_m"`
	}
	resp.decode(t, &result)
	if len(result) != 2 || result[0].ID != "paris" || result[1].ID != "versailles" {
		t.Fatalf("expected paris then versailles, got %+v", result)
	}
	if result[0].Distance >= result[1].Distance {
		t.Errorf("expected closest first, got %+v", result)
	}

	if resp := env.do(t, "GET", "/v1/places/nearby?lat=48.85", ""); resp.Status != 400 {
		t.Errorf("expected 400 without lng, got %d", resp.Status)
	}
	if resp := env.do(t, "GET", "/v1/places/nearby?lat=48.85&lng=2.34&radius=-1", ""); resp.Status != 400 {
		t.Errorf("expected 400 for negative radius, got %d", resp.Status)
	}
	for _, q := range []string{"lat=NaN&lng=2.34", "lat=48.85&lng=Inf", "lat=48.85&lng=2.34&radius=NaN"} {
		if resp := env.do(t, "GET", "/v1/places/nearby?"+q, ""); resp.Status != 400 {
			t.Errorf("expected 400 for %s, got %d", q, resp.Status)
		}
	}
}

func TestETag_NotModified(t *testing.T) {
	env := newEnv(t, domain.ModeView, nil, domain.Place{ID: "p1", Lat: 51.5, Lng: -0.12, Description: "London"})

	first := env.do(t, "GET", "/v1/map/markers", "")
	etag := first.Header("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("expected weak ETag, got %q", etag)
	}

	for _, header := range []string{etag, `W/"other", ` + etag, strings.TrimPrefix(etag, "W/")} {
		req := httptest.NewRequest("GET", "/v1/map/markers", nil)
		req.Header.Set("If-None-Match", header)
		resp, err := env.app.Test(req, -1)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != 304 {
			t.Errorf("If-None-Match %q: expected 304, got %d", header, resp.StatusCode)
		}
	}

	req := httptest.NewRequest("GET", "/v1/map/markers", nil)
	req.Header.Set("If-None-Match", `W/"stale"`)
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("expected 200 for a stale tag, got %d", resp.StatusCode)
	}
}

func TestGetPlace(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil, domain.Place{ID: "p1", Lat: 51.5, Lng: -0.12, Description: "London"})

	resp := env.do(t, "GET", "/v1/places/p1", "")
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	var p domain.Place
	resp.decode(t, &p)
	if p.Description != "London" {
		t.Errorf("expected London, got %q", p.Description)
	}

	resp = env.do(t, "GET", "/v1/places/missing", "")
	if resp.Status != 404 {
		t.Fatalf("expected 404, got %d", resp.Status)
	}
	var apiErr handler.APIError
	resp.decode(t, &apiErr)
	if apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %q", apiErr.Code)
	}
}

// ---- Map click ----

func TestMapClick_CreatesPlace(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, ukGeocoder())

	resp := env.do(t, "POST", "/v1/map/click", `{"lat":51.5,"lng":-0.12,"description":"London"}`)
	if resp.Status != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.Status, resp.Body)
	}
	var p domain.Place
	resp.decode(t, &p)
	if p.ID == "" || p.Description != "London" {
		t.Fatalf("unexpected place %+v", p)
	}
	if resp.Header("Location") != "/v1/places/"+p.ID {
		t.Errorf("unexpected Location %q", resp.Header("Location"))
	}

	m, ok := env.deps.View.MarkerForPlace(p.ID)
	if !ok || !m.Interactive {
		t.Fatalf("expected interactive marker for new place, got %+v ok=%v", m, ok)
	}

	env.deps.Session.Settle()
	resp = env.do(t, "GET", "/v1/map/overlays", "")
	var fc mapview.FeatureCollection
	resp.decode(t, &fc)
	if len(fc.Features) != 1 || fc.Features[0].Properties["country_code"] != "gb" {
		t.Errorf("expected one gb overlay, got %+v", fc.Features)
	}
}

func TestMapClick_NoDescriptionCancels(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil)

	for _, body := range []string{`{"lat":1,"lng":2}`, `{"lat":1,"lng":2,"description":""}`} {
		resp := env.do(t, "POST", "/v1/map/click", body)
		if resp.Status != 204 {
			t.Errorf("%s: expected 204, got %d", body, resp.Status)
		}
	}
	if n := len(env.deps.Session.Store().List()); n != 0 {
		t.Errorf("expected no places, got %d", n)
	}
	if n := len(env.deps.View.Markers()); n != 0 {
		t.Errorf("expected no markers, got %d", n)
	}
}

func TestMapClick_ViewModeConflict(t *testing.T) {
	env := newEnv(t, domain.ModeView, nil)

	resp := env.do(t, "POST", "/v1/map/click", `{"lat":1,"lng":2,"description":"nope"}`)
	if resp.Status != 409 {
		t.Fatalf("expected 409, got %d", resp.Status)
	}
	if n := len(env.deps.Session.Store().List()); n != 0 {
		t.Errorf("expected no places, got %d", n)
	}
}

func TestMapClick_BadRequest(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil)

	tests := []string{
		`{"lng":2,"description":"x"}`,
		`{"lat":91,"lng":2,"description":"x"}`,
		`{"lat":1,"lng":-181,"description":"x"}`,
		`not json`,
	}
	for _, body := range tests {
		resp := env.do(t, "POST", "/v1/map/click", body)
		if resp.Status != 400 {
			t.Errorf("%s: expected 400, got %d", body, resp.Status)
		}
	}
}

// ---- Marker activation ----

func createPlace(t *testing.T, env *testEnv, desc string) (domain.Place, domain.Marker) {
	t.Helper()
	resp := env.do(t, "POST", "/v1/map/click", fmt.Sprintf(`{"lat":48.85,"lng":2.35,"description":%q}`, desc))
	if resp.Status != 201 {
		t.Fatalf("create place: expected 201, got %d", resp.Status)
	}
	var p domain.Place
	resp.decode(t, &p)
	m, ok := env.deps.View.MarkerForPlace(p.ID)
	if !ok {
		t.Fatal("marker not rendered")
	}
	return p, m
}

func TestActivateMarker_Edit(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil)
	p, m := createPlace(t, env, "Paris")

	resp := env.do(t, "POST", "/v1/markers/"+m.ID+"/activate", `{"action":"1","description":"Paris, France"}`)
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.Status, resp.Body)
	}
	got, _ := env.deps.Session.Store().Get(p.ID)
	if got.Description != "Paris, France" {
		t.Errorf("expected updated description, got %q", got.Description)
	}
	m, _ = env.deps.View.Marker(m.ID)
	if m.Description != "Paris, France" {
		t.Errorf("expected marker text updated, got %q", m.Description)
	}
}

func TestActivateMarker_Delete(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil)
	p, m := createPlace(t, env, "Paris")

	resp := env.do(t, "POST", "/v1/markers/"+m.ID+"/activate", `{"action":"2"}`)
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	if _, ok := env.deps.Session.Store().Get(p.ID); ok {
		t.Error("expected place removed")
	}
	if _, ok := env.deps.View.Marker(m.ID); ok {
		t.Error("expected marker removed")
	}
}

func TestActivateMarker_CancelledIsNoop(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil)
	p, m := createPlace(t, env, "Paris")

	for _, body := range []string{"", `{"action":"3"}`, `{"action":"1"}`} {
		resp := env.do(t, "POST", "/v1/markers/"+m.ID+"/activate", body)
		if resp.Status != 204 {
			t.Errorf("%q: expected 204, got %d", body, resp.Status)
		}
	}
	got, ok := env.deps.Session.Store().Get(p.ID)
	if !ok || got.Description != "Paris" {
		t.Errorf("expected place untouched, got %+v ok=%v", got, ok)
	}
}

func TestActivateMarker_NotFound(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil)

	resp := env.do(t, "POST", "/v1/markers/nope/activate", `{"action":"2"}`)
	if resp.Status != 404 {
		t.Fatalf("expected 404, got %d", resp.Status)
	}
}

func TestActivateMarker_ViewModeMarkerForbidden(t *testing.T) {
	env := newEnv(t, domain.ModeView, nil, domain.Place{ID: "p1", Lat: 1, Lng: 2, Description: "seen"})
	m, ok := env.deps.View.MarkerForPlace("p1")
	if !ok {
		t.Fatal("marker not rendered")
	}

	resp := env.do(t, "POST", "/v1/markers/"+m.ID+"/activate", `{"action":"2"}`)
	if resp.Status != 403 {
		t.Fatalf("expected 403, got %d", resp.Status)
	}
	if _, ok := env.deps.Session.Store().Get("p1"); !ok {
		t.Error("place must survive")
	}
}

// ---- Map layers ----

func TestMarkersGeoJSON(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil,
		domain.Place{ID: "p1", Lat: 51.5, Lng: -0.12, Description: ""},
		domain.Place{ID: "p2", Lat: 48.85, Lng: 2.35, Description: "Paris"},
	)

	resp := env.do(t, "GET", "/v1/map/markers", "")
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	if ct := resp.Header("Content-Type"); !strings.HasPrefix(ct, "application/geo+json") {
		t.Errorf("unexpected content type %q", ct)
	}
	var fc mapview.FeatureCollection
	resp.decode(t, &fc)
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["description"] != usecases.DefaultPlaceholder {
		t.Errorf("expected placeholder, got %v", fc.Features[0].Properties["description"])
	}
	want := []float64{-0.12, 48.85, 2.35, 51.5}
	if fmt.Sprint(fc.BBox) != fmt.Sprint(want) {
		t.Errorf("expected bbox %v, got %v", want, fc.BBox)
	}
}

func TestOverlays_CountryFilter(t *testing.T) {
	geo := &mockGeocoder{
		countryFn: func(ctx context.Context, at domain.LatLng) (string, error) {
			if at.Lng < 0 {
				return "gb", nil
			}
			return "fr", nil
		},
		boundariesFn: func(ctx context.Context, code string) ([]domain.Geometry, error) {
			return []domain.Geometry{domain.Geometry(`{"type":"Polygon","coordinates":[]}`)}, nil
		},
	}
	env := newEnv(t, domain.ModeEdit, geo,
		domain.Place{ID: "p1", Lat: 51.5, Lng: -0.12},
		domain.Place{ID: "p2", Lat: 48.85, Lng: 2.35},
	)

	resp := env.do(t, "GET", "/v1/map/overlays?country=FR", "")
	var fc mapview.FeatureCollection
	resp.decode(t, &fc)
	if len(fc.Features) != 1 || fc.Features[0].Properties["country_code"] != "fr" {
		t.Errorf("expected only fr, got %+v", fc.Features)
	}
}

// ---- Mode ----

func TestSetMode(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil)

	resp := env.do(t, "PUT", "/v1/mode", `{"edit":false}`)
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	var body struct {
		Mode      string `json:"mode"`
		Clickable bool   `json:"clickable"`
	}
	resp.decode(t, &body)
	if body.Mode != "view" || body.Clickable {
		t.Errorf("expected view and not clickable, got %+v", body)
	}

	resp = env.do(t, "POST", "/v1/map/click", `{"lat":1,"lng":2,"description":"x"}`)
	if resp.Status != 409 {
		t.Errorf("expected click rejected in view mode, got %d", resp.Status)
	}

	resp = env.do(t, "PUT", "/v1/mode", `{}`)
	if resp.Status != 400 {
		t.Errorf("expected 400 for missing edit, got %d", resp.Status)
	}
}

// ---- Highlights ----

func TestRefreshHighlights(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, ukGeocoder(), domain.Place{ID: "p1", Lat: 51.5, Lng: -0.12})

	resp := env.do(t, "POST", "/v1/highlights/refresh", "")
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	var res domain.Resolution
	resp.decode(t, &res)
	if !res.Applied || len(res.Countries) != 1 || res.Countries[0] != "gb" {
		t.Errorf("unexpected resolution %+v", res)
	}
}

// ---- GraphQL ----

func TestGraphQL_PlacesAndSetMode(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil, domain.Place{ID: "p1", Lat: 1, Lng: 2, Description: "here"})

	resp := env.do(t, "POST", "/graphql", `{"query":"{ places { id description } mode }"}`)
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	var result struct {
		Data struct {
			Places []domain.Place `json:"places"`
			Mode   string         `json:"mode"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	resp.decode(t, &result)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
	if len(result.Data.Places) != 1 || result.Data.Places[0].Description != "here" {
		t.Errorf("unexpected places %+v", result.Data.Places)
	}
	if result.Data.Mode != "edit" {
		t.Errorf("expected edit, got %q", result.Data.Mode)
	}

	resp = env.do(t, "POST", "/graphql", `{"query":"mutation { setMode(edit: false) }"}`)
	if !strings.Contains(string(resp.Body), `"setMode":"view"`) {
		t.Errorf("unexpected setMode result %s", resp.Body)
	}
	if env.deps.Session.Modes().Mode() != domain.ModeView {
		t.Error("expected view mode")
	}
}

func TestGraphQL_Click(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil)

	resp := env.do(t, "POST", "/graphql", `{"query":"mutation { click(lat: 10, lng: 20, description: \"pin\") { id description } }"}`)
	if !strings.Contains(string(resp.Body), `"description":"pin"`) {
		t.Fatalf("unexpected click result %s", resp.Body)
	}
	if n := len(env.deps.Session.Store().List()); n != 1 {
		t.Errorf("expected 1 place, got %d", n)
	}
}

// ---- WebSocket ----

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	env := newEnv(t, domain.ModeEdit, nil)

	resp := env.do(t, "GET", "/ws", "")
	if resp.Status != fiber.StatusUpgradeRequired {
		t.Errorf("expected 426, got %d", resp.Status)
	}
}
