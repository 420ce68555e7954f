package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// --- Mock BlobStore ---

type mockBlobs struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
	sets   int
}

func newMockBlobs() *mockBlobs {
	return &mockBlobs{data: make(map[string][]byte)}
}

func (m *mockBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return v, nil
}

func (m *mockBlobs) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *mockBlobs) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// --- Mock geocoder ---

type mockGeocoder struct {
	countryFn    func(ctx context.Context, p domain.LatLng) (string, error)
	boundariesFn func(ctx context.Context, code string) ([]domain.Geometry, error)

	mu             sync.Mutex
	boundaryCalls  map[string]int
	countryLookups int
}

func (m *mockGeocoder) CountryCode(ctx context.Context, p domain.LatLng) (string, error) {
	m.mu.Lock()
	m.countryLookups++
	m.mu.Unlock()
	if m.countryFn != nil {
		return m.countryFn(ctx, p)
	}
	return "", nil
}

func (m *mockGeocoder) Boundaries(ctx context.Context, code string) ([]domain.Geometry, error) {
	m.mu.Lock()
	if m.boundaryCalls == nil {
		m.boundaryCalls = make(map[string]int)
	}
	m.boundaryCalls[code]++
	m.mu.Unlock()
	if m.boundariesFn != nil {
		return m.boundariesFn(ctx, code)
	}
	return []domain.Geometry{polygon}, nil
}

func (m *mockGeocoder) calls(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boundaryCalls[code]
}

var polygon = domain.Geometry(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`)

// europeGeocoder places negative longitudes in GB and everything else in FR.
func europeGeocoder() *mockGeocoder {
	return &mockGeocoder{
		countryFn: func(ctx context.Context, p domain.LatLng) (string, error) {
			if p.Lng < 0 {
				return "gb", nil
			}
			return "fr", nil
		},
	}
}

var (
	london = domain.Place{Lat: 51.5074, Lng: -0.1278, Description: "London"}
	paris  = domain.Place{Lat: 48.8566, Lng: 2.3522, Description: "Paris"}
	lyon   = domain.Place{Lat: 45.764, Lng: 4.8357, Description: "Lyon"}
)

// --- Mock Prompter ---

type mockPrompter struct {
	askFn func(ctx context.Context, q domain.Question) (string, bool, error)
	asked []domain.Question
}

func (m *mockPrompter) Ask(ctx context.Context, q domain.Question) (string, bool, error) {
	m.asked = append(m.asked, q)
	if m.askFn != nil {
		return m.askFn(ctx, q)
	}
	return "", false, nil
}

// answers replies in order and cancels once exhausted.
func answers(replies ...string) *mockPrompter {
	return &mockPrompter{askFn: func(ctx context.Context, q domain.Question) (string, bool, error) {
		if len(replies) == 0 {
			return "", false, nil
		}
		r := replies[0]
		replies = replies[1:]
		return r, true, nil
	}}
}

var errPromptBroken = errors.New("prompt broken")

// --- Mock Notifier / EventPublisher ---

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(ctx context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.MapEvent
	err    error
}

func (m *mockPublisher) PublishMapEvent(ctx context.Context, ev *domain.MapEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return m.err
}

func (m *mockPublisher) types() []domain.MapEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.MapEventType, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Type
	}
	return out
}
