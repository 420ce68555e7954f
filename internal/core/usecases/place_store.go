package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
	"github.com/samirrijal/pinmap/internal/pkg/geospatial"
	"github.com/samirrijal/pinmap/internal/pkg/metrics"
)

// DefaultPlacesKey is the storage key of the place collection.
const DefaultPlacesKey = "places"

// PlaceStore owns the canonical, persisted sequence of places.
type PlaceStore struct {
	blobs ports.BlobStore
	key   string

	mu     sync.Mutex
	places []domain.Place
}

// NewPlaceStore creates a PlaceStore persisting under key.
func NewPlaceStore(blobs ports.BlobStore, key string) *PlaceStore {
	if key == "" {
		key = DefaultPlacesKey
	}
	return &PlaceStore{blobs: blobs, key: key}
}

// Load replaces the in-memory sequence with the persisted snapshot.
// An absent or malformed snapshot yields an empty collection.
func (s *PlaceStore) Load(ctx context.Context) []domain.Place {
	places := s.read(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.places = places
	return clonePlaces(places)
}

func (s *PlaceStore) read(ctx context.Context) []domain.Place {
	data, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, domain.ErrBlobNotFound) {
			slog.WarnContext(ctx, "read places failed", "key", s.key, "error", err)
		}
		return []domain.Place{}
	}

	var places []domain.Place
	if err := json.Unmarshal(data, &places); err != nil {
		slog.WarnContext(ctx, "stored places are malformed, starting empty", "key", s.key, "error", err)
		return []domain.Place{}
	}
	if places == nil {
		places = []domain.Place{}
	}
	for i := range places {
		if places[i].ID == "" {
			places[i].ID = uuid.NewString()
		}
	}
	return places
}

// Add appends p, assigning an ID when it has none, and persists.
func (s *PlaceStore) Add(ctx context.Context, p domain.Place) domain.Place {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.places = append(s.places, p)
	s.persistLocked(ctx)
	return p
}

// Update sets the description of the first place at exactly (lat, lng).
// It returns false, without persisting, when no place is there.
func (s *PlaceStore) Update(ctx context.Context, lat, lng float64, description string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.places {
		if s.places[i].At(lat, lng) {
			s.places[i].Description = description
			s.persistLocked(ctx)
			return true
		}
	}
	return false
}

// UpdateByID sets the description of the place with the given ID.
func (s *PlaceStore) UpdateByID(ctx context.Context, id, description string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.places {
		if s.places[i].ID == id {
			s.places[i].Description = description
			s.persistLocked(ctx)
			return true
		}
	}
	return false
}

// Remove drops every place at exactly (lat, lng) and persists.
func (s *PlaceStore) Remove(ctx context.Context, lat, lng float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.places = filterPlaces(s.places, func(p domain.Place) bool { return !p.At(lat, lng) })
	s.persistLocked(ctx)
}

// RemoveByID drops the place with the given ID and persists.
// It reports whether a place was removed.
func (s *PlaceStore) RemoveByID(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.places)
	s.places = filterPlaces(s.places, func(p domain.Place) bool { return p.ID != id })
	s.persistLocked(ctx)
	return len(s.places) != before
}

// Persist writes the full sequence to storage.
func (s *PlaceStore) Persist(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(ctx)
}

// persistLocked serializes and writes the snapshot. Write failures are
// logged and swallowed: the in-memory state stays authoritative. Places with
// unencodable coordinates are left out so they cannot block the rest.
func (s *PlaceStore) persistLocked(ctx context.Context) {
	places := make([]domain.Place, 0, len(s.places))
	for _, p := range s.places {
		if !p.Point().Valid() {
			slog.WarnContext(ctx, "not persisting place with invalid coordinates", "place_id", p.ID)
			continue
		}
		places = append(places, p)
	}
	data, err := json.Marshal(places)
	if err != nil {
		slog.WarnContext(ctx, "encode places failed", "error", err)
		metrics.PersistFailures.Inc()
		return
	}
	if err := s.blobs.Set(ctx, s.key, data); err != nil {
		slog.WarnContext(ctx, "persist places failed", "key", s.key, "count", len(places), "error", err)
		metrics.PersistFailures.Inc()
		return
	}
	metrics.PlacesStored.Set(float64(len(places)))
}

// List returns a snapshot of the places in insertion order.
func (s *PlaceStore) List() []domain.Place {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePlaces(s.places)
}

// Get returns the place with the given ID.
func (s *PlaceStore) Get(id string) (domain.Place, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.places {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Place{}, false
}

// NearbyPlace is a place with its distance from a search point.
type NearbyPlace struct {
	domain.Place
	DistanceMeters float64 `json:"distance_m"`
}

// Nearby returns the places within radiusMeters of center, closest first.
func (s *PlaceStore) Nearby(center domain.LatLng, radiusMeters float64, limit int) []NearbyPlace {
	var out []NearbyPlace
	for _, p := range s.List() {
		d := geospatial.Haversine(center.Lat, center.Lng, p.Lat, p.Lng)
		if d <= radiusMeters {
			out = append(out, NearbyPlace{Place: p, DistanceMeters: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []NearbyPlace{}
	}
	return out
}

func clonePlaces(in []domain.Place) []domain.Place {
	out := make([]domain.Place, len(in))
	copy(out, in)
	return out
}

func filterPlaces(in []domain.Place, keep func(domain.Place) bool) []domain.Place {
	out := in[:0]
	for _, p := range in {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
