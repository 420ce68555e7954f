package mapview

import (
	"encoding/json"

	"github.com/samirrijal/pinmap/internal/core/domain"
)

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	BBox     []float64 `json:"bbox,omitempty"` // west, south, east, north
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type pointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"` // [lng, lat]
}

// MarkersGeoJSON renders markers as Point features.
func MarkersGeoJSON(markers []domain.Marker) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(markers))}
	points := make([]domain.LatLng, 0, len(markers))
	for _, m := range markers {
		points = append(points, domain.LatLng{Lat: m.Lat, Lng: m.Lng})
		geom, _ := json.Marshal(pointGeometry{Type: "Point", Coordinates: [2]float64{m.Lng, m.Lat}})
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			ID:       m.ID,
			Geometry: geom,
			Properties: map[string]any{
				"place_id":    m.PlaceID,
				"description": m.Description,
				"interactive": m.Interactive,
			},
		})
	}
	if b, ok := domain.BoundsOf(points); ok {
		fc.BBox = []float64{b.MinLng, b.MinLat, b.MaxLng, b.MaxLat}
	}
	return fc
}

// OverlaysGeoJSON renders overlays as features carrying their path style.
func OverlaysGeoJSON(overlays []domain.CountryOverlay) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(overlays))}
	for _, o := range overlays {
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			Geometry: json.RawMessage(o.Geometry),
			Properties: map[string]any{
				"country_code": o.CountryCode,
				"style":        o.Style,
			},
		})
	}
	return fc
}
