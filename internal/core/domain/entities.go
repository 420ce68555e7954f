package domain

import (
	"errors"
	"time"
)

// Place is a user-created point of interest.
type Place struct {
	ID          string  `json:"id"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description"`
}

// At reports whether the place sits exactly on (lat, lng).
func (p Place) At(lat, lng float64) bool {
	return p.Lat == lat && p.Lng == lng
}

// Point returns the place coordinates.
func (p Place) Point() LatLng {
	return LatLng{Lat: p.Lat, Lng: p.Lng}
}

// Marker is the visual on-map representation of a Place.
type Marker struct {
	ID          string  `json:"id"`
	PlaceID     string  `json:"place_id"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description"`
	Interactive bool    `json:"interactive"` // fixed at creation
}

// OverlayStyle is the path style applied to a country overlay.
type OverlayStyle struct {
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
}

// CountryStyle is the fixed style for highlighted countries.
var CountryStyle = OverlayStyle{
	Color:       "#3388ff",
	Weight:      2,
	Opacity:     0.65,
	FillColor:   "#3388ff",
	FillOpacity: 0.2,
}

// CountryOverlay is one rendered boundary feature of a country.
type CountryOverlay struct {
	CountryCode string       `json:"country_code"`
	Geometry    Geometry     `json:"geometry"`
	Style       OverlayStyle `json:"style"`
}

// Resolution reports the outcome of one boundary resolver run.
type Resolution struct {
	Generation uint64        `json:"generation"`
	Countries  []string      `json:"countries"`
	Overlays   int           `json:"overlays"`
	Failures   int           `json:"failures"`
	Applied    bool          `json:"applied"`
	Duration   time.Duration `json:"duration"`
}

// Mode is the operating mode of the map.
type Mode string

const (
	ModeEdit Mode = "edit"
	ModeView Mode = "view"
)

// ModeFor maps the edit flag to a Mode.
func ModeFor(edit bool) Mode {
	if edit {
		return ModeEdit
	}
	return ModeView
}

// ModeForOrigin derives the startup mode from the deployment origin:
// local deployments edit, hosted ones only view.
func ModeForOrigin(origin string) Mode {
	return ModeFor(IsLocalOrigin(origin))
}

// Question is a prompt shown to the user.
type Question struct {
	Text    string `json:"text"`
	Default string `json:"default,omitempty"`
}

// Marker interaction choices.
const (
	ActionEdit   = "1"
	ActionDelete = "2"
)

// MapEventType names a visible change on the map.
type MapEventType string

const (
	EventPlaceCreated     MapEventType = "place.created"
	EventPlaceUpdated     MapEventType = "place.updated"
	EventPlaceDeleted     MapEventType = "place.deleted"
	EventOverlaysRendered MapEventType = "overlays.rendered"
	EventModeChanged      MapEventType = "mode.changed"
)

// MapEvent is published on every visible change of the map.
type MapEvent struct {
	Type       MapEventType `json:"type"`
	Place      *Place       `json:"place,omitempty"`
	MarkerID   string       `json:"marker_id,omitempty"`
	Mode       Mode         `json:"mode,omitempty"`
	Generation uint64       `json:"generation,omitempty"`
	Countries  []string     `json:"countries,omitempty"`
	At         time.Time    `json:"at"`
}

var (
	ErrPlaceNotFound        = errors.New("place not found")
	ErrMarkerNotFound       = errors.New("marker not found")
	ErrMarkerNotInteractive = errors.New("marker is not interactive")
	ErrBlobNotFound         = errors.New("blob not found")
	ErrClickIgnored         = errors.New("map click ignored: no handler attached")
	ErrInvalidCoordinates   = errors.New("coordinates must be finite, lat in [-90, 90] and lng in [-180, 180]")
)
