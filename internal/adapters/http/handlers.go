package http

import (
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/pinmap/internal/adapters/mapview"
	"github.com/samirrijal/pinmap/internal/adapters/prompt"
	"github.com/samirrijal/pinmap/internal/core/domain"
)

// ListPlacesHandler returns the stored places in insertion order.
func ListPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		places, pg := paginate(c, deps.Session.Store().List(), 100, 500)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: places, Pagination: pg})
	}
}

// NearbyPlacesHandler returns places within a radius of a point.
func NearbyPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, lng := c.Query("lat"), c.Query("lng")
		if lat == "" || lng == "" {
			return errBadRequest(c, "lat and lng are required")
		}
		at := domain.LatLng{Lat: c.QueryFloat("lat", 0), Lng: c.QueryFloat("lng", 0)}
		if !at.Valid() {
			return errBadRequest(c, domain.ErrInvalidCoordinates.Error())
		}
		radius := c.QueryFloat("radius", 50000)
		if math.IsNaN(radius) || radius <= 0 || radius > 20_000_000 {
			return errBadRequest(c, "radius must be between 1 and 20000000 meters")
		}
		limit := c.QueryInt("limit", 50)
		if limit <= 0 || limit > 500 {
			limit = 50
		}

		return c.JSON(deps.Session.Store().Nearby(at, radius, limit))
	}
}

// GetPlaceHandler returns one place by ID.
func GetPlaceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		place, ok := deps.Session.Store().Get(c.Params("id"))
		if !ok {
			return errNotFound(c, domain.ErrPlaceNotFound.Error())
		}
		return c.JSON(place)
	}
}

type clickRequest struct {
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Description *string  `json:"description"`
}

// MapClickHandler delivers a map click. The description answers the
// "describe this place" prompt; omitting it cancels the prompt.
func MapClickHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req clickRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Lat == nil || req.Lng == nil {
			return errBadRequest(c, "lat and lng are required")
		}
		if !(domain.LatLng{Lat: *req.Lat, Lng: *req.Lng}).Valid() {
			return errBadRequest(c, domain.ErrInvalidCoordinates.Error())
		}

		ctx := prompt.WithAnswers(c.UserContext(), prompt.Of(req.Description))
		place, err := deps.View.Click(ctx, domain.LatLng{Lat: *req.Lat, Lng: *req.Lng})
		switch {
		case errors.Is(err, domain.ErrClickIgnored):
			return errConflict(c, "map is in view mode")
		case errors.Is(err, domain.ErrInvalidCoordinates):
			return errBadRequest(c, err.Error())
		case err != nil:
			LoggerFromCtx(ctx).Error("map click failed", "error", err)
			return errInternal(c, err.Error())
		case place == nil:
			return c.SendStatus(fiber.StatusNoContent)
		}

		c.Location("/v1/places/" + place.ID)
		return c.Status(fiber.StatusCreated).JSON(place)
	}
}

type activateRequest struct {
	Action      *string `json:"action"`
	Description *string `json:"description"`
}

// ActivateMarkerHandler runs the marker interaction. action answers the
// edit/delete choice and description the new-description prompt.
func ActivateMarkerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req activateRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}

		id := c.Params("id")
		ctx := prompt.WithAnswers(c.UserContext(), prompt.Of(req.Action), prompt.Of(req.Description))
		err := deps.Session.Presenter().Activate(ctx, id)
		switch {
		case errors.Is(err, domain.ErrMarkerNotFound):
			return errNotFound(c, err.Error())
		case errors.Is(err, domain.ErrMarkerNotInteractive):
			return errForbidden(c, err.Error())
		case err != nil:
			LoggerFromCtx(ctx).Error("marker activation failed", "marker_id", id, "error", err)
			return errInternal(c, err.Error())
		}

		action := ""
		if req.Action != nil {
			action = strings.TrimSpace(*req.Action)
		}
		switch {
		case action == domain.ActionDelete:
			return c.JSON(fiber.Map{"deleted": true, "marker_id": id})
		case action == domain.ActionEdit && req.Description != nil:
			m, _ := deps.View.Marker(id)
			return c.JSON(fiber.Map{"deleted": false, "marker": m})
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// MarkersHandler returns the rendered markers as GeoJSON.
func MarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(mapview.MarkersGeoJSON(deps.View.Markers()), "application/geo+json")
	}
}

// OverlaysHandler returns the rendered country overlays as GeoJSON,
// optionally filtered by ?country=.
func OverlaysHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		overlays := deps.View.Overlays()
		if country := strings.ToLower(strings.TrimSpace(c.Query("country"))); country != "" {
			filtered := overlays[:0]
			for _, o := range overlays {
				if o.CountryCode == country {
					filtered = append(filtered, o)
				}
			}
			overlays = filtered
		}
		return c.JSON(mapview.OverlaysGeoJSON(overlays), "application/geo+json")
	}
}

// GetModeHandler returns the current mode.
func GetModeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(modeResponse(deps))
	}
}

type modeRequest struct {
	Edit *bool `json:"edit"`
}

// SetModeHandler switches between edit and view mode.
func SetModeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req modeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Edit == nil {
			return errBadRequest(c, "edit is required")
		}
		deps.Session.Modes().SetMode(c.UserContext(), *req.Edit)
		return c.JSON(modeResponse(deps))
	}
}

func modeResponse(deps *Dependencies) fiber.Map {
	return fiber.Map{
		"mode":      deps.Session.Modes().Mode(),
		"clickable": deps.View.Clickable(),
	}
}

// RefreshHighlightsHandler recomputes the country highlights and waits for
// the run to finish.
func RefreshHighlightsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := deps.Session.Refresh(c.UserContext())
		if !res.Applied {
			slog.DebugContext(c.UserContext(), "refresh superseded", "generation", res.Generation)
		}
		return c.JSON(res)
	}
}
