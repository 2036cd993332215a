package handler

import (
	"context"
	"net/http"

	"github.com/chargefinder/chargefinder/internal/api/models"
	"github.com/chargefinder/chargefinder/internal/api/response"
	"github.com/chargefinder/chargefinder/pkg/geo"
	"github.com/chargefinder/chargefinder/pkg/polyline"
)

// maxRoutePoints bounds the size of a route accepted for sampling.
const maxRoutePoints = 100_000

// IntervalFlags supplies the runtime waypoint spacing.
type IntervalFlags interface {
	RouteSampleIntervalKm(ctx context.Context, fallback float64) float64
}

// RouteHandler handles route utilities.
type RouteHandler struct {
	defaultIntervalKm float64
	flags             IntervalFlags
}

// NewRouteHandler creates a new RouteHandler. flags may be nil.
func NewRouteHandler(defaultIntervalKm float64, flags IntervalFlags) *RouteHandler {
	if defaultIntervalKm <= 0 {
		defaultIntervalKm = 10
	}
	return &RouteHandler{defaultIntervalKm: defaultIntervalKm, flags: flags}
}

// SampleRoute handles POST /v1/routes:sample. It accepts an encoded
// polyline or a point list and returns the waypoints the trip planner would
// query.
func (h *RouteHandler) SampleRoute(w http.ResponseWriter, r *http.Request) {
	var input models.RouteSampleRequest
	if err := decodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	var errs fieldErrors
	hasPolyline := input.Polyline != ""
	hasPoints := len(input.Points) > 0
	switch {
	case hasPolyline == hasPoints:
		errs.add("polyline", "EXACTLY_ONE", "exactly one of polyline or points is required")
	case hasPoints && len(input.Points) > maxRoutePoints:
		errs.add("points", "TOO_MANY", "at most %d points are accepted", maxRoutePoints)
	}
	errs.positive("intervalKm", input.IntervalKm)
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid route sample request", errs)
		return
	}

	points := input.Points
	if hasPolyline {
		decoded, err := polyline.Decode(input.Polyline)
		if err != nil {
			response.BadRequest(w, r, "invalid route sample request", []models.FieldError{
				{Field: "polyline", Code: "MALFORMED", Message: err.Error()},
			})
			return
		}
		points = decoded
	}
	for i := range points {
		if err := points[i].Validate(); err != nil {
			errs.add("points", "OUT_OF_RANGE", "point %d: %s", i, err.Error())
			break
		}
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid route sample request", errs)
		return
	}

	interval := h.defaultIntervalKm
	if h.flags != nil {
		interval = h.flags.RouteSampleIntervalKm(r.Context(), interval)
	}
	if input.IntervalKm != nil {
		interval = *input.IntervalKm
	}

	waypoints := geo.SampleRoute(points, interval)
	if waypoints == nil {
		waypoints = []geo.Coordinate{}
	}

	response.JSON(w, r, http.StatusOK, models.RouteSampleResponse{
		Waypoints:     waypoints,
		Count:         len(waypoints),
		IntervalKm:    interval,
		RouteLengthKm: geo.RouteLengthKm(points),
	})
}
