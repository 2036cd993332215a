package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/api/models"
	"github.com/chargefinder/chargefinder/internal/api/response"
	"github.com/chargefinder/chargefinder/internal/trip"
)

// TripPlanner plans a route and finds the stations along it.
type TripPlanner interface {
	Plan(ctx context.Context, req trip.PlanRequest) (*trip.Plan, error)
}

// TripHandler handles trip planning.
type TripHandler struct {
	planner TripPlanner
	logger  zerolog.Logger
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(planner TripPlanner, logger zerolog.Logger) *TripHandler {
	return &TripHandler{planner: planner, logger: logger}
}

// PlanTrip handles POST /v1/trips:plan.
//
// Waypoints whose station query failed are listed in failedWaypoints and the
// response is marked partial; the request still succeeds.
func (h *TripHandler) PlanTrip(w http.ResponseWriter, r *http.Request) {
	var input models.TripPlanRequest
	if err := decodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	var errs fieldErrors
	errs.coordinate("origin", input.Origin)
	errs.coordinate("destination", input.Destination)
	errs.positive("radiusKm", input.RadiusKm)
	errs.speeds("chargingSpeeds", input.ChargingSpeeds)
	errs.region("region", input.Region)
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid trip plan request", errs)
		return
	}

	req := trip.PlanRequest{
		Origin:      *input.Origin,
		Destination: *input.Destination,
		Filter: trip.Filter{
			ConnectorTypes: input.ConnectorTypes,
			ChargingSpeeds: input.ChargingSpeeds,
		},
		Region: input.Region,
	}
	if input.RadiusKm != nil {
		req.Filter.RadiusKm = *input.RadiusKm
	}

	plan, err := h.planner.Plan(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	plan.Stations = sortOperators(plan.Stations)
	plan.Clusters = sortClusterOperators(plan.Clusters)

	if len(plan.FailedWaypoints) > 0 {
		h.logger.Warn().
			Int("failed_waypoints", len(plan.FailedWaypoints)).
			Int("waypoints", len(plan.Waypoints)).
			Msg("trip plan is partial")
	}

	w.Header().Set("Cache-Control", "no-store")
	response.JSON(w, r, http.StatusOK, models.TripPlanResponse{
		GeneratedAt: models.Timestamp(time.Now()),
		Partial:     len(plan.FailedWaypoints) > 0,
		Plan:        plan,
	})
}
