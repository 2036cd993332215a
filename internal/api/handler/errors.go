package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/api/response"
	"github.com/chargefinder/chargefinder/internal/places"
	"github.com/chargefinder/chargefinder/internal/report"
	"github.com/chargefinder/chargefinder/internal/routing"
	"github.com/chargefinder/chargefinder/internal/station"
	"github.com/chargefinder/chargefinder/internal/trip"
	"github.com/chargefinder/chargefinder/pkg/geo"
)

const (
	rateLimitRetryAfter   = time.Minute
	unavailableRetryAfter = 30 * time.Second
)

// writeError maps a service error to a Problem response. Unknown errors are
// reported and returned as 500s without leaking their text.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	detail := errorDetail(err)

	switch {
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("request canceled")
		return

	case errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, "upstream request timed out", unavailableRetryAfter)

	case errors.Is(err, station.ErrInvalidRequest),
		errors.Is(err, places.ErrInvalidRequest),
		errors.Is(err, routing.ErrInvalidRequest),
		errors.Is(err, routing.ErrInvalidCoordinates),
		errors.Is(err, geo.ErrInvalidCoordinate),
		errors.Is(err, trip.ErrEmptyRoute):
		response.BadRequest(w, r, detail, nil)

	case errors.Is(err, places.ErrNotFound),
		errors.Is(err, routing.ErrNoRouteFound):
		response.NotFound(w, r, detail)

	case errors.Is(err, station.ErrRateLimitExceeded),
		errors.Is(err, places.ErrRateLimitExceeded),
		errors.Is(err, routing.ErrRateLimitExceeded):
		response.TooManyRequests(w, r, "upstream quota exceeded, try again later", rateLimitRetryAfter)

	case errors.Is(err, trip.ErrBadPolyline):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("upstream returned unusable route")
		response.BadGateway(w, r, detail)

	case errors.Is(err, station.ErrProviderUnavailable),
		errors.Is(err, places.ErrProviderUnavailable),
		errors.Is(err, places.ErrAccessDenied),
		errors.Is(err, routing.ErrProviderUnavailable),
		errors.Is(err, routing.ErrAccessDenied):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream provider unavailable")
		response.ServiceUnavailable(w, r, detail, unavailableRetryAfter)

	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		report.ErrorWithOptions(err, report.Options{
			Tags: map[string]string{"path": r.URL.Path},
		})
		response.InternalError(w, r, "an unexpected error occurred")
	}
}

// errorDetail prefers the provider message of typed errors over the wrapped chain.
func errorDetail(err error) string {
	var se *station.Error
	if errors.As(err, &se) {
		return se.Message
	}
	var re *routing.Error
	if errors.As(err, &re) {
		return re.Message
	}
	var pe *places.Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
