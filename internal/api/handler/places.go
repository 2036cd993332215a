package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/api/models"
	"github.com/chargefinder/chargefinder/internal/api/response"
	"github.com/chargefinder/chargefinder/internal/places"
)

// PlaceFinder resolves user-entered destinations.
type PlaceFinder interface {
	Autocomplete(ctx context.Context, input, sessionToken string) ([]places.Prediction, error)
	Details(ctx context.Context, placeID, sessionToken string) (*places.Place, error)
	Geocode(ctx context.Context, address string) ([]places.Place, error)
}

// PlacesFlags reports whether destination search is switched off.
type PlacesFlags interface {
	IsPlacesSearchDisabled(ctx context.Context) bool
}

// PlacesHandler handles destination search endpoints.
type PlacesHandler struct {
	places PlaceFinder
	flags  PlacesFlags
	logger zerolog.Logger
}

// NewPlacesHandler creates a new PlacesHandler. flags may be nil.
func NewPlacesHandler(finder PlaceFinder, flags PlacesFlags, logger zerolog.Logger) *PlacesHandler {
	return &PlacesHandler{places: finder, flags: flags, logger: logger}
}

// Autocomplete handles GET /v1/places:autocomplete.
func (h *PlacesHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	if h.disabled(w, r) {
		return
	}

	q := r.URL.Query()
	predictions, err := h.places.Autocomplete(r.Context(), q.Get("input"), q.Get("sessionToken"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if predictions == nil {
		predictions = []places.Prediction{}
	}

	w.Header().Set("Cache-Control", "no-store")
	response.JSON(w, r, http.StatusOK, models.PredictionList{Items: predictions})
}

// GetPlace handles GET /v1/places/{placeId}.
func (h *PlacesHandler) GetPlace(w http.ResponseWriter, r *http.Request) {
	if h.disabled(w, r) {
		return
	}

	placeID := strings.TrimSpace(chi.URLParam(r, "placeId"))
	place, err := h.places.Details(r.Context(), placeID, r.URL.Query().Get("sessionToken"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, place)
}

// Geocode handles GET /v1/places:geocode.
func (h *PlacesHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	if h.disabled(w, r) {
		return
	}

	results, err := h.places.Geocode(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if results == nil {
		results = []places.Place{}
	}

	response.JSON(w, r, http.StatusOK, models.PlaceList{Items: results})
}

func (h *PlacesHandler) disabled(w http.ResponseWriter, r *http.Request) bool {
	if h.flags == nil || !h.flags.IsPlacesSearchDisabled(r.Context()) {
		return false
	}
	response.ServiceUnavailable(w, r, "destination search is temporarily disabled", 0)
	return true
}
