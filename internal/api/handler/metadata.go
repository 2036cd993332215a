package handler

import (
	"net/http"
	"time"

	"github.com/chargefinder/chargefinder/internal/api/models"
	"github.com/chargefinder/chargefinder/internal/api/response"
	"github.com/chargefinder/chargefinder/internal/station"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct {
	filters models.Filters
}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler(defaultRadiusKm, maxRadiusKm float64) *MetadataHandler {
	speeds := make([]models.SpeedOption, 0, len(station.ChargingSpeeds))
	for _, s := range station.ChargingSpeeds {
		speeds = append(speeds, models.SpeedOption{Value: string(s), PinColor: station.PinColors[s]})
	}
	connectors := make([]string, len(station.ConnectorTypes))
	copy(connectors, station.ConnectorTypes)

	return &MetadataHandler{
		filters: models.Filters{
			ConnectorTypes:  connectors,
			ChargingSpeeds:  speeds,
			DefaultRadiusKm: defaultRadiusKm,
			MaxRadiusKm:     maxRadiusKm,
		},
	}
}

// GetFilters handles GET /v1/metadata/filters.
func (h *MetadataHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	response.JSONCached(w, r, time.Hour, h.filters)
}
