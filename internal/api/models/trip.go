package models

import (
	"github.com/chargefinder/chargefinder/internal/trip"
	"github.com/chargefinder/chargefinder/pkg/geo"
)

// TripPlanRequest asks for the stations along the driving route between two points.
type TripPlanRequest struct {
	Origin         *geo.Coordinate `json:"origin"`
	Destination    *geo.Coordinate `json:"destination"`
	RadiusKm       *float64        `json:"radiusKm,omitempty"`
	ConnectorTypes []string        `json:"connectorTypes,omitempty"`
	ChargingSpeeds []string        `json:"chargingSpeeds,omitempty"`
	Region         *geo.Region     `json:"region,omitempty"`
}

// TripPlanResponse is a planned trip. Partial is true when some waypoint
// queries failed and their stations are missing.
type TripPlanResponse struct {
	GeneratedAt Timestamp `json:"generatedAt"`
	Partial     bool      `json:"partial"`
	*trip.Plan
}
