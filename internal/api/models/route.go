package models

import "github.com/chargefinder/chargefinder/pkg/geo"

// RouteSampleRequest thins a route into evenly spaced waypoints. Exactly one
// of Polyline or Points is set.
type RouteSampleRequest struct {
	Polyline   string           `json:"polyline,omitempty"`
	Points     []geo.Coordinate `json:"points,omitempty"`
	IntervalKm *float64         `json:"intervalKm,omitempty"`
}

// RouteSampleResponse lists the sampled waypoints in route order.
type RouteSampleResponse struct {
	Waypoints     []geo.Coordinate `json:"waypoints"`
	Count         int              `json:"count"`
	IntervalKm    float64          `json:"intervalKm"`
	RouteLengthKm float64          `json:"routeLengthKm"`
}
