// Package routing provides driving directions between two points.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/chargefinder/chargefinder/pkg/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrInvalidRequest indicates request parameters other than coordinates were rejected.
	ErrInvalidRequest = errors.New("invalid routing request")
	// ErrAccessDenied indicates the provider rejected the configured credentials.
	ErrAccessDenied = errors.New("routing provider denied access")
)

// Provider defines the interface for routing providers.
type Provider interface {
	// GetDirections retrieves route directions between two points.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// TravelMode is the means of transport a route is computed for.
type TravelMode string

const (
	// ModeDriving is the default; stations are only useful along drivable routes.
	ModeDriving TravelMode = "driving"
	// ModeWalking routes along pedestrian paths, e.g. from a parked car to a charger.
	ModeWalking TravelMode = "walking"
)

// Valid reports whether m is a supported travel mode.
func (m TravelMode) Valid() bool {
	return m == ModeDriving || m == ModeWalking
}

// DirectionsRequest is the request for computing a route.
type DirectionsRequest struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Mode        TravelMode // defaults to ModeDriving
	Language    string     // defaults to "en"
}

// DirectionsResponse is the response containing the computed routes.
type DirectionsResponse struct {
	Routes    []Route   `json:"routes"`
	Provider  string    `json:"provider"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Route represents a single route option.
type Route struct {
	Polyline        string `json:"polyline"` // Encoded overview polyline (precision 5)
	DistanceMeters  int    `json:"distanceMeters"`
	DurationSeconds int    `json:"durationSeconds"`
	DistanceText    string `json:"distanceText,omitempty"`
	DurationText    string `json:"durationText,omitempty"`
	Summary         string `json:"summary,omitempty"`
	Steps           []Step `json:"steps,omitempty"`
}

// Step is one turn-by-turn instruction.
type Step struct {
	Instruction  string `json:"instruction"`
	DistanceText string `json:"distanceText,omitempty"`
	DurationText string `json:"durationText,omitempty"`
	Maneuver     string `json:"maneuver,omitempty"`
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
