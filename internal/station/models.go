// Package station provides charging station search and result merging.
package station

import (
	"context"
	"errors"

	"github.com/chargefinder/chargefinder/pkg/geo"
)

// Sentinel errors for station search operations.
var (
	// ErrProviderUnavailable indicates the search API is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("station provider unavailable")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidRequest indicates the search parameters were rejected.
	ErrInvalidRequest = errors.New("invalid station search request")
)

// Provider defines the interface for station search backends.
type Provider interface {
	// Search returns the stations within RadiusKm of the request center.
	Search(ctx context.Context, req SearchRequest) ([]Station, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// ChargingSpeed classifies a station by its fastest charge point.
type ChargingSpeed string

const (
	SpeedAC     ChargingSpeed = "AC"
	SpeedDCSlow ChargingSpeed = "DC Slow"
	SpeedDCFast ChargingSpeed = "DC Fast"
)

// Valid reports whether s is one of the known charging speeds.
func (s ChargingSpeed) Valid() bool {
	switch s {
	case SpeedAC, SpeedDCSlow, SpeedDCFast:
		return true
	default:
		return false
	}
}

// Connector types understood by the search API.
const (
	ConnectorType2   = "Type 2"
	ConnectorCCS     = "CCS"
	ConnectorCHAdeMO = "CHAdeMO"
	ConnectorTesla   = "Tesla"
)

// ConnectorTypes lists the supported connector filters in display order.
var ConnectorTypes = []string{ConnectorType2, ConnectorCCS, ConnectorCHAdeMO, ConnectorTesla}

// ChargingSpeeds lists the supported speed filters in display order.
var ChargingSpeeds = []ChargingSpeed{SpeedAC, SpeedDCSlow, SpeedDCFast}

// PinColors maps a charging speed to its marker color.
var PinColors = map[ChargingSpeed]string{
	SpeedAC:     "#3B82F6",
	SpeedDCSlow: "#5B21B6",
	SpeedDCFast: "#A855F7",
}

// Station is a charging location as returned by the search API.
// ID is unique within any result set and is the merge key.
type Station struct {
	ID             string        `json:"id"`
	Name           string        `json:"name,omitempty"`
	Address        string        `json:"address,omitempty"`
	Lat            float64       `json:"lat"`
	Lng            float64       `json:"lng"`
	ChargingSpeed  ChargingSpeed `json:"chargingSpeed,omitempty"`
	Power          string        `json:"power,omitempty"`
	Available      int           `json:"available"`
	Total          int           `json:"total"`
	ConnectorTypes []string      `json:"connectorTypes,omitempty"`
	Operators      []Operator    `json:"operators,omitempty"`
}

// Coordinate returns the station position.
func (s Station) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: s.Lat, Lng: s.Lng}
}

// Operator is a charging network selling energy at a station.
type Operator struct {
	Name        string  `json:"name"`
	PricePerKwh float64 `json:"pricePerKwh"`
	Website     string  `json:"website,omitempty"`
}

// SearchRequest describes a radius search around a point.
type SearchRequest struct {
	Center         geo.Coordinate
	RadiusKm       float64
	ConnectorTypes []string
	ChargingSpeeds []string
}

// Error provides detailed error information from the station provider.
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
