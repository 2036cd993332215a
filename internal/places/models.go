// Package places provides destination search: autocomplete, place details
// and address geocoding.
package places

import (
	"context"
	"errors"

	"github.com/chargefinder/chargefinder/pkg/geo"
)

// Sentinel errors for place lookups.
var (
	// ErrProviderUnavailable indicates the places provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("places provider unavailable")
	// ErrNotFound indicates the place id or address matched nothing.
	ErrNotFound = errors.New("place not found")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidRequest indicates the query was rejected.
	ErrInvalidRequest = errors.New("invalid places request")
	// ErrAccessDenied indicates the provider rejected the configured credentials.
	ErrAccessDenied = errors.New("places provider denied access")
)

// Provider defines the interface for place search backends.
type Provider interface {
	// Autocomplete returns predictions for a partial query.
	Autocomplete(ctx context.Context, req AutocompleteRequest) ([]Prediction, error)
	// Details resolves a place id to a location.
	Details(ctx context.Context, placeID, sessionToken string) (*Place, error)
	// Geocode resolves a free-form address.
	Geocode(ctx context.Context, address, region string) ([]Place, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// AutocompleteRequest is a partial query typed by the user.
type AutocompleteRequest struct {
	Input        string
	SessionToken string
	Region       string // ISO 3166-1 alpha-2 country restriction
	Language     string
}

// Prediction is one autocomplete suggestion.
type Prediction struct {
	PlaceID       string   `json:"placeId"`
	Description   string   `json:"description"`
	MainText      string   `json:"mainText,omitempty"`
	SecondaryText string   `json:"secondaryText,omitempty"`
	Types         []string `json:"types,omitempty"`
}

// Place is a resolved location.
type Place struct {
	PlaceID          string         `json:"placeId"`
	Name             string         `json:"name,omitempty"`
	FormattedAddress string         `json:"formattedAddress"`
	Location         geo.Coordinate `json:"location"`
}

// Error provides detailed error information from the places provider.
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
