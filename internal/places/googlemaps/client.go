// Package googlemaps provides a places provider backed by the Google Places
// and Geocoding APIs.
package googlemaps

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/places"
	"github.com/chargefinder/chargefinder/internal/provider/googleapi"
	"github.com/chargefinder/chargefinder/internal/provider/resilience"
	"github.com/chargefinder/chargefinder/pkg/geo"
)

const (
	// ProviderName identifies this places provider.
	ProviderName = "google-places"

	autocompletePath = "/maps/api/place/autocomplete/json"
	detailsPath      = "/maps/api/place/details/json"
	geocodePath      = "/maps/api/geocode/json"

	autocompleteTypes = "geocode|establishment"
	detailsFields     = "geometry,formatted_address,name"
)

// ClientConfig holds configuration for the places client.
type ClientConfig struct {
	// APIKey is the Maps Platform API key (required).
	APIKey string

	// BaseURL is the API host (optional, defaults to maps.googleapis.com).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient googleapi.HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Google Places client.
type Client struct {
	api    *googleapi.Client
	logger zerolog.Logger
}

// NewClient creates a new places client.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		api: googleapi.NewClient(googleapi.Config{
			Name:       ProviderName,
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			HTTPClient: cfg.HTTPClient,
			Timeout:    cfg.Timeout,
			Registry:   cfg.Registry,
			Logger:     cfg.Logger,
		}),
		logger: cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Autocomplete returns predictions for a partial query. ZERO_RESULTS is an
// empty list, not an error.
func (c *Client) Autocomplete(ctx context.Context, req places.AutocompleteRequest) ([]places.Prediction, error) {
	params := url.Values{}
	params.Set("input", req.Input)
	params.Set("types", autocompleteTypes)
	if req.SessionToken != "" {
		params.Set("sessiontoken", req.SessionToken)
	}
	if req.Region != "" {
		params.Set("components", "country:"+req.Region)
	}
	if req.Language != "" {
		params.Set("language", req.Language)
	}

	var resp autocompleteResponse
	if err := c.api.Get(ctx, autocompletePath, params, &resp); err != nil {
		if isZeroResults(err) {
			return []places.Prediction{}, nil
		}
		return nil, mapError(ctx, err)
	}

	out := make([]places.Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, places.Prediction{
			PlaceID:       p.PlaceID,
			Description:   p.Description,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
			Types:         p.Types,
		})
	}

	c.logger.Debug().
		Int("prediction_count", len(out)).
		Msg("received autocomplete predictions")

	return out, nil
}

// Details resolves a place id to its name, address and location.
func (c *Client) Details(ctx context.Context, placeID, sessionToken string) (*places.Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailsFields)
	if sessionToken != "" {
		params.Set("sessiontoken", sessionToken)
	}

	var resp detailsResponse
	if err := c.api.Get(ctx, detailsPath, params, &resp); err != nil {
		return nil, mapError(ctx, err)
	}

	place := toPlace(resp.Result)
	if place.PlaceID == "" {
		place.PlaceID = placeID
	}
	return &place, nil
}

// Geocode resolves an address. ZERO_RESULTS is an empty list.
func (c *Client) Geocode(ctx context.Context, address, region string) ([]places.Place, error) {
	params := url.Values{}
	params.Set("address", address)
	if region != "" {
		params.Set("region", region)
	}

	var resp geocodeResponse
	if err := c.api.Get(ctx, geocodePath, params, &resp); err != nil {
		if isZeroResults(err) {
			return []places.Place{}, nil
		}
		return nil, mapError(ctx, err)
	}

	out := make([]places.Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, toPlace(r))
	}
	return out, nil
}

func toPlace(r placeResult) places.Place {
	return places.Place{
		PlaceID:          r.PlaceID,
		Name:             r.Name,
		FormattedAddress: r.FormattedAddress,
		Location:         geo.Coordinate{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
	}
}

func isZeroResults(err error) bool {
	var statusErr *googleapi.StatusError
	return errors.As(err, &statusErr) && statusErr.Status == googleapi.StatusZeroResults
}

// mapError converts transport and status errors into places errors.
func mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var statusErr *googleapi.StatusError
	if !errors.As(err, &statusErr) {
		return &places.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach places provider",
			Err:      fmt.Errorf("%w: %v", places.ErrProviderUnavailable, err),
		}
	}

	switch {
	case statusErr.NoResults():
		return &places.Error{
			Provider: ProviderName,
			Code:     "NOT_FOUND",
			Message:  "no place matched the request",
			Err:      places.ErrNotFound,
		}
	case statusErr.RateLimited():
		return &places.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      places.ErrRateLimitExceeded,
		}
	case statusErr.Denied():
		return &places.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      places.ErrAccessDenied,
		}
	case statusErr.Invalid():
		msg := statusErr.Message
		if msg == "" {
			msg = "places request rejected"
		}
		return &places.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  msg,
			Err:      places.ErrInvalidRequest,
		}
	default:
		code := statusErr.Status
		if code == "" {
			code = fmt.Sprintf("HTTP_%d", statusErr.HTTPStatus)
		}
		return &places.Error{
			Provider: ProviderName,
			Code:     code,
			Message:  "places provider is temporarily unavailable",
			Err:      places.ErrProviderUnavailable,
		}
	}
}
