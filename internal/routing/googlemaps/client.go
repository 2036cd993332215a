// Package googlemaps provides a routing provider backed by the Google
// Directions API.
package googlemaps

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/provider/googleapi"
	"github.com/chargefinder/chargefinder/internal/provider/resilience"
	"github.com/chargefinder/chargefinder/internal/routing"
	"github.com/chargefinder/chargefinder/pkg/geo"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "google-directions"

	directionsPath = "/maps/api/directions/json"
)

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// ClientConfig holds configuration for the Directions client.
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

// Client is a Google Directions API client.
type Client struct {
	api    *googleapi.Client
	logger zerolog.Logger
}

// NewClient creates a new Directions client.
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

// GetDirections retrieves a single route between two points.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = routing.ModeDriving
	}
	language := req.Language
	if language == "" {
		language = "en"
	}

	params := url.Values{}
	params.Set("origin", latLng(req.Origin))
	params.Set("destination", latLng(req.Destination))
	params.Set("mode", string(mode))
	params.Set("alternatives", "false")
	params.Set("language", language)

	c.logger.Debug().
		Str("mode", string(mode)).
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lng", req.Origin.Lng).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lng", req.Destination.Lng).
		Msg("requesting directions from google")

	var resp directionsResponse
	if err := c.api.Get(ctx, directionsPath, params, &resp); err != nil {
		return nil, mapError(ctx, err)
	}

	result := toDirectionsResponse(&resp)

	c.logger.Debug().
		Int("route_count", len(result.Routes)).
		Msg("received directions from google")

	return result, nil
}

// mapError converts transport and status errors into routing errors.
func mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var statusErr *googleapi.StatusError
	if !errors.As(err, &statusErr) {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      fmt.Errorf("%w: %v", routing.ErrProviderUnavailable, err),
		}
	}

	switch {
	case statusErr.NoResults():
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	case statusErr.RateLimited():
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case statusErr.Denied():
		return &routing.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      routing.ErrAccessDenied,
		}
	case statusErr.Invalid():
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  messageOr(statusErr.Message, "directions request rejected"),
			Err:      routing.ErrInvalidRequest,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     codeFor(statusErr),
			Message:  "routing provider is temporarily unavailable",
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

func codeFor(e *googleapi.StatusError) string {
	if e.Status != "" {
		return e.Status
	}
	return fmt.Sprintf("HTTP_%d", e.HTTPStatus)
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

// toDirectionsResponse converts the Google response to the domain model.
// Distances and durations are summed over legs.
func toDirectionsResponse(resp *directionsResponse) *routing.DirectionsResponse {
	routes := make([]routing.Route, 0, len(resp.Routes))

	for i := range resp.Routes {
		gr := &resp.Routes[i]
		r := routing.Route{
			Polyline: gr.OverviewPolyline.Points,
			Summary:  gr.Summary,
		}

		for j := range gr.Legs {
			l := &gr.Legs[j]
			r.DistanceMeters += l.Distance.Value
			r.DurationSeconds += l.Duration.Value
			for k := range l.Steps {
				s := &l.Steps[k]
				r.Steps = append(r.Steps, routing.Step{
					Instruction:  stripHTML(s.HTMLInstructions),
					DistanceText: s.Distance.Text,
					DurationText: s.Duration.Text,
					Maneuver:     s.Maneuver,
				})
			}
		}

		// Single-leg routes keep Google's localized text.
		if len(gr.Legs) == 1 {
			r.DistanceText = gr.Legs[0].Distance.Text
			r.DurationText = gr.Legs[0].Duration.Text
		}

		routes = append(routes, r)
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
}

// stripHTML turns html_instructions into plain text.
func stripHTML(s string) string {
	s = strings.ReplaceAll(s, "<div", " <div")
	s = htmlTag.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

func latLng(c geo.Coordinate) string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lng)
}
