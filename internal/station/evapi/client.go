// Package evapi provides a client for the remote charging station search API.
package evapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/provider/resilience"
	"github.com/chargefinder/chargefinder/internal/station"
)

const (
	// ProviderName identifies this station provider.
	ProviderName = "evapi"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	searchPath = "/charging-stations"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the station API client.
type ClientConfig struct {
	// BaseURL is the API base URL including any path prefix (required),
	// e.g. https://stations.example.com/api.
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a station search API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new station API client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Search queries stations within req.RadiusKm of req.Center.
// Filters are sent comma-joined and omitted when empty.
func (c *Client) Search(ctx context.Context, req station.SearchRequest) ([]station.Station, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(req.Center.Lat, 'f', -1, 64))
	params.Set("lng", strconv.FormatFloat(req.Center.Lng, 'f', -1, 64))
	params.Set("radius", strconv.FormatFloat(req.RadiusKm, 'f', -1, 64))
	if len(req.ConnectorTypes) > 0 {
		params.Set("connectorTypes", strings.Join(req.ConnectorTypes, ","))
	}
	if len(req.ChargingSpeeds) > 0 {
		params.Set("chargingSpeeds", strings.Join(req.ChargingSpeeds, ","))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("ngrok-skip-browser-warning", "true")

	c.logger.Debug().
		Float64("lat", req.Center.Lat).
		Float64("lng", req.Center.Lng).
		Float64("radius_km", req.RadiusKm).
		Strs("connector_types", req.ConnectorTypes).
		Strs("charging_speeds", req.ChargingSpeeds).
		Msg("requesting stations")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &station.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach station provider",
			Err:      station.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	stations, err := decodeStations(body)
	if err != nil {
		return nil, &station.Error{
			Provider: ProviderName,
			Code:     "BAD_RESPONSE",
			Message:  "station provider returned an unreadable body",
			Err:      fmt.Errorf("%w: %v", station.ErrProviderUnavailable, err),
		}
	}

	c.logger.Debug().
		Int("station_count", len(stations)).
		Msg("received stations")

	return stations, nil
}

// handleErrorResponse maps non-200 responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr) //nolint:errcheck // message is optional
	message := apiErr.message()

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &station.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "station API rate limit exceeded, please try again later",
			Err:      station.ErrRateLimitExceeded,
		}
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		if message == "" {
			message = "station search parameters rejected"
		}
		return &station.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  message,
			Err:      station.ErrInvalidRequest,
		}
	case statusCode >= 500:
		return &station.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "station provider is temporarily unavailable",
			Err:      station.ErrProviderUnavailable,
		}
	default:
		if message == "" {
			message = fmt.Sprintf("station provider returned status %d", statusCode)
		}
		return &station.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  message,
			Err:      station.ErrProviderUnavailable,
		}
	}
}
