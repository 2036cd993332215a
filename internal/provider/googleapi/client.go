// Package googleapi is the shared transport for Google Maps Platform web
// services. It signs requests with the API key, runs them through the
// resilient HTTP client and unwraps the {"status", "error_message"} envelope
// every Maps endpoint returns.
package googleapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the Google Maps Platform host.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// Response statuses shared by the Directions, Places and Geocoding APIs.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusNotFound       = "NOT_FOUND"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusInvalidRequest = "INVALID_REQUEST"
	StatusUnknownError   = "UNKNOWN_ERROR"
)

// ErrUnreachable indicates the request never produced an HTTP response.
var ErrUnreachable = errors.New("google maps api unreachable")

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds configuration for a Google Maps API client.
type Config struct {
	// Name identifies the calling provider in logs and the registry (required).
	Name string

	// APIKey is the Maps Platform API key (required).
	APIKey string

	// BaseURL is the API host (optional, defaults to maps.googleapis.com).
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

// Client performs authenticated GET requests against Maps endpoints.
type Client struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Google Maps API client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(cfg.Name)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		name:       cfg.Name,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name the client was built for.
func (c *Client) Name() string {
	return c.name
}

// StatusError is a non-OK answer from a Maps endpoint. Either Status carries
// the API status string or HTTPStatus carries a non-200 HTTP code.
type StatusError struct {
	Status     string
	Message    string
	HTTPStatus int
}

func (e *StatusError) Error() string {
	var b strings.Builder
	b.WriteString("google maps api: ")
	if e.Status != "" {
		b.WriteString(e.Status)
	} else {
		fmt.Fprintf(&b, "HTTP %d", e.HTTPStatus)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// NoResults reports whether the request was valid but matched nothing.
func (e *StatusError) NoResults() bool {
	return e.Status == StatusZeroResults || e.Status == StatusNotFound
}

// RateLimited reports whether the quota was exhausted.
func (e *StatusError) RateLimited() bool {
	return e.Status == StatusOverQueryLimit || e.HTTPStatus == http.StatusTooManyRequests
}

// Denied reports whether the key was rejected or lacks access to the API.
func (e *StatusError) Denied() bool {
	return e.Status == StatusRequestDenied || e.HTTPStatus == http.StatusForbidden
}

// Invalid reports whether the request parameters were rejected.
func (e *StatusError) Invalid() bool {
	return e.Status == StatusInvalidRequest || e.HTTPStatus == http.StatusBadRequest
}

type envelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Get calls path with params plus the API key and decodes the body into out.
// A non-200 response or a status other than OK yields a *StatusError.
// Transport failures wrap ErrUnreachable unless ctx is done, in which case
// the context error is returned.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("key", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("provider", c.name).
		Str("path", path).
		Msg("calling google maps api")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	var env envelope
	_ = json.Unmarshal(body, &env) //nolint:errcheck // non-JSON error pages carry no envelope

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Status: env.Status, Message: env.ErrorMessage, HTTPStatus: resp.StatusCode}
	}
	if env.Status == "" {
		return &StatusError{Message: "response has no status", HTTPStatus: resp.StatusCode}
	}
	if env.Status != StatusOK {
		return &StatusError{Status: env.Status, Message: env.ErrorMessage, HTTPStatus: resp.StatusCode}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
