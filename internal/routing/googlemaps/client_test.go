package googlemaps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/routing"
	"github.com/chargefinder/chargefinder/pkg/geo"
	"github.com/chargefinder/chargefinder/pkg/polyline"
)

func newTestClient(server *httptest.Server) *Client {
	return NewClient(ClientConfig{
		APIKey:     "mock123",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func milanToBergamo() routing.DirectionsRequest {
	return routing.DirectionsRequest{
		Origin:      geo.Coordinate{Lat: 45.4642, Lng: 9.19},
		Destination: geo.Coordinate{Lat: 45.6983, Lng: 9.6773},
	}
}

func TestClient_GetDirections_Success(t *testing.T) {
	respBody, err := os.ReadFile("testdata/directions_response.json")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != directionsPath {
			t.Errorf("expected path %s, got %s", directionsPath, r.URL.Path)
		}
		q := r.URL.Query()
		checks := map[string]string{
			"origin":       "45.4642,9.19",
			"destination":  "45.6983,9.6773",
			"key":          "mock123",
			"mode":         "driving",
			"alternatives": "false",
			"language":     "en",
		}
		for k, want := range checks {
			if got := q.Get(k); got != want {
				t.Errorf("expected %s=%q, got %q", k, want, got)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(respBody)
	}))
	defer server.Close()

	resp, err := newTestClient(server).GetDirections(context.Background(), milanToBergamo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Provider != ProviderName {
		t.Errorf("expected provider %s, got %s", ProviderName, resp.Provider)
	}
	if len(resp.Routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(resp.Routes))
	}

	route := resp.Routes[0]
	if route.DistanceMeters != 52340 || route.DurationSeconds != 2880 {
		t.Errorf("unexpected totals: %dm %ds", route.DistanceMeters, route.DurationSeconds)
	}
	if route.DistanceText != "52.3 km" || route.DurationText != "48 mins" {
		t.Errorf("unexpected display text: %q %q", route.DistanceText, route.DurationText)
	}
	if route.Summary != "A4" {
		t.Errorf("expected summary A4, got %q", route.Summary)
	}
	if len(route.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(route.Steps))
	}
	if route.Steps[0].Instruction != "Head north on Piazza del Duomo" {
		t.Errorf("unexpected instruction %q", route.Steps[0].Instruction)
	}
	if route.Steps[1].Instruction != "Merge onto A4 Toll road" {
		t.Errorf("unexpected instruction %q", route.Steps[1].Instruction)
	}
	if route.Steps[1].Maneuver != "merge" {
		t.Errorf("expected maneuver merge, got %q", route.Steps[1].Maneuver)
	}

	points, err := polyline.Decode(route.Polyline)
	if err != nil {
		t.Fatalf("route polyline must decode: %v", err)
	}
	if len(points) != 3 {
		t.Errorf("expected 3 decoded points, got %d", len(points))
	}
}

func TestClient_GetDirections_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		httpStatus int
		body       string
		wantErr    error
		wantCode   string
		retryable  bool
	}{
		{"zero results", 200, `{"status":"ZERO_RESULTS","routes":[]}`, routing.ErrNoRouteFound, "NO_ROUTE", false},
		{"not found", 200, `{"status":"NOT_FOUND"}`, routing.ErrNoRouteFound, "NO_ROUTE", false},
		{"over query limit", 200, `{"status":"OVER_QUERY_LIMIT"}`, routing.ErrRateLimitExceeded, "RATE_LIMIT", true},
		{"request denied", 200, `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`, routing.ErrAccessDenied, "FORBIDDEN", false},
		{"invalid request", 200, `{"status":"INVALID_REQUEST","error_message":"Invalid request. Missing the 'origin' parameter."}`, routing.ErrInvalidRequest, "BAD_REQUEST", false},
		{"unknown error", 200, `{"status":"UNKNOWN_ERROR"}`, routing.ErrProviderUnavailable, "UNKNOWN_ERROR", true},
		{"server error", 503, ``, routing.ErrProviderUnavailable, "HTTP_503", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.httpStatus)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server).GetDirections(context.Background(), milanToBergamo())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			var routingErr *routing.Error
			if !errors.As(err, &routingErr) {
				t.Fatalf("expected routing.Error, got %T", err)
			}
			if routingErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, routingErr.Code)
			}
			if routingErr.IsRetryable() != tt.retryable {
				t.Errorf("expected retryable=%v", tt.retryable)
			}
		})
	}
}

func TestClient_GetDirections_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := server.URL
	server.Close()

	client := NewClient(ClientConfig{BaseURL: base, HTTPClient: http.DefaultClient, Logger: zerolog.Nop()})
	_, err := client.GetDirections(context.Background(), milanToBergamo())
	if !errors.Is(err, routing.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestClient_GetDirections_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","routes":[]}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server).GetDirections(ctx, milanToBergamo())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClient_Name(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "test"})
	if client.Name() != ProviderName {
		t.Errorf("expected %s, got %s", ProviderName, client.Name())
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Turn <b>left</b>", "Turn left"},
		{"Destination will be on the right<div>Restricted usage road</div>", "Destination will be on the right Restricted usage road"},
		{"Via <b>Dante</b> &amp; <b>Corso</b>", "Via Dante & Corso"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripHTML(tt.in); got != tt.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
