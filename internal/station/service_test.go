package station

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/pkg/geo"
)

// mockProvider is a mock station provider for testing.
type mockProvider struct {
	mu        sync.Mutex
	stations  []Station
	err       error
	callCount atomic.Int32
	lastReq   SearchRequest
}

func (m *mockProvider) Search(_ context.Context, req SearchRequest) ([]Station, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.stations, nil
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func milanRequest() SearchRequest {
	return SearchRequest{
		Center:   geo.Coordinate{Lat: 45.4642, Lng: 9.19},
		RadiusKm: 10,
	}
}

func TestService_Search_CacheMissThenHit(t *testing.T) {
	provider := &mockProvider{stations: []Station{{ID: "A"}, {ID: "B"}}}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	for i := 0; i < 3; i++ {
		stations, err := service.Search(context.Background(), milanRequest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(stations) != 2 {
			t.Fatalf("expected 2 stations, got %d", len(stations))
		}
	}

	if provider.callCount.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount.Load())
	}
}

func TestService_Search_NearbyCentersShareCacheCell(t *testing.T) {
	provider := &mockProvider{stations: []Station{{ID: "A"}}}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop(), CacheGridSize: 0.01})

	req := milanRequest()
	if _, err := service.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.Center.Lat += 0.0001
	if _, err := service.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.callCount.Load() != 1 {
		t.Errorf("expected cached result for same grid cell, got %d calls", provider.callCount.Load())
	}
}

func TestService_Search_CellBoundaryCenters(t *testing.T) {
	tests := []struct {
		name      string
		lngs      []float64
		wantCalls int32
	}{
		{"boundary value and interior share a cell", []float64{9.19, 9.1904}, 1},
		{"interior and boundary value share a cell", []float64{9.1999, 9.19}, 1},
		{"next boundary starts a new cell", []float64{9.19, 9.2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{stations: []Station{{ID: "A"}}}
			service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop(), CacheGridSize: 0.01})

			for _, lng := range tt.lngs {
				req := SearchRequest{Center: geo.Coordinate{Lat: 45.46, Lng: lng}, RadiusKm: 10}
				if _, err := service.Search(context.Background(), req); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}

			if got := provider.callCount.Load(); got != tt.wantCalls {
				t.Errorf("expected %d provider calls, got %d", tt.wantCalls, got)
			}
		})
	}
}

func TestService_CacheKeyUsesCellIndexes(t *testing.T) {
	service := &Service{cacheGridSize: 0.01}

	key := service.cacheKey(SearchRequest{
		Center:         geo.Coordinate{Lat: 45.46, Lng: 9.19},
		RadiusKm:       10,
		ConnectorTypes: []string{"type2", "ccs"},
	})

	if want := "4546,919:10:ccs,type2:"; key != want {
		t.Errorf("expected cache key %q, got %q", want, key)
	}
}

func TestService_Search_FilterOrderDoesNotSplitCache(t *testing.T) {
	provider := &mockProvider{stations: []Station{{ID: "A"}}}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	req := milanRequest()
	req.ConnectorTypes = []string{"CCS", "Type 2"}
	if _, err := service.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.ConnectorTypes = []string{"Type 2", "CCS"}
	if _, err := service.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.callCount.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount.Load())
	}
}

func TestService_Search_DifferentFiltersMiss(t *testing.T) {
	provider := &mockProvider{stations: []Station{{ID: "A"}}}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	req := milanRequest()
	if _, err := service.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.ChargingSpeeds = []string{string(SpeedDCFast)}
	if _, err := service.Search(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.callCount.Load() != 2 {
		t.Errorf("expected 2 provider calls, got %d", provider.callCount.Load())
	}
	if len(provider.lastReq.ChargingSpeeds) != 1 {
		t.Errorf("expected filters forwarded to provider, got %v", provider.lastReq.ChargingSpeeds)
	}
}

func TestService_Search_StaleIfError(t *testing.T) {
	provider := &mockProvider{stations: []Station{{ID: "A"}}}
	service := NewService(ServiceConfig{
		Provider:        provider,
		Logger:          zerolog.Nop(),
		CacheTTL:        time.Nanosecond,
		StaleIfErrorTTL: time.Hour,
	})

	if _, err := service.Search(context.Background(), milanRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(time.Millisecond)

	provider.setErr(ErrProviderUnavailable)
	stations, err := service.Search(context.Background(), milanRequest())
	if err != nil {
		t.Fatalf("expected stale result, got error: %v", err)
	}
	if len(stations) != 1 || stations[0].ID != "A" {
		t.Errorf("expected stale station A, got %+v", stations)
	}
	if provider.callCount.Load() != 2 {
		t.Errorf("expected provider to be retried before serving stale, got %d calls", provider.callCount.Load())
	}
}

func TestService_Search_ErrorWithoutCache(t *testing.T) {
	provider := &mockProvider{err: ErrRateLimitExceeded}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	_, err := service.Search(context.Background(), milanRequest())
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Errorf("expected ErrRateLimitExceeded, got %v", err)
	}
}

func TestService_Search_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  SearchRequest
		code string
	}{
		{
			name: "latitude out of range",
			req:  SearchRequest{Center: geo.Coordinate{Lat: 91, Lng: 9}, RadiusKm: 10},
			code: "INVALID_CENTER",
		},
		{
			name: "zero radius",
			req:  SearchRequest{Center: geo.Coordinate{Lat: 45, Lng: 9}},
			code: "INVALID_RADIUS",
		},
		{
			name: "radius above maximum",
			req:  SearchRequest{Center: geo.Coordinate{Lat: 45, Lng: 9}, RadiusKm: 500},
			code: "INVALID_RADIUS",
		},
		{
			name: "unknown charging speed",
			req:  SearchRequest{Center: geo.Coordinate{Lat: 45, Lng: 9}, RadiusKm: 10, ChargingSpeeds: []string{"Warp"}},
			code: "INVALID_SPEED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{}
			service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

			_, err := service.Search(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			var stErr *Error
			if !errors.As(err, &stErr) || stErr.Code != tt.code {
				t.Errorf("expected code %s, got %v", tt.code, err)
			}
			if provider.callCount.Load() != 0 {
				t.Error("provider must not be called for invalid requests")
			}
		})
	}
}

func TestService_InvalidateCache(t *testing.T) {
	provider := &mockProvider{stations: []Station{{ID: "A"}}}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	_, _ = service.Search(context.Background(), milanRequest())
	service.InvalidateCache()
	_, _ = service.Search(context.Background(), milanRequest())

	if provider.callCount.Load() != 2 {
		t.Errorf("expected 2 provider calls after invalidation, got %d", provider.callCount.Load())
	}
}

func TestService_ProviderName(t *testing.T) {
	service := NewService(ServiceConfig{Provider: &mockProvider{}, Logger: zerolog.Nop()})
	if service.ProviderName() != "mock" {
		t.Errorf("expected provider name mock, got %s", service.ProviderName())
	}
}
