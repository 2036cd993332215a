package places

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/pkg/geo"
)

type mockProvider struct {
	predictions []Prediction
	place       *Place
	results     []Place
	err         error

	autocompleteCalls atomic.Int32
	detailsCalls      atomic.Int32
	geocodeCalls      atomic.Int32

	lastAutocomplete AutocompleteRequest
	lastRegion       string
}

func (m *mockProvider) Autocomplete(_ context.Context, req AutocompleteRequest) ([]Prediction, error) {
	m.autocompleteCalls.Add(1)
	m.lastAutocomplete = req
	return m.predictions, m.err
}

func (m *mockProvider) Details(_ context.Context, _, _ string) (*Place, error) {
	m.detailsCalls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.place, nil
}

func (m *mockProvider) Geocode(_ context.Context, _, region string) ([]Place, error) {
	m.geocodeCalls.Add(1)
	m.lastRegion = region
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockProvider) Name() string {
	return "mock"
}

func TestService_Autocomplete_PassesRegionAndLanguage(t *testing.T) {
	provider := &mockProvider{predictions: []Prediction{{PlaceID: "p1"}}}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop(), Region: "IT"})

	predictions, err := service.Autocomplete(context.Background(), "  duomo ", "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(predictions) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(predictions))
	}

	req := provider.lastAutocomplete
	if req.Input != "duomo" || req.Region != "it" || req.Language != "en" || req.SessionToken != "tok" {
		t.Errorf("unexpected provider request: %+v", req)
	}
}

func TestService_Autocomplete_ShortInputSkipsProvider(t *testing.T) {
	provider := &mockProvider{}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	predictions, err := service.Autocomplete(context.Background(), "d", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(predictions) != 0 {
		t.Errorf("expected no predictions, got %d", len(predictions))
	}
	if provider.autocompleteCalls.Load() != 0 {
		t.Error("provider must not be called for short input")
	}
}

func TestService_Autocomplete_TooLong(t *testing.T) {
	service := NewService(ServiceConfig{Provider: &mockProvider{}, Logger: zerolog.Nop()})

	_, err := service.Autocomplete(context.Background(), strings.Repeat("a", 300), "")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestService_Details_Cached(t *testing.T) {
	provider := &mockProvider{place: &Place{PlaceID: "p1", Location: geo.Coordinate{Lat: 45.46, Lng: 9.19}}}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	for i := 0; i < 2; i++ {
		place, err := service.Details(context.Background(), "p1", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if place.PlaceID != "p1" {
			t.Errorf("expected p1, got %s", place.PlaceID)
		}
	}

	if provider.detailsCalls.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.detailsCalls.Load())
	}
}

func TestService_Details_MissingID(t *testing.T) {
	service := NewService(ServiceConfig{Provider: &mockProvider{}, Logger: zerolog.Nop()})

	_, err := service.Details(context.Background(), " ", "")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestService_Details_ProviderError(t *testing.T) {
	provider := &mockProvider{err: ErrNotFound}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	_, err := service.Details(context.Background(), "missing", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Errors are not cached.
	_, _ = service.Details(context.Background(), "missing", "")
	if provider.detailsCalls.Load() != 2 {
		t.Errorf("expected 2 provider calls, got %d", provider.detailsCalls.Load())
	}
}

func TestService_Geocode_NormalizesCacheKey(t *testing.T) {
	provider := &mockProvider{results: []Place{{PlaceID: "g1"}}}
	service := NewService(ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	if _, err := service.Geocode(context.Background(), "Via Torino 1,  Milano"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.Geocode(context.Background(), "via torino 1, milano"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.geocodeCalls.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.geocodeCalls.Load())
	}
	if provider.lastRegion != "it" {
		t.Errorf("expected default region it, got %q", provider.lastRegion)
	}
}

func TestService_Geocode_EmptyAddress(t *testing.T) {
	service := NewService(ServiceConfig{Provider: &mockProvider{}, Logger: zerolog.Nop()})

	_, err := service.Geocode(context.Background(), "")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}
