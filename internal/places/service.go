package places

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/telemetry"
)

const (
	autocompleteOperation = "autocomplete"
	detailsOperation      = "details"
	geocodeOperation      = "geocode"

	// MinInputLength is the shortest query sent upstream; shorter input
	// returns no predictions without a provider call.
	MinInputLength = 2

	maxInputLength = 256
)

// ServiceConfig holds configuration for the places service.
type ServiceConfig struct {
	// Provider is the place search backend.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records provider latency and cache effectiveness (optional).
	Metrics *telemetry.ProviderMetrics

	// Region restricts autocomplete and biases geocoding (default: "it").
	Region string

	// Language for returned text (default: "en").
	Language string

	// CacheTTL is how long details and geocode results are reused (default: 1 hour).
	// Autocomplete is never cached since it is billed per session.
	CacheTTL time.Duration
}

// Service resolves user-entered destinations.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	metrics  *telemetry.ProviderMetrics
	region   string
	language string
	cacheTTL time.Duration

	mu      sync.RWMutex
	details map[string]cachedPlace
	geocode map[string]cachedPlaces
}

type cachedPlace struct {
	place     *Place
	expiresAt time.Time
}

type cachedPlaces struct {
	places    []Place
	expiresAt time.Time
}

// NewService creates a new places service.
func NewService(cfg ServiceConfig) *Service {
	region := cfg.Region
	if region == "" {
		region = "it"
	}

	language := cfg.Language
	if language == "" {
		language = "en"
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}

	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		region:   strings.ToLower(region),
		language: language,
		cacheTTL: cacheTTL,
		details:  make(map[string]cachedPlace),
		geocode:  make(map[string]cachedPlaces),
	}
}

// Autocomplete returns predictions for input restricted to the configured region.
func (s *Service) Autocomplete(ctx context.Context, input, sessionToken string) ([]Prediction, error) {
	input = strings.TrimSpace(input)
	if utf8.RuneCountInString(input) < MinInputLength {
		return []Prediction{}, nil
	}
	if utf8.RuneCountInString(input) > maxInputLength {
		return nil, s.invalid("INPUT_TOO_LONG", "search input is too long")
	}

	start := time.Now()
	predictions, err := s.provider.Autocomplete(ctx, AutocompleteRequest{
		Input:        input,
		SessionToken: sessionToken,
		Region:       s.region,
		Language:     s.language,
	})
	s.metrics.RecordRequest(s.provider.Name(), autocompleteOperation, time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).
			Str("provider", s.provider.Name()).
			Msg("autocomplete failed")
		return nil, err
	}

	return predictions, nil
}

// Details resolves placeID to a location. Results are cached by place id.
func (s *Service) Details(ctx context.Context, placeID, sessionToken string) (*Place, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, s.invalid("MISSING_PLACE_ID", "place id is required")
	}

	s.mu.RLock()
	if cached, ok := s.details[placeID]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.metrics.RecordCacheHit(s.provider.Name(), detailsOperation)
		return cached.place, nil
	}
	s.mu.RUnlock()
	s.metrics.RecordCacheMiss(s.provider.Name(), detailsOperation)

	start := time.Now()
	place, err := s.provider.Details(ctx, placeID, sessionToken)
	s.metrics.RecordRequest(s.provider.Name(), detailsOperation, time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).
			Str("place_id", placeID).
			Str("provider", s.provider.Name()).
			Msg("place details failed")
		return nil, err
	}

	s.mu.Lock()
	s.details[placeID] = cachedPlace{place: place, expiresAt: time.Now().Add(s.cacheTTL)}
	s.mu.Unlock()

	return place, nil
}

// Geocode resolves a free-form address biased to the configured region.
func (s *Service) Geocode(ctx context.Context, address string) ([]Place, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, s.invalid("MISSING_ADDRESS", "address is required")
	}
	if utf8.RuneCountInString(address) > maxInputLength {
		return nil, s.invalid("ADDRESS_TOO_LONG", "address is too long")
	}

	key := strings.ToLower(strings.Join(strings.Fields(address), " "))

	s.mu.RLock()
	if cached, ok := s.geocode[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.metrics.RecordCacheHit(s.provider.Name(), geocodeOperation)
		return cached.places, nil
	}
	s.mu.RUnlock()
	s.metrics.RecordCacheMiss(s.provider.Name(), geocodeOperation)

	start := time.Now()
	results, err := s.provider.Geocode(ctx, address, s.region)
	s.metrics.RecordRequest(s.provider.Name(), geocodeOperation, time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).
			Str("provider", s.provider.Name()).
			Msg("geocode failed")
		return nil, err
	}

	s.mu.Lock()
	s.geocode[key] = cachedPlaces{places: results, expiresAt: time.Now().Add(s.cacheTTL)}
	s.mu.Unlock()

	return results, nil
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

func (s *Service) invalid(code, msg string) error {
	return &Error{
		Provider: s.provider.Name(),
		Code:     code,
		Message:  msg,
		Err:      ErrInvalidRequest,
	}
}
