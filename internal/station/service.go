package station

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/telemetry"
	"github.com/chargefinder/chargefinder/pkg/geo"
)

const searchOperation = "search"

// ServiceConfig holds configuration for the station service.
type ServiceConfig struct {
	// Provider is the station search backend.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records provider latency and cache effectiveness (optional).
	Metrics *telemetry.ProviderMetrics

	// CacheTTL is how long search results are reused (default: 1 minute).
	// Availability counts change quickly, so keep this short.
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.001 ~ 110m).
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale results on provider errors (default: 10 minutes).
	StaleIfErrorTTL time.Duration

	// MaxRadiusKm caps the search radius (default: 50).
	MaxRadiusKm float64
}

// Service searches stations through a Provider with a short-lived cache.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	metrics         *telemetry.ProviderMetrics
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	maxRadiusKm     float64

	mu    sync.RWMutex
	cache map[string]*cachedSearch
}

type cachedSearch struct {
	stations  []Station
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new station service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.001
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 10 * time.Minute
	}

	maxRadius := cfg.MaxRadiusKm
	if maxRadius == 0 {
		maxRadius = 50
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		maxRadiusKm:     maxRadius,
		cache:           make(map[string]*cachedSearch),
	}
}

// Search returns the stations around req.Center matching the filters.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]Station, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	key := s.cacheKey(req)

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.metrics.RecordCacheHit(s.provider.Name(), searchOperation)
		return cached.stations, nil
	}
	s.mu.RUnlock()

	s.metrics.RecordCacheMiss(s.provider.Name(), searchOperation)

	start := time.Now()
	stations, err := s.provider.Search(ctx, req)
	s.metrics.RecordRequest(s.provider.Name(), searchOperation, time.Since(start), err)

	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", req.Center.Lat).
			Float64("lng", req.Center.Lng).
			Float64("radius_km", req.RadiusKm).
			Str("provider", s.provider.Name()).
			Msg("station search failed")

		s.mu.RLock()
		cached, ok := s.cache[key]
		s.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Str("cache_key", key).
				Msg("serving stale station results due to provider error")
			return cached.stations, nil
		}
		return nil, err
	}

	now := time.Now()
	s.mu.Lock()
	s.cache[key] = &cachedSearch{
		stations:  stations,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.evictExpiredLocked(now)
	s.mu.Unlock()

	s.logger.Debug().
		Str("cache_key", key).
		Int("station_count", len(stations)).
		Msg("cached station search")

	return stations, nil
}

// InvalidateCache clears all cached search results.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedSearch)
}

// MaxRadiusKm returns the largest accepted search radius.
func (s *Service) MaxRadiusKm() float64 {
	return s.maxRadiusKm
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

func (s *Service) validate(req SearchRequest) error {
	if err := req.Center.Validate(); err != nil {
		return &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_CENTER",
			Message:  err.Error(),
			Err:      ErrInvalidRequest,
		}
	}
	if req.RadiusKm <= 0 || req.RadiusKm > s.maxRadiusKm {
		return &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_RADIUS",
			Message:  fmt.Sprintf("radius must be in (0, %g] km", s.maxRadiusKm),
			Err:      ErrInvalidRequest,
		}
	}
	for _, sp := range req.ChargingSpeeds {
		if !ChargingSpeed(sp).Valid() {
			return &Error{
				Provider: s.provider.Name(),
				Code:     "INVALID_SPEED",
				Message:  fmt.Sprintf("unknown charging speed %q", sp),
				Err:      ErrInvalidRequest,
			}
		}
	}
	return nil
}

// cacheKey quantizes the center to integer grid cells and normalizes filter order.
// Format: {latCell},{lngCell}:{radius}:{connectors}:{speeds}.
func (s *Service) cacheKey(req SearchRequest) string {
	return fmt.Sprintf("%d,%d:%g:%s:%s",
		geo.GridCell(req.Center.Lat, s.cacheGridSize),
		geo.GridCell(req.Center.Lng, s.cacheGridSize),
		req.RadiusKm,
		normalizedList(req.ConnectorTypes),
		normalizedList(req.ChargingSpeeds),
	)
}

func (s *Service) evictExpiredLocked(now time.Time) {
	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
		}
	}
}

func normalizedList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
