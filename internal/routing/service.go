package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/chargefinder/chargefinder/internal/telemetry"
	"github.com/chargefinder/chargefinder/pkg/geo"
)

const directionsOperation = "directions"

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records provider latency and cache effectiveness (optional).
	Metrics *telemetry.ProviderMetrics

	// CacheTTL is how long to cache routing data (default: 5 minutes).
	// Traffic does not change road geometry, so this can be longer than station results.
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.001 ~ 110m).
	// Points within the same grid cell share cached data.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 5 minutes).
	CleanupInterval time.Duration
}

// Service provides directions with a grid-keyed cache. Concurrent lookups
// for the same cache cell are coalesced into one provider call.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	metrics         *telemetry.ProviderMetrics
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration

	inflight singleflight.Group

	mu          sync.RWMutex
	cache       map[string]*cachedDirections
	lastCleanup time.Time
}

type cachedDirections struct {
	response  *DirectionsResponse
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.001 // ~110m at equator
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 15 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		cache:           make(map[string]*cachedDirections),
	}
}

// GetDirections returns route directions between two points.
// Uses cached data if available and not expired.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if req.Mode == "" {
		req.Mode = ModeDriving
	}
	if req.Language == "" {
		req.Language = "en"
	}
	if !req.Mode.Valid() {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_MODE",
			Message:  fmt.Sprintf("unsupported travel mode %q", req.Mode),
			Err:      ErrInvalidRequest,
		}
	}

	if err := req.Origin.Validate(); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	key := s.cacheKey(req)
	if resp, ok := s.lookup(key, false); ok {
		s.metrics.RecordCacheHit(s.provider.Name(), directionsOperation)
		return resp, nil
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), directionsOperation)

	// Identical in-flight lookups share one provider call. The call runs
	// detached from any single caller so one caller leaving does not fail
	// the others; the provider client's own timeout bounds it.
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		return s.fetch(context.WithoutCancel(ctx), req, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*DirectionsResponse), nil
	}
}

// lookup returns a cached response. With allowStale it also returns entries
// past their TTL but still inside the stale-if-error window.
func (s *Service) lookup(key string, allowStale bool) (*DirectionsResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cached, ok := s.cache[key]
	if !ok {
		return nil, false
	}
	now := time.Now()
	if now.Before(cached.expiresAt) {
		return cached.response, true
	}
	if allowStale && now.Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
		s.logger.Warn().
			Time("fetched_at", cached.fetchedAt).
			Str("cache_key", key).
			Msg("serving stale directions due to provider error")
		return cached.response, true
	}
	return nil, false
}

// fetch calls the provider and stores the result under key.
func (s *Service) fetch(ctx context.Context, req DirectionsRequest, key string) (*DirectionsResponse, error) {
	log := s.logger.With().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lng", req.Origin.Lng).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lng", req.Destination.Lng).
		Str("mode", string(req.Mode)).
		Str("provider", s.provider.Name()).
		Logger()

	start := time.Now()
	resp, err := s.provider.GetDirections(ctx, req)
	s.metrics.RecordRequest(s.provider.Name(), directionsOperation, time.Since(start), err)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch directions")
		if stale, ok := s.lookup(key, true); ok {
			return stale, nil
		}
		return nil, err
	}

	now := time.Now()
	s.mu.Lock()
	s.cache[key] = &cachedDirections{
		response:  resp,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.cleanupLocked(now)
	s.mu.Unlock()

	log.Debug().
		Str("cache_key", key).
		Int("route_count", len(resp.Routes)).
		Dur("duration", time.Since(start)).
		Msg("cached directions")

	return resp, nil
}

// cacheKey generates a cache key for a routing request.
// Origin and destination are quantized to integer grid cells.
// Format: {mode}:{language}:{originLatCell},{originLngCell}:{destLatCell},{destLngCell}.
func (s *Service) cacheKey(req DirectionsRequest) string {
	return fmt.Sprintf("%s:%s:%d,%d:%d,%d",
		req.Mode, req.Language,
		geo.GridCell(req.Origin.Lat, s.cacheGridSize), geo.GridCell(req.Origin.Lng, s.cacheGridSize),
		geo.GridCell(req.Destination.Lat, s.cacheGridSize), geo.GridCell(req.Destination.Lng, s.cacheGridSize),
	)
}

// cleanupLocked drops entries past the stale-if-error window, at most once
// per cleanup interval. Callers hold s.mu.
func (s *Service) cleanupLocked(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := 0
	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}
	if expired > 0 {
		s.logger.Debug().Int("expired_entries", expired).Msg("evicted routing cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedDirections)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	stale := 0

	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
		Provider:     s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
