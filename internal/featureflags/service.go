package featureflags

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository   Repository // default: empty MemoryStore
	Logger       zerolog.Logger
	CacheTTL     time.Duration // How long to cache flags in memory
	DefaultFlags map[string]*Flag
}

// Service provides feature flag evaluation with caching and fallback.
type Service struct {
	repo         Repository
	logger       zerolog.Logger
	cacheTTL     time.Duration
	defaultFlags map[string]*Flag

	mu          sync.RWMutex
	cache       map[string]*Flag
	cacheExpiry time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Minute // Default cache TTL
	}

	defaultFlags := cfg.DefaultFlags
	if defaultFlags == nil {
		defaultFlags = DefaultFlags()
	}

	repo := cfg.Repository
	if repo == nil {
		repo = NewMemoryStore()
	}

	return &Service{
		repo:         repo,
		logger:       cfg.Logger,
		cacheTTL:     cacheTTL,
		defaultFlags: defaultFlags,
		cache:        make(map[string]*Flag),
	}
}

// Settings are the startup values runtime flags resolve to.
type Settings struct {
	RouteSampleIntervalKm   float64
	ClusterMinPixelDistance float64

	// Overrides is a JSON object of flag values, see ParseOverrides.
	Overrides string
}

// NewServiceFromSettings builds a service over an empty MemoryStore whose
// defaults carry the configured interval and threshold, then applies the
// overrides. An unset flag therefore reads the configured value.
func NewServiceFromSettings(ctx context.Context, settings Settings, logger zerolog.Logger) (*Service, error) {
	svc := NewService(ServiceConfig{
		Repository:   NewMemoryStore(),
		Logger:       logger,
		DefaultFlags: DefaultFlagsFor(settings.RouteSampleIntervalKm, settings.ClusterMinPixelDistance),
	})

	overrides, err := ParseOverrides(settings.Overrides)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := svc.SetFlags(ctx, overrides); err != nil {
			return nil, fmt.Errorf("applying feature flag overrides: %w", err)
		}
	}
	return svc, nil
}

// GetFlag retrieves a feature flag by key.
// Uses cached value if available and not expired, with fallback to defaults.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	// Try cache first
	if flag := s.getCached(key); flag != nil {
		return flag
	}

	// Try repository
	flag, err := s.repo.GetFlag(ctx, key)
	if err == nil {
		s.setCached(key, flag)
		return flag
	}

	// Log error if not just "not found"
	if !errors.Is(err, ErrFlagNotFound) {
		s.logger.Warn().Err(err).Str("flag", key).Msg("failed to get feature flag from repository")
	}

	// Fallback to default
	if defaultFlag, ok := s.defaultFlags[key]; ok {
		return defaultFlag
	}

	return nil
}

// GetAllFlags retrieves all feature flags.
// Returns cached values merged with defaults.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	// Start with defaults
	result := make(map[string]*Flag, len(s.defaultFlags))
	for k, v := range s.defaultFlags {
		result[k] = v
	}

	// Try to get from repository
	flags, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to get feature flags from repository, using defaults")
		return result
	}

	// Merge repository flags over defaults
	for k, v := range flags {
		result[k] = v
	}

	// Update cache
	s.mu.Lock()
	s.cache = flags
	s.cacheExpiry = time.Now().Add(s.cacheTTL)
	s.mu.Unlock()

	return result
}

// List returns all flags sorted by key.
func (s *Service) List(ctx context.Context) FlagList {
	flags := s.GetAllFlags(ctx)
	items := make([]Flag, 0, len(flags))
	for _, f := range flags {
		items = append(items, *f)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})
	return FlagList{Items: items}
}

// SetFlag overrides a single feature flag.
func (s *Service) SetFlag(ctx context.Context, flag *Flag) error {
	return s.SetFlags(ctx, []*Flag{flag})
}

// SetFlags updates multiple feature flags atomically.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	now := time.Now()
	for _, flag := range flags {
		flag.UpdatedAt = now
	}

	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return err
	}

	// Update cache
	s.mu.Lock()
	for _, flag := range flags {
		s.cache[flag.Key] = flag
	}
	s.mu.Unlock()

	return nil
}

// InvalidateCache clears the cached flags, forcing a refresh on next access.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Flag)
	s.cacheExpiry = time.Time{}
}

// IsEnabled returns true if the flag with the given key is enabled (truthy).
// This is a convenience method for boolean flags.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	flag := s.GetFlag(ctx, key)
	return flag.BoolValue(false)
}

// IsDisabled returns true if the flag with the given key is disabled.
// This is the inverse of IsEnabled.
func (s *Service) IsDisabled(ctx context.Context, key string) bool {
	return !s.IsEnabled(ctx, key)
}

// getCached retrieves a flag from cache if valid.
func (s *Service) getCached(key string) *Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if time.Now().After(s.cacheExpiry) {
		return nil
	}

	flag, ok := s.cache[key]
	if !ok {
		return nil
	}
	return flag
}

// setCached stores a flag in the cache.
func (s *Service) setCached(key string, flag *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[key] = flag
	// Extend cache expiry if setting individual flags
	if s.cacheExpiry.Before(time.Now()) {
		s.cacheExpiry = time.Now().Add(s.cacheTTL)
	}
}

// Convenience methods for well-known flags.

// IsSequentialWaypointFetch returns true if route waypoints must be queried one at a time.
func (s *Service) IsSequentialWaypointFetch(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagSequentialWaypointFetch)
}

// IsPlacesSearchDisabled returns true if destination search is turned off.
func (s *Service) IsPlacesSearchDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisablePlacesSearch)
}

// RouteSampleIntervalKm returns the waypoint spacing, or fallback when the
// flag is unset or not a positive number.
func (s *Service) RouteSampleIntervalKm(ctx context.Context, fallback float64) float64 {
	return positiveOr(s.GetFlag(ctx, FlagRouteSampleIntervalKm).Float64Value(fallback), fallback)
}

// ClusterMinPixelDistance returns the marker merge threshold, or fallback
// when the flag is unset or not a positive number.
func (s *Service) ClusterMinPixelDistance(ctx context.Context, fallback float64) float64 {
	return positiveOr(s.GetFlag(ctx, FlagClusterMinPixelDistance).Float64Value(fallback), fallback)
}

func positiveOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}
