// Package config loads service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Config holds the API server configuration.
type Config struct {
	Port        string
	Environment string
	RequireTLS  bool

	OTelEnabled  bool
	OTLPEndpoint string
	SentryDSN    string

	StationAPIBaseURL string
	GoogleMapsAPIKey  string
	GoogleMapsBaseURL string
	PlacesRegion      string

	RouteFetchIntervalKm  float64
	DefaultSearchRadiusKm float64
	WaypointConcurrency   int

	ClusterMinPixelDistance float64
	ClusterScreenWidth      float64
	ClusterScreenHeight     float64

	// FeatureFlags is a JSON object of flag overrides applied at startup.
	FeatureFlags string
}

// FromEnv creates a Config from environment variables. Malformed numbers
// fall back to their defaults; Validate reports what is still unusable.
func FromEnv() Config {
	return Config{
		Port:        getEnvOrDefault("APP_PORT", "8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
		RequireTLS:  getEnvOrDefault("REQUIRE_TLS", "false") == "true",

		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		SentryDSN:    os.Getenv("SENTRY_DSN"),

		StationAPIBaseURL: os.Getenv("STATION_API_BASE_URL"),
		GoogleMapsAPIKey:  os.Getenv("GOOGLE_MAPS_API_KEY"),
		GoogleMapsBaseURL: os.Getenv("GOOGLE_MAPS_BASE_URL"),
		PlacesRegion:      strings.ToLower(getEnvOrDefault("PLACES_REGION", "it")),

		RouteFetchIntervalKm:  getFloat("ROUTE_FETCH_INTERVAL_KM", 10),
		DefaultSearchRadiusKm: getFloat("DEFAULT_SEARCH_RADIUS_KM", 10),
		WaypointConcurrency:   getInt("WAYPOINT_CONCURRENCY", 4),

		ClusterMinPixelDistance: getFloat("CLUSTER_MIN_PIXEL_DISTANCE", 40),
		ClusterScreenWidth:      getFloat("CLUSTER_SCREEN_WIDTH", 400),
		ClusterScreenHeight:     getFloat("CLUSTER_SCREEN_HEIGHT", 800),

		FeatureFlags: os.Getenv("FEATURE_FLAGS"),
	}
}

// Validate checks that required settings are present and numeric settings
// are positive. All problems are reported together.
func (c Config) Validate() error {
	var errs []error

	if c.StationAPIBaseURL == "" {
		errs = append(errs, errors.New("STATION_API_BASE_URL is required"))
	}
	if c.GoogleMapsAPIKey == "" {
		errs = append(errs, errors.New("GOOGLE_MAPS_API_KEY is required"))
	}

	positive := map[string]float64{
		"ROUTE_FETCH_INTERVAL_KM":    c.RouteFetchIntervalKm,
		"DEFAULT_SEARCH_RADIUS_KM":   c.DefaultSearchRadiusKm,
		"CLUSTER_MIN_PIXEL_DISTANCE": c.ClusterMinPixelDistance,
		"CLUSTER_SCREEN_WIDTH":       c.ClusterScreenWidth,
		"CLUSTER_SCREEN_HEIGHT":      c.ClusterScreenHeight,
		"WAYPOINT_CONCURRENCY":       float64(c.WaypointConcurrency),
	}
	for _, key := range sortedKeys(positive) {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %g", key, positive[key]))
		}
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnvOrDefault(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnvOrDefault(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
