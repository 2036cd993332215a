// Package featureflags provides feature flag management for runtime configuration.
package featureflags

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagSequentialWaypointFetch queries route waypoints one at a time.
	FlagSequentialWaypointFetch = "sequential_waypoint_fetch"

	// FlagRouteSampleIntervalKm overrides the distance between route waypoints.
	FlagRouteSampleIntervalKm = "route_sample_interval_km"

	// FlagClusterMinPixelDistance overrides the marker merge threshold.
	FlagClusterMinPixelDistance = "cluster_min_pixel_distance"

	// FlagDisablePlacesSearch turns off destination search endpoints.
	FlagDisablePlacesSearch = "disable_places_search"
)

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// BoolValue returns the flag value as a boolean.
// Returns the default value if the flag is nil, not found, or not a boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	default:
		return defaultValue
	}
}

// StringValue returns the flag value as a string.
// Returns the default value if the flag is nil, not found, or not a string.
func (f *Flag) StringValue(defaultValue string) string {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case string:
		return v
	default:
		return defaultValue
	}
}

// IntValue returns the flag value as an integer.
// Returns the default value if the flag is nil, not found, or not a number.
func (f *Flag) IntValue(defaultValue int) int {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case float64:
		// JSON unmarshals numbers as float64
		return int(v)
	case int:
		return v
	default:
		return defaultValue
	}
}

// Float64Value returns the flag value as a float64.
// Returns the default value if the flag is nil, not found, or not a number.
func (f *Flag) Float64Value(defaultValue float64) float64 {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return defaultValue
	}
}

// Built-in fallbacks for the numeric flags.
const (
	DefaultRouteSampleIntervalKm   = 10
	DefaultClusterMinPixelDistance = 40
)

// DefaultFlags returns the built-in defaults.
func DefaultFlags() map[string]*Flag {
	return DefaultFlagsFor(DefaultRouteSampleIntervalKm, DefaultClusterMinPixelDistance)
}

// DefaultFlagsFor returns defaults whose numeric flags carry the configured
// interval and threshold. Non-positive values use the built-in fallbacks.
func DefaultFlagsFor(intervalKm, minPixelDistance float64) map[string]*Flag {
	if intervalKm <= 0 {
		intervalKm = DefaultRouteSampleIntervalKm
	}
	if minPixelDistance <= 0 {
		minPixelDistance = DefaultClusterMinPixelDistance
	}
	now := time.Now()
	return map[string]*Flag{
		FlagSequentialWaypointFetch: {Key: FlagSequentialWaypointFetch, Value: false, UpdatedAt: now},
		FlagRouteSampleIntervalKm:   {Key: FlagRouteSampleIntervalKm, Value: intervalKm, UpdatedAt: now},
		FlagClusterMinPixelDistance: {Key: FlagClusterMinPixelDistance, Value: minPixelDistance, UpdatedAt: now},
		FlagDisablePlacesSearch:     {Key: FlagDisablePlacesSearch, Value: false, UpdatedAt: now},
	}
}

// ParseOverrides decodes a JSON object of flag values, e.g.
// {"sequential_waypoint_fetch": true}. Empty input yields no flags.
func ParseOverrides(data string) ([]*Flag, error) {
	if data == "" {
		return nil, nil
	}

	var values map[string]interface{}
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("parsing feature flag overrides: %w", err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	flags := make([]*Flag, 0, len(keys))
	for _, k := range keys {
		flags = append(flags, &Flag{Key: k, Value: values[k]})
	}
	return flags, nil
}
