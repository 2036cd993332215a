// Package cluster groups map markers that would overlap at the current viewport.
package cluster

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/chargefinder/chargefinder/internal/station"
	"github.com/chargefinder/chargefinder/pkg/geo"
)

// Config controls the overlap threshold and the assumed screen size used to
// turn degrees into pixels.
type Config struct {
	// MinPixelDistance is the distance below which two markers merge (default: 40).
	MinPixelDistance float64

	// ScreenWidth spans the region's longitude delta (default: 400).
	ScreenWidth float64

	// ScreenHeight spans the region's latitude delta (default: 800).
	ScreenHeight float64
}

// DefaultConfig returns the phone-sized defaults.
func DefaultConfig() Config {
	return Config{
		MinPixelDistance: 40,
		ScreenWidth:      400,
		ScreenHeight:     800,
	}
}

// Cluster is one map marker standing for one or more stations.
type Cluster struct {
	ID         string            `json:"id"`
	Coordinate geo.Coordinate    `json:"coordinate"`
	Stations   []station.Station `json:"stations"`
	Count      int               `json:"count"`
}

// Clusterer partitions stations into non-overlapping markers.
type Clusterer struct {
	cfg Config
}

// New creates a Clusterer. Zero fields in cfg take their defaults.
func New(cfg Config) *Clusterer {
	def := DefaultConfig()
	if cfg.MinPixelDistance <= 0 {
		cfg.MinPixelDistance = def.MinPixelDistance
	}
	if cfg.ScreenWidth <= 0 {
		cfg.ScreenWidth = def.ScreenWidth
	}
	if cfg.ScreenHeight <= 0 {
		cfg.ScreenHeight = def.ScreenHeight
	}
	return &Clusterer{cfg: cfg}
}

// Config returns the effective configuration.
func (c *Clusterer) Config() Config {
	return c.cfg
}

// WithMinPixelDistance returns a copy of c using a different merge threshold.
// Non-positive values leave the threshold unchanged.
func (c *Clusterer) WithMinPixelDistance(d float64) *Clusterer {
	cfg := c.cfg
	if d > 0 {
		cfg.MinPixelDistance = d
	}
	return &Clusterer{cfg: cfg}
}

// PixelDistance approximates the on-screen distance between a and b by
// treating region as a flat ScreenWidth x ScreenHeight rectangle. No map
// projection is applied. The region spans must be positive.
func (c *Clusterer) PixelDistance(a, b geo.Coordinate, region geo.Region) float64 {
	latPx := math.Abs(a.Lat-b.Lat) * (c.cfg.ScreenHeight / region.LatDelta)
	lngPx := math.Abs(a.Lng-b.Lng) * (c.cfg.ScreenWidth / region.LngDelta)
	return math.Sqrt(latPx*latPx + lngPx*lngPx)
}

// Cluster partitions stations into clusters for the given viewport.
//
// With a nil region every station becomes its own cluster, in input order.
// Otherwise stations are visited in ascending ID order and each unassigned
// station seeds a cluster that absorbs every later unassigned station closer
// than MinPixelDistance to the seed itself. Membership is not transitive: a
// station near a member but not near the seed starts its own cluster.
//
// The input slice is not modified. The caller must ensure region has positive
// spans.
func (c *Clusterer) Cluster(stations []station.Station, region *geo.Region) []Cluster {
	if len(stations) == 0 {
		return []Cluster{}
	}

	if region == nil {
		out := make([]Cluster, 0, len(stations))
		for _, s := range stations {
			out = append(out, newCluster([]station.Station{s}))
		}
		return out
	}

	sorted := make([]station.Station, len(stations))
	copy(sorted, stations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	used := make([]bool, len(sorted))
	var out []Cluster
	for i, seed := range sorted {
		if used[i] {
			continue
		}
		used[i] = true
		members := []station.Station{seed}
		seedCoord := seed.Coordinate()

		for j := i + 1; j < len(sorted); j++ {
			if used[j] {
				continue
			}
			if c.PixelDistance(seedCoord, sorted[j].Coordinate(), *region) < c.cfg.MinPixelDistance {
				used[j] = true
				members = append(members, sorted[j])
			}
		}

		out = append(out, newCluster(members))
	}
	return out
}

func newCluster(members []station.Station) Cluster {
	var sumLat, sumLng float64
	ids := make([]string, len(members))
	for i, s := range members {
		sumLat += s.Lat
		sumLng += s.Lng
		ids[i] = s.ID
	}
	n := float64(len(members))

	return Cluster{
		ID:         clusterID(ids),
		Coordinate: geo.Coordinate{Lat: sumLat / n, Lng: sumLng / n},
		Stations:   members,
		Count:      len(members),
	}
}

// clusterID is derived from membership alone: "c_" + sorted ids joined by
// "_" + "_n" + count.
func clusterID(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString("c_")
	b.WriteString(strings.Join(sorted, "_"))
	b.WriteString("_n")
	b.WriteString(strconv.Itoa(len(ids)))
	return b.String()
}
