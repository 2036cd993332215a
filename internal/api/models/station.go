package models

import (
	"github.com/chargefinder/chargefinder/internal/cluster"
	"github.com/chargefinder/chargefinder/internal/station"
	"github.com/chargefinder/chargefinder/pkg/geo"
)

// StationList is the result of a nearby search.
type StationList struct {
	Items []station.Station `json:"items"`
	Count int               `json:"count"`
}

// ClusterRequest groups an already loaded station set for a viewport.
// A nil Region returns one cluster per station.
type ClusterRequest struct {
	Stations         []station.Station `json:"stations"`
	Region           *geo.Region       `json:"region,omitempty"`
	MinPixelDistance *float64          `json:"minPixelDistance,omitempty"`
}

// ClusterList is the clustering result in seed order.
type ClusterList struct {
	Items []cluster.Cluster `json:"items"`
	Count int               `json:"count"`
}

// ClusteredStations is a nearby search together with its viewport clusters.
type ClusteredStations struct {
	Stations []station.Station `json:"stations"`
	Clusters []cluster.Cluster `json:"clusters"`
	Region   geo.Region        `json:"region"`
}
