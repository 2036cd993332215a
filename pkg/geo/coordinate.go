// Package geo provides the coordinate types and great-circle helpers shared by
// the clustering and route sampling code.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCoordinate indicates a latitude or longitude outside the WGS84 range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a geographic point in degrees (WGS84).
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Validate checks that the coordinate lies within [-90, 90] x [-180, 180].
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90, 90]", ErrInvalidCoordinate, c.Lat)
	}
	if math.IsNaN(c.Lng) || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180, 180]", ErrInvalidCoordinate, c.Lng)
	}
	return nil
}

// Region is the visible map area: a center and its angular span in degrees.
type Region struct {
	Lat      float64 `json:"latitude"`
	Lng      float64 `json:"longitude"`
	LatDelta float64 `json:"latitudeDelta"`
	LngDelta float64 `json:"longitudeDelta"`
}

// Center returns the region center.
func (r Region) Center() Coordinate {
	return Coordinate{Lat: r.Lat, Lng: r.Lng}
}

// Valid reports whether both spans are positive and finite. Pixel scale is
// derived by dividing by the spans, so zero-span regions cannot be clustered.
func (r Region) Valid() bool {
	return isPositiveFinite(r.LatDelta) && isPositiveFinite(r.LngDelta)
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// gridEpsilon absorbs division error, e.g. 9.19/0.01 = 918.9999999999999.
const gridEpsilon = 1e-9

// GridCell returns the index of the cell of width size that contains v.
// Points on a cell boundary belong to the cell that starts there.
func GridCell(v, size float64) int64 {
	return int64(math.Floor(v/size + gridEpsilon))
}
