// Package polyline implements Google's encoded polyline algorithm at 1e-5 precision.
// The format is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"fmt"
	"math"

	"github.com/chargefinder/chargefinder/pkg/geo"
)

// ErrMalformed is returned when an encoded string cannot be decoded.
var ErrMalformed = errors.New("malformed polyline")

const (
	precision = 1e5

	minChar = 63
	maxChar = 126
)

// Decode turns an encoded polyline into its ordered coordinates.
// An empty string decodes to nil.
func Decode(encoded string) ([]geo.Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}

	coords := make([]geo.Coordinate, 0, len(encoded)/4)
	index := 0
	lat := 0
	lng := 0

	for index < len(encoded) {
		latDelta, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		lngDelta, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		index = next

		lat += latDelta
		lng += lngDelta

		coords = append(coords, geo.Coordinate{
			Lat: float64(lat) / precision,
			Lng: float64(lng) / precision,
		})
	}

	return coords, nil
}

// decodeValue reads one zig-zag encoded varint starting at index and returns
// the signed value and the index just past it.
func decodeValue(encoded string, index int) (int, int, error) {
	shift := 0
	result := 0

	for {
		if index >= len(encoded) {
			return 0, index, fmt.Errorf("%w: truncated value at offset %d", ErrMalformed, index)
		}
		c := encoded[index]
		if c < minChar || c > maxChar {
			return 0, index, fmt.Errorf("%w: invalid character %q at offset %d", ErrMalformed, c, index)
		}
		b := int(c) - minChar
		index++

		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
		if shift > 30 {
			return 0, index, fmt.Errorf("%w: value too long at offset %d", ErrMalformed, index)
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}

// Encode turns coordinates into an encoded polyline string.
func Encode(coords []geo.Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(coords)*6)
	prevLat := 0
	prevLng := 0

	for _, c := range coords {
		lat := int(math.Round(c.Lat * precision))
		lng := int(math.Round(c.Lng * precision))

		buf = encodeValue(buf, lat-prevLat)
		buf = encodeValue(buf, lng-prevLng)

		prevLat = lat
		prevLng = lng
	}

	return string(buf)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+minChar)
		value >>= 5
	}
	return append(buf, byte(value)+minChar)
}
