package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/chargefinder/chargefinder/internal/api/models"
	"github.com/chargefinder/chargefinder/internal/station"
	"github.com/chargefinder/chargefinder/pkg/geo"
)

// maxBodyBytes bounds JSON request bodies. A client-side station set or an
// encoded cross-country polyline comfortably fits.
const maxBodyBytes = 2 << 20

// fieldErrors accumulates validation failures for one request.
type fieldErrors []models.FieldError

func (fe *fieldErrors) add(field, code, format string, args ...interface{}) {
	*fe = append(*fe, models.FieldError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

// floatParam reads a finite float query parameter. ok is false when the
// parameter is absent or invalid; invalid values and missing required
// values are recorded.
func (fe *fieldErrors) floatParam(q url.Values, name string, required bool) (v float64, ok bool) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		if required {
			fe.add(name, "REQUIRED", "%s is required", name)
		}
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		fe.add(name, "INVALID_NUMBER", "%s must be a number", name)
		return 0, false
	}
	return v, true
}

// coordinate validates c and records a failure under field.
func (fe *fieldErrors) coordinate(field string, c *geo.Coordinate) {
	if c == nil {
		fe.add(field, "REQUIRED", "%s is required", field)
		return
	}
	if err := c.Validate(); err != nil {
		fe.add(field, "OUT_OF_RANGE", "%s", err.Error())
	}
}

// region records a failure when r is set but has a non-positive span.
func (fe *fieldErrors) region(field string, r *geo.Region) {
	if r == nil {
		return
	}
	if !r.Valid() {
		fe.add(field, "INVALID_REGION", "%s latitudeDelta and longitudeDelta must be positive", field)
		return
	}
	if err := r.Center().Validate(); err != nil {
		fe.add(field, "OUT_OF_RANGE", "%s", err.Error())
	}
}

// speeds records any unknown charging speed.
func (fe *fieldErrors) speeds(field string, values []string) {
	for _, v := range values {
		if !station.ChargingSpeed(v).Valid() {
			fe.add(field, "INVALID_SPEED", "unknown charging speed %q", v)
		}
	}
}

// positive records a failure when v is set and not strictly positive.
func (fe *fieldErrors) positive(field string, v *float64) {
	if v != nil && !(*v > 0) {
		fe.add(field, "OUT_OF_RANGE", "%s must be positive", field)
	}
}

// listParam reads a repeated or comma-separated query parameter, dropping blanks.
func listParam(q url.Values, name string) []string {
	var out []string
	for _, raw := range q[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// decodeJSON reads a single JSON value from a size-limited body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid JSON body")
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// sortOperators orders every station's operators cheapest first.
func sortOperators(stations []station.Station) []station.Station {
	out := make([]station.Station, len(stations))
	for i, s := range stations {
		out[i] = station.SortOperatorsByPrice(s)
	}
	return out
}
