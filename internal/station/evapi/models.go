package evapi

import (
	"encoding/json"

	"github.com/chargefinder/chargefinder/internal/station"
)

// apiStation is the wire shape of a station. Numeric fields are decoded
// leniently because some deployments send counts as strings.
type apiStation struct {
	ID             json.RawMessage `json:"id"`
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	Lat            float64         `json:"lat"`
	Lng            float64         `json:"lng"`
	ChargingSpeed  string          `json:"chargingSpeed"`
	Power          string          `json:"power"`
	Available      json.Number     `json:"available"`
	Total          json.Number     `json:"total"`
	ConnectorTypes []string        `json:"connectorTypes"`
	Operators      []apiOperator   `json:"operators"`
}

type apiOperator struct {
	Name        string      `json:"name"`
	PricePerKwh json.Number `json:"pricePerKwh"`
	Website     string      `json:"website"`
}

// stationsEnvelope is accepted in addition to a bare array.
type stationsEnvelope struct {
	Stations []apiStation `json:"stations"`
	Data     []apiStation `json:"data"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorResponse) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func decodeStations(body []byte) ([]station.Station, error) {
	var raw []apiStation
	if err := json.Unmarshal(body, &raw); err != nil {
		var env stationsEnvelope
		if envErr := json.Unmarshal(body, &env); envErr != nil {
			return nil, err
		}
		raw = env.Stations
		if raw == nil {
			raw = env.Data
		}
	}

	stations := make([]station.Station, 0, len(raw))
	for i := range raw {
		stations = append(stations, raw[i].toStation())
	}
	return stations, nil
}

func (a *apiStation) toStation() station.Station {
	s := station.Station{
		ID:             decodeID(a.ID),
		Name:           a.Name,
		Address:        a.Address,
		Lat:            a.Lat,
		Lng:            a.Lng,
		ChargingSpeed:  station.ChargingSpeed(a.ChargingSpeed),
		Power:          a.Power,
		Available:      numberToInt(a.Available),
		Total:          numberToInt(a.Total),
		ConnectorTypes: a.ConnectorTypes,
	}
	for _, op := range a.Operators {
		price, _ := op.PricePerKwh.Float64() //nolint:errcheck // missing price sorts first as 0
		s.Operators = append(s.Operators, station.Operator{
			Name:        op.Name,
			PricePerKwh: price,
			Website:     op.Website,
		})
	}
	return s
}

// decodeID accepts both string and numeric ids.
func decodeID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

func numberToInt(n json.Number) int {
	if n == "" {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return int(f)
	}
	return 0
}
