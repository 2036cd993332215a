package models

import "github.com/chargefinder/chargefinder/internal/places"

// PredictionList holds autocomplete suggestions in provider order.
type PredictionList struct {
	Items []places.Prediction `json:"items"`
}

// PlaceList holds geocoding candidates in provider order.
type PlaceList struct {
	Items []places.Place `json:"items"`
}
