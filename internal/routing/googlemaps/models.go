package googlemaps

// directionsResponse is the subset of the Directions API response we read.
type directionsResponse struct {
	Status string  `json:"status"`
	Routes []route `json:"routes"`
}

type route struct {
	Summary          string   `json:"summary"`
	OverviewPolyline polyline `json:"overview_polyline"`
	Legs             []leg    `json:"legs"`
}

type polyline struct {
	Points string `json:"points"`
}

type leg struct {
	Distance textValue `json:"distance"`
	Duration textValue `json:"duration"`
	Steps    []step    `json:"steps"`
}

type step struct {
	HTMLInstructions string    `json:"html_instructions"`
	Distance         textValue `json:"distance"`
	Duration         textValue `json:"duration"`
	Maneuver         string    `json:"maneuver,omitempty"`
}

// textValue pairs a localized display string with its SI value
// (meters or seconds).
type textValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}
