package googlemaps

type autocompleteResponse struct {
	Predictions []prediction `json:"predictions"`
}

type prediction struct {
	PlaceID              string   `json:"place_id"`
	Description          string   `json:"description"`
	Types                []string `json:"types"`
	StructuredFormatting struct {
		MainText      string `json:"main_text"`
		SecondaryText string `json:"secondary_text"`
	} `json:"structured_formatting"`
}

type detailsResponse struct {
	Result placeResult `json:"result"`
}

type geocodeResponse struct {
	Results []placeResult `json:"results"`
}

// placeResult is shared by Place Details and Geocoding; Name is empty for
// geocoding results.
type placeResult struct {
	PlaceID          string `json:"place_id"`
	Name             string `json:"name"`
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}
