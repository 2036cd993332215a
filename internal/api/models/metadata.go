package models

// SpeedOption is a charging speed filter with its map pin color.
type SpeedOption struct {
	Value    string `json:"value"`
	PinColor string `json:"pinColor"`
}

// Filters lists the values accepted by the station search filters.
type Filters struct {
	ConnectorTypes  []string      `json:"connectorTypes"`
	ChargingSpeeds  []SpeedOption `json:"chargingSpeeds"`
	DefaultRadiusKm float64       `json:"defaultRadiusKm"`
	MaxRadiusKm     float64       `json:"maxRadiusKm"`
}
