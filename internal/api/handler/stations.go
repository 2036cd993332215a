package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/api/models"
	"github.com/chargefinder/chargefinder/internal/api/response"
	"github.com/chargefinder/chargefinder/internal/cluster"
	"github.com/chargefinder/chargefinder/internal/station"
	"github.com/chargefinder/chargefinder/pkg/geo"
)

// StationSearcher finds stations around a point.
type StationSearcher interface {
	Search(ctx context.Context, req station.SearchRequest) ([]station.Station, error)
}

// ClusterFlags supplies the runtime marker merge threshold.
type ClusterFlags interface {
	ClusterMinPixelDistance(ctx context.Context, fallback float64) float64
}

// StationHandler handles station search and clustering endpoints.
type StationHandler struct {
	stations        StationSearcher
	clusterer       *cluster.Clusterer
	flags           ClusterFlags
	defaultRadiusKm float64
	logger          zerolog.Logger
}

// StationHandlerConfig holds StationHandler dependencies.
type StationHandlerConfig struct {
	Stations        StationSearcher
	Clusterer       *cluster.Clusterer
	Flags           ClusterFlags // optional
	DefaultRadiusKm float64
	Logger          zerolog.Logger
}

// NewStationHandler creates a new StationHandler.
func NewStationHandler(cfg StationHandlerConfig) *StationHandler {
	clusterer := cfg.Clusterer
	if clusterer == nil {
		clusterer = cluster.New(cluster.DefaultConfig())
	}
	radius := cfg.DefaultRadiusKm
	if radius <= 0 {
		radius = 10
	}
	return &StationHandler{
		stations:        cfg.Stations,
		clusterer:       clusterer,
		flags:           cfg.Flags,
		defaultRadiusKm: radius,
		logger:          cfg.Logger,
	}
}

// SearchStations handles GET /v1/stations.
func (h *StationHandler) SearchStations(w http.ResponseWriter, r *http.Request) {
	req, errs := h.parseSearch(r)
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid station search", errs)
		return
	}

	stations, err := h.stations.Search(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.StationList{
		Items: sortOperators(stations),
		Count: len(stations),
	})
}

// ClusterStations handles POST /v1/stations:cluster.
func (h *StationHandler) ClusterStations(w http.ResponseWriter, r *http.Request) {
	var input models.ClusterRequest
	if err := decodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	var errs fieldErrors
	errs.region("region", input.Region)
	errs.positive("minPixelDistance", input.MinPixelDistance)
	for i, s := range input.Stations {
		if s.ID == "" {
			errs.add("stations", "MISSING_ID", "station %d has no id", i)
		}
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid cluster request", errs)
		return
	}

	c := h.clustererFor(r.Context())
	if input.MinPixelDistance != nil {
		c = c.WithMinPixelDistance(*input.MinPixelDistance)
	}

	clusters := sortClusterOperators(c.Cluster(input.Stations, input.Region))
	response.JSON(w, r, http.StatusOK, models.ClusterList{
		Items: clusters,
		Count: len(clusters),
	})
}

// ClusteredStations handles GET /v1/stations:clustered, a nearby search
// clustered for the viewport centered on the search point.
func (h *StationHandler) ClusteredStations(w http.ResponseWriter, r *http.Request) {
	req, errs := h.parseSearch(r)
	q := r.URL.Query()
	latDelta, _ := errs.floatParam(q, "latDelta", true)
	lngDelta, _ := errs.floatParam(q, "lngDelta", true)
	region := geo.Region{Lat: req.Center.Lat, Lng: req.Center.Lng, LatDelta: latDelta, LngDelta: lngDelta}
	if len(errs) == 0 {
		errs.region("region", &region)
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid clustered station search", errs)
		return
	}

	stations, err := h.stations.Search(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.ClusteredStations{
		Stations: sortOperators(stations),
		Clusters: sortClusterOperators(h.clustererFor(r.Context()).Cluster(stations, &region)),
		Region:   region,
	})
}

func (h *StationHandler) parseSearch(r *http.Request) (station.SearchRequest, fieldErrors) {
	q := r.URL.Query()
	var errs fieldErrors

	lat, latOK := errs.floatParam(q, "lat", true)
	lng, lngOK := errs.floatParam(q, "lng", true)
	req := station.SearchRequest{
		Center:         geo.Coordinate{Lat: lat, Lng: lng},
		RadiusKm:       h.defaultRadiusKm,
		ConnectorTypes: listParam(q, "connectorTypes"),
		ChargingSpeeds: listParam(q, "chargingSpeeds"),
	}
	if latOK && lngOK {
		errs.coordinate("lat,lng", &req.Center)
	}
	if radius, ok := errs.floatParam(q, "radius", false); ok {
		errs.positive("radius", &radius)
		req.RadiusKm = radius
	}
	errs.speeds("chargingSpeeds", req.ChargingSpeeds)

	return req, errs
}

func (h *StationHandler) clustererFor(ctx context.Context) *cluster.Clusterer {
	if h.flags == nil {
		return h.clusterer
	}
	current := h.clusterer.Config().MinPixelDistance
	return h.clusterer.WithMinPixelDistance(h.flags.ClusterMinPixelDistance(ctx, current))
}

func sortClusterOperators(clusters []cluster.Cluster) []cluster.Cluster {
	for i := range clusters {
		clusters[i].Stations = sortOperators(clusters[i].Stations)
	}
	return clusters
}
