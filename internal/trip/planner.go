// Package trip finds charging stations along a driving route.
package trip

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/chargefinder/chargefinder/internal/cluster"
	"github.com/chargefinder/chargefinder/internal/report"
	"github.com/chargefinder/chargefinder/internal/routing"
	"github.com/chargefinder/chargefinder/internal/station"
	"github.com/chargefinder/chargefinder/internal/telemetry"
	"github.com/chargefinder/chargefinder/pkg/geo"
	"github.com/chargefinder/chargefinder/pkg/polyline"
)

const (
	// DefaultIntervalKm is the spacing between route waypoints.
	DefaultIntervalKm = 10

	// DefaultRadiusKm is the search radius around each waypoint.
	DefaultRadiusKm = 10

	// DefaultConcurrency bounds in-flight waypoint queries.
	DefaultConcurrency = 4
)

var (
	// ErrEmptyRoute indicates a route with no points.
	ErrEmptyRoute = errors.New("route has no points")
	// ErrBadPolyline indicates the directions provider returned an undecodable route.
	ErrBadPolyline = errors.New("route polyline could not be decoded")
)

// StationSearcher queries stations around a point.
type StationSearcher interface {
	Search(ctx context.Context, req station.SearchRequest) ([]station.Station, error)
}

// DirectionsFinder computes a route between two points.
type DirectionsFinder interface {
	GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error)
}

// FlagSource supplies runtime overrides.
type FlagSource interface {
	IsSequentialWaypointFetch(ctx context.Context) bool
	RouteSampleIntervalKm(ctx context.Context, fallback float64) float64
	ClusterMinPixelDistance(ctx context.Context, fallback float64) float64
}

// ReportFunc forwards an error to the error tracker.
type ReportFunc func(err error, opts report.Options)

// Config holds configuration for the planner.
type Config struct {
	// Stations answers the per-waypoint queries (required).
	Stations StationSearcher

	// Directions computes routes for Plan (required for Plan only).
	Directions DirectionsFinder

	// Clusterer groups the result for a viewport (optional).
	Clusterer *cluster.Clusterer

	// Flags supplies runtime overrides (optional).
	Flags FlagSource

	// Report receives per-waypoint failures (default: report.ErrorWithOptions).
	Report ReportFunc

	// Logger for planner operations.
	Logger zerolog.Logger

	// IntervalKm is the distance between waypoints (default: 10).
	IntervalKm float64

	// RadiusKm is the default search radius per waypoint (default: 10).
	RadiusKm float64

	// Concurrency bounds in-flight waypoint queries (default: 4).
	Concurrency int
}

// Filter narrows the per-waypoint station search.
type Filter struct {
	RadiusKm       float64
	ConnectorTypes []string
	ChargingSpeeds []string
}

// Result is the merged outcome of querying every waypoint.
type Result struct {
	Waypoints []geo.Coordinate `json:"waypoints"`
	Stations  []station.Station `json:"stations"`

	// FailedWaypoints lists indexes into Waypoints whose query failed.
	FailedWaypoints []int `json:"failedWaypoints"`
}

// PlanRequest asks for a route and the stations along it.
type PlanRequest struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Filter      Filter

	// Region, when set, clusters the stations for that viewport.
	Region *geo.Region
}

// Plan is a route with the stations found along it.
type Plan struct {
	Route  routing.Route    `json:"route"`
	Points []geo.Coordinate `json:"points"`
	Result
	Clusters []cluster.Cluster `json:"clusters,omitempty"`
}

// Planner samples routes into waypoints and fans station queries out over them.
type Planner struct {
	stations    StationSearcher
	directions  DirectionsFinder
	clusterer   *cluster.Clusterer
	flags       FlagSource
	report      ReportFunc
	logger      zerolog.Logger
	intervalKm  float64
	radiusKm    float64
	concurrency int
}

// NewPlanner creates a new trip planner.
func NewPlanner(cfg Config) *Planner {
	intervalKm := cfg.IntervalKm
	if intervalKm <= 0 {
		intervalKm = DefaultIntervalKm
	}

	radiusKm := cfg.RadiusKm
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	reportFn := cfg.Report
	if reportFn == nil {
		reportFn = report.ErrorWithOptions
	}

	clusterer := cfg.Clusterer
	if clusterer == nil {
		clusterer = cluster.New(cluster.DefaultConfig())
	}

	return &Planner{
		stations:    cfg.Stations,
		directions:  cfg.Directions,
		clusterer:   clusterer,
		flags:       cfg.Flags,
		report:      reportFn,
		logger:      cfg.Logger,
		intervalKm:  intervalKm,
		radiusKm:    radiusKm,
		concurrency: concurrency,
	}
}

// StationsAlongRoute samples route every IntervalKm and searches stations
// around each waypoint.
//
// Queries may run concurrently but their results are merged in waypoint
// order, so when several waypoints return the same station the copy from the
// earliest waypoint wins. A failed waypoint is logged, reported and skipped;
// the call still succeeds with the remaining stations. Only cancellation of
// ctx fails the whole call.
func (p *Planner) StationsAlongRoute(ctx context.Context, route []geo.Coordinate, filter Filter) (*Result, error) {
	if len(route) == 0 {
		return nil, ErrEmptyRoute
	}

	ctx, span := telemetry.Tracer("trip").Start(ctx, "trip.StationsAlongRoute")
	defer span.End()

	interval := p.intervalKm
	concurrency := p.concurrency
	if p.flags != nil {
		interval = p.flags.RouteSampleIntervalKm(ctx, interval)
		if p.flags.IsSequentialWaypointFetch(ctx) {
			concurrency = 1
		}
	}

	radius := filter.RadiusKm
	if radius <= 0 {
		radius = p.radiusKm
	}

	waypoints := geo.SampleRoute(route, interval)
	span.SetAttributes(
		attribute.Int("trip.route_points", len(route)),
		attribute.Int("trip.waypoints", len(waypoints)),
		attribute.Int("trip.concurrency", concurrency),
	)

	batches := make([][]station.Station, len(waypoints))
	failed := make([]bool, len(waypoints))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, wp := range waypoints {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			stations, err := p.stations.Search(gctx, station.SearchRequest{
				Center:         wp,
				RadiusKm:       radius,
				ConnectorTypes: filter.ConnectorTypes,
				ChargingSpeeds: filter.ChargingSpeeds,
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				p.waypointFailed(i, wp, err)
				failed[i] = true
				return nil
			}

			batches[i] = stations
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "station fan-out canceled")
		return nil, err
	}

	result := &Result{
		Waypoints:       waypoints,
		Stations:        station.Merge(batches),
		FailedWaypoints: []int{},
	}
	for i, f := range failed {
		if f {
			result.FailedWaypoints = append(result.FailedWaypoints, i)
		}
	}

	span.SetAttributes(
		attribute.Int("trip.stations", len(result.Stations)),
		attribute.Int("trip.failed_waypoints", len(result.FailedWaypoints)),
	)

	p.logger.Debug().
		Int("waypoints", len(waypoints)).
		Int("stations", len(result.Stations)).
		Int("failed_waypoints", len(result.FailedWaypoints)).
		Msg("stations along route")

	return result, nil
}

func (p *Planner) waypointFailed(index int, wp geo.Coordinate, err error) {
	p.logger.Warn().Err(err).
		Int("waypoint_index", index).
		Float64("lat", wp.Lat).
		Float64("lng", wp.Lng).
		Msg("waypoint station query failed, skipping")

	p.report(err, report.Options{
		Tags: map[string]string{
			"component":      "trip",
			"waypoint_index": strconv.Itoa(index),
		},
		ExtraContext: map[string]interface{}{
			"lat": wp.Lat,
			"lng": wp.Lng,
		},
		Level: sentry.LevelWarning,
	})
}

// Plan fetches a route from origin to destination, decodes its polyline and
// finds stations along it. With a Region the stations are also clustered.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*Plan, error) {
	if p.directions == nil {
		return nil, fmt.Errorf("trip planner: %w", routing.ErrProviderUnavailable)
	}

	resp, err := p.directions.GetDirections(ctx, routing.DirectionsRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Mode:        routing.ModeDriving,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Routes) == 0 {
		return nil, &routing.Error{
			Provider: resp.Provider,
			Code:     "NO_ROUTE",
			Message:  "directions returned no routes",
			Err:      routing.ErrNoRouteFound,
		}
	}

	route := resp.Routes[0]
	points, err := polyline.Decode(route.Polyline)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPolyline, err)
	}
	if len(points) == 0 {
		points = []geo.Coordinate{req.Origin, req.Destination}
	}

	result, err := p.StationsAlongRoute(ctx, points, req.Filter)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Route:  route,
		Points: points,
		Result: *result,
	}

	if req.Region != nil {
		c := p.clusterer
		if p.flags != nil {
			c = c.WithMinPixelDistance(p.flags.ClusterMinPixelDistance(ctx, c.Config().MinPixelDistance))
		}
		plan.Clusters = c.Cluster(plan.Stations, req.Region)
	}

	return plan, nil
}
