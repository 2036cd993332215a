// Package api provides the HTTP API for the charging station finder.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/api/handler"
	"github.com/chargefinder/chargefinder/internal/api/middleware"
	"github.com/chargefinder/chargefinder/internal/api/response"
	"github.com/chargefinder/chargefinder/internal/cluster"
	"github.com/chargefinder/chargefinder/internal/featureflags"
	"github.com/chargefinder/chargefinder/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	Stations  handler.StationSearcher
	Clusterer *cluster.Clusterer
	Planner   handler.TripPlanner
	Places    handler.PlaceFinder
	Providers *resilience.Registry

	// FeatureFlags supplies runtime overrides. When nil the flags default
	// to RouteIntervalKm and the clusterer threshold.
	FeatureFlags *featureflags.Service

	DefaultRadiusKm float64
	MaxRadiusKm     float64
	RouteIntervalKm float64
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "chargefinder-api"
	}

	flags := cfg.FeatureFlags
	if flags == nil {
		minPx := 0.0
		if cfg.Clusterer != nil {
			minPx = cfg.Clusterer.Config().MinPixelDistance
		}
		flags = featureflags.NewService(featureflags.ServiceConfig{
			Logger:       cfg.Logger,
			DefaultFlags: featureflags.DefaultFlagsFor(cfg.RouteIntervalKm, minPx),
		})
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // JSON request bodies

	// Initialize handlers
	var providers handler.ProviderHealthSource
	if cfg.Providers != nil {
		providers = cfg.Providers
	}
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, providers, flags)
	metadataHandler := handler.NewMetadataHandler(cfg.DefaultRadiusKm, cfg.MaxRadiusKm)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(flags)
	routeHandler := handler.NewRouteHandler(cfg.RouteIntervalKm, flags)

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min
	tripRateLimit := middleware.RateLimitByIP(middleware.TripRateLimit)         // 20 req/min
	placesRateLimit := middleware.RateLimitBySession(middleware.PlacesRateLimit) // 120 req/min

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route matches "+r.Method+" "+r.URL.Path)
	})

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.With(standardRateLimit).Get("/metadata/filters", metadataHandler.GetFilters)
		r.With(standardRateLimit).Get("/feature-flags", featureFlagsHandler.ListFeatureFlags)
		r.With(standardRateLimit).Post("/routes:sample", routeHandler.SampleRoute)

		if cfg.Stations != nil {
			stationHandler := handler.NewStationHandler(handler.StationHandlerConfig{
				Stations:        cfg.Stations,
				Clusterer:       cfg.Clusterer,
				Flags:           flags,
				DefaultRadiusKm: cfg.DefaultRadiusKm,
				Logger:          cfg.Logger,
			})
			r.Group(func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/stations", stationHandler.SearchStations)
				r.Get("/stations:clustered", stationHandler.ClusteredStations)
				r.Post("/stations:cluster", stationHandler.ClusterStations)
			})
		}

		// Trip planning fans out to many upstream calls per request.
		if cfg.Planner != nil {
			tripHandler := handler.NewTripHandler(cfg.Planner, cfg.Logger)
			r.With(tripRateLimit).Post("/trips:plan", tripHandler.PlanTrip)
		}

		if cfg.Places != nil {
			placesHandler := handler.NewPlacesHandler(cfg.Places, flags, cfg.Logger)
			r.Group(func(r chi.Router) {
				r.Use(placesRateLimit)
				r.Get("/places:autocomplete", placesHandler.Autocomplete)
				r.Get("/places:geocode", placesHandler.Geocode)
				r.Get("/places/{placeId}", placesHandler.GetPlace)
			})
		}
	})

	return r
}
