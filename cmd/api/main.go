// Package main provides the entrypoint for the ChargeFinder API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargefinder/chargefinder/internal/api"
	"github.com/chargefinder/chargefinder/internal/api/middleware"
	"github.com/chargefinder/chargefinder/internal/cluster"
	"github.com/chargefinder/chargefinder/internal/config"
	"github.com/chargefinder/chargefinder/internal/featureflags"
	"github.com/chargefinder/chargefinder/internal/places"
	placesgoogle "github.com/chargefinder/chargefinder/internal/places/googlemaps"
	"github.com/chargefinder/chargefinder/internal/provider/resilience"
	"github.com/chargefinder/chargefinder/internal/report"
	"github.com/chargefinder/chargefinder/internal/routing"
	routinggoogle "github.com/chargefinder/chargefinder/internal/routing/googlemaps"
	"github.com/chargefinder/chargefinder/internal/station"
	"github.com/chargefinder/chargefinder/internal/station/evapi"
	"github.com/chargefinder/chargefinder/internal/telemetry"
	"github.com/chargefinder/chargefinder/internal/trip"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "chargefinder-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting ChargeFinder API")

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if !cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTelEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize error reporting
	enabled, err := report.Setup(report.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     Version,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize sentry, continuing without error reporting")
	} else if enabled {
		log.Info().Msg("sentry initialized")
		defer report.Flush(2 * time.Second)
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	registry := resilience.NewRegistry()

	// Upstream clients
	stationClient := evapi.NewClient(evapi.ClientConfig{
		BaseURL:  cfg.StationAPIBaseURL,
		Registry: registry,
		Logger:   log,
	})
	directionsClient := routinggoogle.NewClient(routinggoogle.ClientConfig{
		APIKey:   cfg.GoogleMapsAPIKey,
		BaseURL:  cfg.GoogleMapsBaseURL,
		Registry: registry,
		Logger:   log,
	})
	placesClient := placesgoogle.NewClient(placesgoogle.ClientConfig{
		APIKey:   cfg.GoogleMapsAPIKey,
		BaseURL:  cfg.GoogleMapsBaseURL,
		Registry: registry,
		Logger:   log,
	})
	log.Info().Int("providers", registry.ProviderCount()).Msg("upstream clients initialized")

	// Services
	stationService := station.NewService(station.ServiceConfig{
		Provider: stationClient,
		Logger:   log,
		Metrics:  providerMetrics,
	})
	routingService := routing.NewService(routing.ServiceConfig{
		Provider: directionsClient,
		Logger:   log,
		Metrics:  providerMetrics,
	})
	placesService := places.NewService(places.ServiceConfig{
		Provider: placesClient,
		Logger:   log,
		Metrics:  providerMetrics,
		Region:   cfg.PlacesRegion,
	})

	// Unset flags read the configured interval and threshold.
	ffService, err := featureflags.NewServiceFromSettings(ctx, featureflags.Settings{
		RouteSampleIntervalKm:   cfg.RouteFetchIntervalKm,
		ClusterMinPixelDistance: cfg.ClusterMinPixelDistance,
		Overrides:               cfg.FeatureFlags,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid FEATURE_FLAGS")
	}
	if cfg.FeatureFlags != "" {
		log.Info().Msg("feature flag overrides applied")
	}

	clusterer := cluster.New(cluster.Config{
		MinPixelDistance: cfg.ClusterMinPixelDistance,
		ScreenWidth:      cfg.ClusterScreenWidth,
		ScreenHeight:     cfg.ClusterScreenHeight,
	})

	planner := trip.NewPlanner(trip.Config{
		Stations:    stationService,
		Directions:  routingService,
		Clusterer:   clusterer,
		Flags:       ffService,
		Logger:      log,
		IntervalKm:  cfg.RouteFetchIntervalKm,
		RadiusKm:    cfg.DefaultSearchRadiusKm,
		Concurrency: cfg.WaypointConcurrency,
	})

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		ServiceName:     serviceName,
		Metrics:         metrics,
		RequireTLS:      cfg.RequireTLS,
		Stations:        stationService,
		Clusterer:       clusterer,
		Planner:         planner,
		Places:          placesService,
		Providers:       registry,
		FeatureFlags:    ffService,
		DefaultRadiusKm: cfg.DefaultSearchRadiusKm,
		MaxRadiusKm:     stationService.MaxRadiusKm(),
		RouteIntervalKm: cfg.RouteFetchIntervalKm,
	})

	// Create HTTP server. Trip plans fan out over many waypoints, so the
	// write timeout is longer than a single upstream call.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("environment", cfg.Environment).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
