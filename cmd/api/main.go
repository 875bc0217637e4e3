package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gramaarogya/backend/internal/adapters/cache"
	"github.com/gramaarogya/backend/internal/adapters/events"
	"github.com/gramaarogya/backend/internal/adapters/providers/factory"
	"github.com/gramaarogya/backend/internal/api/handlers"
	"github.com/gramaarogya/backend/internal/api/routes"
	"github.com/gramaarogya/backend/internal/application/services"
	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/gramaarogya/backend/internal/infrastructure/clients/redis"
	"github.com/gramaarogya/backend/internal/infrastructure/observability"
	"github.com/gramaarogya/backend/pkg/config"
	"github.com/gramaarogya/backend/pkg/retry"
	"github.com/rs/zerolog/log"
)

const (
	cachePrefix         = "gramaarogya:"
	sessionJanitorEvery = time.Minute
	warmingTimeout      = 2 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			observability.EnableOTELBridge(cfg.OTEL.ServiceName)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Redis backs the shared caches and the session event bus; without it
	// both fall back to in-process implementations.
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis, retry.DefaultConfig())
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable; using in-memory cache and event bus")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient, cachePrefix)
			eventBus = events.NewRedisEventBus(redisClient)
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}
	if cacheProvider == nil {
		cacheProvider = cache.NewMemoryAdapter()
	}
	if eventBus == nil {
		eventBus = events.NewMemoryEventBus()
	}

	// Initialize providers
	geocoder, err := factory.NewGeocodingProvider(cfg.Geolocation, cacheProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize geocoding provider")
	}
	places, err := factory.NewPlacesProvider(cfg.Places, cacheProvider, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize places provider")
	}

	// Initialize services
	geolocator := services.NewGeolocator(geocoder, cfg.Geolocation.DefaultPlace)
	dispatcher := services.NewDispatcher(places, services.DispatcherConfig{
		Strategies:         services.StrategiesFromConfig(cfg.Search.Strategies),
		ResultThreshold:    cfg.Search.ResultThreshold,
		DedupeThresholdDeg: cfg.Search.DedupeThresholdDeg,
		RequestTimeout:     cfg.Search.RequestTimeout,
	}, metrics)
	searchService := services.NewFacilitySearchService(geolocator, dispatcher, cfg.Search.DedupeThresholdDeg, metrics)

	sessions := services.NewSessionManager(searchService, eventBus, cfg.Session.IdleTTL)
	sessions.StartJanitor(sessionJanitorEvery)

	for _, s := range dispatcher.Strategies() {
		log.Info().
			Str("strategy", s.Name).
			Str("scope", string(s.Scope)).
			Int("radius_m", s.RadiusMeters).
			Int("limit", s.Limit).
			Msg("Search strategy configured")
	}

	// Warm the default location and common searches in the background
	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, warmingTimeout)
		defer cancel()
		warming := services.NewCacheWarmingService(geolocator, dispatcher, cfg.Search.WarmTerms)
		if err := warming.WarmCache(warmCtx); err != nil {
			log.Warn().Err(err).Msg("Cache warming failed")
		}
	}()

	// Initialize handlers
	var mapsHandler *handlers.MapsHandler
	if cfg.Maps.APIKey != "" {
		mapsHandler = handlers.NewMapsHandler(cfg.Maps.APIKey, cacheProvider, sessions, metrics)
	} else {
		log.Warn().Msg("MAPS_API_KEY is not set; static session maps disabled")
	}

	router := routes.NewRouter(
		handlers.NewFacilityHandler(searchService),
		handlers.NewGeolocationHandler(geolocator, geocoder),
		handlers.NewSessionHandler(sessions),
		handlers.NewSSEHandler(sessions, eventBus),
		mapsHandler,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	// Create HTTP server. WriteTimeout stays zero so event streams are not cut off.
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Disposing sessions closes their event streams so Shutdown is not held open.
	sessions.Close(shutdownCtx)

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
