package main

import (
	"os"
	"strings"

	"github.com/gramaarogya/backend/internal/adapters/cache"
	"github.com/gramaarogya/backend/internal/adapters/providers/factory"
	"github.com/gramaarogya/backend/internal/application/services"
	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/gramaarogya/backend/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// pipeline is the wiring shared by the subcommands. The CLI is a single
// short-lived process, so it always uses the in-memory cache.
type pipeline struct {
	cfg        *config.Config
	geocoder   providers.GeocodingProvider
	geolocator *services.Geolocator
	dispatcher *services.Dispatcher
	searcher   *services.FacilitySearchService
}

func newPipeline(cmd *cobra.Command) (*pipeline, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if provider, _ := cmd.Flags().GetString("provider"); strings.TrimSpace(provider) != "" {
		cfg.Places.Provider = provider
		cfg.Geolocation.Provider = provider
	}

	store := cache.NewMemoryAdapter()
	geocoder, err := factory.NewGeocodingProvider(cfg.Geolocation, store)
	if err != nil {
		return nil, err
	}
	places, err := factory.NewPlacesProvider(cfg.Places, store, nil)
	if err != nil {
		return nil, err
	}

	geolocator := services.NewGeolocator(geocoder, cfg.Geolocation.DefaultPlace)
	dispatcher := services.NewDispatcher(places, services.DispatcherConfig{
		Strategies:         services.StrategiesFromConfig(cfg.Search.Strategies),
		ResultThreshold:    cfg.Search.ResultThreshold,
		DedupeThresholdDeg: cfg.Search.DedupeThresholdDeg,
		RequestTimeout:     cfg.Search.RequestTimeout,
	}, nil)

	return &pipeline{
		cfg:        cfg,
		geocoder:   geocoder,
		geolocator: geolocator,
		dispatcher: dispatcher,
		searcher:   services.NewFacilitySearchService(geolocator, dispatcher, cfg.Search.DedupeThresholdDeg, nil),
	}, nil
}
