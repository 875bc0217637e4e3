package factory

import (
	"fmt"
	"strings"

	"github.com/gramaarogya/backend/internal/adapters/providers/cached"
	"github.com/gramaarogya/backend/internal/adapters/providers/geoapify"
	"github.com/gramaarogya/backend/internal/adapters/providers/google"
	"github.com/gramaarogya/backend/internal/adapters/providers/mock"
	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/gramaarogya/backend/internal/infrastructure/observability"
	"github.com/gramaarogya/backend/pkg/config"
	"github.com/rs/zerolog/log"
)

// Provider names accepted in PLACES_PROVIDER and GEOLOCATION_PROVIDER.
const (
	ProviderGeoapify = "geoapify"
	ProviderGoogle   = "google"
	ProviderMock     = "mock"
)

// NewPlacesProvider builds the configured places provider. A real provider
// without an API key degrades to the mock so local runs work offline.
// When cache is non-nil results are cached for cfg.CacheTTL.
func NewPlacesProvider(cfg config.PlacesConfig, cache providers.CacheProvider, metrics *observability.Metrics) (providers.PlacesProvider, error) {
	name := normalize(cfg.Provider)

	var provider providers.PlacesProvider
	switch name {
	case ProviderGeoapify, ProviderGoogle:
		if cfg.APIKey == "" {
			log.Warn().Str("provider", name).Msg("PLACES_API_KEY is not set; using mock places provider")
			return mock.NewPlacesProvider(), nil
		}
		if name == ProviderGeoapify {
			provider = geoapify.NewPlacesProviderWithOptions(cfg.APIKey, cfg.BaseURL, nil)
		} else {
			provider = google.NewPlacesProviderWithOptions(cfg.APIKey, cfg.BaseURL, nil)
		}
	case ProviderMock:
		return mock.NewPlacesProvider(), nil
	default:
		return nil, fmt.Errorf("unknown places provider %q", cfg.Provider)
	}

	if cache != nil && cfg.CacheTTL > 0 {
		provider = cached.NewPlacesProvider(provider, cache, cfg.CacheTTL, metrics)
	}
	return provider, nil
}

// NewGeocodingProvider builds the configured geocoder, with the same mock
// degradation as NewPlacesProvider.
func NewGeocodingProvider(cfg config.GeolocationConfig, cache providers.CacheProvider) (providers.GeocodingProvider, error) {
	name := normalize(cfg.Provider)

	switch name {
	case ProviderGeoapify, ProviderGoogle:
		if cfg.APIKey == "" {
			log.Warn().Str("provider", name).Msg("GEOLOCATION_API_KEY is not set; using mock geocoding provider")
			return mock.NewGeocodingProvider(), nil
		}
		if name == ProviderGeoapify {
			return geoapify.NewGeocodingProviderWithOptions(cfg.APIKey, cache, cfg.BaseURL, nil), nil
		}
		return google.NewGeocodingProviderWithOptions(cfg.APIKey, cache, cfg.BaseURL, nil), nil
	case ProviderMock:
		return mock.NewGeocodingProvider(), nil
	default:
		return nil, fmt.Errorf("unknown geolocation provider %q", cfg.Provider)
	}
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ProviderGeoapify
	}
	return name
}
