package factory_test

import (
	"testing"
	"time"

	"github.com/gramaarogya/backend/internal/adapters/cache"
	"github.com/gramaarogya/backend/internal/adapters/providers/cached"
	"github.com/gramaarogya/backend/internal/adapters/providers/factory"
	"github.com/gramaarogya/backend/internal/adapters/providers/geoapify"
	"github.com/gramaarogya/backend/internal/adapters/providers/google"
	"github.com/gramaarogya/backend/internal/adapters/providers/mock"
	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/gramaarogya/backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlacesProvider(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.PlacesConfig
		cached bool
		want   interface{}
	}{
		{name: "geoapify", cfg: config.PlacesConfig{Provider: "geoapify", APIKey: "k"}, want: &geoapify.PlacesProvider{}},
		{name: "default is geoapify", cfg: config.PlacesConfig{APIKey: "k"}, want: &geoapify.PlacesProvider{}},
		{name: "google", cfg: config.PlacesConfig{Provider: " Google ", APIKey: "k"}, want: &google.PlacesProvider{}},
		{name: "missing key", cfg: config.PlacesConfig{Provider: "google"}, want: &mock.PlacesProvider{}},
		{name: "mock", cfg: config.PlacesConfig{Provider: "mock"}, want: &mock.PlacesProvider{}},
		{name: "cached", cfg: config.PlacesConfig{Provider: "geoapify", APIKey: "k", CacheTTL: time.Minute}, cached: true, want: &cached.PlacesProvider{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var store providers.CacheProvider
			if tt.cached {
				store = cache.NewMemoryAdapter()
			}
			provider, err := factory.NewPlacesProvider(tt.cfg, store, nil)
			require.NoError(t, err)
			assert.IsType(t, tt.want, provider)
		})
	}
}

func TestNewPlacesProvider_Unknown(t *testing.T) {
	_, err := factory.NewPlacesProvider(config.PlacesConfig{Provider: "osm"}, nil, nil)
	assert.EqualError(t, err, `unknown places provider "osm"`)
}

func TestNewGeocodingProvider(t *testing.T) {
	provider, err := factory.NewGeocodingProvider(config.GeolocationConfig{Provider: "google", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &google.GeocodingProvider{}, provider)

	provider, err = factory.NewGeocodingProvider(config.GeolocationConfig{Provider: "geoapify"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &mock.GeocodingProvider{}, provider)

	_, err = factory.NewGeocodingProvider(config.GeolocationConfig{Provider: "nominatim"}, nil)
	assert.Error(t, err)
}
