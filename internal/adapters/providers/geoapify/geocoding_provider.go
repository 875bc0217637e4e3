package geoapify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gramaarogya/backend/internal/domain/providers"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
)

const (
	geocodePath            = "/v1/geocode/search"
	reversePath            = "/v1/geocode/reverse"
	defaultGeocodeCacheTTL = 60 * 60 * 24 * 30
	defaultReverseCacheTTL = 60 * 60 * 24 * 30
)

// GeocodingProvider implements GeocodingProvider against the Geoapify geocoding API.
type GeocodingProvider struct {
	client
	cache providers.CacheProvider
}

// NewGeocodingProvider creates a Geoapify geocoder. cache may be nil.
func NewGeocodingProvider(apiKey string, cache providers.CacheProvider) providers.GeocodingProvider {
	return NewGeocodingProviderWithOptions(apiKey, cache, "", nil)
}

// NewGeocodingProviderWithOptions allows overriding base URL and HTTP client (used for tests).
func NewGeocodingProviderWithOptions(apiKey string, cache providers.CacheProvider, baseURL string, httpClient *http.Client) providers.GeocodingProvider {
	return &GeocodingProvider{
		client: newClient(apiKey, baseURL, httpClient),
		cache:  cache,
	}
}

// Geocode converts free text into the best matching address.
func (g *GeocodingProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("address is required")
	}

	cacheKey := "geo:geoapify:geocode:" + hashKey(strings.ToLower(trimmed))
	if addr := g.cached(ctx, cacheKey); addr != nil {
		return addr, nil
	}

	params := url.Values{}
	params.Set("text", trimmed)
	params.Set("format", "json")
	params.Set("limit", "1")

	addr, err := g.lookup(ctx, geocodePath, params)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no results for address %q", trimmed))
	}

	g.store(ctx, cacheKey, addr, defaultGeocodeCacheTTL)
	return addr, nil
}

// ReverseGeocode converts coordinates to an address.
func (g *GeocodingProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (*providers.GeocodedAddress, error) {
	cacheKey := "geo:geoapify:reverse:" + hashKey(fmt.Sprintf("%.5f,%.5f", lat, lon))
	if addr := g.cached(ctx, cacheKey); addr != nil {
		return addr, nil
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "json")

	addr, err := g.lookup(ctx, reversePath, params)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, apperrors.NewNotFoundError("no results for coordinates")
	}

	g.store(ctx, cacheKey, addr, defaultReverseCacheTTL)
	return addr, nil
}

func (g *GeocodingProvider) lookup(ctx context.Context, path string, params url.Values) (*providers.GeocodedAddress, error) {
	var payload geocodeResponse
	if err := g.getJSON(ctx, path, params, &payload); err != nil {
		return nil, err
	}
	if payload.Results == nil {
		return nil, apperrors.NewParseError("geoapify geocode response has no results array", nil)
	}
	if len(*payload.Results) == 0 {
		return nil, nil
	}

	result := (*payload.Results)[0]
	if result.Lat == nil || result.Lon == nil {
		return nil, apperrors.NewParseError("geoapify geocode result has no coordinates", nil)
	}

	return &providers.GeocodedAddress{
		FormattedAddress: result.Formatted,
		City:             result.City,
		State:            result.State,
		ZipCode:          result.Postcode,
		Country:          result.Country,
		Coordinates:      geo.Coordinate{Latitude: *result.Lat, Longitude: *result.Lon},
	}, nil
}

func (g *GeocodingProvider) cached(ctx context.Context, key string) *providers.GeocodedAddress {
	if g.cache == nil {
		return nil
	}
	data, err := g.cache.Get(ctx, key)
	if err != nil || len(data) == 0 {
		return nil
	}
	var addr providers.GeocodedAddress
	if err := json.Unmarshal(data, &addr); err != nil || addr.Coordinates.IsZero() {
		return nil
	}
	return &addr
}

func (g *GeocodingProvider) store(ctx context.Context, key string, addr *providers.GeocodedAddress, ttl int) {
	if g.cache == nil {
		return
	}
	if payload, err := json.Marshal(addr); err == nil {
		_ = g.cache.Set(ctx, key, payload, ttl)
	}
}

type geocodeResponse struct {
	Results *[]geocodeResult `json:"results"`
}

type geocodeResult struct {
	Formatted string   `json:"formatted"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	Postcode  string   `json:"postcode"`
	Country   string   `json:"country"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
}
