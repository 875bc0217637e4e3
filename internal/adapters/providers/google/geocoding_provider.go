package google

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gramaarogya/backend/internal/domain/providers"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
)

const (
	googleGeocodeURL       = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultGeocodeCacheTTL = 60 * 60 * 24 * 30
	defaultReverseCacheTTL = 60 * 60 * 24 * 30
	defaultHTTPTimeout     = 8 * time.Second
)

// GeocodingProvider implements the GeocodingProvider using the Google Geocoding API.
type GeocodingProvider struct {
	apiKey     string
	httpClient *http.Client
	cache      providers.CacheProvider
	baseURL    string
	region     string
}

// NewGeocodingProvider creates a new Google geocoding provider.
func NewGeocodingProvider(apiKey string, cache providers.CacheProvider) providers.GeocodingProvider {
	return NewGeocodingProviderWithOptions(apiKey, cache, googleGeocodeURL, nil)
}

// NewGeocodingProviderWithOptions allows overriding base URL and HTTP client (used for tests).
func NewGeocodingProviderWithOptions(apiKey string, cache providers.CacheProvider, baseURL string, httpClient *http.Client) providers.GeocodingProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = googleGeocodeURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &GeocodingProvider{
		apiKey:     apiKey,
		httpClient: httpClient,
		cache:      cache,
		baseURL:    baseURL,
		region:     "in",
	}
}

// Geocode converts an address to a full geocoded address.
func (g *GeocodingProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("address is required")
	}

	cacheKey := "geo:v2:geocode:" + hashKey(strings.ToLower(trimmed))
	if addr := g.cached(ctx, cacheKey); addr != nil {
		return addr, nil
	}

	resp, err := g.doGeocodeRequest(ctx, url.Values{"address": []string{trimmed}, "region": []string{g.region}})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no results for address %q", trimmed))
	}

	addr, err := toAddress(resp.Results[0])
	if err != nil {
		return nil, err
	}
	g.store(ctx, cacheKey, addr, defaultGeocodeCacheTTL)
	return addr, nil
}

// ReverseGeocode converts coordinates to an address.
func (g *GeocodingProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (*providers.GeocodedAddress, error) {
	cacheKey := "geo:v2:reverse:" + hashKey(fmt.Sprintf("%.5f,%.5f", lat, lon))
	if addr := g.cached(ctx, cacheKey); addr != nil {
		return addr, nil
	}

	resp, err := g.doGeocodeRequest(ctx, url.Values{"latlng": []string{fmt.Sprintf("%f,%f", lat, lon)}})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, apperrors.NewNotFoundError("no results for coordinates")
	}

	addr, err := toAddress(resp.Results[0])
	if err != nil {
		return nil, err
	}
	g.store(ctx, cacheKey, addr, defaultReverseCacheTTL)
	return addr, nil
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

func (g *GeocodingProvider) doGeocodeRequest(ctx context.Context, params url.Values) (*googleGeocodeResponse, error) {
	if g.apiKey == "" {
		return nil, apperrors.NewValidationError("google maps api key is required")
	}

	var payload googleGeocodeResponse
	if err := getJSON(ctx, g.httpClient, g.baseURL, g.apiKey, params, &payload); err != nil {
		return nil, err
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		payload.Results = nil
	default:
		return nil, statusError("geocode", payload.Status, payload.ErrorMessage)
	}
	return &payload, nil
}

func toAddress(result googleGeocodeResult) (*providers.GeocodedAddress, error) {
	if result.Geometry.Location == nil {
		return nil, apperrors.NewParseError("geocode result has no location", nil)
	}
	return &providers.GeocodedAddress{
		FormattedAddress: result.FormattedAddress,
		City:             component(result.AddressComponents, "locality", "administrative_area_level_2"),
		State:            component(result.AddressComponents, "administrative_area_level_1"),
		ZipCode:          component(result.AddressComponents, "postal_code"),
		Country:          component(result.AddressComponents, "country"),
		Coordinates: geo.Coordinate{
			Latitude:  result.Geometry.Location.Lat,
			Longitude: result.Geometry.Location.Lng,
		},
	}, nil
}

// getJSON performs a keyed GET against a Google Maps web service.
func getJSON(ctx context.Context, client *http.Client, baseURL, apiKey string, params url.Values, out any) error {
	params.Set("key", apiKey)
	reqURL := fmt.Sprintf("%s?%s", baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apperrors.NewInternalError("failed to build google request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperrors.NewTransportError("google request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewTransportError(fmt.Sprintf("google request returned status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewParseError("failed to decode google response", err)
	}
	return nil
}

// statusError maps a non-OK Google status onto the error taxonomy.
func statusError(api, status, message string) error {
	msg := fmt.Sprintf("%s request failed: %s", api, status)
	if message != "" {
		msg += " - " + message
	}
	switch status {
	case "":
		return apperrors.NewParseError(api+" response has no status", nil)
	case "REQUEST_DENIED", "INVALID_REQUEST":
		return apperrors.NewExternalError(msg, nil)
	default:
		return apperrors.NewTransportError(msg, nil)
	}
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func component(components []googleAddressComponent, primary string, fallback ...string) string {
	for _, comp := range components {
		if containsType(comp.Types, primary) {
			return comp.LongName
		}
	}
	for _, alt := range fallback {
		for _, comp := range components {
			if containsType(comp.Types, alt) {
				return comp.LongName
			}
		}
	}
	return ""
}

func containsType(types []string, target string) bool {
	for _, t := range types {
		if t == target {
			return true
		}
	}
	return false
}

type googleGeocodeResponse struct {
	Status       string                `json:"status"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Results      []googleGeocodeResult `json:"results"`
}

type googleGeocodeResult struct {
	FormattedAddress  string                   `json:"formatted_address"`
	AddressComponents []googleAddressComponent `json:"address_components"`
	Geometry          googleGeometry           `json:"geometry"`
}

type googleAddressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

type googleGeometry struct {
	Location *googleLocation `json:"location"`
}

type googleLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
