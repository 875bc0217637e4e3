package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
)

const (
	googleNearbySearchURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	// SourceName tags candidates produced by this adapter.
	SourceName = "google"
	// Nearby Search accepts at most 50 km.
	maxNearbyRadius = 50000
)

// placeTypes maps category prefixes onto the single Nearby Search place type.
var placeTypes = []struct {
	prefix    string
	placeType string
}{
	{"healthcare.pharmacy", "pharmacy"},
	{"healthcare.dentist", "dentist"},
	{"healthcare.clinic_or_praxis", "doctor"},
	{"healthcare.hospital", "hospital"},
}

// PlacesProvider searches the Google Places Nearby Search API.
type PlacesProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewPlacesProvider creates a Google places provider.
func NewPlacesProvider(apiKey string) providers.PlacesProvider {
	return NewPlacesProviderWithOptions(apiKey, googleNearbySearchURL, nil)
}

// NewPlacesProviderWithOptions allows overriding base URL and HTTP client (used for tests).
func NewPlacesProviderWithOptions(apiKey, baseURL string, httpClient *http.Client) providers.PlacesProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = googleNearbySearchURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &PlacesProvider{apiKey: apiKey, baseURL: baseURL, httpClient: httpClient}
}

// SearchPlaces runs one nearby search. Only the first page of results is used.
func (p *PlacesProvider) SearchPlaces(ctx context.Context, query providers.PlaceQuery) ([]entities.FacilityCandidate, error) {
	if p.apiKey == "" {
		return nil, apperrors.NewValidationError("google maps api key is required")
	}
	if query.RadiusMeters <= 0 {
		return nil, apperrors.NewValidationError("radius must be positive")
	}

	radius := query.RadiusMeters
	if radius > maxNearbyRadius {
		radius = maxNearbyRadius
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%s,%s",
		strconv.FormatFloat(query.Center.Latitude, 'f', -1, 64),
		strconv.FormatFloat(query.Center.Longitude, 'f', -1, 64)))
	params.Set("radius", strconv.Itoa(radius))
	params.Set("type", placeType(query.Categories))
	if keyword := keywordFor(query); keyword != "" {
		params.Set("keyword", keyword)
	}

	var payload nearbySearchResponse
	if err := getJSON(ctx, p.httpClient, p.baseURL, p.apiKey, params, &payload); err != nil {
		return nil, err
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []entities.FacilityCandidate{}, nil
	default:
		return nil, statusError("nearby search", payload.Status, payload.ErrorMessage)
	}
	if payload.Results == nil {
		return nil, apperrors.NewParseError("nearby search response has no results array", nil)
	}

	out := make([]entities.FacilityCandidate, 0, len(*payload.Results))
	for i, r := range *payload.Results {
		if r.Geometry.Location == nil {
			return nil, apperrors.NewParseError(fmt.Sprintf("nearby result %d has no location", i), nil)
		}
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		address := r.Vicinity
		if address == "" {
			address = "No address available"
		}
		out = append(out, entities.FacilityCandidate{
			Name:    r.Name,
			Address: address,
			Coordinate: geo.Coordinate{
				Latitude:  r.Geometry.Location.Lat,
				Longitude: r.Geometry.Location.Lng,
			},
			Website:    r.Website,
			Categories: r.Types,
			Source:     SourceName,
		})
		if query.Limit > 0 && len(out) == query.Limit {
			break
		}
	}
	return out, nil
}

func placeType(categories []string) string {
	for _, c := range categories {
		for _, pt := range placeTypes {
			if strings.HasPrefix(c, pt.prefix) {
				return pt.placeType
			}
		}
	}
	return "hospital"
}

// keywordFor prefers the user's term, then a specialty such as
// "cardiology" taken from the last segment of a clinic category.
func keywordFor(query providers.PlaceQuery) string {
	if term := strings.TrimSpace(query.Term); term != "" {
		return term
	}
	for _, c := range query.Categories {
		if strings.HasPrefix(c, "healthcare.clinic_or_praxis.") {
			specialty := c[strings.LastIndex(c, ".")+1:]
			if specialty != "general" {
				return specialty
			}
		}
	}
	return ""
}

type nearbySearchResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Results      *[]nearbyResult `json:"results"`
}

type nearbyResult struct {
	Name     string         `json:"name"`
	Vicinity string         `json:"vicinity"`
	Website  string         `json:"website"`
	Types    []string       `json:"types"`
	Geometry googleGeometry `json:"geometry"`
}
