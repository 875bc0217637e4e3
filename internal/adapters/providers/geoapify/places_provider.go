package geoapify

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
	"github.com/rs/zerolog/log"
)

const (
	placesPath = "/v2/places"
	// SourceName tags candidates produced by this adapter.
	SourceName = "geoapify"
)

// PlacesProvider searches the Geoapify Places API.
type PlacesProvider struct {
	client
}

// NewPlacesProvider creates a Geoapify places provider.
func NewPlacesProvider(apiKey string) providers.PlacesProvider {
	return NewPlacesProviderWithOptions(apiKey, "", nil)
}

// NewPlacesProviderWithOptions allows overriding base URL and HTTP client (used for tests).
func NewPlacesProviderWithOptions(apiKey, baseURL string, httpClient *http.Client) providers.PlacesProvider {
	return &PlacesProvider{client: newClient(apiKey, baseURL, httpClient)}
}

// SearchPlaces runs one category search inside a circle around query.Center.
func (p *PlacesProvider) SearchPlaces(ctx context.Context, query providers.PlaceQuery) ([]entities.FacilityCandidate, error) {
	if len(query.Categories) == 0 {
		return nil, apperrors.NewValidationError("at least one category is required")
	}
	if query.RadiusMeters <= 0 {
		return nil, apperrors.NewValidationError("radius must be positive")
	}

	lon := strconv.FormatFloat(query.Center.Longitude, 'f', -1, 64)
	lat := strconv.FormatFloat(query.Center.Latitude, 'f', -1, 64)

	params := url.Values{}
	params.Set("categories", strings.Join(query.Categories, ","))
	params.Set("filter", fmt.Sprintf("circle:%s,%s,%d", lon, lat, query.RadiusMeters))
	params.Set("bias", fmt.Sprintf("proximity:%s,%s", lon, lat))
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if term := strings.TrimSpace(query.Term); term != "" {
		params.Set("name", term)
	}

	var payload featureCollection
	if err := p.getJSON(ctx, placesPath, params, &payload); err != nil {
		return nil, err
	}

	candidates, err := payload.candidates()
	if err != nil {
		return nil, err
	}

	log.Debug().
		Strs("categories", query.Categories).
		Int("radius_m", query.RadiusMeters).
		Int("count", len(candidates)).
		Msg("Geoapify places search completed")

	return candidates, nil
}

type featureCollection struct {
	Type     string     `json:"type"`
	Features *[]feature `json:"features"`
}

type feature struct {
	Properties *featureProperties `json:"properties"`
}

type featureProperties struct {
	Name         string   `json:"name"`
	AddressLine1 string   `json:"address_line1"`
	Formatted    string   `json:"formatted"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	Website      string   `json:"website"`
	Categories   []string `json:"categories"`
}

// candidates validates the decoded payload and converts it. A missing
// feature list or a feature without coordinates fails the whole response.
// Features with neither a name nor a first address line cannot be labelled
// and are dropped.
func (fc featureCollection) candidates() ([]entities.FacilityCandidate, error) {
	if fc.Features == nil {
		return nil, apperrors.NewParseError("geoapify response has no features array", nil)
	}

	out := make([]entities.FacilityCandidate, 0, len(*fc.Features))
	for i, f := range *fc.Features {
		if f.Properties == nil {
			return nil, apperrors.NewParseError(fmt.Sprintf("feature %d has no properties", i), nil)
		}
		props := f.Properties
		if props.Lat == nil || props.Lon == nil {
			return nil, apperrors.NewParseError(fmt.Sprintf("feature %d has no coordinates", i), nil)
		}

		name := strings.TrimSpace(props.Name)
		if name == "" {
			name = strings.TrimSpace(props.AddressLine1)
		}
		if name == "" {
			continue
		}

		out = append(out, entities.FacilityCandidate{
			Name:       name,
			Address:    props.Formatted,
			Coordinate: geo.Coordinate{Latitude: *props.Lat, Longitude: *props.Lon},
			Website:    props.Website,
			Categories: props.Categories,
			Source:     SourceName,
		})
	}
	return out, nil
}
