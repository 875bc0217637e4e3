package mock

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
)

// SourceName tags candidates produced by the mock places provider.
const SourceName = "mock"

var knownPlaces = map[string]geo.Coordinate{
	"bhubaneswar": {Latitude: 20.2961, Longitude: 85.8245},
	"cuttack":     {Latitude: 20.4625, Longitude: 85.8830},
	"puri":        {Latitude: 19.8135, Longitude: 85.8312},
	"sambalpur":   {Latitude: 21.4669, Longitude: 83.9812},
	"berhampur":   {Latitude: 19.3150, Longitude: 84.7941},
	"rourkela":    {Latitude: 22.2604, Longitude: 84.8536},
	"new delhi":   {Latitude: 28.6139, Longitude: 77.2090},
}

// GeocodingProvider resolves a handful of Indian towns without network access.
type GeocodingProvider struct{}

// NewGeocodingProvider creates a new mock geocoding provider
func NewGeocodingProvider() providers.GeocodingProvider {
	return &GeocodingProvider{}
}

// Geocode matches the address against the known towns.
func (m *GeocodingProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	lower := strings.ToLower(address)
	for town, coord := range knownPlaces {
		if strings.Contains(lower, town) {
			return &providers.GeocodedAddress{
				FormattedAddress: address,
				City:             town,
				Country:          "India",
				Coordinates:      coord,
			}, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("no results for address %q", address))
}

// ReverseGeocode reports the nearest known town.
func (m *GeocodingProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (*providers.GeocodedAddress, error) {
	at := geo.Coordinate{Latitude: lat, Longitude: lon}
	best, bestDist := "", math.Inf(1)
	for town, coord := range knownPlaces {
		if d := geo.HaversineKm(at, coord); d < bestDist {
			best, bestDist = town, d
		}
	}
	return &providers.GeocodedAddress{
		FormattedAddress: fmt.Sprintf("near %s (%.1f km)", best, bestDist),
		City:             best,
		Country:          "India",
		Coordinates:      at,
	}, nil
}

// PlacesProvider fabricates facilities around the query center, a fixed
// number per category, so the pipeline can run without an API key.
type PlacesProvider struct {
	PerCategory int
}

// NewPlacesProvider creates a new mock places provider
func NewPlacesProvider() providers.PlacesProvider {
	return &PlacesProvider{PerCategory: 2}
}

// SearchPlaces returns synthetic candidates inside the query radius.
func (m *PlacesProvider) SearchPlaces(ctx context.Context, query providers.PlaceQuery) ([]entities.FacilityCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTransportError("mock search cancelled", err)
	}

	// Spread points over half the radius; one degree of latitude is about 111 km.
	step := float64(query.RadiusMeters) / 2 / 111000 / float64(m.PerCategory+1)

	var out []entities.FacilityCandidate
	for ci, category := range query.Categories {
		label := category[strings.LastIndex(category, ".")+1:]
		for i := 1; i <= m.PerCategory; i++ {
			offset := step * float64(i)
			out = append(out, entities.FacilityCandidate{
				Name:    fmt.Sprintf("Mock %s %d", label, ci*m.PerCategory+i),
				Address: fmt.Sprintf("%d Health Road", 100*(ci+1)+i),
				Coordinate: geo.Coordinate{
					Latitude:  query.Center.Latitude + offset,
					Longitude: query.Center.Longitude - offset,
				},
				Categories: []string{category},
				Source:     SourceName,
			})
			if query.Limit > 0 && len(out) == query.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}
