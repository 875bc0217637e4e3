package mock

import (
	"context"
	"testing"

	"github.com/gramaarogya/backend/internal/domain/providers"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocodingProvider_KnownTown(t *testing.T) {
	addr, err := NewGeocodingProvider().Geocode(context.Background(), "Bhubaneswar, Odisha, India")
	require.NoError(t, err)
	assert.Equal(t, knownPlaces["bhubaneswar"], addr.Coordinates)

	_, err = NewGeocodingProvider().Geocode(context.Background(), "Atlantis")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestGeocodingProvider_ReverseNearestTown(t *testing.T) {
	addr, err := NewGeocodingProvider().ReverseGeocode(context.Background(), 19.81, 85.83)
	require.NoError(t, err)
	assert.Equal(t, "puri", addr.City)
}

func TestPlacesProvider_StaysInsideRadius(t *testing.T) {
	center := knownPlaces["cuttack"]
	query := providers.PlaceQuery{
		Categories:   []string{"healthcare.hospital", "healthcare.dentist"},
		Center:       center,
		RadiusMeters: 5000,
	}

	candidates, err := NewPlacesProvider().SearchPlaces(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, candidates, 4)
	for _, c := range candidates {
		assert.Less(t, geo.HaversineKm(center, c.Coordinate), 5.0)
	}

	query.Limit = 3
	candidates, err = NewPlacesProvider().SearchPlaces(context.Background(), query)
	require.NoError(t, err)
	assert.Len(t, candidates, 3)
}
