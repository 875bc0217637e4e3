package providers

import (
	"context"

	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/pkg/geo"
)

// PlaceQuery is one places-search request: a category filter inside a
// circular geofence, biased towards Center.
type PlaceQuery struct {
	Categories   []string
	Center       geo.Coordinate
	RadiusMeters int
	Limit        int
	Term         string
}

// PlacesProvider searches an external places API.
// Implementations validate the response shape and return transport or
// parse AppErrors on failure; an empty slice is not an error.
type PlacesProvider interface {
	SearchPlaces(ctx context.Context, query PlaceQuery) ([]entities.FacilityCandidate, error)
}
