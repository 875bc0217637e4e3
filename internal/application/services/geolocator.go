package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultPlace is geocoded when the user's own position is unknown.
const DefaultPlace = "Bhubaneswar, Odisha, India"

// LocationResolution is a search center and how it was obtained.
type LocationResolution struct {
	Coordinate geo.Coordinate        `json:"coordinate"`
	Source     entities.CenterSource `json:"source"`
	Address    string                `json:"address,omitempty"`
}

// Geolocator turns device positions, typed addresses or nothing at all into a search center.
type Geolocator struct {
	geocoder     providers.GeocodingProvider
	defaultPlace string

	group    singleflight.Group
	mu       sync.RWMutex
	fallback *LocationResolution
}

// NewGeolocator creates a geolocator. An empty defaultPlace selects DefaultPlace.
func NewGeolocator(geocoder providers.GeocodingProvider, defaultPlace string) *Geolocator {
	if strings.TrimSpace(defaultPlace) == "" {
		defaultPlace = DefaultPlace
	}
	return &Geolocator{geocoder: geocoder, defaultPlace: defaultPlace}
}

// ResolveUserLocation asks locator once. Any locator failure, including a
// nil locator, falls back to the geocoded default place; only a failure of
// that geocode is returned to the caller.
func (g *Geolocator) ResolveUserLocation(ctx context.Context, locator providers.DeviceLocator) (*LocationResolution, error) {
	if locator != nil {
		coord, err := locator.Locate(ctx)
		if err == nil {
			return &LocationResolution{Coordinate: coord, Source: entities.CenterSourceDevice}, nil
		}

		event := log.Info()
		if !errors.Is(err, providers.ErrPermissionDenied) && !errors.Is(err, providers.ErrLocationUnavailable) {
			event = log.Warn()
		}
		event.Err(err).Str("default_place", g.defaultPlace).Msg("Device location unavailable, using default place")
	}

	return g.Fallback(ctx)
}

// ResolveAddress geocodes a user-typed location.
func (g *Geolocator) ResolveAddress(ctx context.Context, text string) (*LocationResolution, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("location text is required")
	}

	addr, err := g.geocoder.Geocode(ctx, text)
	if err != nil {
		return nil, geocodeFailure("could not find that location", err)
	}
	return &LocationResolution{
		Coordinate: addr.Coordinates,
		Source:     entities.CenterSourceAddress,
		Address:    addr.FormattedAddress,
	}, nil
}

// Fallback returns the default place, geocoding it at most once at a time
// and remembering the first success for the life of the process.
func (g *Geolocator) Fallback(ctx context.Context) (*LocationResolution, error) {
	g.mu.RLock()
	cached := g.fallback
	g.mu.RUnlock()
	if cached != nil {
		res := *cached
		return &res, nil
	}

	ch := g.group.DoChan(g.defaultPlace, func() (any, error) {
		// The lookup is shared, so one caller's cancellation must not fail the others.
		addr, err := g.geocoder.Geocode(context.WithoutCancel(ctx), g.defaultPlace)
		if err != nil {
			return nil, err
		}
		res := &LocationResolution{
			Coordinate: addr.Coordinates,
			Source:     entities.CenterSourceFallback,
			Address:    addr.FormattedAddress,
		}
		g.mu.Lock()
		g.fallback = res
		g.mu.Unlock()
		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			log.Error().Err(r.Err).Str("default_place", g.defaultPlace).Msg("Failed to geocode default place")
			return nil, apperrors.NewExternalError("could not determine a search location", r.Err)
		}
		res := *r.Val.(*LocationResolution)
		return &res, nil
	}
}

func geocodeFailure(msg string, err error) error {
	if apperrors.IsType(err, apperrors.ErrorTypeValidation) || apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return err
	}
	return apperrors.NewExternalError(msg, err)
}
