package providers

import (
	"context"

	"github.com/gramaarogya/backend/pkg/geo"
)

// GeocodingProvider defines the interface for geocoding services
type GeocodingProvider interface {
	// Geocode converts free-text address to a located address
	Geocode(ctx context.Context, address string) (*GeocodedAddress, error)

	// ReverseGeocode converts coordinates to an address
	ReverseGeocode(ctx context.Context, lat, lon float64) (*GeocodedAddress, error)
}

// GeocodedAddress represents a geocoded address
type GeocodedAddress struct {
	FormattedAddress string         `json:"formatted_address"`
	City             string         `json:"city,omitempty"`
	State            string         `json:"state,omitempty"`
	ZipCode          string         `json:"zip_code,omitempty"`
	Country          string         `json:"country,omitempty"`
	Coordinates      geo.Coordinate `json:"coordinates"`
}
