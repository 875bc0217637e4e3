package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

const googleMapsSearchURL = "https://www.google.com/maps/search/?api=1&query="

// Coordinate is a WGS84 point in decimal degrees.
// Values are not range-checked; NaN propagates into distance math.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// String renders the coordinate as "lat,lon".
func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude)
}

// IsZero reports whether both axes are zero, which upstream APIs use for "no location".
func (c Coordinate) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b Coordinate) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	deltaLat := toRadians(b.Latitude - a.Latitude)
	deltaLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// WithinDelta reports whether both latitude and longitude differ by strictly less than deg.
func WithinDelta(a, b Coordinate, deg float64) bool {
	return math.Abs(a.Latitude-b.Latitude) < deg && math.Abs(a.Longitude-b.Longitude) < deg
}

// MapLink builds a Google Maps search link pointing at c.
func MapLink(c Coordinate) string {
	return fmt.Sprintf("%s%v,%v", googleMapsSearchURL, c.Latitude, c.Longitude)
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
