package providers

import (
	"context"
	"errors"

	"github.com/gramaarogya/backend/pkg/geo"
)

var (
	// ErrPermissionDenied means the user withheld their location.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrLocationUnavailable means the platform could not produce a fix.
	ErrLocationUnavailable = errors.New("location unavailable")
)

// DeviceLocator yields the user's current position, once.
type DeviceLocator interface {
	Locate(ctx context.Context) (geo.Coordinate, error)
}

// DeviceLocatorFunc adapts a function to DeviceLocator.
type DeviceLocatorFunc func(ctx context.Context) (geo.Coordinate, error)

// Locate calls f.
func (f DeviceLocatorFunc) Locate(ctx context.Context) (geo.Coordinate, error) {
	return f(ctx)
}

// StaticLocator returns a fixed coordinate, as reported by a client.
type StaticLocator geo.Coordinate

// Locate returns the stored coordinate.
func (s StaticLocator) Locate(context.Context) (geo.Coordinate, error) {
	return geo.Coordinate(s), nil
}

// DeniedLocator always reports a permission denial.
type DeniedLocator struct{}

// Locate returns ErrPermissionDenied.
func (DeniedLocator) Locate(context.Context) (geo.Coordinate, error) {
	return geo.Coordinate{}, ErrPermissionDenied
}
