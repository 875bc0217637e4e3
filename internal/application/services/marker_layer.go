package services

import (
	"errors"
	"sync"

	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/pkg/geo"
)

// UserMarkerLabel labels the search center on the map.
const UserMarkerLabel = "You are here"

var (
	// ErrMarkerLayerActive is returned by Init on a layer that was not disposed.
	ErrMarkerLayerActive = errors.New("marker layer already initialised")
	// ErrMarkerLayerInactive is returned when placing markers on a disposed or new layer.
	ErrMarkerLayerInactive = errors.New("marker layer not initialised")
)

// BuildMarkers returns the user marker followed by one marker per result, in result order.
func BuildMarkers(center geo.Coordinate, results []entities.FacilityResult) []entities.Marker {
	markers := make([]entities.Marker, 0, len(results)+1)
	markers = append(markers, entities.Marker{
		Kind:       entities.MarkerKindUser,
		Label:      UserMarkerLabel,
		Coordinate: center,
		Link:       geo.MapLink(center),
	})
	for _, r := range results {
		markers = append(markers, entities.Marker{
			Kind:       entities.MarkerKindFacility,
			Label:      r.Name,
			Coordinate: r.Coordinate,
			Link:       r.MapLink,
		})
	}
	return markers
}

// MarkerLayer is the set of map pins owned by one search session.
// It must be disposed before it is initialised again.
type MarkerLayer struct {
	mu      sync.RWMutex
	active  bool
	markers []entities.Marker
}

// NewMarkerLayer returns an uninitialised layer.
func NewMarkerLayer() *MarkerLayer {
	return &MarkerLayer{}
}

// Init activates the layer.
func (l *MarkerLayer) Init() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		return ErrMarkerLayerActive
	}
	l.active = true
	l.markers = nil
	return nil
}

// Active reports whether the layer is initialised.
func (l *MarkerLayer) Active() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Replace swaps the whole marker set.
func (l *MarkerLayer) Replace(markers []entities.Marker) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return ErrMarkerLayerInactive
	}
	l.markers = append([]entities.Marker(nil), markers...)
	return nil
}

// Clear removes every marker.
func (l *MarkerLayer) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers = nil
}

// Markers returns a copy of the current markers.
func (l *MarkerLayer) Markers() []entities.Marker {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]entities.Marker{}, l.markers...)
}

// Dispose drops all markers and deactivates the layer. It is idempotent.
func (l *MarkerLayer) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = false
	l.markers = nil
}
