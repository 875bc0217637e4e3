package handlers

import (
	"net/http"
	"strings"

	"github.com/gramaarogya/backend/internal/application/services"
	"github.com/gramaarogya/backend/internal/domain/providers"
)

// GeolocationHandler handles geolocation endpoints.
type GeolocationHandler struct {
	geolocator *services.Geolocator
	provider   providers.GeocodingProvider
}

// NewGeolocationHandler creates a new geolocation handler.
func NewGeolocationHandler(geolocator *services.Geolocator, provider providers.GeocodingProvider) *GeolocationHandler {
	return &GeolocationHandler{geolocator: geolocator, provider: provider}
}

// Geocode handles GET /api/geocode?address=...
func (h *GeolocationHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		respondWithError(w, http.StatusBadRequest, "address parameter is required")
		return
	}

	resolved, err := h.geolocator.ResolveAddress(r.Context(), address)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"address":           address,
		"formatted_address": resolved.Address,
		"lat":               resolved.Coordinate.Latitude,
		"lon":               resolved.Coordinate.Longitude,
	})
}

// ReverseGeocode handles GET /api/reverse-geocode?lat=...&lon=...
func (h *GeolocationHandler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	center, err := parseCoordinate(query.Get("lat"), query.Get("lon"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if center == nil {
		respondWithError(w, http.StatusBadRequest, "lat and lon parameters are required")
		return
	}

	address, err := h.provider.ReverseGeocode(r.Context(), center.Latitude, center.Longitude)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, address)
}

// DefaultLocation handles GET /api/location/default, the center used when
// the browser withholds its position.
func (h *GeolocationHandler) DefaultLocation(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.geolocator.Fallback(r.Context())
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resolved)
}
