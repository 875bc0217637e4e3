package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gramaarogya/backend/internal/application/services"
	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/gramaarogya/backend/internal/infrastructure/observability"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
)

// FacilityHandler handles stateless nearest-facility searches.
type FacilityHandler struct {
	searcher services.Searcher
}

// NewFacilityHandler creates a new facility handler
func NewFacilityHandler(searcher services.Searcher) *FacilityHandler {
	return &FacilityHandler{searcher: searcher}
}

// Nearby handles GET /api/facilities/nearby?lat=&lon=|address=&q=&type=
// Without lat/lon or address the configured default place is used.
func (h *FacilityHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req, err := searchRequestFromQuery(query.Get("lat"), query.Get("lon"), query.Get("q"), query.Get("type"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Center == nil {
		req.Address = strings.TrimSpace(query.Get("address"))
	}

	outcome, err := h.searcher.Search(r.Context(), req)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, outcome)
}

// healthCenter is one entry of the map page's result list.
type healthCenter struct {
	Name     string  `json:"name"`
	Vicinity string  `json:"vicinity"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Website  string  `json:"website,omitempty"`
	Distance float64 `json:"distance"`
	MapsLink string  `json:"mapsLink"`
}

// HealthCenters handles GET /api/health-centers?lat=&lng=&type=
// The coordinates are the browser's location; when absent the default place is used.
func (h *FacilityHandler) HealthCenters(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req, err := searchRequestFromQuery(query.Get("lat"), query.Get("lng"), query.Get("q"), query.Get("type"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Center != nil {
		req.Locator = providers.StaticLocator(*req.Center)
		req.Center = nil
	}

	outcome, err := h.searcher.Search(r.Context(), req)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	results := make([]healthCenter, 0, len(outcome.Results))
	for _, res := range outcome.Results {
		results = append(results, healthCenter{
			Name:     res.Name,
			Vicinity: res.Address,
			Lat:      res.Coordinate.Latitude,
			Lng:      res.Coordinate.Longitude,
			Website:  res.Website,
			Distance: res.DistanceKm,
			MapsLink: res.MapLink,
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"state":   outcome.State,
		"center":  outcome.Center,
	})
}

func searchRequestFromQuery(latStr, lonStr, term, facilityType string) (services.SearchRequest, error) {
	center, err := parseCoordinate(latStr, lonStr)
	if err != nil {
		return services.SearchRequest{}, err
	}
	ft, err := services.ParseFacilityType(facilityType)
	if err != nil {
		return services.SearchRequest{}, err
	}
	return services.SearchRequest{
		Center:       center,
		Term:         strings.TrimSpace(term),
		FacilityType: ft,
	}, nil
}

// parseCoordinate returns nil when both values are empty.
func parseCoordinate(latStr, lonStr string) (*geo.Coordinate, error) {
	latStr = strings.TrimSpace(latStr)
	lonStr = strings.TrimSpace(lonStr)
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, errors.New("latitude and longitude must be given together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q", lonStr)
	}
	c := geo.Coordinate{Latitude: lat, Longitude: lon}
	if err := checkCoordinate(c); err != nil {
		return nil, err
	}
	return &c, nil
}

func checkCoordinate(c geo.Coordinate) error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", c.Longitude)
	}
	return nil
}

// statusClientClosedRequest is the nginx convention for a caller that went away.
const statusClientClosedRequest = 499

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	}
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypePermission:
		return http.StatusForbidden
	case apperrors.ErrorTypeTransport, apperrors.ErrorTypeParse, apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondWithAppError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := "internal server error"

	var appErr *apperrors.AppError
	switch {
	case status == http.StatusGatewayTimeout:
		message = "facility search timed out, please try again"
	case status == statusClientClosedRequest:
		message = "request cancelled"
	case errors.As(err, &appErr) && status != http.StatusInternalServerError:
		message = appErr.Message
	}

	logger := observability.LoggerFromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	respondWithError(w, status, message)
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
