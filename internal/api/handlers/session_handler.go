package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gramaarogya/backend/internal/application/services"
	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/gramaarogya/backend/pkg/geo"
)

const maxSearchBodyBytes = 16 << 10

// SessionHandler exposes search sessions: one per map view, replaced
// wholesale on every search.
type SessionHandler struct {
	sessions *services.SessionManager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *services.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// sessionSearchBody is the payload of POST /api/sessions/{id}/search.
// Lat/Lon are the device fix unless Source is "explicit"; LocationError
// reports why the browser could not supply one ("denied" or "unavailable").
type sessionSearchBody struct {
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
	Source        string   `json:"source"`
	LocationError string   `json:"location_error"`
	Address       string   `json:"address"`
	Query         string   `json:"q"`
	Type          string   `json:"type"`
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Create()
	respondWithJSON(w, http.StatusCreated, session.Snapshot())
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, session.Snapshot())
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /api/sessions/{id}/search[?wait=true]
// Without wait the search runs in the background and 202 carries its sequence number.
func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	req, err := decodeSessionSearch(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if wait {
		snapshot, err := session.Search(r.Context(), req)
		if err != nil {
			respondWithSessionError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, snapshot)
		return
	}

	ticket, err := session.Trigger(r.Context(), req)
	if err != nil {
		respondWithSessionError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"session_id": session.ID(),
		"sequence":   ticket.Sequence,
		"state":      "loading",
	})
}

func respondWithSessionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrSessionDisposed) {
		respondWithError(w, http.StatusGone, "search session has ended")
		return
	}
	respondWithAppError(r.Context(), w, err)
}

func decodeSessionSearch(r *http.Request) (services.SearchRequest, error) {
	var body sessionSearchBody
	if r.Body != nil {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxSearchBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return services.SearchRequest{}, errors.New("invalid request body")
		}
	}

	ft, err := services.ParseFacilityType(body.Type)
	if err != nil {
		return services.SearchRequest{}, err
	}
	req := services.SearchRequest{
		Term:         strings.TrimSpace(body.Query),
		FacilityType: ft,
	}

	if body.Lat != nil || body.Lon != nil {
		if body.Lat == nil || body.Lon == nil {
			return services.SearchRequest{}, errors.New("latitude and longitude must be given together")
		}
		center := geo.Coordinate{Latitude: *body.Lat, Longitude: *body.Lon}
		if err := checkCoordinate(center); err != nil {
			return services.SearchRequest{}, err
		}
		if strings.EqualFold(body.Source, "explicit") {
			req.Center = &center
		} else {
			req.Locator = providers.StaticLocator(center)
		}
		return req, nil
	}

	if address := strings.TrimSpace(body.Address); address != "" {
		req.Address = address
		return req, nil
	}

	switch strings.ToLower(strings.TrimSpace(body.LocationError)) {
	case "":
	case "denied":
		req.Locator = failingLocator(providers.ErrPermissionDenied)
	case "unavailable":
		req.Locator = failingLocator(providers.ErrLocationUnavailable)
	default:
		return services.SearchRequest{}, errors.New("location_error must be denied or unavailable")
	}
	return req, nil
}

func failingLocator(err error) providers.DeviceLocator {
	return providers.DeviceLocatorFunc(func(ctx context.Context) (geo.Coordinate, error) {
		return geo.Coordinate{}, err
	})
}
