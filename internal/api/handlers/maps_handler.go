package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gramaarogya/backend/internal/application/services"
	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/gramaarogya/backend/internal/infrastructure/observability"
)

const (
	staticMapURL          = "https://maps.googleapis.com/maps/api/staticmap"
	defaultStaticMapZoom  = "13"
	defaultStaticMapSize  = "640x360"
	defaultStaticMapScale = "1"
	staticMapCacheTTL     = 60 * 60 * 24 * 7
	maxStaticMapBytes     = 8 << 20
	maxFacilityMarkers    = 20
)

// MapsHandler renders the session marker layer as a static map image.
type MapsHandler struct {
	apiKey   string
	cache    providers.CacheProvider
	client   *http.Client
	baseURL  string
	sessions *services.SessionManager
	metrics  *observability.Metrics
}

// NewMapsHandler creates a new maps handler.
func NewMapsHandler(apiKey string, cache providers.CacheProvider, sessions *services.SessionManager, metrics *observability.Metrics) *MapsHandler {
	return NewMapsHandlerWithOptions(apiKey, cache, sessions, metrics, staticMapURL, nil)
}

// NewMapsHandlerWithOptions allows overriding base URL and HTTP client (used for tests).
func NewMapsHandlerWithOptions(apiKey string, cache providers.CacheProvider, sessions *services.SessionManager, metrics *observability.Metrics, baseURL string, client *http.Client) *MapsHandler {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = staticMapURL
	}
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	return &MapsHandler{
		apiKey:   apiKey,
		cache:    cache,
		client:   client,
		baseURL:  baseURL,
		sessions: sessions,
		metrics:  metrics,
	}
}

// GetSessionMap handles GET /api/sessions/{id}/map. The user marker is
// blue, facility markers red and numbered in distance order.
func (h *MapsHandler) GetSessionMap(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" {
		respondWithError(w, http.StatusServiceUnavailable, "maps api key not configured")
		return
	}

	session, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	snapshot := session.Snapshot()
	if len(snapshot.Markers) == 0 {
		respondWithError(w, http.StatusConflict, "session has no markers to render")
		return
	}

	query := r.URL.Query()
	params := staticMapParams{
		center:  snapshot.Markers[0].Coordinate.String(),
		zoom:    valueOr(query.Get("zoom"), defaultStaticMapZoom),
		size:    valueOr(query.Get("size"), defaultStaticMapSize),
		scale:   valueOr(query.Get("scale"), defaultStaticMapScale),
		markers: sessionMarkers(snapshot.Markers),
	}
	h.serveStaticMap(w, r, params)
}

type staticMapParams struct {
	center  string
	zoom    string
	size    string
	scale   string
	markers []string
}

func (p staticMapParams) values() url.Values {
	values := url.Values{}
	values.Set("center", p.center)
	values.Set("zoom", p.zoom)
	values.Set("size", p.size)
	values.Set("scale", p.scale)
	for _, marker := range p.markers {
		values.Add("markers", marker)
	}
	return values
}

func (h *MapsHandler) serveStaticMap(w http.ResponseWriter, r *http.Request, params staticMapParams) {
	cacheKey := buildStaticMapCacheKey(params)
	if h.cache != nil {
		cached, err := h.cache.Get(r.Context(), cacheKey)
		switch {
		case err == nil && len(cached) > 0:
			observability.RecordCacheHit(r.Context(), h.metrics, "static_map")
			w.Header().Set("Content-Type", "image/png")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		case err != nil && !errors.Is(err, providers.ErrCacheMiss):
			observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("Static map cache read failed")
		}
		observability.RecordCacheMiss(r.Context(), h.metrics, "static_map")
	}

	values := params.values()
	values.Set("key", h.apiKey)

	mapURL := fmt.Sprintf("%s?%s", h.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, mapURL, nil)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to build map request")
		return
	}

	resp, err := h.client.Do(req)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "failed to fetch map image")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respondWithError(w, http.StatusBadGateway, "map provider returned an error")
		return
	}

	imageBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxStaticMapBytes))
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "failed to read map image")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), cacheKey, imageBytes, staticMapCacheTTL); err != nil {
			observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("Static map cache write failed")
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(imageBytes)
}

// sessionMarkers encodes markers in Static Maps syntax. Labels are a single
// character, so only the first nine facilities are numbered.
func sessionMarkers(markers []entities.Marker) []string {
	out := make([]string, 0, len(markers))
	facilities := 0
	for _, m := range markers {
		if m.Kind == entities.MarkerKindUser {
			out = append(out, "color:blue|label:U|"+m.Coordinate.String())
			continue
		}
		if facilities == maxFacilityMarkers {
			break
		}
		facilities++
		style := "color:red|size:small"
		if facilities <= 9 {
			style = fmt.Sprintf("color:red|label:%d", facilities)
		}
		out = append(out, style+"|"+m.Coordinate.String())
	}
	return out
}

func valueOr(value, fallback string) string {
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}

func buildStaticMapCacheKey(params staticMapParams) string {
	return "maps:static:" + hashString(params.values().Encode())
}

func hashString(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
