package routes

import (
	"net/http"

	"github.com/gramaarogya/backend/internal/api/handlers"
	"github.com/gramaarogya/backend/internal/api/middleware"
	"github.com/gramaarogya/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	facilityHandler    *handlers.FacilityHandler
	geolocationHandler *handlers.GeolocationHandler
	sessionHandler     *handlers.SessionHandler
	sseHandler         *handlers.SSEHandler
	mapsHandler        *handlers.MapsHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	facilityHandler *handlers.FacilityHandler,
	geolocationHandler *handlers.GeolocationHandler,
	sessionHandler *handlers.SessionHandler,
	sseHandler *handlers.SSEHandler,
	mapsHandler *handlers.MapsHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		facilityHandler:    facilityHandler,
		geolocationHandler: geolocationHandler,
		sessionHandler:     sessionHandler,
		sseHandler:         sseHandler,
		mapsHandler:        mapsHandler,
		allowedOrigins:     allowedOrigins,
		metrics:            metrics,
	}
}

// SetupRoutes sets up all routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Stateless search endpoints
	r.mux.HandleFunc("GET /api/facilities/nearby", r.facilityHandler.Nearby)
	r.mux.HandleFunc("GET /api/health-centers", r.facilityHandler.HealthCenters)

	// Geolocation endpoints
	r.mux.HandleFunc("GET /api/geocode", r.geolocationHandler.Geocode)
	r.mux.HandleFunc("GET /api/reverse-geocode", r.geolocationHandler.ReverseGeocode)
	r.mux.HandleFunc("GET /api/location/default", r.geolocationHandler.DefaultLocation)

	// Search sessions
	r.mux.HandleFunc("POST /api/sessions", r.sessionHandler.CreateSession)
	r.mux.HandleFunc("GET /api/sessions/{id}", r.sessionHandler.GetSession)
	r.mux.HandleFunc("DELETE /api/sessions/{id}", r.sessionHandler.DeleteSession)
	r.mux.HandleFunc("POST /api/sessions/{id}/search", r.sessionHandler.Search)
	r.mux.HandleFunc("GET /api/sessions/{id}/events", r.sseHandler.StreamSessionEvents)

	if r.mapsHandler != nil {
		r.mux.HandleFunc("GET /api/sessions/{id}/map", r.mapsHandler.GetSessionMap)
	}

	// Observability sits next to the mux so it sees the matched pattern.
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set on every response
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
