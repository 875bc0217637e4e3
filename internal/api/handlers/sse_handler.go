package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gramaarogya/backend/internal/application/services"
	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/gramaarogya/backend/internal/infrastructure/observability"
)

const defaultHeartbeatInterval = 30 * time.Second

// SSEHandler streams session state changes as Server-Sent Events
type SSEHandler struct {
	sessions  *services.SessionManager
	eventBus  providers.EventBus
	heartbeat time.Duration
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(sessions *services.SessionManager, eventBus providers.EventBus) *SSEHandler {
	return NewSSEHandlerWithHeartbeat(sessions, eventBus, defaultHeartbeatInterval)
}

// NewSSEHandlerWithHeartbeat allows overriding the heartbeat interval (used for tests).
func NewSSEHandlerWithHeartbeat(sessions *services.SessionManager, eventBus providers.EventBus, heartbeat time.Duration) *SSEHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	return &SSEHandler{sessions: sessions, eventBus: eventBus, heartbeat: heartbeat}
}

// StreamSessionEvents handles GET /api/sessions/{id}/events
// The first event is the current snapshot; the stream ends when the session is disposed.
func (h *SSEHandler) StreamSessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	session, err := h.sessions.Get(sessionID)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	logger := observability.LoggerFromContext(r.Context()).With().Str("session_id", sessionID).Logger()

	events, err := h.eventBus.Subscribe(r.Context(), providers.GetSessionChannel(sessionID))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to subscribe to session events")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.sendEvent(w, "snapshot", session.Snapshot())
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Msg("Client disconnected from session stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				h.sendEvent(w, "closed", map[string]string{"session_id": sessionID})
				flusher.Flush()
				return
			}
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.State), event)
			flusher.Flush()
		}
	}
}

// sendEvent writes one SSE frame
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
}
