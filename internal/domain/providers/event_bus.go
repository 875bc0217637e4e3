package providers

import (
	"context"

	"github.com/gramaarogya/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to session events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.SessionEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.SessionEvent, error)

	// Unsubscribe drops every subscriber of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelSessionPrefix is the prefix for per-session channels
const EventChannelSessionPrefix = "session:"

// GetSessionChannel returns the channel name for a search session
func GetSessionChannel(sessionID string) string {
	return EventChannelSessionPrefix + sessionID
}
