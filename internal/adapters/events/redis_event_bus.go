package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	redisclient "github.com/gramaarogya/backend/internal/infrastructure/clients/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 32

type redisSubscription struct {
	pubsub      *redis.PubSub
	subscribers map[chan *entities.SessionEvent]struct{}
}

// RedisEventBus fans session events out through Redis Pub/Sub so every
// API instance can stream a session's transitions.
type RedisEventBus struct {
	client   *redisclient.Client
	channels map[string]*redisSubscription
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:   client,
		channels: make(map[string]*redisSubscription),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Publish publishes an event to all subscribers
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe registers a subscriber; it is removed when ctx ends.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.SessionEvent, error) {
	b.mu.Lock()

	if b.ctx.Err() != nil {
		b.mu.Unlock()
		return nil, fmt.Errorf("event bus closed")
	}

	sub, exists := b.channels[channel]
	if !exists {
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		// Wait for the subscription confirmation so no publish is missed.
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			b.mu.Unlock()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		sub = &redisSubscription{
			pubsub:      pubsub,
			subscribers: make(map[chan *entities.SessionEvent]struct{}),
		}
		b.channels[channel] = sub
		go b.receiveMessages(channel, sub)
	}

	eventChan := make(chan *entities.SessionEvent, subscriberBuffer)
	sub.subscribers[eventChan] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeSubscriber(channel, eventChan)
	}()

	return eventChan, nil
}

func (b *RedisEventBus) receiveMessages(channel string, sub *redisSubscription) {
	for msg := range sub.pubsub.Channel() {
		var event entities.SessionEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("Dropping undecodable session event")
			continue
		}

		b.mu.RLock()
		for subscriber := range sub.subscribers {
			evt := event
			select {
			case subscriber <- &evt:
			default:
				log.Warn().Str("channel", channel).Uint64("sequence", event.Sequence).Msg("Subscriber channel full, skipping event")
			}
		}
		b.mu.RUnlock()
	}
}

func (b *RedisEventBus) removeSubscriber(channel string, eventChan chan *entities.SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, exists := b.channels[channel]
	if !exists {
		return
	}
	if _, ok := sub.subscribers[eventChan]; !ok {
		return
	}

	delete(sub.subscribers, eventChan)
	close(eventChan)

	if len(sub.subscribers) == 0 {
		delete(b.channels, channel)
		_ = sub.pubsub.Close()
	}
}

// closeChannelLocked must be called with b.mu held.
func (b *RedisEventBus) closeChannelLocked(channel string) error {
	sub, exists := b.channels[channel]
	if !exists {
		return nil
	}
	for subscriber := range sub.subscribers {
		close(subscriber)
	}
	delete(b.channels, channel)
	if err := sub.pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	return nil
}

// Unsubscribe drops every subscriber of channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeChannelLocked(channel)
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for channel := range b.channels {
		if err := b.closeChannelLocked(channel); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing event bus: %v", errs)
	}
	return nil
}
