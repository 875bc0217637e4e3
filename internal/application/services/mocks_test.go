package services_test

import (
	"context"
	"sync"

	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/stretchr/testify/mock"
)

type MockPlacesProvider struct {
	mock.Mock
}

func (m *MockPlacesProvider) SearchPlaces(ctx context.Context, query providers.PlaceQuery) ([]entities.FacilityCandidate, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.FacilityCandidate), args.Error(1)
}

type MockGeocodingProvider struct {
	mock.Mock
}

func (m *MockGeocodingProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.GeocodedAddress), args.Error(1)
}

func (m *MockGeocodingProvider) ReverseGeocode(ctx context.Context, lat, lon float64) (*providers.GeocodedAddress, error) {
	args := m.Called(ctx, lat, lon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.GeocodedAddress), args.Error(1)
}

// recordingBus is an EventBus that keeps every published event.
type recordingBus struct {
	mu           sync.Mutex
	events       []*entities.SessionEvent
	unsubscribed []string
}

func (b *recordingBus) Publish(ctx context.Context, channel string, event *entities.SessionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.SessionEvent, error) {
	return make(chan *entities.SessionEvent), nil
}

func (b *recordingBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribed = append(b.unsubscribed, channel)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) states() []entities.SearchState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]entities.SearchState, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.State)
	}
	return out
}
