package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gramaarogya/backend/internal/application/services"
	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var newDelhi = geo.Coordinate{Latitude: 28.6139, Longitude: 77.2090}

func radius(r int) interface{} {
	return mock.MatchedBy(func(q providers.PlaceQuery) bool { return q.RadiusMeters == r })
}

func uniqueCandidates(n int, prefix string) []entities.FacilityCandidate {
	out := make([]entities.FacilityCandidate, n)
	for i := range out {
		out[i] = entities.FacilityCandidate{
			Name:       fmt.Sprintf("%s %d", prefix, i),
			Coordinate: geo.Coordinate{Latitude: newDelhi.Latitude + float64(i)*0.01, Longitude: newDelhi.Longitude},
		}
	}
	return out
}

func TestDispatcher_ShortCircuitsAtThreshold(t *testing.T) {
	places := new(MockPlacesProvider)
	places.On("SearchPlaces", mock.Anything, radius(5000)).Return(uniqueCandidates(15, "Clinic"), nil).Once()

	dispatcher := services.NewDispatcher(places, services.DispatcherConfig{ResultThreshold: 10}, nil)
	report, err := dispatcher.FindNearbyFacilities(context.Background(), newDelhi, "clinic")

	require.NoError(t, err)
	assert.Len(t, report.Candidates, 15)
	assert.True(t, report.ShortCircuited)
	require.Len(t, report.Attempts, 1)
	places.AssertExpectations(t)
	places.AssertNumberOfCalls(t, "SearchPlaces", 1)
}

func TestDispatcher_DuplicatesDoNotCountTowardsThreshold(t *testing.T) {
	dup := uniqueCandidates(1, "Apollo")[0]
	many := make([]entities.FacilityCandidate, 12)
	for i := range many {
		many[i] = dup
	}

	places := new(MockPlacesProvider)
	places.On("SearchPlaces", mock.Anything, radius(5000)).Return(many, nil).Once()
	places.On("SearchPlaces", mock.Anything, radius(15000)).Return(uniqueCandidates(10, "Hospital"), nil).Once()

	dispatcher := services.NewDispatcher(places, services.DispatcherConfig{ResultThreshold: 10}, nil)
	report, err := dispatcher.FindNearbyFacilities(context.Background(), newDelhi, "")

	require.NoError(t, err)
	assert.Len(t, report.Attempts, 2)
	places.AssertExpectations(t)
}

func TestDispatcher_AllEmptyIsNotAnError(t *testing.T) {
	places := new(MockPlacesProvider)
	places.On("SearchPlaces", mock.Anything, mock.Anything).Return([]entities.FacilityCandidate{}, nil)

	dispatcher := services.NewDispatcher(places, services.DispatcherConfig{}, nil)
	report, err := dispatcher.FindNearbyFacilities(context.Background(), newDelhi, "dentist")

	require.NoError(t, err)
	assert.Empty(t, report.Candidates)
	assert.Len(t, report.Attempts, 3)
	assert.False(t, report.ShortCircuited)
	places.AssertNumberOfCalls(t, "SearchPlaces", 3)
}

func TestDispatcher_AllFailed(t *testing.T) {
	places := new(MockPlacesProvider)
	places.On("SearchPlaces", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewTransportError("geoapify request failed", errors.New("connection refused")))

	dispatcher := services.NewDispatcher(places, services.DispatcherConfig{}, nil)
	report, err := dispatcher.FindNearbyFacilities(context.Background(), newDelhi, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrAllStrategiesFailed)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	require.Len(t, report.Attempts, 3)
	for _, a := range report.Attempts {
		assert.Contains(t, a.Error, "connection refused")
	}
}

func TestDispatcher_FailureThenEmptyIsEmpty(t *testing.T) {
	places := new(MockPlacesProvider)
	places.On("SearchPlaces", mock.Anything, radius(5000)).Return(nil, apperrors.NewParseError("bad shape", nil)).Once()
	places.On("SearchPlaces", mock.Anything, mock.Anything).Return([]entities.FacilityCandidate{}, nil)

	dispatcher := services.NewDispatcher(places, services.DispatcherConfig{}, nil)
	report, err := dispatcher.FindNearbyFacilities(context.Background(), newDelhi, "")

	require.NoError(t, err)
	assert.Empty(t, report.Candidates)
}

func TestDispatcher_TagsStrategyRank(t *testing.T) {
	places := new(MockPlacesProvider)
	shared := uniqueCandidates(2, "PHC")
	places.On("SearchPlaces", mock.Anything, radius(5000)).Return(shared[:1], nil).Once()
	places.On("SearchPlaces", mock.Anything, radius(15000)).Return(shared[1:], nil).Once()
	places.On("SearchPlaces", mock.Anything, radius(30000)).Return([]entities.FacilityCandidate{}, nil).Once()

	dispatcher := services.NewDispatcher(places, services.DispatcherConfig{}, nil)
	report, err := dispatcher.FindNearbyFacilities(context.Background(), newDelhi, "")

	require.NoError(t, err)
	require.Len(t, report.Candidates, 2)
	assert.Equal(t, 0, report.Candidates[0].SourceStrategyRank)
	assert.Equal(t, 1, report.Candidates[1].SourceStrategyRank)
	assert.Zero(t, shared[1].SourceStrategyRank, "provider slices must not be modified")
}

func TestDispatcher_RequestTimeoutAppliesPerStrategy(t *testing.T) {
	places := new(MockPlacesProvider)
	places.On("SearchPlaces", mock.Anything, radius(5000)).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, apperrors.NewTransportError("timeout", context.DeadlineExceeded)).Once()
	places.On("SearchPlaces", mock.Anything, mock.Anything).Return(uniqueCandidates(3, "CHC"), nil)

	dispatcher := services.NewDispatcher(places, services.DispatcherConfig{RequestTimeout: 20 * time.Millisecond}, nil)
	report, err := dispatcher.FindNearbyFacilities(context.Background(), newDelhi, "")

	require.NoError(t, err)
	assert.NotEmpty(t, report.Attempts[0].Error)
	assert.Len(t, report.Candidates, 6)
}

func TestDispatcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	places := new(MockPlacesProvider)
	dispatcher := services.NewDispatcher(places, services.DispatcherConfig{}, nil)
	_, err := dispatcher.FindNearbyFacilities(ctx, newDelhi, "")

	assert.ErrorIs(t, err, context.Canceled)
	places.AssertNotCalled(t, "SearchPlaces", mock.Anything, mock.Anything)
}

func TestDispatcher_CancelledDuringLastStrategy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	places := new(MockPlacesProvider)
	places.On("SearchPlaces", mock.Anything, radius(30000)).
		Run(func(args mock.Arguments) { cancel() }).
		Return(nil, context.Canceled).Once()
	places.On("SearchPlaces", mock.Anything, mock.Anything).Return([]entities.FacilityCandidate{}, nil)

	dispatcher := services.NewDispatcher(places, services.DispatcherConfig{}, nil)
	report, err := dispatcher.FindNearbyFacilities(ctx, newDelhi, "")

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, services.ErrAllStrategiesFailed)
	assert.Len(t, report.Attempts, 3)
	assert.Empty(t, report.Candidates)
}

func TestDispatcher_CancelledAfterEveryStrategyFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	places := new(MockPlacesProvider)
	places.On("SearchPlaces", mock.Anything, radius(30000)).
		Run(func(args mock.Arguments) { cancel() }).
		Return(nil, context.Canceled).Once()
	places.On("SearchPlaces", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewTransportError("geoapify request failed", errors.New("connection refused")))

	dispatcher := services.NewDispatcher(places, services.DispatcherConfig{}, nil)
	_, err := dispatcher.FindNearbyFacilities(ctx, newDelhi, "")

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, services.ErrAllStrategiesFailed)
}
