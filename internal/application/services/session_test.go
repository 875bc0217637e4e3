package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gramaarogya/backend/internal/application/services"
	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type searchReply struct {
	outcome *services.SearchOutcome
	err     error
}

// gatedSearcher answers each search only when the test releases it.
type gatedSearcher struct {
	mu      sync.Mutex
	gates   map[string]chan searchReply
	started chan string
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{gates: map[string]chan searchReply{}, started: make(chan string, 10)}
}

func (g *gatedSearcher) gate(term string) chan searchReply {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gates[term] == nil {
		g.gates[term] = make(chan searchReply, 1)
	}
	return g.gates[term]
}

func (g *gatedSearcher) Search(ctx context.Context, req services.SearchRequest) (*services.SearchOutcome, error) {
	gate := g.gate(req.Term)
	g.started <- req.Term
	select {
	case reply := <-gate:
		return reply.outcome, reply.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func outcomeWith(names ...string) *services.SearchOutcome {
	var results []entities.FacilityResult
	for i, n := range names {
		c := entities.FacilityCandidate{Name: n, Coordinate: geo.Coordinate{Latitude: newDelhi.Latitude + float64(i+1)*0.01, Longitude: newDelhi.Longitude}}
		results = append(results, entities.NewFacilityResult(newDelhi, c))
	}
	state := entities.SearchStateResults
	if len(results) == 0 {
		state = entities.SearchStateEmpty
	}
	return &services.SearchOutcome{
		State:        state,
		Center:       newDelhi,
		CenterSource: entities.CenterSourceDevice,
		Results:      results,
		Markers:      services.BuildMarkers(newDelhi, results),
	}
}

func waitTicket(t *testing.T, ticket *services.SearchTicket) {
	t.Helper()
	select {
	case <-ticket.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("search did not finish")
	}
}

func TestSearchSession_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	searcher := newGatedSearcher()
	bus := &recordingBus{}
	session := services.NewSearchSession("s1", searcher, bus)
	defer session.Dispose(context.Background())

	assert.Equal(t, entities.SearchStateIdle, session.Snapshot().State)

	ticket, err := session.Trigger(context.Background(), services.SearchRequest{Term: "dentist"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ticket.Sequence)
	<-searcher.started

	snap := session.Snapshot()
	assert.Equal(t, entities.SearchStateLoading, snap.State)
	assert.True(t, snap.Loading)

	searcher.gate("dentist") <- searchReply{outcome: outcomeWith("Apollo Dental", "Clove Dental")}
	waitTicket(t, ticket)

	snap = session.Snapshot()
	assert.Equal(t, entities.SearchStateResults, snap.State)
	assert.False(t, snap.Loading)
	assert.Len(t, snap.Results, 2)
	require.Len(t, snap.Markers, 3)
	assert.Equal(t, services.UserMarkerLabel, snap.Markers[0].Label)
	require.NotNil(t, snap.Center)
	assert.Equal(t, newDelhi, *snap.Center)

	assert.Equal(t, []entities.SearchState{entities.SearchStateLoading, entities.SearchStateResults}, bus.states())
}

func TestSearchSession_DiscardsStaleResponses(t *testing.T) {
	defer goleak.VerifyNone(t)

	searcher := newGatedSearcher()
	session := services.NewSearchSession("s2", searcher, nil)
	defer session.Dispose(context.Background())

	first, err := session.Trigger(context.Background(), services.SearchRequest{Term: "first"})
	require.NoError(t, err)
	<-searcher.started

	second, err := session.Trigger(context.Background(), services.SearchRequest{Term: "second"})
	require.NoError(t, err)
	<-searcher.started
	assert.Greater(t, second.Sequence, first.Sequence)

	// The first search was cancelled by the second trigger; even a late
	// answer for it must not be shown.
	searcher.gate("first") <- searchReply{outcome: outcomeWith("Stale Clinic")}
	waitTicket(t, first)
	assert.Equal(t, entities.SearchStateLoading, session.Snapshot().State)

	searcher.gate("second") <- searchReply{outcome: outcomeWith("Fresh Hospital")}
	waitTicket(t, second)

	snap := session.Snapshot()
	require.Len(t, snap.Results, 1)
	assert.Equal(t, "Fresh Hospital", snap.Results[0].Name)
	assert.Equal(t, second.Sequence, snap.Sequence)
}

func TestSearchSession_NewTriggerClearsResults(t *testing.T) {
	defer goleak.VerifyNone(t)

	searcher := newGatedSearcher()
	session := services.NewSearchSession("s3", searcher, nil)
	defer session.Dispose(context.Background())

	ticket, _ := session.Trigger(context.Background(), services.SearchRequest{Term: "a"})
	<-searcher.started
	searcher.gate("a") <- searchReply{outcome: outcomeWith("One")}
	waitTicket(t, ticket)
	first := session.Snapshot()
	require.Len(t, first.Results, 1)
	require.NotNil(t, first.Center)
	assert.Equal(t, entities.CenterSourceDevice, first.CenterSource)

	_, err := session.Trigger(context.Background(), services.SearchRequest{Term: "b"})
	require.NoError(t, err)
	<-searcher.started

	snap := session.Snapshot()
	assert.Empty(t, snap.Results)
	assert.Empty(t, snap.Markers)
	assert.Nil(t, snap.Center)
	assert.Empty(t, snap.CenterSource)
	assert.Equal(t, entities.SearchStateLoading, snap.State)
}

func TestSearchSession_EmptyAndErrorStates(t *testing.T) {
	defer goleak.VerifyNone(t)

	searcher := newGatedSearcher()
	session := services.NewSearchSession("s4", searcher, nil)
	defer session.Dispose(context.Background())

	ticket, _ := session.Trigger(context.Background(), services.SearchRequest{Term: "empty"})
	<-searcher.started
	searcher.gate("empty") <- searchReply{outcome: outcomeWith()}
	waitTicket(t, ticket)
	snap := session.Snapshot()
	assert.Equal(t, entities.SearchStateEmpty, snap.State)
	assert.Empty(t, snap.Error)

	ticket, _ = session.Trigger(context.Background(), services.SearchRequest{Term: "fail"})
	<-searcher.started
	searcher.gate("fail") <- searchReply{err: apperrors.NewExternalError("facility search is unavailable, please try again", services.ErrAllStrategiesFailed)}
	waitTicket(t, ticket)
	snap = session.Snapshot()
	assert.Equal(t, entities.SearchStateError, snap.State)
	assert.Equal(t, "facility search is unavailable, please try again", snap.Error)
}

func TestSearchSession_SnapshotIsACopy(t *testing.T) {
	defer goleak.VerifyNone(t)

	searcher := newGatedSearcher()
	session := services.NewSearchSession("s5", searcher, nil)
	defer session.Dispose(context.Background())

	ticket, _ := session.Trigger(context.Background(), services.SearchRequest{Term: "x"})
	<-searcher.started
	searcher.gate("x") <- searchReply{outcome: outcomeWith("Original")}
	waitTicket(t, ticket)

	snap := session.Snapshot()
	snap.Results[0].Name = "Mutated"
	snap.Markers[1].Label = "Mutated"
	snap.Center.Latitude = 0

	again := session.Snapshot()
	assert.Equal(t, "Original", again.Results[0].Name)
	assert.Equal(t, "Original", again.Markers[1].Label)
	assert.Equal(t, newDelhi, *again.Center)
}

func TestSearchSession_DisposeCancelsInflight(t *testing.T) {
	defer goleak.VerifyNone(t)

	searcher := newGatedSearcher()
	bus := &recordingBus{}
	session := services.NewSearchSession("s6", searcher, bus)

	ticket, err := session.Trigger(context.Background(), services.SearchRequest{Term: "slow"})
	require.NoError(t, err)
	<-searcher.started

	session.Dispose(context.Background())
	waitTicket(t, ticket)
	session.Dispose(context.Background())

	_, err = session.Trigger(context.Background(), services.SearchRequest{Term: "again"})
	assert.ErrorIs(t, err, services.ErrSessionDisposed)
	assert.Empty(t, session.Snapshot().Markers)
	assert.Equal(t, []string{providers.GetSessionChannel("s6")}, bus.unsubscribed)
}

func TestSearchSession_SearchWaits(t *testing.T) {
	defer goleak.VerifyNone(t)

	searcher := newGatedSearcher()
	searcher.gate("now") <- searchReply{outcome: outcomeWith("Ready")}
	session := services.NewSearchSession("s7", searcher, nil)
	defer session.Dispose(context.Background())

	snap, err := session.Search(context.Background(), services.SearchRequest{Term: "now"})
	require.NoError(t, err)
	assert.Equal(t, entities.SearchStateResults, snap.State)
}

func TestSessionManager(t *testing.T) {
	defer goleak.VerifyNone(t)

	searcher := newGatedSearcher()
	manager := services.NewSessionManager(searcher, nil, time.Minute)
	defer manager.Close(context.Background())

	session := manager.Create()
	got, err := manager.Get(session.ID())
	require.NoError(t, err)
	assert.Same(t, session, got)

	_, err = manager.Get("missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	require.NoError(t, manager.Delete(context.Background(), session.ID()))
	assert.Zero(t, manager.Len())
	assert.True(t, apperrors.IsType(manager.Delete(context.Background(), session.ID()), apperrors.ErrorTypeNotFound))
}

func TestSessionManager_ExpiresIdleSessions(t *testing.T) {
	defer goleak.VerifyNone(t)

	manager := services.NewSessionManager(newGatedSearcher(), nil, time.Minute)
	defer manager.Close(context.Background())

	manager.Create()
	assert.Zero(t, manager.Expire(context.Background()))

	short := services.NewSessionManager(newGatedSearcher(), nil, time.Millisecond)
	defer short.Close(context.Background())
	short.Create()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, short.Expire(context.Background()))
	assert.Zero(t, short.Len())
}

func TestMarkerLayer_MustBeDisposedBeforeReinit(t *testing.T) {
	layer := services.NewMarkerLayer()
	assert.ErrorIs(t, layer.Replace(nil), services.ErrMarkerLayerInactive)

	require.NoError(t, layer.Init())
	assert.ErrorIs(t, layer.Init(), services.ErrMarkerLayerActive)

	markers := services.BuildMarkers(newDelhi, nil)
	require.NoError(t, layer.Replace(markers))
	assert.Len(t, layer.Markers(), 1)

	layer.Dispose()
	assert.False(t, layer.Active())
	assert.Empty(t, layer.Markers())
	require.NoError(t, layer.Init())
}
