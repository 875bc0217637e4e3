package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
	"github.com/rs/zerolog/log"
)

// ErrSessionDisposed is returned when triggering a search on a disposed session.
var ErrSessionDisposed = errors.New("search session disposed")

// SearchTicket identifies one triggered search.
type SearchTicket struct {
	Sequence uint64
	done     chan struct{}
}

// Done is closed once the search has finished, whether or not its outcome was applied.
func (t *SearchTicket) Done() <-chan struct{} {
	return t.done
}

// SearchSession holds the result list and marker layer of one user's map
// view. Every Trigger replaces the previous results wholesale; an outcome
// is applied only if no newer search was triggered meanwhile.
type SearchSession struct {
	id       string
	searcher Searcher
	bus      providers.EventBus
	layer    *MarkerLayer
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	seq          uint64
	state        entities.SearchState
	term         string
	center       *geo.Coordinate
	centerSource entities.CenterSource
	results      []entities.FacilityResult
	errMsg       string
	updatedAt    time.Time
	lastActive   time.Time
	inflight     context.CancelFunc
	disposed     bool
}

// NewSearchSession creates an idle session with an initialised marker layer. bus may be nil.
func NewSearchSession(id string, searcher Searcher, bus providers.EventBus) *SearchSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &SearchSession{
		id:       id,
		searcher: searcher,
		bus:      bus,
		layer:    NewMarkerLayer(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		state:    entities.SearchStateIdle,
	}
	_ = s.layer.Init()
	s.updatedAt = s.now()
	s.lastActive = s.updatedAt
	return s
}

// ID returns the session id.
func (s *SearchSession) ID() string {
	return s.id
}

// Trigger starts a new search and returns its ticket. Previous results and
// markers are cleared at once and any older in-flight search is cancelled.
func (s *SearchSession) Trigger(ctx context.Context, req SearchRequest) (*SearchTicket, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrSessionDisposed
	}

	if s.inflight != nil {
		s.inflight()
	}
	searchCtx, cancel := context.WithCancel(s.ctx)
	s.inflight = cancel

	s.seq++
	ticket := &SearchTicket{Sequence: s.seq, done: make(chan struct{})}
	s.state = entities.SearchStateLoading
	s.term = req.Term
	s.results = nil
	s.center = nil
	s.centerSource = ""
	s.errMsg = ""
	s.layer.Clear()
	s.updatedAt = s.now()
	s.lastActive = s.updatedAt
	event := s.eventLocked()

	s.wg.Add(1)
	s.mu.Unlock()

	s.publish(ctx, event)

	go func() {
		defer s.wg.Done()
		defer close(ticket.done)
		defer cancel()

		outcome, err := s.searcher.Search(searchCtx, req)
		s.apply(ticket.Sequence, outcome, err)
	}()

	return ticket, nil
}

// Search triggers a search and waits for it. The returned snapshot may
// belong to a newer search if one was triggered meanwhile.
func (s *SearchSession) Search(ctx context.Context, req SearchRequest) (entities.SearchSnapshot, error) {
	ticket, err := s.Trigger(ctx, req)
	if err != nil {
		return entities.SearchSnapshot{}, err
	}
	select {
	case <-ticket.Done():
		return s.Snapshot(), nil
	case <-ctx.Done():
		return entities.SearchSnapshot{}, ctx.Err()
	}
}

func (s *SearchSession) apply(seq uint64, outcome *SearchOutcome, err error) {
	s.mu.Lock()
	if s.disposed || seq != s.seq {
		s.mu.Unlock()
		log.Debug().Str("session_id", s.id).Uint64("sequence", seq).Msg("Discarding stale search outcome")
		return
	}
	s.inflight = nil

	if err != nil {
		s.state = entities.SearchStateError
		s.errMsg = userMessage(err)
		log.Warn().Err(err).Str("session_id", s.id).Uint64("sequence", seq).Msg("Search failed")
	} else {
		center := outcome.Center
		s.state = outcome.State
		s.center = &center
		s.centerSource = outcome.CenterSource
		s.results = outcome.Results
		if err := s.layer.Replace(outcome.Markers); err != nil {
			log.Warn().Err(err).Str("session_id", s.id).Msg("Failed to place markers")
		}
	}
	s.updatedAt = s.now()
	event := s.eventLocked()
	s.mu.Unlock()

	s.publish(s.ctx, event)
}

func userMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "search failed, please try again"
}

func (s *SearchSession) eventLocked() *entities.SessionEvent {
	return &entities.SessionEvent{
		SessionID:   s.id,
		Sequence:    s.seq,
		State:       s.state,
		ResultCount: len(s.results),
		Error:       s.errMsg,
		Timestamp:   s.updatedAt,
	}
}

func (s *SearchSession) publish(ctx context.Context, event *entities.SessionEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(context.WithoutCancel(ctx), providers.GetSessionChannel(s.id), event); err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("Failed to publish session event")
	}
}

// Snapshot returns a copy of the session state safe to hand to renderers.
func (s *SearchSession) Snapshot() entities.SearchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.now()

	snap := entities.SearchSnapshot{
		SessionID:    s.id,
		Sequence:     s.seq,
		State:        s.state,
		Loading:      s.state == entities.SearchStateLoading,
		Term:         s.term,
		CenterSource: s.centerSource,
		Results:      make([]entities.FacilityResult, len(s.results)),
		Markers:      s.layer.Markers(),
		Error:        s.errMsg,
		UpdatedAt:    s.updatedAt,
	}
	for i, r := range s.results {
		r.Categories = append([]string(nil), r.Categories...)
		snap.Results[i] = r
	}
	if s.center != nil {
		center := *s.center
		snap.Center = &center
	}
	return snap
}

func (s *SearchSession) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.state == entities.SearchStateLoading
}

// Dispose cancels any in-flight search, waits for it, tears down the marker
// layer and closes event subscriptions. It is idempotent.
func (s *SearchSession) Dispose(ctx context.Context) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.layer.Dispose()

	if s.bus != nil {
		if err := s.bus.Unsubscribe(ctx, providers.GetSessionChannel(s.id)); err != nil {
			log.Warn().Err(err).Str("session_id", s.id).Msg("Failed to close session subscriptions")
		}
	}
}

// SessionManager keeps the live search sessions of this process.
type SessionManager struct {
	searcher Searcher
	bus      providers.EventBus
	idleTTL  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*SearchSession

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewSessionManager creates an empty registry. idleTTL <= 0 disables expiry.
func NewSessionManager(searcher Searcher, bus providers.EventBus, idleTTL time.Duration) *SessionManager {
	return &SessionManager{
		searcher: searcher,
		bus:      bus,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*SearchSession),
		stop:     make(chan struct{}),
	}
}

// Create registers a new idle session.
func (m *SessionManager) Create() *SearchSession {
	session := NewSearchSession(uuid.NewString(), m.searcher, m.bus)
	session.now = m.now
	session.lastActive = m.now()

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	log.Debug().Str("session_id", session.ID()).Msg("Search session created")
	return session
}

// Get returns a live session.
func (m *SessionManager) Get(id string) (*SearchSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("search session not found")
	}
	return session, nil
}

// Delete disposes and forgets a session.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return apperrors.NewNotFoundError("search session not found")
	}
	session.Dispose(ctx)
	return nil
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Expire disposes sessions idle for longer than the TTL and returns how many it removed.
// Sessions with a search in flight are kept.
func (m *SessionManager) Expire(ctx context.Context) int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)

	var expired []*SearchSession
	m.mu.Lock()
	for id, session := range m.sessions {
		lastActive, loading := session.idleSince()
		if !loading && lastActive.Before(cutoff) {
			expired = append(expired, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.Dispose(ctx)
	}
	if len(expired) > 0 {
		log.Info().Int("expired", len(expired)).Msg("Expired idle search sessions")
	}
	return len(expired)
}

// StartJanitor expires idle sessions every interval until Close.
func (m *SessionManager) StartJanitor(interval time.Duration) {
	if m.idleTTL <= 0 || interval <= 0 {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.Expire(context.Background())
			}
		}
	}()
}

// Close stops the janitor and disposes every session.
func (m *SessionManager) Close(ctx context.Context) {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*SearchSession)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Dispose(ctx)
	}
}
