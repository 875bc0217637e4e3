package services

import (
	"context"
	"strings"
	"time"

	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/gramaarogya/backend/internal/infrastructure/observability"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
	"go.opentelemetry.io/otel/attribute"
)

const maxTermLength = 200

// SearchRequest describes where and what to search. The center is taken
// from Center, else Address, else Locator (falling back to the default place).
type SearchRequest struct {
	Center       *geo.Coordinate
	Address      string
	Locator      providers.DeviceLocator
	Term         string
	FacilityType FacilityType
}

// SearchOutcome is a completed search: results sorted by distance plus map markers.
type SearchOutcome struct {
	State        entities.SearchState      `json:"state"`
	Center       geo.Coordinate            `json:"center"`
	CenterSource entities.CenterSource     `json:"center_source"`
	CenterLabel  string                    `json:"center_label,omitempty"`
	Term         string                    `json:"term,omitempty"`
	Results      []entities.FacilityResult `json:"results"`
	Markers      []entities.Marker         `json:"markers"`
	Attempts     []StrategyAttempt         `json:"attempts"`
}

// Searcher runs one complete search.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchOutcome, error)
}

// FacilitySearchService wires the geolocator, dispatcher and ranking into one pipeline.
type FacilitySearchService struct {
	geolocator *Geolocator
	dispatcher *Dispatcher
	dedupeDeg  float64
	metrics    *observability.Metrics
}

// NewFacilitySearchService creates a new facility search service
func NewFacilitySearchService(geolocator *Geolocator, dispatcher *Dispatcher, dedupeThresholdDeg float64, metrics *observability.Metrics) *FacilitySearchService {
	if dedupeThresholdDeg <= 0 {
		dedupeThresholdDeg = DefaultDedupeThresholdDeg
	}
	return &FacilitySearchService{
		geolocator: geolocator,
		dispatcher: dispatcher,
		dedupeDeg:  dedupeThresholdDeg,
		metrics:    metrics,
	}
}

// ResolveCenter picks the search center for req.
func (s *FacilitySearchService) ResolveCenter(ctx context.Context, req SearchRequest) (*LocationResolution, error) {
	switch {
	case req.Center != nil:
		return &LocationResolution{Coordinate: *req.Center, Source: entities.CenterSourceExplicit}, nil
	case strings.TrimSpace(req.Address) != "":
		return s.geolocator.ResolveAddress(ctx, req.Address)
	default:
		return s.geolocator.ResolveUserLocation(ctx, req.Locator)
	}
}

// Search resolves the center, dispatches the strategies and ranks the
// merged candidates. No facilities is the empty state, not an error.
func (s *FacilitySearchService) Search(ctx context.Context, req SearchRequest) (*SearchOutcome, error) {
	ctx, span := observability.StartSpan(ctx, "FacilitySearchService.Search")
	defer span.End()
	start := time.Now()

	outcome, err := s.search(ctx, req)

	state := entities.SearchStateError
	if err == nil {
		state = outcome.State
	} else {
		observability.RecordError(span, err)
	}
	observability.RecordSearch(ctx, s.metrics, string(state), time.Since(start))
	observability.SetSpanAttributes(span, attribute.String("search.state", string(state)))

	return outcome, err
}

func (s *FacilitySearchService) search(ctx context.Context, req SearchRequest) (*SearchOutcome, error) {
	term := strings.TrimSpace(req.Term)
	if len(term) > maxTermLength {
		return nil, apperrors.NewValidationError("search term is too long")
	}
	if req.FacilityType == "" {
		req.FacilityType = FacilityTypeAll
	}

	center, err := s.ResolveCenter(ctx, req)
	if err != nil {
		return nil, err
	}

	report, err := s.dispatcher.Dispatch(ctx, DispatchRequest{
		Center:       center.Coordinate,
		Term:         term,
		FacilityType: req.FacilityType,
	})
	if err != nil {
		return nil, err
	}

	results := Rank(center.Coordinate, report.Candidates, s.dedupeDeg)
	state := entities.SearchStateResults
	if len(results) == 0 {
		state = entities.SearchStateEmpty
	}

	return &SearchOutcome{
		State:        state,
		Center:       center.Coordinate,
		CenterSource: center.Source,
		CenterLabel:  center.Address,
		Term:         term,
		Results:      results,
		Markers:      BuildMarkers(center.Coordinate, results),
		Attempts:     report.Attempts,
	}, nil
}
