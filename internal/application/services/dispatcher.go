package services

import (
	"context"
	"errors"
	"time"

	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/gramaarogya/backend/internal/infrastructure/observability"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultResultThreshold stops the strategy loop once this many unique candidates are known.
const DefaultResultThreshold = 10

// ErrAllStrategiesFailed is returned when no strategy produced a usable response.
var ErrAllStrategiesFailed = errors.New("all facility search strategies failed")

// DispatcherConfig tunes the strategy loop.
type DispatcherConfig struct {
	Strategies         []Strategy
	ResultThreshold    int
	DedupeThresholdDeg float64
	// RequestTimeout bounds each strategy; zero leaves it to the HTTP client.
	RequestTimeout time.Duration
}

// StrategyAttempt describes one executed strategy.
type StrategyAttempt struct {
	Strategy   string        `json:"strategy"`
	Rank       int           `json:"rank"`
	Radius     int           `json:"radius_meters"`
	Categories []string      `json:"categories"`
	Count      int           `json:"count"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// DispatchReport is the merged candidate list plus per-strategy detail.
type DispatchReport struct {
	Candidates     []entities.FacilityCandidate
	Attempts       []StrategyAttempt
	ShortCircuited bool
}

// DispatchRequest is a dispatcher query.
type DispatchRequest struct {
	Center       geo.Coordinate
	Term         string
	FacilityType FacilityType
}

// Dispatcher runs the fallback strategies against a places provider.
type Dispatcher struct {
	places  providers.PlacesProvider
	cfg     DispatcherConfig
	metrics *observability.Metrics
}

// NewDispatcher creates a dispatcher; zero config fields take the defaults.
func NewDispatcher(places providers.PlacesProvider, cfg DispatcherConfig, metrics *observability.Metrics) *Dispatcher {
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = DefaultStrategies()
	}
	if cfg.ResultThreshold <= 0 {
		cfg.ResultThreshold = DefaultResultThreshold
	}
	if cfg.DedupeThresholdDeg <= 0 {
		cfg.DedupeThresholdDeg = DefaultDedupeThresholdDeg
	}
	return &Dispatcher{places: places, cfg: cfg, metrics: metrics}
}

// Strategies returns the plan in execution order.
func (d *Dispatcher) Strategies() []Strategy {
	return append([]Strategy(nil), d.cfg.Strategies...)
}

// FindNearbyFacilities searches around center for term across all facility types.
func (d *Dispatcher) FindNearbyFacilities(ctx context.Context, center geo.Coordinate, term string) (*DispatchReport, error) {
	return d.Dispatch(ctx, DispatchRequest{Center: center, Term: term, FacilityType: FacilityTypeAll})
}

// Dispatch runs the strategies sequentially until enough unique candidates
// are known. Zero results overall is an empty report, not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchReport, error) {
	ctx, span := observability.StartSpan(ctx, "Dispatcher.Dispatch")
	defer span.End()

	queries := make([]providers.PlaceQuery, len(d.cfg.Strategies))
	steps := make([]Step[entities.FacilityCandidate], len(d.cfg.Strategies))
	for i, strategy := range d.cfg.Strategies {
		rank := i
		query := strategy.Query(req.Center, req.Term, req.FacilityType)
		queries[i] = query
		steps[i] = Step[entities.FacilityCandidate]{
			Name: strategy.Name,
			Run: func(ctx context.Context) ([]entities.FacilityCandidate, error) {
				return d.runOne(ctx, rank, query)
			},
		}
	}

	candidates, results := RunStrategies(ctx, steps, d.cfg.ResultThreshold, CountUnique(d.cfg.DedupeThresholdDeg))

	report := &DispatchReport{
		Candidates: candidates,
		Attempts:   make([]StrategyAttempt, 0, len(results)),
	}
	failures := 0
	for _, res := range results {
		attempt := StrategyAttempt{
			Strategy:   res.Name,
			Rank:       res.Index,
			Radius:     queries[res.Index].RadiusMeters,
			Categories: queries[res.Index].Categories,
			Count:      res.Count,
			Duration:   res.Duration,
		}
		outcome := "ok"
		switch {
		case res.Err != nil:
			failures++
			outcome = "error"
			attempt.Error = res.Err.Error()
			log.Warn().
				Err(res.Err).
				Str("strategy", res.Name).
				Int("rank", res.Index).
				Str("error_type", string(apperrors.TypeOf(res.Err))).
				Msg("Facility search strategy failed, trying next")
		case res.Count == 0:
			outcome = "empty"
		}
		observability.RecordStrategyAttempt(ctx, d.metrics, res.Name, outcome)
		report.Attempts = append(report.Attempts, attempt)
	}
	report.ShortCircuited = len(results) < len(steps) && CountUnique(d.cfg.DedupeThresholdDeg)(candidates) >= d.cfg.ResultThreshold

	observability.SetSpanAttributes(span,
		attribute.Int("dispatch.attempts", len(results)),
		attribute.Int("dispatch.failures", failures),
		attribute.Int("dispatch.candidates", len(candidates)),
		attribute.Bool("dispatch.short_circuited", report.ShortCircuited),
	)

	// Cancellation wins over empty or all-failed outcomes.
	if err := ctx.Err(); err != nil {
		observability.RecordError(span, err)
		return report, err
	}
	if len(results) > 0 && failures == len(results) {
		err := apperrors.NewExternalError("facility search is unavailable, please try again", ErrAllStrategiesFailed)
		observability.RecordError(span, err)
		return report, err
	}

	log.Debug().
		Int("attempts", len(results)).
		Int("failures", failures).
		Int("candidates", len(candidates)).
		Bool("short_circuited", report.ShortCircuited).
		Msg("Facility dispatch finished")

	return report, nil
}

func (d *Dispatcher) runOne(ctx context.Context, rank int, query providers.PlaceQuery) ([]entities.FacilityCandidate, error) {
	if d.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.RequestTimeout)
		defer cancel()
	}

	candidates, err := d.places.SearchPlaces(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]entities.FacilityCandidate, len(candidates))
	for i, c := range candidates {
		c.SourceStrategyRank = rank
		out[i] = c
	}
	return out, nil
}
