package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gramaarogya/backend/internal/domain/providers"
	"github.com/gramaarogya/backend/pkg/config"
	"github.com/gramaarogya/backend/pkg/geo"
)

// Scope selects how a strategy derives its category filter.
type Scope string

const (
	// ScopeSpecific uses the categories implied by the term or facility type.
	ScopeSpecific Scope = "specific"
	// ScopeGeneric uses the hospital/clinic set.
	ScopeGeneric Scope = "generic"
	// ScopeBroad uses the top-level healthcare category.
	ScopeBroad Scope = "broad"
)

const defaultStrategyLimit = 20

// Strategy describes one places query of the fallback plan.
type Strategy struct {
	Name         string
	Scope        Scope
	RadiusMeters int
	Limit        int
	UseTerm      bool
}

// DefaultStrategies is the narrow-to-broad plan used when none is configured.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "specific-5km", Scope: ScopeSpecific, RadiusMeters: 5000, Limit: defaultStrategyLimit, UseTerm: true},
		{Name: "specific-15km", Scope: ScopeSpecific, RadiusMeters: 15000, Limit: defaultStrategyLimit},
		{Name: "broad-30km", Scope: ScopeBroad, RadiusMeters: 30000, Limit: defaultStrategyLimit},
	}
}

// StrategiesFromConfig converts a loaded plan; an empty plan yields the default.
func StrategiesFromConfig(entries []config.StrategyConfig) []Strategy {
	if len(entries) == 0 {
		return DefaultStrategies()
	}
	out := make([]Strategy, 0, len(entries))
	for i, e := range entries {
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("%s-%d", e.Scope, i+1)
		}
		limit := e.Limit
		if limit <= 0 {
			limit = defaultStrategyLimit
		}
		out = append(out, Strategy{
			Name:         name,
			Scope:        Scope(e.Scope),
			RadiusMeters: e.RadiusMeters,
			Limit:        limit,
			UseTerm:      e.UseTerm,
		})
	}
	return out
}

// Query builds the places request this strategy issues.
func (s Strategy) Query(center geo.Coordinate, term string, facilityType FacilityType) providers.PlaceQuery {
	var categories []string
	switch s.Scope {
	case ScopeBroad:
		categories = BroadCategories
	case ScopeGeneric:
		if categories = facilityType.Categories(); categories == nil {
			categories = GenericCategories
		}
	default:
		if categories = facilityType.Categories(); categories == nil {
			categories = CategoriesForTerm(term)
		}
	}

	query := providers.PlaceQuery{
		Categories:   append([]string(nil), categories...),
		Center:       center,
		RadiusMeters: s.RadiusMeters,
		Limit:        s.Limit,
	}
	if s.UseTerm {
		query.Term = strings.TrimSpace(term)
		if query.Term == "" {
			query.Term = facilityType.DefaultTerm()
		}
	}
	return query
}

// Step is one unit of work for RunStrategies.
type Step[T any] struct {
	Name string
	Run  func(ctx context.Context) ([]T, error)
}

// StepResult records what one executed step produced.
type StepResult struct {
	Name     string
	Index    int
	Count    int
	Err      error
	Duration time.Duration
}

// RunStrategies evaluates steps in order, appending their items, and stops
// as soon as countUnique(accumulated) reaches threshold. A failing step is
// recorded and the run moves on. Steps after the stopping point, or after
// ctx ends, are not executed.
func RunStrategies[T any](ctx context.Context, steps []Step[T], threshold int, countUnique func([]T) int) ([]T, []StepResult) {
	var acc []T
	results := make([]StepResult, 0, len(steps))

	for i, step := range steps {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		items, err := step.Run(ctx)
		res := StepResult{Name: step.Name, Index: i, Err: err, Duration: time.Since(start)}
		if err == nil {
			res.Count = len(items)
			acc = append(acc, items...)
		}
		results = append(results, res)

		if threshold > 0 && countUnique(acc) >= threshold {
			break
		}
	}
	return acc, results
}
