package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gramaarogya/backend/internal/application/services"
	"github.com/gramaarogya/backend/pkg/config"
	"github.com/gramaarogya/backend/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countAll(items []int) int { return len(items) }

func intStep(name string, calls *[]string, items []int, err error) services.Step[int] {
	return services.Step[int]{
		Name: name,
		Run: func(context.Context) ([]int, error) {
			*calls = append(*calls, name)
			return items, err
		},
	}
}

func TestRunStrategies_StopsAtThreshold(t *testing.T) {
	var calls []string
	steps := []services.Step[int]{
		intStep("a", &calls, []int{1, 2}, nil),
		intStep("b", &calls, []int{3}, nil),
		intStep("c", &calls, []int{4}, nil),
	}

	items, results := services.RunStrategies(context.Background(), steps, 3, countAll)

	assert.Equal(t, []int{1, 2, 3}, items)
	assert.Equal(t, []string{"a", "b"}, calls)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[1].Index)
	assert.Equal(t, 1, results[1].Count)
}

func TestRunStrategies_ContinuesPastFailures(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	steps := []services.Step[int]{
		intStep("a", &calls, nil, boom),
		intStep("b", &calls, []int{7}, nil),
		intStep("c", &calls, nil, nil),
	}

	items, results := services.RunStrategies(context.Background(), steps, 10, countAll)

	assert.Equal(t, []int{7}, items)
	assert.Equal(t, []string{"a", "b", "c"}, calls)
	require.Len(t, results, 3)
	assert.ErrorIs(t, results[0].Err, boom)
	assert.Zero(t, results[0].Count)
	assert.Zero(t, results[2].Count)
}

func TestRunStrategies_CountsUniqueItems(t *testing.T) {
	var calls []string
	steps := []services.Step[int]{
		intStep("a", &calls, []int{1, 1, 1}, nil),
		intStep("b", &calls, []int{2}, nil),
	}
	unique := func(items []int) int {
		seen := map[int]bool{}
		for _, i := range items {
			seen[i] = true
		}
		return len(seen)
	}

	_, results := services.RunStrategies(context.Background(), steps, 2, unique)
	assert.Len(t, results, 2)
}

func TestRunStrategies_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls []string
	steps := []services.Step[int]{
		{Name: "a", Run: func(context.Context) ([]int, error) {
			calls = append(calls, "a")
			cancel()
			return nil, context.Canceled
		}},
		intStep("b", &calls, []int{1}, nil),
	}

	_, results := services.RunStrategies(ctx, steps, 1, countAll)
	assert.Equal(t, []string{"a"}, calls)
	assert.Len(t, results, 1)
}

func TestDefaultStrategies_NarrowToBroad(t *testing.T) {
	plan := services.DefaultStrategies()
	require.Len(t, plan, 3)
	for i := 1; i < len(plan); i++ {
		assert.Greater(t, plan[i].RadiusMeters, plan[i-1].RadiusMeters)
	}
	assert.True(t, plan[0].UseTerm)
	assert.Equal(t, services.ScopeBroad, plan[2].Scope)
}

func TestStrategiesFromConfig(t *testing.T) {
	assert.Equal(t, services.DefaultStrategies(), services.StrategiesFromConfig(nil))

	plan := services.StrategiesFromConfig([]config.StrategyConfig{
		{Scope: "generic", RadiusMeters: 2000},
		{Name: "district", Scope: "broad", RadiusMeters: 40000, Limit: 50, UseTerm: true},
	})
	assert.Equal(t, []services.Strategy{
		{Name: "generic-1", Scope: services.ScopeGeneric, RadiusMeters: 2000, Limit: 20},
		{Name: "district", Scope: services.ScopeBroad, RadiusMeters: 40000, Limit: 50, UseTerm: true},
	}, plan)
}

func TestStrategy_Query(t *testing.T) {
	center := geo.Coordinate{Latitude: 20.2961, Longitude: 85.8245}
	plan := services.DefaultStrategies()

	q := plan[0].Query(center, " dentist ", services.FacilityTypeAll)
	assert.Equal(t, []string{services.CategoryDentist}, q.Categories)
	assert.Equal(t, "dentist", q.Term)
	assert.Equal(t, 5000, q.RadiusMeters)
	assert.Equal(t, center, q.Center)

	q = plan[1].Query(center, "dentist", services.FacilityTypeAll)
	assert.Empty(t, q.Term)

	q = plan[2].Query(center, "dentist", services.FacilityTypeAll)
	assert.Equal(t, services.BroadCategories, q.Categories)

	q = plan[0].Query(center, "", services.FacilityTypePublic)
	assert.Equal(t, []string{services.CategoryHospital}, q.Categories)
	assert.Equal(t, "public health center", q.Term)

	generic := services.Strategy{Name: "g", Scope: services.ScopeGeneric, RadiusMeters: 100}
	assert.Equal(t, services.GenericCategories, generic.Query(center, "cardio", services.FacilityTypeAll).Categories)
}
