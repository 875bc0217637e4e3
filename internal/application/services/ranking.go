package services

import (
	"math"
	"sort"

	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/pkg/geo"
)

// DefaultDedupeThresholdDeg is roughly 111 m at the equator.
const DefaultDedupeThresholdDeg = 0.001

// DistanceEpsilonKm is the gap below which two distances count as equal
// when sorting.
const DistanceEpsilonKm = 1e-9

// IsDuplicate reports whether two candidates name the same place: exact
// name match and both axes closer than thresholdDeg.
func IsDuplicate(a, b entities.FacilityCandidate, thresholdDeg float64) bool {
	return a.Name == b.Name && geo.WithinDelta(a.Coordinate, b.Coordinate, thresholdDeg)
}

// Dedupe keeps the first occurrence of each place. Quadratic in the number
// of candidates, which the dispatcher threshold keeps small.
func Dedupe(candidates []entities.FacilityCandidate, thresholdDeg float64) []entities.FacilityCandidate {
	out := make([]entities.FacilityCandidate, 0, len(candidates))
	for _, c := range candidates {
		dup := false
		for _, kept := range out {
			if IsDuplicate(kept, c, thresholdDeg) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// CountUnique is the number of candidates Dedupe would keep.
func CountUnique(thresholdDeg float64) func([]entities.FacilityCandidate) int {
	return func(candidates []entities.FacilityCandidate) int {
		return len(Dedupe(candidates, thresholdDeg))
	}
}

// BuildResults computes distance and map link for each candidate.
func BuildResults(center geo.Coordinate, candidates []entities.FacilityCandidate) []entities.FacilityResult {
	out := make([]entities.FacilityResult, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, entities.NewFacilityResult(center, c))
	}
	return out
}

// SortByDistance returns a copy ordered by ascending distance. Distances
// within DistanceEpsilonKm keep their input order; NaN distances sort last.
func SortByDistance(results []entities.FacilityResult) []entities.FacilityResult {
	out := append([]entities.FacilityResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DistanceKm, out[j].DistanceKm
		if math.IsNaN(di) {
			return false
		}
		if math.IsNaN(dj) {
			return true
		}
		return dj-di > DistanceEpsilonKm
	})
	return out
}

// Rank runs dedupe, distance and sort in that order.
func Rank(center geo.Coordinate, candidates []entities.FacilityCandidate, thresholdDeg float64) []entities.FacilityResult {
	return SortByDistance(BuildResults(center, Dedupe(candidates, thresholdDeg)))
}
