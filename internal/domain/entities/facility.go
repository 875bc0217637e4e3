package entities

import "github.com/gramaarogya/backend/pkg/geo"

// FacilityCandidate is a healthcare place returned by a places-search provider.
// It has no identity beyond Name plus Coordinate.
type FacilityCandidate struct {
	Name               string         `json:"name"`
	Address            string         `json:"address"`
	Coordinate         geo.Coordinate `json:"coordinate"`
	Website            string         `json:"website,omitempty"`
	Categories         []string       `json:"categories,omitempty"`
	SourceStrategyRank int            `json:"source_strategy_rank"` // index of the producing strategy
	Source             string         `json:"source,omitempty"`
}

// FacilityResult is a candidate enriched with its distance from the search center.
type FacilityResult struct {
	FacilityCandidate
	DistanceKm float64 `json:"distance_km"`
	MapLink    string  `json:"map_link"`
}

// NewFacilityResult derives a result for candidate as seen from center.
func NewFacilityResult(center geo.Coordinate, candidate FacilityCandidate) FacilityResult {
	candidate.Categories = append([]string(nil), candidate.Categories...)
	return FacilityResult{
		FacilityCandidate: candidate,
		DistanceKm:        geo.HaversineKm(center, candidate.Coordinate),
		MapLink:           geo.MapLink(candidate.Coordinate),
	}
}
