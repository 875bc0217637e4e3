package entities

import (
	"time"

	"github.com/gramaarogya/backend/pkg/geo"
)

// SearchState is the observable condition of a search session.
type SearchState string

const (
	SearchStateIdle    SearchState = "idle"
	SearchStateLoading SearchState = "loading"
	SearchStateResults SearchState = "results"
	SearchStateEmpty   SearchState = "empty"
	SearchStateError   SearchState = "error"
)

// Terminal reports whether s ends a search.
func (s SearchState) Terminal() bool {
	switch s {
	case SearchStateResults, SearchStateEmpty, SearchStateError:
		return true
	}
	return false
}

// CenterSource records where the search center came from.
type CenterSource string

const (
	CenterSourceExplicit CenterSource = "explicit"
	CenterSourceDevice   CenterSource = "device"
	CenterSourceAddress  CenterSource = "address"
	CenterSourceFallback CenterSource = "fallback"
)

// MarkerKind distinguishes the user marker from facility markers.
type MarkerKind string

const (
	MarkerKindUser     MarkerKind = "user"
	MarkerKindFacility MarkerKind = "facility"
)

// Marker is one map pin placed for a rendered result set.
type Marker struct {
	Kind       MarkerKind     `json:"kind"`
	Label      string         `json:"label"`
	Coordinate geo.Coordinate `json:"coordinate"`
	Link       string         `json:"link,omitempty"`
}

// SearchSnapshot is the read-only view of a session handed to renderers.
type SearchSnapshot struct {
	SessionID    string           `json:"session_id"`
	Sequence     uint64           `json:"sequence"`
	State        SearchState      `json:"state"`
	Loading      bool             `json:"loading"`
	Term         string           `json:"term,omitempty"`
	Center       *geo.Coordinate  `json:"center,omitempty"`
	CenterSource CenterSource     `json:"center_source,omitempty"`
	Results      []FacilityResult `json:"results"`
	Markers      []Marker         `json:"markers"`
	Error        string           `json:"error,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// SessionEvent is published whenever a session changes state.
type SessionEvent struct {
	SessionID   string      `json:"session_id"`
	Sequence    uint64      `json:"sequence"`
	State       SearchState `json:"state"`
	ResultCount int         `json:"result_count"`
	Error       string      `json:"error,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}
