// Package signal defines the normalized analyst output model
package signal

import (
	"time"
)

// Recommendation is an analyst's stance on an instrument
type Recommendation string

const (
	Buy     Recommendation = "BUY"
	Sell    Recommendation = "SELL"
	Hold    Recommendation = "HOLD"
	Neutral Recommendation = "NEUTRAL"
)

// priority fixes the tie-break order used during aggregation:
// BUY beats SELL beats HOLD beats NEUTRAL.
var priority = map[Recommendation]int{
	Buy:     0,
	Sell:    1,
	Hold:    2,
	Neutral: 3,
}

// All returns every recommendation value in tie-break priority order
func All() []Recommendation {
	return []Recommendation{Buy, Sell, Hold, Neutral}
}

// Valid reports whether r is one of the four enumerated values
func (r Recommendation) Valid() bool {
	_, ok := priority[r]
	return ok
}

// Beats reports whether r wins a vote-mass tie against other
func (r Recommendation) Beats(other Recommendation) bool {
	return priority[r] < priority[other]
}

// Signal is one analyst's evaluation of an instrument. A Signal is a
// candidate until the reviewer approves it; once accepted it is never
// mutated again.
type Signal struct {
	ID             string         `json:"id"`
	Symbol         string         `json:"symbol"`
	AnalystKind    string         `json:"analyst_kind"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"` // 0-1
	Drivers        []string       `json:"drivers"`
	Risks          []string       `json:"risks"`

	// RevisionCount is the number of review rounds this signal went
	// through before the current one. Set by the coordinator.
	RevisionCount int `json:"revision_count"`

	CreatedAt time.Time `json:"created_at"`
}

// String returns a short human-readable form
func (s *Signal) String() string {
	return s.Symbol + " " + string(s.Recommendation) + " (" + s.AnalystKind + ")"
}
