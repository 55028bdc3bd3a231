// Package committee implements the coordination engine: per-instrument
// evaluation pipelines with bounded review cycles, fan-out/join
// scheduling, and weighted-vote aggregation.
package committee

import (
	"time"

	"github.com/alpinequant/committee/pkg/market"
	"github.com/alpinequant/committee/pkg/signal"
)

// State is the lifecycle state of one instrument pipeline
type State string

const (
	StatePending   State = "pending"
	StateAnalyzing State = "analyzing"
	StateReviewing State = "reviewing"
	StateRevising  State = "revising"
	StateAccepted  State = "accepted"
	StateFailed    State = "failed"
)

// Terminal reports whether the state ends the pipeline
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateFailed
}

// ReasonCode classifies why an instrument pipeline failed
type ReasonCode string

const (
	ReasonDataUnavailable ReasonCode = "DATA_UNAVAILABLE"
	ReasonAnalysisError   ReasonCode = "ANALYSIS_ERROR"
	ReasonBudgetExhausted ReasonCode = "REVIEW_BUDGET_EXHAUSTED"
	ReasonCancelled       ReasonCode = "CANCELLED"
)

// InstrumentResult is the terminal record of one pipeline. Written
// exactly once; never mutated afterwards.
type InstrumentResult struct {
	Instrument market.Instrument `json:"instrument"`
	State      State             `json:"state"`
	Signals    []*signal.Signal  `json:"signals,omitempty"`
	Reason     ReasonCode        `json:"reason,omitempty"`
	Err        error             `json:"-"`
}

// AggregatedRecommendation is the committee's combined stance on one
// instrument after weighted voting.
type AggregatedRecommendation struct {
	Symbol               string                `json:"symbol"`
	Recommendation       signal.Recommendation `json:"recommendation"`
	Confidence           float64               `json:"confidence"`
	ContributingAnalysts []string              `json:"contributing_analysts"`
	Rationale            string                `json:"rationale"`
}

// ProgressEvent reports a pipeline state transition to observers
type ProgressEvent struct {
	Symbol      string    `json:"symbol"`
	State       State     `json:"state"`
	AnalystKind string    `json:"analyst_kind,omitempty"`
	Revision    int       `json:"revision"`
	Timestamp   time.Time `json:"timestamp"`
}

// RunResult is everything one committee run produced
type RunResult struct {
	RunID           string                       `json:"run_id"`
	Results         map[string]*InstrumentResult `json:"results"`
	Recommendations []AggregatedRecommendation   `json:"recommendations"`
	StartedAt       time.Time                    `json:"started_at"`
	FinishedAt      time.Time                    `json:"finished_at"`
}
