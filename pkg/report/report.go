// Package report assembles the run outcome into a serializable report
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/alpinequant/committee/pkg/committee"
	"github.com/alpinequant/committee/pkg/portfolio"
)

// Entry is the outcome for one configured instrument. Every
// instrument in the universe appears in the report, accepted or not.
type Entry struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name,omitempty"`
	Outcome        string  `json:"outcome"` // accepted | failed
	Recommendation string  `json:"recommendation,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	Weight         float64 `json:"weight,omitempty"`
	Rationale      string  `json:"rationale,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	Error          string  `json:"error,omitempty"`
	Signals        int     `json:"signals,omitempty"`
}

// Report is the full result of one committee run
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Entries     []Entry   `json:"entries"`
	TotalWeight float64   `json:"total_weight"`
}

// Build assembles a report from the run result and allocation.
// Entries are sorted by symbol.
func Build(run *committee.RunResult, alloc portfolio.Allocation) *Report {
	recBySymbol := make(map[string]committee.AggregatedRecommendation, len(run.Recommendations))
	for _, rec := range run.Recommendations {
		recBySymbol[rec.Symbol] = rec
	}

	entries := make([]Entry, 0, len(run.Results))
	for sym, res := range run.Results {
		e := Entry{
			Symbol: sym,
			Name:   res.Instrument.Name,
		}
		switch res.State {
		case committee.StateAccepted:
			e.Outcome = "accepted"
			e.Signals = len(res.Signals)
			if rec, ok := recBySymbol[sym]; ok {
				e.Recommendation = string(rec.Recommendation)
				e.Confidence = rec.Confidence
				e.Rationale = rec.Rationale
			}
			e.Weight = alloc[sym]
		default:
			e.Outcome = "failed"
			e.Reason = string(res.Reason)
			if res.Err != nil {
				e.Error = res.Err.Error()
			}
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })

	return &Report{
		RunID:       run.RunID,
		GeneratedAt: time.Now(),
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Entries:     entries,
		TotalWeight: alloc.Sum(),
	}
}

// WriteJSON writes the report to path as indented JSON
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
