// Package portfolio turns committee recommendations into a normalized
// capital allocation.
package portfolio

import (
	"fmt"
	"math"
	"sort"

	"github.com/alpinequant/committee/pkg/committee"
)

// Allocation maps symbol to portfolio weight. Weights are in [0, 1]
// and sum to 1, or the allocation is empty.
type Allocation map[string]float64

// Manager computes allocations under a fixed eligibility policy
type Manager struct {
	eligibility committee.EligibilityPolicy
}

// NewManager creates a portfolio manager. A nil policy selects the
// default (BUY only).
func NewManager(policy committee.EligibilityPolicy) *Manager {
	if policy == nil {
		policy = committee.DefaultEligibility()
	}
	return &Manager{eligibility: policy}
}

// Allocate distributes weight over the eligible recommendations in
// proportion to confidence times the optional per-symbol multiplier
// (nil multipliers means 1 everywhere). Pure and idempotent: the same
// inputs always produce the same allocation, and input order never
// matters. An empty eligible set yields an empty allocation.
func (m *Manager) Allocate(recs []committee.AggregatedRecommendation, multipliers map[string]float64) (Allocation, error) {
	type scored struct {
		symbol string
		score  float64
	}

	eligible := make([]scored, 0, len(recs))
	total := 0.0
	for _, rec := range recs {
		if !m.eligibility.Eligible(rec.Recommendation) {
			continue
		}
		mult := 1.0
		if multipliers != nil {
			if v, ok := multipliers[rec.Symbol]; ok {
				mult = v
			}
		}
		if mult < 0 || math.IsNaN(mult) || math.IsInf(mult, 0) {
			return nil, fmt.Errorf("multiplier for %s must be finite and >= 0, got %v", rec.Symbol, mult)
		}
		score := rec.Confidence * mult
		eligible = append(eligible, scored{symbol: rec.Symbol, score: score})
		total += score
	}

	alloc := make(Allocation, len(eligible))
	if total == 0 {
		return alloc, nil
	}

	// Normalize in symbol order so rounding behaves identically
	// across runs regardless of input order.
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].symbol < eligible[j].symbol })
	for _, e := range eligible {
		alloc[e.symbol] = e.score / total
	}
	return alloc, nil
}

// Sum returns the total allocated weight
func (a Allocation) Sum() float64 {
	total := 0.0
	for _, w := range a {
		total += w
	}
	return total
}
