package committee

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alpinequant/committee/pkg/signal"
)

// Aggregate combines accepted signals for one instrument by weighted
// voting. weight is looked up per analyst kind. The result is a pure
// function of the signal set: input order never changes the outcome.
//
// Vote mass per recommendation is the sum of weight x confidence over
// the signals carrying it. The recommendation with the largest mass
// wins; ties break by fixed priority (BUY > SELL > HOLD > NEUTRAL).
// Zero total mass yields HOLD at confidence 0.
func Aggregate(symbol string, signals []*signal.Signal, weight func(kind string) float64) AggregatedRecommendation {
	mass := make(map[signal.Recommendation]float64, 4)
	total := 0.0
	seen := make(map[string]bool, len(signals))
	kinds := make([]string, 0, len(signals))

	for _, sig := range signals {
		m := weight(sig.AnalystKind) * sig.Confidence
		mass[sig.Recommendation] += m
		total += m
		if !seen[sig.AnalystKind] {
			seen[sig.AnalystKind] = true
			kinds = append(kinds, sig.AnalystKind)
		}
	}
	sort.Strings(kinds)

	if total == 0 {
		return AggregatedRecommendation{
			Symbol:               symbol,
			Recommendation:       signal.Hold,
			Confidence:           0,
			ContributingAnalysts: kinds,
			Rationale:            "no vote mass; defaulting to HOLD",
		}
	}

	// Iterate in priority order so an exact tie resolves to the
	// higher-priority recommendation.
	winner := signal.Hold
	best := -1.0
	for _, rec := range signal.All() {
		if m, ok := mass[rec]; ok && m > best {
			winner = rec
			best = m
		}
	}

	return AggregatedRecommendation{
		Symbol:               symbol,
		Recommendation:       winner,
		Confidence:           best / total,
		ContributingAnalysts: kinds,
		Rationale: fmt.Sprintf("%s carried %.3f of %.3f vote mass from %s",
			winner, best, total, strings.Join(kinds, ", ")),
	}
}
