// Package reviewer implements the quality gate that signals must pass
// before they count toward aggregation.
package reviewer

import (
	"fmt"

	"github.com/alpinequant/committee/pkg/signal"
)

// Verdict is the outcome of one review round
type Verdict struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
}

// Reviewer judges a candidate signal. Stateless; safe for concurrent
// use.
type Reviewer interface {
	Review(sig *signal.Signal) Verdict
}

// RuleReviewer applies the committee's structural validation rules.
// It rejects a signal on the first violated rule; feedback names the
// rule so the analyst can revise.
type RuleReviewer struct{}

// NewRuleReviewer creates a rule-based reviewer
func NewRuleReviewer() *RuleReviewer {
	return &RuleReviewer{}
}

// Review implements Reviewer
func (r *RuleReviewer) Review(sig *signal.Signal) Verdict {
	if !sig.Recommendation.Valid() {
		return reject(sig, fmt.Sprintf("recommendation %q is not one of BUY/SELL/HOLD/NEUTRAL", sig.Recommendation))
	}
	if sig.Confidence < 0 || sig.Confidence > 1 {
		return reject(sig, fmt.Sprintf("confidence %.3f outside [0, 1]", sig.Confidence))
	}
	if sig.Recommendation == signal.Buy || sig.Recommendation == signal.Sell {
		if len(sig.Drivers) == 0 {
			return reject(sig, "actionable recommendation must name at least one driver")
		}
		if len(sig.Risks) == 0 {
			return reject(sig, "actionable recommendation must name at least one risk")
		}
	}
	return Verdict{Approved: true}
}

func reject(sig *signal.Signal, reason string) Verdict {
	return Verdict{
		Approved: false,
		Feedback: fmt.Sprintf("%s: %s", sig.Symbol, reason),
	}
}
