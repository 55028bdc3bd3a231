package committee

import (
	"fmt"
	"math"
	"time"

	"github.com/alpinequant/committee/pkg/signal"
)

// Config holds the committee run parameters
type Config struct {
	// MaxRevisions is how many times a rejected signal may be revised
	// before the pipeline fails with REVIEW_BUDGET_EXHAUSTED
	MaxRevisions int

	// MaxAnalysts caps concurrent analyst invocations across pipelines
	MaxAnalysts int

	// MaxReviewers caps concurrent review invocations
	MaxReviewers int

	// Weights maps analyst kind to its vote weight
	Weights map[string]float64

	// Period and Interval select the history window fetched per
	// instrument ("1y"/"1d" by default)
	Period   string
	Interval string

	// Deadline bounds the whole run; zero means no deadline
	Deadline time.Duration
}

// DefaultConfig returns the default committee configuration
func DefaultConfig() *Config {
	return &Config{
		MaxRevisions: 2,
		MaxAnalysts:  4,
		MaxReviewers: 2,
		Weights:      map[string]float64{},
		Period:       "1y",
		Interval:     "1d",
	}
}

// Validate checks the configuration before any pipeline starts.
// Any violation is fatal for the run.
func (c *Config) Validate() error {
	if c.MaxRevisions < 0 {
		return fmt.Errorf("max_revisions must be >= 0, got %d", c.MaxRevisions)
	}
	if c.MaxAnalysts < 1 {
		return fmt.Errorf("max_analysts must be >= 1, got %d", c.MaxAnalysts)
	}
	if c.MaxReviewers < 1 {
		return fmt.Errorf("max_reviewers must be >= 1, got %d", c.MaxReviewers)
	}
	for kind, w := range c.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("weight for analyst %q must be finite and >= 0, got %v", kind, w)
		}
	}
	return nil
}

// Weight returns the vote weight for an analyst kind, defaulting to 1
func (c *Config) Weight(kind string) float64 {
	if w, ok := c.Weights[kind]; ok {
		return w
	}
	return 1.0
}

// EligibilityPolicy selects which aggregated recommendations receive
// portfolio weight
type EligibilityPolicy map[signal.Recommendation]bool

// DefaultEligibility admits only BUY recommendations
func DefaultEligibility() EligibilityPolicy {
	return EligibilityPolicy{signal.Buy: true}
}

// Eligible reports whether rec qualifies for allocation
func (p EligibilityPolicy) Eligible(rec signal.Recommendation) bool {
	return p[rec]
}
