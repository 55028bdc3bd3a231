// Package analyst implements the evaluation agents that turn price
// history into recommendation signals.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alpinequant/committee/pkg/market"
	"github.com/alpinequant/committee/pkg/signal"
)

// ErrDataUnavailable indicates the series is missing or too short to
// evaluate. The instrument fails without consuming review budget.
var ErrDataUnavailable = errors.New("insufficient market data")

// ErrAnalysis indicates the analyst itself failed (computation fault,
// model error). The instrument fails; others are unaffected.
var ErrAnalysis = errors.New("analysis failed")

// Analyst evaluates one instrument and produces a candidate signal.
// Implementations are stateless per invocation and safe for concurrent
// use across instruments. feedback carries the reviewer's objections
// from the previous round; empty on the first evaluation.
type Analyst interface {
	Kind() string
	Evaluate(ctx context.Context, inst market.Instrument, series market.Series, feedback string) (*signal.Signal, error)
}

// Config carries the tunables shared by the analysts
type Config struct {
	// MaxVolatility is the annualized volatility ceiling used by the
	// risk analyst. Zero means the default of 0.30.
	MaxVolatility float64

	// Model backs the llm analyst. Required when that kind is
	// configured.
	Model ChatModel
}

// New creates an analyst of the given kind. Unknown kinds are a
// configuration error, as is the llm kind without a model.
func New(kind string, cfg Config) (Analyst, error) {
	switch kind {
	case "momentum":
		return NewMomentumAnalyst(), nil
	case "value":
		return NewValueAnalyst(), nil
	case "risk":
		return NewRiskAnalyst(cfg.MaxVolatility), nil
	case "llm":
		if cfg.Model == nil {
			return nil, fmt.Errorf("analyst kind %q requires a chat model", kind)
		}
		return NewLLMAnalyst(kind, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown analyst kind: %q", kind)
	}
}

// newSignal builds the common envelope around an analyst verdict
func newSignal(inst market.Instrument, kind string, rec signal.Recommendation, conf float64, drivers, risks []string) *signal.Signal {
	return &signal.Signal{
		ID:             uuid.New().String(),
		Symbol:         inst.Symbol,
		AnalystKind:    kind,
		Recommendation: rec,
		Confidence:     conf,
		Drivers:        drivers,
		Risks:          risks,
		CreatedAt:      time.Now(),
	}
}
