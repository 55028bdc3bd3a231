package analyst

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/alpinequant/committee/pkg/market"
	"github.com/alpinequant/committee/pkg/signal"
)

const (
	valueLookback   = 100
	valueStrongBand = 1.5
	valueWeakBand   = 0.5
)

// ValueAnalyst recommends based on how far the last close sits from
// its lookback mean, measured in standard deviations. A deep discount
// is a buy, a stretched premium a sell.
type ValueAnalyst struct{}

// NewValueAnalyst creates a value analyst
func NewValueAnalyst() *ValueAnalyst {
	return &ValueAnalyst{}
}

// Kind returns the analyst kind identifier
func (a *ValueAnalyst) Kind() string {
	return "value"
}

// Evaluate implements Analyst
func (a *ValueAnalyst) Evaluate(ctx context.Context, inst market.Instrument, series market.Series, feedback string) (*signal.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	closes := series.Closes()
	if len(closes) < valueLookback {
		return nil, fmt.Errorf("%s: need %d bars, have %d: %w",
			inst.Symbol, valueLookback, len(closes), ErrDataUnavailable)
	}

	window := closes[len(closes)-valueLookback:]
	mean, std := stat.MeanStdDev(window, nil)
	if std == 0 {
		return nil, fmt.Errorf("%s: flat price series: %w", inst.Symbol, ErrAnalysis)
	}

	last := closes[len(closes)-1]
	z := (last - mean) / std

	rec := signal.Hold
	conf := 0.5
	drivers := []string{
		fmt.Sprintf("last close %.2f vs %d-bar mean %.2f", last, valueLookback, mean),
		fmt.Sprintf("z-score %.2f", z),
	}
	var risks []string

	switch {
	case z <= -valueStrongBand:
		rec = signal.Buy
		conf = 0.8
		drivers = append(drivers, "deep discount to historical mean")
		risks = append(risks, "discount may reflect deteriorating fundamentals")
	case z <= -valueWeakBand:
		rec = signal.Buy
		conf = 0.6
		drivers = append(drivers, "moderate discount to historical mean")
		risks = append(risks, "mean reversion may be slow")
	case z >= valueStrongBand:
		rec = signal.Sell
		conf = 0.8
		drivers = append(drivers, "stretched premium to historical mean")
		risks = append(risks, "strong trends can stay extended")
	case z >= valueWeakBand:
		rec = signal.Sell
		conf = 0.6
		drivers = append(drivers, "moderate premium to historical mean")
		risks = append(risks, "premature exit in a trending market")
	default:
		drivers = append(drivers, "price near fair value")
	}

	return newSignal(inst, a.Kind(), rec, conf, drivers, risks), nil
}
