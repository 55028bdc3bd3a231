package analyst

import (
	"context"
	"fmt"

	"github.com/markcheno/go-talib"

	"github.com/alpinequant/committee/pkg/market"
	"github.com/alpinequant/committee/pkg/signal"
)

const (
	momentumShortPeriod = 20
	momentumLongPeriod  = 50
	momentumROCPeriod   = 10
)

// MomentumAnalyst recommends based on trend: a short/long moving
// average cross confirmed by the rate of change.
type MomentumAnalyst struct{}

// NewMomentumAnalyst creates a momentum analyst
func NewMomentumAnalyst() *MomentumAnalyst {
	return &MomentumAnalyst{}
}

// Kind returns the analyst kind identifier
func (a *MomentumAnalyst) Kind() string {
	return "momentum"
}

// Evaluate implements Analyst
func (a *MomentumAnalyst) Evaluate(ctx context.Context, inst market.Instrument, series market.Series, feedback string) (*signal.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	closes := series.Closes()
	if len(closes) < momentumLongPeriod+1 {
		return nil, fmt.Errorf("%s: need %d bars, have %d: %w",
			inst.Symbol, momentumLongPeriod+1, len(closes), ErrDataUnavailable)
	}

	smaShort := talib.Sma(closes, momentumShortPeriod)
	smaLong := talib.Sma(closes, momentumLongPeriod)
	roc := talib.Roc(closes, momentumROCPeriod)

	last := len(closes) - 1
	short, long, rate := smaShort[last], smaLong[last], roc[last]

	rec := signal.Hold
	drivers := []string{
		fmt.Sprintf("SMA%d %.2f vs SMA%d %.2f", momentumShortPeriod, short, momentumLongPeriod, long),
		fmt.Sprintf("%d-day ROC %.2f%%", momentumROCPeriod, rate),
	}
	var risks []string

	switch {
	case short > long && rate > 0:
		rec = signal.Buy
		drivers = append(drivers, "short average above long with positive momentum")
		risks = append(risks, "trend reversal would invalidate the entry")
	case short < long && rate < 0:
		rec = signal.Sell
		drivers = append(drivers, "short average below long with negative momentum")
		risks = append(risks, "oversold bounce against the downtrend")
	default:
		drivers = append(drivers, "averages and momentum disagree")
	}

	// Stronger momentum earns higher confidence, capped well below
	// certainty. Neutral setups sit at the floor.
	conf := 0.5 + absf(rate)/20.0
	if conf > 0.9 {
		conf = 0.9
	}
	if rec == signal.Hold {
		conf = 0.5
	}

	return newSignal(inst, a.Kind(), rec, conf, drivers, risks), nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
