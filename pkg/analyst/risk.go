package analyst

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/alpinequant/committee/pkg/market"
	"github.com/alpinequant/committee/pkg/signal"
)

const (
	defaultMaxVolatility = 0.30
	tradingDaysPerYear   = 252
	riskMinBars          = 30
)

// RiskAnalyst vetoes instruments whose realized risk exceeds the
// configured ceiling and leans toward calm, positively drifting ones.
type RiskAnalyst struct {
	maxVolatility float64
}

// NewRiskAnalyst creates a risk analyst. maxVolatility is the
// annualized ceiling; zero selects the default.
func NewRiskAnalyst(maxVolatility float64) *RiskAnalyst {
	if maxVolatility <= 0 {
		maxVolatility = defaultMaxVolatility
	}
	return &RiskAnalyst{maxVolatility: maxVolatility}
}

// Kind returns the analyst kind identifier
func (a *RiskAnalyst) Kind() string {
	return "risk"
}

// Evaluate implements Analyst
func (a *RiskAnalyst) Evaluate(ctx context.Context, inst market.Instrument, series market.Series, feedback string) (*signal.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rets := series.Returns()
	if len(rets) < riskMinBars {
		return nil, fmt.Errorf("%s: need %d returns, have %d: %w",
			inst.Symbol, riskMinBars, len(rets), ErrDataUnavailable)
	}

	mean, std := stat.MeanStdDev(rets, nil)
	vol := std * math.Sqrt(tradingDaysPerYear)
	dd := maxDrawdown(series.Closes())

	sharpe := 0.0
	if std > 0 {
		sharpe = mean / std * math.Sqrt(tradingDaysPerYear)
	}

	drivers := []string{
		fmt.Sprintf("annualized volatility %.1f%% (ceiling %.1f%%)", vol*100, a.maxVolatility*100),
		fmt.Sprintf("max drawdown %.1f%%", dd*100),
		fmt.Sprintf("Sharpe %.2f", sharpe),
	}
	var risks []string

	rec := signal.Hold
	conf := 0.5

	switch {
	case vol > a.maxVolatility*1.5:
		rec = signal.Sell
		conf = 0.85
		drivers = append(drivers, "volatility far above ceiling")
		risks = append(risks, "realized risk incompatible with the mandate")
	case vol > a.maxVolatility:
		rec = signal.Neutral
		conf = 0.7
		risks = append(risks, "volatility above ceiling")
	case sharpe > 1.0 && dd < 0.15:
		rec = signal.Buy
		conf = 0.75
		drivers = append(drivers, "strong risk-adjusted return with shallow drawdowns")
		risks = append(risks, "low realized risk is not a guarantee going forward")
	default:
		drivers = append(drivers, "risk profile within bounds")
	}

	return newSignal(inst, a.Kind(), rec, conf, drivers, risks), nil
}

// maxDrawdown returns the largest peak-to-trough decline as a fraction
func maxDrawdown(closes []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			if dd := (peak - c) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
