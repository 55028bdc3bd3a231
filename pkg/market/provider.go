package market

import (
	"context"
	"errors"
)

// ErrDataUnavailable indicates that no usable price history exists for
// an instrument. The run continues; the instrument is excluded.
var ErrDataUnavailable = errors.New("market data unavailable")

// Provider fetches historical price data for one instrument.
// Implementations own their caching and retry policy.
type Provider interface {
	// Fetch returns the historical series for symbol over the given
	// period ("1y", "6mo", "3mo") and interval ("1d", "1wk").
	// Returns an error wrapping ErrDataUnavailable when the symbol has
	// no usable history.
	Fetch(ctx context.Context, symbol, period, interval string) (Series, error)

	// Close releases any resources held by the provider
	Close() error
}

// periodBars maps a period string to the number of daily bars it spans
func periodBars(period string) int {
	switch period {
	case "3mo":
		return 63
	case "6mo":
		return 126
	case "2y":
		return 504
	default: // "1y"
		return 252
	}
}
