package market

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"
)

// MockProvider generates a deterministic random-walk series per symbol.
// Intended for dry runs and tests; the walk is seeded from the symbol so
// repeated fetches return identical data.
type MockProvider struct{}

// NewMockProvider creates a new mock data provider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Fetch implements Provider
func (m *MockProvider) Fetch(ctx context.Context, symbol, period, interval string) (Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol: %w", ErrDataUnavailable)
	}

	n := periodBars(period)
	rng := rand.New(rand.NewSource(int64(symbolSeed(symbol))))

	// Base price between 50 and 500, mild upward drift
	price := 50.0 + rng.Float64()*450.0
	drift := (rng.Float64() - 0.45) * 0.002

	series := make(Series, 0, n)
	day := time.Now().AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		change := (rng.Float64()-0.5)*0.02 + drift
		open := price
		price = price * (1 + change)
		high := maxf(open, price) * (1 + rng.Float64()*0.005)
		low := minf(open, price) * (1 - rng.Float64()*0.005)

		series = append(series, Bar{
			Date:   day,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: int64(rng.Intn(900_000) + 100_000),
		})
		day = day.AddDate(0, 0, 1)
	}

	return series, nil
}

// Close implements Provider
func (m *MockProvider) Close() error {
	return nil
}

func symbolSeed(symbol string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return h.Sum32()
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
