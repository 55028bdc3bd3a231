// Package market provides the market-data collaborator boundary:
// instrument metadata, historical price series, and data providers.
package market

import (
	"time"
)

// Instrument identifies one equity in the configured universe.
// Created at configuration load, read-only afterwards.
type Instrument struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Name   string `json:"name" yaml:"name"`
	Sector string `json:"sector,omitempty" yaml:"sector,omitempty"`
}

// Bar is a single OHLCV entry in a historical series
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Series is a historical price series ordered oldest to newest
type Series []Bar

// Closes returns the closing prices in series order
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, b := range s {
		closes[i] = b.Close
	}
	return closes
}

// Returns converts the series to daily percentage returns.
// Returns[i] = (Close[i+1] - Close[i]) / Close[i].
func (s Series) Returns() []float64 {
	if len(s) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		prev := s[i-1].Close
		if prev == 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, (s[i].Close-prev)/prev)
	}
	return rets
}

// Last returns the most recent bar, or a zero Bar for an empty series
func (s Series) Last() Bar {
	if len(s) == 0 {
		return Bar{}
	}
	return s[len(s)-1]
}
