package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const stooqBaseURL = "https://stooq.com/q/d/l/"

// StooqProvider fetches daily OHLCV history from the Stooq CSV endpoint
type StooqProvider struct {
	client  *http.Client
	baseURL string
}

// NewStooqProvider creates a new Stooq data provider
func NewStooqProvider() *StooqProvider {
	return &StooqProvider{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: stooqBaseURL,
	}
}

// Fetch implements Provider
func (p *StooqProvider) Fetch(ctx context.Context, symbol, period, interval string) (Series, error) {
	n := periodBars(period)
	to := time.Now()
	// Calendar days overshoot trading days; fetch a wide window and trim
	from := to.AddDate(0, 0, -(n*3)/2)

	url := fmt.Sprintf("%s?s=%s&d1=%s&d2=%s&i=%s",
		p.baseURL,
		strings.ToLower(symbol),
		from.Format("20060102"),
		to.Format("20060102"),
		stooqInterval(interval),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d: %w", symbol, resp.StatusCode, ErrDataUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	series, err := parseStooqCSV(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", symbol, err)
	}
	if len(series) > n {
		series = series[len(series)-n:]
	}
	return series, nil
}

// Close implements Provider
func (p *StooqProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func stooqInterval(interval string) string {
	switch interval {
	case "1wk":
		return "w"
	case "1mo":
		return "m"
	default:
		return "d"
	}
}

// parseStooqCSV parses the Stooq CSV payload.
// Format: Date,Open,High,Low,Close,Volume with one header line.
// Malformed lines are skipped; an empty result means no data exists.
func parseStooqCSV(data string) (Series, error) {
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) < 2 {
		return nil, ErrDataUnavailable
	}

	series := make(Series, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := strings.Split(strings.TrimSpace(line), ",")
		if len(fields) < 5 {
			continue
		}

		date, err := time.Parse("2006-01-02", fields[0])
		if err != nil {
			continue
		}

		parseFloat := func(s string) float64 {
			v, _ := strconv.ParseFloat(s, 64)
			return v
		}

		var volume int64
		if len(fields) >= 6 {
			volume, _ = strconv.ParseInt(fields[5], 10, 64)
		}

		series = append(series, Bar{
			Date:   date,
			Open:   parseFloat(fields[1]),
			High:   parseFloat(fields[2]),
			Low:    parseFloat(fields[3]),
			Close:  parseFloat(fields[4]),
			Volume: volume,
		})
	}

	if len(series) == 0 {
		return nil, ErrDataUnavailable
	}
	return series, nil
}
