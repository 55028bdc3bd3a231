package committee

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpinequant/committee/pkg/analyst"
	"github.com/alpinequant/committee/pkg/market"
	"github.com/alpinequant/committee/pkg/reviewer"
	"github.com/alpinequant/committee/pkg/signal"
)

type fakeProvider struct {
	fetch func(ctx context.Context, symbol string) (market.Series, error)
}

func (p *fakeProvider) Fetch(ctx context.Context, symbol, period, interval string) (market.Series, error) {
	return p.fetch(ctx, symbol)
}

func (p *fakeProvider) Close() error { return nil }

type fakeAnalyst struct {
	kind     string
	evaluate func(ctx context.Context, inst market.Instrument, feedback string) (*signal.Signal, error)
}

func (a *fakeAnalyst) Kind() string { return a.kind }

func (a *fakeAnalyst) Evaluate(ctx context.Context, inst market.Instrument, series market.Series, feedback string) (*signal.Signal, error) {
	return a.evaluate(ctx, inst, feedback)
}

type fakeReviewer struct {
	review func(sig *signal.Signal) reviewer.Verdict
}

func (r *fakeReviewer) Review(sig *signal.Signal) reviewer.Verdict {
	return r.review(sig)
}

func okSeries() market.Series {
	series := make(market.Series, 60)
	for i := range series {
		series[i] = market.Bar{Close: 100 + float64(i)}
	}
	return series
}

func okProvider() *fakeProvider {
	return &fakeProvider{fetch: func(ctx context.Context, symbol string) (market.Series, error) {
		return okSeries(), nil
	}}
}

func buyAnalyst(kind string) *fakeAnalyst {
	return &fakeAnalyst{
		kind: kind,
		evaluate: func(ctx context.Context, inst market.Instrument, feedback string) (*signal.Signal, error) {
			return &signal.Signal{
				Symbol:         inst.Symbol,
				AnalystKind:    kind,
				Recommendation: signal.Buy,
				Confidence:     0.8,
				Drivers:        []string{"uptrend"},
				Risks:          []string{"reversal"},
			}, nil
		},
	}
}

func approveAll() *fakeReviewer {
	return &fakeReviewer{review: func(sig *signal.Signal) reviewer.Verdict {
		return reviewer.Verdict{Approved: true}
	}}
}

func universe(symbols ...string) []market.Instrument {
	out := make([]market.Instrument, len(symbols))
	for i, s := range symbols {
		out[i] = market.Instrument{Symbol: s}
	}
	return out
}

func newTestCommittee(t *testing.T, cfg *Config, p market.Provider, analysts []analyst.Analyst, rev reviewer.Reviewer) *Committee {
	t.Helper()
	c, err := New(cfg, p, analysts, rev, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestRunAllAccepted(t *testing.T) {
	cfg := DefaultConfig()
	c := newTestCommittee(t, cfg, okProvider(),
		[]analyst.Analyst{buyAnalyst("momentum")}, approveAll())

	result, err := c.Run(context.Background(), universe("AAA", "BBB", "CCC"))
	require.NoError(t, err)

	assert.Len(t, result.Results, 3)
	require.Len(t, result.Recommendations, 3)
	// Recommendations come out in symbol order
	assert.Equal(t, "AAA", result.Recommendations[0].Symbol)
	assert.Equal(t, "BBB", result.Recommendations[1].Symbol)
	assert.Equal(t, "CCC", result.Recommendations[2].Symbol)
	for _, res := range result.Results {
		assert.Equal(t, StateAccepted, res.State)
	}
}

func TestRunReusable(t *testing.T) {
	c := newTestCommittee(t, DefaultConfig(), okProvider(),
		[]analyst.Analyst{buyAnalyst("momentum")}, approveAll())

	first, err := c.Run(context.Background(), universe("AAA"))
	require.NoError(t, err)
	require.Len(t, first.Results, 1)

	// A second run on the same committee must record fresh terminal
	// results, not collide with the first run's
	second, err := c.Run(context.Background(), universe("AAA", "BBB"))
	require.NoError(t, err)
	require.Len(t, second.Results, 2)
	assert.Equal(t, StateAccepted, second.Results["AAA"].State)
	assert.Equal(t, StateAccepted, second.Results["BBB"].State)
	assert.Len(t, first.Results, 1)
}

func TestReviewBudgetExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRevisions = 2

	var evaluations int32
	a := &fakeAnalyst{
		kind: "momentum",
		evaluate: func(ctx context.Context, inst market.Instrument, feedback string) (*signal.Signal, error) {
			atomic.AddInt32(&evaluations, 1)
			return &signal.Signal{
				Symbol:         inst.Symbol,
				AnalystKind:    "momentum",
				Recommendation: signal.Buy,
				Confidence:     0.8,
			}, nil
		},
	}
	rejectAll := &fakeReviewer{review: func(sig *signal.Signal) reviewer.Verdict {
		return reviewer.Verdict{Approved: false, Feedback: "missing drivers"}
	}}

	c := newTestCommittee(t, cfg, okProvider(), []analyst.Analyst{a}, rejectAll)

	result, err := c.Run(context.Background(), universe("AAA"))
	require.NoError(t, err)

	res := result.Results["AAA"]
	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonBudgetExhausted, res.Reason)
	assert.Empty(t, result.Recommendations)
	// Initial evaluation plus one per revision, never more
	assert.Equal(t, int32(cfg.MaxRevisions+1), atomic.LoadInt32(&evaluations))
}

func TestRevisionFeedbackReachesAnalyst(t *testing.T) {
	cfg := DefaultConfig()

	var feedbacks []string
	var mu sync.Mutex
	a := &fakeAnalyst{
		kind: "momentum",
		evaluate: func(ctx context.Context, inst market.Instrument, feedback string) (*signal.Signal, error) {
			mu.Lock()
			feedbacks = append(feedbacks, feedback)
			mu.Unlock()
			s := &signal.Signal{
				Symbol:         inst.Symbol,
				AnalystKind:    "momentum",
				Recommendation: signal.Buy,
				Confidence:     0.7,
			}
			if feedback != "" {
				s.Drivers = []string{"uptrend"}
				s.Risks = []string{"reversal"}
			}
			return s, nil
		},
	}

	c := newTestCommittee(t, cfg, okProvider(), []analyst.Analyst{a}, reviewer.NewRuleReviewer())

	result, err := c.Run(context.Background(), universe("AAA"))
	require.NoError(t, err)

	res := result.Results["AAA"]
	require.Equal(t, StateAccepted, res.State)
	require.Len(t, res.Signals, 1)
	assert.Equal(t, 1, res.Signals[0].RevisionCount)

	require.Len(t, feedbacks, 2)
	assert.Empty(t, feedbacks[0])
	assert.Contains(t, feedbacks[1], "driver")
}

func TestFailureIsolation(t *testing.T) {
	cfg := DefaultConfig()
	p := &fakeProvider{fetch: func(ctx context.Context, symbol string) (market.Series, error) {
		if symbol == "BAD" {
			return nil, fmt.Errorf("no history: %w", market.ErrDataUnavailable)
		}
		return okSeries(), nil
	}}

	c := newTestCommittee(t, cfg, p, []analyst.Analyst{buyAnalyst("momentum")}, approveAll())

	result, err := c.Run(context.Background(), universe("GOOD", "BAD"))
	require.NoError(t, err)

	assert.Equal(t, StateAccepted, result.Results["GOOD"].State)
	assert.Equal(t, StateFailed, result.Results["BAD"].State)
	assert.Equal(t, ReasonDataUnavailable, result.Results["BAD"].Reason)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "GOOD", result.Recommendations[0].Symbol)
}

func TestAnalysisErrorReason(t *testing.T) {
	cfg := DefaultConfig()
	a := &fakeAnalyst{
		kind: "momentum",
		evaluate: func(ctx context.Context, inst market.Instrument, feedback string) (*signal.Signal, error) {
			return nil, fmt.Errorf("bad math: %w", analyst.ErrAnalysis)
		},
	}

	c := newTestCommittee(t, cfg, okProvider(), []analyst.Analyst{a}, approveAll())

	result, err := c.Run(context.Background(), universe("AAA"))
	require.NoError(t, err)

	res := result.Results["AAA"]
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonAnalysisError, res.Reason)
	assert.ErrorIs(t, res.Err, analyst.ErrAnalysis)
}

func TestDeadlineCancelsPipelines(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Deadline = 50 * time.Millisecond

	blocking := &fakeProvider{fetch: func(ctx context.Context, symbol string) (market.Series, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	c := newTestCommittee(t, cfg, blocking, []analyst.Analyst{buyAnalyst("momentum")}, approveAll())

	result, err := c.Run(context.Background(), universe("AAA", "BBB"))
	require.NoError(t, err)

	for _, res := range result.Results {
		assert.Equal(t, StateFailed, res.State)
		assert.Equal(t, ReasonCancelled, res.Reason)
	}
	assert.Empty(t, result.Recommendations)
}

func TestAnalystConcurrencyBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAnalysts = 2

	var current, peak int32
	a := &fakeAnalyst{
		kind: "momentum",
		evaluate: func(ctx context.Context, inst market.Instrument, feedback string) (*signal.Signal, error) {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return &signal.Signal{
				Symbol:         inst.Symbol,
				AnalystKind:    "momentum",
				Recommendation: signal.Hold,
				Confidence:     0.5,
			}, nil
		},
	}

	c := newTestCommittee(t, cfg, okProvider(), []analyst.Analyst{a}, approveAll())

	_, err := c.Run(context.Background(), universe("A", "B", "C", "D", "E", "F"))
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestMultipleAnalystsPartialAcceptance(t *testing.T) {
	cfg := DefaultConfig()
	failing := &fakeAnalyst{
		kind: "value",
		evaluate: func(ctx context.Context, inst market.Instrument, feedback string) (*signal.Signal, error) {
			return nil, fmt.Errorf("flat series: %w", analyst.ErrAnalysis)
		},
	}

	c := newTestCommittee(t, cfg, okProvider(),
		[]analyst.Analyst{buyAnalyst("momentum"), failing}, approveAll())

	result, err := c.Run(context.Background(), universe("AAA"))
	require.NoError(t, err)

	res := result.Results["AAA"]
	assert.Equal(t, StateAccepted, res.State)
	require.Len(t, res.Signals, 1)
	assert.Equal(t, "momentum", res.Signals[0].AnalystKind)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRevisions = -1
	_, err := New(cfg, okProvider(), []analyst.Analyst{buyAnalyst("momentum")}, approveAll(), zerolog.Nop())
	assert.Error(t, err)

	_, err = New(DefaultConfig(), okProvider(), nil, approveAll(), zerolog.Nop())
	assert.Error(t, err)
}

func TestEmptyUniverse(t *testing.T) {
	c := newTestCommittee(t, DefaultConfig(), okProvider(),
		[]analyst.Analyst{buyAnalyst("momentum")}, approveAll())
	_, err := c.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestProgressEventsEmitted(t *testing.T) {
	c := newTestCommittee(t, DefaultConfig(), okProvider(),
		[]analyst.Analyst{buyAnalyst("momentum")}, approveAll())

	var mu sync.Mutex
	var states []State
	c.OnProgress(func(ev ProgressEvent) {
		mu.Lock()
		states = append(states, ev.State)
		mu.Unlock()
	})

	_, err := c.Run(context.Background(), universe("AAA"))
	require.NoError(t, err)

	assert.Contains(t, states, StatePending)
	assert.Contains(t, states, StateAnalyzing)
	assert.Contains(t, states, StateReviewing)
	assert.Contains(t, states, StateAccepted)
}
