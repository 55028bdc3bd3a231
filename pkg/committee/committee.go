package committee

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alpinequant/committee/pkg/analyst"
	"github.com/alpinequant/committee/pkg/market"
	"github.com/alpinequant/committee/pkg/reviewer"
	"github.com/alpinequant/committee/pkg/signal"
)

// Committee coordinates the per-instrument evaluation pipelines and
// aggregates their accepted signals into committee recommendations.
type Committee struct {
	cfg      *Config
	provider market.Provider
	analysts []analyst.Analyst
	reviewer reviewer.Reviewer
	log      zerolog.Logger

	analystSem *Semaphore
	reviewSem  *Semaphore

	// Results tracking. Each instrument gets exactly one terminal
	// entry; a second write for the same symbol is a programming
	// error and is dropped with a log line.
	mu      sync.Mutex
	results map[string]*InstrumentResult

	onProgress func(ProgressEvent)
}

// New creates a committee. The configuration is validated here; any
// violation aborts before a single pipeline starts.
func New(cfg *Config, provider market.Provider, analysts []analyst.Analyst, rev reviewer.Reviewer, log zerolog.Logger) (*Committee, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid committee config: %w", err)
	}
	if len(analysts) == 0 {
		return nil, errors.New("invalid committee config: no analysts configured")
	}
	if provider == nil {
		return nil, errors.New("invalid committee config: no data provider")
	}

	return &Committee{
		cfg:        cfg,
		provider:   provider,
		analysts:   analysts,
		reviewer:   rev,
		log:        log,
		analystSem: NewSemaphore(cfg.MaxAnalysts),
		reviewSem:  NewSemaphore(cfg.MaxReviewers),
		results:    make(map[string]*InstrumentResult),
	}, nil
}

// OnProgress registers a callback for pipeline state transitions.
// Must be set before Run.
func (c *Committee) OnProgress(fn func(ProgressEvent)) {
	c.onProgress = fn
}

// Run evaluates every instrument in the universe and returns the
// aggregated recommendations. One pipeline failing never affects the
// others; aggregation starts only after every pipeline reached a
// terminal state.
func (c *Committee) Run(ctx context.Context, universe []market.Instrument) (*RunResult, error) {
	if len(universe) == 0 {
		return nil, errors.New("empty universe")
	}

	if c.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Deadline)
		defer cancel()
	}

	// Each run gets a fresh results map so the committee can be
	// reused across invocations
	c.mu.Lock()
	c.results = make(map[string]*InstrumentResult, len(universe))
	c.mu.Unlock()

	runID := uuid.New().String()
	started := time.Now()
	c.log.Info().
		Str("run_id", runID).
		Int("instruments", len(universe)).
		Int("analysts", len(c.analysts)).
		Msg("committee run started")

	var wg sync.WaitGroup
	for _, inst := range universe {
		wg.Add(1)
		go func(inst market.Instrument) {
			defer wg.Done()
			c.runPipeline(ctx, inst)
		}(inst)
	}
	wg.Wait()

	c.mu.Lock()
	results := c.results
	c.mu.Unlock()

	result := &RunResult{
		RunID:      runID,
		Results:    results,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}

	// Aggregate accepted instruments in symbol order for a
	// deterministic report.
	symbols := make([]string, 0, len(results))
	for sym := range results {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		res := results[sym]
		if res.State != StateAccepted {
			continue
		}
		rec := Aggregate(sym, res.Signals, c.cfg.Weight)
		result.Recommendations = append(result.Recommendations, rec)
		c.log.Info().
			Str("symbol", sym).
			Str("recommendation", string(rec.Recommendation)).
			Float64("confidence", rec.Confidence).
			Msg("aggregated")
	}

	c.log.Info().
		Str("run_id", runID).
		Int("accepted", len(result.Recommendations)).
		Int("total", len(universe)).
		Dur("elapsed", result.FinishedAt.Sub(started)).
		Msg("committee run finished")

	return result, nil
}

// runPipeline drives one instrument from pending to a terminal state
func (c *Committee) runPipeline(ctx context.Context, inst market.Instrument) {
	c.emit(inst.Symbol, StatePending, "", 0)

	series, err := c.provider.Fetch(ctx, inst.Symbol, c.cfg.Period, c.cfg.Interval)
	if err != nil {
		reason := ReasonDataUnavailable
		if ctx.Err() != nil {
			reason = ReasonCancelled
		}
		c.emit(inst.Symbol, StateFailed, "", 0)
		c.finish(inst, &InstrumentResult{
			Instrument: inst,
			State:      StateFailed,
			Reason:     reason,
			Err:        err,
		})
		return
	}

	// Each configured analyst runs its own bounded review loop; the
	// instrument is accepted if at least one signal survives review.
	var accepted []*signal.Signal
	var firstReason ReasonCode
	var firstErr error

	for _, a := range c.analysts {
		sig, reason, err := c.runAnalystLoop(ctx, inst, series, a)
		if sig != nil {
			accepted = append(accepted, sig)
			continue
		}
		if firstReason == "" {
			firstReason = reason
			firstErr = err
		}
		if reason == ReasonCancelled {
			break
		}
	}

	if len(accepted) > 0 {
		c.emit(inst.Symbol, StateAccepted, "", 0)
		c.finish(inst, &InstrumentResult{
			Instrument: inst,
			State:      StateAccepted,
			Signals:    accepted,
		})
		return
	}

	c.emit(inst.Symbol, StateFailed, "", 0)
	c.finish(inst, &InstrumentResult{
		Instrument: inst,
		State:      StateFailed,
		Reason:     firstReason,
		Err:        firstErr,
	})
}

// runAnalystLoop runs one analyst's evaluate/review/revise cycle for
// an instrument. Returns the accepted signal, or the failure reason.
func (c *Committee) runAnalystLoop(ctx context.Context, inst market.Instrument, series market.Series, a analyst.Analyst) (*signal.Signal, ReasonCode, error) {
	feedback := ""

	for rev := 0; ; rev++ {
		c.emit(inst.Symbol, StateAnalyzing, a.Kind(), rev)

		if err := c.analystSem.Acquire(ctx); err != nil {
			return nil, ReasonCancelled, err
		}
		sig, err := a.Evaluate(ctx, inst, series, feedback)
		c.analystSem.Release()

		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil, ReasonCancelled, err
			case errors.Is(err, analyst.ErrDataUnavailable):
				return nil, ReasonDataUnavailable, err
			default:
				return nil, ReasonAnalysisError, err
			}
		}
		sig.RevisionCount = rev

		c.emit(inst.Symbol, StateReviewing, a.Kind(), rev)

		if err := c.reviewSem.Acquire(ctx); err != nil {
			return nil, ReasonCancelled, err
		}
		verdict := c.reviewer.Review(sig)
		c.reviewSem.Release()

		if verdict.Approved {
			c.log.Debug().
				Str("symbol", inst.Symbol).
				Str("analyst", a.Kind()).
				Int("revisions", rev).
				Msg("signal accepted")
			return sig, "", nil
		}

		if rev == c.cfg.MaxRevisions {
			return nil, ReasonBudgetExhausted,
				fmt.Errorf("%s/%s: review budget exhausted after %d revisions: %s",
					inst.Symbol, a.Kind(), rev, verdict.Feedback)
		}

		feedback = verdict.Feedback
		c.emit(inst.Symbol, StateRevising, a.Kind(), rev)
		c.log.Debug().
			Str("symbol", inst.Symbol).
			Str("analyst", a.Kind()).
			Int("revision", rev).
			Str("feedback", feedback).
			Msg("signal rejected, revising")
	}
}

// finish records the terminal result for an instrument exactly once
func (c *Committee) finish(inst market.Instrument, res *InstrumentResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.results[inst.Symbol]; exists {
		c.log.Error().Str("symbol", inst.Symbol).Msg("duplicate terminal result dropped")
		return
	}
	c.results[inst.Symbol] = res

	ev := c.log.Info().Str("symbol", inst.Symbol).Str("state", string(res.State))
	if res.Reason != "" {
		ev = ev.Str("reason", string(res.Reason))
	}
	if res.Err != nil {
		ev = ev.Err(res.Err)
	}
	ev.Msg("pipeline finished")
}

func (c *Committee) emit(symbol string, state State, kind string, revision int) {
	if c.onProgress == nil {
		return
	}
	c.onProgress(ProgressEvent{
		Symbol:      symbol,
		State:       state,
		AnalystKind: kind,
		Revision:    revision,
		Timestamp:   time.Now(),
	})
}
