package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpinequant/committee/pkg/committee"
	"github.com/alpinequant/committee/pkg/market"
	"github.com/alpinequant/committee/pkg/portfolio"
	"github.com/alpinequant/committee/pkg/signal"
)

func sampleRun() *committee.RunResult {
	return &committee.RunResult{
		RunID: "run-1",
		Results: map[string]*committee.InstrumentResult{
			"AAA": {
				Instrument: market.Instrument{Symbol: "AAA", Name: "Alpha"},
				State:      committee.StateAccepted,
				Signals:    []*signal.Signal{{Symbol: "AAA"}},
			},
			"BBB": {
				Instrument: market.Instrument{Symbol: "BBB", Name: "Beta"},
				State:      committee.StateFailed,
				Reason:     committee.ReasonDataUnavailable,
				Err:        errors.New("no history"),
			},
		},
		Recommendations: []committee.AggregatedRecommendation{
			{Symbol: "AAA", Recommendation: signal.Buy, Confidence: 0.8, Rationale: "BUY carried the vote"},
		},
		StartedAt:  time.Now().Add(-time.Second),
		FinishedAt: time.Now(),
	}
}

func TestBuildEnumeratesEveryInstrument(t *testing.T) {
	rep := Build(sampleRun(), portfolio.Allocation{"AAA": 1.0})

	require.Len(t, rep.Entries, 2)
	assert.Equal(t, "AAA", rep.Entries[0].Symbol)
	assert.Equal(t, "accepted", rep.Entries[0].Outcome)
	assert.Equal(t, "BUY", rep.Entries[0].Recommendation)
	assert.Equal(t, 1.0, rep.Entries[0].Weight)
	assert.Equal(t, 1, rep.Entries[0].Signals)

	assert.Equal(t, "BBB", rep.Entries[1].Symbol)
	assert.Equal(t, "failed", rep.Entries[1].Outcome)
	assert.Equal(t, "DATA_UNAVAILABLE", rep.Entries[1].Reason)
	assert.Equal(t, "no history", rep.Entries[1].Error)

	assert.InDelta(t, 1.0, rep.TotalWeight, 1e-9)
}

func TestWriteJSON(t *testing.T) {
	rep := Build(sampleRun(), portfolio.Allocation{"AAA": 1.0})
	path := filepath.Join(t.TempDir(), "allocation.json")

	require.NoError(t, rep.WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Len(t, decoded.Entries, 2)
}
