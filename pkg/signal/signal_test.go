package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommendationValid(t *testing.T) {
	for _, r := range All() {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Recommendation("STRONG_BUY").Valid())
	assert.False(t, Recommendation("buy").Valid())
	assert.False(t, Recommendation("").Valid())
}

func TestTieBreakOrder(t *testing.T) {
	assert.True(t, Buy.Beats(Sell))
	assert.True(t, Sell.Beats(Hold))
	assert.True(t, Hold.Beats(Neutral))
	assert.False(t, Neutral.Beats(Buy))
	assert.False(t, Buy.Beats(Buy))

	assert.Equal(t, []Recommendation{Buy, Sell, Hold, Neutral}, All())
}

func TestSignalString(t *testing.T) {
	s := &Signal{Symbol: "NESN.SW", AnalystKind: "momentum", Recommendation: Buy}
	assert.Equal(t, "NESN.SW BUY (momentum)", s.String())
}
