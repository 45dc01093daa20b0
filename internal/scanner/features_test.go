package scanner

import (
	"testing"

	"tradesim/internal/decision"
	"tradesim/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBars(s *market.StateStore, mkt, sym string, closes []float64) {
	for i, c := range closes {
		s.AppendBar(mkt, sym, "1m", market.Candle{
			StartTime: int64(1_700_000_100 + 60*i),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1,
		})
	}
}

func rising(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestSnapshotRequiresHistory(t *testing.T) {
	s := market.NewStateStore()
	fb := NewFeatureBuilder(s, "1m", 21, 0.5)

	seedBars(s, "spot", "BTCUSDT", rising(10, 100, 0.1))
	_, err := fb.Snapshot("spot", "BTCUSDT")
	assert.Error(t, err, "short history is a skip, reported as error to the caller")
}

func TestSnapshotTrendSign(t *testing.T) {
	s := market.NewStateStore()
	fb := NewFeatureBuilder(s, "1m", 21, 0.5)

	seedBars(s, "spot", "UPUSDT", rising(30, 100, 0.1))
	up, err := fb.Snapshot("spot", "UPUSDT")
	require.NoError(t, err)
	assert.Greater(t, up.Trend, 0.0)
	assert.Equal(t, decision.RegimeLowVol, up.Regime, "constant drift has zero diff stddev")
	assert.Equal(t, 30, up.BarsSeen)

	seedBars(s, "spot", "DOWNUSDT", rising(30, 110, -0.1))
	down, err := fb.Snapshot("spot", "DOWNUSDT")
	require.NoError(t, err)
	assert.Less(t, down.Trend, 0.0)
}

func TestSnapshotHighVolRegime(t *testing.T) {
	s := market.NewStateStore()
	fb := NewFeatureBuilder(s, "1m", 21, 0.5)

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 105
		}
	}
	seedBars(s, "spot", "CHOPUSDT", closes)

	snap, err := fb.Snapshot("spot", "CHOPUSDT")
	require.NoError(t, err)
	assert.Equal(t, decision.RegimeHighVol, snap.Regime)
	assert.GreaterOrEqual(t, snap.Volatility, 0.5)
}

func TestSnapshotPrefersLiveTickPrice(t *testing.T) {
	s := market.NewStateStore()
	fb := NewFeatureBuilder(s, "1m", 21, 0.5)
	seedBars(s, "spot", "BTCUSDT", rising(30, 100, 0.1))

	s.UpsertTick("spot", "BTCUSDT", 123.45, s.StartedAt())
	snap, err := fb.Snapshot("spot", "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 123.45, snap.Price)
}

func TestScoreOrdering(t *testing.T) {
	base := decision.FeatureSnapshot{Trend: 1, Volatility: 0, RSI: 50}

	stronger := base
	stronger.Trend = 2
	assert.Greater(t, score(stronger), score(base), "trend magnitude dominates")

	negative := base
	negative.Trend = -2
	assert.Equal(t, score(stronger), score(negative), "sign does not matter")

	choppier := base
	choppier.Volatility = 1
	assert.Greater(t, score(choppier), score(base), "volatility scales the score up")

	skewed := base
	skewed.RSI = 80
	assert.Greater(t, score(skewed), score(base))
}
