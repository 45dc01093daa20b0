package scanner

import (
	"fmt"

	"tradesim/internal/decision"
	"tradesim/internal/market"

	talib "github.com/markcheno/go-talib"
)

const (
	trendPeriod = 20
	volPeriod   = 10
	rsiPeriod   = 14
)

// FeatureBuilder computes per-symbol feature snapshots from closed bars.
type FeatureBuilder struct {
	state     *market.StateStore
	timeframe string
	minBars   int
	// highVolPct splits candidates into volatility regimes.
	highVolPct float64
}

func NewFeatureBuilder(state *market.StateStore, timeframe string, minBars int, highVolPct float64) *FeatureBuilder {
	if minBars < trendPeriod+1 {
		minBars = trendPeriod + 1
	}
	if highVolPct <= 0 {
		highVolPct = 0.5
	}
	return &FeatureBuilder{state: state, timeframe: timeframe, minBars: minBars, highVolPct: highVolPct}
}

// Snapshot returns the feature view for (market, symbol). A symbol with
// insufficient bar history is a transient gap, not an error.
func (b *FeatureBuilder) Snapshot(marketName, symbol string) (decision.FeatureSnapshot, error) {
	bars := b.state.HistoricalBars(marketName, symbol, b.timeframe)
	if len(bars) < b.minBars {
		return decision.FeatureSnapshot{}, fmt.Errorf("%s:%s insufficient history: have %d need %d", marketName, symbol, len(bars), b.minBars)
	}
	closes := make([]float64, len(bars))
	for i, c := range bars {
		closes[i] = c.Close
	}

	price := closes[len(closes)-1]
	if tick, ok := b.state.LatestTick(marketName, symbol); ok && tick.Price > 0 {
		price = tick.Price
	}

	slopes := talib.LinearRegSlope(closes, trendPeriod)
	slope := slopes[len(slopes)-1]
	trend := 0.0
	if price > 0 {
		trend = slope / price * 100.0
	}

	diffs := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		diffs = append(diffs, closes[i]-closes[i-1])
	}
	vol := 0.0
	if len(diffs) >= volPeriod {
		stddevs := talib.StdDev(diffs, volPeriod, 1.0)
		if price > 0 {
			vol = stddevs[len(stddevs)-1] / price * 100.0
		}
	}

	// RSI is auxiliary: fall back to the neutral midpoint on short history
	// instead of zero-filling.
	rsi := 50.0
	if len(closes) > rsiPeriod {
		series := talib.Rsi(closes, rsiPeriod)
		if v := series[len(series)-1]; v > 0 {
			rsi = v
		}
	}

	regime := decision.RegimeLowVol
	if vol >= b.highVolPct {
		regime = decision.RegimeHighVol
	}

	return decision.FeatureSnapshot{
		Market:     marketName,
		Symbol:     symbol,
		Price:      price,
		Trend:      trend,
		Volatility: vol,
		RSI:        rsi,
		Regime:     regime,
		BarsSeen:   len(bars),
	}, nil
}

// score ranks a candidate inside its regime subgroup: trend magnitude
// weighted by volatility, nudged by RSI distance from the midpoint.
func score(f decision.FeatureSnapshot) float64 {
	trendMag := f.Trend
	if trendMag < 0 {
		trendMag = -trendMag
	}
	rsiEdge := (f.RSI - 50.0) / 50.0
	if rsiEdge < 0 {
		rsiEdge = -rsiEdge
	}
	return trendMag * (1.0 + 0.2*f.Volatility) * (1.0 + 0.1*rsiEdge)
}
