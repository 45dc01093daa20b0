package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1_700_000_100 is exactly on a minute boundary.
var barBase = time.Unix(1_700_000_100, 0)

func tickAt(offset time.Duration, price float64) Tick {
	return Tick{Market: "spot", Symbol: "BTCUSDT", Price: price, Timestamp: barBase.Add(offset)}
}

func TestApplyBuildsCurrentBar(t *testing.T) {
	s := NewStateStore()
	agg := NewAggregator(s, []string{"1m"})

	agg.Apply(tickAt(0, 100))
	agg.Apply(tickAt(10*time.Second, 105))
	agg.Apply(tickAt(20*time.Second, 98))

	assert.Empty(t, s.HistoricalBars("spot", "BTCUSDT", "1m"), "in-progress bar must not reach history")

	cur, ok := agg.CurrentBar("spot", "BTCUSDT", "1m")
	require.True(t, ok)
	assert.Equal(t, barBase.Unix(), cur.StartTime)
	assert.Equal(t, 100.0, cur.Open)
	assert.Equal(t, 105.0, cur.High)
	assert.Equal(t, 98.0, cur.Low)
	assert.Equal(t, 98.0, cur.Close)
	assert.Equal(t, 3.0, cur.Volume)
}

func TestApplyClosesBarOnNewBucket(t *testing.T) {
	s := NewStateStore()
	agg := NewAggregator(s, []string{"1m"})

	agg.Apply(tickAt(0, 100))
	agg.Apply(tickAt(30*time.Second, 101))
	agg.Apply(tickAt(61*time.Second, 102))

	bars := s.HistoricalBars("spot", "BTCUSDT", "1m")
	require.Len(t, bars, 1)
	assert.Equal(t, barBase.Unix(), bars[0].StartTime)
	assert.Equal(t, 101.0, bars[0].Close)
	assert.Equal(t, 2.0, bars[0].Volume)

	cur, ok := agg.CurrentBar("spot", "BTCUSDT", "1m")
	require.True(t, ok)
	assert.Equal(t, barBase.Add(time.Minute).Unix(), cur.StartTime)
	assert.Equal(t, 102.0, cur.Open)
}

func TestApplySkipsGapBuckets(t *testing.T) {
	s := NewStateStore()
	agg := NewAggregator(s, []string{"1m"})

	agg.Apply(tickAt(0, 100))
	// three silent minutes, no bars synthesized for them
	agg.Apply(tickAt(3*time.Minute, 110))

	bars := s.HistoricalBars("spot", "BTCUSDT", "1m")
	require.Len(t, bars, 1)
	assert.Equal(t, barBase.Unix(), bars[0].StartTime)

	cur, ok := agg.CurrentBar("spot", "BTCUSDT", "1m")
	require.True(t, ok)
	assert.Equal(t, barBase.Add(3*time.Minute).Unix(), cur.StartTime)
}

func TestApplyIgnoresNonPositivePrice(t *testing.T) {
	s := NewStateStore()
	agg := NewAggregator(s, []string{"1m"})

	agg.Apply(tickAt(0, 0))
	agg.Apply(tickAt(0, -3))

	_, ok := agg.CurrentBar("spot", "BTCUSDT", "1m")
	assert.False(t, ok)
}

func TestSweepIsIdempotent(t *testing.T) {
	now := barBase.Add(5 * time.Second)
	s := NewStateStore(WithNowFunc(func() time.Time { return now }))
	agg := NewAggregator(s, []string{"1m"})

	s.UpsertTick("spot", "BTCUSDT", 100, barBase)
	agg.Sweep()
	agg.Sweep()
	agg.Sweep()

	cur, ok := agg.CurrentBar("spot", "BTCUSDT", "1m")
	require.True(t, ok)
	assert.Equal(t, 1.0, cur.Volume, "unchanged tick must be folded exactly once")

	// a fresher tick is picked up on the next sweep
	s.UpsertTick("spot", "BTCUSDT", 104, barBase.Add(2*time.Second))
	agg.Sweep()
	cur, _ = agg.CurrentBar("spot", "BTCUSDT", "1m")
	assert.Equal(t, 2.0, cur.Volume)
	assert.Equal(t, 104.0, cur.High)
}

func TestAggregatorMultipleTimeframes(t *testing.T) {
	s := NewStateStore()
	agg := NewAggregator(s, []string{"1m", "bogus", "1h"})
	assert.Equal(t, []string{"1m", "1h"}, agg.Timeframes())

	agg.Apply(tickAt(0, 100))
	agg.Apply(tickAt(90*time.Second, 101))

	assert.Len(t, s.HistoricalBars("spot", "BTCUSDT", "1m"), 1)
	assert.Empty(t, s.HistoricalBars("spot", "BTCUSDT", "1h"), "hour bucket unchanged, nothing closed")
}
