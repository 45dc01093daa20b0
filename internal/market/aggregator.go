package market

import (
	"sync"
	"time"
)

// Aggregator 将原始 tick 流聚合为固定周期的 OHLC K 线。
// It owns the single in-progress bar per (market, symbol, timeframe);
// only closed bars ever reach the StateStore history.
type Aggregator struct {
	store      *StateStore
	timeframes []string
	intervals  map[string]time.Duration

	mu      sync.Mutex
	current map[BarKey]*Candle
	applied map[TickKey]time.Time
}

func NewAggregator(store *StateStore, timeframes []string) *Aggregator {
	a := &Aggregator{
		store:     store,
		intervals: make(map[string]time.Duration),
		current:   make(map[BarKey]*Candle),
		applied:   make(map[TickKey]time.Time),
	}
	for _, tf := range timeframes {
		if dur, ok := ParseTimeframe(tf); ok {
			a.timeframes = append(a.timeframes, tf)
			a.intervals[tf] = dur
		}
	}
	return a
}

// Timeframes returns the configured timeframes in declaration order.
func (a *Aggregator) Timeframes() []string {
	return append([]string(nil), a.timeframes...)
}

// Apply folds one tick into the current bar of every timeframe. A tick in a
// later bucket closes the current bar into history and opens a fresh one;
// buckets with no ticks are skipped, never synthesized.
func (a *Aggregator) Apply(t Tick) {
	if t.Price <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, tf := range a.timeframes {
		a.applyLocked(t, tf, a.intervals[tf])
	}
}

func (a *Aggregator) applyLocked(t Tick, tf string, interval time.Duration) {
	key := NewBarKey(t.Market, t.Symbol, tf)
	bucket := bucketStart(t.Timestamp, interval)
	cur, ok := a.current[key]
	if !ok {
		a.current[key] = &Candle{
			StartTime: bucket,
			Open:      t.Price,
			High:      t.Price,
			Low:       t.Price,
			Close:     t.Price,
			Volume:    1,
		}
		return
	}
	if bucket > cur.StartTime {
		a.store.AppendBar(t.Market, t.Symbol, tf, *cur)
		a.current[key] = &Candle{
			StartTime: bucket,
			Open:      t.Price,
			High:      t.Price,
			Low:       t.Price,
			Close:     t.Price,
			Volume:    1,
		}
		return
	}
	if t.Price > cur.High {
		cur.High = t.Price
	}
	if t.Price < cur.Low {
		cur.Low = t.Price
	}
	cur.Close = t.Price
	cur.Volume++
}

// Sweep applies every pending latest tick from the store. Ticks already seen
// (same timestamp) are skipped so repeated sweeps stay idempotent. Called by
// the scan scheduler at the top of each cycle.
func (a *Aggregator) Sweep() {
	for key, tick := range a.store.Ticks() {
		a.mu.Lock()
		seen, ok := a.applied[key]
		if ok && !tick.Timestamp.After(seen) {
			a.mu.Unlock()
			continue
		}
		a.applied[key] = tick.Timestamp
		a.mu.Unlock()
		a.Apply(tick)
	}
}

// CurrentBar exposes a copy of the in-progress bar, if any.
func (a *Aggregator) CurrentBar(market, symbol, timeframe string) (Candle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur, ok := a.current[NewBarKey(market, symbol, timeframe)]
	if !ok {
		return Candle{}, false
	}
	return *cur, true
}

func bucketStart(ts time.Time, interval time.Duration) int64 {
	sec := int64(interval / time.Second)
	if sec <= 0 {
		sec = 60
	}
	return (ts.Unix() / sec) * sec
}
