package market

import (
	"sync"
	"time"
)

const DefaultHistoryCap = 500

// StateStore 持有进程内共享的行情状态：最新 tick、K 线历史、延迟与 feed 状态。
// All access goes through one mutex; readers get copies, never live views.
type StateStore struct {
	mu sync.RWMutex

	historyCap int
	nowFn      func() time.Time

	ticks      map[TickKey]Tick
	bars       map[BarKey]*candleRing
	latencyMs  int64
	feedStatus map[string]string

	hotCoins   []string
	nextScanAt time.Time
	startedAt  time.Time
}

type StateStoreOption func(*StateStore)

// WithHistoryCap overrides the per-key bar history capacity.
func WithHistoryCap(n int) StateStoreOption {
	return func(s *StateStore) {
		if n > 0 {
			s.historyCap = n
		}
	}
}

// WithNowFunc replaces the clock, for tests.
func WithNowFunc(fn func() time.Time) StateStoreOption {
	return func(s *StateStore) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

func NewStateStore(opts ...StateStoreOption) *StateStore {
	s := &StateStore{
		historyCap: DefaultHistoryCap,
		nowFn:      time.Now,
		ticks:      make(map[TickKey]Tick),
		bars:       make(map[BarKey]*candleRing),
		feedStatus: make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.startedAt = s.nowFn()
	return s
}

// UpsertTick replaces the latest tick for (market, symbol) and refreshes the
// observed feed latency. O(1), single critical section.
func (s *StateStore) UpsertTick(market, symbol string, price float64, ts time.Time) {
	key := NewTickKey(market, symbol)
	now := s.nowFn()
	lat := now.Sub(ts).Milliseconds()
	if lat < 0 {
		lat = 0
	}
	s.mu.Lock()
	s.ticks[key] = Tick{Market: key.Market, Symbol: key.Symbol, Price: price, Timestamp: ts}
	s.latencyMs = lat
	s.mu.Unlock()
}

func (s *StateStore) LatestTick(market, symbol string) (Tick, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.ticks[NewTickKey(market, symbol)]
	return t, ok
}

// Ticks returns a copy of all latest ticks.
func (s *StateStore) Ticks() map[TickKey]Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[TickKey]Tick, len(s.ticks))
	for k, v := range s.ticks {
		out[k] = v
	}
	return out
}

// AppendBar pushes a closed candle onto the bounded history for the key,
// evicting the oldest entry when the ring is full.
func (s *StateStore) AppendBar(market, symbol, timeframe string, c Candle) {
	key := NewBarKey(market, symbol, timeframe)
	s.mu.Lock()
	ring, ok := s.bars[key]
	if !ok {
		ring = newCandleRing(s.historyCap)
		s.bars[key] = ring
	}
	ring.push(c)
	s.mu.Unlock()
}

// HistoricalBars returns the closed-bar history oldest→newest as a snapshot
// copy. Never a live view.
func (s *StateStore) HistoricalBars(market, symbol, timeframe string) []Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ring, ok := s.bars[NewBarKey(market, symbol, timeframe)]
	if !ok {
		return nil
	}
	return ring.snapshot()
}

// LastBar returns the newest closed candle for the key, if any.
func (s *StateStore) LastBar(market, symbol, timeframe string) (Candle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ring, ok := s.bars[NewBarKey(market, symbol, timeframe)]
	if !ok {
		return Candle{}, false
	}
	return ring.last()
}

func (s *StateStore) LatencyMillis() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latencyMs
}

func (s *StateStore) SetFeedStatus(market, status string) {
	s.mu.Lock()
	s.feedStatus[market] = status
	s.mu.Unlock()
}

func (s *StateStore) FeedStatus() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.feedStatus))
	for k, v := range s.feedStatus {
		out[k] = v
	}
	return out
}

// SetHotCoins publishes the scanner's current top-ranked symbols.
func (s *StateStore) SetHotCoins(symbols []string) {
	dup := append([]string(nil), symbols...)
	s.mu.Lock()
	s.hotCoins = dup
	s.mu.Unlock()
}

func (s *StateStore) HotCoins() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.hotCoins...)
}

func (s *StateStore) SetNextScanAt(t time.Time) {
	s.mu.Lock()
	s.nextScanAt = t
	s.mu.Unlock()
}

func (s *StateStore) NextScanAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextScanAt
}

func (s *StateStore) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}
