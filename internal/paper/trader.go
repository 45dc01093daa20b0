package paper

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"tradesim/internal/budget"
	"tradesim/internal/logger"
	"tradesim/internal/market"
)

// RewardReporter receives the realized outcome of every closed position.
// Fire-and-forget: failures are logged and never block the close path.
type RewardReporter interface {
	ReportOutcome(symbol, market string, side Side, rewardPct float64, features map[string]float64) error
}

// TraderConfig 控制开仓校验与历史保留。
type TraderConfig struct {
	// MaxLatencyMs rejects opens while the observed feed latency exceeds
	// this ceiling, so the simulation never trades on stale data.
	MaxLatencyMs int64
	// ClosedHistory bounds the in-memory ring of closed positions.
	ClosedHistory int
	// Rules parameterize the per-sweep exit evaluation.
	Rules ExitRules
}

func DefaultTraderConfig() TraderConfig {
	return TraderConfig{
		MaxLatencyMs:  5000,
		ClosedHistory: 50,
		Rules:         DefaultExitRules(),
	}
}

// Trader 是纸面交易的持仓账本：负责开仓、巡检平仓与保证金记账。
type Trader struct {
	state  *market.StateStore
	daycap *budget.DayCap
	cfg    TraderConfig
	nowFn  func() time.Time

	reporter RewardReporter
	onClose  func(Position)

	mu          sync.Mutex
	seq         int64
	open        map[string]*Position
	closed      []Position
	closedStart int
	closedSize  int
	totalProfit float64
	totalLoss   float64
}

type TraderOption func(*Trader)

func WithRewardReporter(r RewardReporter) TraderOption {
	return func(t *Trader) { t.reporter = r }
}

// WithCloseHook registers a callback invoked with a copy of every closed
// position, after budget release. Used for journaling.
func WithCloseHook(fn func(Position)) TraderOption {
	return func(t *Trader) { t.onClose = fn }
}

func WithTraderNowFunc(fn func() time.Time) TraderOption {
	return func(t *Trader) {
		if fn != nil {
			t.nowFn = fn
		}
	}
}

func NewTrader(state *market.StateStore, daycap *budget.DayCap, cfg TraderConfig, opts ...TraderOption) *Trader {
	if cfg.ClosedHistory <= 0 {
		cfg.ClosedHistory = 50
	}
	t := &Trader{
		state:  state,
		daycap: daycap,
		cfg:    cfg,
		nowFn:  time.Now,
		open:   make(map[string]*Position),
		closed: make([]Position, cfg.ClosedHistory),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Open validates the request against latency and today's budget, then books
// the position. Rejections are expected outcomes, returned not raised.
func (t *Trader) Open(req OpenRequest) OpenResult {
	if req.EntryPrice <= 0 {
		return OpenResult{Rejected: true, Reason: RejectInvalidPrice}
	}
	if !req.Side.Valid() {
		return OpenResult{Rejected: true, Reason: RejectInvalidSide}
	}
	if t.cfg.MaxLatencyMs > 0 && t.state.LatencyMillis() > t.cfg.MaxLatencyMs {
		return OpenResult{Rejected: true, Reason: RejectStaleData}
	}
	if !t.daycap.CanSpend(req.Market, req.Margin) {
		b := t.daycap.EnsureBucket(req.Market)
		logger.Infof("[PAPER] daycap exhausted market=%s used=%.2f cap=%.2f margin=%.2f", req.Market, b.Used, b.Cap, req.Margin)
		return OpenResult{Rejected: true, Reason: RejectBudget}
	}

	t.mu.Lock()
	t.seq++
	id := fmt.Sprintf("T%08d", t.seq)
	if _, exists := t.open[id]; exists {
		// ids are monotonic, so a collision is a no-op rather than a fault
		t.mu.Unlock()
		return OpenResult{Rejected: true, Reason: RejectDuplicateID}
	}
	pos := &Position{
		ID:                id,
		Market:            req.Market,
		Symbol:            req.Symbol,
		Side:              req.Side,
		EntryPrice:        req.EntryPrice,
		Quantity:          req.Margin * req.Leverage / req.EntryPrice,
		Leverage:          req.Leverage,
		TakeProfitPct:     req.TakeProfitPct,
		StopLossPct:       req.StopLossPct,
		MarginUsed:        req.Margin,
		Strategy:          req.Strategy,
		TrailingEnabled:   req.TrailingEnabled,
		OpenedAt:          t.nowFn(),
		MaxFavorablePrice: req.EntryPrice,
		Features:          req.Features,
	}
	t.open[id] = pos
	t.mu.Unlock()

	t.daycap.RegisterSpend(req.Market, req.Margin)
	logger.Infof("[PAPER] open %s %s %s margin=%.2f lev=%.2f tp=%.2f%% sl=%.2f%% id=%s",
		req.Market, req.Side, req.Symbol, req.Margin, req.Leverage, req.TakeProfitPct, req.StopLossPct, id)
	return OpenResult{ID: id}
}

// SweepAndClose evaluates every open position against the latest tick and
// closes the ones whose exit condition fired. Iteration runs over a stable
// snapshot, so opens and closes during the sweep do not disturb it.
func (t *Trader) SweepAndClose() {
	now := t.nowFn()

	t.mu.Lock()
	ids := make([]string, 0, len(t.open))
	for id := range t.open {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	t.mu.Unlock()

	for _, id := range ids {
		t.sweepOne(id, now)
	}
}

func (t *Trader) sweepOne(id string, now time.Time) {
	t.mu.Lock()
	pos, ok := t.open[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	tick, ok := t.state.LatestTick(pos.Market, pos.Symbol)
	if !ok || tick.Price <= 0 {
		// transient data gap, leave open until the next sweep
		t.mu.Unlock()
		return
	}
	price := tick.Price
	updateMaxFavorable(pos, price)
	reason, hit := EvaluateExit(pos, price, now, t.cfg.Rules)
	if !hit {
		t.mu.Unlock()
		return
	}
	gain := pos.GainPct(price)
	pnl := gain / 100.0 * pos.EntryPrice * pos.Quantity
	closed := t.closeLocked(pos, price, pnl, now, reason)
	t.mu.Unlock()

	t.daycap.Release(closed.Market, closed.MarginUsed)
	if closed.PnL > 0 {
		t.daycap.AdjustCapOnProfit(closed.Market, closed.PnL)
	}
	logger.Infof("[PAPER] close %s %s %s exit=%.6f pnl=%+.2f (%+.2f%%) reason=%s id=%s",
		closed.Market, closed.Side, closed.Symbol, closed.ExitPrice, closed.PnL, gain, reason, closed.ID)

	if t.reporter != nil {
		if err := t.reporter.ReportOutcome(closed.Symbol, closed.Market, closed.Side, gain, closed.Features); err != nil {
			logger.Warnf("[PAPER] reward report failed id=%s: %v", closed.ID, err)
		}
	}
	if t.onClose != nil {
		t.onClose(closed)
	}
}

// closeLocked moves the position from the open set to the closed ring.
// Caller holds t.mu.
func (t *Trader) closeLocked(pos *Position, exitPrice, pnl float64, now time.Time, reason CloseReason) Position {
	pos.ExitPrice = exitPrice
	pos.PnL = pnl
	pos.ClosedAt = now
	pos.CloseReason = reason
	delete(t.open, pos.ID)

	if t.closedSize < len(t.closed) {
		t.closed[(t.closedStart+t.closedSize)%len(t.closed)] = *pos
		t.closedSize++
	} else {
		t.closed[t.closedStart] = *pos
		t.closedStart = (t.closedStart + 1) % len(t.closed)
	}
	if pnl >= 0 {
		t.totalProfit += pnl
	} else {
		t.totalLoss += pnl
	}
	return *pos
}

// UsedMarginByStrategy sums margin over open positions with the given tag.
func (t *Trader) UsedMarginByStrategy(strategy string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var sum float64
	for _, pos := range t.open {
		if pos.Strategy == strategy {
			sum += pos.MarginUsed
		}
	}
	return sum
}

// OpenCount returns the number of currently open positions.
func (t *Trader) OpenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// OpenPositions returns copies of all open positions, ordered by id.
func (t *Trader) OpenPositions() []Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Position, 0, len(t.open))
	for _, pos := range t.open {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ClosedPositions returns copies of the bounded closed history, oldest first.
func (t *Trader) ClosedPositions() []Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Position, 0, t.closedSize)
	for i := 0; i < t.closedSize; i++ {
		out = append(out, t.closed[(t.closedStart+i)%len(t.closed)])
	}
	return out
}

// Totals reports cumulative realized profit and loss since start.
func (t *Trader) Totals() (profit, loss float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalProfit, t.totalLoss
}
