package scanner

import (
	"context"
	"sort"
	"time"

	"tradesim/internal/budget"
	"tradesim/internal/decision"
	"tradesim/internal/logger"
	"tradesim/internal/market"
	"tradesim/internal/paper"

	"github.com/google/uuid"
)

// UniverseProvider yields the currently tracked symbols.
type UniverseProvider interface {
	Symbols() []string
}

// Config 控制扫描周期与子预算划分。
type Config struct {
	Interval         time.Duration
	ErrorBackoff     time.Duration
	Markets          []string
	Timeframe        string
	MinBars          int
	MaxOpensPerCycle int
	TopHot           int
	// SubBudgetFractions maps a strategy tag to its share of the daily cap.
	SubBudgetFractions map[string]float64
	HighVolPct         float64
}

func DefaultConfig() Config {
	return Config{
		Interval:         10 * time.Second,
		ErrorBackoff:     3 * time.Second,
		Markets:          []string{market.MarketSpot, market.MarketFutures},
		Timeframe:        "1m",
		MinBars:          21,
		MaxOpensPerCycle: 3,
		TopHot:           10,
		SubBudgetFractions: map[string]float64{
			paper.StrategyScalper: 0.4,
			paper.StrategyTrader:  0.6,
		},
		HighVolPct: 0.5,
	}
}

// Scanner 是周期性控制回路：聚合 K 线 → 算特征 → 分组排名 → 开仓 → 巡检平仓。
type Scanner struct {
	cfg      Config
	state    *market.StateStore
	agg      *market.Aggregator
	trader   *paper.Trader
	daycap   *budget.DayCap
	engine   decision.Engine
	universe UniverseProvider
	features *FeatureBuilder
	nowFn    func() time.Time
}

func New(cfg Config, state *market.StateStore, agg *market.Aggregator, trader *paper.Trader, daycap *budget.DayCap, engine decision.Engine, universe UniverseProvider) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 3 * time.Second
	}
	if cfg.MaxOpensPerCycle <= 0 {
		cfg.MaxOpensPerCycle = 3
	}
	if cfg.TopHot <= 0 {
		cfg.TopHot = 10
	}
	return &Scanner{
		cfg:      cfg,
		state:    state,
		agg:      agg,
		trader:   trader,
		daycap:   daycap,
		engine:   engine,
		universe: universe,
		features: NewFeatureBuilder(state, cfg.Timeframe, cfg.MinBars, cfg.HighVolPct),
		nowFn:    time.Now,
	}
}

// Run drives the scan loop until ctx is cancelled. A failing cycle backs off
// and retries; the loop itself never terminates on errors.
func (s *Scanner) Run(ctx context.Context) error {
	logger.Infof("[SCAN] scanner started interval=%s timeframe=%s", s.cfg.Interval, s.cfg.Timeframe)
	for {
		ok := s.safeCycle()
		wait := s.cfg.Interval
		if !ok {
			wait = s.cfg.ErrorBackoff
		}
		s.state.SetNextScanAt(s.nowFn().Add(wait))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Infof("[SCAN] ctx done, exit")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Scanner) safeCycle() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[SCAN] cycle panic: %v", r)
			ok = false
		}
	}()
	s.cycle()
	return true
}

func (s *Scanner) cycle() {
	trace := uuid.NewString()[:8]

	// 1. fold pending ticks into bars
	s.agg.Sweep()

	// 2. feature snapshots for the tracked universe
	snaps := s.collectSnapshots()

	// 3. regime partition + ranking
	groups := partitionByRegime(snaps)
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool { return score(group[i]) > score(group[j]) })
	}
	hot := hotSymbols(groups, s.cfg.TopHot)
	s.state.SetHotCoins(hot)
	if len(hot) > 0 {
		logger.Infof("[SCAN] trace=%s 热门候选=%v", trace, hot)
	}

	// 4. open within per-strategy sub-budgets
	for strategy, group := range groups {
		s.openGroup(trace, strategy, group)
	}

	// 5. exit sweep over everything open
	s.trader.SweepAndClose()
}

func (s *Scanner) collectSnapshots() []decision.FeatureSnapshot {
	var out []decision.FeatureSnapshot
	for _, mkt := range s.cfg.Markets {
		for _, sym := range s.universe.Symbols() {
			snap, err := s.features.Snapshot(mkt, sym)
			if err != nil {
				// insufficient history is routine early on; skip, do not fill
				logger.Debugf("[SCAN] skip %v", err)
				continue
			}
			out = append(out, snap)
		}
	}
	return out
}

// partitionByRegime routes high-volatility candidates to the scalper
// strategy and the rest to the position trader.
func partitionByRegime(snaps []decision.FeatureSnapshot) map[string][]decision.FeatureSnapshot {
	groups := make(map[string][]decision.FeatureSnapshot)
	for _, snap := range snaps {
		strategy := paper.StrategyTrader
		if snap.Regime == decision.RegimeHighVol {
			strategy = paper.StrategyScalper
		}
		groups[strategy] = append(groups[strategy], snap)
	}
	return groups
}

func hotSymbols(groups map[string][]decision.FeatureSnapshot, limit int) []string {
	var all []decision.FeatureSnapshot
	for _, group := range groups {
		all = append(all, group...)
	}
	sort.Slice(all, func(i, j int) bool { return score(all[i]) > score(all[j]) })
	seen := make(map[string]bool)
	var out []string
	for _, snap := range all {
		if seen[snap.Symbol] {
			continue
		}
		seen[snap.Symbol] = true
		out = append(out, snap.Symbol)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func (s *Scanner) openGroup(trace, strategy string, group []decision.FeatureSnapshot) {
	fraction := s.cfg.SubBudgetFractions[strategy]
	if fraction <= 0 {
		return
	}
	opened := 0
	for _, snap := range group {
		if opened >= s.cfg.MaxOpensPerCycle {
			return
		}
		bucket := s.daycap.EnsureBucket(snap.Market)
		remaining := fraction*bucket.Cap - s.trader.UsedMarginByStrategy(strategy)
		if remaining <= 0 {
			return
		}
		advice, act, err := s.engine.Advise(snap, strategy)
		if err != nil {
			logger.Warnf("[SCAN] trace=%s decision failed %s:%s: %v", trace, snap.Market, snap.Symbol, err)
			continue
		}
		if !act || advice.Margin <= 0 {
			continue
		}
		if advice.Margin > remaining {
			continue
		}
		res := s.trader.Open(paper.OpenRequest{
			Market:          snap.Market,
			Symbol:          snap.Symbol,
			Side:            advice.Action,
			EntryPrice:      snap.Price,
			Margin:          advice.Margin,
			Leverage:        advice.Leverage,
			TakeProfitPct:   advice.TakeProfitPct,
			StopLossPct:     advice.StopLossPct,
			Strategy:        strategy,
			TrailingEnabled: advice.TrailingEnabled,
			Features:        snap.AsMap(),
		})
		if res.Rejected {
			logger.Debugf("[SCAN] trace=%s open rejected %s:%s reason=%s", trace, snap.Market, snap.Symbol, res.Reason)
			continue
		}
		opened++
	}
}
