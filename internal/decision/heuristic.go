package decision

import (
	"math"

	"tradesim/internal/paper"
)

// HeuristicConfig 控制内置启发式引擎的出参范围。
type HeuristicConfig struct {
	Margin            float64 // margin per trade
	BaseLeverage      float64
	MinLeverage       float64
	MaxLeverage       float64
	BaseTakeProfitPct float64
	MaxTrendBonusPct  float64
	StopLossPct       float64
	// TrailingEnablePct: advice with a take-profit above this threshold gets
	// the trailing stop enabled explicitly, instead of downstream code
	// inferring it from TP magnitude.
	TrailingEnablePct float64
}

func DefaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{
		Margin:            15.0,
		BaseLeverage:      3.0,
		MinLeverage:       1.0,
		MaxLeverage:       5.0,
		BaseTakeProfitPct: 1.5,
		MaxTrendBonusPct:  2.0,
		StopLossPct:       1.0,
		TrailingEnablePct: 2.0,
	}
}

// HeuristicEngine derives side from trend sign, damps leverage by volatility
// and widens the take-profit with trend magnitude. Stateless and pure.
type HeuristicEngine struct {
	cfg HeuristicConfig
}

func NewHeuristicEngine(cfg HeuristicConfig) *HeuristicEngine {
	if cfg.Margin <= 0 {
		cfg.Margin = 15.0
	}
	if cfg.BaseLeverage <= 0 {
		cfg.BaseLeverage = 3.0
	}
	if cfg.MaxLeverage <= 0 {
		cfg.MaxLeverage = 5.0
	}
	if cfg.MinLeverage <= 0 {
		cfg.MinLeverage = 1.0
	}
	if cfg.StopLossPct <= 0 {
		cfg.StopLossPct = 1.0
	}
	return &HeuristicEngine{cfg: cfg}
}

var _ Engine = (*HeuristicEngine)(nil)

func (e *HeuristicEngine) Advise(snap FeatureSnapshot, strategy string) (Advice, bool, error) {
	if snap.Price <= 0 {
		return Advice{}, false, nil
	}
	side := paper.SideBuy
	if snap.Trend < 0 {
		side = paper.SideSell
	}

	lev := e.cfg.BaseLeverage - 0.02*snap.Volatility
	lev = math.Min(e.cfg.MaxLeverage, math.Max(e.cfg.MinLeverage, lev))
	lev = math.Round(lev*100) / 100

	bonus := 0.5 * math.Abs(snap.Trend)
	if bonus > e.cfg.MaxTrendBonusPct {
		bonus = e.cfg.MaxTrendBonusPct
	}
	tp := e.cfg.BaseTakeProfitPct + bonus

	return Advice{
		Action:          side,
		Leverage:        lev,
		TakeProfitPct:   tp,
		StopLossPct:     e.cfg.StopLossPct,
		Margin:          e.cfg.Margin,
		TrailingEnabled: e.cfg.TrailingEnablePct > 0 && tp > e.cfg.TrailingEnablePct,
	}, true, nil
}
