package paper

import (
	"time"
)

// ExitRules 是退出判定的全局参数。
type ExitRules struct {
	// ScalperMaxHold is the hold ceiling for scalper-tagged positions.
	ScalperMaxHold time.Duration
	// TrailingOffsetPct is the distance from the best seen price, in percent,
	// at which a trailing stop fires.
	TrailingOffsetPct float64
}

// DefaultExitRules mirror the live defaults: 5 minute scalper timeout and a
// 1% trailing offset.
func DefaultExitRules() ExitRules {
	return ExitRules{
		ScalperMaxHold:    5 * time.Minute,
		TrailingOffsetPct: 1.0,
	}
}

// EvaluateExit decides whether the position should close at the given price.
// Pure function, first match wins: take-profit, stop-loss, scalper timeout,
// trailing stop. The caller must have refreshed MaxFavorablePrice first.
func EvaluateExit(p *Position, price float64, now time.Time, rules ExitRules) (CloseReason, bool) {
	gain := p.GainPct(price)
	if decimalGTE(gain, p.TakeProfitPct) {
		return CloseTakeProfit, true
	}
	if decimalGTE(-gain, p.StopLossPct) {
		return CloseStopLoss, true
	}
	if p.Strategy == StrategyScalper && rules.ScalperMaxHold > 0 && now.Sub(p.OpenedAt) >= rules.ScalperMaxHold {
		return CloseTimeout, true
	}
	if p.TrailingEnabled && p.MaxFavorablePrice > 0 {
		level := trailingLevel(p.Side, p.MaxFavorablePrice, rules.TrailingOffsetPct)
		if p.Side == SideSell {
			if decimalGTE(price, level) {
				return CloseTrailingStop, true
			}
		} else if decimalLTE(price, level) {
			return CloseTrailingStop, true
		}
	}
	return "", false
}

// updateMaxFavorable keeps the running best price for the position's
// direction: maximum for buys, minimum for sells.
func updateMaxFavorable(p *Position, price float64) {
	if p.MaxFavorablePrice <= 0 {
		p.MaxFavorablePrice = price
		return
	}
	if p.Side == SideSell {
		if price < p.MaxFavorablePrice {
			p.MaxFavorablePrice = price
		}
		return
	}
	if price > p.MaxFavorablePrice {
		p.MaxFavorablePrice = price
	}
}
