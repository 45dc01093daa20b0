package decision

import (
	"tradesim/internal/paper"
)

// Regime labels used to partition candidates before ranking.
const (
	RegimeHighVol = "high_vol"
	RegimeLowVol  = "low_vol"
)

// FeatureSnapshot 是某个候选标的在一次扫描周期内的特征切面。
type FeatureSnapshot struct {
	Market     string
	Symbol     string
	Price      float64
	Trend      float64 // linear-regression slope of closes, in % per bar
	Volatility float64 // stddev of close-to-close diffs
	RSI        float64
	Regime     string
	BarsSeen   int
}

// AsMap flattens the snapshot for reward reporting and journaling.
func (f FeatureSnapshot) AsMap() map[string]float64 {
	return map[string]float64{
		"price": f.Price,
		"trend": f.Trend,
		"vol":   f.Volatility,
		"rsi":   f.RSI,
	}
}

// Advice 是决策引擎对单个候选的建议。
type Advice struct {
	Action          paper.Side
	Leverage        float64
	TakeProfitPct   float64
	StopLossPct     float64
	Margin          float64
	TrailingEnabled bool
}

// Engine turns a feature snapshot and a strategy tag into an action
// recommendation. Implementations must be side-effect free; the scanner
// treats any error as "no action" for that symbol.
type Engine interface {
	Advise(snap FeatureSnapshot, strategy string) (Advice, bool, error)
}
