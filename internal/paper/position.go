package paper

import (
	"time"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is one of the two accepted values.
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// Strategy tags route positions to sub-budgets and exit rules.
const (
	StrategyScalper = "scalper"
	StrategyTrader  = "trader"
)

type CloseReason string

const (
	CloseTakeProfit   CloseReason = "TP"
	CloseStopLoss     CloseReason = "SL"
	CloseTimeout      CloseReason = "TIMEOUT"
	CloseTrailingStop CloseReason = "TRAIL"
)

// Position 是一笔模拟持仓。Owned exclusively by the Trader: once opened,
// only the sweep may touch MaxFavorablePrice and only Close fills the exit
// fields. OPEN → CLOSED is terminal, no re-open, no partial close.
type Position struct {
	ID                string             `json:"id"`
	Market            string             `json:"market"`
	Symbol            string             `json:"symbol"`
	Side              Side               `json:"side"`
	EntryPrice        float64            `json:"entry_price"`
	Quantity          float64            `json:"quantity"`
	Leverage          float64            `json:"leverage"`
	TakeProfitPct     float64            `json:"tp_pct"`
	StopLossPct       float64            `json:"sl_pct"`
	MarginUsed        float64            `json:"margin_used"`
	Strategy          string             `json:"strategy"`
	TrailingEnabled   bool               `json:"trailing_enabled"`
	OpenedAt          time.Time          `json:"opened_at"`
	MaxFavorablePrice float64            `json:"max_favorable_price"`
	Features          map[string]float64 `json:"features,omitempty"`

	ExitPrice   float64     `json:"exit_price,omitempty"`
	PnL         float64     `json:"pnl,omitempty"`
	ClosedAt    time.Time   `json:"closed_at,omitempty"`
	CloseReason CloseReason `json:"close_reason,omitempty"`
}

// GainPct 返回以百分比表示的方向化收益。
func (p *Position) GainPct(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	if p.Side == SideSell {
		return (p.EntryPrice - price) / p.EntryPrice * 100.0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100.0
}

// OpenRequest 描述一次开仓请求，由决策引擎产出。
type OpenRequest struct {
	Market          string
	Symbol          string
	Side            Side
	EntryPrice      float64
	Margin          float64
	Leverage        float64
	TakeProfitPct   float64
	StopLossPct     float64
	Strategy        string
	TrailingEnabled bool
	Features        map[string]float64
}

type RejectReason string

const (
	RejectInvalidPrice RejectReason = "invalid_price"
	RejectInvalidSide  RejectReason = "invalid_side"
	RejectStaleData    RejectReason = "stale_data"
	RejectBudget       RejectReason = "budget_exhausted"
	RejectDuplicateID  RejectReason = "duplicate_id"
)

// OpenResult 是开仓的显式结果：拒绝是常态而不是错误。
type OpenResult struct {
	ID       string
	Rejected bool
	Reason   RejectReason
}
