package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"tradesim/internal/budget"
	"tradesim/internal/market"
	"tradesim/internal/paper"

	"github.com/gin-gonic/gin"
)

const defaultTailLen = 5

// SnapshotHandler 汇总各组件的只读视图，对外暴露 JSON 状态。
type SnapshotHandler struct {
	State  *market.StateStore
	DayCap *budget.DayCap
	Trader *paper.Trader
	nowFn  func() time.Time
}

func NewSnapshotHandler(state *market.StateStore, dayCap *budget.DayCap, trader *paper.Trader) *SnapshotHandler {
	return &SnapshotHandler{State: state, DayCap: dayCap, Trader: trader, nowFn: time.Now}
}

type tickView struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

type positionView struct {
	ID            string  `json:"id"`
	Market        string  `json:"market"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Strategy      string  `json:"strategy"`
	EntryPrice    float64 `json:"entry_price"`
	Quantity      float64 `json:"quantity"`
	Leverage      float64 `json:"leverage"`
	MarginUsed    float64 `json:"margin_used"`
	TakeProfitPct float64 `json:"tp_pct"`
	StopLossPct   float64 `json:"sl_pct"`
	Trailing      bool    `json:"trailing"`
	OpenedAt      int64   `json:"opened_at"`
	ExitPrice     float64 `json:"exit_price,omitempty"`
	PnL           float64 `json:"pnl,omitempty"`
	CloseReason   string  `json:"close_reason,omitempty"`
	ClosedAt      int64   `json:"closed_at,omitempty"`
}

func toPositionView(p paper.Position) positionView {
	v := positionView{
		ID:            p.ID,
		Market:        p.Market,
		Symbol:        p.Symbol,
		Side:          string(p.Side),
		Strategy:      string(p.Strategy),
		EntryPrice:    p.EntryPrice,
		Quantity:      p.Quantity,
		Leverage:      p.Leverage,
		MarginUsed:    p.MarginUsed,
		TakeProfitPct: p.TakeProfitPct,
		StopLossPct:   p.StopLossPct,
		Trailing:      p.TrailingEnabled,
		OpenedAt:      p.OpenedAt.Unix(),
		ExitPrice:     p.ExitPrice,
		PnL:           p.PnL,
		CloseReason:   string(p.CloseReason),
	}
	if !p.ClosedAt.IsZero() {
		v.ClosedAt = p.ClosedAt.Unix()
	}
	return v
}

// HandleSnapshot serves the aggregate engine view.
func (h *SnapshotHandler) HandleSnapshot(c *gin.Context) {
	now := h.nowFn()

	ticks := make(map[string]tickView)
	for key, t := range h.State.Ticks() {
		ticks[key.Market+":"+key.Symbol] = tickView{Price: t.Price, Timestamp: t.Timestamp.Unix()}
	}

	buckets := make(map[string]gin.H)
	for mkt, b := range h.DayCap.Buckets() {
		buckets[mkt] = gin.H{"date": b.Date, "used": b.Used, "cap": b.Cap, "remaining": b.Cap - b.Used}
	}

	profit, loss := h.Trader.Totals()

	open := h.Trader.OpenPositions()
	openTail := make([]positionView, 0, defaultTailLen)
	for i := len(open) - 1; i >= 0 && len(openTail) < defaultTailLen; i-- {
		openTail = append(openTail, toPositionView(open[i]))
	}

	closed := h.Trader.ClosedPositions()
	closedTail := make([]positionView, 0, defaultTailLen)
	for i := len(closed) - 1; i >= 0 && len(closedTail) < defaultTailLen; i-- {
		closedTail = append(closedTail, toPositionView(closed[i]))
	}

	var nextScan int64
	if t := h.State.NextScanAt(); !t.IsZero() {
		nextScan = t.Unix()
	}

	c.JSON(http.StatusOK, gin.H{
		"now":            now.Unix(),
		"uptime_seconds": int64(now.Sub(h.State.StartedAt()).Seconds()),
		"latency_ms":     h.State.LatencyMillis(),
		"feed_status":    h.State.FeedStatus(),
		"ticks":          ticks,
		"hot_coins":      h.State.HotCoins(),
		"next_scan_at":   nextScan,
		"budget":         buckets,
		"accounts": gin.H{
			"open_positions": h.Trader.OpenCount(),
			"total_profit":   profit,
			"total_loss":     loss,
			"total_pnl":      profit + loss,
		},
		"open_tail":   openTail,
		"closed_tail": closedTail,
	})
}

// HandlePositions serves every open position.
func (h *SnapshotHandler) HandlePositions(c *gin.Context) {
	open := h.Trader.OpenPositions()
	views := make([]positionView, 0, len(open))
	for _, p := range open {
		views = append(views, toPositionView(p))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(views), "positions": views})
}

// HandleClosed serves the bounded closed-trade history, newest first.
func (h *SnapshotHandler) HandleClosed(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	closed := h.Trader.ClosedPositions()
	views := make([]positionView, 0, limit)
	for i := len(closed) - 1; i >= 0 && len(views) < limit; i-- {
		views = append(views, toPositionView(closed[i]))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(views), "closed": views})
}
