package market

import (
	"strings"
	"time"
)

const (
	MarketSpot    = "spot"
	MarketFutures = "futures"
)

// Tick 是某个市场/交易对的最新成交快照。
type Tick struct {
	Market    string    `json:"market"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"ts"`
}

// Candle 表示一根固定周期的 OHLC K 线。
type Candle struct {
	StartTime int64   `json:"start_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// TickKey identifies a (market, symbol) pair. Market is stored lowercase,
// symbol uppercase, matching the feed side.
type TickKey struct {
	Market string
	Symbol string
}

func NewTickKey(market, symbol string) TickKey {
	return TickKey{
		Market: strings.ToLower(strings.TrimSpace(market)),
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
	}
}

// BarKey identifies a (market, symbol, timeframe) bar series.
type BarKey struct {
	Market    string
	Symbol    string
	Timeframe string
}

func NewBarKey(market, symbol, timeframe string) BarKey {
	return BarKey{
		Market:    strings.ToLower(strings.TrimSpace(market)),
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Timeframe: strings.ToLower(strings.TrimSpace(timeframe)),
	}
}
