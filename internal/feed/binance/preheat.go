package binance

import (
	"context"
	"strconv"
	"strings"
	"time"

	"tradesim/internal/logger"
	"tradesim/internal/market"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
)

const maxHistoryLimit = 1000

// BarSink receives confirmed historical bars. *market.StateStore satisfies it.
type BarSink interface {
	AppendBar(market, symbol, timeframe string, c market.Candle)
}

// Preheater 启动时通过 REST 拉取最近的已收盘 K 线，
// 让特征计算在聚合器攒满历史之前就可用。
type Preheater struct {
	spot    *gobinance.Client
	futures *futures.Client
	sink    BarSink
}

func NewPreheater(sink BarSink) *Preheater {
	return &Preheater{
		spot:    gobinance.NewClient("", ""),
		futures: futures.NewClient("", ""),
		sink:    sink,
	}
}

// Preheat backfills up to limit closed bars per (market, symbol, timeframe).
// Per-symbol failures are logged and skipped; preheat is best-effort.
func (p *Preheater) Preheat(ctx context.Context, markets, symbols, timeframes []string, limit int) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	for _, mkt := range markets {
		for _, sym := range symbols {
			for _, tf := range timeframes {
				if err := ctx.Err(); err != nil {
					return
				}
				candles, err := p.fetch(ctx, mkt, sym, tf, limit)
				if err != nil {
					logger.Warnf("[PREHEAT] %s %s %s failed: %v", mkt, sym, tf, err)
					continue
				}
				for _, c := range candles {
					p.sink.AppendBar(mkt, sym, tf, c)
				}
				logger.Debugf("[PREHEAT] %s %s %s bars=%d", mkt, sym, tf, len(candles))
			}
		}
	}
}

func (p *Preheater) fetch(ctx context.Context, mkt, symbol, timeframe string, limit int) ([]market.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	timeframe = strings.ToLower(strings.TrimSpace(timeframe))
	if mkt == market.MarketFutures {
		kls, err := p.futures.NewKlinesService().Symbol(symbol).Interval(timeframe).Limit(limit).Do(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]market.Candle, 0, len(kls))
		for _, kl := range kls {
			if kl == nil {
				continue
			}
			out = append(out, market.Candle{
				StartTime: kl.OpenTime / 1000,
				Open:      parseFloat(kl.Open),
				High:      parseFloat(kl.High),
				Low:       parseFloat(kl.Low),
				Close:     parseFloat(kl.Close),
				Volume:    parseFloat(kl.Volume),
			})
		}
		return dropUnclosed(out, timeframe), nil
	}
	kls, err := p.spot.NewKlinesService().Symbol(symbol).Interval(timeframe).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			StartTime: kl.OpenTime / 1000,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		})
	}
	return dropUnclosed(out, timeframe), nil
}

// dropUnclosed trims the still-forming last kline so history only ever holds
// closed bars.
func dropUnclosed(candles []market.Candle, timeframe string) []market.Candle {
	if len(candles) == 0 {
		return candles
	}
	interval, ok := market.ParseTimeframe(timeframe)
	if !ok {
		return candles
	}
	last := candles[len(candles)-1]
	closeAt := time.Unix(last.StartTime, 0).Add(interval)
	if time.Now().Before(closeAt) {
		return candles[:len(candles)-1]
	}
	return candles
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
