package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"tradesim/internal/logger"
	"tradesim/internal/market"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// 状态值与 snapshot 中的 feed_status 字段一致。
const (
	StatusDisconnected = "disconnected"
	StatusSubscribed   = "subscribed"
	StatusActive       = "active"
)

// Sink receives normalized ticks. *market.StateStore satisfies it.
type Sink interface {
	UpsertTick(market, symbol string, price float64, ts time.Time)
	SetFeedStatus(market, status string)
}

// SymbolProvider yields the symbols to subscribe. universe.Registry satisfies it.
type SymbolProvider interface {
	Symbols() []string
}

// Config 描述一条 Bybit v5 公共行情连接。
type Config struct {
	Market         string // market.MarketSpot / market.MarketFutures
	URL            string // e.g. wss://stream.bybit.com/v5/public/spot
	PingInterval   time.Duration
	ReconnectDelay time.Duration
	ReadTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = 15 * time.Second
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 3 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 45 * time.Second
	}
	if c.Market == "" {
		c.Market = market.MarketSpot
	}
	return c
}

// Feed 维持单条 ws 连接：订阅 tickers.*，断线自动重连。
type Feed struct {
	cfg      Config
	sink     Sink
	provider SymbolProvider
	nowFn    func() time.Time

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewFeed(cfg Config, sink Sink, provider SymbolProvider) *Feed {
	return &Feed{cfg: cfg.withDefaults(), sink: sink, provider: provider, nowFn: time.Now}
}

// Run blocks until ctx is cancelled, reconnecting on every failure.
func (f *Feed) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.runOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Warnf("[WS] %s feed error: %v", f.cfg.Market, err)
			f.sink.SetFeedStatus(f.cfg.Market, "error:"+err.Error())
		}
		f.sink.SetFeedStatus(f.cfg.Market, StatusDisconnected)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.cfg.ReconnectDelay):
		}
	}
}

func (f *Feed) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.cfg.URL, err)
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	defer conn.Close()

	if err := f.subscribe(conn); err != nil {
		return err
	}
	f.sink.SetFeedStatus(f.cfg.Market, StatusSubscribed)
	logger.Infof("[WS] %s 订阅已启动 url=%s symbols=%d", f.cfg.Market, f.cfg.URL, len(f.provider.Symbols()))

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go f.pingLoop(pingCtx, conn)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = conn.SetReadDeadline(f.nowFn().Add(f.cfg.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.handleMessage(msg)
	}
}

type wsRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

func (f *Feed) subscribe(conn *websocket.Conn) error {
	symbols := f.provider.Symbols()
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to subscribe")
	}
	args := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		args = append(args, "tickers."+strings.ToUpper(sym))
	}
	payload, err := json.Marshal(wsRequest{Op: "subscribe", Args: args})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (f *Feed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()
	payload, _ := json.Marshal(wsRequest{Op: "ping"})
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, payload)
			f.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (f *Feed) handleMessage(msg []byte) {
	topic := gjson.GetBytes(msg, "topic").String()
	if !strings.HasPrefix(topic, "tickers.") {
		if gjson.GetBytes(msg, "success").Exists() {
			logger.Debugf("[WS] %s ack: %s", f.cfg.Market, gjson.GetBytes(msg, "ret_msg").String())
		}
		return
	}
	data := gjson.GetBytes(msg, "data")
	now := f.nowFn()
	apply := func(item gjson.Result) {
		sym := strings.ToUpper(item.Get("symbol").String())
		raw := item.Get("lastPrice").String()
		if raw == "" {
			raw = item.Get("markPrice").String()
		}
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || sym == "" || price <= 0 {
			return
		}
		f.sink.UpsertTick(f.cfg.Market, sym, price, now)
	}
	if data.IsArray() {
		data.ForEach(func(_, item gjson.Result) bool {
			apply(item)
			return true
		})
	} else {
		apply(data)
	}
	f.sink.SetFeedStatus(f.cfg.Market, StatusActive)
}
