package bybit

import (
	"testing"
	"time"

	"tradesim/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedTick struct {
	market string
	symbol string
	price  float64
}

type fakeSink struct {
	ticks    []capturedTick
	statuses []string
}

func (f *fakeSink) UpsertTick(mkt, symbol string, price float64, _ time.Time) {
	f.ticks = append(f.ticks, capturedTick{market: mkt, symbol: symbol, price: price})
}

func (f *fakeSink) SetFeedStatus(_, status string) {
	f.statuses = append(f.statuses, status)
}

type fakeProvider []string

func (f fakeProvider) Symbols() []string { return f }

func newTestFeed(sink *fakeSink) *Feed {
	return NewFeed(Config{Market: market.MarketSpot}, sink, fakeProvider{"BTCUSDT"})
}

func TestHandleMessageTickerObject(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFeed(sink)

	f.handleMessage([]byte(`{"topic":"tickers.BTCUSDT","data":{"symbol":"btcusdt","lastPrice":"42000.5"}}`))

	require.Len(t, sink.ticks, 1)
	assert.Equal(t, "spot", sink.ticks[0].market)
	assert.Equal(t, "BTCUSDT", sink.ticks[0].symbol)
	assert.Equal(t, 42000.5, sink.ticks[0].price)
	assert.Contains(t, sink.statuses, StatusActive)
}

func TestHandleMessageFallsBackToMarkPrice(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFeed(sink)

	f.handleMessage([]byte(`{"topic":"tickers.ETHUSDT","data":{"symbol":"ETHUSDT","markPrice":"2500.25"}}`))

	require.Len(t, sink.ticks, 1)
	assert.Equal(t, 2500.25, sink.ticks[0].price)
}

func TestHandleMessageTickerArray(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFeed(sink)

	f.handleMessage([]byte(`{"topic":"tickers.BTCUSDT","data":[
		{"symbol":"BTCUSDT","lastPrice":"100"},
		{"symbol":"ETHUSDT","lastPrice":"200"}
	]}`))

	require.Len(t, sink.ticks, 2)
	assert.Equal(t, 100.0, sink.ticks[0].price)
	assert.Equal(t, 200.0, sink.ticks[1].price)
}

func TestHandleMessageDropsBadPayloads(t *testing.T) {
	sink := &fakeSink{}
	f := newTestFeed(sink)

	f.handleMessage([]byte(`{"op":"pong","success":true,"ret_msg":"pong"}`))
	f.handleMessage([]byte(`{"topic":"tickers.BTCUSDT","data":{"symbol":"BTCUSDT","lastPrice":"not-a-number"}}`))
	f.handleMessage([]byte(`{"topic":"tickers.BTCUSDT","data":{"symbol":"","lastPrice":"100"}}`))
	f.handleMessage([]byte(`{"topic":"tickers.BTCUSDT","data":{"symbol":"BTCUSDT","lastPrice":"-5"}}`))
	f.handleMessage([]byte(`{"topic":"orderbook.50.BTCUSDT","data":{}}`))

	assert.Empty(t, sink.ticks)
}
