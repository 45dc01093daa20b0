package app

import (
	"context"
	"fmt"
	"time"

	"tradesim/internal/budget"
	"tradesim/internal/config"
	"tradesim/internal/decision"
	"tradesim/internal/feed/binance"
	"tradesim/internal/feed/bybit"
	"tradesim/internal/journal"
	"tradesim/internal/learn"
	"tradesim/internal/logger"
	"tradesim/internal/market"
	"tradesim/internal/paper"
	"tradesim/internal/scanner"
	httpapi "tradesim/internal/transport/http"
	"tradesim/internal/universe"
)

// AppBuilder 按依赖顺序装配全部组件。
type AppBuilder struct {
	cfg *config.Config
}

func NewAppBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

// Build constructs the application graph: state store → budget → trader →
// scanner → feeds → learning → http. Nothing is started here.
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	cfg := b.cfg
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	state := market.NewStateStore(market.WithHistoryCap(cfg.Market.HistoryCap))
	agg := market.NewAggregator(state, cfg.Market.Timeframes)

	dayCap := budget.NewDayCap(budget.WithDefaultCap(cfg.Budget.DefaultCap))
	if err := dayCap.Load(cfg.Budget.CheckpointPath); err != nil {
		return nil, fmt.Errorf("load budget checkpoint: %w", err)
	}

	reg, err := universe.NewRegistry(cfg.Market.UniversePath)
	if err != nil {
		return nil, fmt.Errorf("universe registry: %w", err)
	}

	expStore, err := learn.NewExperienceStore(cfg.Learn.ExperiencePath)
	if err != nil {
		return nil, fmt.Errorf("experience store: %w", err)
	}
	agent := learn.NewAgent(cfg.Learn.AgentPath)
	if err := agent.Load(); err != nil {
		logger.Warnf("[APP] agent checkpoint unreadable, starting fresh: %v", err)
	}
	recorder := learn.NewRecorder(expStore, agent, time.Duration(cfg.Learn.CheckpointSecs)*time.Second)

	jnl, err := journal.NewJournal(cfg.Store.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	traderCfg := paper.TraderConfig{
		MaxLatencyMs:  cfg.Trading.MaxLatencyMs,
		ClosedHistory: cfg.Trading.ClosedHistory,
		Rules: paper.ExitRules{
			ScalperMaxHold:    time.Duration(cfg.Trading.ScalperMaxHoldSecs) * time.Second,
			TrailingOffsetPct: cfg.Trading.TrailingOffsetPct,
		},
	}
	trader := paper.NewTrader(state, dayCap, traderCfg,
		paper.WithRewardReporter(recorder),
		paper.WithCloseHook(func(pos paper.Position) {
			if err := jnl.RecordClose(pos); err != nil {
				logger.Warnf("[APP] journal close failed id=%s: %v", pos.ID, err)
			}
		}),
	)

	heurCfg := decision.DefaultHeuristicConfig()
	heurCfg.Margin = cfg.Trading.Margin
	heurCfg.TrailingEnablePct = cfg.Trading.TrailingEnablePct
	engine := decision.NewHeuristicEngine(heurCfg)

	scanCfg := scanner.Config{
		Interval:         time.Duration(cfg.Scanner.IntervalSeconds) * time.Second,
		ErrorBackoff:     time.Duration(cfg.Scanner.BackoffSeconds) * time.Second,
		Markets:          cfg.Scanner.Markets,
		Timeframe:        cfg.Scanner.Timeframe,
		MinBars:          cfg.Scanner.MinBars,
		MaxOpensPerCycle: cfg.Scanner.MaxOpensPerCycle,
		TopHot:           cfg.Scanner.TopHot,
		SubBudgetFractions: map[string]float64{
			paper.StrategyScalper: cfg.Scanner.ScalperFraction,
			paper.StrategyTrader:  cfg.Scanner.TraderFraction,
		},
		HighVolPct: cfg.Scanner.HighVolPct,
	}
	scan := scanner.New(scanCfg, state, agg, trader, dayCap, engine, reg)

	feeds := []*bybit.Feed{
		bybit.NewFeed(bybit.Config{
			Market:         market.MarketSpot,
			URL:            cfg.Feed.SpotURL,
			PingInterval:   time.Duration(cfg.Feed.PingSeconds) * time.Second,
			ReadTimeout:    time.Duration(cfg.Feed.ReadTimeoutSec) * time.Second,
			ReconnectDelay: time.Duration(cfg.Feed.ReconnectSecs) * time.Second,
		}, state, reg),
		bybit.NewFeed(bybit.Config{
			Market:         market.MarketFutures,
			URL:            cfg.Feed.FuturesURL,
			PingInterval:   time.Duration(cfg.Feed.PingSeconds) * time.Second,
			ReadTimeout:    time.Duration(cfg.Feed.ReadTimeoutSec) * time.Second,
			ReconnectDelay: time.Duration(cfg.Feed.ReconnectSecs) * time.Second,
		}, state, reg),
	}

	preheater := binance.NewPreheater(state)

	snapshot := httpapi.NewSnapshotHandler(state, dayCap, trader)
	httpSrv, err := httpapi.NewServer(httpapi.ServerConfig{Addr: cfg.App.HTTPAddr, Snapshot: snapshot})
	if err != nil {
		return nil, fmt.Errorf("http server: %w", err)
	}

	return &App{
		cfg:       cfg,
		state:     state,
		dayCap:    dayCap,
		trader:    trader,
		scanner:   scan,
		feeds:     feeds,
		preheater: preheater,
		registry:  reg,
		recorder:  recorder,
		agent:     agent,
		expStore:  expStore,
		journal:   jnl,
		httpSrv:   httpSrv,
	}, nil
}
