package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradesim/internal/budget"
	"tradesim/internal/config"
	"tradesim/internal/feed/binance"
	"tradesim/internal/feed/bybit"
	"tradesim/internal/journal"
	"tradesim/internal/learn"
	"tradesim/internal/logger"
	"tradesim/internal/market"
	"tradesim/internal/paper"
	"tradesim/internal/scanner"
	"tradesim/internal/scheduler"
	httpapi "tradesim/internal/transport/http"
	"tradesim/internal/universe"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动行情、扫描与 HTTP 服务。
type App struct {
	cfg       *config.Config
	state     *market.StateStore
	dayCap    *budget.DayCap
	trader    *paper.Trader
	scanner   *scanner.Scanner
	feeds     []*bybit.Feed
	preheater *binance.Preheater
	registry  *universe.Registry
	recorder  *learn.Recorder
	agent     *learn.Agent
	expStore  *learn.ExperienceStore
	journal   *journal.Journal
	httpSrv   *httpapi.Server
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动全部服务，直到 ctx 取消或某个服务出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	logger.InfoBlock(a.startupSummary())

	// Preheat kline history before the scan loop starts, so feature windows
	// have bars on the first cycles. Best-effort with a hard deadline.
	preheatCtx, cancelPreheat := context.WithTimeout(ctx, 60*time.Second)
	a.preheater.Preheat(preheatCtx, a.cfg.Scanner.Markets, a.registry.Symbols(), a.cfg.Market.Timeframes, a.cfg.Market.PreheatBars)
	cancelPreheat()

	group, ctx := errgroup.WithContext(ctx)

	for _, f := range a.feeds {
		feed := f
		group.Go(func() error {
			return feed.Run(ctx)
		})
	}

	group.Go(func() error {
		return a.scanner.Run(ctx)
	})

	group.Go(func() error {
		return a.recorder.Run(ctx)
	})

	checkpoint := scheduler.NewInterval("budget-checkpoint",
		time.Duration(a.cfg.Budget.CheckpointSecs)*time.Second,
		func(context.Context) error {
			a.checkpointOnce()
			return nil
		})
	group.Go(func() error {
		return checkpoint.Run(ctx)
	})

	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return ctx.Err()
	})

	err := group.Wait()
	a.shutdown()
	return err
}

// checkpointOnce 落盘资金桶快照，并同步写入 journal。
func (a *App) checkpointOnce() {
	if err := a.dayCap.Save(a.cfg.Budget.CheckpointPath); err != nil {
		logger.Warnf("[APP] budget checkpoint failed: %v", err)
	}
	if err := a.journal.SaveBuckets(a.dayCap.Buckets(), time.Now().Unix()); err != nil {
		logger.Warnf("[APP] bucket journal failed: %v", err)
	}
}

func (a *App) startupSummary() string {
	symbols := a.registry.Symbols()
	return strings.Join([]string{
		"==== tradesim ====",
		fmt.Sprintf("监控币种数：%d", len(symbols)),
		fmt.Sprintf("- 市场：%s", strings.Join(a.cfg.Scanner.Markets, ", ")),
		fmt.Sprintf("- 扫描周期：%ds（超时回退 %ds）", a.cfg.Scanner.IntervalSeconds, a.cfg.Scanner.BackoffSeconds),
		fmt.Sprintf("- 日内上限：%.0f / 市场", a.cfg.Budget.DefaultCap),
		fmt.Sprintf("- HTTP：%s", a.cfg.App.HTTPAddr),
	}, "\n")
}

func (a *App) shutdown() {
	a.checkpointOnce()
	if err := a.agent.Save(); err != nil {
		logger.Warnf("[APP] agent checkpoint failed: %v", err)
	}
	if err := a.expStore.Close(); err != nil {
		logger.Warnf("[APP] experience store close: %v", err)
	}
	if err := a.journal.Close(); err != nil {
		logger.Warnf("[APP] journal close: %v", err)
	}
	logger.Infof("[APP] shutdown complete")
}
