package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads and validates the YAML config at path. Missing fields fall back
// to defaults so a minimal file stays usable.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":9981"
	}
	if c.Market.HistoryCap <= 0 {
		c.Market.HistoryCap = 500
	}
	if len(c.Market.Timeframes) == 0 {
		c.Market.Timeframes = []string{"1m"}
	}
	if c.Market.UniversePath == "" {
		c.Market.UniversePath = "configs/universe.yaml"
	}
	if c.Market.PreheatBars <= 0 {
		c.Market.PreheatBars = 120
	}
	if c.Budget.DefaultCap <= 0 {
		c.Budget.DefaultCap = 150
	}
	if c.Budget.CheckpointPath == "" {
		c.Budget.CheckpointPath = "data/daycap.json"
	}
	if c.Budget.CheckpointSecs <= 0 {
		c.Budget.CheckpointSecs = 30
	}
	if c.Trading.Margin <= 0 {
		c.Trading.Margin = 15
	}
	if c.Trading.MaxLatencyMs <= 0 {
		c.Trading.MaxLatencyMs = 5000
	}
	if c.Trading.ClosedHistory <= 0 {
		c.Trading.ClosedHistory = 50
	}
	if c.Trading.ScalperMaxHoldSecs <= 0 {
		c.Trading.ScalperMaxHoldSecs = 300
	}
	if c.Trading.TrailingOffsetPct <= 0 {
		c.Trading.TrailingOffsetPct = 1.0
	}
	if c.Trading.TrailingEnablePct <= 0 {
		c.Trading.TrailingEnablePct = 2.0
	}
	if c.Scanner.IntervalSeconds <= 0 {
		c.Scanner.IntervalSeconds = 10
	}
	if c.Scanner.BackoffSeconds <= 0 {
		c.Scanner.BackoffSeconds = 3
	}
	if len(c.Scanner.Markets) == 0 {
		c.Scanner.Markets = []string{"spot", "futures"}
	}
	if c.Scanner.Timeframe == "" {
		c.Scanner.Timeframe = "1m"
	}
	if c.Scanner.MinBars <= 0 {
		c.Scanner.MinBars = 21
	}
	if c.Scanner.MaxOpensPerCycle <= 0 {
		c.Scanner.MaxOpensPerCycle = 3
	}
	if c.Scanner.TopHot <= 0 {
		c.Scanner.TopHot = 10
	}
	if c.Scanner.HighVolPct <= 0 {
		c.Scanner.HighVolPct = 0.5
	}
	if c.Scanner.ScalperFraction <= 0 {
		c.Scanner.ScalperFraction = 0.4
	}
	if c.Scanner.TraderFraction <= 0 {
		c.Scanner.TraderFraction = 0.6
	}
	if c.Feed.SpotURL == "" {
		c.Feed.SpotURL = "wss://stream.bybit.com/v5/public/spot"
	}
	if c.Feed.FuturesURL == "" {
		c.Feed.FuturesURL = "wss://stream.bybit.com/v5/public/linear"
	}
	if c.Feed.PingSeconds <= 0 {
		c.Feed.PingSeconds = 15
	}
	if c.Feed.ReadTimeoutSec <= 0 {
		c.Feed.ReadTimeoutSec = 45
	}
	if c.Feed.ReconnectSecs <= 0 {
		c.Feed.ReconnectSecs = 3
	}
	if c.Learn.ExperiencePath == "" {
		c.Learn.ExperiencePath = "data/experience.db"
	}
	if c.Learn.AgentPath == "" {
		c.Learn.AgentPath = "data/agent.json"
	}
	if c.Learn.CheckpointSecs <= 0 {
		c.Learn.CheckpointSecs = 15
	}
	if c.Store.JournalPath == "" {
		c.Store.JournalPath = "data/journal.db"
	}
}

func validate(c *Config) error {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.log_level invalid: %s", c.App.LogLevel)
	}
	for _, mkt := range c.Scanner.Markets {
		if mkt != "spot" && mkt != "futures" {
			return fmt.Errorf("scanner.markets contains unknown market: %s", mkt)
		}
	}
	if c.Scanner.ScalperFraction+c.Scanner.TraderFraction > 1.0+1e-9 {
		return fmt.Errorf("scanner sub-budget fractions exceed 1.0 (scalper=%.2f trader=%.2f)",
			c.Scanner.ScalperFraction, c.Scanner.TraderFraction)
	}
	return nil
}
