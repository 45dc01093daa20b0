package config

// Config 是 tradesim 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	Market  MarketConfig  `toml:"market"`
	Budget  BudgetConfig  `toml:"budget"`
	Trading TradingConfig `toml:"trading"`
	Scanner ScannerConfig `toml:"scanner"`
	Feed    FeedConfig    `toml:"feed"`
	Learn   LearnConfig   `toml:"learn"`
	Store   StoreConfig   `toml:"store"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

// MarketConfig 控制行情状态仓与 K 线历史。
type MarketConfig struct {
	HistoryCap   int      `toml:"history_cap"`
	Timeframes   []string `toml:"timeframes"`
	UniversePath string   `toml:"universe_path"`
	PreheatBars  int      `toml:"preheat_bars"`
}

// BudgetConfig 控制每日资金桶。
type BudgetConfig struct {
	DefaultCap     float64 `toml:"default_cap"`
	CheckpointPath string  `toml:"checkpoint_path"`
	CheckpointSecs int     `toml:"checkpoint_seconds"`
}

// TradingConfig 控制模拟开平仓参数。
type TradingConfig struct {
	Margin             float64 `toml:"margin"`
	MaxLatencyMs       int64   `toml:"max_latency_ms"`
	ClosedHistory      int     `toml:"closed_history"`
	ScalperMaxHoldSecs int     `toml:"scalper_max_hold_seconds"`
	TrailingOffsetPct  float64 `toml:"trailing_offset_pct"`
	TrailingEnablePct  float64 `toml:"trailing_enable_pct"`
}

type ScannerConfig struct {
	IntervalSeconds  int      `toml:"interval_seconds"`
	BackoffSeconds   int      `toml:"backoff_seconds"`
	Markets          []string `toml:"markets"`
	Timeframe        string   `toml:"timeframe"`
	MinBars          int      `toml:"min_bars"`
	MaxOpensPerCycle int      `toml:"max_opens_per_cycle"`
	TopHot           int      `toml:"top_hot"`
	HighVolPct       float64  `toml:"high_vol_pct"`
	ScalperFraction  float64  `toml:"scalper_fraction"`
	TraderFraction   float64  `toml:"trader_fraction"`
}

type FeedConfig struct {
	SpotURL        string `toml:"spot_url"`
	FuturesURL     string `toml:"futures_url"`
	PingSeconds    int    `toml:"ping_seconds"`
	ReadTimeoutSec int    `toml:"read_timeout_seconds"`
	ReconnectSecs  int    `toml:"reconnect_seconds"`
}

type LearnConfig struct {
	ExperiencePath string `toml:"experience_path"`
	AgentPath      string `toml:"agent_path"`
	CheckpointSecs int    `toml:"checkpoint_seconds"`
}

type StoreConfig struct {
	JournalPath string `toml:"journal_path"`
}
