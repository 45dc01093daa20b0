package universe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"tradesim/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// fileConfig 映射 universe 配置文件。
type fileConfig struct {
	Symbols []string `mapstructure:"symbols" yaml:"symbols"`
}

// Snapshot 是一次加载得到的追踪标的集合。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Symbols  []string
}

// ChangeListener 在 registry 重载时触发。
type ChangeListener func(Snapshot)

// Registry 管理追踪标的清单，文件变更时原子换入新快照。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// DefaultSymbols seed a fresh universe file when none exists yet.
var DefaultSymbols = []string{
	"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT", "XRPUSDT",
	"ADAUSDT", "DOGEUSDT", "TRXUSDT", "DOTUSDT", "LTCUSDT",
	"LINKUSDT", "ATOMUSDT", "NEARUSDT", "APTUSDT", "ARBUSDT",
	"OPUSDT", "SUIUSDT", "INJUSDT", "SEIUSDT", "TIAUSDT",
}

// NewRegistry reads the universe file (creating a default one if missing)
// and watches it for changes.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("universe registry requires path")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return nil, fmt.Errorf("seed universe file: %w", err)
		}
		logger.Infof("[UNIVERSE] seeded default universe file at %s", path)
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read universe config failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("[UNIVERSE] reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(fileConfig{Symbols: DefaultSymbols})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (r *Registry) reload() error {
	if err := r.v.ReadInConfig(); err != nil {
		return err
	}
	var cfg fileConfig
	if err := r.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("parse universe config: %w", err)
	}
	seen := make(map[string]bool)
	var symbols []string
	for _, sym := range cfg.Symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		symbols = append(symbols, sym)
	}
	if len(symbols) == 0 {
		return fmt.Errorf("universe file %s lists no symbols", r.path)
	}
	sort.Strings(symbols)

	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Symbols:  symbols,
	}
	r.mu.Unlock()
	logger.Infof("[UNIVERSE] loaded %d symbols (version=%d)", len(symbols), r.Current().Version)
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	listeners := append([]ChangeListener(nil), r.listeners...)
	snap := r.snapshot
	r.mu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// OnChange registers a listener invoked after every successful reload.
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Current returns the active snapshot.
func (r *Registry) Current() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := r.snapshot
	snap.Symbols = append([]string(nil), snap.Symbols...)
	return snap
}

// Symbols implements scanner.UniverseProvider.
func (r *Registry) Symbols() []string {
	return r.Current().Symbols
}
