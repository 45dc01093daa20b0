package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  env: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9981", cfg.App.HTTPAddr)
	assert.Equal(t, 500, cfg.Market.HistoryCap)
	assert.Equal(t, []string{"1m"}, cfg.Market.Timeframes)
	assert.Equal(t, 150.0, cfg.Budget.DefaultCap)
	assert.Equal(t, 15.0, cfg.Trading.Margin)
	assert.Equal(t, int64(5000), cfg.Trading.MaxLatencyMs)
	assert.Equal(t, 50, cfg.Trading.ClosedHistory)
	assert.Equal(t, 10, cfg.Scanner.IntervalSeconds)
	assert.Equal(t, []string{"spot", "futures"}, cfg.Scanner.Markets)
	assert.InDelta(t, 0.4, cfg.Scanner.ScalperFraction, 1e-9)
	assert.InDelta(t, 0.6, cfg.Scanner.TraderFraction, 1e-9)
}

func TestLoadOverrides(t *testing.T) {
	body := `
app:
  log_level: debug
budget:
  default_cap: 300
scanner:
  markets: ["spot"]
  interval_seconds: 5
trading:
  margin: 25
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 300.0, cfg.Budget.DefaultCap)
	assert.Equal(t, []string{"spot"}, cfg.Scanner.Markets)
	assert.Equal(t, 5, cfg.Scanner.IntervalSeconds)
	assert.Equal(t, 25.0, cfg.Trading.Margin)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	_, err := Load(writeConfig(t, "app:\n  log_level: loud\n"))
	assert.Error(t, err)
}

func TestLoadRejectsUnknownMarket(t *testing.T) {
	_, err := Load(writeConfig(t, "scanner:\n  markets: [margin]\n"))
	assert.Error(t, err)
}

func TestLoadRejectsOvercommittedFractions(t *testing.T) {
	_, err := Load(writeConfig(t, "scanner:\n  scalper_fraction: 0.7\n  trader_fraction: 0.7\n"))
	assert.Error(t, err)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
