package universe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistrySeedsDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	r, err := NewRegistry(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.ElementsMatch(t, DefaultSymbols, r.Symbols())
	assert.Equal(t, int64(1), r.Current().Version)
}

func TestRegistryNormalizesSymbols(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	payload := "symbols:\n  - btcusdt\n  - BTCUSDT\n  - ' ethusdt '\n  - ''\n"
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	r, err := NewRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, r.Symbols(), "dedup, trim, uppercase, sorted")
}

func TestRegistryRejectsEmptyUniverse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbols: []\n"), 0o644))
	_, err := NewRegistry(path)
	assert.Error(t, err)
}

func TestSymbolsReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbols: [BTCUSDT, ETHUSDT]\n"), 0o644))
	r, err := NewRegistry(path)
	require.NoError(t, err)

	syms := r.Symbols()
	syms[0] = "mutated"
	assert.Equal(t, "BTCUSDT", r.Symbols()[0])
}
