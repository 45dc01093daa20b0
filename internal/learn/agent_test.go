package learn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsiderAccumulatesXP(t *testing.T) {
	a := NewAgent("")

	a.Consider(30)
	level, xp, next, ewm := a.Stats()
	assert.Equal(t, 1, level)
	assert.InDelta(t, 30.0, xp, 1e-9)
	assert.Equal(t, 100.0, next)
	assert.InDelta(t, 3.0, ewm, 1e-9)

	// losses still earn a token amount
	a.Consider(-5)
	_, xp, _, _ = a.Stats()
	assert.InDelta(t, 30.1, xp, 1e-9)
}

func TestConsiderLevelsUp(t *testing.T) {
	a := NewAgent("")
	a.Consider(120)
	level, xp, next, _ := a.Stats()
	assert.Equal(t, 2, level)
	assert.InDelta(t, 20.0, xp, 1e-9)
	assert.Equal(t, 200.0, next)
}

func TestAgentCheckpointRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.json")
	a := NewAgent(path)
	a.Consider(42)
	require.NoError(t, a.Save())

	restored := NewAgent(path)
	require.NoError(t, restored.Load())
	level, xp, _, ewm := restored.Stats()
	assert.Equal(t, 1, level)
	assert.InDelta(t, 42.0, xp, 1e-9)
	assert.InDelta(t, 4.2, ewm, 1e-9)
}

func TestAgentLoadMissingFileIsCleanStart(t *testing.T) {
	a := NewAgent(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, a.Load())
	level, _, _, _ := a.Stats()
	assert.Equal(t, 1, level)
}

func TestAgentLoadRejectsCorruptCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"level":0,"xp":-3}`), 0o644))
	assert.Error(t, NewAgent(path).Load())
}
