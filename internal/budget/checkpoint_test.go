package budget

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daycap.json")

	d := NewDayCap(WithDefaultCap(150))
	d.RegisterSpend("spot", 42)
	d.AdjustCapOnProfit("spot", 8)
	require.NoError(t, d.Save(path))

	restored := NewDayCap(WithDefaultCap(150))
	require.NoError(t, restored.Load(path))

	want := d.EnsureBucket("spot")
	got := restored.EnsureBucket("spot")
	assert.Equal(t, want.Used, got.Used)
	assert.Equal(t, want.Cap, got.Cap)
}

func TestLoadMissingFileIsCleanStart(t *testing.T) {
	d := NewDayCap()
	require.NoError(t, d.Load(filepath.Join(t.TempDir(), "absent.json")))
	assert.Equal(t, DefaultDayCap, d.EnsureBucket("spot").Cap)
}

func TestLoadDropsCorruptBuckets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daycap.json")
	payload := `{"buckets":{
		"spot":    {"date":"2026-03-01","used":-5,"cap":150},
		"futures": {"date":"2026-03-01","used":10,"cap":0},
		"linear":  {"date":"2026-03-01","used":10,"cap":150}
	}}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	d := NewDayCap(WithDefaultCap(150), WithNowFunc(func() time.Time { return day }))
	require.NoError(t, d.Load(path))

	assert.Equal(t, 0.0, d.EnsureBucket("spot").Used, "negative usage dropped")
	assert.Equal(t, 150.0, d.EnsureBucket("futures").Cap, "zero cap dropped")
	assert.Equal(t, 10.0, d.EnsureBucket("linear").Used, "valid bucket kept")
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daycap.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	assert.Error(t, NewDayCap().Load(path))
}
