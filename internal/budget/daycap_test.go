package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanSpendBoundary(t *testing.T) {
	d := NewDayCap(WithDefaultCap(150))

	assert.True(t, d.CanSpend("spot", 150), "exact fit must be allowed")
	assert.False(t, d.CanSpend("spot", 150.01))

	d.RegisterSpend("spot", 100)
	assert.True(t, d.CanSpend("spot", 50))
	assert.False(t, d.CanSpend("spot", 50.01))
	assert.Equal(t, 50.0, d.Remaining("spot"))
}

func TestSpendAndReleaseAreInverse(t *testing.T) {
	d := NewDayCap(WithDefaultCap(150))

	d.RegisterSpend("spot", 15)
	d.RegisterSpend("spot", 30)
	d.Release("spot", 30)
	d.Release("spot", 15)

	b := d.EnsureBucket("spot")
	assert.Equal(t, 0.0, b.Used)
	assert.Equal(t, 150.0, b.Cap)
}

func TestReleaseClampsAtZero(t *testing.T) {
	d := NewDayCap(WithDefaultCap(150))
	d.RegisterSpend("spot", 10)
	d.Release("spot", 999)
	assert.Equal(t, 0.0, d.EnsureBucket("spot").Used)
}

func TestAdjustCapOnProfit(t *testing.T) {
	d := NewDayCap(WithDefaultCap(150))
	d.RegisterSpend("spot", 20)

	d.AdjustCapOnProfit("spot", 10)
	b := d.EnsureBucket("spot")
	assert.InDelta(t, 155.0, b.Cap, 1e-9)
	assert.InDelta(t, 17.5, b.Used, 1e-9)

	// losses never shrink the cap or usage
	d.AdjustCapOnProfit("spot", -50)
	again := d.EnsureBucket("spot")
	assert.Equal(t, b.Cap, again.Cap)
	assert.Equal(t, b.Used, again.Used)
}

func TestRolloverResetsUsedKeepsCap(t *testing.T) {
	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := NewDayCap(WithDefaultCap(150), WithNowFunc(func() time.Time { return day }))

	d.RegisterSpend("spot", 40)
	d.AdjustCapOnProfit("spot", 10) // cap 155, used 37.5

	day = day.Add(24 * time.Hour)
	b := d.EnsureBucket("spot")
	assert.Equal(t, "2026-03-02", b.Date)
	assert.Equal(t, 0.0, b.Used, "rollover clears usage")
	assert.InDelta(t, 155.0, b.Cap, 1e-9, "rollover keeps the grown cap")
}

func TestBucketsReturnsCopies(t *testing.T) {
	d := NewDayCap(WithDefaultCap(150))
	d.RegisterSpend("spot", 5)
	d.RegisterSpend("futures", 7)

	buckets := d.Buckets()
	require.Len(t, buckets, 2)
	mutated := buckets["spot"]
	mutated.Used = 999
	buckets["spot"] = mutated

	assert.Equal(t, 5.0, d.EnsureBucket("spot").Used)
}
