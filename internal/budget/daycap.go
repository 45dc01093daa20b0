package budget

import (
	"sync"
	"time"
)

// DefaultDayCap 是新建桶的默认日内资金上限。
const DefaultDayCap = 150.0

// Bucket 是单个市场/策略的当日资金桶。
type Bucket struct {
	Date string  `json:"date"`
	Used float64 `json:"used"`
	Cap  float64 `json:"cap"`
}

// DayCap is the per-market daily spending ledger. Rollover to a new date
// resets Used to zero but carries the (possibly profit-adjusted) Cap forward.
type DayCap struct {
	mu         sync.Mutex
	defaultCap float64
	nowFn      func() time.Time
	buckets    map[string]*Bucket
}

type Option func(*DayCap)

func WithDefaultCap(cap float64) Option {
	return func(d *DayCap) {
		if cap > 0 {
			d.defaultCap = cap
		}
	}
}

func WithNowFunc(fn func() time.Time) Option {
	return func(d *DayCap) {
		if fn != nil {
			d.nowFn = fn
		}
	}
}

func NewDayCap(opts ...Option) *DayCap {
	d := &DayCap{
		defaultCap: DefaultDayCap,
		nowFn:      time.Now,
		buckets:    make(map[string]*Bucket),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

func (d *DayCap) todayKey() string {
	return d.nowFn().UTC().Format("2006-01-02")
}

// ensureLocked creates or rolls the bucket for today. Caller holds d.mu.
func (d *DayCap) ensureLocked(market string) *Bucket {
	b, ok := d.buckets[market]
	if !ok {
		b = &Bucket{Date: d.todayKey(), Cap: d.defaultCap}
		d.buckets[market] = b
		return b
	}
	if today := d.todayKey(); b.Date != today {
		b.Date = today
		b.Used = 0
		if b.Cap <= 0 {
			b.Cap = d.defaultCap
		}
	}
	return b
}

// EnsureBucket returns a copy of today's bucket for the market, creating or
// rolling it as needed.
func (d *DayCap) EnsureBucket(market string) Bucket {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.ensureLocked(market)
}

// CanSpend reports whether amount still fits under today's cap.
func (d *DayCap) CanSpend(market string, amount float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.ensureLocked(market)
	return b.Used+amount <= b.Cap
}

// RegisterSpend adds amount to today's usage. Never decreases on its own.
func (d *DayCap) RegisterSpend(market string, amount float64) {
	if amount <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.ensureLocked(market)
	b.Used += amount
}

// Release returns margin to the budget on position close, clamped at zero.
func (d *DayCap) Release(market string, amount float64) {
	if amount <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.ensureLocked(market)
	b.Used -= amount
	if b.Used < 0 {
		b.Used = 0
	}
}

// AdjustCapOnProfit grows the cap by half the profit and credits a quarter of
// it back against usage. Losses leave the bucket untouched.
func (d *DayCap) AdjustCapOnProfit(market string, profit float64) {
	if profit <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.ensureLocked(market)
	b.Cap += 0.5 * profit
	b.Used -= 0.25 * profit
	if b.Used < 0 {
		b.Used = 0
	}
}

// Remaining reports cap − used for today, floored at zero.
func (d *DayCap) Remaining(market string) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.ensureLocked(market)
	rem := b.Cap - b.Used
	if rem < 0 {
		return 0
	}
	return rem
}

// Buckets returns a copy of all buckets, rolled to today.
func (d *DayCap) Buckets() map[string]Bucket {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]Bucket, len(d.buckets))
	for market := range d.buckets {
		out[market] = *d.ensureLocked(market)
	}
	return out
}
