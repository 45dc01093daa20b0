package market

// candleRing is a fixed-capacity ring of closed candles, oldest evicted first.
type candleRing struct {
	buf   []Candle
	start int
	size  int
}

func newCandleRing(capacity int) *candleRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &candleRing{buf: make([]Candle, capacity)}
}

func (r *candleRing) push(c Candle) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = c
		r.size++
		return
	}
	r.buf[r.start] = c
	r.start = (r.start + 1) % len(r.buf)
}

func (r *candleRing) last() (Candle, bool) {
	if r.size == 0 {
		return Candle{}, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

// snapshot returns candles oldest→newest as a fresh slice.
func (r *candleRing) snapshot() []Candle {
	out := make([]Candle, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}
