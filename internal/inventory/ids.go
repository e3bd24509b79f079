package inventory

import (
	"sync/atomic"
	"time"
)

// IDGen hands out strictly increasing ids seeded from wall-clock
// milliseconds, so ids stay unique under bursts within one millisecond.
type IDGen struct {
	last atomic.Int64
	now  func() time.Time
}

func NewIDGen(now func() time.Time) *IDGen {
	if now == nil {
		now = time.Now
	}
	return &IDGen{now: now}
}

func (g *IDGen) Next() int64 {
	for {
		last := g.last.Load()
		next := g.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if g.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
