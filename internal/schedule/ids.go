package schedule

import (
	"sync/atomic"
	"time"
)

// idGenerator hands out unique task ids. It is seeded from wall-clock
// milliseconds so ids keep increasing across process runs, then bumped
// atomically so rapid successive creates cannot collide the way raw
// timestamps can.
type idGenerator struct {
	last atomic.Int64
}

func newIDGenerator() *idGenerator {
	g := &idGenerator{}
	g.last.Store(time.Now().UnixMilli())
	return g
}

// Next returns a fresh id strictly greater than any handed out or observed.
func (g *idGenerator) Next() int64 {
	return g.last.Add(1)
}

// Observe raises the floor past an existing id, e.g. one loaded from the
// cache or pushed by the remote.
func (g *idGenerator) Observe(id int64) {
	for {
		cur := g.last.Load()
		if id <= cur || g.last.CompareAndSwap(cur, id) {
			return
		}
	}
}
