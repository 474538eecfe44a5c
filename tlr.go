package pool

import (
	"sync"

	"github.com/petermattis/goid"
)

// tlrCache is the per-pool thread-local reuse cache: each successful claim
// records its slot here for the claiming goroutine, so once that slot is
// released the goroutine's next Claim can reuse it without touching the
// live channel at all. Keyed by goroutine id
// (github.com/petermattis/goid), the ecosystem's standard substitute for
// Java's ThreadLocal in exactly this kind of goroutine-confined fast
// path.
//
// Because the cache is owned by a single Pool (not a process-wide
// registry), it needs no lazy-cleanup-on-next-access scheme: it is
// garbage collected along with the pool itself.
type tlrCache struct {
	m sync.Map // goroutine id (int64) -> *slot
}

// get returns the slot the calling goroutine last stashed, if any.
func (c *tlrCache) get() (*slot, bool) {
	v, ok := c.m.Load(goid.Get())
	if !ok {
		return nil, false
	}
	return v.(*slot), true
}

// set stashes s as the calling goroutine's reuse candidate, replacing any
// previous entry.
func (c *tlrCache) set(s *slot) {
	c.m.Store(goid.Get(), s)
}

// clearIfCurrent removes the calling goroutine's cached entry, but only
// if it still points at s (a concurrent Claim on another goroutine may
// already have overwritten it with something else, though in practice a
// goroutine only ever touches its own entry).
func (c *tlrCache) clearIfCurrent(s *slot) {
	id := goid.Get()
	if v, ok := c.m.Load(id); ok && v.(*slot) == s {
		c.m.Delete(id)
	}
}
