package pool

import "sync/atomic"

// Handle is the exclusive lease on one pooled object returned by
// Pool.Claim. It must be released exactly once; releasing more than once
// is a programmer error, but the extra calls are no-ops: they neither
// return an error nor panic.
type Handle struct {
	pool     *Pool
	slot     *slot
	released atomic.Bool
}

// Value returns the claimed object. Calling it after Release is a
// programmer error; the returned value is the last object the slot held
// and must not be used.
func (h *Handle) Value() any {
	return h.slot.object
}

// MarkExpired flags the held slot for mandatory retirement regardless of
// what the configured Expiration policy would otherwise decide, giving
// callers an explicit escape hatch (base spec §6: "explicit expiration
// request").
func (h *Handle) MarkExpired() {
	h.slot.explicitExpire.Store(true)
}

// Release returns the object to the pool, or retires it if it was
// explicitly marked expired, the pool is shutting down, or the pool
// manages more slots than its current target size.
// Safe to call from any goroutine, any number of times; only the first
// call has an effect.
func (h *Handle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}

	s := h.slot
	p := h.pool

	if s.explicitExpire.Load() || p.shuttingDown.Load() || p.managedSlots.Load() > p.targetSize.Load() {
		s.storeState(stateDead)
		p.tlr.clearIfCurrent(s)
		p.channels.pushDead(s)
		return
	}

	switch s.loadState() {
	case stateTLRClaimed:
		// Release from the TLR fast path: defend the exit with a CAS, not
		// a plain store, even though in this realisation a thief only
		// ever steals from LIVING and so this CAS cannot observe
		// contention. See DESIGN.md for why the shape is kept anyway.
		for !s.casState(stateTLRClaimed, stateLiving) {
			if s.loadState() != stateTLRClaimed {
				break
			}
		}
	default:
		s.storeState(stateLiving)
		p.channels.pushLive(s)
	}
}
