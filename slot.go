package pool

import (
	"sync/atomic"
	"time"
)

// slotState is the atomic state of a pooled slot.
type slotState int32

const (
	// stateDead means the slot holds no usable object; it either needs
	// (re)allocation or is in the process of being permanently
	// deallocated.
	stateDead slotState = iota
	// stateLiving means the slot holds a usable object and is sitting on
	// the live channel, available to be claimed.
	stateLiving
	// stateClaimed means a claimer currently owns the slot via the
	// ordinary (non-TLR) path.
	stateClaimed
	// stateTLRClaimed means a claimer currently owns the slot via its
	// thread-local reuse cache.
	stateTLRClaimed
)

func (s slotState) String() string {
	switch s {
	case stateDead:
		return "dead"
	case stateLiving:
		return "living"
	case stateClaimed:
		return "claimed"
	case stateTLRClaimed:
		return "tlr_claimed"
	default:
		return "unknown"
	}
}

// cacheLinePad is sized to separate each slot's hot atomic state field
// from the slot's other fields, avoiding false sharing between goroutines
// that touch the state and those that touch the metadata.
const cacheLinePad = 64

// slot is one potential pooled object. Slots are created on demand by the
// allocator and are not kept in any pool-wide collection; the live/dead
// channels carry pointers to them, never copies.
type slot struct {
	// state is the only field mutated by a thread other than the slot's
	// current owner; always accessed via atomics. It is kept first and
	// padded to its own cache line.
	state atomic.Int32
	_pad  [cacheLinePad]byte

	index int // identifier assigned at creation (used in log fields), stable for the slot's lifetime
	pool  *Pool

	// object, poison, createdAt, claimCount, stamp, rng, and
	// explicitExpire are mutated only by whichever thread currently owns
	// the slot (the allocator while DEAD, the claimer while
	// CLAIMED/TLR_CLAIMED) and published to the next owner via the state
	// transition's store-release / channel push.
	object     any
	poison     error
	createdAt  time.Time
	claimCount atomic.Uint64
	stamp      int64
	rng        xorshiftState

	// explicitExpire is set by a holder (via Handle.MarkExpired) while
	// the slot is CLAIMED, and observed by Release. The base design
	// calls this "a non-atomic flag read on release"; Go has no
	// data-race-free non-atomic field shared across goroutines, so an
	// atomic.Bool is the cheapest faithful realisation.
	explicitExpire atomic.Bool
}

func newSlot(p *Pool, index int) *slot {
	s := &slot{
		index: index,
		pool:  p,
	}
	s.state.Store(int32(stateDead))
	return s
}

func (s *slot) loadState() slotState {
	return slotState(s.state.Load())
}

// casState attempts the given transition, returning whether it succeeded.
func (s *slot) casState(from, to slotState) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// storeState unconditionally publishes a new state. Used where the caller
// holds the slot exclusively (the allocator publishing DEAD->LIVING, or the
// claimer retiring or releasing the slot it holds), so no other goroutine
// can be racing the transition.
func (s *slot) storeState(to slotState) {
	s.state.Store(int32(to))
}

// age returns how long it has been since the slot's current object was
// allocated, using the pool's injectable clock.
func (s *slot) age(now time.Time) time.Duration {
	if s.createdAt.IsZero() {
		return 0
	}
	return now.Sub(s.createdAt)
}

// resetForAllocation clears per-claim metadata before a fresh Create or
// Recreate call publishes a new object. Only ever called by the
// allocator, while the slot is DEAD. object/poison are left to
// publishLiving, which sets them from the factory call's own result.
func (s *slot) resetForAllocation(seed uint64) {
	s.claimCount.Store(0)
	s.stamp = 0
	s.rng = seedXorshift(seed)
	s.explicitExpire.Store(false)
}

// publishLiving installs obj (or poison, if err != nil) and transitions
// DEAD -> LIVING via store-release. Only the allocator calls this.
func (s *slot) publishLiving(now time.Time, obj any, err error) {
	s.object = obj
	s.poison = err
	s.createdAt = now
	s.storeState(stateLiving)
}
