package pool

import "time"

// SlotInfo exposes the metadata an Expiration policy may read or write
// about the slot currently being evaluated. It is only ever called from
// the goroutine that currently holds the slot claimed, so implementations
// need no synchronisation of their own.
type SlotInfo interface {
	// Age is how long ago the slot's current object was allocated.
	Age() time.Duration
	// ClaimCount is the number of times this slot has been successfully
	// claimed since its current object was allocated.
	ClaimCount() uint64
	// Stamp is scratch storage for expiration bookkeeping (e.g. a
	// precomputed random threshold). It keeps its value across claims and
	// is reset to zero whenever the slot receives a new object.
	Stamp() *int64
	// Rand returns the slot's dedicated PRNG, so a policy can jitter
	// thresholds without contending on a shared random source.
	Rand() Rand
}

// Rand is the minimal PRNG surface an Expiration policy needs.
type Rand interface {
	// Float64 returns a pseudo-random value in [0, 1).
	Float64() float64
}

// Expiration decides whether a slot's current object should be retired.
// It is called on every claim attempt (after poison is checked), so
// implementations must be cheap: no I/O, no blocking.
//
// Expiration-predicate panics are not recovered by the pool: the
// predicate is user code on the hot path, and masking a panic there would
// hide a programming error.
type Expiration interface {
	HasExpired(info SlotInfo) bool
}

// ExpirationFunc adapts a plain function to the Expiration interface.
type ExpirationFunc func(info SlotInfo) bool

func (f ExpirationFunc) HasExpired(info SlotInfo) bool { return f(info) }

// slotInfo is the concrete SlotInfo backing a given slot, valid only for
// the duration of the claim attempt that created it.
type slotInfo struct {
	s   *slot
	now time.Time
}

func (si slotInfo) Age() time.Duration    { return si.s.age(si.now) }
func (si slotInfo) ClaimCount() uint64    { return si.s.claimCount.Load() }
func (si slotInfo) Stamp() *int64         { return &si.s.stamp }
func (si slotInfo) Rand() Rand            { return &si.s.rng }

// TimeSpread implements the default expiration policy described in the
// package spec: the first time a slot is evaluated, a threshold is picked
// uniformly in [Lower, Upper) using the slot's own PRNG and cached in its
// stamp; subsequent evaluations compare age against that cached
// threshold. This deliberately de-synchronises end-of-life across the
// fleet, so a batch of slots allocated together doesn't expire together.
type TimeSpread struct {
	Lower, Upper time.Duration
}

// NewTimeSpread returns a time-spread expiration policy over the given
// bounds, swapping them if upper is less than lower. The pool's default
// policy, used when no Expiration option is supplied, is
// NewTimeSpread(8*time.Minute, 10*time.Minute).
func NewTimeSpread(lower, upper time.Duration) TimeSpread {
	if upper < lower {
		lower, upper = upper, lower
	}
	return TimeSpread{Lower: lower, Upper: upper}
}

func (t TimeSpread) HasExpired(info SlotInfo) bool {
	stamp := info.Stamp()
	if *stamp == 0 {
		spread := t.Upper - t.Lower
		threshold := t.Lower
		if spread > 0 {
			threshold += time.Duration(info.Rand().Float64() * float64(spread))
		}
		*stamp = int64(threshold)
	}
	return info.Age() >= time.Duration(*stamp)
}
