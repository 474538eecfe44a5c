package pool

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Claim. Callers should compare with
// errors.Is.
var (
	// ErrTimeout is returned when Claim's context deadline is reached
	// before a slot becomes available.
	ErrTimeout = errors.New("pool: claim timed out")

	// ErrShutdown is returned by Claim once the pool has begun shutting
	// down and no currently-claimed slot can satisfy the request.
	ErrShutdown = errors.New("pool: pool is shut down")

	// ErrInterrupted is returned when Claim's wait is interrupted by its
	// context being cancelled for a reason other than deadline expiry.
	// (CompletionHandle.Await reports a done context by returning false.)
	ErrInterrupted = errors.New("pool: wait was interrupted")
)

// PoisonedError is returned by Claim when the slot it obtained carries a
// captured failure from a prior factory call. The caller should retry;
// the pool proactively reallocates poisoned slots in the background.
type PoisonedError struct {
	// Cause is the error captured from the factory's Create or Recreate
	// call that produced the poisoned slot.
	Cause error
}

func (e *PoisonedError) Error() string {
	return fmt.Sprintf("pool: claimed slot is poisoned: %v", e.Cause)
}

func (e *PoisonedError) Unwrap() error {
	return e.Cause
}

// StructuralError indicates programmer misuse. New returns it for an
// invalid pool configuration and SetTargetSize for a target outside
// [1, MaxSize]. Handle.Release does not report misuse: a second Release
// of the same handle is a silent no-op. It is never recovered from
// automatically; callers should treat it as a bug.
type StructuralError struct {
	Reason string
	Err    error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pool: structural error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("pool: structural error: %s", e.Reason)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func newStructuralError(reason string, err error) *StructuralError {
	return &StructuralError{Reason: reason, Err: err}
}
