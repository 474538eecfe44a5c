package pool

import "context"

// Factory constructs and destroys the objects a Pool manages. The pool
// never introspects the objects it returns; any type is valid. A Create
// call that returns a non-nil error is captured as the slot's poison
// rather than retried inline: the next claimer of that slot receives it as
// a *PoisonedError, and the slot is then reallocated in the background.
type Factory interface {
	// Create builds a brand new object for a freshly allocated slot.
	Create(ctx context.Context) (any, error)
	// Destroy releases any resources held by obj. It is called exactly
	// once per successfully created object, from the allocator
	// goroutine, and never while a pool-internal lock is held.
	Destroy(ctx context.Context, obj any)
}

// Recreator is an optional capability a Factory may implement: rather
// than discarding a slot's previous object on reallocation, Recreate is
// given the chance to refurbish it in place (e.g. resetting a buffer
// instead of reallocating it). If a Factory does not implement
// Recreator, the allocator always falls back to Destroy-then-Create.
type Recreator interface {
	// Recreate attempts to refurbish old into a usable object. old is
	// the previous object held by the slot being reallocated (never nil
	// on the recreate path — the allocator only prefers Recreate over
	// Create/Destroy when the slot already holds a non-poisoned prior
	// object).
	Recreate(ctx context.Context, old any) (any, error)
}
