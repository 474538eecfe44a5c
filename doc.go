// Package pool implements a generic, bounded, thread-safe object pool for
// reusable, expensive-to-construct resources (database connections,
// sockets, large buffers).
//
// Client goroutines Claim an object, use it, and Release it; the pool caps
// concurrent in-use objects at a configured target size and amortises
// construction across claims. A dedicated background allocator goroutine
// performs all allocation, deallocation, and reallocation off the hot
// path, so Claim never pays construction cost directly.
//
// # Claim/release
//
// A claimed object is wrapped in a *Handle. The handle must be released
// exactly once:
//
//	h, err := p.Claim(ctx)
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//	use(h.Value())
//
// # Expiration
//
// Slots are retired according to an Expiration policy, evaluated on every
// claim attempt. The default policy, TimeSpread, de-synchronises
// end-of-life across the fleet by picking a random threshold per slot, to
// avoid correlated reallocation storms.
//
// # Shutdown
//
// Shutdown is one-way and idempotent. It returns a CompletionHandle whose
// Await reports whether every slot has been destroyed and the allocator
// has exited.
package pool
