package pool

import (
	"context"
)

// CompletionHandle lets callers wait for a Shutdown to finish retiring
// every slot without blocking the goroutine that initiated it.
type CompletionHandle struct {
	done <-chan struct{}
}

// Await blocks until shutdown completes or ctx is done, whichever comes
// first. It reports true if shutdown completed before ctx was done.
func (h CompletionHandle) Await(ctx context.Context) bool {
	select {
	case <-h.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Shutdown begins retiring the pool: no further Claim call succeeds, and
// the allocator goroutine drains and destroys every managed slot. It is
// idempotent — calling it more than once returns the same
// CompletionHandle without starting a second drain (base spec §4.6).
func (p *Pool) Shutdown() CompletionHandle {
	p.shutdownOnce.Do(func() {
		p.shuttingDown.Store(true)
		close(p.shutdownCh)
	})
	return CompletionHandle{done: p.completion}
}
