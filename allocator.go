package pool

import (
	"context"
	"time"
)

// allocatorLoop is the pool's single dedicated background goroutine. All
// Factory.Create, Factory.Destroy, and Factory.Recreate calls happen
// here and nowhere else, so a factory implementation never needs to be
// safe for concurrent use against itself (base spec §4.3: "the
// Allocator is the only goroutine that ever calls into Factory").
func (p *Pool) allocatorLoop() {
	defer close(p.completion)

	p.maybeGrow()

	for {
		select {
		case s := <-p.channels.dead:
			p.handleDeadSlot(s)
		case <-p.resizeCh:
			// just a wake-up; maybeGrow below does the actual work, and
			// shrinking is handled synchronously by SetTargetSize/shrinkTo.
		case <-p.shutdownCh:
			p.drainForShutdown()
			return
		}

		p.maybeGrow()
	}
}

// handleDeadSlot services one slot pulled off the dead channel: either
// permanently destroying it (pool shrinking, or shutting down) or
// reallocating it a fresh object and publishing it back to LIVING.
func (p *Pool) handleDeadSlot(s *slot) {
	ctx := context.Background()

	if p.shuttingDown.Load() || p.managedSlots.Load() > p.targetSize.Load() {
		p.destroySlot(ctx, s)
		return
	}

	p.reallocate(ctx, s)
}

// reallocate gives a DEAD slot a new object, preferring Recreate (if the
// configured factory supports it) over Destroy-then-Create, then
// publishes the slot as LIVING.
func (p *Pool) reallocate(ctx context.Context, s *slot) {
	seed := p.nextIndex.Add(1)
	s.resetForAllocation(uint64(seed) ^ uint64(time.Now().UnixNano()))

	var obj any
	var err error
	if r, ok := p.cfg.factory.(Recreator); ok && s.object != nil {
		obj, err = r.Recreate(ctx, s.object)
	} else {
		if s.object != nil {
			p.cfg.factory.Destroy(ctx, s.object)
		}
		obj, err = p.cfg.factory.Create(ctx)
	}

	if err != nil {
		p.cfg.logger.Warn().Str("component", p.cfg.threadName).Int("slot", s.index).Err(err).Msg("allocator: factory call failed, poisoning slot")
		// Captured, not rethrown here: push the poisoned slot onto the
		// live channel so the next claimer surfaces the failure and the
		// poison-detection path in finishClaim recycles it back onto the
		// dead channel, giving proactive retry without blocking this
		// goroutine on a transient factory failure.
		s.publishLiving(p.cfg.clock(), nil, err)
		p.channels.pushLive(s)
		return
	}

	s.publishLiving(p.cfg.clock(), obj, nil)
	p.channels.pushLive(s)
}

// destroySlot permanently retires a slot: calls Factory.Destroy (if it
// ever held an object) and releases its arena-capacity permit. The slot
// itself is left for garbage collection; Go's collector handles any
// reference cycle through Pool/Handle natively, so no spare-slot arena
// bookkeeping is needed here (see DESIGN.md).
func (p *Pool) destroySlot(ctx context.Context, s *slot) {
	if s.object != nil {
		p.cfg.factory.Destroy(ctx, s.object)
	}
	s.object = nil
	s.poison = nil
	p.managedSlots.Add(-1)
	p.growSem.Release(1)
}

// maybeGrow allocates new slots until managedSlots catches up to
// targetSize, bounded by the growSem capacity permit (which in turn
// enforces maxSize). Called once at startup and after every
// dead-channel/resize wake-up on the allocator goroutine; SetTargetSize
// only nudges resizeCh, it never calls this directly, since growth must
// stay on the single allocator goroutine.
func (p *Pool) maybeGrow() {
	for {
		if p.shuttingDown.Load() {
			return
		}
		target := p.targetSize.Load()
		if p.managedSlots.Load() >= target {
			return
		}
		if !p.growSem.TryAcquire(1) {
			return
		}
		p.growOne()
	}
}

// growOne allocates one brand-new slot and feeds it through the normal
// reallocation path to populate it with a fresh object.
func (p *Pool) growOne() {
	idx := int(p.nextIndex.Add(1))
	s := newSlot(p, idx)
	p.managedSlots.Add(1)
	p.reallocate(context.Background(), s)
}

// drainForShutdown retires every slot the pool currently manages: it
// pulls from both channels and blocks on Factory.Destroy for each until
// managedSlots reaches zero, then signals completion.
func (p *Pool) drainForShutdown() {
	ctx := context.Background()
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for p.managedSlots.Load() > 0 {
		select {
		case s := <-p.channels.dead:
			p.destroySlot(ctx, s)
		case s := <-p.channels.live:
			if s.casState(stateLiving, stateDead) {
				p.destroySlot(ctx, s)
			}
		case <-ticker.C:
			// A slot may currently be CLAIMED or cached in a goroutine's
			// TLR map; Release will push it onto live or dead once its
			// holder is done, at which point one of the two cases above
			// picks it up. Re-check managedSlots periodically rather than
			// busy-spinning.
			p.reclaimTLRForShutdown()
		}
	}
}

// reclaimTLRForShutdown sweeps the TLR cache for slots idling in LIVING
// state so shutdown does not wait indefinitely for their owning
// goroutine to make another Claim call.
func (p *Pool) reclaimTLRForShutdown() {
	ctx := context.Background()
	var toDestroy []*slot
	p.tlr.m.Range(func(key, value any) bool {
		s := value.(*slot)
		if s.casState(stateLiving, stateDead) {
			toDestroy = append(toDestroy, s)
			p.tlr.m.Delete(key)
		}
		return true
	})
	for _, s := range toDestroy {
		p.destroySlot(ctx, s)
	}
}
