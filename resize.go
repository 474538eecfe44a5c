package pool

import "fmt"

// SetTargetSize adjusts how many slots the pool tries to keep allocated.
// Growth happens incrementally on the allocator goroutine. On a shrink,
// SetTargetSize itself moves excess idle slots from the live channel to
// the dead channel (see shrinkTo), and the allocator destroys them.
// SetTargetSize never calls into Factory directly and does not wait for
// the allocator. n outside [1, maxSize] is a structural failure, not a
// clamped value.
func (p *Pool) SetTargetSize(n int) error {
	if n < 1 {
		return newStructuralError("target size must be >= 1", fmt.Errorf("got %d", n))
	}
	if n > p.cfg.maxSize {
		return newStructuralError("target size must be <= max size", fmt.Errorf("got %d, max %d", n, p.cfg.maxSize))
	}
	p.targetSize.Store(int64(n))

	if int64(n) < p.managedSlots.Load() {
		p.shrinkTo(n)
	}

	select {
	case p.resizeCh <- struct{}{}:
	default:
		// a wake-up is already pending; the allocator will see the new
		// target size when it next checks, no need to queue another.
	}
	return nil
}

// shrinkTo retires excess idle slots immediately by pulling them off the
// live channel and routing them through the dead channel for the
// allocator to destroy, rather than waiting for their next claim/expire
// cycle. Slots currently CLAIMED or cached in a TLR map are left alone;
// they fall below target naturally the next time they are released or
// expired, per handleDeadSlot's shrink check. The excess count is fixed
// up front: managedSlots itself only drops once the allocator actually
// destroys a slot, so looping on its live value here would over-shrink.
func (p *Pool) shrinkTo(n int) {
	excess := p.managedSlots.Load() - int64(n)
	for ; excess > 0; excess-- {
		select {
		case s := <-p.channels.live:
			if s.casState(stateLiving, stateDead) {
				p.channels.pushDead(s)
			} else {
				p.channels.pushLive(s)
			}
		default:
			return
		}
	}
}

// CurrentTargetSize returns the size SetTargetSize (or WithSize) last
// established.
func (p *Pool) CurrentTargetSize() int {
	return int(p.targetSize.Load())
}
