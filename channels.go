package pool

// liveDeadChannels owns the two handoff queues described by the package
// design: a bounded MPMC live channel (allocator -> any claimer) and a
// bounded MPSC dead channel (any claimer/resizer -> the single allocator
// goroutine). Both are realised as native Go channels, capacity maxSize:
// no third-party MPMC/MPSC queue appears anywhere in this codebase's
// dependency set, and a channel is the idiomatic, zero-dependency
// rendezvous for exactly this bounded handoff.
type liveDeadChannels struct {
	live chan *slot
	dead chan *slot
}

func newLiveDeadChannels(capacity int) *liveDeadChannels {
	return &liveDeadChannels{
		live: make(chan *slot, capacity),
		dead: make(chan *slot, capacity),
	}
}

// pushLive publishes a newly-LIVING (or re-published poisoned) slot. It
// must never block in steady state: capacity is sized to maxSize, and a
// slot only ever occupies one of {live, claimer's hands, dead, TLR cache}
// at a time, so the channel can never be asked to hold more than
// maxSize entries.
func (c *liveDeadChannels) pushLive(s *slot) {
	c.live <- s
}

// pushDead enqueues a slot needing (re)allocation. Called by claimers
// (on expiration/poison), the resize controller (on shrink), and
// shutdown (draining); drained only by the allocator goroutine.
func (c *liveDeadChannels) pushDead(s *slot) {
	c.dead <- s
}
