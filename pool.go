package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

const tlrStealPollInterval = 2 * time.Millisecond

// Pool is a bounded, thread-safe object pool. The zero value is not
// usable; construct one with New.
type Pool struct {
	cfg      *config
	channels *liveDeadChannels
	tlr      *tlrCache

	targetSize   atomic.Int64
	managedSlots atomic.Int64
	growSem      *semaphore.Weighted
	nextIndex    atomic.Int64
	resizeCh     chan struct{}

	shuttingDown atomic.Bool
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	completion   chan struct{}
}

// New constructs a Pool and starts its background allocator goroutine.
// WithFactory is required; all other options have defaults (see
// config.go).
func New(opts ...Option) (*Pool, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:        cfg,
		channels:   newLiveDeadChannels(cfg.maxSize),
		tlr:        &tlrCache{},
		growSem:    semaphore.NewWeighted(int64(cfg.maxSize)),
		resizeCh:   make(chan struct{}, 1),
		shutdownCh: make(chan struct{}),
		completion: make(chan struct{}),
	}
	p.targetSize.Store(int64(cfg.size))

	go p.allocatorLoop()

	p.cfg.logger.Info().
		Str("component", cfg.threadName).
		Int("size", cfg.size).
		Int("max_size", cfg.maxSize).
		Msg("pool: started")

	return p, nil
}

// Claim acquires exclusive use of one pooled object, blocking until one
// becomes available, ctx is done, or the pool shuts down. The returned
// Handle must be released exactly once.
func (p *Pool) Claim(ctx context.Context) (*Handle, error) {
	if cached, ok := p.tlr.get(); ok && cached.casState(stateLiving, stateTLRClaimed) {
		if h, err, expired := p.finishClaim(cached, true); !expired {
			return h, err
		}
		// the TLR-cached slot expired on this attempt; fall through to
		// the normal poll/steal loop below rather than assuming it is
		// still a usable fast path within this call.
	}

	for {
		if p.shuttingDown.Load() {
			return nil, ErrShutdown
		}

		s, err := p.pollClaim(ctx)
		if err != nil {
			return nil, err
		}

		h, cerr, expired := p.finishClaim(s, false)
		if !expired {
			return h, cerr
		}
	}
}

// pollClaim waits for a slot to become available via the live channel or,
// failing that, by stealing an idle entry out of another goroutine's TLR
// cache (base spec §4.1/§9: "another thread steals a TLR-cached slot").
// It returns a slot already transitioned to CLAIMED.
func (p *Pool) pollClaim(ctx context.Context) (*slot, error) {
	ticker := time.NewTicker(tlrStealPollInterval)
	defer ticker.Stop()

	for {
		select {
		case s := <-p.channels.live:
			if s.casState(stateLiving, stateClaimed) {
				return s, nil
			}
			// another claimer raced us for this slot; look again.
		case <-ticker.C:
			if s, ok := p.tryStealTLR(); ok {
				return s, nil
			}
		case <-p.shutdownCh:
			return nil, ErrShutdown
		case <-ctx.Done():
			if p.shuttingDown.Load() {
				return nil, ErrShutdown
			}
			return nil, classifyCtxErr(ctx)
		}
	}
}

// tryStealTLR scans the TLR cache for a slot some goroutine has stashed
// in the LIVING state (released, not yet reclaimed) and attempts to CAS
// it directly into CLAIMED, bypassing the live channel entirely. This is
// always race-safe (the CAS guards exclusivity); see DESIGN.md for why
// the release path still defends against this with a CAS rather than a
// plain store, even though this realization can never observe that CAS
// fail.
func (p *Pool) tryStealTLR() (*slot, bool) {
	var stolen *slot
	var stolenKey any
	p.tlr.m.Range(func(key, value any) bool {
		s := value.(*slot)
		if s.casState(stateLiving, stateClaimed) {
			stolen = s
			stolenKey = key
			return false
		}
		return true
	})
	if stolen == nil {
		return nil, false
	}
	p.tlr.m.CompareAndDelete(stolenKey, stolen)
	return stolen, true
}

// finishClaim runs the poison/expiration/shutdown checks common to both
// the TLR fast path and the normal live-channel path (base spec §4.2
// steps 4-7). expired is true when the caller should loop and try again
// (the slot was expired, not poisoned or shutdown-terminal).
func (p *Pool) finishClaim(s *slot, fromTLR bool) (h *Handle, err error, expired bool) {
	if s.poison != nil {
		cause := s.poison
		s.poison = nil
		s.storeState(stateDead)
		p.tlr.clearIfCurrent(s)
		p.channels.pushDead(s)
		p.cfg.logger.Warn().Int("slot", s.index).Bool("tlr", fromTLR).Err(cause).Msg("claim: poisoned slot surfaced")
		return nil, &PoisonedError{Cause: cause}, false
	}

	now := p.cfg.clock()
	if p.cfg.expiration.HasExpired(slotInfo{s: s, now: now}) {
		s.storeState(stateDead)
		p.tlr.clearIfCurrent(s)
		p.channels.pushDead(s)
		return nil, nil, true
	}

	if p.shuttingDown.Load() {
		s.storeState(stateDead)
		p.tlr.clearIfCurrent(s)
		p.channels.pushDead(s)
		return nil, ErrShutdown, false
	}

	s.claimCount.Add(1)
	p.tlr.set(s)
	return &Handle{pool: p, slot: s}, nil, false
}

func classifyCtxErr(ctx context.Context) error {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ErrTimeout
	default:
		return ErrInterrupted
	}
}

// Stats is a point-in-time snapshot of pool occupancy. It is an
// introspection accessor, not a metrics sink (metrics sinks are an
// explicit non-goal; a plain snapshot getter is not one).
type Stats struct {
	Target  int
	Managed int
	Live    int
	Dead    int
	MaxSize int
}

// Stats returns a snapshot of the pool's current occupancy. Individual
// fields may be momentarily inconsistent with one another under
// concurrent claim/release/resize activity; this is a diagnostic
// accessor, not a transactional read.
func (p *Pool) Stats() Stats {
	return Stats{
		Target:  int(p.targetSize.Load()),
		Managed: int(p.managedSlots.Load()),
		Live:    len(p.channels.live),
		Dead:    len(p.channels.dead),
		MaxSize: p.cfg.maxSize,
	}
}
