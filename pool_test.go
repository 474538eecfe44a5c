package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/exp/slices"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestScenarioS1SingleAllocationTwoClaimers: size=1, two goroutines each
// claim, use for 100ms, release; both must succeed, and only one
// allocation is observed.
func TestScenarioS1SingleAllocationTwoClaimers(t *testing.T) {
	factory := &stubFactory{}
	p, err := New(WithSize(1), WithMaxSize(4), WithFactory(factory))
	require.NoError(t, err)
	defer p.Shutdown()

	var wg sync.WaitGroup
	wg.Add(2)
	start := time.Now()
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			h, err := p.Claim(ctx)
			require.NoError(t, err)
			time.Sleep(100 * time.Millisecond)
			h.Release()
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	assert.Equal(t, 1, factory.CreateCalls())
	assert.Less(t, elapsed, 400*time.Millisecond)
}

// TestScenarioS2PoisonSurfacesThenRecovers: size=3, factory fails the
// first 2 Create calls with a captured error, then succeeds. A single
// claim/release loop observes Poisoned twice, then a working object.
func TestScenarioS2PoisonSurfacesThenRecovers(t *testing.T) {
	factory := &stubFactory{failFirstN: 2}
	p, err := New(WithSize(3), WithFactory(factory))
	require.NoError(t, err)
	defer p.Shutdown()

	var poisonedCount int
	var gotObject bool
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !gotObject {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		h, err := p.Claim(ctx)
		cancel()
		var poisoned *PoisonedError
		switch {
		case errors.As(err, &poisoned):
			poisonedCount++
			assert.Contains(t, poisoned.Cause.Error(), "IOError")
		case err == nil:
			gotObject = true
			h.Release()
		}
	}

	assert.True(t, gotObject, "expected a claim to eventually return a working object")
	assert.Equal(t, 2, poisonedCount)
}

// TestScenarioS3BoundedConcurrencyAndClaimCounting: size=5, 8 goroutines
// hammer claim/release for a short window. Max concurrently CLAIMED
// handles never exceeds 5, and at least one claim succeeds.
func TestScenarioS3BoundedConcurrencyAndClaimCounting(t *testing.T) {
	factory := &stubFactory{}
	p, err := New(WithSize(5), WithFactory(factory))
	require.NoError(t, err)
	defer p.Shutdown()

	var inFlight atomic.Int64
	var maxInFlight atomic.Int64
	var totalClaims atomic.Int64

	var wg sync.WaitGroup
	stop := time.Now().Add(300 * time.Millisecond)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(stop) {
				ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				h, err := p.Claim(ctx)
				cancel()
				if err != nil {
					continue
				}
				n := inFlight.Add(1)
				for {
					cur := maxInFlight.Load()
					if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
						break
					}
				}
				totalClaims.Add(1)
				inFlight.Add(-1)
				h.Release()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxInFlight.Load(), int64(5))
	assert.Greater(t, totalClaims.Load(), int64(0))
}

// TestScenarioS4SequentialClaimsSeeDifferentSlotsAfterExpiry: size=2, an
// Expiration that expires a slot as soon as it has been claimed once.
// Three sequential claim/release cycles should each observe a brand-new
// object, in monotonically increasing allocation order.
func TestScenarioS4SequentialClaimsSeeDifferentSlotsAfterExpiry(t *testing.T) {
	factory := &stubFactory{}
	p, err := New(
		WithSize(2),
		WithFactory(factory),
		WithExpiration(ExpirationFunc(func(info SlotInfo) bool {
			return info.ClaimCount() >= 1
		})),
	)
	require.NoError(t, err)
	defer p.Shutdown()

	ids := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		h, err := p.Claim(ctx)
		cancel()
		require.NoError(t, err)
		obj := h.Value().(*stubObject)
		ids = append(ids, obj.id)
		h.Release()
	}

	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 3, "expected every claim to see a never-before-seen object")

	sorted := append([]int(nil), ids...)
	slices.Sort(sorted)
	assert.Equal(t, sorted, ids, "expected allocation order to be monotonically increasing")
}

// TestScenarioS5ShutdownDrainsOutstandingHandlesThenRejects: size=4,
// shutdown initiated with 4 claims outstanding; Await(100ms) reports not
// yet done; after all four release, Await (allowed up to 2s) reports done; a
// subsequent Claim fails with ErrShutdown.
func TestScenarioS5ShutdownDrainsOutstandingHandlesThenRejects(t *testing.T) {
	factory := &stubFactory{}
	p, err := New(WithSize(4), WithFactory(factory))
	require.NoError(t, err)

	handles := make([]*Handle, 0, 4)
	for i := 0; i < 4; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		h, err := p.Claim(ctx)
		cancel()
		require.NoError(t, err)
		handles = append(handles, h)
	}

	completion := p.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	done := completion.Await(ctx)
	cancel()
	assert.False(t, done, "expected shutdown to still be draining while handles are outstanding")

	for _, h := range handles {
		h.Release()
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	done = completion.Await(ctx2)
	cancel2()
	assert.True(t, done, "expected shutdown to complete once all handles are released")

	ctx3, cancel3 := context.WithTimeout(context.Background(), 100*time.Millisecond)
	_, err = p.Claim(ctx3)
	cancel3()
	assert.ErrorIs(t, err, ErrShutdown)
}

// TestScenarioS6ResizeConverges: initial size=2; SetTargetSize(10)
// eventually brings the pool's managed slot count to 10, within the
// pool's MaxSize.
func TestScenarioS6ResizeConverges(t *testing.T) {
	factory := &stubFactory{}
	p, err := New(WithSize(2), WithMaxSize(20), WithFactory(factory))
	require.NoError(t, err)
	defer p.Shutdown()

	require.NoError(t, p.SetTargetSize(10))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Stats().Managed == 10 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	stats := p.Stats()
	assert.Equal(t, 10, stats.Managed)
	assert.LessOrEqual(t, stats.Managed, stats.MaxSize)
}

// TestClaimContextCancelledReturnsInterrupted verifies cancellation
// distinct from deadline expiry is reported as ErrInterrupted.
func TestClaimContextCancelledReturnsInterrupted(t *testing.T) {
	factory := &stubFactory{}
	p, err := New(WithSize(1), WithFactory(factory))
	require.NoError(t, err)
	defer p.Shutdown()

	h, err := p.Claim(context.Background())
	require.NoError(t, err)
	defer h.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Claim(ctx)
	assert.ErrorIs(t, err, ErrInterrupted)
}

// TestClaimContextDeadlineReturnsTimeout verifies a plain deadline
// expiry with no slot available is reported as ErrTimeout.
func TestClaimContextDeadlineReturnsTimeout(t *testing.T) {
	factory := &stubFactory{}
	p, err := New(WithSize(1), WithFactory(factory))
	require.NoError(t, err)
	defer p.Shutdown()

	h, err := p.Claim(context.Background())
	require.NoError(t, err)
	defer h.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Claim(ctx)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestStatsReflectsOccupancy(t *testing.T) {
	factory := &stubFactory{}
	p, err := New(WithSize(3), WithFactory(factory))
	require.NoError(t, err)
	defer p.Shutdown()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && p.Stats().Managed < 3 {
		time.Sleep(5 * time.Millisecond)
	}

	stats := p.Stats()
	assert.Equal(t, 3, stats.Target)
	assert.Equal(t, 3, stats.Managed)
}
