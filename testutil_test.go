package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// stubObject is the trivial object built and destroyed by stubFactory.
type stubObject struct {
	id int
}

// stubFactory is a plain Factory (no Recreate method, so the allocator
// always falls back to Destroy-then-Create) whose behaviour is scripted
// by tests: it can fail its first N Create calls, count calls, and
// record destroyed objects.
type stubFactory struct {
	mu sync.Mutex

	failFirstN  int
	createCalls int
	destroyed   []int

	nextID atomic.Int64
}

func (f *stubFactory) Create(ctx context.Context) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createCalls <= f.failFirstN {
		return nil, fmt.Errorf("IOError: net (attempt %d)", f.createCalls)
	}
	id := int(f.nextID.Add(1))
	return &stubObject{id: id}, nil
}

func (f *stubFactory) Destroy(ctx context.Context, obj any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, obj.(*stubObject).id)
}

func (f *stubFactory) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

func (f *stubFactory) Destroyed() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.destroyed))
	copy(out, f.destroyed)
	return out
}

// stubRecreateFactory additionally implements Recreator, refurbishing the
// slot's previous object in place instead of destroying it.
type stubRecreateFactory struct {
	stubFactory
}

func (f *stubRecreateFactory) Recreate(ctx context.Context, old any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	o := old.(*stubObject)
	return &stubObject{id: o.id}, nil
}
