package pool

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultSize              = 10
	defaultMaxSizeMultiplier = 10
	defaultExpirationLower   = 8 * time.Minute
	defaultExpirationUpper   = 10 * time.Minute
)

// config holds the resolved, validated pool configuration. It is built up
// by applying Options over defaults and is immutable once New returns.
type config struct {
	size       int
	maxSize    int
	factory    Factory
	expiration Expiration
	clock      func() time.Time
	logger     zerolog.Logger
	threadName string
}

func defaultConfig() *config {
	return &config{
		size:       defaultSize,
		expiration: NewTimeSpread(defaultExpirationLower, defaultExpirationUpper),
		clock:      time.Now,
		logger:     zerolog.Nop(),
		threadName: "pool-allocator",
	}
}

// Option configures a Pool at construction time.
type Option func(*config) error

// WithSize sets the initial target size. Default 10.
func WithSize(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return newStructuralError("size must be >= 1", fmt.Errorf("got %d", n))
		}
		c.size = n
		return nil
	}
}

// WithMaxSize sets the hard ceiling SetTargetSize may never exceed. This
// also sizes the live/dead channel capacity, since Go channels (unlike
// the unbounded structures the base design allows) have a fixed capacity
// chosen up front. Default: 10x the initial size.
func WithMaxSize(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return newStructuralError("max size must be >= 1", fmt.Errorf("got %d", n))
		}
		c.maxSize = n
		return nil
	}
}

// WithFactory sets the required object factory. If f also implements
// Recreator, reallocation prefers Recreate over Destroy-then-Create.
func WithFactory(f Factory) Option {
	return func(c *config) error {
		if f == nil {
			return newStructuralError("factory must not be nil", nil)
		}
		c.factory = f
		return nil
	}
}

// WithExpiration overrides the default TimeSpread(8m, 10m) policy.
func WithExpiration(e Expiration) Option {
	return func(c *config) error {
		if e == nil {
			return newStructuralError("expiration must not be nil", nil)
		}
		c.expiration = e
		return nil
	}
}

// WithClock overrides the monotonic clock source used for createdAt and
// age calculations. Intended for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		if now == nil {
			return newStructuralError("clock must not be nil", nil)
		}
		c.clock = now
		return nil
	}
}

// WithLogger sets the structured logger used for the pool's startup event,
// factory failures, and poisoned claims; resize and shutdown are not
// logged. Default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithAllocatorThreadName sets a cosmetic name propagated into the
// allocator's log fields (component=<name>). Goroutines have no OS-level
// name in Go, so this is purely a logging aid.
func WithAllocatorThreadName(name string) Option {
	return func(c *config) error {
		if name == "" {
			return newStructuralError("allocator thread name must not be empty", nil)
		}
		c.threadName = name
		return nil
	}
}

func (c *config) validate() error {
	if c.factory == nil {
		return newStructuralError("factory is required", nil)
	}
	if c.size < 1 {
		return newStructuralError("size must be >= 1", fmt.Errorf("got %d", c.size))
	}
	if c.maxSize == 0 {
		c.maxSize = c.size * defaultMaxSizeMultiplier
	}
	if c.maxSize < c.size {
		return newStructuralError("max size must be >= initial size", fmt.Errorf("max=%d size=%d", c.maxSize, c.size))
	}
	return nil
}
