package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for pool memory.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxConcurrentSearches bounds searches running at once.
	// If 0, searches are not limited.
	MaxConcurrentSearches int64
}

// Controller manages shared resources (memory, concurrent searches).
// It is safe for concurrent use.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	searchSem *semaphore.Weighted // nil if unlimited
	searches  atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.MaxConcurrentSearches > 0 {
		c.searchSem = semaphore.NewWeighted(cfg.MaxConcurrentSearches)
	}
	return c
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - callers control retry/backoff policy.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireSearch reserves a search slot, blocking until one is free or ctx
// is done.
func (c *Controller) AcquireSearch(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.searchSem != nil {
		if err := c.searchSem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	c.searches.Add(1)
	return nil
}

// TryAcquireSearch reserves a search slot without blocking.
func (c *Controller) TryAcquireSearch() bool {
	if c == nil {
		return true
	}
	if c.searchSem != nil && !c.searchSem.TryAcquire(1) {
		return false
	}
	c.searches.Add(1)
	return true
}

// ReleaseSearch releases a search slot.
func (c *Controller) ReleaseSearch() {
	if c == nil {
		return
	}
	if c.searchSem != nil {
		c.searchSem.Release(1)
	}
	c.searches.Add(-1)
}

// ActiveSearches returns the number of searches holding a slot.
func (c *Controller) ActiveSearches() int64 {
	if c == nil {
		return 0
	}
	return c.searches.Load()
}
