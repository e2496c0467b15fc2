// Package resource implements the Controller for limits shared by several
// pathfinders.
//
// The Controller manages two resource types:
//
//   - Memory: account for the pre-allocated pools of every pathfinder (non-blocking, fail-fast)
//   - Searches: bound the number of searches running at once across pathfinders
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and atomic counters
// for usage tracking. AcquireMemory is non-blocking and returns immediately
// with ErrMemoryLimitExceeded if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20,
//	})
//
//	if err := rc.AcquireMemory(footprint); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(footprint)
//
// # Search Limits
//
//	if err := rc.AcquireSearch(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseSearch()
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
