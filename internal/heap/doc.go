// Package heap provides the fixed-capacity heap pool used by the search engine.
//
// A Pool owns one pre-allocated buffer of (node, f-score) pairs. Searches carve
// short-lived binary min-heaps (Blocks) out of it with a bump allocator, so a
// query never allocates. A full block reports core.ErrHeapFull instead of
// growing.
//
// The pool also owns the graph version counters and the per-node change stamps
// and "affects paths" flags that drive cache invalidation.
package heap
