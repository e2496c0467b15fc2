// Package pathcache stores computed paths for reuse.
//
// There are two tables: exact (start, goal) node pairs, and projected paths
// keyed by a quantized start point and a goal node. Both are LRU-ordered and
// bounded. Path storage is one pre-allocated buffer sliced per entry slot.
//
// A roaring bitmap per node records which entry slots run through it, so
// invalidating a node or an edge touches only the affected entries.
package pathcache
