// Package engine ties the graph store, the heap pool and the three caches
// together. It owns every mutation of the graph, so it is the single place
// where versions are bumped and invalidation is fanned out, and it runs the
// A* searches (plain and projected) on top of them.
//
// Engine is NOT thread-safe. Callers that share one across goroutines must
// serialize every call.
package engine
