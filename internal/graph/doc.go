// Package graph implements the node and adjacency storage of the waypoint graph.
//
// Nodes live in a fixed array of generational slots: removing a node frees its
// slot for reuse and advances the slot generation, so handles taken earlier
// stop resolving. Every node owns a fixed-capacity window of one shared edge
// buffer; nothing grows after New.
//
// The store knows nothing about caches or versions; the search engine
// coordinates invalidation around every mutation.
package graph
