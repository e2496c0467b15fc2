// Package distcache memoizes Euclidean distances between node pairs.
//
// The table is open-addressed with linear probing over a bounded window and
// stores each unordered pair once. Every entry is linked into the
// invalidation chains of both of its nodes, so dropping the distances of a
// moved node costs O(k) in that node's cached entries rather than a table scan.
// Positions are always read through the graph; the cache never owns them.
package distcache
