// Package testutil provides testing utilities for waygraph.
//
// This package is intended for use in tests and benchmarks only.
// It provides seeded generators for waypoint graphs and an exact
// shortest-path oracle to verify search results against.
//
// # Graph Generation
//
//	rng := testutil.NewRNG(seed)
//	g := rng.GridGraph(10, 10, 5, 0.1) // 10x10 lattice, 10% of links dropped
//	g := rng.RandomGraph(200, 4, 1000)
//
// # Exact Search (Ground Truth)
//
//	cost, path, ok := testutil.ShortestPath(len(g.Points), g.Edges, start, goal)
//
// # Skewed Workloads
//
//	goal := rng.Zipf(len(g.Points), 1.2)
package testutil
