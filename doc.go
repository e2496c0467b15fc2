// Package waygraph provides a dynamic 2D waypoint graph with A* pathfinding
// for real-time simulations.
//
// Nodes move every tick; paths stay correct. A Pathfinder keeps three caches
// coherent with the graph as it changes:
//
//   - a path cache keyed by node pair or by quantized start point and goal
//   - a distance cache for the A* heuristic
//   - a uniform spatial grid for projecting arbitrary points onto edges
//
// All memory is allocated up front. Exceeding a capacity is an error, never
// an allocation.
//
// # Quick Start
//
//	pf, err := waygraph.New(func(o *waygraph.Options) {
//	    o.MaxNodes = 4096
//	})
//	if err != nil {
//	    panic(err)
//	}
//	defer pf.Close()
//
//	a, _ := pf.AddNode(geom.V(0, 0))
//	b, _ := pf.AddNode(geom.V(10, 0))
//	c, _ := pf.AddNode(geom.V(10, 10))
//	_ = pf.AddEdge(a, b, 10, true)
//	_ = pf.AddEdge(b, c, 10, true)
//
//	path, err := pf.FindPath(a, c, 0)
//
// # Moving Nodes
//
// MoveNode and MoveNodes invalidate exactly the cached paths and distances
// that involve the moved node:
//
//	_ = pf.MoveNode(b, geom.V(0, 10))
//	path, _ = pf.FindPath(a, c, 0) // recomputed
//
// # Projected Search
//
// Searches can start, and end, anywhere in the plane. The point is projected
// onto its nearest edge and the search runs from a transient node there:
//
//	path, err := pf.FindPathProjected(geom.V(5, 3), c, 0)
//	fmt.Println(path.Entry, path.Nodes)
//
//	path, err = pf.FindPathProjectedWithExit(geom.V(5, 3), geom.V(12, 8), waygraph.InvalidHandle, 0)
//
// # Handles
//
// Nodes are referenced by generational handles. Removing a node invalidates
// its handle even when the slot is reused by a later AddNode.
//
// # Errors
//
// Every failure maps to a closed set of statuses:
//
//	if errors.Is(err, waygraph.ErrNoPath) { ... }
//	status := waygraph.StatusOf(err)
//
// # Thread Safety
//
// Pathfinder is NOT thread-safe. Wrap it in a Sync for concurrent use:
//
//	s := waygraph.NewSync(pf)
//	path, err := s.FindPath(ctx, a, c, 0)
package waygraph
