package engine

import (
	"github.com/hupe1980/waygraph/core"
	"github.com/hupe1980/waygraph/geom"
	"github.com/hupe1980/waygraph/internal/pathcache"
	"github.com/hupe1980/waygraph/internal/spatial"
)

// FindPathProjected finds a path from an arbitrary point to goal. The point
// is projected onto its nearest edge; the search starts from a transient
// node at the projection. The transient node is never part of the result.
// A point projecting onto a node is answered by FindPath from that node.
func (e *Engine) FindPathProjected(pos geom.Vec2, goal core.NodeID, maxLen int) (Result, error) {
	if !e.graph.Active(goal) {
		return Result{}, core.ErrGoalNodeInvalid
	}

	hit, err := e.project(pos)
	if err != nil {
		return Result{}, err
	}

	if n, ok := e.snap(hit); ok {
		res, err := e.FindPath(n, goal, maxLen)
		if err != nil {
			return Result{}, err
		}
		res.Entry = hit.Point
		return res, nil
	}

	if cached, ok := e.paths.FindProjected(pos, goal, hit.From, hit.To); ok {
		res, err := e.output(cached.Nodes, cached.Cost, maxLen)
		res.Cached = true
		res.Entry = cached.Entry
		return res, err
	}

	v, err := e.entryNode(hit)
	if err != nil {
		return Result{}, err
	}
	defer e.removeVirtual(v)

	cost, err := e.search(v, goal)
	if err != nil {
		return Result{}, err
	}
	nodes := e.searcher.Path[1:]
	e.paths.AddProjected(pos, goal, nodes, cost, pathcache.Projection{Point: hit.Point, From: hit.From, To: hit.To})

	res, err := e.output(nodes, cost, maxLen)
	res.Entry = hit.Point
	return res, err
}

// FindPathProjectedWithExit finds a path that leaves the graph at the
// projection of endPos. With a valid start the search begins at that node;
// with core.InvalidID it begins at the projection of startPos. Results are
// not cached.
func (e *Engine) FindPathProjectedWithExit(startPos, endPos geom.Vec2, start core.NodeID, maxLen int) (Result, error) {
	if start != core.InvalidID && !e.graph.Active(start) {
		return Result{}, core.ErrStartNodeInvalid
	}

	exitHit, err := e.project(endPos)
	if err != nil {
		return Result{}, err
	}

	var entryHit spatial.Hit
	src, srcVirtual := start, false
	if start == core.InvalidID {
		entryHit, err = e.project(startPos)
		if err != nil {
			return Result{}, err
		}
		if n, ok := e.snap(entryHit); ok {
			src = n
		} else {
			if src, err = e.entryNode(entryHit); err != nil {
				return Result{}, err
			}
			srcVirtual = true
			defer e.removeVirtual(src)
		}
	} else {
		entryHit.Point = e.graph.Position(start)
	}

	dst, dstVirtual := core.InvalidID, false
	if n, ok := e.snap(exitHit); ok {
		dst = n
	} else {
		if dst, err = e.exitNode(exitHit); err != nil {
			return Result{}, err
		}
		dstVirtual = true
		defer e.removeVirtual(dst)
	}

	if srcVirtual && dstVirtual && samePair(entryHit, exitHit) {
		if err := e.connectAlongEdge(src, dst, entryHit, exitHit); err != nil {
			return Result{}, err
		}
	}

	if src == dst {
		res, err := e.sameNode(src, maxLen)
		res.Entry, res.Exit = entryHit.Point, exitHit.Point
		return res, err
	}

	cost, err := e.search(src, dst)
	if err != nil {
		return Result{}, err
	}

	nodes := e.searcher.Path
	if srcVirtual {
		nodes = nodes[1:]
	}
	if dstVirtual && len(nodes) > 0 {
		nodes = nodes[:len(nodes)-1]
	}

	res, err := e.output(nodes, cost, maxLen)
	res.Entry, res.Exit = entryHit.Point, exitHit.Point
	return res, err
}

// project finds the nearest edge to p, falling back to a full scan when the
// grid neighbourhood of p is empty.
func (e *Engine) project(p geom.Vec2) (spatial.Hit, error) {
	if e.graph.EdgeCount() == 0 {
		return spatial.Hit{}, core.ErrNoProjection
	}
	if !e.spatial.Built() {
		e.spatial.Rebuild()
	}
	if hit, ok := e.spatial.QueryNearestEdge(p); ok {
		return hit, nil
	}
	e.stats.Fallbacks++
	if hit, ok := e.spatial.ScanNearestEdge(p); ok {
		return hit, nil
	}
	return spatial.Hit{}, core.ErrNoProjection
}

// snap reports the endpoint a projection coincides with.
func (e *Engine) snap(hit spatial.Hit) (core.NodeID, bool) {
	if geom.Equal(hit.Point, e.graph.Position(hit.From)) {
		return hit.From, true
	}
	if geom.Equal(hit.Point, e.graph.Position(hit.To)) {
		return hit.To, true
	}
	return core.InvalidID, false
}

// entryNode creates a transient node at the projection with edges to the
// endpoints reachable along the edge direction. Costs are the edge cost
// split at the projection parameter.
func (e *Engine) entryNode(hit spatial.Hit) (core.NodeID, error) {
	v, err := e.graph.AddNode(hit.Point, true)
	if err != nil {
		return core.InvalidID, core.ErrVirtualNodeFailed
	}
	if fwd, ok := e.graph.Edge(hit.From, hit.To); ok {
		if err := e.graph.AddEdge(v, hit.To, fwd.Cost*(1-hit.T), false); err != nil {
			e.removeVirtual(v)
			return core.InvalidID, core.ErrVirtualNodeFailed
		}
	}
	if rev, ok := e.graph.Edge(hit.To, hit.From); ok {
		if err := e.graph.AddEdge(v, hit.From, rev.Cost*hit.T, false); err != nil {
			e.removeVirtual(v)
			return core.InvalidID, core.ErrVirtualNodeFailed
		}
	}
	return v, nil
}

// exitNode creates a transient node at the projection with edges from the
// endpoints that can reach it along the edge direction.
func (e *Engine) exitNode(hit spatial.Hit) (core.NodeID, error) {
	x, err := e.graph.AddNode(hit.Point, true)
	if err != nil {
		return core.InvalidID, core.ErrVirtualNodeFailed
	}
	if fwd, ok := e.graph.Edge(hit.From, hit.To); ok {
		if err := e.graph.AddEdge(hit.From, x, fwd.Cost*hit.T, false); err != nil {
			e.removeVirtual(x)
			return core.InvalidID, core.ErrVirtualNodeFailed
		}
	}
	if rev, ok := e.graph.Edge(hit.To, hit.From); ok {
		if err := e.graph.AddEdge(hit.To, x, rev.Cost*(1-hit.T), false); err != nil {
			e.removeVirtual(x)
			return core.InvalidID, core.ErrVirtualNodeFailed
		}
	}
	return x, nil
}

// connectAlongEdge links entry and exit nodes that project onto the same
// edge when the exit lies downstream of the entry.
func (e *Engine) connectAlongEdge(v, x core.NodeID, entry, exit spatial.Hit) error {
	tv, tx := entry.T, exit.T
	if entry.From != exit.From {
		// same pair indexed in the other orientation
		tv = 1 - tv
	}

	var (
		cost float32
		ok   bool
	)
	if fwd, has := e.graph.Edge(exit.From, exit.To); has && tx >= tv {
		cost, ok = fwd.Cost*(tx-tv), true
	} else if rev, has := e.graph.Edge(exit.To, exit.From); has && tx <= tv {
		cost, ok = rev.Cost*(tv-tx), true
	}
	if !ok {
		return nil
	}
	if err := e.graph.AddEdge(v, x, cost, false); err != nil {
		return core.ErrVirtualNodeFailed
	}
	return nil
}

func (e *Engine) removeVirtual(id core.NodeID) {
	e.dist.InvalidateNode(id)
	e.scratch, _ = e.graph.RemoveNode(id, e.scratch[:0])
}

func samePair(a, b spatial.Hit) bool {
	return (a.From == b.From && a.To == b.To) || (a.From == b.To && a.To == b.From)
}
