package engine

import (
	"errors"
	"slices"

	"github.com/hupe1980/waygraph/core"
)

// FindPath returns the cheapest path from start to goal. maxLen <= 0 means
// unbounded.
func (e *Engine) FindPath(start, goal core.NodeID, maxLen int) (Result, error) {
	if !e.graph.Active(start) {
		return Result{}, core.ErrStartNodeInvalid
	}
	if !e.graph.Active(goal) {
		return Result{}, core.ErrGoalNodeInvalid
	}
	if start == goal {
		return e.sameNode(start, maxLen)
	}

	if hit, ok := e.paths.Find(start, goal); ok {
		res, err := e.output(hit.Nodes, hit.Cost, maxLen)
		res.Cached = true
		return res, err
	}

	cost, err := e.search(start, goal)
	if err != nil {
		return Result{}, err
	}
	if !e.graph.IsVirtual(start) && !e.graph.IsVirtual(goal) {
		e.paths.Add(start, goal, e.searcher.Path, cost)
	}
	return e.output(e.searcher.Path, cost, maxLen)
}

func (e *Engine) sameNode(id core.NodeID, maxLen int) (Result, error) {
	if e.cfg.SameNode == SameNodeTrivial {
		return e.output([]core.NodeID{id}, 0, maxLen)
	}
	return Result{}, core.ErrStartGoalSame
}

// output copies nodes into a caller-owned slice, applying maxLen.
func (e *Engine) output(nodes []core.NodeID, cost float32, maxLen int) (Result, error) {
	res := Result{Cost: cost}
	if maxLen > 0 && len(nodes) > maxLen {
		if e.cfg.StrictMaxLen {
			return Result{}, core.ErrPathTooLong
		}
		nodes = nodes[:maxLen]
		res.Truncated = true
	}
	res.Nodes = slices.Clone(nodes)
	return res, nil
}

// search runs A* with a bounded number of restarts when the graph changes
// mid-search. The path is left in e.searcher.Path.
func (e *Engine) search(start, goal core.NodeID) (float32, error) {
	e.stats.Searches++
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		cost, err := e.astar(start, goal)
		if !errors.Is(err, core.ErrGraphChanged) {
			return cost, err
		}
		if attempt == MaxRetries {
			break
		}
		e.stats.Retries++
		if !e.graph.Active(start) {
			return 0, core.ErrStartNodeInvalid
		}
		if !e.graph.Active(goal) {
			return 0, core.ErrGoalNodeInvalid
		}
	}
	return 0, core.ErrGraphChangedTooOften
}

func (e *Engine) heuristic(id, goal core.NodeID) float32 {
	if e.cfg.HeuristicWeight == 0 {
		return 0
	}
	return e.dist.Get(id, goal) * e.cfg.HeuristicWeight
}

func (e *Engine) astar(start, goal core.NodeID) (float32, error) {
	s := e.searcher
	s.Reset()
	defer func() { e.stats.Expanded += uint64(s.Expanded) }()

	blk, err := e.pool.Alloc(max(e.pool.BlockSize(), e.graph.Len()))
	if err != nil {
		return 0, err
	}
	defer e.pool.Release(blk)

	s.Touch(start)
	s.G[start] = 0
	s.F[start] = e.heuristic(start, goal)
	if err := blk.Push(start, s.F[start]); err != nil {
		return 0, err
	}
	s.Open.Set(uint(start))

	for {
		it, ok := blk.Pop()
		if !ok {
			return 0, core.ErrNoPath
		}
		cur := it.Node
		s.Open.Clear(uint(cur))

		if cur == goal {
			if !s.Reconstruct(start, goal) {
				return 0, core.ErrNoPath
			}
			return s.G[goal], nil
		}
		if s.Closed.Test(uint(cur)) {
			continue
		}
		s.Closed.Set(uint(cur))
		s.Expanded++

		for _, edge := range e.graph.Edges(cur) {
			n := edge.To
			if !e.graph.Active(n) || s.Closed.Test(uint(n)) {
				continue
			}
			g := s.G[cur] + edge.Cost
			s.Touch(n)
			if g >= s.G[n] {
				continue
			}
			s.G[n] = g
			s.CameFrom[n] = cur
			s.F[n] = g + e.heuristic(n, goal)

			if s.Open.Test(uint(n)) {
				blk.DecreaseKey(n, s.F[n])
				continue
			}
			if err := blk.Push(n, s.F[n]); err != nil {
				return 0, err
			}
			s.Open.Set(uint(n))
		}

		if e.afterExpand != nil {
			e.afterExpand(cur)
		}
		if blk.Stale() {
			return 0, core.ErrGraphChanged
		}
	}
}
