package waygraph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/waygraph/geom"
)

// Sync is a Pathfinder behind a single mutex. Identical searches issued
// concurrently are collapsed into one; callers joining an in-flight search
// share its result.
//
// Searches hold a slot of the pathfinder's resource controller while they
// wait for and run under the lock.
type Sync struct {
	mu    sync.Mutex
	pf    *Pathfinder
	group singleflight.Group
}

// NewSync wraps pf. pf must not be used directly afterwards.
func NewSync(pf *Pathfinder) *Sync {
	return &Sync{pf: pf}
}

// Do runs fn with exclusive access to the pathfinder, for compound updates
// that must not interleave with searches.
func (s *Sync) Do(fn func(pf *Pathfinder) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.pf)
}

// Close closes the wrapped pathfinder.
func (s *Sync) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.Close()
}

// AddNode is the synchronized Pathfinder.AddNode.
func (s *Sync) AddNode(pos geom.Vec2) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.AddNode(pos)
}

// MoveNode is the synchronized Pathfinder.MoveNode.
func (s *Sync) MoveNode(h Handle, pos geom.Vec2) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.MoveNode(h, pos)
}

// MoveNodes is the synchronized Pathfinder.MoveNodes.
func (s *Sync) MoveNodes(moves []NodeMove) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.MoveNodes(moves)
}

// RemoveNode is the synchronized Pathfinder.RemoveNode.
func (s *Sync) RemoveNode(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.RemoveNode(h)
}

// NodePosition is the synchronized Pathfinder.NodePosition.
func (s *Sync) NodePosition(h Handle) (geom.Vec2, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.NodePosition(h)
}

// AddEdge is the synchronized Pathfinder.AddEdge.
func (s *Sync) AddEdge(from, to Handle, cost float32, bidirectional bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.AddEdge(from, to, cost, bidirectional)
}

// RemoveEdge is the synchronized Pathfinder.RemoveEdge.
func (s *Sync) RemoveEdge(from, to Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.RemoveEdge(from, to)
}

// NodeEdges is the synchronized Pathfinder.NodeEdges.
func (s *Sync) NodeEdges(h Handle, includeBidirectional, includeIncoming bool) ([]EdgeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.NodeEdges(h, includeBidirectional, includeIncoming)
}

// CacheStats is the synchronized Pathfinder.CacheStats.
func (s *Sync) CacheStats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.CacheStats()
}

// SearchStats is the synchronized Pathfinder.SearchStats.
func (s *Sync) SearchStats() SearchStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pf.SearchStats()
}

// FindPath is the synchronized Pathfinder.FindPath.
func (s *Sync) FindPath(ctx context.Context, start, goal Handle, maxLen int) (Path, error) {
	key := fmt.Sprintf("n/%d/%d/%d/%d/%d", start.ID, start.Gen, goal.ID, goal.Gen, maxLen)
	v, err := s.search(ctx, key, func() (any, error) {
		return s.pf.FindPath(start, goal, maxLen)
	})
	if err != nil {
		return Path{}, err
	}
	return clonePath(v.(Path)), nil
}

// FindPathProjected is the synchronized Pathfinder.FindPathProjected.
func (s *Sync) FindPathProjected(ctx context.Context, pos geom.Vec2, goal Handle, maxLen int) (ProjectedPath, error) {
	key := fmt.Sprintf("p/%g/%g/%d/%d/%d", pos.X, pos.Y, goal.ID, goal.Gen, maxLen)
	v, err := s.search(ctx, key, func() (any, error) {
		return s.pf.FindPathProjected(pos, goal, maxLen)
	})
	if err != nil {
		return ProjectedPath{}, err
	}
	pp := v.(ProjectedPath)
	pp.Path = clonePath(pp.Path)
	return pp, nil
}

// FindPathProjectedWithExit is the synchronized
// Pathfinder.FindPathProjectedWithExit.
func (s *Sync) FindPathProjectedWithExit(ctx context.Context, startPos, endPos geom.Vec2, start Handle, maxLen int) (ProjectedPath, error) {
	key := fmt.Sprintf("x/%g/%g/%g/%g/%d/%d/%d", startPos.X, startPos.Y, endPos.X, endPos.Y, start.ID, start.Gen, maxLen)
	v, err := s.search(ctx, key, func() (any, error) {
		return s.pf.FindPathProjectedWithExit(startPos, endPos, start, maxLen)
	})
	if err != nil {
		return ProjectedPath{}, err
	}
	pp := v.(ProjectedPath)
	pp.Path = clonePath(pp.Path)
	return pp, nil
}

// search runs fn through the singleflight group. A joiner whose own context
// is still live retries when the shared call failed only because the
// leader's context ended.
func (s *Sync) search(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	for {
		ch := s.group.DoChan(key, func() (any, error) {
			rc := s.pf.rc
			if err := rc.AcquireSearch(ctx); err != nil {
				return nil, err
			}
			defer rc.ReleaseSearch()

			s.mu.Lock()
			defer s.mu.Unlock()
			return fn()
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-ch:
			if isContextErr(r.Err) && ctx.Err() == nil {
				continue
			}
			return r.Val, r.Err
		}
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func clonePath(p Path) Path {
	p.Nodes = slices.Clone(p.Nodes)
	return p
}
