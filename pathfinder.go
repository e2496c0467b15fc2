package waygraph

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/hupe1980/waygraph/core"
	"github.com/hupe1980/waygraph/geom"
	"github.com/hupe1980/waygraph/internal/engine"
	"github.com/hupe1980/waygraph/resource"
)

// Pathfinder is a dynamic waypoint graph with cached A* search.
//
// Pathfinder is NOT thread-safe. Use Sync for concurrent access.
type Pathfinder struct {
	opts     Options
	eng      *engine.Engine
	rc       *resource.Controller
	reserved int64
	logger   *Logger
	metrics  MetricsCollector
	moves    []engine.NodeMove
	closed   bool
}

// New creates a Pathfinder. All pools are allocated here and reserved
// against the memory budget.
func New(optFns ...func(o *Options)) (*Pathfinder, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = NoopMetricsCollector{}
	}

	rc := opts.Resources
	if rc == nil {
		rc = resource.NewController(resource.Config{MemoryLimitBytes: opts.MemoryLimitBytes})
	}

	cfg := opts.engineConfig()
	reserved := engine.Footprint(cfg)
	if err := rc.AcquireMemory(reserved); err != nil {
		opts.Logger.LogLifecycle("init", reserved, err)
		return nil, err
	}

	eng, err := engine.New(cfg)
	if err != nil {
		rc.ReleaseMemory(reserved)
		opts.Logger.LogLifecycle("init", reserved, err)
		return nil, err
	}

	opts.Logger.LogLifecycle("init", reserved, nil)
	return &Pathfinder{
		opts:     opts,
		eng:      eng,
		rc:       rc,
		reserved: reserved,
		logger:   opts.Logger,
		metrics:  opts.MetricsCollector,
	}, nil
}

// Close releases the memory reservation. Further calls fail with ErrClosed.
func (p *Pathfinder) Close() error {
	if p == nil || p.closed {
		return nil
	}
	p.closed = true
	p.rc.ReleaseMemory(p.reserved)
	p.logger.LogLifecycle("shutdown", p.reserved, nil)
	p.eng = nil
	return nil
}

// Options returns the effective options.
func (p *Pathfinder) Options() Options { return p.opts }

// Len returns the number of nodes.
func (p *Pathfinder) Len() int {
	if p.closed {
		return 0
	}
	return p.eng.Graph().Len()
}

// EdgeCount returns the number of directed edges.
func (p *Pathfinder) EdgeCount() int {
	if p.closed {
		return 0
	}
	return p.eng.Graph().EdgeCount()
}

// Contains reports whether h refers to a live node.
func (p *Pathfinder) Contains(h Handle) bool {
	if p.closed {
		return false
	}
	_, ok := p.eng.Graph().Resolve(h)
	return ok
}

// AddNode adds a node at pos.
func (p *Pathfinder) AddNode(pos geom.Vec2) (Handle, error) {
	if p.closed {
		return InvalidHandle, ErrClosed
	}
	start := time.Now()
	id, err := p.eng.AddNode(pos)
	h := InvalidHandle
	if err == nil {
		h = p.eng.Graph().Handle(id)
	}
	p.recordMutation("add_node", h, start, err)
	return h, err
}

// MoveNode moves a node. Moves within geom.Epsilon are no-ops. Cached paths
// and distances involving the node are invalidated.
func (p *Pathfinder) MoveNode(h Handle, pos geom.Vec2) error {
	if p.closed {
		return ErrClosed
	}
	start := time.Now()
	id, ok := p.eng.Graph().Resolve(h)
	var err error
	if !ok {
		err = nodeError("move", h, ErrStartNodeInvalid)
	} else {
		err = p.eng.MoveNode(id, pos)
	}
	p.recordMutation("move_node", h, start, err)
	return err
}

// MoveNodes applies a batch of moves, as a host sync loop does once per
// tick. Invalid handles are skipped; the first one is reported after the
// rest of the batch is applied.
func (p *Pathfinder) MoveNodes(moves []NodeMove) error {
	if p.closed {
		return ErrClosed
	}
	start := time.Now()

	var firstErr error
	failed := 0
	p.moves = p.moves[:0]
	for _, m := range moves {
		id, ok := p.eng.Graph().Resolve(m.Handle)
		if !ok {
			failed++
			if firstErr == nil {
				firstErr = nodeError("move", m.Handle, ErrStartNodeInvalid)
			}
			continue
		}
		p.moves = append(p.moves, engine.NodeMove{ID: id, Position: m.Position})
	}
	if err := p.eng.MoveNodes(p.moves); err != nil && firstErr == nil {
		firstErr = err
	}

	p.metrics.RecordBatchMove(len(moves), failed, time.Since(start))
	p.logger.LogBatchMove(len(moves), failed, firstErr)
	return firstErr
}

// RemoveNode removes a node with all incoming and outgoing edges. The
// handle, and every copy of it, becomes invalid.
func (p *Pathfinder) RemoveNode(h Handle) error {
	if p.closed {
		return ErrClosed
	}
	start := time.Now()
	id, ok := p.eng.Graph().Resolve(h)
	var err error
	if !ok {
		err = nodeError("remove", h, ErrStartNodeInvalid)
	} else {
		err = p.eng.RemoveNode(id)
	}
	p.recordMutation("remove_node", h, start, err)
	return err
}

// NodePosition returns the position of a node.
func (p *Pathfinder) NodePosition(h Handle) (geom.Vec2, error) {
	if p.closed {
		return geom.Vec2{}, ErrClosed
	}
	id, ok := p.eng.Graph().Resolve(h)
	if !ok {
		return geom.Vec2{}, nodeError("position", h, ErrStartNodeInvalid)
	}
	return p.eng.NodePosition(id)
}

// AddEdge adds a directed edge from -> to, and to -> from when
// bidirectional. Costs should not be below the Euclidean length of the edge,
// or A* may return suboptimal paths.
func (p *Pathfinder) AddEdge(from, to Handle, cost float32, bidirectional bool) error {
	if p.closed {
		return ErrClosed
	}
	start := time.Now()
	err := p.addEdge(from, to, cost, bidirectional)
	p.recordMutation("add_edge", from, start, err)
	return err
}

func (p *Pathfinder) addEdge(from, to Handle, cost float32, bidirectional bool) error {
	if cost < 0 || math32.IsNaN(cost) {
		return ErrInvalidCost
	}
	a, ok := p.eng.Graph().Resolve(from)
	if !ok {
		return nodeError("add edge", from, ErrStartNodeInvalid)
	}
	b, ok := p.eng.Graph().Resolve(to)
	if !ok {
		return nodeError("add edge", to, ErrGoalNodeInvalid)
	}
	return p.eng.AddEdge(a, b, cost, bidirectional)
}

// RemoveEdge removes the first edge from -> to. Removing an edge that does
// not exist is not an error.
func (p *Pathfinder) RemoveEdge(from, to Handle) error {
	if p.closed {
		return ErrClosed
	}
	start := time.Now()
	err := p.removeEdge(from, to)
	p.recordMutation("remove_edge", from, start, err)
	return err
}

func (p *Pathfinder) removeEdge(from, to Handle) error {
	a, ok := p.eng.Graph().Resolve(from)
	if !ok {
		return nodeError("remove edge", from, ErrStartNodeInvalid)
	}
	b, ok := p.eng.Graph().Resolve(to)
	if !ok {
		return nodeError("remove edge", to, ErrGoalNodeInvalid)
	}
	_, err := p.eng.RemoveEdge(a, b)
	return err
}

// NodeEdges returns the outgoing edges of a node. With includeBidirectional
// false only edges without a reverse are returned. includeIncoming adds
// unidirectional edges ending at the node; it scans the whole graph.
func (p *Pathfinder) NodeEdges(h Handle, includeBidirectional, includeIncoming bool) ([]EdgeInfo, error) {
	if p.closed {
		return nil, ErrClosed
	}
	id, ok := p.eng.Graph().Resolve(h)
	if !ok {
		return nil, nodeError("edges", h, ErrStartNodeInvalid)
	}
	raw, err := p.eng.NodeEdges(id, includeBidirectional, includeIncoming)
	if err != nil {
		return nil, err
	}

	g := p.eng.Graph()
	out := make([]EdgeInfo, len(raw))
	for i, e := range raw {
		out[i] = EdgeInfo{
			From:          g.Handle(e.From),
			To:            g.Handle(e.To),
			Cost:          e.Cost,
			Bidirectional: e.Bidirectional,
		}
	}
	return out, nil
}

// FindPath returns the cheapest path from start to goal, including both.
// maxLen <= 0 means unbounded.
func (p *Pathfinder) FindPath(start, goal Handle, maxLen int) (Path, error) {
	if p.closed {
		return Path{}, ErrClosed
	}
	began := time.Now()
	path, err := p.findPath(start, goal, maxLen)
	p.recordSearch(SearchNode, path, began, err)
	return path, err
}

func (p *Pathfinder) findPath(start, goal Handle, maxLen int) (Path, error) {
	s, ok := p.eng.Graph().Resolve(start)
	if !ok {
		return Path{}, nodeError("find path", start, ErrStartNodeInvalid)
	}
	g, ok := p.eng.Graph().Resolve(goal)
	if !ok {
		return Path{}, nodeError("find path", goal, ErrGoalNodeInvalid)
	}
	res, err := p.eng.FindPath(s, g, maxLen)
	if err != nil {
		return Path{}, translateError("find path", start, goal, err)
	}
	return p.path(res), nil
}

// FindPathProjected returns the cheapest path from an arbitrary point to
// goal. The point joins the graph at its projection onto the nearest edge;
// Nodes starts with the first graph node after that point.
func (p *Pathfinder) FindPathProjected(pos geom.Vec2, goal Handle, maxLen int) (ProjectedPath, error) {
	if p.closed {
		return ProjectedPath{}, ErrClosed
	}
	began := time.Now()
	path, err := p.findPathProjected(pos, goal, maxLen)
	p.recordSearch(SearchProjected, path.Path, began, err)
	return path, err
}

func (p *Pathfinder) findPathProjected(pos geom.Vec2, goal Handle, maxLen int) (ProjectedPath, error) {
	g, ok := p.eng.Graph().Resolve(goal)
	if !ok {
		return ProjectedPath{}, nodeError("find projected path", goal, ErrGoalNodeInvalid)
	}
	res, err := p.eng.FindPathProjected(pos, g, maxLen)
	if err != nil {
		return ProjectedPath{}, translateError("find projected path", InvalidHandle, goal, err)
	}
	return ProjectedPath{Path: p.path(res), Entry: res.Entry}, nil
}

// FindPathProjectedWithExit returns the cheapest path that leaves the graph
// at the projection of endPos. With a valid start handle the path begins at
// that node; with InvalidHandle it begins at the projection of startPos.
// Results are not cached.
func (p *Pathfinder) FindPathProjectedWithExit(startPos, endPos geom.Vec2, start Handle, maxLen int) (ProjectedPath, error) {
	if p.closed {
		return ProjectedPath{}, ErrClosed
	}
	began := time.Now()
	path, err := p.findPathProjectedWithExit(startPos, endPos, start, maxLen)
	p.recordSearch(SearchExit, path.Path, began, err)
	return path, err
}

func (p *Pathfinder) findPathProjectedWithExit(startPos, endPos geom.Vec2, start Handle, maxLen int) (ProjectedPath, error) {
	s := core.InvalidID
	if start != InvalidHandle {
		id, ok := p.eng.Graph().Resolve(start)
		if !ok {
			return ProjectedPath{}, nodeError("find exit path", start, ErrStartNodeInvalid)
		}
		s = id
	}
	res, err := p.eng.FindPathProjectedWithExit(startPos, endPos, s, maxLen)
	if err != nil {
		return ProjectedPath{}, translateError("find exit path", start, InvalidHandle, err)
	}
	return ProjectedPath{Path: p.path(res), Entry: res.Entry, Exit: res.Exit}, nil
}

// CacheStats returns usage of the path and distance caches.
func (p *Pathfinder) CacheStats() CacheStats {
	if p.closed {
		return CacheStats{}
	}
	ps := p.eng.PathCacheStats()
	ds := p.eng.DistanceCacheStats()
	return CacheStats{
		Path: PathCacheStats{
			Entries:  ps.Entries,
			Capacity: ps.Capacity,
			HitRate:  ps.HitRate,
			Hits:     ps.Hits,
			Misses:   ps.Misses,
		},
		Distance: DistanceCacheStats{
			Entries: ds.Entries,
			Size:    ds.Size,
			HitRate: ds.HitRate,
			Hits:    ds.Hits,
			Misses:  ds.Misses,
		},
	}
}

// SpatialStats returns the spatial grid occupancy. The grid is built by the
// first projected search or by RebuildSpatialIndex.
func (p *Pathfinder) SpatialStats() SpatialStats {
	if p.closed {
		return SpatialStats{}
	}
	s := p.eng.SpatialStats()
	w, h := p.eng.SpatialDims()
	return SpatialStats{
		Width:      w,
		Height:     h,
		CellSize:   p.eng.SpatialCellSize(),
		Cells:      s.Cells,
		Edges:      s.Edges,
		AvgPerCell: s.AvgPerCell,
		MaxPerCell: s.MaxPerCell,
	}
}

// SearchStats returns the cumulative search counters.
func (p *Pathfinder) SearchStats() SearchStats {
	if p.closed {
		return SearchStats{}
	}
	s := p.eng.Stats()
	return SearchStats{
		Searches:  s.Searches,
		Retries:   s.Retries,
		Expanded:  s.Expanded,
		Fallbacks: s.Fallbacks,
	}
}

// MemoryUsage returns the bytes reserved for this pathfinder's pools.
func (p *Pathfinder) MemoryUsage() int64 {
	if p.closed {
		return 0
	}
	return p.reserved
}

// ClearCache drops every cached path.
func (p *Pathfinder) ClearCache() {
	if p.closed {
		return
	}
	p.eng.ClearCache()
}

// RebuildSpatialIndex re-derives the spatial grid from the current edges.
// Use it after bulk changes that move the graph far from the grid's bounds.
func (p *Pathfinder) RebuildSpatialIndex() {
	if p.closed {
		return
	}
	p.eng.RebuildSpatialIndex()
}

// Reset removes every node and edge and clears all caches. Handles taken
// before Reset must not be used afterwards.
func (p *Pathfinder) Reset() {
	if p.closed {
		return
	}
	p.eng.Reset()
}

func (p *Pathfinder) path(res engine.Result) Path {
	return Path{
		Nodes:     handles(p.eng.Graph(), res.Nodes),
		Cost:      res.Cost,
		Cached:    res.Cached,
		Truncated: res.Truncated,
	}
}

func (p *Pathfinder) recordMutation(op string, h Handle, start time.Time, err error) {
	p.metrics.RecordMutation(op, time.Since(start), err)
	p.logger.LogMutation(op, h, err)
}

func (p *Pathfinder) recordSearch(kind string, path Path, start time.Time, err error) {
	elapsed := time.Since(start)
	p.metrics.RecordSearch(kind, elapsed, path.Cached, err)
	p.logger.LogSearch(kind, path.Len(), path.Cached, elapsed, err)
}
