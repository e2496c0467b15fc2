package engine

import (
	"unsafe"

	"github.com/hupe1980/waygraph/core"
	"github.com/hupe1980/waygraph/geom"
	"github.com/hupe1980/waygraph/internal/distcache"
	"github.com/hupe1980/waygraph/internal/graph"
	"github.com/hupe1980/waygraph/internal/heap"
	"github.com/hupe1980/waygraph/internal/pathcache"
	"github.com/hupe1980/waygraph/internal/search"
	"github.com/hupe1980/waygraph/internal/spatial"
)

// MaxRetries bounds how often a search restarts after the graph changed
// under it.
const MaxRetries = 3

// initialDistanceNodes is the node count the distance table starts sized for.
const initialDistanceNodes = 64

// SameNodePolicy decides what a search with identical start and goal returns.
type SameNodePolicy int

const (
	// SameNodeError fails with core.ErrStartGoalSame.
	SameNodeError SameNodePolicy = iota
	// SameNodeTrivial succeeds with a one-node path.
	SameNodeTrivial
)

// Config holds the fixed capacities and search policies of an Engine.
type Config struct {
	MaxNodes            int
	MaxEdgesPerNode     int
	HeapBlockSize       int
	MaxCachedPathLength int
	PathCacheSize       int
	ProjectionQuantum   float32
	HeuristicWeight     float32
	SameNode            SameNodePolicy
	StrictMaxLen        bool
}

// Stats are engine-level counters.
type Stats struct {
	Searches  uint64
	Retries   uint64
	Expanded  uint64
	Fallbacks uint64
}

// Result is the outcome of a search. Nodes is owned by the caller.
type Result struct {
	Nodes     []core.NodeID
	Cost      float32
	Cached    bool
	Truncated bool
	// Entry and Exit are the points where a projected path joins and
	// leaves the graph.
	Entry geom.Vec2
	Exit  geom.Vec2
}

// NodeMove is one element of a batch move.
type NodeMove struct {
	ID       core.NodeID
	Position geom.Vec2
}

// Engine is the pathfinding context: graph, pools, caches and counters.
type Engine struct {
	cfg Config

	graph    *graph.Store
	pool     *heap.Pool
	dist     *distcache.Cache
	paths    *pathcache.Cache
	spatial  *spatial.Index
	searcher *search.Searcher

	scratch []graph.EdgeInfo
	moved   []core.NodeID
	stats   Stats

	// afterExpand runs after every node expansion.
	afterExpand func(core.NodeID)
}

// New allocates every pool of the engine up front.
func New(cfg Config) (*Engine, error) {
	if cfg.HeuristicWeight < 0 {
		cfg.HeuristicWeight = 0
	}

	g := graph.New(cfg.MaxNodes, cfg.MaxEdgesPerNode)
	pool := heap.New(max(cfg.MaxNodes, cfg.HeapBlockSize), cfg.HeapBlockSize, cfg.MaxNodes)

	paths, err := pathcache.New(pool, cfg.MaxNodes, cfg.PathCacheSize, cfg.MaxCachedPathLength, cfg.ProjectionQuantum)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:      cfg,
		graph:    g,
		pool:     pool,
		dist:     distcache.New(g, cfg.MaxNodes, min(cfg.MaxNodes, initialDistanceNodes)),
		paths:    paths,
		spatial:  spatial.New(g, cfg.MaxNodes),
		searcher: search.NewSearcher(cfg.MaxNodes),
	}, nil
}

// Footprint estimates the bytes New allocates for cfg.
func Footprint(cfg Config) int64 {
	nodes := int64(cfg.MaxNodes)
	bytes := nodes * int64(unsafe.Sizeof(graph.Node{}))
	bytes += nodes * int64(cfg.MaxEdgesPerNode) * int64(unsafe.Sizeof(graph.Edge{}))
	bytes += int64(max(cfg.MaxNodes, cfg.HeapBlockSize)) * int64(unsafe.Sizeof(heap.Item{}))
	bytes += int64(distcache.TableSize(cfg.MaxNodes)) * 32
	bytes += 2 * int64(cfg.PathCacheSize) * int64(cfg.MaxCachedPathLength) * 4
	bytes += nodes * 12 // search scratch: g, f, came-from
	return bytes
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Stats returns the engine counters.
func (e *Engine) Stats() Stats { return e.stats }

// Graph exposes the graph store for read-only inspection.
func (e *Engine) Graph() *graph.Store { return e.graph }

// Version returns the current graph version.
func (e *Engine) Version() heap.GraphVersion { return e.pool.Version() }

// PathCacheStats returns the path cache counters.
func (e *Engine) PathCacheStats() pathcache.Stats { return e.paths.Stats() }

// DistanceCacheStats returns the distance cache counters.
func (e *Engine) DistanceCacheStats() distcache.Stats { return e.dist.Stats() }

// SpatialStats returns the spatial grid occupancy.
func (e *Engine) SpatialStats() spatial.Stats { return e.spatial.Stats() }

// SpatialDims returns the grid width and height in cells.
func (e *Engine) SpatialDims() (int, int) { return e.spatial.Dims() }

// SpatialCellSize returns the grid cell edge length.
func (e *Engine) SpatialCellSize() float32 { return e.spatial.CellSize() }

// ClearCache drops all cached paths.
func (e *Engine) ClearCache() { e.paths.Clear() }

// RebuildSpatialIndex re-derives the spatial grid from the current edges.
func (e *Engine) RebuildSpatialIndex() { e.spatial.Rebuild() }

// Reset drops the whole graph and every cache, keeping the allocations.
func (e *Engine) Reset() {
	e.paths.Clear()
	e.dist.Clear()
	e.spatial.Reset()
	e.graph.Reset()
	e.pool.Reset()
	e.searcher.Reset()
	e.stats = Stats{}
}

// AddNode adds a node at pos.
func (e *Engine) AddNode(pos geom.Vec2) (core.NodeID, error) {
	id, err := e.graph.AddNode(pos, false)
	if err != nil {
		return core.InvalidID, err
	}
	e.bumpNode(id)

	if n := e.graph.Len(); n > e.dist.SizedFor() && e.dist.Size() < distcache.MaxSize {
		e.dist.Resize(2 * n)
	}
	return id, nil
}

// NodePosition returns the position of an active node.
func (e *Engine) NodePosition(id core.NodeID) (geom.Vec2, error) {
	if !e.graph.Active(id) {
		return geom.Vec2{}, core.ErrStartNodeInvalid
	}
	return e.graph.Position(id), nil
}

// MoveNode moves an active node. Moves within geom.Epsilon are no-ops.
func (e *Engine) MoveNode(id core.NodeID, pos geom.Vec2) error {
	if !e.graph.Active(id) {
		return core.ErrStartNodeInvalid
	}
	if !e.graph.MoveNode(id, pos) {
		return nil
	}
	e.afterMove(id)
	e.dist.InvalidateNode(id)
	return nil
}

// MoveNodes applies a batch of moves. Inactive ids are skipped and reported
// with core.ErrStartNodeInvalid after the rest of the batch is applied.
func (e *Engine) MoveNodes(moves []NodeMove) error {
	var err error
	e.moved = e.moved[:0]
	for _, m := range moves {
		if !e.graph.Active(m.ID) {
			err = core.ErrStartNodeInvalid
			continue
		}
		if e.graph.MoveNode(m.ID, m.Position) {
			e.afterMove(m.ID)
			e.moved = append(e.moved, m.ID)
		}
	}
	e.dist.InvalidateNodes(e.moved)
	return err
}

func (e *Engine) afterMove(id core.NodeID) {
	e.bumpNode(id)
	e.spatial.UpdateNodePosition(id)
	if e.pool.AffectsPaths(id) {
		e.paths.InvalidateNode(id)
	}
}

// bumpNode stamps id as changed. Cached paths are validated against stamps,
// so they are dropped when the stamp counter wraps.
func (e *Engine) bumpNode(id core.NodeID) {
	if e.pool.BumpNode(id) {
		e.paths.Clear()
	}
}

// RemoveNode removes a node and all of its incident edges.
func (e *Engine) RemoveNode(id core.NodeID) error {
	if !e.graph.Active(id) {
		return core.ErrStartNodeInvalid
	}
	if e.graph.IsVirtual(id) {
		e.removeVirtual(id)
		return nil
	}

	if e.pool.AffectsPaths(id) {
		e.paths.InvalidateNode(id)
	}
	e.spatial.InvalidateNode(id)
	e.dist.InvalidateNode(id)

	e.scratch, _ = e.graph.RemoveNode(id, e.scratch[:0])
	if len(e.scratch) > 0 {
		e.pool.BumpEdge()
	}
	e.bumpNode(id)
	return nil
}

// AddEdge adds a directed edge, and its reverse when bidirectional.
func (e *Engine) AddEdge(from, to core.NodeID, cost float32, bidirectional bool) error {
	if err := e.graph.AddEdge(from, to, cost, bidirectional); err != nil {
		return err
	}
	e.pool.BumpEdge()

	if rebuilt := e.spatial.AddEdge(from, to); !rebuilt && bidirectional {
		e.spatial.AddEdge(to, from)
	}
	// a new edge can shorten any cached path
	if e.paths.Len() > 0 {
		e.paths.Clear()
	}
	return nil
}

// RemoveEdge removes the first edge from -> to. It reports whether an edge
// was removed.
func (e *Engine) RemoveEdge(from, to core.NodeID) (bool, error) {
	if !e.graph.Active(from) {
		return false, core.ErrStartNodeInvalid
	}
	if !e.graph.RemoveEdge(from, to) {
		return false, nil
	}
	e.pool.BumpEdge()
	e.spatial.RemoveEdge(from, to)
	if e.pool.AffectsPaths(from) && e.pool.AffectsPaths(to) {
		e.paths.InvalidateEdge(from, to)
	}
	return true, nil
}

// NodeEdges returns the edges of an active node.
func (e *Engine) NodeEdges(id core.NodeID, includeBidirectional, includeIncoming bool) ([]graph.EdgeInfo, error) {
	if !e.graph.Active(id) {
		return nil, core.ErrStartNodeInvalid
	}
	return e.graph.NodeEdges(id, includeBidirectional, includeIncoming, nil), nil
}
