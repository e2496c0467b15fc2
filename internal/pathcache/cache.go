package pathcache

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/hupe1980/waygraph/core"
	"github.com/hupe1980/waygraph/geom"
	"github.com/hupe1980/waygraph/internal/heap"
)

type nodeKey struct {
	start, goal core.NodeID
}

type pointKey struct {
	qx, qy int32
	goal   core.NodeID
}

type entry struct {
	nodes   []core.NodeID
	cost    float32
	version heap.GraphVersion

	projected bool
	nkey      nodeKey
	pkey      pointKey
	point     geom.Vec2 // projection of the first query stored under the key
	anchors   [2]core.NodeID
}

// Result is a cache hit. Nodes aliases cache storage and is only valid until
// the next cache mutation.
type Result struct {
	Nodes []core.NodeID
	Cost  float32
	// Entry is the point where a projected path joins the graph.
	Entry geom.Vec2
}

// Projection describes how a projected path joins the graph.
type Projection struct {
	// Point is the projection of the query point.
	Point geom.Vec2
	// From and To are the endpoints of the projected edge.
	From, To core.NodeID
}

// Stats is a snapshot of cache usage.
type Stats struct {
	Entries  int
	Capacity int
	HitRate  uint32 // percent, 0-100
	Hits     uint64
	Misses   uint64
}

// Cache is the path cache.
//
// Cache is NOT thread-safe.
type Cache struct {
	pool     *heap.Pool
	capacity int
	maxLen   int
	quantum  float32

	slots []entry
	buf   []core.NodeID
	free  []uint32

	pairs  *simplelru.LRU[nodeKey, uint32]
	points *simplelru.LRU[pointKey, uint32]
	index  []*roaring.Bitmap

	hits, misses uint64
}

// New creates a cache holding up to capacity entries per table, each at most
// maxLen nodes long, for maxNodes node slots. Projected start points are
// quantized to a grid of the given step.
func New(pool *heap.Pool, maxNodes, capacity, maxLen int, quantum float32) (*Cache, error) {
	if capacity < 1 {
		capacity = 1
	}
	if maxLen < 1 {
		maxLen = 1
	}

	c := &Cache{
		pool:     pool,
		capacity: capacity,
		maxLen:   maxLen,
		quantum:  quantum,
		slots:    make([]entry, 2*capacity),
		buf:      make([]core.NodeID, 2*capacity*maxLen),
		free:     make([]uint32, 0, 2*capacity),
		index:    make([]*roaring.Bitmap, maxNodes),
	}
	for i := len(c.slots) - 1; i >= 0; i-- {
		c.free = append(c.free, uint32(i))
	}

	var err error
	c.pairs, err = simplelru.NewLRU[nodeKey, uint32](capacity, func(_ nodeKey, slot uint32) { c.release(slot) })
	if err != nil {
		return nil, err
	}
	c.points, err = simplelru.NewLRU[pointKey, uint32](capacity, func(_ pointKey, slot uint32) { c.release(slot) })
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MaxPathLength returns the longest cacheable path.
func (c *Cache) MaxPathLength() int { return c.maxLen }

// Find looks up the path from start to goal.
func (c *Cache) Find(start, goal core.NodeID) (Result, bool) {
	key := nodeKey{start: start, goal: goal}
	slot, ok := c.pairs.Get(key)
	if !ok {
		c.misses++
		return Result{}, false
	}
	if !c.valid(slot) {
		c.pairs.Remove(key)
		c.misses++
		return Result{}, false
	}
	c.hits++
	e := &c.slots[slot]
	return Result{Nodes: e.nodes, Cost: e.cost}, true
}

// Add inserts or replaces the path from start to goal. Paths that are empty
// or longer than the maximum length are not cached.
func (c *Cache) Add(start, goal core.NodeID, path []core.NodeID, cost float32) bool {
	if len(path) == 0 || len(path) > c.maxLen {
		return false
	}
	key := nodeKey{start: start, goal: goal}
	c.pairs.Remove(key)
	if c.pairs.Len() >= c.capacity {
		c.pairs.RemoveOldest()
	}

	slot := c.fill(path, cost)
	e := &c.slots[slot]
	e.nkey = key
	c.pairs.Add(key, slot)
	return true
}

// FindProjected looks up the path from the quantized point to goal. from and
// to are the endpoints of the edge the point currently projects onto; an
// entry anchored on another edge is stale and dropped.
func (c *Cache) FindProjected(point geom.Vec2, goal, from, to core.NodeID) (Result, bool) {
	key := c.pointKey(point, goal)
	slot, ok := c.points.Get(key)
	if !ok {
		c.misses++
		return Result{}, false
	}
	if !anchoredOn(c.slots[slot].anchors, from, to) || !c.valid(slot) {
		c.points.Remove(key)
		c.misses++
		return Result{}, false
	}
	c.hits++
	e := &c.slots[slot]
	return Result{Nodes: e.nodes, Cost: e.cost, Entry: e.point}, true
}

// AddProjected inserts or replaces the projected path from point to goal.
func (c *Cache) AddProjected(point geom.Vec2, goal core.NodeID, path []core.NodeID, cost float32, proj Projection) bool {
	if len(path) == 0 || len(path) > c.maxLen {
		return false
	}
	key := c.pointKey(point, goal)
	c.points.Remove(key)
	if c.points.Len() >= c.capacity {
		c.points.RemoveOldest()
	}

	slot := c.fill(path, cost)
	e := &c.slots[slot]
	e.projected = true
	e.pkey = key
	e.point = proj.Point
	e.anchors = [2]core.NodeID{proj.From, proj.To}
	for _, a := range e.anchors {
		c.indexAdd(a, slot)
	}
	c.points.Add(key, slot)
	return true
}

// InvalidateNode drops every entry whose path or projection touches id.
func (c *Cache) InvalidateNode(id core.NodeID) {
	if int(id) >= len(c.index) || c.index[id] == nil || c.index[id].IsEmpty() {
		return
	}
	for _, slot := range c.index[id].ToArray() {
		c.drop(slot)
	}
}

// InvalidateEdge drops every entry whose path traverses from -> to, and every
// projected entry anchored on the edge.
func (c *Cache) InvalidateEdge(from, to core.NodeID) {
	if int(from) >= len(c.index) || int(to) >= len(c.index) {
		return
	}
	a, b := c.index[from], c.index[to]
	if a == nil || b == nil {
		return
	}
	for _, slot := range roaring.And(a, b).ToArray() {
		e := &c.slots[slot]
		if traverses(e.nodes, from, to) || (e.projected && anchoredOn(e.anchors, from, to)) {
			c.drop(slot)
		}
	}
}

// ProjectedLen returns the number of projected entries.
func (c *Cache) ProjectedLen() int { return c.points.Len() }

// Len returns the number of entries in both tables.
func (c *Cache) Len() int { return c.pairs.Len() + c.points.Len() }

// Clear drops every entry.
func (c *Cache) Clear() {
	c.pairs.Purge()
	c.points.Purge()
}

// Stats returns the cache usage counters.
func (c *Cache) Stats() Stats {
	s := Stats{
		Entries:  c.Len(),
		Capacity: 2 * c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = uint32(c.hits * 100 / total)
	}
	return s
}

// valid rejects entries with a node changed after the entry was stored.
func (c *Cache) valid(slot uint32) bool {
	e := &c.slots[slot]
	for _, n := range e.nodes {
		if c.pool.NodeVersion(n).Version > e.version.Node {
			return false
		}
	}
	if e.projected {
		for _, n := range e.anchors {
			if c.pool.NodeVersion(n).Version > e.version.Node {
				return false
			}
		}
	}
	return true
}

func (c *Cache) fill(path []core.NodeID, cost float32) uint32 {
	slot := c.free[len(c.free)-1]
	c.free = c.free[:len(c.free)-1]

	off := int(slot) * c.maxLen
	nodes := c.buf[off : off+len(path) : off+c.maxLen]
	copy(nodes, path)

	c.slots[slot] = entry{
		nodes:   nodes,
		cost:    cost,
		version: c.pool.Version(),
	}
	for _, n := range path {
		c.indexAdd(n, slot)
	}
	return slot
}

func (c *Cache) drop(slot uint32) {
	e := &c.slots[slot]
	if e.projected {
		c.points.Remove(e.pkey)
		return
	}
	c.pairs.Remove(e.nkey)
}

// release is the eviction callback of both tables.
func (c *Cache) release(slot uint32) {
	e := &c.slots[slot]
	for _, n := range e.nodes {
		c.indexRemove(n, slot)
	}
	if e.projected {
		for _, n := range e.anchors {
			c.indexRemove(n, slot)
		}
	}
	*e = entry{}
	c.free = append(c.free, slot)
}

func (c *Cache) indexAdd(n core.NodeID, slot uint32) {
	if int(n) >= len(c.index) {
		return
	}
	bm := c.index[n]
	if bm == nil {
		bm = roaring.New()
		c.index[n] = bm
	}
	bm.Add(slot)
	c.pool.SetAffectsPaths(n, true)
}

func (c *Cache) indexRemove(n core.NodeID, slot uint32) {
	if int(n) >= len(c.index) || c.index[n] == nil {
		return
	}
	bm := c.index[n]
	bm.Remove(slot)
	if bm.IsEmpty() {
		c.pool.SetAffectsPaths(n, false)
	}
}

func (c *Cache) pointKey(p geom.Vec2, goal core.NodeID) pointKey {
	qx, qy := geom.Quantize(p, c.quantum)
	return pointKey{qx: qx, qy: qy, goal: goal}
}

func traverses(path []core.NodeID, from, to core.NodeID) bool {
	for i := 1; i < len(path); i++ {
		if path[i-1] == from && path[i] == to {
			return true
		}
	}
	return false
}

func anchoredOn(anchors [2]core.NodeID, from, to core.NodeID) bool {
	return (anchors[0] == from && anchors[1] == to) || (anchors[0] == to && anchors[1] == from)
}
