package distcache

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/waygraph/core"
	"github.com/hupe1980/waygraph/geom"
)

const (
	// MinSize is the smallest table size.
	MinSize = 16
	// MaxSize bounds the table size.
	MaxSize = 65536
	// MaxProbes is the linear probing window.
	MaxProbes = 8
	// preserveLimit is the number of live entries Resize carries over.
	preserveLimit = 1024
)

const none = core.InvalidID

// Positions resolves node positions.
type Positions interface {
	Position(id core.NodeID) geom.Vec2
}

type slotState uint8

const (
	stateEmpty slotState = iota
	stateLive
	stateTomb
)

type link struct {
	prev, next uint32
}

type entry struct {
	from, to core.NodeID // from < to
	dist     float32
	state    slotState
	links    [2]link // [0] chains through from, [1] through to
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	Size    int
	Entries int
	Hits    uint64
	Misses  uint64
	HitRate uint32 // percent, 0-100
}

// Cache is a distance memo table.
//
// Cache is NOT thread-safe.
type Cache struct {
	entries  []entry
	mask     uint32
	sizedFor int
	heads    []uint32
	pos      Positions
	count    int
	hits     uint64
	misses   uint64
	marks    *bitset.BitSet
}

// New creates a cache for up to maxNodes node slots with a table sized for
// nodeCount nodes.
func New(pos Positions, maxNodes, nodeCount int) *Cache {
	c := &Cache{
		heads: make([]uint32, maxNodes),
		pos:   pos,
		marks: bitset.New(uint(maxNodes)),
	}
	for i := range c.heads {
		c.heads[i] = none
	}
	c.alloc(nodeCount)
	return c
}

// TableSize returns the size used for nodeCount nodes: the next power of two
// of min(nodeCount*8, MaxSize), at least MinSize.
func TableSize(nodeCount int) int {
	want := nodeCount * 8
	if want > MaxSize || want < 0 {
		want = MaxSize
	}
	size := MinSize
	for size < want {
		size <<= 1
	}
	return size
}

func (c *Cache) alloc(nodeCount int) {
	size := TableSize(nodeCount)
	c.entries = make([]entry, size)
	c.mask = uint32(size - 1)
	c.sizedFor = nodeCount
	c.count = 0
}

// Size returns the table size.
func (c *Cache) Size() int { return len(c.entries) }

// SizedFor returns the node count the table was last sized for.
func (c *Cache) SizedFor() int { return c.sizedFor }

// Len returns the number of live entries.
func (c *Cache) Len() int { return c.count }

// Get returns the distance between from and to, computing and caching it on
// a miss. It returns 0 if either id is core.InvalidID.
func (c *Cache) Get(from, to core.NodeID) float32 {
	if from == none || to == none {
		return 0
	}
	if from == to {
		return 0
	}
	lo, hi := from, to
	if lo > hi {
		lo, hi = hi, lo
	}

	free := none
	start := hash(lo, hi) & c.mask
	for i := uint32(0); i < MaxProbes; i++ {
		s := (start + i) & c.mask
		e := &c.entries[s]
		if e.state == stateLive {
			if e.from == lo && e.to == hi {
				c.hits++
				return e.dist
			}
			continue
		}
		if free == none {
			free = s
		}
		if e.state == stateEmpty {
			break
		}
	}

	c.misses++
	d := geom.Distance(c.pos.Position(lo), c.pos.Position(hi))
	if free != none && int(hi) < len(c.heads) {
		c.insert(free, lo, hi, d)
	}
	return d
}

func (c *Cache) insert(s uint32, lo, hi core.NodeID, d float32) {
	e := &c.entries[s]
	e.from, e.to, e.dist, e.state = lo, hi, d, stateLive
	c.link(s, 0, lo)
	c.link(s, 1, hi)
	c.count++
}

// InvalidateNode drops every cached distance involving id.
func (c *Cache) InvalidateNode(id core.NodeID) {
	if int(id) >= len(c.heads) {
		return
	}
	for cur := c.heads[id]; cur != none; {
		e := &c.entries[cur]
		next := e.links[side(e, id)].next
		c.remove(cur)
		cur = next
	}
}

// InvalidateNodes drops the cached distances of a batch of nodes. Large
// batches are handled with one table scan against a membership bitset.
func (c *Cache) InvalidateNodes(ids []core.NodeID) {
	if len(ids) == 0 {
		return
	}
	c.marks.ClearAll()
	unique := 0
	for _, id := range ids {
		if int(id) < len(c.heads) && !c.marks.Test(uint(id)) {
			c.marks.Set(uint(id))
			unique++
		}
	}

	if unique*MaxProbes < len(c.entries) {
		for i, ok := c.marks.NextSet(0); ok; i, ok = c.marks.NextSet(i + 1) {
			c.InvalidateNode(core.NodeID(i))
		}
		return
	}

	for s := range c.entries {
		e := &c.entries[s]
		if e.state != stateLive {
			continue
		}
		if c.marks.Test(uint(e.from)) || c.marks.Test(uint(e.to)) {
			c.remove(uint32(s))
		}
	}
}

// Resize re-sizes the table for nodeCount nodes. Up to 1024 live entries are
// carried over; larger tables are dropped entirely.
func (c *Cache) Resize(nodeCount int) {
	var keep []entry
	if c.count <= preserveLimit {
		keep = make([]entry, 0, c.count)
		for _, e := range c.entries {
			if e.state == stateLive {
				keep = append(keep, e)
			}
		}
	}

	for i := range c.heads {
		c.heads[i] = none
	}
	c.alloc(nodeCount)

	for _, e := range keep {
		start := hash(e.from, e.to) & c.mask
		for i := uint32(0); i < MaxProbes; i++ {
			s := (start + i) & c.mask
			if c.entries[s].state == stateEmpty {
				c.insert(s, e.from, e.to, e.dist)
				break
			}
		}
	}
}

// Clear drops all entries and resets the counters.
func (c *Cache) Clear() {
	clear(c.entries)
	for i := range c.heads {
		c.heads[i] = none
	}
	c.count = 0
	c.hits = 0
	c.misses = 0
}

// Stats returns the cache counters.
func (c *Cache) Stats() Stats {
	s := Stats{
		Size:    len(c.entries),
		Entries: c.count,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = uint32(c.hits * 100 / total)
	}
	return s
}

func (c *Cache) remove(s uint32) {
	e := &c.entries[s]
	c.unlink(s, 0, e.from)
	c.unlink(s, 1, e.to)
	e.state = stateTomb
	e.links = [2]link{}
	c.count--
}

func (c *Cache) link(s uint32, sd int, node core.NodeID) {
	e := &c.entries[s]
	head := c.heads[node]
	e.links[sd] = link{prev: none, next: head}
	if head != none {
		h := &c.entries[head]
		h.links[side(h, node)].prev = s
	}
	c.heads[node] = s
}

func (c *Cache) unlink(s uint32, sd int, node core.NodeID) {
	l := c.entries[s].links[sd]
	if l.prev != none {
		p := &c.entries[l.prev]
		p.links[side(p, node)].next = l.next
	} else {
		c.heads[node] = l.next
	}
	if l.next != none {
		n := &c.entries[l.next]
		n.links[side(n, node)].prev = l.prev
	}
}

func side(e *entry, node core.NodeID) int {
	if e.from == node {
		return 0
	}
	return 1
}

// hash is symmetric in its arguments.
func hash(a, b core.NodeID) uint32 {
	return mix(a) + mix(b)
}

func mix(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}
