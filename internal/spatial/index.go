package spatial

import (
	"github.com/chewxy/math32"

	"github.com/hupe1980/waygraph/core"
	"github.com/hupe1980/waygraph/geom"
	"github.com/hupe1980/waygraph/internal/graph"
)

const (
	MinCellSize float32 = 10
	MaxCellSize float32 = 500
	MaxGridDim          = 1000
)

// Source provides the edges and node positions the index is built from.
type Source interface {
	Position(id core.NodeID) geom.Vec2
	ForEachEdge(fn func(from core.NodeID, e graph.Edge))
}

// Edge is an indexed segment.
type Edge struct {
	From, To core.NodeID
	Min, Max geom.Vec2
	refs     int
	live     bool
}

// Hit is the result of a nearest-edge query.
type Hit struct {
	From, To core.NodeID
	// Point is the projection of the query point onto the segment From-To.
	Point geom.Vec2
	// T is the segment parameter of Point, 0 at From and 1 at To.
	T float32
	// Distance is the distance between the query point and Point.
	Distance float32
}

// Stats describes the grid occupancy.
type Stats struct {
	Cells      int
	Edges      int
	AvgPerCell float32 // over non-empty cells
	MaxPerCell int
}

// Index is a uniform grid of edge references.
//
// Index is NOT thread-safe.
type Index struct {
	src Source

	origin   geom.Vec2
	cellSize float32
	width    int
	height   int
	cells    [][]uint32

	edges  []Edge
	free   []uint32
	pairs  map[uint64]uint32
	byNode [][]uint32

	stamps []uint32
	query  uint32
	built  bool
}

// New creates an unbuilt index for up to maxNodes node slots.
func New(src Source, maxNodes int) *Index {
	return &Index{
		src:    src,
		pairs:  make(map[uint64]uint32),
		byNode: make([][]uint32, maxNodes),
	}
}

// Built reports whether Rebuild has run since creation or Reset.
func (x *Index) Built() bool { return x.built }

// CellSize returns the current cell edge length.
func (x *Index) CellSize() float32 { return x.cellSize }

// Dims returns the grid width and height in cells.
func (x *Index) Dims() (int, int) { return x.width, x.height }

// Len returns the number of indexed node pairs.
func (x *Index) Len() int { return len(x.pairs) }

// Reset drops the grid; the next Rebuild starts from scratch.
func (x *Index) Reset() {
	x.cells = nil
	x.edges = x.edges[:0]
	x.free = x.free[:0]
	clear(x.pairs)
	for i := range x.byNode {
		x.byNode[i] = x.byNode[i][:0]
	}
	x.width, x.height = 0, 0
	x.built = false
}

// Rebuild re-derives the grid geometry from the current edges and re-indexes
// all of them. O(E).
func (x *Index) Rebuild() {
	x.Reset()
	x.built = true

	first := true
	var lo, hi geom.Vec2
	var total float32
	n := 0
	x.src.ForEachEdge(func(from core.NodeID, e graph.Edge) {
		a, b := x.src.Position(from), x.src.Position(e.To)
		if first {
			lo, hi = a, a
			first = false
		}
		lo = geom.Min(lo, geom.Min(a, b))
		hi = geom.Max(hi, geom.Max(a, b))
		total += geom.Distance(a, b)
		n++
	})
	if n == 0 {
		return
	}

	size := 2 * total / float32(n)
	if size < MinCellSize {
		size = MinCellSize
	} else if size > MaxCellSize {
		size = MaxCellSize
	}

	x.origin = lo
	x.cellSize = size
	x.width = clampDim(int(math32.Floor((hi.X-lo.X)/size)) + 1)
	x.height = clampDim(int(math32.Floor((hi.Y-lo.Y)/size)) + 1)
	x.cells = make([][]uint32, x.width*x.height)

	x.src.ForEachEdge(func(from core.NodeID, e graph.Edge) {
		x.AddEdge(from, e.To)
	})
}

// AddEdge indexes the segment between from and to. It is a no-op before the
// first Rebuild. It reports whether the grid was rebuilt instead, in which
// case every edge of the source is indexed already.
func (x *Index) AddEdge(from, to core.NodeID) bool {
	if !x.built || from == to {
		return false
	}
	if x.cells == nil {
		// first edge of an empty graph: derive the geometry now
		x.Rebuild()
		return true
	}

	key := pairKey(from, to)
	if slot, ok := x.pairs[key]; ok {
		x.edges[slot].refs++
		return false
	}

	var slot uint32
	if n := len(x.free); n > 0 {
		slot = x.free[n-1]
		x.free = x.free[:n-1]
	} else {
		slot = uint32(len(x.edges))
		x.edges = append(x.edges, Edge{})
		x.stamps = append(x.stamps, 0)
	}

	e := &x.edges[slot]
	*e = Edge{From: from, To: to, refs: 1, live: true}
	x.bound(e)
	x.pairs[key] = slot
	x.byNode[from] = append(x.byNode[from], slot)
	x.byNode[to] = append(x.byNode[to], slot)
	x.insertCells(slot)
	return false
}

// RemoveEdge drops one reference to the segment between from and to.
func (x *Index) RemoveEdge(from, to core.NodeID) {
	if !x.built {
		return
	}
	slot, ok := x.pairs[pairKey(from, to)]
	if !ok {
		return
	}
	e := &x.edges[slot]
	e.refs--
	if e.refs <= 0 {
		x.drop(slot)
	}
}

// UpdateNodePosition re-buckets every segment touching id after it moved.
func (x *Index) UpdateNodePosition(id core.NodeID) {
	if !x.built || int(id) >= len(x.byNode) {
		return
	}
	for _, slot := range x.byNode[id] {
		x.removeCells(slot)
		x.bound(&x.edges[slot])
		x.insertCells(slot)
	}
}

// InvalidateNode drops every segment touching id.
func (x *Index) InvalidateNode(id core.NodeID) {
	if !x.built || int(id) >= len(x.byNode) {
		return
	}
	for len(x.byNode[id]) > 0 {
		x.drop(x.byNode[id][0])
	}
}

// QueryNearestEdge projects p onto every segment in the 3x3 cell
// neighbourhood of p's cell and returns the closest one. It reports false
// when the neighbourhood holds no segments.
func (x *Index) QueryNearestEdge(p geom.Vec2) (Hit, bool) {
	if len(x.cells) == 0 || len(x.pairs) == 0 {
		return Hit{}, false
	}

	x.query++
	best := Hit{Distance: math32.Inf(1)}
	found := false

	cx, cy := x.cellOf(p)
	for y := cy - 1; y <= cy+1; y++ {
		if y < 0 || y >= x.height {
			continue
		}
		for xx := cx - 1; xx <= cx+1; xx++ {
			if xx < 0 || xx >= x.width {
				continue
			}
			for _, slot := range x.cells[y*x.width+xx] {
				if x.stamps[slot] == x.query {
					continue
				}
				x.stamps[slot] = x.query
				if x.consider(slot, p, &best) {
					found = true
				}
			}
		}
	}
	return best, found
}

// ScanNearestEdge checks every indexed segment. It is the degraded fallback
// for points whose neighbourhood is empty.
func (x *Index) ScanNearestEdge(p geom.Vec2) (Hit, bool) {
	best := Hit{Distance: math32.Inf(1)}
	found := false
	for slot := range x.edges {
		if !x.edges[slot].live {
			continue
		}
		if x.consider(uint32(slot), p, &best) {
			found = true
		}
	}
	return best, found
}

// Stats returns the grid occupancy.
func (x *Index) Stats() Stats {
	s := Stats{Cells: len(x.cells), Edges: len(x.pairs)}
	total, nonEmpty := 0, 0
	for _, c := range x.cells {
		if len(c) == 0 {
			continue
		}
		nonEmpty++
		total += len(c)
		if len(c) > s.MaxPerCell {
			s.MaxPerCell = len(c)
		}
	}
	if nonEmpty > 0 {
		s.AvgPerCell = float32(total) / float32(nonEmpty)
	}
	return s
}

func (x *Index) consider(slot uint32, p geom.Vec2, best *Hit) bool {
	e := &x.edges[slot]
	proj, t := geom.ProjectSegment(p, x.src.Position(e.From), x.src.Position(e.To))
	d := geom.Distance(p, proj)
	if d >= best.Distance {
		return false
	}
	*best = Hit{From: e.From, To: e.To, Point: proj, T: t, Distance: d}
	return true
}

func (x *Index) drop(slot uint32) {
	e := &x.edges[slot]
	x.removeCells(slot)
	delete(x.pairs, pairKey(e.From, e.To))
	x.byNode[e.From] = removeSlot(x.byNode[e.From], slot)
	x.byNode[e.To] = removeSlot(x.byNode[e.To], slot)
	e.live = false
	e.refs = 0
	x.free = append(x.free, slot)
}

func (x *Index) bound(e *Edge) {
	a, b := x.src.Position(e.From), x.src.Position(e.To)
	e.Min = geom.Min(a, b)
	e.Max = geom.Max(a, b)
}

func (x *Index) insertCells(slot uint32) {
	e := &x.edges[slot]
	x0, y0 := x.cellOf(e.Min)
	x1, y1 := x.cellOf(e.Max)
	for y := y0; y <= y1; y++ {
		for xx := x0; xx <= x1; xx++ {
			i := y*x.width + xx
			x.cells[i] = append(x.cells[i], slot)
		}
	}
}

func (x *Index) removeCells(slot uint32) {
	e := &x.edges[slot]
	x0, y0 := x.cellOf(e.Min)
	x1, y1 := x.cellOf(e.Max)
	for y := y0; y <= y1; y++ {
		for xx := x0; xx <= x1; xx++ {
			i := y*x.width + xx
			x.cells[i] = removeSlot(x.cells[i], slot)
		}
	}
}

func (x *Index) cellOf(p geom.Vec2) (int, int) {
	cx := int(math32.Floor((p.X - x.origin.X) / x.cellSize))
	cy := int(math32.Floor((p.Y - x.origin.Y) / x.cellSize))
	return clamp(cx, x.width-1), clamp(cy, x.height-1)
}

// removeSlot swap-removes one occurrence of slot.
func removeSlot(list []uint32, slot uint32) []uint32 {
	for i, s := range list {
		if s == slot {
			last := len(list) - 1
			list[i] = list[last]
			return list[:last]
		}
	}
	return list
}

func pairKey(a, b core.NodeID) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

func clampDim(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxGridDim {
		return MaxGridDim
	}
	return n
}
