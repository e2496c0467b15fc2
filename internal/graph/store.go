package graph

import (
	"github.com/hupe1980/waygraph/core"
	"github.com/hupe1980/waygraph/geom"
)

// Node is a graph vertex.
type Node struct {
	Position geom.Vec2
	// Version counts position changes of the node.
	Version uint32
	// Gen is the slot generation; it advances when the node is removed.
	Gen     uint32
	Active  bool
	Virtual bool
}

// Edge is a directed adjacency record stored on its source node.
type Edge struct {
	To   core.NodeID
	Cost float32
	// Bidirectional is set when the edge was added together with its reverse.
	Bidirectional bool
}

// EdgeInfo describes an edge for introspection.
type EdgeInfo struct {
	From          core.NodeID
	To            core.NodeID
	Cost          float32
	Bidirectional bool
}

// Store is the fixed-capacity node and edge storage.
//
// Store is NOT thread-safe.
type Store struct {
	nodes     []Node
	edges     [][]Edge
	free      []core.NodeID
	highWater int
	active    int
	edgeCount int
	maxEdges  int
}

// New allocates storage for maxNodes nodes with maxEdgesPerNode outgoing
// edges each.
func New(maxNodes, maxEdgesPerNode int) *Store {
	buf := make([]Edge, maxNodes*maxEdgesPerNode)
	edges := make([][]Edge, maxNodes)
	for i := range edges {
		off := i * maxEdgesPerNode
		edges[i] = buf[off : off : off+maxEdgesPerNode]
	}

	return &Store{
		nodes:    make([]Node, maxNodes),
		edges:    edges,
		free:     make([]core.NodeID, 0, maxNodes),
		maxEdges: maxEdgesPerNode,
	}
}

// Cap returns the node capacity.
func (s *Store) Cap() int { return len(s.nodes) }

// Len returns the number of active nodes.
func (s *Store) Len() int { return s.active }

// EdgeCount returns the number of directed edge records.
func (s *Store) EdgeCount() int { return s.edgeCount }

// MaxEdgesPerNode returns the adjacency capacity of each node.
func (s *Store) MaxEdgesPerNode() int { return s.maxEdges }

// HighWater returns one past the highest slot ever used.
func (s *Store) HighWater() int { return s.highWater }

// AddNode activates a slot at pos. The most recently freed slot is reused
// first; otherwise the next never-used slot is taken.
func (s *Store) AddNode(pos geom.Vec2, virtual bool) (core.NodeID, error) {
	var id core.NodeID
	switch {
	case len(s.free) > 0:
		id = s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
	case s.highWater < len(s.nodes):
		id = core.NodeID(s.highWater)
		s.highWater++
	default:
		return core.InvalidID, core.ErrNodeFull
	}

	n := &s.nodes[id]
	n.Position = pos
	n.Version = 0
	n.Active = true
	n.Virtual = virtual
	s.active++

	return id, nil
}

// Active reports whether id refers to an active node.
func (s *Store) Active(id core.NodeID) bool {
	return int(id) < len(s.nodes) && s.nodes[id].Active
}

// Resolve returns the slot of h if it refers to a live, non-virtual node of
// the same generation.
func (s *Store) Resolve(h core.Handle) (core.NodeID, bool) {
	if !s.Active(h.ID) {
		return core.InvalidID, false
	}
	n := &s.nodes[h.ID]
	if n.Gen != h.Gen || n.Virtual {
		return core.InvalidID, false
	}
	return h.ID, true
}

// Handle returns the current handle of slot id.
func (s *Store) Handle(id core.NodeID) core.Handle {
	if int(id) >= len(s.nodes) {
		return core.InvalidHandle
	}
	return core.Handle{ID: id, Gen: s.nodes[id].Gen}
}

// Node returns a copy of the node in slot id.
func (s *Store) Node(id core.NodeID) Node {
	if int(id) >= len(s.nodes) {
		return Node{}
	}
	return s.nodes[id]
}

// Position returns the position of id, or the zero vector for unknown slots.
func (s *Store) Position(id core.NodeID) geom.Vec2 {
	if int(id) >= len(s.nodes) {
		return geom.Vec2{}
	}
	return s.nodes[id].Position
}

// IsVirtual reports whether id is a transient projection node.
func (s *Store) IsVirtual(id core.NodeID) bool {
	return s.Active(id) && s.nodes[id].Virtual
}

// MoveNode sets the position of an active node. It reports false, changing
// nothing, when the node is inactive or pos equals the current position
// within geom.Epsilon.
func (s *Store) MoveNode(id core.NodeID, pos geom.Vec2) bool {
	if !s.Active(id) {
		return false
	}
	n := &s.nodes[id]
	if geom.Equal(n.Position, pos) {
		return false
	}
	n.Position = pos
	n.Version++
	return true
}

// RemoveNode deletes all incoming and outgoing edges of id, deactivates it and
// frees its slot. The removed edges are appended to dst.
func (s *Store) RemoveNode(id core.NodeID, dst []EdgeInfo) ([]EdgeInfo, bool) {
	if !s.Active(id) {
		return dst, false
	}

	for _, e := range s.edges[id] {
		dst = append(dst, EdgeInfo{From: id, To: e.To, Cost: e.Cost, Bidirectional: e.Bidirectional})
	}
	s.edgeCount -= len(s.edges[id])
	s.edges[id] = s.edges[id][:0]

	for from := 0; from < s.highWater; from++ {
		if !s.nodes[from].Active {
			continue
		}
		list := s.edges[from]
		for i := 0; i < len(list); {
			if list[i].To != id {
				i++
				continue
			}
			e := list[i]
			dst = append(dst, EdgeInfo{From: core.NodeID(from), To: id, Cost: e.Cost, Bidirectional: e.Bidirectional})
			last := len(list) - 1
			list[i] = list[last]
			list = list[:last]
			s.edgeCount--
		}
		s.edges[from] = list
	}

	n := &s.nodes[id]
	n.Active = false
	n.Virtual = false
	n.Gen++
	s.active--
	s.free = append(s.free, id)

	return dst, true
}

// AddEdge appends a directed edge, and its reverse when bidirectional.
// A bidirectional add is all-or-nothing.
func (s *Store) AddEdge(from, to core.NodeID, cost float32, bidirectional bool) error {
	if !s.Active(from) {
		return core.ErrStartNodeInvalid
	}
	if !s.Active(to) {
		return core.ErrGoalNodeInvalid
	}
	if len(s.edges[from]) >= s.maxEdges {
		return core.ErrEdgeFull
	}
	if bidirectional && len(s.edges[to]) >= s.maxEdges {
		return core.ErrEdgeFull
	}

	s.edges[from] = append(s.edges[from], Edge{To: to, Cost: cost, Bidirectional: bidirectional})
	s.edgeCount++
	if bidirectional {
		s.edges[to] = append(s.edges[to], Edge{To: from, Cost: cost, Bidirectional: true})
		s.edgeCount++
	}
	return nil
}

// RemoveEdge swap-removes the first edge from -> to. It reports whether an
// edge was removed.
func (s *Store) RemoveEdge(from, to core.NodeID) bool {
	if !s.Active(from) {
		return false
	}
	list := s.edges[from]
	for i := range list {
		if list[i].To == to {
			last := len(list) - 1
			list[i] = list[last]
			s.edges[from] = list[:last]
			s.edgeCount--
			return true
		}
	}
	return false
}

// Edge returns the first edge from -> to.
func (s *Store) Edge(from, to core.NodeID) (Edge, bool) {
	if !s.Active(from) {
		return Edge{}, false
	}
	for _, e := range s.edges[from] {
		if e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// HasEdge reports whether an edge from -> to exists.
func (s *Store) HasEdge(from, to core.NodeID) bool {
	_, ok := s.Edge(from, to)
	return ok
}

// Edges returns the outgoing edges of id. The slice aliases internal storage
// and must not be modified or retained across mutations.
func (s *Store) Edges(id core.NodeID) []Edge {
	if !s.Active(id) {
		return nil
	}
	return s.edges[id]
}

// NodeEdges appends the edges of id to dst. Bidirectionality is computed from
// the current adjacency, not from the stored flag. With includeBidirectional
// false only edges without a reverse are reported. includeIncoming adds edges
// ending at id and scans all nodes.
func (s *Store) NodeEdges(id core.NodeID, includeBidirectional, includeIncoming bool, dst []EdgeInfo) []EdgeInfo {
	if !s.Active(id) {
		return dst
	}

	for _, e := range s.edges[id] {
		bidi := s.HasEdge(e.To, id)
		if bidi && !includeBidirectional {
			continue
		}
		dst = append(dst, EdgeInfo{From: id, To: e.To, Cost: e.Cost, Bidirectional: bidi})
	}

	if !includeIncoming {
		return dst
	}

	for from := 0; from < s.highWater; from++ {
		if !s.nodes[from].Active || core.NodeID(from) == id {
			continue
		}
		for _, e := range s.edges[from] {
			if e.To != id {
				continue
			}
			bidi := s.HasEdge(id, core.NodeID(from))
			if bidi {
				// already reported as outgoing
				continue
			}
			dst = append(dst, EdgeInfo{From: core.NodeID(from), To: id, Cost: e.Cost})
		}
	}
	return dst
}

// ForEachEdge calls fn for every edge between active non-virtual nodes.
func (s *Store) ForEachEdge(fn func(from core.NodeID, e Edge)) {
	for from := 0; from < s.highWater; from++ {
		n := &s.nodes[from]
		if !n.Active || n.Virtual {
			continue
		}
		for _, e := range s.edges[from] {
			if s.nodes[e.To].Virtual {
				continue
			}
			fn(core.NodeID(from), e)
		}
	}
}

// Reset deactivates every node and drops all edges.
func (s *Store) Reset() {
	for i := 0; i < s.highWater; i++ {
		if s.nodes[i].Active {
			s.nodes[i].Gen++
		}
		s.nodes[i].Active = false
		s.nodes[i].Virtual = false
		s.edges[i] = s.edges[i][:0]
	}
	s.free = s.free[:0]
	for i := s.highWater - 1; i >= 0; i-- {
		s.free = append(s.free, core.NodeID(i))
	}
	s.active = 0
	s.edgeCount = 0
}
