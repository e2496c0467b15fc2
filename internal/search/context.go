package search

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/chewxy/math32"

	"github.com/hupe1980/waygraph/core"
)

// Searcher is a reusable execution context for A* over the waypoint graph.
// It owns all per-node scratch memory required for search, eliminating heap
// allocations in the steady state.
//
// Searcher is NOT thread-safe. It is intended to be owned by a single
// goroutine during a search operation.
type Searcher struct {
	// G is the best known cost from the start, +Inf when unvisited.
	G []float32

	// F is G plus the heuristic, +Inf when unvisited.
	F []float32

	// CameFrom is the predecessor on the best known path.
	CameFrom []core.NodeID

	// Closed marks expanded nodes.
	Closed *bitset.BitSet

	// Open marks nodes currently in the heap.
	Open *bitset.BitSet

	// Path is the reconstruction buffer. It grows by half plus one when full.
	Path []core.NodeID

	// Expanded counts node expansions since the last Reset.
	Expanded int

	dirty []core.NodeID
}

// NewSearcher creates a Searcher for graphs of up to maxNodes nodes.
func NewSearcher(maxNodes int) *Searcher {
	s := &Searcher{
		G:        make([]float32, maxNodes),
		F:        make([]float32, maxNodes),
		CameFrom: make([]core.NodeID, maxNodes),
		Closed:   bitset.New(uint(maxNodes)),
		Open:     bitset.New(uint(maxNodes)),
		Path:     make([]core.NodeID, 0, 16),
		dirty:    make([]core.NodeID, 0, 128),
	}
	inf := math32.Inf(1)
	for i := range s.G {
		s.G[i] = inf
		s.F[i] = inf
		s.CameFrom[i] = core.InvalidID
	}
	return s
}

// Touch records id as visited in the current session so Reset restores it.
func (s *Searcher) Touch(id core.NodeID) {
	if math32.IsInf(s.G[id], 1) && s.CameFrom[id] == core.InvalidID && !s.Closed.Test(uint(id)) && !s.Open.Test(uint(id)) {
		s.dirty = append(s.dirty, id)
	}
}

// Reset restores every node touched since the previous Reset.
func (s *Searcher) Reset() {
	inf := math32.Inf(1)
	for _, id := range s.dirty {
		s.G[id] = inf
		s.F[id] = inf
		s.CameFrom[id] = core.InvalidID
		s.Closed.Clear(uint(id))
		s.Open.Clear(uint(id))
	}
	s.dirty = s.dirty[:0]
	s.Path = s.Path[:0]
	s.Expanded = 0
}

// Touched returns the number of nodes touched since the last Reset.
func (s *Searcher) Touched() int { return len(s.dirty) }

// Reconstruct writes the path start..goal into Path by walking CameFrom.
// It reports false if the chain does not lead back to start.
func (s *Searcher) Reconstruct(start, goal core.NodeID) bool {
	s.Path = s.Path[:0]
	for cur, steps := goal, 0; ; steps++ {
		if steps > len(s.G) || cur == core.InvalidID {
			s.Path = s.Path[:0]
			return false
		}
		s.push(cur)
		if cur == start {
			break
		}
		cur = s.CameFrom[cur]
	}
	for i, j := 0, len(s.Path)-1; i < j; i, j = i+1, j-1 {
		s.Path[i], s.Path[j] = s.Path[j], s.Path[i]
	}
	return true
}

func (s *Searcher) push(id core.NodeID) {
	if len(s.Path) == cap(s.Path) {
		grown := make([]core.NodeID, len(s.Path), cap(s.Path)+cap(s.Path)/2+1)
		copy(grown, s.Path)
		s.Path = grown
	}
	s.Path = append(s.Path, id)
}
