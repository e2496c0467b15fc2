package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/waygraph/core"
	"github.com/hupe1980/waygraph/geom"
)

func TestAddNodeCapacity(t *testing.T) {
	s := New(2, 2)

	a, err := s.AddNode(geom.V(0, 0), false)
	require.NoError(t, err)
	b, err := s.AddNode(geom.V(1, 0), false)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	id, err := s.AddNode(geom.V(2, 0), false)
	assert.ErrorIs(t, err, core.ErrNodeFull)
	assert.Equal(t, core.InvalidID, id)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, geom.V(1, 0), s.Position(b))
}

func TestSlotReuseAdvancesGeneration(t *testing.T) {
	s := New(4, 2)

	a, _ := s.AddNode(geom.V(0, 0), false)
	h := s.Handle(a)
	_, ok := s.Resolve(h)
	require.True(t, ok)

	_, removed := s.RemoveNode(a, nil)
	require.True(t, removed)

	b, _ := s.AddNode(geom.V(5, 5), false)
	assert.Equal(t, a, b, "freed slot is reused")

	_, ok = s.Resolve(h)
	assert.False(t, ok, "stale handle must not resolve")
	_, ok = s.Resolve(s.Handle(b))
	assert.True(t, ok)
}

func TestMoveNode(t *testing.T) {
	s := New(2, 2)
	a, _ := s.AddNode(geom.V(1, 1), false)

	assert.False(t, s.MoveNode(a, geom.V(1.00001, 1)))
	assert.Equal(t, uint32(0), s.Node(a).Version)

	assert.True(t, s.MoveNode(a, geom.V(3, 1)))
	assert.Equal(t, uint32(1), s.Node(a).Version)
	assert.Equal(t, geom.V(3, 1), s.Position(a))

	assert.False(t, s.MoveNode(1, geom.V(0, 0)), "inactive slot")
}

func TestAddEdge(t *testing.T) {
	s := New(3, 1)
	a, _ := s.AddNode(geom.V(0, 0), false)
	b, _ := s.AddNode(geom.V(1, 0), false)
	c, _ := s.AddNode(geom.V(2, 0), false)

	assert.ErrorIs(t, s.AddEdge(a, 7, 1, false), core.ErrGoalNodeInvalid)
	assert.ErrorIs(t, s.AddEdge(7, a, 1, false), core.ErrStartNodeInvalid)

	require.NoError(t, s.AddEdge(a, b, 1, true))
	assert.Equal(t, 2, s.EdgeCount())

	assert.ErrorIs(t, s.AddEdge(a, c, 1, false), core.ErrEdgeFull)
	assert.ErrorIs(t, s.AddEdge(c, b, 1, true), core.ErrEdgeFull)
	assert.Empty(t, s.Edges(c), "failed bidirectional add leaves no half edge")
}

func TestRemoveEdge(t *testing.T) {
	s := New(3, 4)
	a, _ := s.AddNode(geom.V(0, 0), false)
	b, _ := s.AddNode(geom.V(1, 0), false)
	c, _ := s.AddNode(geom.V(2, 0), false)

	require.NoError(t, s.AddEdge(a, b, 1, false))
	require.NoError(t, s.AddEdge(a, c, 2, false))
	require.NoError(t, s.AddEdge(a, b, 3, false))

	assert.True(t, s.RemoveEdge(a, b))
	assert.Len(t, s.Edges(a), 2)
	assert.True(t, s.HasEdge(a, b), "duplicate survives")
	assert.True(t, s.RemoveEdge(a, b))
	assert.False(t, s.RemoveEdge(a, b))
	assert.Equal(t, 1, s.EdgeCount())
}

func TestRemoveNodeDropsIncidentEdges(t *testing.T) {
	s := New(4, 4)
	a, _ := s.AddNode(geom.V(0, 0), false)
	b, _ := s.AddNode(geom.V(1, 0), false)
	c, _ := s.AddNode(geom.V(2, 0), false)

	require.NoError(t, s.AddEdge(a, b, 1, true))
	require.NoError(t, s.AddEdge(c, b, 1, false))
	require.NoError(t, s.AddEdge(a, c, 1, false))

	removed, ok := s.RemoveNode(b, nil)
	require.True(t, ok)
	assert.Len(t, removed, 3)
	assert.Equal(t, 1, s.EdgeCount())
	assert.False(t, s.HasEdge(a, b))
	assert.True(t, s.HasEdge(a, c))

	_, ok = s.RemoveNode(b, nil)
	assert.False(t, ok)
}

func TestNodeEdges(t *testing.T) {
	s := New(4, 4)
	a, _ := s.AddNode(geom.V(0, 0), false)
	b, _ := s.AddNode(geom.V(1, 0), false)
	c, _ := s.AddNode(geom.V(2, 0), false)
	d, _ := s.AddNode(geom.V(3, 0), false)

	require.NoError(t, s.AddEdge(a, b, 1, true)) // a<->b
	require.NoError(t, s.AddEdge(a, c, 2, false)) // a->c
	require.NoError(t, s.AddEdge(d, a, 3, false)) // d->a

	tests := []struct {
		name           string
		bidi, incoming bool
		want           []EdgeInfo
	}{
		{"outgoing", true, false, []EdgeInfo{
			{From: a, To: b, Cost: 1, Bidirectional: true},
			{From: a, To: c, Cost: 2},
		}},
		{"unidirectional outgoing", false, false, []EdgeInfo{
			{From: a, To: c, Cost: 2},
		}},
		{"all", true, true, []EdgeInfo{
			{From: a, To: b, Cost: 1, Bidirectional: true},
			{From: a, To: c, Cost: 2},
			{From: d, To: a, Cost: 3},
		}},
		{"unidirectional both ways", false, true, []EdgeInfo{
			{From: a, To: c, Cost: 2},
			{From: d, To: a, Cost: 3},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.NodeEdges(a, tt.bidi, tt.incoming, nil))
		})
	}
}

func TestForEachEdgeSkipsVirtual(t *testing.T) {
	s := New(4, 4)
	a, _ := s.AddNode(geom.V(0, 0), false)
	b, _ := s.AddNode(geom.V(1, 0), false)
	v, _ := s.AddNode(geom.V(0.5, 0), true)

	require.NoError(t, s.AddEdge(a, b, 1, false))
	require.NoError(t, s.AddEdge(v, b, 1, false))
	require.NoError(t, s.AddEdge(a, v, 1, false))

	count := 0
	s.ForEachEdge(func(from core.NodeID, e Edge) { count++ })
	assert.Equal(t, 1, count)

	assert.True(t, s.IsVirtual(v))
	_, ok := s.Resolve(s.Handle(v))
	assert.False(t, ok, "virtual nodes are not addressable by handle")
}

func TestReset(t *testing.T) {
	s := New(3, 2)
	a, _ := s.AddNode(geom.V(0, 0), false)
	b, _ := s.AddNode(geom.V(1, 0), false)
	require.NoError(t, s.AddEdge(a, b, 1, true))
	h := s.Handle(a)

	s.Reset()
	assert.Zero(t, s.Len())
	assert.Zero(t, s.EdgeCount())

	id, err := s.AddNode(geom.V(0, 0), false)
	require.NoError(t, err)
	assert.Equal(t, core.NodeID(0), id)
	_, ok := s.Resolve(h)
	assert.False(t, ok)
}
