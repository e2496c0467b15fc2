package spatial

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/waygraph/core"
	"github.com/hupe1980/waygraph/geom"
	"github.com/hupe1980/waygraph/internal/graph"
)

func square(t *testing.T) (*graph.Store, []core.NodeID) {
	t.Helper()
	s := graph.New(16, 4)
	var ids []core.NodeID
	for _, p := range []geom.Vec2{geom.V(0, 0), geom.V(100, 0), geom.V(100, 100), geom.V(0, 100)} {
		id, err := s.AddNode(p, false)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for i := range ids {
		require.NoError(t, s.AddEdge(ids[i], ids[(i+1)%len(ids)], 100, true))
	}
	return s, ids
}

func TestRebuildGeometry(t *testing.T) {
	s, _ := square(t)
	x := New(s, s.Cap())
	assert.False(t, x.Built())

	x.Rebuild()
	assert.True(t, x.Built())
	assert.Equal(t, float32(200), x.CellSize())
	w, h := x.Dims()
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
	assert.Equal(t, 4, x.Len(), "each bidirectional pair indexed once")
}

func TestCellSizeClamped(t *testing.T) {
	s := graph.New(4, 2)
	a, _ := s.AddNode(geom.V(0, 0), false)
	b, _ := s.AddNode(geom.V(1, 0), false)
	require.NoError(t, s.AddEdge(a, b, 1, false))

	x := New(s, s.Cap())
	x.Rebuild()
	assert.Equal(t, MinCellSize, x.CellSize())

	c, _ := s.AddNode(geom.V(5000, 0), false)
	require.NoError(t, s.AddEdge(b, c, 1, false))
	x.Rebuild()
	assert.Equal(t, MaxCellSize, x.CellSize())
}

func TestQueryNearestEdge(t *testing.T) {
	s, ids := square(t)
	x := New(s, s.Cap())
	x.Rebuild()

	hit, ok := x.QueryNearestEdge(geom.V(50, 10))
	require.True(t, ok)
	assert.ElementsMatch(t, []core.NodeID{ids[0], ids[1]}, []core.NodeID{hit.From, hit.To})
	assert.True(t, geom.Equal(geom.V(50, 0), hit.Point))
	assert.InDelta(t, 10, hit.Distance, 1e-4)
	assert.InDelta(t, 0.5, hit.T, 1e-4)

	hit, ok = x.QueryNearestEdge(geom.V(95, 60))
	require.True(t, ok)
	assert.ElementsMatch(t, []core.NodeID{ids[1], ids[2]}, []core.NodeID{hit.From, hit.To})
}

func TestIncrementalMatchesRebuild(t *testing.T) {
	rng := rand.New(rand.NewSource(7)) // nolint gosec
	s := graph.New(64, 4)
	var ids []core.NodeID
	for i := 0; i < 40; i++ {
		id, _ := s.AddNode(geom.V(rng.Float32()*300, rng.Float32()*300), false)
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		_ = s.AddEdge(ids[i-1], ids[i], 1, true)
	}

	inc := New(s, s.Cap())
	inc.Rebuild()

	// mutate incrementally
	require.True(t, s.MoveNode(ids[5], geom.V(150, 150)))
	inc.UpdateNodePosition(ids[5])

	removed, _ := s.RemoveNode(ids[10], nil)
	inc.InvalidateNode(ids[10])
	assert.NotEmpty(t, removed)

	require.NoError(t, s.AddEdge(ids[0], ids[20], 1, false))
	inc.AddEdge(ids[0], ids[20])

	full := New(s, s.Cap())
	full.Rebuild()
	assert.Equal(t, full.Len(), inc.Len())

	for i := 0; i < 200; i++ {
		p := geom.V(rng.Float32()*300, rng.Float32()*300)
		want, _ := full.ScanNearestEdge(p)
		got, ok := inc.ScanNearestEdge(p)
		require.True(t, ok)
		assert.InDelta(t, want.Distance, got.Distance, 1e-3)
	}
}

func TestRemoveEdgeRefCounts(t *testing.T) {
	s, ids := square(t)
	x := New(s, s.Cap())
	x.Rebuild()

	x.RemoveEdge(ids[0], ids[1])
	assert.Equal(t, 4, x.Len(), "reverse record still references the pair")
	x.RemoveEdge(ids[1], ids[0])
	assert.Equal(t, 3, x.Len())

	hit, ok := x.QueryNearestEdge(geom.V(50, 1))
	require.True(t, ok)
	assert.NotEqual(t, float32(1), hit.Distance)
}

func TestQueryEmpty(t *testing.T) {
	s := graph.New(4, 2)
	x := New(s, s.Cap())
	x.Rebuild()

	_, ok := x.QueryNearestEdge(geom.V(5, 5))
	assert.False(t, ok)
	_, ok = x.ScanNearestEdge(geom.V(5, 5))
	assert.False(t, ok)

	a, _ := s.AddNode(geom.V(0, 0), false)
	b, _ := s.AddNode(geom.V(20, 0), false)
	require.NoError(t, s.AddEdge(a, b, 20, false))
	assert.True(t, x.AddEdge(a, b), "rebuilt")

	_, ok = x.QueryNearestEdge(geom.V(5, 5))
	assert.True(t, ok, "first edge derives the grid lazily")
}

func TestQueryOutsideNeighbourhood(t *testing.T) {
	s := graph.New(8, 2)
	a, _ := s.AddNode(geom.V(0, 0), false)
	b, _ := s.AddNode(geom.V(10, 0), false)
	c, _ := s.AddNode(geom.V(1000, 1000), false)
	d, _ := s.AddNode(geom.V(1010, 1000), false)
	require.NoError(t, s.AddEdge(a, b, 10, false))
	require.NoError(t, s.AddEdge(c, d, 10, false))

	x := New(s, s.Cap())
	x.Rebuild()

	p := geom.V(500, 500)
	_, ok := x.QueryNearestEdge(p)
	assert.False(t, ok)

	hit, ok := x.ScanNearestEdge(p)
	require.True(t, ok)
	assert.Equal(t, a, hit.From)
}

func TestStats(t *testing.T) {
	s, _ := square(t)
	x := New(s, s.Cap())
	x.Rebuild()

	st := x.Stats()
	assert.Equal(t, 1, st.Cells)
	assert.Equal(t, 4, st.Edges)
	assert.Equal(t, 4, st.MaxPerCell)
	assert.InDelta(t, 4, st.AvgPerCell, 1e-6)
}
