package pathcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/waygraph/core"
	"github.com/hupe1980/waygraph/geom"
	"github.com/hupe1980/waygraph/internal/heap"
)

func newCache(t *testing.T, capacity, maxLen int) (*Cache, *heap.Pool) {
	t.Helper()
	pool := heap.New(16, 4, 16)
	c, err := New(pool, 16, capacity, maxLen, 1)
	require.NoError(t, err)
	return c, pool
}

func TestAddFind(t *testing.T) {
	c, pool := newCache(t, 4, 8)

	require.True(t, c.Add(0, 2, []core.NodeID{0, 1, 2}, 20))
	res, ok := c.Find(0, 2)
	require.True(t, ok)
	assert.Equal(t, []core.NodeID{0, 1, 2}, res.Nodes)
	assert.Equal(t, float32(20), res.Cost)
	assert.True(t, pool.AffectsPaths(1))

	_, ok = c.Find(2, 0)
	assert.False(t, ok, "keys are directed")

	s := c.Stats()
	assert.Equal(t, 1, s.Entries)
	assert.Equal(t, 8, s.Capacity)
	assert.Equal(t, uint32(50), s.HitRate)
}

func TestAddReplaces(t *testing.T) {
	c, _ := newCache(t, 4, 8)
	c.Add(0, 2, []core.NodeID{0, 1, 2}, 20)
	c.Add(0, 2, []core.NodeID{0, 3, 2}, 15)

	res, ok := c.Find(0, 2)
	require.True(t, ok)
	assert.Equal(t, []core.NodeID{0, 3, 2}, res.Nodes)
	assert.Equal(t, 1, c.Len())
}

func TestTooLongNotCached(t *testing.T) {
	c, _ := newCache(t, 4, 2)
	assert.False(t, c.Add(0, 2, []core.NodeID{0, 1, 2}, 1))
	assert.False(t, c.Add(0, 2, nil, 1))
	assert.Zero(t, c.Len())
}

func TestLRUEviction(t *testing.T) {
	c, pool := newCache(t, 2, 4)
	c.Add(0, 1, []core.NodeID{0, 1}, 1)
	c.Add(2, 3, []core.NodeID{2, 3}, 1)

	_, ok := c.Find(0, 1) // 0->1 becomes most recent
	require.True(t, ok)

	c.Add(4, 5, []core.NodeID{4, 5}, 1)
	assert.Equal(t, 2, c.Len())

	_, ok = c.Find(2, 3)
	assert.False(t, ok, "least recently used entry evicted")
	assert.False(t, pool.AffectsPaths(2))

	_, ok = c.Find(0, 1)
	assert.True(t, ok)
}

func TestInvalidateNode(t *testing.T) {
	c, pool := newCache(t, 8, 8)
	c.Add(0, 2, []core.NodeID{0, 1, 2}, 2)
	c.Add(3, 5, []core.NodeID{3, 4, 5}, 2)
	c.Add(1, 4, []core.NodeID{1, 4}, 1)

	c.InvalidateNode(1)
	assert.Equal(t, 1, c.Len())
	assert.False(t, pool.AffectsPaths(1))
	assert.False(t, pool.AffectsPaths(0))

	_, ok := c.Find(3, 5)
	assert.True(t, ok)
	assert.True(t, pool.AffectsPaths(4))
}

func TestInvalidateEdge(t *testing.T) {
	c, _ := newCache(t, 8, 8)
	c.Add(0, 2, []core.NodeID{0, 1, 2}, 2)
	c.Add(2, 0, []core.NodeID{2, 1, 0}, 2)
	c.Add(1, 3, []core.NodeID{1, 3}, 1)

	c.InvalidateEdge(0, 1)
	_, ok := c.Find(0, 2)
	assert.False(t, ok)
	_, ok = c.Find(2, 0)
	assert.True(t, ok, "reverse traversal uses a different edge")
	_, ok = c.Find(1, 3)
	assert.True(t, ok)
}

func TestVersionValidation(t *testing.T) {
	c, pool := newCache(t, 8, 8)
	c.Add(0, 2, []core.NodeID{0, 1, 2}, 2)
	c.Add(3, 4, []core.NodeID{3, 4}, 1)

	pool.BumpNode(1)

	_, ok := c.Find(0, 2)
	assert.False(t, ok, "entry through a changed node is stale")
	_, ok = c.Find(3, 4)
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestProjected(t *testing.T) {
	c, pool := newCache(t, 4, 8)
	proj := Projection{Point: geom.V(5, 0), From: 0, To: 1}

	require.True(t, c.AddProjected(geom.V(5.2, 3.1), 2, []core.NodeID{1, 2}, 7, proj))

	res, ok := c.FindProjected(geom.V(5.9, 3.9), 2, 1, 0)
	require.True(t, ok, "same quantization cell, either edge direction")
	assert.Equal(t, []core.NodeID{1, 2}, res.Nodes)
	assert.Equal(t, geom.V(5, 0), res.Entry)

	_, ok = c.FindProjected(geom.V(6.1, 3.1), 2, 0, 1)
	assert.False(t, ok)

	assert.True(t, pool.AffectsPaths(0), "anchor is indexed")
	c.InvalidateEdge(1, 0)
	_, ok = c.FindProjected(geom.V(5.2, 3.1), 2, 0, 1)
	assert.False(t, ok)
}

func TestProjectedOtherEdgeIsStale(t *testing.T) {
	c, _ := newCache(t, 4, 8)
	c.AddProjected(geom.V(0, 0), 2, []core.NodeID{1, 2}, 1, Projection{From: 0, To: 1})
	c.AddProjected(geom.V(50, 50), 2, []core.NodeID{1, 2}, 1, Projection{From: 0, To: 1})
	require.Equal(t, 2, c.ProjectedLen())

	_, ok := c.FindProjected(geom.V(0, 0), 2, 3, 4)
	assert.False(t, ok)
	assert.Equal(t, 1, c.ProjectedLen(), "stale entry dropped")

	_, ok = c.FindProjected(geom.V(50, 50), 2, 0, 1)
	assert.True(t, ok)

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
}

func TestClear(t *testing.T) {
	c, pool := newCache(t, 4, 8)
	c.Add(0, 2, []core.NodeID{0, 1, 2}, 2)
	c.AddProjected(geom.V(0, 0), 2, []core.NodeID{1, 2}, 1, Projection{From: 0, To: 1})

	c.Clear()
	assert.Zero(t, c.Len())
	assert.False(t, pool.AffectsPaths(1))

	// all slots are reusable
	for i := 0; i < 8; i++ {
		c.Add(core.NodeID(i), 9, []core.NodeID{core.NodeID(i), 9}, 1)
	}
	assert.Equal(t, 4, c.Len())
}
