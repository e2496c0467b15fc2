package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/waygraph/geom"
)

func TestGridGraph(t *testing.T) {
	rng := NewRNG(4711)

	g := rng.GridGraph(4, 3, 10, 0)

	assert.Len(t, g.Points, 12)
	assert.Len(t, g.Edges, 3*3+4*2)
	assert.Equal(t, geom.V(30, 20), g.Points[11])
	for _, e := range g.Edges {
		assert.True(t, e.Bidirectional)
		assert.GreaterOrEqual(t, e.Cost, geom.Distance(g.Points[e.From], g.Points[e.To]))
	}
}

func TestRandomGraphDeterministic(t *testing.T) {
	a := NewRNG(1).RandomGraph(20, 3, 100)
	b := NewRNG(1).RandomGraph(20, 3, 100)

	assert.Equal(t, a, b)
	assert.Len(t, a.Edges, 60)
	for _, e := range a.Edges {
		assert.NotEqual(t, e.From, e.To)
	}
}

func TestShortestPath(t *testing.T) {
	edges := []Edge{
		{From: 0, To: 1, Cost: 1},
		{From: 1, To: 2, Cost: 1},
		{From: 0, To: 2, Cost: 5},
		{From: 3, To: 0, Cost: 1, Bidirectional: true},
	}

	cost, path, ok := ShortestPath(4, edges, 3, 2)
	require.True(t, ok)
	assert.Equal(t, float32(3), cost)
	assert.Equal(t, []int{3, 0, 1, 2}, path)

	_, _, ok = ShortestPath(4, edges, 2, 0)
	assert.False(t, ok)
}

func TestZipf(t *testing.T) {
	rng := NewRNG(4711)

	counts := make([]int, 10)
	for i := 0; i < 1000; i++ {
		counts[rng.Zipf(10, 1.5)]++
	}
	assert.Greater(t, counts[0], counts[9])
}
