package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/waygraph/core"
	"github.com/hupe1980/waygraph/geom"
	"github.com/hupe1980/waygraph/testutil"
)

func TestFindPathRecomputesAfterMove(t *testing.T) {
	e := newTestEngine(t, 8)
	ids := addNodes(t, e, geom.V(0, 0), geom.V(10, 0), geom.V(10, 10))
	a, b, c := ids[0], ids[1], ids[2]
	require.NoError(t, e.AddEdge(a, b, 10, true))
	require.NoError(t, e.AddEdge(b, c, 10, true))

	first, err := e.FindPath(a, c, 0)
	require.NoError(t, err)
	assert.Equal(t, []core.NodeID{a, b, c}, first.Nodes)
	assert.Equal(t, float32(20), first.Cost)
	assert.False(t, first.Cached)

	again, err := e.FindPath(a, c, 0)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, first.Nodes, again.Nodes)

	require.NoError(t, e.MoveNode(b, geom.V(0, 10)))

	moved, err := e.FindPath(a, c, 0)
	require.NoError(t, err)
	assert.False(t, moved.Cached)
	assert.Equal(t, []core.NodeID{a, b, c}, moved.Nodes)
	assert.InDelta(t, 20, moved.Cost, 1e-4)

	// results are caller owned
	moved.Nodes[0] = core.InvalidID
	cached, err := e.FindPath(a, c, 0)
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, a, cached.Nodes[0])
}

func TestMoveKeepsUnrelatedEntries(t *testing.T) {
	e := newTestEngine(t, 8)
	ids := line(t, e, 3)
	others := addNodes(t, e, geom.V(0, 50), geom.V(10, 50))
	require.NoError(t, e.AddEdge(others[0], others[1], 10, false))

	_, err := e.FindPath(ids[0], ids[2], 0)
	require.NoError(t, err)
	_, err = e.FindPath(others[0], others[1], 0)
	require.NoError(t, err)

	require.NoError(t, e.MoveNode(ids[1], geom.V(10, 3)))

	res, err := e.FindPath(others[0], others[1], 0)
	require.NoError(t, err)
	assert.True(t, res.Cached)

	res, err = e.FindPath(ids[0], ids[2], 0)
	require.NoError(t, err)
	assert.False(t, res.Cached)
}

func TestReusedIDNeverServesStalePath(t *testing.T) {
	e := newTestEngine(t, 8)
	ids := line(t, e, 3)

	_, err := e.FindPath(ids[0], ids[2], 0)
	require.NoError(t, err)

	require.NoError(t, e.RemoveNode(ids[1]))
	reused, err := e.AddNode(geom.V(10, 40))
	require.NoError(t, err)
	require.Equal(t, ids[1], reused, "slot is reused")

	_, err = e.FindPath(ids[0], ids[2], 0)
	assert.ErrorIs(t, err, core.ErrNoPath)

	require.NoError(t, e.AddEdge(ids[0], reused, 45, false))
	require.NoError(t, e.AddEdge(reused, ids[2], 45, false))

	res, err := e.FindPath(ids[0], ids[2], 0)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, float32(90), res.Cost)
}

func TestFindPathMatchesDijkstra(t *testing.T) {
	for _, tc := range []struct {
		name  string
		graph testutil.Graph
	}{
		{"grid", testutil.NewRNG(7).GridGraph(8, 8, 10, 0.2)},
		{"random", testutil.NewRNG(11).RandomGraph(60, 3, 500)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g := tc.graph
			e := newTestEngine(t, len(g.Points))
			ids := addNodes(t, e, g.Points...)
			for _, edge := range g.Edges {
				require.NoError(t, e.AddEdge(ids[edge.From], ids[edge.To], edge.Cost, edge.Bidirectional))
			}

			rng := testutil.NewRNG(3)
			for i := 0; i < 50; i++ {
				s, d := rng.Intn(len(ids)), rng.Intn(len(ids))
				if s == d {
					continue
				}
				want, _, ok := testutil.ShortestPath(len(g.Points), g.Edges, s, d)

				res, err := e.FindPath(ids[s], ids[d], 0)
				if !ok {
					assert.ErrorIs(t, err, core.ErrNoPath)
					continue
				}
				require.NoError(t, err)
				assert.InEpsilon(t, want, res.Cost, 1e-4)
				assert.Equal(t, ids[s], res.Nodes[0])
				assert.Equal(t, ids[d], res.Nodes[len(res.Nodes)-1])
				assert.InEpsilon(t, res.Cost, pathCost(t, e, res.Nodes), 1e-4)
			}
		})
	}
}

func pathCost(t *testing.T, e *Engine, nodes []core.NodeID) float32 {
	t.Helper()
	var total float32
	for i := 1; i < len(nodes); i++ {
		edge, ok := e.Graph().Edge(nodes[i-1], nodes[i])
		require.True(t, ok)
		total += edge.Cost
	}
	return total
}

func TestDijkstraModeMatchesAStar(t *testing.T) {
	g := testutil.NewRNG(5).GridGraph(6, 6, 10, 0.1)

	costs := make([]float32, 0, 2)
	for _, w := range []float32{1, 0} {
		cfg := testConfig(len(g.Points))
		cfg.HeuristicWeight = w
		e, err := New(cfg)
		require.NoError(t, err)
		ids := addNodes(t, e, g.Points...)
		for _, edge := range g.Edges {
			require.NoError(t, e.AddEdge(ids[edge.From], ids[edge.To], edge.Cost, edge.Bidirectional))
		}
		res, err := e.FindPath(ids[0], ids[len(ids)-1], 0)
		if err != nil {
			require.ErrorIs(t, err, core.ErrNoPath)
			return
		}
		costs = append(costs, res.Cost)
	}
	assert.InDelta(t, costs[0], costs[1], 1e-3)
}

func TestFindPathInvalidNodes(t *testing.T) {
	e := newTestEngine(t, 4)
	ids := line(t, e, 2)

	_, err := e.FindPath(3, ids[1], 0)
	assert.ErrorIs(t, err, core.ErrStartNodeInvalid)
	_, err = e.FindPath(ids[0], core.InvalidID, 0)
	assert.ErrorIs(t, err, core.ErrGoalNodeInvalid)
	assert.Equal(t, core.StatusGoalNodeInvalid, core.StatusOf(err))
}

func TestSameNodePolicy(t *testing.T) {
	e := newTestEngine(t, 4)
	ids := line(t, e, 2)

	_, err := e.FindPath(ids[0], ids[0], 0)
	assert.ErrorIs(t, err, core.ErrStartGoalSame)

	cfg := testConfig(4)
	cfg.SameNode = SameNodeTrivial
	e, err = New(cfg)
	require.NoError(t, err)
	ids = line(t, e, 2)

	res, err := e.FindPath(ids[1], ids[1], 0)
	require.NoError(t, err)
	assert.Equal(t, []core.NodeID{ids[1]}, res.Nodes)
	assert.Zero(t, res.Cost)
}

func TestMaxLen(t *testing.T) {
	e := newTestEngine(t, 8)
	ids := line(t, e, 5)

	res, err := e.FindPath(ids[0], ids[4], 3)
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, ids[:3], res.Nodes)
	assert.Equal(t, float32(40), res.Cost)

	// the cached full path is unaffected by truncation
	res, err = e.FindPath(ids[0], ids[4], 0)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Len(t, res.Nodes, 5)

	cfg := testConfig(8)
	cfg.StrictMaxLen = true
	strict, err := New(cfg)
	require.NoError(t, err)
	ids = line(t, strict, 5)

	_, err = strict.FindPath(ids[0], ids[4], 3)
	assert.ErrorIs(t, err, core.ErrPathTooLong)
	_, err = strict.FindPath(ids[0], ids[4], 5)
	assert.NoError(t, err)
}

func TestUncachedLongPaths(t *testing.T) {
	cfg := testConfig(16)
	cfg.MaxCachedPathLength = 4
	e, err := New(cfg)
	require.NoError(t, err)
	ids := line(t, e, 8)

	_, err = e.FindPath(ids[0], ids[7], 0)
	require.NoError(t, err)
	res, err := e.FindPath(ids[0], ids[7], 0)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Len(t, res.Nodes, 8)
}

func TestGraphChangedTooOften(t *testing.T) {
	e := newTestEngine(t, 8)
	ids := line(t, e, 4)

	e.afterExpand = func(core.NodeID) { e.pool.BumpEdge() }

	_, err := e.FindPath(ids[0], ids[3], 0)
	assert.ErrorIs(t, err, core.ErrGraphChangedTooOften)
	assert.Equal(t, uint64(MaxRetries), e.Stats().Retries)
}

func TestGraphChangedOnceRetries(t *testing.T) {
	e := newTestEngine(t, 8)
	ids := line(t, e, 4)

	fired := false
	e.afterExpand = func(core.NodeID) {
		if !fired {
			fired = true
			require.NoError(t, e.MoveNode(ids[3], geom.V(30, 1)))
		}
	}

	res, err := e.FindPath(ids[0], ids[3], 0)
	require.NoError(t, err)
	assert.Equal(t, ids, res.Nodes)
	assert.Equal(t, uint64(1), e.Stats().Retries)
}

func TestGoalRemovedDuringSearch(t *testing.T) {
	e := newTestEngine(t, 8)
	ids := line(t, e, 4)

	e.afterExpand = func(core.NodeID) {
		if e.graph.Active(ids[3]) {
			require.NoError(t, e.RemoveNode(ids[3]))
		}
	}

	_, err := e.FindPath(ids[0], ids[3], 0)
	assert.ErrorIs(t, err, core.ErrGoalNodeInvalid)
}

func TestHeapBlockSizedForGraph(t *testing.T) {
	cfg := testConfig(8)
	cfg.HeapBlockSize = 1
	e, err := New(cfg)
	require.NoError(t, err)

	// star: the hub pushes all spokes at once
	hub, err := e.AddNode(geom.V(0, 0))
	require.NoError(t, err)
	spokes := addNodes(t, e, geom.V(10, 0), geom.V(0, 10), geom.V(-10, 0), geom.V(0, -10))
	for _, s := range spokes {
		require.NoError(t, e.AddEdge(hub, s, 10, false))
	}
	goal, err := e.AddNode(geom.V(50, 50))
	require.NoError(t, err)
	require.NoError(t, e.AddEdge(spokes[0], goal, 100, false))

	// blocks are sized for the graph, so the search succeeds
	_, err = e.FindPath(hub, goal, 0)
	require.NoError(t, err)
}
