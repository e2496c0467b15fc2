package waygraph

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/waygraph/geom"
	"github.com/hupe1980/waygraph/resource"
)

func TestSyncConcurrentSearches(t *testing.T) {
	pf := newTestPathfinder(t)
	a, b, c := abc(t, pf)
	s := NewSync(pf)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			path, err := s.FindPath(t.Context(), a, c, 0)
			if err == nil && len(path.Nodes) != 3 {
				err = assert.AnError
			}
			errs <- err
		}()
		go func(i int) {
			defer wg.Done()
			errs <- s.MoveNode(b, geom.V(10, float32(i%2)))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, s.SearchStats().Searches, uint64(32))
}

func TestSyncResultsAreNotShared(t *testing.T) {
	pf := newTestPathfinder(t)
	a, _, c := abc(t, pf)
	s := NewSync(pf)

	first, err := s.FindPath(t.Context(), a, c, 0)
	require.NoError(t, err)
	first.Nodes[0] = InvalidHandle

	second, err := s.FindPath(t.Context(), a, c, 0)
	require.NoError(t, err)
	assert.Equal(t, a, second.Nodes[0])
}

func TestSyncProjected(t *testing.T) {
	pf := newTestPathfinder(t)
	_, b, c := abc(t, pf)
	s := NewSync(pf)

	path, err := s.FindPathProjected(t.Context(), geom.V(5, 2), c, 0)
	require.NoError(t, err)
	assert.Equal(t, []Handle{b, c}, path.Nodes)

	exit, err := s.FindPathProjectedWithExit(t.Context(), geom.V(5, 2), geom.V(12, 5), InvalidHandle, 0)
	require.NoError(t, err)
	assert.Equal(t, []Handle{b}, exit.Nodes)
}

func TestSyncDoAndErrors(t *testing.T) {
	pf := newTestPathfinder(t)
	s := NewSync(pf)

	var a, c Handle
	require.NoError(t, s.Do(func(pf *Pathfinder) error {
		a, _, c = abc(t, pf)
		return nil
	}))

	require.NoError(t, s.RemoveEdge(a, c))
	_, err := s.NodeEdges(a, true, true)
	require.NoError(t, err)

	require.NoError(t, s.RemoveNode(c))
	_, err = s.FindPath(t.Context(), a, c, 0)
	assert.ErrorIs(t, err, ErrGoalNodeInvalid)

	_, err = s.NodePosition(c)
	assert.ErrorIs(t, err, ErrStartNodeInvalid)
}

func TestSyncContextCanceled(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxConcurrentSearches: 1})
	pf := newTestPathfinder(t, func(o *Options) { o.Resources = rc })
	a, _, c := abc(t, pf)
	s := NewSync(pf)

	require.True(t, rc.TryAcquireSearch())
	defer rc.ReleaseSearch()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := s.FindPath(ctx, a, c, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSyncJoinerSurvivesLeaderCancel(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxConcurrentSearches: 1})
	pf := newTestPathfinder(t, func(o *Options) { o.Resources = rc })
	a, b, c := abc(t, pf)
	s := NewSync(pf)

	require.True(t, rc.TryAcquireSearch())

	leaderCtx, cancel := context.WithCancel(t.Context())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := s.FindPath(leaderCtx, a, c, 0)
		leaderErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	type result struct {
		path Path
		err  error
	}
	joiner := make(chan result, 1)
	go func() {
		p, err := s.FindPath(context.Background(), a, c, 0)
		joiner <- result{p, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	rc.ReleaseSearch()
	select {
	case r := <-joiner:
		require.NoError(t, r.err)
		assert.Equal(t, []Handle{a, b, c}, r.path.Nodes)
	case <-time.After(2 * time.Second):
		t.Fatal("joiner did not finish")
	}
}
