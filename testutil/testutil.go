package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/waygraph/geom"
)

// Edge is a generated edge between two point indices.
type Edge struct {
	From, To      int
	Cost          float32
	Bidirectional bool
}

// Graph is a generated waypoint graph.
type Graph struct {
	Points []geom.Vec2
	Edges  []Edge
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Point returns a uniform point in [0, extent)^2.
func (r *RNG) Point(extent float32) geom.Vec2 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return geom.V(r.rand.Float32()*extent, r.rand.Float32()*extent)
}

// GridGraph returns a w x h lattice with the given spacing. Neighbours are
// linked bidirectionally; each link is dropped with probability dropRate.
// Costs are the Euclidean length scaled by a random factor in [1, 1.5), so
// Euclidean distance stays an admissible heuristic.
func (r *RNG) GridGraph(w, h int, spacing, dropRate float32) Graph {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := Graph{Points: make([]geom.Vec2, 0, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Points = append(g.Points, geom.V(float32(x)*spacing, float32(y)*spacing))
		}
	}

	link := func(a, b int) {
		if r.rand.Float32() < dropRate {
			return
		}
		d := geom.Distance(g.Points[a], g.Points[b])
		g.Edges = append(g.Edges, Edge{From: a, To: b, Cost: d * (1 + 0.5*r.rand.Float32()), Bidirectional: true})
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if x+1 < w {
				link(i, i+1)
			}
			if y+1 < h {
				link(i, i+w)
			}
		}
	}
	return g
}

// RandomGraph scatters n points in [0, extent)^2 and links each to degree
// random others with directed edges. Costs are at least the Euclidean length.
func (r *RNG) RandomGraph(n, degree int, extent float32) Graph {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := Graph{Points: make([]geom.Vec2, n)}
	for i := range g.Points {
		g.Points[i] = geom.V(r.rand.Float32()*extent, r.rand.Float32()*extent)
	}
	if n < 2 {
		return g
	}
	for from := 0; from < n; from++ {
		seen := map[int]bool{from: true}
		for k := 0; k < degree && len(seen) < n; k++ {
			to := r.rand.Intn(n)
			for seen[to] {
				to = r.rand.Intn(n)
			}
			seen[to] = true
			d := geom.Distance(g.Points[from], g.Points[to])
			g.Edges = append(g.Edges, Edge{From: from, To: to, Cost: d * (1 + r.rand.Float32())})
		}
	}
	return g
}

// Zipf returns a Zipfian-distributed value in [0, n).
// P(k) is proportional to 1/k^s where s is the skew parameter.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}
	return n - 1
}

// ShortestPath computes the exact cheapest path from start to goal over n
// nodes with Dijkstra's algorithm. It is quadratic in n and meant as ground
// truth for small graphs only.
func ShortestPath(n int, edges []Edge, start, goal int) (float32, []int, bool) {
	adj := make([][]Edge, n)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e)
		if e.Bidirectional {
			adj[e.To] = append(adj[e.To], Edge{From: e.To, To: e.From, Cost: e.Cost})
		}
	}

	dist := make([]float32, n)
	prev := make([]int, n)
	done := make([]bool, n)
	for i := range dist {
		dist[i] = float32(math.Inf(1))
		prev[i] = -1
	}
	dist[start] = 0

	for {
		cur := -1
		for i := range dist {
			if !done[i] && !math.IsInf(float64(dist[i]), 1) && (cur < 0 || dist[i] < dist[cur]) {
				cur = i
			}
		}
		if cur < 0 {
			return 0, nil, false
		}
		if cur == goal {
			break
		}
		done[cur] = true
		for _, e := range adj[cur] {
			if d := dist[cur] + e.Cost; d < dist[e.To] {
				dist[e.To] = d
				prev[e.To] = cur
			}
		}
	}

	var path []int
	for at := goal; at >= 0; at = prev[at] {
		path = append(path, at)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return dist[goal], path, true
}
