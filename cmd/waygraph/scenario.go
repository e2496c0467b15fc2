package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/waygraph"
	"github.com/hupe1980/waygraph/geom"
)

// Query kinds.
const (
	KindNode      = "node"
	KindProjected = "projected"
	KindExit      = "exit"
)

// Scenario is a graph plus phases of mutations and queries.
type Scenario struct {
	Options ScenarioOptions `yaml:"options"`
	Nodes   []NodeSpec      `yaml:"nodes" validate:"required,min=1,dive"`
	Edges   []EdgeSpec      `yaml:"edges" validate:"dive"`
	Phases  []Phase         `yaml:"phases" validate:"required,min=1,dive"`
}

// ScenarioOptions overrides waygraph.DefaultOptions. Zero values keep the
// default.
type ScenarioOptions struct {
	MaxNodes            int      `yaml:"max_nodes" validate:"gte=0"`
	MaxEdgesPerNode     int      `yaml:"max_edges_per_node" validate:"gte=0"`
	MaxCachedPathLength int      `yaml:"max_cached_path_length" validate:"gte=0"`
	PathCacheSize       int      `yaml:"path_cache_size" validate:"gte=0"`
	ProjectionQuantum   float32  `yaml:"projection_quantum" validate:"gte=0"`
	HeuristicWeight     *float32 `yaml:"heuristic_weight" validate:"omitempty,gte=0"`
	TrivialSameNode     bool     `yaml:"trivial_same_node"`
	StrictMaxLen        bool     `yaml:"strict_max_len"`
}

// NodeSpec names a waypoint.
type NodeSpec struct {
	Name string    `yaml:"name" validate:"required"`
	Pos  geom.Vec2 `yaml:"pos"`
}

// EdgeSpec connects two named waypoints.
type EdgeSpec struct {
	From          string  `yaml:"from" validate:"required"`
	To            string  `yaml:"to" validate:"required"`
	Cost          float32 `yaml:"cost" validate:"gte=0"`
	Bidirectional bool    `yaml:"bidirectional"`
}

// MoveSpec relocates a named waypoint.
type MoveSpec struct {
	Node string    `yaml:"node" validate:"required"`
	Pos  geom.Vec2 `yaml:"pos"`
}

// Phase applies its mutations in order, then runs its queries concurrently.
type Phase struct {
	Name        string     `yaml:"name"`
	Moves       []MoveSpec `yaml:"moves" validate:"dive"`
	AddEdges    []EdgeSpec `yaml:"add_edges" validate:"dive"`
	RemoveEdges []EdgeSpec `yaml:"remove_edges" validate:"dive"`
	RemoveNodes []string   `yaml:"remove_nodes"`
	Queries     []Query    `yaml:"queries" validate:"dive"`
}

// Query is one search. Node queries use From; projected queries use Pos;
// exit queries use End and either From or Pos.
type Query struct {
	Name   string     `yaml:"name"`
	Kind   string     `yaml:"kind" validate:"required,oneof=node projected exit"`
	From   string     `yaml:"from" validate:"required_if=Kind node"`
	To     string     `yaml:"to" validate:"required_unless=Kind exit"`
	Pos    *geom.Vec2 `yaml:"pos" validate:"required_if=Kind projected"`
	End    *geom.Vec2 `yaml:"end" validate:"required_if=Kind exit"`
	MaxLen int        `yaml:"max_len" validate:"gte=0"`
}

// Result is the outcome of one query.
type Result struct {
	Phase  string     `yaml:"phase"`
	Query  string     `yaml:"query"`
	Kind   string     `yaml:"kind"`
	Nodes  []string   `yaml:"nodes,flow"`
	Cost   float32    `yaml:"cost"`
	Cached bool       `yaml:"cached"`
	Entry  *geom.Vec2 `yaml:"entry,omitempty"`
	Exit   *geom.Vec2 `yaml:"exit,omitempty"`
	Error  string     `yaml:"error,omitempty"`
}

var scenarioValidator = validator.New(validator.WithRequiredStructEnabled())

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseScenario(f)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks struct constraints and that every reference names a
// declared node.
func (s *Scenario) Validate() error {
	if err := scenarioValidator.Struct(s); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}

	known := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if known[n.Name] {
			return fmt.Errorf("invalid scenario: duplicate node %q", n.Name)
		}
		known[n.Name] = true
	}

	var errs []error
	ref := func(where, name string) {
		if name != "" && !known[name] {
			errs = append(errs, fmt.Errorf("%s: unknown node %q", where, name))
		}
	}
	for i, e := range s.Edges {
		ref(fmt.Sprintf("edges[%d]", i), e.From)
		ref(fmt.Sprintf("edges[%d]", i), e.To)
	}
	for i, p := range s.Phases {
		for j, m := range p.Moves {
			ref(fmt.Sprintf("phases[%d].moves[%d]", i, j), m.Node)
		}
		for j, e := range p.AddEdges {
			ref(fmt.Sprintf("phases[%d].add_edges[%d]", i, j), e.From)
			ref(fmt.Sprintf("phases[%d].add_edges[%d]", i, j), e.To)
		}
		for j, e := range p.RemoveEdges {
			ref(fmt.Sprintf("phases[%d].remove_edges[%d]", i, j), e.From)
			ref(fmt.Sprintf("phases[%d].remove_edges[%d]", i, j), e.To)
		}
		for j, n := range p.RemoveNodes {
			ref(fmt.Sprintf("phases[%d].remove_nodes[%d]", i, j), n)
		}
		for j, q := range p.Queries {
			ref(fmt.Sprintf("phases[%d].queries[%d]", i, j), q.From)
			ref(fmt.Sprintf("phases[%d].queries[%d]", i, j), q.To)
			if q.Kind == KindExit && q.From == "" && q.Pos == nil {
				errs = append(errs, fmt.Errorf("phases[%d].queries[%d]: exit query needs from or pos", i, j))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	return nil
}

// Apply copies the overrides onto o.
func (so ScenarioOptions) Apply(o *waygraph.Options) {
	if so.MaxNodes > 0 {
		o.MaxNodes = so.MaxNodes
	}
	if so.MaxEdgesPerNode > 0 {
		o.MaxEdgesPerNode = so.MaxEdgesPerNode
	}
	if so.MaxCachedPathLength > 0 {
		o.MaxCachedPathLength = so.MaxCachedPathLength
	}
	if so.PathCacheSize > 0 {
		o.PathCacheSize = so.PathCacheSize
	}
	if so.ProjectionQuantum > 0 {
		o.ProjectionQuantum = so.ProjectionQuantum
	}
	if so.HeuristicWeight != nil {
		o.HeuristicWeight = *so.HeuristicWeight
	}
	if so.TrivialSameNode {
		o.SameNodePolicy = waygraph.SameNodeTrivial
	}
	o.StrictMaxLen = so.StrictMaxLen
}

// Runner executes a scenario against a synchronized pathfinder.
type Runner struct {
	pf      *waygraph.Sync
	workers int

	handles map[string]waygraph.Handle
	names   map[waygraph.Handle]string
}

// NewRunner creates a Runner. workers bounds concurrent queries per phase;
// values below 1 mean one.
func NewRunner(pf *waygraph.Sync, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		pf:      pf,
		workers: workers,
		handles: make(map[string]waygraph.Handle),
		names:   make(map[waygraph.Handle]string),
	}
}

// Run builds the graph and executes every phase. Query failures are
// reported in the results; mutation failures abort the run.
func (r *Runner) Run(ctx context.Context, s *Scenario) ([]Result, error) {
	for _, n := range s.Nodes {
		h, err := r.pf.AddNode(n.Pos)
		if err != nil {
			return nil, fmt.Errorf("add node %q: %w", n.Name, err)
		}
		r.handles[n.Name] = h
		r.names[h] = n.Name
	}
	if err := r.addEdges(s.Edges); err != nil {
		return nil, err
	}

	var results []Result
	for i, p := range s.Phases {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("phase-%d", i)
		}
		if err := r.mutate(p); err != nil {
			return results, fmt.Errorf("%s: %w", name, err)
		}
		out, err := r.query(ctx, name, p.Queries)
		if err != nil {
			return results, fmt.Errorf("%s: %w", name, err)
		}
		results = append(results, out...)
	}
	return results, nil
}

func (r *Runner) addEdges(edges []EdgeSpec) error {
	for _, e := range edges {
		if err := r.pf.AddEdge(r.handles[e.From], r.handles[e.To], e.Cost, e.Bidirectional); err != nil {
			return fmt.Errorf("add edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return nil
}

func (r *Runner) mutate(p Phase) error {
	if len(p.Moves) > 0 {
		moves := make([]waygraph.NodeMove, len(p.Moves))
		for i, m := range p.Moves {
			moves[i] = waygraph.NodeMove{Handle: r.handles[m.Node], Position: m.Pos}
		}
		if err := r.pf.MoveNodes(moves); err != nil {
			return fmt.Errorf("move nodes: %w", err)
		}
	}
	if err := r.addEdges(p.AddEdges); err != nil {
		return err
	}
	for _, e := range p.RemoveEdges {
		if err := r.pf.RemoveEdge(r.handles[e.From], r.handles[e.To]); err != nil {
			return fmt.Errorf("remove edge %s->%s: %w", e.From, e.To, err)
		}
	}
	for _, n := range p.RemoveNodes {
		if err := r.pf.RemoveNode(r.handles[n]); err != nil {
			return fmt.Errorf("remove node %q: %w", n, err)
		}
	}
	return nil
}

func (r *Runner) query(ctx context.Context, phase string, queries []Query) ([]Result, error) {
	results := make([]Result, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, q := range queries {
		g.Go(func() error {
			res, err := r.search(ctx, q)
			if err != nil && errors.Is(err, ctx.Err()) {
				return err
			}
			res.Phase = phase
			res.Query = q.Name
			if res.Query == "" {
				res.Query = fmt.Sprintf("query-%d", i)
			}
			res.Kind = q.Kind
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) search(ctx context.Context, q Query) (Result, error) {
	switch q.Kind {
	case KindNode:
		p, err := r.pf.FindPath(ctx, r.handles[q.From], r.handles[q.To], q.MaxLen)
		if err != nil {
			return Result{}, err
		}
		return r.result(p), nil
	case KindProjected:
		p, err := r.pf.FindPathProjected(ctx, *q.Pos, r.handles[q.To], q.MaxLen)
		if err != nil {
			return Result{}, err
		}
		res := r.result(p.Path)
		res.Entry = &p.Entry
		return res, nil
	case KindExit:
		start := waygraph.InvalidHandle
		var startPos geom.Vec2
		if q.From != "" {
			start = r.handles[q.From]
		} else {
			startPos = *q.Pos
		}
		p, err := r.pf.FindPathProjectedWithExit(ctx, startPos, *q.End, start, q.MaxLen)
		if err != nil {
			return Result{}, err
		}
		res := r.result(p.Path)
		res.Entry, res.Exit = &p.Entry, &p.Exit
		return res, nil
	}
	return Result{}, fmt.Errorf("unknown query kind %q", q.Kind)
}

func (r *Runner) result(p waygraph.Path) Result {
	nodes := make([]string, len(p.Nodes))
	for i, h := range p.Nodes {
		nodes[i] = r.names[h]
	}
	return Result{Nodes: nodes, Cost: p.Cost, Cached: p.Cached}
}
