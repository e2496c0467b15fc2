package waygraph

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/hupe1980/waygraph/internal/engine"
	"github.com/hupe1980/waygraph/internal/heap"
	"github.com/hupe1980/waygraph/resource"
)

// SameNodePolicy decides what a search with identical start and goal returns.
type SameNodePolicy = engine.SameNodePolicy

const (
	// SameNodeError fails with ErrStartGoalSame.
	SameNodeError = engine.SameNodeError
	// SameNodeTrivial succeeds with a one-node path of cost 0.
	SameNodeTrivial = engine.SameNodeTrivial
)

// Options configures a Pathfinder. All capacities are fixed for its lifetime.
type Options struct {
	// MaxNodes is the node capacity, transient projection nodes included.
	MaxNodes int `validate:"min=1"`

	// MaxEdgesPerNode is the outgoing edge capacity of every node.
	MaxEdgesPerNode int `validate:"min=1"`

	// HeapBlockSize is the minimum size of a search's priority queue.
	HeapBlockSize int `validate:"min=1"`

	// MaxCachedPathLength is the longest path, in nodes, the path cache keeps.
	MaxCachedPathLength int `validate:"min=1"`

	// PathCacheSize is the entry capacity of each path cache table.
	PathCacheSize int `validate:"min=1"`

	// ProjectionQuantum is the grid step projected start points are snapped
	// to for cache lookups.
	ProjectionQuantum float32 `validate:"gt=0"`

	// HeuristicWeight scales the Euclidean heuristic. 0 turns A* into
	// Dijkstra; values above 1 trade optimality for speed.
	HeuristicWeight float32 `validate:"gte=0"`

	// SameNodePolicy handles searches with start == goal.
	SameNodePolicy SameNodePolicy `validate:"oneof=0 1"`

	// StrictMaxLen makes a path longer than the requested maximum an error
	// (ErrPathTooLong) instead of truncating it.
	StrictMaxLen bool

	// MemoryLimitBytes bounds the pre-allocated pools. 0 disables the limit.
	// Ignored when Resources is set.
	MemoryLimitBytes int64 `validate:"gte=0"`

	// Resources is a controller shared between pathfinders. Its memory budget
	// covers all of them.
	Resources *resource.Controller `validate:"-"`

	// Logger receives operation logs. Defaults to NoopLogger.
	Logger *Logger `validate:"-"`

	// MetricsCollector receives operation metrics. Defaults to NoopMetricsCollector.
	MetricsCollector MetricsCollector `validate:"-"`
}

// DefaultOptions contains the default configuration.
var DefaultOptions = Options{
	MaxNodes:            1024,
	MaxEdgesPerNode:     8,
	HeapBlockSize:       heap.DefaultBlockSize,
	MaxCachedPathLength: 256,
	PathCacheSize:       256,
	ProjectionQuantum:   1,
	HeuristicWeight:     1,
	SameNodePolicy:      SameNodeError,
}

var optionsValidator = validator.New(validator.WithRequiredStructEnabled())

func (o *Options) validate() error {
	if err := optionsValidator.Struct(o); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

func (o *Options) engineConfig() engine.Config {
	return engine.Config{
		MaxNodes:            o.MaxNodes,
		MaxEdgesPerNode:     o.MaxEdgesPerNode,
		HeapBlockSize:       o.HeapBlockSize,
		MaxCachedPathLength: o.MaxCachedPathLength,
		PathCacheSize:       o.PathCacheSize,
		ProjectionQuantum:   o.ProjectionQuantum,
		HeuristicWeight:     o.HeuristicWeight,
		SameNode:            o.SameNodePolicy,
		StrictMaxLen:        o.StrictMaxLen,
	}
}
