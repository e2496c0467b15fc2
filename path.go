package waygraph

import (
	"github.com/hupe1980/waygraph/core"
	"github.com/hupe1980/waygraph/geom"
	"github.com/hupe1980/waygraph/internal/graph"
)

// Handle is a generational node reference.
type Handle = core.Handle

// InvalidHandle never resolves to a node. Passed as the start of
// FindPathProjectedWithExit it selects a search from a point.
var InvalidHandle = core.InvalidHandle

// InvalidID is the "no result" node id.
const InvalidID = core.InvalidID

// NodeMove is one element of a MoveNodes batch.
type NodeMove struct {
	Handle   Handle
	Position geom.Vec2
}

// EdgeInfo describes an edge returned by NodeEdges.
type EdgeInfo struct {
	From          Handle
	To            Handle
	Cost          float32
	Bidirectional bool
}

// Path is the result of a search. Nodes is owned by the caller.
type Path struct {
	Nodes []Handle
	Cost  float32
	// Cached reports a path cache hit.
	Cached bool
	// Truncated reports that Nodes was cut to the requested maximum length.
	// Cost is still the cost of the full path.
	Truncated bool
}

// Len returns the number of nodes in the path.
func (p Path) Len() int { return len(p.Nodes) }

// ProjectedPath is the result of a search starting or ending off the graph.
type ProjectedPath struct {
	Path
	// Entry is where the path joins the graph.
	Entry geom.Vec2
	// Exit is where the path leaves the graph. Zero unless the search had
	// an exit point.
	Exit geom.Vec2
}

func handles(g *graph.Store, ids []core.NodeID) []Handle {
	out := make([]Handle, len(ids))
	for i, id := range ids {
		out[i] = g.Handle(id)
	}
	return out
}
