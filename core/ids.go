package core

import "math"

// NodeID is a dense slot index into the graph's node arena.
// It is strictly 32-bit and is used for all hot-path structures
// (adjacency, bitsets, heaps, caches).
type NodeID = uint32

// InvalidID is the universal "no result" sentinel for node ids and lengths.
const InvalidID NodeID = math.MaxUint32

// Handle is a generational reference to a node slot.
// A slot's generation advances every time its node is removed, so a handle
// taken before a removal never resolves to the node that later reuses the slot.
type Handle struct {
	ID  NodeID
	Gen uint32
}

// InvalidHandle never resolves to a node.
var InvalidHandle = Handle{ID: InvalidID}

// IsValid reports whether h can refer to a slot at all.
// It does not check whether the slot is still alive.
func (h Handle) IsValid() bool {
	return h.ID != InvalidID
}
