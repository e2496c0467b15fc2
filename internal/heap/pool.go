package heap

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/waygraph/core"
)

// DefaultBlockSize is the capacity of a block requested with Alloc(0).
const DefaultBlockSize = 32

// GraphVersion is a snapshot of the graph's change counters.
type GraphVersion struct {
	Node uint32
	Edge uint32
}

// NodeVersion records when a node last changed.
type NodeVersion struct {
	// Version is the graph node version stamped at the node's last change.
	Version uint32
	// AffectsPaths is set while at least one cached path runs through the node.
	AffectsPaths bool
}

// Pool is a bump allocator of heap blocks plus the graph version state.
//
// Pool is NOT thread-safe.
type Pool struct {
	buf       []Item
	used      int
	live      int
	blockSize int

	version GraphVersion
	stamps  []uint32
	affects *bitset.BitSet
}

// New creates a pool able to hold capacity heap items in total and tracking
// versions for maxNodes node slots. blockSize is clamped to capacity.
func New(capacity, blockSize, maxNodes int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if blockSize > capacity {
		blockSize = capacity
	}

	return &Pool{
		buf:       make([]Item, capacity),
		blockSize: blockSize,
		stamps:    make([]uint32, maxNodes),
		affects:   bitset.New(uint(maxNodes)),
	}
}

// Cap returns the total item capacity of the pool.
func (p *Pool) Cap() int { return len(p.buf) }

// Free returns the number of items not yet handed out to blocks.
func (p *Pool) Free() int { return len(p.buf) - p.used }

// BlockSize returns the default block capacity.
func (p *Pool) BlockSize() int { return p.blockSize }

// Alloc carves a block of the given capacity out of the pool.
// A capacity <= 0 requests the default block size.
func (p *Pool) Alloc(capacity int) (*Block, error) {
	if capacity <= 0 {
		capacity = p.blockSize
	}
	if capacity > len(p.buf) {
		capacity = len(p.buf)
	}
	if p.used+capacity > len(p.buf) {
		return nil, core.ErrHeapFull
	}

	off := p.used
	p.used += capacity
	p.live++

	return &Block{
		items:   p.buf[off : off : off+capacity],
		off:     off,
		version: p.version,
		pool:    p,
	}, nil
}

// Release returns a block to the pool. Releasing the most recent block
// reclaims its space immediately; the whole pool is reclaimed once every
// block has been released.
func (p *Pool) Release(b *Block) {
	if b == nil || b.pool != p {
		return
	}
	if b.off+cap(b.items) == p.used {
		p.used = b.off
	}
	p.live--
	if p.live <= 0 {
		p.live = 0
		p.used = 0
	}
	b.pool = nil
	b.items = nil
}

// Version returns the current graph version.
func (p *Pool) Version() GraphVersion { return p.version }

// BumpNode advances the node version and stamps id as changed.
//
// Stamps are compared by order, so they are only meaningful within one run
// of the 32-bit counter. When the counter wraps, every stamp is reset and
// BumpNode reports true; the caller must then drop anything validated
// against older stamps.
func (p *Pool) BumpNode(id core.NodeID) bool {
	p.version.Node++
	wrapped := p.version.Node == 0
	if wrapped {
		clear(p.stamps)
		p.version.Node = 1
	}
	if int(id) < len(p.stamps) {
		p.stamps[id] = p.version.Node
	}
	return wrapped
}

// BumpEdge advances the edge version.
func (p *Pool) BumpEdge() {
	p.version.Edge++
}

// NodeVersion returns the change state of a node slot.
func (p *Pool) NodeVersion(id core.NodeID) NodeVersion {
	if int(id) >= len(p.stamps) {
		return NodeVersion{}
	}
	return NodeVersion{
		Version:      p.stamps[id],
		AffectsPaths: p.affects.Test(uint(id)),
	}
}

// SetAffectsPaths flags or unflags id as being part of a cached path.
func (p *Pool) SetAffectsPaths(id core.NodeID, v bool) {
	if int(id) >= len(p.stamps) {
		return
	}
	p.affects.SetTo(uint(id), v)
}

// AffectsPaths reports whether id is part of any cached path.
func (p *Pool) AffectsPaths(id core.NodeID) bool {
	return int(id) < len(p.stamps) && p.affects.Test(uint(id))
}

// Reset drops all blocks and zeroes the version state.
func (p *Pool) Reset() {
	p.used = 0
	p.live = 0
	p.version = GraphVersion{}
	clear(p.stamps)
	p.affects.ClearAll()
}
