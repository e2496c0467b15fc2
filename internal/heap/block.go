package heap

import "github.com/hupe1980/waygraph/core"

// Item is a heap entry.
type Item struct {
	Node core.NodeID
	F    float32
}

// Block is a binary min-heap on f-score backed by a slice of the pool buffer.
// Ties resolve by heap order and are unspecified.
type Block struct {
	items   []Item
	off     int
	version GraphVersion
	pool    *Pool
}

// Len returns the number of items in the heap.
func (b *Block) Len() int { return len(b.items) }

// Cap returns the fixed capacity of the block.
func (b *Block) Cap() int { return cap(b.items) }

// Version returns the graph version at allocation (or last Reset).
func (b *Block) Version() GraphVersion { return b.version }

// Stale reports whether the graph changed since the block was allocated.
func (b *Block) Stale() bool {
	return b.pool != nil && b.pool.version != b.version
}

// Reset empties the heap and re-snapshots the graph version.
func (b *Block) Reset() {
	b.items = b.items[:0]
	if b.pool != nil {
		b.version = b.pool.version
	}
}

// Push inserts an item. It fails with core.ErrHeapFull when the block is full.
func (b *Block) Push(node core.NodeID, f float32) error {
	if len(b.items) == cap(b.items) {
		return core.ErrHeapFull
	}
	b.items = append(b.items, Item{Node: node, F: f})
	b.siftUp(len(b.items) - 1)
	return nil
}

// PushMany inserts all items or none of them.
func (b *Block) PushMany(items []Item) error {
	if len(b.items)+len(items) > cap(b.items) {
		return core.ErrHeapFull
	}
	n := len(b.items)
	b.items = append(b.items, items...)
	if len(items) > n {
		b.heapify()
		return nil
	}
	for i := n; i < len(b.items); i++ {
		b.siftUp(i)
	}
	return nil
}

// Build replaces the heap contents with items using Floyd's O(n) heapify.
func (b *Block) Build(items []Item) error {
	if len(items) > cap(b.items) {
		return core.ErrHeapFull
	}
	b.items = append(b.items[:0], items...)
	b.heapify()
	return nil
}

// Peek returns the minimum item without removing it.
func (b *Block) Peek() (Item, bool) {
	if len(b.items) == 0 {
		return Item{Node: core.InvalidID}, false
	}
	return b.items[0], true
}

// Pop removes and returns the minimum item.
func (b *Block) Pop() (Item, bool) {
	n := len(b.items)
	if n == 0 {
		return Item{Node: core.InvalidID}, false
	}
	root := b.items[0]
	b.items[0] = b.items[n-1]
	b.items = b.items[:n-1]
	if n > 1 {
		b.siftDown(0)
	}
	return root, true
}

// DecreaseKey lowers the f-score of node if it is present with a higher one.
// It reports whether node was found. The lookup is a linear scan over the
// heap; there is no node-to-position index.
func (b *Block) DecreaseKey(node core.NodeID, f float32) bool {
	for i := range b.items {
		if b.items[i].Node != node {
			continue
		}
		if f < b.items[i].F {
			b.items[i].F = f
			b.siftUp(i)
		}
		return true
	}
	return false
}

func (b *Block) heapify() {
	for i := len(b.items)/2 - 1; i >= 0; i-- {
		b.siftDown(i)
	}
}

func (b *Block) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if b.items[i].F >= b.items[p].F {
			return
		}
		b.items[i], b.items[p] = b.items[p], b.items[i]
		i = p
	}
}

func (b *Block) siftDown(i int) {
	n := len(b.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && b.items[r].F < b.items[l].F {
			best = r
		}
		if b.items[best].F >= b.items[i].F {
			return
		}
		b.items[i], b.items[best] = b.items[best], b.items[i]
		i = best
	}
}
