package priority

import "github.com/pkg/errors"

// ErrArenaExhausted is returned by Arena.Acquire when the arena was
// configured with a MaxNodes cap and that cap has been reached. The
// driver classifies this as an out-of-memory condition (spec.md §7)
// and leaves scheduler state untouched.
var ErrArenaExhausted = errors.New("priority: node arena exhausted")

const chunkSize = 256

// Arena is the per-connection node allocator (spec.md §5, "the node
// heap array is allocated from a per-connection memory arena passed in
// at node init; all nodes drawn from the same arena"). It hands out
// *Node values from chunked, append-only slabs so outstanding pointers
// stay valid forever (unlike a single growable slice, whose backing
// array can move), and recycles released nodes from a freelist so
// steady-state churn (streams opening and closing) does not grow the
// arena without bound.
type Arena struct {
	slabs    [][]Node
	next     int // next unused index within the last slab
	free     []*Node
	maxNodes int // 0 means unlimited
	count    int // live (acquired, not yet released) nodes
}

// NewArena creates an arena. maxNodes bounds the number of
// simultaneously live nodes; 0 means unbounded. reserve preallocates
// the first slab so the common case of opening reserve streams
// never needs mid-operation growth.
func NewArena(maxNodes, reserve int) *Arena {
	a := &Arena{maxNodes: maxNodes}
	if reserve > 0 {
		// one slab: Acquire hands out slots from the last slab only
		a.slabs = append(a.slabs, make([]Node, reserve))
	}
	return a
}

func (a *Arena) growBy(n int) {
	for n > 0 {
		size := chunkSize
		if n < size {
			size = n
		}
		a.slabs = append(a.slabs, make([]Node, size))
		n -= size
	}
}

// Acquire returns a zero-valued *Node ready for Init, or
// ErrArenaExhausted if maxNodes would be exceeded.
func (a *Arena) Acquire() (*Node, error) {
	if a.maxNodes > 0 && a.count >= a.maxNodes {
		return nil, ErrArenaExhausted
	}
	a.count++

	if n := len(a.free); n > 0 {
		node := a.free[n-1]
		a.free = a.free[:n-1]
		*node = Node{}
		return node, nil
	}

	if len(a.slabs) == 0 || a.next >= len(a.slabs[len(a.slabs)-1]) {
		a.growBy(chunkSize)
		a.next = 0
	}
	last := a.slabs[len(a.slabs)-1]
	node := &last[a.next]
	a.next++
	return node, nil
}

// Release returns node to the freelist for reuse. The caller must have
// already unlinked node from the tree (Remove/Squash).
func (a *Arena) Release(node *Node) {
	a.count--
	a.free = append(a.free, node)
}

// Live reports the number of currently acquired, unreleased nodes.
func (a *Arena) Live() int { return a.count }
