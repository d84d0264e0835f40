package priority

const (
	// DefaultWeight is assigned to a newly created node absent an
	// explicit PRIORITY weight (spec.md §3).
	DefaultWeight = 16
	// MaxWeight is the largest legal weight (spec.md §3: weight in [1, 256]).
	MaxWeight = 256
	// MaxCycleGap bounds how far a single Schedule call may advance a
	// node's cycle past its parent's current baseline, from
	// nghttp3's NGHTTP3_TNODE_MAX_CYCLE_GAP: (1<<24)*256 + 255.
	MaxCycleGap uint64 = (1 << 24) * 256 + 255
)

// ClampWeight forces w into the legal [1, MaxWeight] range. Values below
// 1 are raised to DefaultWeight rather than to 1, matching the
// convention that an unset/zero weight means "use the default", while
// an explicit too-large weight is simply capped.
func ClampWeight(w int) int {
	switch {
	case w < 1:
		return DefaultWeight
	case w > MaxWeight:
		return MaxWeight
	default:
		return w
	}
}

// Node is one entry in the priority tree: an intrusive n-ary tree node
// carrying a child min-heap, parent/first-child/next-sibling links, a
// weight, a monotone sequence number, a virtual-time cycle, a pending
// penalty, and an active flag (spec.md §3).
//
// Node is not safe for concurrent use; callers serialize access per
// connection (spec.md §5).
type Node struct {
	nid    NodeID
	seq    uint64
	weight int

	cycle          uint64
	pendingPenalty uint64
	active         bool

	parent      *Node
	firstChild  *Node
	nextSibling *Node
	numChildren int

	pq      nodeHeap // children schedulable under this node
	pqIndex int       // this node's slot in parent.pq, or notOnHeap
}

// Init (re)initializes node's fields. The caller links node under a
// parent with Insert; Init itself touches no tree structure.
func (n *Node) Init(nid NodeID, seq uint64, weight int) {
	*n = Node{
		nid:     nid,
		seq:     seq,
		weight:  ClampWeight(weight),
		pqIndex: notOnHeap,
	}
}

// NID returns node's identity.
func (n *Node) NID() NodeID { return n.nid }

// Seq returns node's creation sequence number.
func (n *Node) Seq() uint64 { return n.seq }

// Weight returns node's current weight.
func (n *Node) Weight() int { return n.weight }

// SetWeight clamps and stores a new weight. It does not touch cycle,
// pending_penalty, or heap membership; callers that reparent as part
// of the same PRIORITY update call Resite separately (spec.md §4.4).
func (n *Node) SetWeight(w int) { n.weight = ClampWeight(w) }

// Active reports whether node itself (as opposed to a descendant) has
// bytes ready to emit.
func (n *Node) Active() bool { return n.active }

// Cycle returns node's current virtual-time key.
func (n *Node) Cycle() uint64 { return n.cycle }

// PendingPenalty returns bytes charged since the last scheduling
// decision that have not yet been folded into cycle.
func (n *Node) PendingPenalty() uint64 { return n.pendingPenalty }

// Parent returns node's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// NumChildren returns the number of direct children.
func (n *Node) NumChildren() int { return n.numChildren }

// Children returns a snapshot slice of node's direct children, in
// intrusive-list (most-recently-inserted-first) order. Intended for
// debug/introspection use (internal/debugserver); the scheduler's hot
// path never needs a materialized child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, n.numChildren)
	for c := n.firstChild; c != nil; c = c.nextSibling {
		out = append(out, c)
	}
	return out
}

// IsScheduled reports whether node is present in its parent's heap,
// i.e. is schedulable: active itself, or has an active descendant.
// active and "in heap" are deliberately distinct (spec.md §9).
func (n *Node) IsScheduled() bool { return n.pqIndex != notOnHeap }

// HasActiveDescendant reports whether some descendant of node (not
// node itself) is active, i.e. node's own child heap is non-empty.
func (n *Node) HasActiveDescendant() bool { return len(n.pq) > 0 }

// Insert makes node the new first child of parent. It does not touch
// node.active or any heap; schedulability propagation happens via
// Schedule/Unschedule. If node already has a parent the caller must
// Remove it first.
func (n *Node) Insert(parent *Node) {
	n.parent = parent
	n.nextSibling = parent.firstChild
	parent.firstChild = n
	parent.numChildren++
}

// Remove unlinks node and its entire subtree from its parent's child
// list and, if present, from the parent's heap. If the parent is left
// with no schedulable children and is not itself active, the parent is
// recursively unscheduled from its own parent. Remove on the root is a
// no-op (the root is never removed).
func (n *Node) Remove() {
	parent := n.parent
	if parent == nil {
		return
	}

	if parent.firstChild == n {
		parent.firstChild = n.nextSibling
	} else {
		prev := parent.firstChild
		for prev != nil && prev.nextSibling != n {
			prev = prev.nextSibling
		}
		if prev != nil {
			prev.nextSibling = n.nextSibling
		}
	}
	n.nextSibling = nil
	parent.numChildren--

	if n.pqIndex != notOnHeap {
		pqRemove(&parent.pq, n)
	}
	n.parent = nil

	ascendPrune(parent)
}

// ascendPrune removes cur, then successive ancestors, from their
// parent's heap for as long as each in turn is neither active nor
// has an active descendant. It is the shared tail of Unschedule and
// Remove's cleanup (spec.md §4.3).
func ascendPrune(cur *Node) {
	for cur.parent != nil {
		if cur.active || len(cur.pq) > 0 {
			return
		}
		parent := cur.parent
		if cur.pqIndex != notOnHeap {
			pqRemove(&parent.pq, cur)
		}
		cur = parent
	}
}

// Unschedule clears node's active flag and, if node is now neither
// active nor has an active descendant, removes it from its parent's
// heap, continuing upward while that remains true of each ancestor.
// The root is never unscheduled. Unschedule on an already-unscheduled
// node is a no-op (spec.md §8 property 7).
func (n *Node) Unschedule() {
	n.active = false
	ascendPrune(n)
}

// Schedule marks node schedulable, charging nwrite bytes against its
// virtual-time cycle, and propagates the fact that this subtree is
// non-empty up through every ancestor (spec.md §4.3). Calling Schedule
// again on an already-scheduled node reorders it in its parent's heap
// rather than duplicating the entry (spec.md §8 property 7).
func (n *Node) Schedule(nwrite uint64) {
	n.active = true
	n.advance(nwrite)
}

// advance performs the cycle/heap-membership update shared by Schedule
// and its upward propagation, without touching the active flag. An
// ancestor is pushed into its own parent's heap to reflect "this
// subtree has work", but that never makes the ancestor itself active
// (spec.md §9, "active vs heap membership").
func (n *Node) advance(nwrite uint64) {
	if n.parent == nil {
		return // root: nothing to propagate into
	}

	delta := nwrite*uint64(MaxWeight/n.weight) + n.pendingPenalty
	if delta > MaxCycleGap {
		n.pendingPenalty = delta - MaxCycleGap
		delta = MaxCycleGap
	} else {
		n.pendingPenalty = 0
	}

	// The baseline is taken before n leaves the heap: a node already
	// queued is never above its own cycle there, so it keeps that cycle
	// as its base; a node entering the heap is raised to the current
	// minimum so it cannot leap ahead of its queued siblings.
	parent := n.parent
	base := n.cycle
	if top := pqTop(parent.pq); top != nil && top.cycle > base {
		base = top.cycle
	}
	if n.pqIndex != notOnHeap {
		pqRemove(&parent.pq, n)
	}
	n.cycle = base + delta

	pqPush(&parent.pq, n)
	parent.advance(0)
}

// GetNext descends from node along pq.top() until it reaches a node
// whose own pq is empty, a leaf of the heap guaranteed to be active,
// and returns it. It returns nil iff node's heap is empty.
func (n *Node) GetNext() *Node {
	cur := n
	for {
		top := pqTop(cur.pq)
		if top == nil {
			if cur == n {
				return nil
			}
			return cur
		}
		cur = top
	}
}

// FindAscendant walks parent pointers from node.Parent() upward,
// returning the first ancestor whose NID equals nid, or nil.
func (n *Node) FindAscendant(nid NodeID) *Node {
	for cur := n.parent; cur != nil; cur = cur.parent {
		if cur.nid.Equal(nid) {
			return cur
		}
	}
	return nil
}

// Squash removes node, redistributing its weight proportionally to its
// direct children and reattaching them under node's former parent
// (spec.md §4.3, §8 property 6). Each child's new weight is
// round(child.weight * node.weight / MaxWeight), floored at 1. A child
// is re-scheduled under the new parent iff it is itself active or has
// an active descendant; otherwise it stays merely linked, unscheduled.
func (n *Node) Squash() {
	parent := n.parent
	children := n.Children()

	for _, c := range children {
		c.weight = squashedWeight(c.weight, n.weight)
		c.Remove()
		c.Insert(parent)
		c.Resite()
	}

	n.Remove()
}

// Resite re-registers node in its current parent's heap if node is
// schedulable (active, or has an active descendant), without altering
// node.active. Used after a structural reparent (swap-in, spec.md
// §4.4; Squash; or a non-weight-only PRIORITY update) to make heap
// membership reflect the new position; a no-op for a node that is
// neither active nor has an active descendant.
func (n *Node) Resite() {
	if n.active || len(n.pq) > 0 {
		n.advance(0)
	}
}

func squashedWeight(childWeight, nodeWeight int) int {
	scaled := (childWeight*nodeWeight + MaxWeight/2) / MaxWeight
	if scaled < 1 {
		scaled = 1
	}
	if scaled > MaxWeight {
		scaled = MaxWeight
	}
	return scaled
}
