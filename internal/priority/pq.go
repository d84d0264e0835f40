package priority

import "container/heap"

// notOnHeap marks a Node's pqIndex when it is not a member of any heap.
const notOnHeap = -1

// nodeHeap is a binary min-heap of *Node ordered by (cycle, seq), with
// seq breaking ties so no two entries ever compare equal. It implements
// container/heap.Interface directly over the children of one tnode,
// the same shape as vfs/vfscache/writeback's writeBackItems: each
// element carries its own index back into the slice so Remove(node) is
// O(log n) instead of a linear scan.
type nodeHeap []*Node

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].cycle != h[j].cycle {
		return h[i].cycle < h[j].cycle
	}
	return h[i].seq < h[j].seq
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].pqIndex = i
	h[j].pqIndex = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*Node)
	n.pqIndex = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	last := len(old) - 1
	n := old[last]
	old[last] = nil
	n.pqIndex = notOnHeap
	*h = old[:last]
	return n
}

// pqPush inserts node into h. O(log n).
func pqPush(h *nodeHeap, node *Node) {
	heap.Push(h, node)
}

// pqPop removes and returns the minimum element of h, or nil if empty.
func pqPop(h *nodeHeap) *Node {
	if len(*h) == 0 {
		return nil
	}
	return heap.Pop(h).(*Node)
}

// pqRemove removes node from h using its stored pqIndex. O(log n).
// It is a no-op if node is not currently a member of h.
func pqRemove(h *nodeHeap, node *Node) {
	if node.pqIndex < 0 || node.pqIndex >= len(*h) || (*h)[node.pqIndex] != node {
		return
	}
	heap.Remove(h, node.pqIndex)
}

// pqTop returns the minimum element of h without removing it, or nil.
func pqTop(h nodeHeap) *Node {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
