package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// newTestNode builds a detached node with the given cycle for heap-only tests
// that never go through Arena/Init's full lifecycle.
func newTestNode(seq uint64, cycle uint64) *Node {
	return &Node{seq: seq, cycle: cycle, weight: DefaultWeight, pqIndex: notOnHeap}
}

func heapOrder(h nodeHeap) []uint64 {
	cp := make(nodeHeap, len(h))
	copy(cp, h)
	var out []uint64
	for len(cp) > 0 {
		out = append(out, pqPop(&cp).seq)
	}
	return out
}

func TestNodeHeapOrdersByCycleThenSeq(t *testing.T) {
	var h nodeHeap
	a := newTestNode(1, 10)
	b := newTestNode(2, 5)
	c := newTestNode(3, 5) // ties b on cycle, seq breaks the tie
	d := newTestNode(4, 20)

	pqPush(&h, a)
	pqPush(&h, b)
	pqPush(&h, c)
	pqPush(&h, d)

	assert.Equal(t, []uint64{2, 3, 1, 4}, heapOrder(h))
}

func TestNodeHeapTopDoesNotRemove(t *testing.T) {
	var h nodeHeap
	a := newTestNode(1, 10)
	pqPush(&h, a)
	assert.Equal(t, a, pqTop(h))
	assert.Equal(t, 1, h.Len())
}

func TestNodeHeapRemoveByHandle(t *testing.T) {
	var h nodeHeap
	a := newTestNode(1, 10)
	b := newTestNode(2, 5)
	c := newTestNode(3, 15)
	pqPush(&h, a)
	pqPush(&h, b)
	pqPush(&h, c)

	pqRemove(&h, b)
	assert.Equal(t, notOnHeap, b.pqIndex)
	assert.Equal(t, []uint64{1, 3}, heapOrder(h))

	// removing again is a no-op
	pqRemove(&h, b)
	assert.Equal(t, []uint64{1, 3}, heapOrder(h))
}

func TestNodeHeapIndicesStayCoherentAfterRemove(t *testing.T) {
	var h nodeHeap
	nodes := make([]*Node, 6)
	for i := range nodes {
		nodes[i] = newTestNode(uint64(i), uint64(10-i))
		pqPush(&h, nodes[i])
	}
	pqRemove(&h, nodes[2])
	for _, n := range h {
		assert.Equal(t, n, h[n.pqIndex], "pqIndex must point back to node's own slot")
	}
}

func TestNodeHeapEmpty(t *testing.T) {
	var h nodeHeap
	assert.Nil(t, pqTop(h))
	assert.Nil(t, pqPop(&h))
}
