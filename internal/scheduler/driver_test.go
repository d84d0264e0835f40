package scheduler

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rclone/h3prio/internal/h3errors"
	"github.com/rclone/h3prio/internal/h3frame"
	"github.com/rclone/h3prio/internal/priority"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, opts Options) *Scheduler {
	t.Helper()
	return New(uuid.New(), opts, nil)
}

// S1: two streams with weights 100 and 200 split picks roughly 1:2.
func TestFairShareAcrossStreamsWeightedByPriority(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, Options{})

	_, err := s.OnCreate(ctx, Stream{ID: 0})
	require.NoError(t, err)
	_, err = s.OnCreate(ctx, Stream{ID: 1})
	require.NoError(t, err)

	require.NoError(t, s.OnPriority(ctx, h3frame.Frame{
		PriElemType: h3frame.PriElemCurrent, CurrentStreamID: 0,
		ElemDepType: h3frame.ElemDepRoot, Weight: 100,
	}))
	require.NoError(t, s.OnPriority(ctx, h3frame.Frame{
		PriElemType: h3frame.PriElemCurrent, CurrentStreamID: 1,
		ElemDepType: h3frame.ElemDepRoot, Weight: 200,
	}))
	// both streams have data to send before the first pick
	require.NoError(t, s.OnWrite(ctx, Stream{ID: 0}, 0))
	require.NoError(t, s.OnWrite(ctx, Stream{ID: 1}, 0))

	counts := map[int64]int{}
	for i := 0; i < 3000; i++ {
		nid, ok := s.PickNext()
		require.True(t, ok)
		counts[nid.ID]++
		require.NoError(t, s.OnWrite(ctx, Stream{ID: nid.ID}, 256))
	}

	ratio := float64(counts[1]) / float64(counts[0])
	assert.InDelta(t, 2.0, ratio, 0.2)
}

// S2: a control-stream PRIORITY may reference a stream that does not
// exist yet; it is auto-created, and the later on_create for the same
// id returns the same node rather than replacing it.
func TestPriorityAutoCreatesTargetAheadOfStreamOpen(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, Options{})

	require.NoError(t, s.OnPriority(ctx, h3frame.Frame{
		OnControlStream: true,
		PriElemType:     h3frame.PriElemRequest, PriElemID: 4,
		ElemDepType: h3frame.ElemDepRoot, Weight: 50,
	}))
	assert.Equal(t, 2, s.Live(), "root plus the auto-created stream node")

	n, err := s.OnCreate(ctx, Stream{ID: 4})
	require.NoError(t, err)
	assert.Equal(t, 50, n.Weight(), "on_create must not reset a node PRIORITY already configured")
	assert.Equal(t, 2, s.Live())
}

// S3: making A depend on one of its own descendants D swaps D into A's
// old slot rather than creating a cycle or being rejected.
func TestPriorityCyclicReparentSwapsInDescendant(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, Options{})

	_, err := s.OnCreate(ctx, Stream{ID: 0}) // A
	require.NoError(t, err)
	_, err = s.OnCreate(ctx, Stream{ID: 1}) // D
	require.NoError(t, err)

	// D depends on A: A -> D
	require.NoError(t, s.OnPriority(ctx, h3frame.Frame{
		PriElemType: h3frame.PriElemCurrent, CurrentStreamID: 1,
		ElemDepType: h3frame.ElemDepRequest, ElemDepID: 0, Weight: priority.DefaultWeight,
	}))

	aBefore := s.nodes[priority.NodeID{Type: priority.NodeTypeStream, ID: 0}]
	require.Equal(t, s.root, aBefore.Parent())

	// Now A is told to depend on D, its own child: D must be lifted into
	// A's old slot (root) before A is reparented under D.
	require.NoError(t, s.OnPriority(ctx, h3frame.Frame{
		PriElemType: h3frame.PriElemCurrent, CurrentStreamID: 0,
		ElemDepType: h3frame.ElemDepRequest, ElemDepID: 1, Weight: priority.DefaultWeight,
	}))

	a := s.nodes[priority.NodeID{Type: priority.NodeTypeStream, ID: 0}]
	d := s.nodes[priority.NodeID{Type: priority.NodeTypeStream, ID: 1}]
	assert.Equal(t, s.root, d.Parent(), "D must be lifted to A's former slot")
	assert.Equal(t, d, a.Parent(), "A now depends on D")
	assert.Nil(t, d.FindAscendant(a.NID()), "no cycle: D must not still be a descendant of A")
}

// S4: a PRIORITY frame naming itself as its own dependency is malformed.
func TestPrioritySelfDependencyRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, Options{})
	_, err := s.OnCreate(ctx, Stream{ID: 0})
	require.NoError(t, err)

	err = s.OnPriority(ctx, h3frame.Frame{
		PriElemType: h3frame.PriElemCurrent, CurrentStreamID: 0,
		ElemDepType: h3frame.ElemDepRequest, ElemDepID: 0, Weight: priority.DefaultWeight,
	})
	assert.Equal(t, h3errors.KindMalformedPriority, h3errors.Classify(err))
}

// S5: PriElemCurrent is illegal on the control stream.
func TestPriorityCurrentOnControlStreamRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, Options{})

	err := s.OnPriority(ctx, h3frame.Frame{
		OnControlStream: true,
		PriElemType:     h3frame.PriElemCurrent, CurrentStreamID: 0,
		ElemDepType: h3frame.ElemDepRoot,
	})
	assert.Equal(t, h3errors.KindMalformedPriority, h3errors.Classify(err))
}

// S6: ending a stream with live dependents squashes it rather than
// dropping its children's share of the tree.
func TestStreamEndWithChildrenSquashesInsteadOfDropping(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, Options{})

	_, err := s.OnCreate(ctx, Stream{ID: 0})
	require.NoError(t, err)
	_, err = s.OnCreate(ctx, Stream{ID: 1})
	require.NoError(t, err)
	require.NoError(t, s.OnPriority(ctx, h3frame.Frame{
		PriElemType: h3frame.PriElemCurrent, CurrentStreamID: 1,
		ElemDepType: h3frame.ElemDepRequest, ElemDepID: 0, Weight: priority.DefaultWeight,
	}))
	require.NoError(t, s.OnWrite(ctx, Stream{ID: 1}, 10))

	require.NoError(t, s.OnStreamEnd(ctx, Stream{ID: 0}))

	child := s.nodes[priority.NodeID{Type: priority.NodeTypeStream, ID: 1}]
	require.NotNil(t, child)
	assert.Equal(t, s.root, child.Parent(), "child must be reattached to the squashed node's former parent")
	assert.True(t, child.IsScheduled(), "child's own activity must survive the squash")
}

func TestStreamEndWithNoChildrenSimplyRemoves(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, Options{})
	_, err := s.OnCreate(ctx, Stream{ID: 0})
	require.NoError(t, err)

	require.NoError(t, s.OnStreamEnd(ctx, Stream{ID: 0}))
	assert.Equal(t, 1, s.Live(), "only the root remains")
}

// Supplemented: placeholders auto-create up to, but not beyond, the
// negotiated limit (original_source's nghttp3_stream placeholder bound).
func TestPlaceholderAutoCreateBoundary(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, Options{NumPlaceholders: 2})

	require.NoError(t, s.OnPriority(ctx, h3frame.Frame{
		OnControlStream: true,
		PriElemType:     h3frame.PriElemPlaceholder, PriElemID: 1,
		ElemDepType: h3frame.ElemDepRoot,
	}))

	err := s.OnPriority(ctx, h3frame.Frame{
		OnControlStream: true,
		PriElemType:     h3frame.PriElemPlaceholder, PriElemID: 2,
		ElemDepType: h3frame.ElemDepRoot,
	})
	assert.Equal(t, h3errors.KindInvalidTarget, h3errors.Classify(err), "placeholder id 2 is beyond NumPlaceholders=2")
}

// Supplemented: a weight-only PRIORITY update (same dependency) must not
// disturb the node's existing cycle/pending_penalty; only a real
// reparent resites it.
func TestPriorityWeightOnlyUpdateDoesNotResetCycle(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, Options{})

	_, err := s.OnCreate(ctx, Stream{ID: 0})
	require.NoError(t, err)
	require.NoError(t, s.OnWrite(ctx, Stream{ID: 0}, 500))

	n := s.nodes[priority.NodeID{Type: priority.NodeTypeStream, ID: 0}]
	cycleBefore := n.Cycle()

	require.NoError(t, s.OnPriority(ctx, h3frame.Frame{
		PriElemType: h3frame.PriElemCurrent, CurrentStreamID: 0,
		ElemDepType: h3frame.ElemDepRoot, Weight: 222,
	}))

	assert.Equal(t, 222, n.Weight())
	assert.Equal(t, cycleBefore, n.Cycle(), "weight-only update under the same parent must not touch cycle")
}

func TestOnWriteForUnknownStreamIsInvalidTarget(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, Options{})
	err := s.OnWrite(ctx, Stream{ID: 99}, 10)
	assert.Equal(t, h3errors.KindInvalidTarget, h3errors.Classify(err))
}

func TestOnStreamEndForUnknownStreamIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, Options{})
	assert.NoError(t, s.OnStreamEnd(ctx, Stream{ID: 99}))
}
