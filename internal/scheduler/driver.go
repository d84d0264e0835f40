// Package scheduler is the host integration layer of the priority
// scheduler (spec.md §4.4): it ties tnodes to concrete entities and
// translates external events (create, PRIORITY, write, stream end)
// into priority.Node operations, including cycle-reference validation
// and reparenting.
package scheduler

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rclone/h3prio/internal/h3errors"
	"github.com/rclone/h3prio/internal/h3frame"
	"github.com/rclone/h3prio/internal/log"
	"github.com/rclone/h3prio/internal/metrics"
	"github.com/rclone/h3prio/internal/priority"
)

// Scheduler is the per-connection driver. Its own operations are meant
// to be called from one serialized event path (spec.md §5); mu exists
// only to let internal/debugserver take a safe read-only snapshot from
// a different goroutine without the connection's event loop observing
// a torn state, not to make the driver itself safe for concurrent
// mutation from multiple callers.
type Scheduler struct {
	mu sync.Mutex

	connID uuid.UUID
	opts   Options

	arena *priority.Arena
	root  *priority.Node
	nodes map[priority.NodeID]*priority.Node
	seq   uint64

	metrics *metrics.Recorder
}

// New constructs a Scheduler for one HTTP/3 connection. rec may be nil
// to disable metrics.
func New(connID uuid.UUID, opts Options, rec *metrics.Recorder) *Scheduler {
	opts = opts.Normalize()
	arena := priority.NewArena(opts.ArenaMaxNodes, opts.ArenaReserve)

	s := &Scheduler{
		connID:  connID,
		opts:    opts,
		arena:   arena,
		nodes:   make(map[priority.NodeID]*priority.Node),
		metrics: rec,
	}

	root, err := arena.Acquire()
	if err != nil {
		// Acquire only fails once ArenaMaxNodes nodes are live (a cap
		// of zero or less means unbounded), and a fresh arena has none,
		// so the root allocation cannot fail.
		panic("scheduler: arena could not allocate root node: " + err.Error())
	}
	root.Init(priority.RootNodeID, 0, priority.DefaultWeight)
	s.root = root
	s.nodes[priority.RootNodeID] = root

	return s
}

// ConnID returns the connection id this scheduler was constructed with.
func (s *Scheduler) ConnID() uuid.UUID { return s.connID }

// Root returns the root node, for internal/debugserver's read-only tree
// walk. Callers outside that package should prefer PickNext.
func (s *Scheduler) Root() *priority.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Live returns the number of live nodes, including the root.
func (s *Scheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// OnCreate allocates a tnode for a newly created entity, parented at
// the root with the default weight, unless a PRIORITY frame already
// auto-created it, in which case the existing node is returned
// unchanged (spec.md §4.4, and §8 scenario S2).
func (s *Scheduler) OnCreate(ctx context.Context, e Entity) (*priority.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nid := e.NID()
	if n, ok := s.nodes[nid]; ok {
		return n, nil
	}
	n, err := s.newNodeLocked(nid, priority.DefaultWeight, s.root)
	if err != nil {
		return nil, err
	}
	log.Debugf(ctx, "on_create nid=%v seq=%d", nid, n.Seq())
	s.metrics.SetTreeSize(len(s.nodes))
	return n, nil
}

// OnPriority applies a decoded PRIORITY frame (spec.md §4.4, §6).
func (s *Scheduler) OnPriority(ctx context.Context, frame h3frame.Frame) error {
	if err := frame.Validate(s.opts.NumPlaceholders); err != nil {
		return err
	}

	targetNID := frame.TargetNID()
	if targetNID.Type == priority.NodeTypeStream && targetNID.ID > s.opts.MaxStreamID {
		return h3errors.WrapInvalidTarget("priority element references a stream id the peer may not open")
	}
	depNID := frame.DepNID()
	if depNID.Type == priority.NodeTypeStream && depNID.ID > s.opts.MaxStreamID {
		return h3errors.WrapInvalidTarget("priority dependency references a stream id the peer may not open")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.getOrCreateLocked(targetNID)
	if err != nil {
		return err
	}
	dep, err := s.getOrCreateLocked(depNID)
	if err != nil {
		return err
	}
	s.metrics.SetTreeSize(len(s.nodes))

	// target may not end up depending on one of its own descendants: if
	// target is currently an ascendant of dep, lift dep into target's old
	// slot first (spec.md §9 "cyclic re-parenting under PRIORITY").
	if dep != s.root {
		if dep.FindAscendant(targetNID) != nil {
			targetParent := target.Parent()
			dep.Remove()
			dep.Insert(targetParent)
			dep.Resite()
			log.Debugf(ctx, "on_priority swap-in target=%v dep=%v", targetNID, depNID)
		}
	}

	weight := priority.ClampWeight(frame.Weight)
	sameParent := target.Parent() == dep
	target.SetWeight(weight)
	if !sameParent {
		target.Remove()
		target.Insert(dep)
		target.Resite()
	}

	log.Debugf(ctx, "on_priority target=%v dep=%v weight=%d reparented=%v", targetNID, depNID, weight, !sameParent)
	return nil
}

// OnWrite charges nwrite bytes against stream's node and advances its
// cycle (spec.md §4.4).
func (s *Scheduler) OnWrite(ctx context.Context, e Entity, nwrite int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[e.NID()]
	if !ok {
		return h3errors.WrapInvalidTarget("on_write for a stream with no tnode")
	}
	n.Schedule(uint64(nwrite))
	s.metrics.RecordWrite(nwrite)
	log.Debugf(ctx, "on_write nid=%v nwrite=%d cycle=%d", e.NID(), nwrite, n.Cycle())
	return nil
}

// OnStreamEnd removes the stream's node if it has no dependents, or
// squashes it so its children inherit its share (spec.md §4.4).
func (s *Scheduler) OnStreamEnd(ctx context.Context, e Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nid := e.NID()
	n, ok := s.nodes[nid]
	if !ok {
		return nil
	}
	if n.NumChildren() == 0 {
		n.Remove()
	} else {
		n.Squash()
	}
	delete(s.nodes, nid)
	s.arena.Release(n)
	s.metrics.SetTreeSize(len(s.nodes))
	log.Debugf(ctx, "on_stream_end nid=%v", nid)
	return nil
}

// PickNext returns the NodeID of the highest-priority active
// descendant of the root, or ok == false if none is schedulable
// (spec.md §4.4).
func (s *Scheduler) PickNext() (nid priority.NodeID, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.root.GetNext()
	if n == nil {
		return priority.NodeID{}, false
	}
	s.metrics.RecordPick(n)
	return n.NID(), true
}

func (s *Scheduler) newNodeLocked(nid priority.NodeID, weight int, parent *priority.Node) (*priority.Node, error) {
	n, err := s.arena.Acquire()
	if err != nil {
		return nil, h3errors.WrapOutOfMemory(err)
	}
	s.seq++
	n.Init(nid, s.seq, weight)
	n.Insert(parent)
	s.nodes[nid] = n
	return n, nil
}

// getOrCreateLocked resolves nid to its tnode, auto-creating a node
// parented at the root when it does not yet exist (spec.md §4.4:
// "streams may not yet exist when a control-stream PRIORITY references
// them; placeholders auto-create up to the negotiated limit").
func (s *Scheduler) getOrCreateLocked(nid priority.NodeID) (*priority.Node, error) {
	if nid.Type == priority.NodeTypeRoot {
		return s.root, nil
	}
	if n, ok := s.nodes[nid]; ok {
		return n, nil
	}
	if nid.Type == priority.NodeTypePlaceholder && nid.ID >= s.opts.NumPlaceholders {
		return nil, h3errors.WrapInvalidTarget("placeholder id beyond negotiated limit")
	}
	return s.newNodeLocked(nid, priority.DefaultWeight, s.root)
}
