package scheduler

import "github.com/rclone/h3prio/internal/priority"

// Entity is implemented by every concrete thing the scheduler can
// track: a request stream, a server push, or a placeholder. The driver
// never inspects I/O on an Entity: it only ever asks for its NID
// (spec.md §1, "these produce events that the scheduler consumes").
type Entity interface {
	NID() priority.NodeID
}

// Stream is a request stream.
type Stream struct{ ID int64 }

// NID implements Entity.
func (s Stream) NID() priority.NodeID {
	return priority.NodeID{Type: priority.NodeTypeStream, ID: s.ID}
}

// Push is a server-pushed stream.
type Push struct{ ID int64 }

// NID implements Entity.
func (p Push) NID() priority.NodeID {
	return priority.NodeID{Type: priority.NodeTypePush, ID: p.ID}
}

// Placeholder is a nameable, non-emitting dependency anchor that
// outlives any single stream (spec.md glossary).
type Placeholder struct{ ID int64 }

// NID implements Entity.
func (p Placeholder) NID() priority.NodeID {
	return priority.NodeID{Type: priority.NodeTypePlaceholder, ID: p.ID}
}
