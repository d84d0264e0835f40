// Package priority implements the weighted priority tree that schedules
// HTTP/3 stream writes: a min-heap keyed by virtual-time cycle (pq.go),
// an n-ary intrusive tree node (tnode.go), and a per-connection node
// arena (arena.go).
package priority

import "fmt"

// NodeType identifies what kind of HTTP/3 entity a Node stands in for.
type NodeType int

const (
	// NodeTypeStream is a request stream.
	NodeTypeStream NodeType = iota
	// NodeTypePush is a server-push stream.
	NodeTypePush
	// NodeTypePlaceholder is a nameable, non-emitting dependency anchor.
	NodeTypePlaceholder
	// NodeTypeRoot is the unique per-connection root.
	NodeTypeRoot
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeStream:
		return "stream"
	case NodeTypePush:
		return "push"
	case NodeTypePlaceholder:
		return "placeholder"
	case NodeTypeRoot:
		return "root"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// NodeID identifies a tnode. Two NodeIDs are equal iff both fields
// match. The root uses the singleton RootNodeID.
type NodeID struct {
	Type NodeType
	ID   int64
}

// RootNodeID is the one nid every connection's root carries.
var RootNodeID = NodeID{Type: NodeTypeRoot, ID: 0}

// Equal reports whether a and b name the same node.
func (a NodeID) Equal(b NodeID) bool {
	return a.Type == b.Type && a.ID == b.ID
}

func (a NodeID) String() string {
	return fmt.Sprintf("%s:%d", a.Type, a.ID)
}
