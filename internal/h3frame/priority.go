// Package h3frame holds the decoded shape of the HTTP/3 PRIORITY frame
// (spec.md §6). It is a pure data/validation boundary: no varint
// decoding, no QPACK, no wire I/O. Full frame parsing is out of scope
// for this repository (spec.md §1); the frame decoder is an external
// collaborator that hands this struct to the scheduler already decoded.
package h3frame

import (
	"github.com/rclone/h3prio/internal/h3errors"
	"github.com/rclone/h3prio/internal/priority"
)

// PriElemType is the prioritized-element field of a decoded PRIORITY
// frame (spec.md §6).
type PriElemType int

const (
	PriElemRequest PriElemType = iota
	PriElemPush
	PriElemPlaceholder
	// PriElemCurrent means "the stream this frame arrived on"; legal
	// only on a request stream, never on the control stream.
	PriElemCurrent
)

// ElemDepType is the dependency field of a decoded PRIORITY frame.
type ElemDepType int

const (
	ElemDepRequest ElemDepType = iota
	ElemDepPush
	ElemDepPlaceholder
	ElemDepRoot
)

// Frame is the decoded form of a PRIORITY frame (spec.md §6). PriElemID
// is meaningless iff PriElemType == PriElemCurrent; ElemDepID is
// meaningless iff ElemDepType == ElemDepRoot. Weight is already
// converted from the wire's w+1 encoding to the logical [1, 256] range.
type Frame struct {
	PriElemType PriElemType
	PriElemID   int64
	ElemDepType ElemDepType
	ElemDepID   int64
	Weight      int

	// OnControlStream distinguishes a control-stream PRIORITY (where
	// PriElemCurrent is illegal) from one arriving on a request stream
	// (where PriElemCurrent is the only legal PriElemType).
	OnControlStream bool
	// CurrentStreamID is substituted for PriElemID when PriElemType ==
	// PriElemCurrent, supplied by the caller from the stream the frame
	// arrived on.
	CurrentStreamID int64
}

// TargetNID resolves the frame's prioritized element to a NodeID,
// substituting CurrentStreamID for the "current" case.
func (f Frame) TargetNID() priority.NodeID {
	switch f.PriElemType {
	case PriElemPush:
		return priority.NodeID{Type: priority.NodeTypePush, ID: f.PriElemID}
	case PriElemPlaceholder:
		return priority.NodeID{Type: priority.NodeTypePlaceholder, ID: f.PriElemID}
	case PriElemCurrent:
		return priority.NodeID{Type: priority.NodeTypeStream, ID: f.CurrentStreamID}
	default: // PriElemRequest
		return priority.NodeID{Type: priority.NodeTypeStream, ID: f.PriElemID}
	}
}

// DepNID resolves the frame's dependency to a NodeID.
func (f Frame) DepNID() priority.NodeID {
	switch f.ElemDepType {
	case ElemDepPush:
		return priority.NodeID{Type: priority.NodeTypePush, ID: f.ElemDepID}
	case ElemDepPlaceholder:
		return priority.NodeID{Type: priority.NodeTypePlaceholder, ID: f.ElemDepID}
	case ElemDepRoot:
		return priority.RootNodeID
	default: // ElemDepRequest
		return priority.NodeID{Type: priority.NodeTypeStream, ID: f.ElemDepID}
	}
}

// Validate enforces the wire-level legality rules from spec.md §6,
// independent of tree state, including self-dependency on the resolved
// NodeIDs (the descendant-cycle case is handled in the driver, which
// has the tree to consult).
func (f Frame) Validate(numPlaceholders int64) error {
	if f.OnControlStream && f.PriElemType == PriElemCurrent {
		return h3errors.WrapMalformed("PRIORITY on control stream must not use the current element type")
	}
	if !f.OnControlStream && f.PriElemType != PriElemCurrent {
		return h3errors.WrapMalformed("PRIORITY on a request stream must use the current element type")
	}
	if f.PriElemType == PriElemPlaceholder && f.PriElemID >= numPlaceholders {
		return h3errors.WrapInvalidTarget("priority element references a placeholder beyond the negotiated limit")
	}
	if f.ElemDepType == ElemDepPlaceholder && f.ElemDepID >= numPlaceholders {
		return h3errors.WrapInvalidTarget("priority dependency references a placeholder beyond the negotiated limit")
	}
	if f.TargetNID().Equal(f.DepNID()) {
		return h3errors.WrapMalformed("priority element cannot depend on itself")
	}
	return nil
}
