// Package h3errors enumerates the error kinds the priority scheduler
// can surface (spec.md §7). The scheduler never logs, retries, or
// aborts on these; it returns them to the caller, which decides
// whether to close the connection, reset the stream, or drop the
// frame.
package h3errors

import "github.com/pkg/errors"

// Kind classifies a scheduler error for the caller's dispatch logic.
type Kind int

const (
	// KindNone means err does not originate from this package.
	KindNone Kind = iota
	// KindMalformedPriority: a PRIORITY frame violated a validation
	// rule (spec.md §6); fatal to the stream/connection.
	KindMalformedPriority
	// KindOutOfMemory: node/heap allocation failed; the triggering
	// operation is a no-op on scheduler state.
	KindOutOfMemory
	// KindInvalidTarget: a PRIORITY referenced a placeholder id beyond
	// the negotiated limit, or a stream id the peer may not open; fatal.
	KindInvalidTarget
)

// Sentinel errors wrapped (via Wrap helpers below) at each return site.
var (
	ErrMalformedPriority = errors.New("h3prio: malformed priority frame")
	ErrOutOfMemory       = errors.New("h3prio: out of memory")
	ErrInvalidTarget     = errors.New("h3prio: invalid priority target")
)

// WrapMalformed returns ErrMalformedPriority annotated with reason.
func WrapMalformed(reason string) error {
	return errors.Wrap(ErrMalformedPriority, reason)
}

// WrapOutOfMemory annotates the arena/heap allocation failure cause.
func WrapOutOfMemory(cause error) error {
	if cause == nil {
		return ErrOutOfMemory
	}
	return errors.Wrap(ErrOutOfMemory, cause.Error())
}

// WrapInvalidTarget returns ErrInvalidTarget annotated with reason,
// which names the reference that was invalid.
func WrapInvalidTarget(reason string) error {
	return errors.Wrap(ErrInvalidTarget, reason)
}

// Classify maps err to its Kind by walking errors.Cause, so callers
// further up the stack can dispatch on the sentinel regardless of how
// much context wrapping accumulated along the way.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	switch errors.Cause(err) {
	case ErrMalformedPriority:
		return KindMalformedPriority
	case ErrOutOfMemory:
		return KindOutOfMemory
	case ErrInvalidTarget:
		return KindInvalidTarget
	default:
		return KindNone
	}
}

// Fatal reports whether an error of this kind must be treated as fatal
// to the stream/connection per spec.md §7 (malformed-priority and
// invalid-target are fatal; out-of-memory is not, since it leaves
// state unchanged and the caller may simply retry or drop the frame).
func (k Kind) Fatal() bool {
	return k == KindMalformedPriority || k == KindInvalidTarget
}

func (k Kind) String() string {
	switch k {
	case KindMalformedPriority:
		return "malformed-priority"
	case KindOutOfMemory:
		return "out-of-memory"
	case KindInvalidTarget:
		return "invalid-target"
	default:
		return "none"
	}
}
