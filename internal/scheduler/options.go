package scheduler

import "math"

// Options configures a Scheduler, in the style of rclone's
// Option/configstruct pairing (see backend/local for the pattern this
// follows): small, flat, documented fields with sensible zero-value
// defaults applied by Normalize.
type Options struct {
	// NumPlaceholders is the number of placeholders negotiated for
	// this connection (spec.md §6); a PRIORITY referencing a
	// placeholder id >= NumPlaceholders is invalid-target.
	NumPlaceholders int64
	// MaxStreamID bounds the stream ids the peer may open. Zero means
	// "use the default of no practical bound" (math.MaxInt64).
	MaxStreamID int64
	// ArenaMaxNodes caps simultaneously live tree nodes; zero means
	// unbounded. Exceeding it surfaces as an out-of-memory error.
	ArenaMaxNodes int
	// ArenaReserve preallocates this many node slots up front so
	// opening the connection's first streams never grows the arena
	// mid-operation.
	ArenaReserve int
}

// Normalize fills in zero-valued fields with their defaults and
// returns the result; it does not mutate the receiver.
func (o Options) Normalize() Options {
	if o.MaxStreamID == 0 {
		o.MaxStreamID = math.MaxInt64
	}
	if o.ArenaReserve == 0 {
		o.ArenaReserve = 64
	}
	return o
}
