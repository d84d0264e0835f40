// Package config binds scheduler.Options to command-line flags, in the
// style of rclone's Option/configstruct pairing (see backend/local.go's
// Options struct and its fs.Option registration): one small struct,
// one place that knows the flag names, defaults for zero-valued fields
// applied lazily by Options.Normalize (the arena-reserve flag's default
// of 64 is the same value Normalize fills in).
package config

import (
	"github.com/rclone/h3prio/internal/scheduler"
	"github.com/spf13/pflag"
)

// RegisterFlags adds the scheduler's tunables to fs under the
// "scheduler." prefix and returns a pointer the caller should read
// after fs.Parse.
func RegisterFlags(fs *pflag.FlagSet) *scheduler.Options {
	opts := &scheduler.Options{}
	fs.Int64Var(&opts.NumPlaceholders, "scheduler.num-placeholders", 0,
		"Number of placeholders negotiated for new connections.")
	fs.Int64Var(&opts.MaxStreamID, "scheduler.max-stream-id", 0,
		"Largest request stream id the peer may open (0 means unbounded).")
	fs.IntVar(&opts.ArenaMaxNodes, "scheduler.arena-max-nodes", 0,
		"Cap on simultaneously live tree nodes per connection (0 means unbounded).")
	fs.IntVar(&opts.ArenaReserve, "scheduler.arena-reserve", 64,
		"Node slots to preallocate per connection.")
	return opts
}
