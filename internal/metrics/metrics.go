// Package metrics instruments the priority scheduler with Prometheus
// collectors: picks per node type, live tree size, and bytes charged
// per on_write call. It is the scheduler's one observability surface (SPEC_FULL.md
// §1); none of it is required for correctness, only for operators.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rclone/h3prio/internal/priority"
)

// Recorder holds the collectors for one connection. A nil *Recorder is
// valid and every method on it is a no-op, so callers can construct a
// Scheduler with metrics disabled by simply passing nil.
type Recorder struct {
	picks     *prometheus.CounterVec
	treeSize  prometheus.Gauge
	cycleStep prometheus.Histogram
}

// New registers a fresh set of collectors on reg for one connection id.
// Registering the same connID twice panics (prometheus.MustRegister
// semantics); callers that tear down a connection should use a
// dedicated prometheus.Registry per connection or call Unregister.
func New(reg prometheus.Registerer, connID string) *Recorder {
	r := &Recorder{
		picks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "h3prio",
			Name:        "picks_total",
			Help:        "Number of times pick_next returned a node, by node type.",
			ConstLabels: prometheus.Labels{"conn": connID},
		}, []string{"node_type"}),
		treeSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "h3prio",
			Name:        "tree_nodes",
			Help:        "Current number of live nodes in the priority tree.",
			ConstLabels: prometheus.Labels{"conn": connID},
		}),
		cycleStep: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "h3prio",
			Name:        "cycle_advance_bytes",
			Help:        "Bytes charged per Schedule call that advanced a node's cycle.",
			ConstLabels: prometheus.Labels{"conn": connID},
			Buckets:     prometheus.ExponentialBuckets(64, 4, 8),
		}),
	}
	reg.MustRegister(r.picks, r.treeSize, r.cycleStep)
	return r
}

// RecordPick counts one pick_next result.
func (r *Recorder) RecordPick(n *priority.Node) {
	if r == nil || n == nil {
		return
	}
	r.picks.WithLabelValues(n.NID().Type.String()).Inc()
}

// RecordWrite records the bytes charged by an on_write call.
func (r *Recorder) RecordWrite(nwrite int) {
	if r == nil {
		return
	}
	r.cycleStep.Observe(float64(nwrite))
}

// SetTreeSize reports the current live node count.
func (r *Recorder) SetTreeSize(n int) {
	if r == nil {
		return
	}
	r.treeSize.Set(float64(n))
}
