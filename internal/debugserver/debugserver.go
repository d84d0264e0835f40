// Package debugserver exposes a read-only view of one connection's
// priority tree over plain HTTP/1.1, an operator-facing debug surface,
// not the HTTP/3 connection's own transport (spec.md §1 keeps
// connection-level I/O out of scope; this is a second, unrelated
// listener an operator hits with curl). Grounded on rclone's lib/http
// package, which serves its JSON/API routes over github.com/go-chi/chi/v5.
package debugserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rclone/h3prio/internal/priority"
	"github.com/rclone/h3prio/internal/scheduler"
)

// NodeView is the JSON-friendly projection of one priority.Node.
type NodeView struct {
	NID            string     `json:"nid"`
	Seq            uint64     `json:"seq"`
	Weight         int        `json:"weight"`
	Cycle          uint64     `json:"cycle"`
	PendingPenalty uint64     `json:"pending_penalty"`
	Active         bool       `json:"active"`
	Scheduled      bool       `json:"scheduled"`
	Children       []NodeView `json:"children,omitempty"`
}

func snapshot(n *priority.Node) NodeView {
	children := n.Children()
	v := NodeView{
		NID:            n.NID().String(),
		Seq:            n.Seq(),
		Weight:         n.Weight(),
		Cycle:          n.Cycle(),
		PendingPenalty: n.PendingPenalty(),
		Active:         n.Active(),
		Scheduled:      n.IsScheduled(),
		Children:       make([]NodeView, 0, len(children)),
	}
	for _, c := range children {
		v.Children = append(v.Children, snapshot(c))
	}
	return v
}

// New builds a chi.Router serving:
//
//	GET /tree    - JSON dump of the live priority tree
//	GET /metrics - Prometheus text exposition
func New(s *scheduler.Scheduler) http.Handler {
	r := chi.NewRouter()
	r.Get("/tree", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snapshot(s.Root()))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
