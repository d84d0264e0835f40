// Command h3prio is the CLI harness for the priority scheduler: it
// replays a scripted sequence of connection events (create, priority,
// write, end) and prints the resulting pick order, or serves the live
// tree over HTTP for inspection. It stands in for the "CLI/test
// harness" spec.md §1 places outside the scheduler's own scope,
// following rclone's cmd/-package-per-subcommand convention.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rclone/h3prio/internal/config"
	"github.com/rclone/h3prio/internal/debugserver"
	"github.com/rclone/h3prio/internal/h3frame"
	"github.com/rclone/h3prio/internal/log"
	"github.com/rclone/h3prio/internal/metrics"
	"github.com/rclone/h3prio/internal/scheduler"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var verbose bool

	root := &cobra.Command{
		Use:   "h3prio",
		Short: "Replay and inspect the HTTP/3 weighted priority scheduler",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	opts := config.RegisterFlags(root.PersistentFlags())

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	}

	root.AddCommand(newReplayCommand(opts))
	root.AddCommand(newDemoCommand(opts))
	root.AddCommand(newServeCommand(opts))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// scriptEvent is one line of a replay script file.
type scriptEvent struct {
	Op              string `json:"op"` // create | priority | write | end | pick
	Type            string `json:"type,omitempty"`
	ID              int64  `json:"id,omitempty"`
	DepType         string `json:"dep_type,omitempty"`
	DepID           int64  `json:"dep_id,omitempty"`
	Weight          int    `json:"weight,omitempty"`
	NWrite          int    `json:"nwrite,omitempty"`
	OnControlStream bool   `json:"on_control_stream,omitempty"`
}

func entityFor(typ string, id int64) scheduler.Entity {
	switch typ {
	case "push":
		return scheduler.Push{ID: id}
	case "placeholder":
		return scheduler.Placeholder{ID: id}
	default:
		return scheduler.Stream{ID: id}
	}
}

func elemType(typ string) h3frame.PriElemType {
	switch typ {
	case "push":
		return h3frame.PriElemPush
	case "placeholder":
		return h3frame.PriElemPlaceholder
	case "current":
		return h3frame.PriElemCurrent
	default:
		return h3frame.PriElemRequest
	}
}

func depType(typ string) h3frame.ElemDepType {
	switch typ {
	case "push":
		return h3frame.ElemDepPush
	case "placeholder":
		return h3frame.ElemDepPlaceholder
	case "root":
		return h3frame.ElemDepRoot
	default:
		return h3frame.ElemDepRequest
	}
}

func runScript(ctx context.Context, s *scheduler.Scheduler, events []scriptEvent) error {
	for i, ev := range events {
		switch ev.Op {
		case "create":
			if _, err := s.OnCreate(ctx, entityFor(ev.Type, ev.ID)); err != nil {
				return fmt.Errorf("event %d (create): %w", i, err)
			}
		case "priority":
			frame := h3frame.Frame{
				PriElemType:     elemType(ev.Type),
				PriElemID:       ev.ID,
				ElemDepType:     depType(ev.DepType),
				ElemDepID:       ev.DepID,
				Weight:          ev.Weight,
				OnControlStream: ev.OnControlStream,
				CurrentStreamID: ev.ID,
			}
			if err := s.OnPriority(ctx, frame); err != nil {
				return fmt.Errorf("event %d (priority): %w", i, err)
			}
		case "write":
			if err := s.OnWrite(ctx, entityFor(ev.Type, ev.ID), ev.NWrite); err != nil {
				return fmt.Errorf("event %d (write): %w", i, err)
			}
		case "end":
			if err := s.OnStreamEnd(ctx, entityFor(ev.Type, ev.ID)); err != nil {
				return fmt.Errorf("event %d (end): %w", i, err)
			}
		case "pick":
			nid, ok := s.PickNext()
			if !ok {
				fmt.Println("pick: <none schedulable>")
			} else {
				fmt.Printf("pick: %v\n", nid)
			}
		default:
			return fmt.Errorf("event %d: unknown op %q", i, ev.Op)
		}
	}
	return nil
}

func newReplayCommand(opts *scheduler.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <script.json>",
		Short: "Replay a JSON array of connection events against a fresh scheduler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var events []scriptEvent
			if err := json.Unmarshal(data, &events); err != nil {
				return err
			}
			connID := uuid.New()
			ctx := log.WithConn(context.Background(), connID.String())
			s := scheduler.New(connID, *opts, nil)
			return runScript(ctx, s, events)
		},
	}
}

func newDemoCommand(opts *scheduler.Options) *cobra.Command {
	var picks int
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the two-stream weighted fair share demo (spec scenario S1)",
		RunE: func(cmd *cobra.Command, args []string) error {
			connID := uuid.New()
			ctx := log.WithConn(context.Background(), connID.String())
			s := scheduler.New(connID, *opts, nil)

			if _, err := s.OnCreate(ctx, scheduler.Stream{ID: 0}); err != nil {
				return err
			}
			if _, err := s.OnCreate(ctx, scheduler.Stream{ID: 1}); err != nil {
				return err
			}
			if err := s.OnPriority(ctx, h3frame.Frame{
				PriElemType: h3frame.PriElemCurrent, CurrentStreamID: 0,
				ElemDepType: h3frame.ElemDepRoot, Weight: 100,
			}); err != nil {
				return err
			}
			if err := s.OnPriority(ctx, h3frame.Frame{
				PriElemType: h3frame.PriElemCurrent, CurrentStreamID: 1,
				ElemDepType: h3frame.ElemDepRoot, Weight: 200,
			}); err != nil {
				return err
			}
			for _, id := range []int64{0, 1} {
				if err := s.OnWrite(ctx, scheduler.Stream{ID: id}, 0); err != nil {
					return err
				}
			}

			counts := map[string]int{}
			for i := 0; i < picks; i++ {
				nid, ok := s.PickNext()
				if !ok {
					break
				}
				counts[nid.String()]++
				stream := scheduler.Stream{ID: nid.ID}
				if err := s.OnWrite(ctx, stream, 256); err != nil {
					return err
				}
			}
			fmt.Printf("picks after %d rounds: %v\n", picks, counts)
			return nil
		},
	}
	cmd.Flags().IntVar(&picks, "picks", 30, "Number of pick_next rounds to run")
	return cmd
}

func newServeCommand(opts *scheduler.Options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an empty connection's tree over HTTP for inspection",
		RunE: func(cmd *cobra.Command, args []string) error {
			connID := uuid.New()
			rec := metrics.New(prometheus.DefaultRegisterer, connID.String())
			s := scheduler.New(connID, *opts, rec)
			log.Infof(context.Background(), "serving debug endpoints on %s", addr)
			return http.ListenAndServe(addr, debugserver.New(s))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8473", "Listen address")
	return cmd
}
