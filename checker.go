// Package ltlmc checks state graphs for accepting cycles.
//
// A graph is given as a graph.Graph. The check runs the MAP algorithm on
// several workers, either in process or on remote peers, and reports whether
// an accepting cycle exists together with a counterexample leading to it.
package ltlmc

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"ltlmc/algorithm"
	"ltlmc/checking"
	"ltlmc/cluster"
	"ltlmc/graph"
	"ltlmc/metrics"
	"ltlmc/parallel"
	"ltlmc/scheduler"
	"ltlmc/state"
	"ltlmc/stateManager"
	"ltlmc/store"
	"ltlmc/tree"

	"google.golang.org/grpc"
)

// Stores the configured checker.
//
// Can be used to run multiple checks, one at a time.
// A check is started by calling the Run method.
type Checker struct {
	workers int
	table   store.Config
	log     *slog.Logger
	metrics *metrics.Metrics

	counterexample bool

	peers    []string
	dialOpts []grpc.DialOption

	export []io.Writer
}

var _ checking.Checker = (*Checker)(nil)

// Run checks g for an accepting cycle.
//
// When the checker is configured with peers the graph of each remote worker
// is checked and g is ignored.
// If the state store runs out of room the response carries the
// ResourceExhausted verdict and the error wraps store.ErrResourceExhausted.
func (c *Checker) Run(ctx context.Context, g graph.Graph) (*checking.Response, error) {
	var (
		top parallel.Topology[algorithm.Shared]
		m   *stateManager.Manager
	)
	if len(c.peers) > 0 {
		remote, err := cluster.Dial[algorithm.Shared](ctx, c.peers, algorithm.Codec{}, c.dialOpts...)
		if err != nil {
			return nil, err
		}
		c.log.Info("Bound remote workers", "run", remote.RunID(), "peers", len(c.peers))
		if len(c.export) > 0 {
			c.log.Warn("The parent forest is only exported by local checks")
		}
		top = remote
	} else {
		if g == nil {
			return nil, fmt.Errorf("ltlmc: a graph is required for a local check")
		}
		m = stateManager.New(c.workers, c.table)
		mb := scheduler.NewMailbox(c.workers)
		instances := make([]parallel.Instance[algorithm.Shared], c.workers)
		for i := range instances {
			instances[i] = algorithm.NewWorker(i, g, m, mb, c.log)
		}
		top = parallel.NewLocal(instances...)
	}
	defer top.Close()

	engine := algorithm.NewMap(top, algorithm.Options{
		Logger:         c.log,
		Metrics:        c.metrics,
		Counterexample: c.counterexample,
	})
	resp, err := engine.Run(ctx)
	if m != nil && resp != nil {
		c.log.Debug("State store", "states", m.Len(), "slots", m.TableSize(), "grows", m.TableGrows())
		for _, w := range c.export {
			if err := exportParents(w, m); err != nil {
				return resp, fmt.Errorf("ltlmc: exporting parents: %w", err)
			}
		}
	}
	return resp, err
}

// Check implements checking.Checker.
func (c *Checker) Check(ctx context.Context, g graph.Graph) (checking.CheckerResponse, error) {
	resp, err := c.Run(ctx, g)
	if resp == nil {
		return nil, err
	}
	return resp, err
}

// Writes the trees formed by the parent links of the stored states.
func exportParents(w io.Writer, m *stateManager.Manager) error {
	handles := []state.Handle{}
	records := map[state.Handle]*stateManager.Record{}
	for worker := 0; worker < m.Workers(); worker++ {
		m.Owned(worker, func(h state.Handle, r *stateManager.Record) {
			handles = append(handles, h)
			records[h] = r
		})
	}
	parent := func(h state.Handle) (state.Handle, bool) {
		r := records[h]
		r.Lock()
		defer r.Unlock()
		return r.Ext.Parent, r.Ext.Parent.Valid()
	}
	name := func(h state.Handle) string { return string(records[h].State) }

	for _, t := range tree.Forest(handles, parent, name) {
		if _, err := fmt.Fprintln(w, t.Newick()); err != nil {
			return err
		}
	}
	return nil
}
