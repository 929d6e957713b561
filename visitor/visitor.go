// Package visitor implements the partitioned graph traversal shared by the
// detection and counterexample passes.
package visitor

import (
	"context"
	"fmt"
	"log/slog"

	"ltlmc/graph"
	"ltlmc/scheduler"
	"ltlmc/state"
	"ltlmc/stateManager"
)

type Action int

const (
	// Ignore the target
	Forget Action = iota
	// Queue the target for expansion
	Expand
	// End the pass on every worker
	Terminate
)

func (a Action) String() string {
	switch a {
	case Forget:
		return "Forget"
	case Expand:
		return "Expand"
	case Terminate:
		return "Terminate"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Source is the view of an edge's source given to a Listener.
// Ext points to the live, locked extension when the source is stored locally
// and to the snapshot carried by the edge otherwise.
type Source struct {
	Handle    state.Handle
	State     graph.State
	Accepting bool
	Ext       *state.Extension
}

func (s Source) Valid() bool { return s.Handle.Valid() }

// Listener classifies the edges and expansions of a pass.
// Both methods are called with the records involved locked.
type Listener interface {
	Transition(from Source, to state.Handle, rec *stateManager.Record) Action
	Expansion(h state.Handle, rec *stateManager.Record)
}

// Stats are the counters of one worker's pass.
type Stats struct {
	Expanded    int64
	Transitions int64
	// Edges handed to other workers
	Sent int64
	// States stored for the first time
	States int64
}

// flush outgoing edges once a buffer holds this many
const batchSize = 64

// Visitor is the traversal of one worker.
type Visitor struct {
	worker int
	graph  graph.Graph
	store  *stateManager.Manager
	comms  scheduler.Comms
	log    *slog.Logger
}

func New(worker int, g graph.Graph, m *stateManager.Manager, comms scheduler.Comms, log *slog.Logger) *Visitor {
	if log == nil {
		log = slog.Default()
	}
	return &Visitor{
		worker: worker,
		graph:  g,
		store:  m,
		comms:  comms,
		log:    log.With("worker", worker),
	}
}

// Pass describes one traversal pass.
type Pass struct {
	// Numbered from 1, the same on every worker
	Number uint64
	// Rounds of a pass continue with the edges left in flight by the previous round
	Round    int
	Listener Listener
	// Roots are offered to every worker; each keeps those it owns
	Roots []graph.State
	// Forced states are expanded whatever the classification and may be owned by any worker
	Forced []graph.State
}

type run struct {
	*Visitor
	ctx     context.Context
	pass    Pass
	stats   Stats
	queue   []state.Handle
	local   []scheduler.Edge
	out     [][]scheduler.Edge
	stopped bool
}

// Run processes edges until the pass ends on this worker.
func (v *Visitor) Run(ctx context.Context, pass Pass) (Stats, error) {
	r := &run{
		Visitor: v,
		ctx:     ctx,
		pass:    pass,
		out:     make([][]scheduler.Edge, v.store.Workers()),
	}
	v.comms.Begin(v.worker, pass.Number, pass.Round)
	// Workers blocked waiting for edges must not outlive a cancelled run
	stop := context.AfterFunc(ctx, v.comms.Interrupt)
	defer stop()

	for _, s := range pass.Roots {
		hash := v.store.Hash(s)
		if v.store.Owner(hash) == v.worker {
			r.local = append(r.local, scheduler.Edge{To: s, Hash: hash})
		}
	}
	for _, s := range pass.Forced {
		if err := r.route(scheduler.Edge{To: s, Force: true}); err != nil {
			v.comms.Interrupt()
			return r.stats, err
		}
	}

	if err := r.loop(); err != nil {
		v.comms.Interrupt()
		return r.stats, err
	}
	if v.comms.Settled() {
		r.stats.Sent = 0
	}
	return r.stats, nil
}

func (r *run) loop() error {
	for {
		for len(r.local) > 0 || len(r.queue) > 0 {
			if err := r.ctx.Err(); err != nil {
				return err
			}
			if r.stopped || r.comms.Interrupted() {
				return nil
			}
			if len(r.local) > 0 {
				e := r.local[0]
				r.local = r.local[1:]
				if err := r.edge(e); err != nil {
					return err
				}
				continue
			}
			h := r.queue[0]
			r.queue = r.queue[1:]
			if err := r.expand(h); err != nil {
				return err
			}
		}
		if err := r.flush(); err != nil {
			return err
		}
		if r.stopped {
			return nil
		}
		edges, ok := r.comms.Wait(r.worker)
		if !ok {
			return nil
		}
		r.local = append(r.local, edges...)
	}
}

// Sends e to the owner of its target
func (r *run) route(e scheduler.Edge) error {
	if e.Hash == 0 {
		e.Hash = r.store.Hash(e.To)
	}
	owner := r.store.Owner(e.Hash)
	if owner == r.worker {
		r.local = append(r.local, e)
		return nil
	}
	r.out[owner] = append(r.out[owner], e)
	if len(r.out[owner]) >= batchSize {
		return r.send(owner)
	}
	return nil
}

func (r *run) send(owner int) error {
	edges := r.out[owner]
	if len(edges) == 0 {
		return nil
	}
	r.out[owner] = nil
	r.stats.Sent += int64(len(edges))
	if err := r.comms.Submit(r.ctx, owner, edges); err != nil {
		return fmt.Errorf("visitor: sending %d edges to worker %d: %w", len(edges), owner, err)
	}
	return nil
}

func (r *run) flush() error {
	for owner := range r.out {
		if err := r.send(owner); err != nil {
			return err
		}
	}
	return nil
}

// Stores the target of e and classifies the edge
func (r *run) edge(e scheduler.Edge) error {
	h, had, err := r.store.Fetch(r.worker, e.To, e.Hash)
	if err != nil {
		return err
	}
	if !had {
		r.stats.States++
	}
	rec, err := r.store.Record(h)
	if err != nil {
		return err
	}

	src := Source{Handle: e.From, State: e.FromState, Accepting: e.FromAccepting}
	var from *stateManager.Record
	if !e.IsRoot() {
		from, _ = r.store.Record(e.From)
	}
	var unlock func()
	if from != nil {
		// The source is stored here, classify against its current extension
		unlock, err = r.store.Lock(e.From, h)
		if err != nil {
			return err
		}
		src.Ext = &from.Ext
	} else {
		unlock, err = r.store.Lock(h)
		if err != nil {
			return err
		}
		snapshot := e.FromExt
		src.Ext = &snapshot
	}
	act := r.pass.Listener.Transition(src, h, rec)
	unlock()
	r.stats.Transitions++

	if act == Forget && e.Force {
		act = Expand
	}
	switch act {
	case Expand:
		r.queue = append(r.queue, h)
	case Terminate:
		r.log.Debug("Terminating pass", "pass", r.pass.Number, "edge", e)
		r.stopped = true
		r.comms.Interrupt()
	}
	return nil
}

func (r *run) expand(h state.Handle) error {
	rec, err := r.store.Record(h)
	if err != nil {
		return err
	}
	rec.Lock()
	r.pass.Listener.Expansion(h, rec)
	ext := rec.Ext
	rec.Unlock()
	r.stats.Expanded++

	accepting := r.graph.IsAccepting(rec.State)
	var routeErr error
	r.graph.Successors(rec.State, func(s graph.State) {
		if routeErr != nil {
			return
		}
		routeErr = r.route(scheduler.Edge{
			From:          h,
			FromState:     rec.State,
			FromAccepting: accepting,
			FromExt:       ext,
			To:            s,
		})
	})
	return routeErr
}
