package algorithm

import (
	"context"
	"fmt"
	"log/slog"

	"ltlmc/graph"
	"ltlmc/parallel"
	"ltlmc/scheduler"
	"ltlmc/state"
	"ltlmc/stateManager"
	"ltlmc/visitor"
)

// Worker runs the sections of the detection algorithm on one partition of the state space.
type Worker struct {
	id      int
	graph   graph.Graph
	reducer graph.Reducer
	store   *stateManager.Manager
	visitor *visitor.Visitor
	log     *slog.Logger

	initials []graph.State
	// States deferred by the reducer, expanded in the next visit
	forced []graph.State
	// The iteration last cleaned up, -1 if none
	cleaned int
}

func NewWorker(id int, g graph.Graph, m *stateManager.Manager, comms scheduler.Comms, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	w := &Worker{
		id:       id,
		graph:    g,
		store:    m,
		visitor:  visitor.New(id, g, m, comms, log),
		log:      log.With("worker", id),
		initials: []graph.State{},
		cleaned:  -1,
	}
	w.reducer, _ = g.(graph.Reducer)
	g.Initials(func(s graph.State) { w.initials = append(w.initials, s) })
	return w
}

func (w *Worker) Run(ctx context.Context, section parallel.Section, sh Shared) (Shared, error) {
	sh = sh.request()
	switch section {
	case SectionInit:
		return w.init(sh)
	case SectionVisit:
		return w.visit(ctx, sh)
	case SectionCleanup:
		return w.cleanup(sh), nil
	case SectionPOR:
		return w.por(sh), nil
	case SectionParentTrace:
		return w.parentTrace(sh)
	case SectionTraceCycle:
		return w.traceCycle(ctx, sh)
	}
	return sh, fmt.Errorf("algorithm: unknown section %d", section)
}

func (w *Worker) init(sh Shared) (Shared, error) {
	if sh.Peers != w.store.Workers() {
		return sh, fmt.Errorf("algorithm: worker %d expects %d peers, the run has %d", w.id, w.store.Workers(), sh.Peers)
	}
	w.forced = nil
	w.cleaned = -1
	return sh, nil
}

func (w *Worker) visit(ctx context.Context, sh Shared) (Shared, error) {
	l := &mapListener{iteration: sh.Iteration, graph: w.graph, reducer: w.reducer}
	pass := visitor.Pass{Number: sh.Pass, Round: sh.Round, Listener: l}
	if sh.Round == 0 {
		pass.Roots = w.initials
		pass.Forced = w.forced
		w.forced = nil
	}
	stats, err := w.visitor.Run(ctx, pass)
	if err != nil {
		return sh, err
	}
	sh.Expanded = l.expanded
	sh.Accepting = l.accepting
	sh.States = stats.States
	sh.Transitions = stats.Transitions
	sh.Sent = stats.Sent
	sh.CE.Initial = l.witness
	w.log.Debug("Visit done", "iteration", sh.Iteration, "round", sh.Round,
		"expanded", stats.Expanded, "transitions", stats.Transitions, "sent", stats.Sent)
	return sh, nil
}

// cleanup ends an iteration on the records owned by this worker.
func (w *Worker) cleanup(sh Shared) Shared {
	if w.cleaned == int(sh.Iteration) {
		return sh
	}
	w.cleaned = int(sh.Iteration)

	w.store.Owned(w.id, func(h state.Handle, rec *stateManager.Record) {
		rec.Lock()
		defer rec.Unlock()
		ext := &rec.Ext
		ext.OldMap = ext.Map
		ext.Map = state.VertexId{}
		switch ext.Elim {
		case state.Excluded:
			ext.Elim = state.Candidate
		case state.Candidate:
			ext.Elim = state.Eliminated
			sh.Eliminated++
		}
	})
	w.log.Debug("Cleanup done", "iteration", sh.Iteration, "eliminated", sh.Eliminated)
	return sh
}

func (w *Worker) por(sh Shared) Shared {
	if w.reducer == nil {
		return sh
	}
	forced := w.reducer.Eliminate(w.id)
	if len(forced) > 0 {
		w.forced = append(w.forced, forced...)
		sh.NeedExpand = true
		w.log.Debug("Reducer forced states", "iteration", sh.Iteration, "states", len(forced))
	}
	return sh
}

// parentTrace resolves sh.CE.Current if this worker owns it.
func (w *Worker) parentTrace(sh Shared) (Shared, error) {
	if sh.CE.Current.Owner() != w.id {
		return sh, nil
	}
	rec, err := w.store.Record(sh.CE.Current)
	if err != nil {
		return sh, err
	}
	rec.Lock()
	parent := rec.Ext.Parent
	rec.Unlock()

	sh.CE.Resolved = true
	sh.CE.State = rec.State
	sh.CE.Parent = parent
	sh.CE.IsInitial = graph.IsInitial(w.graph, rec.State)
	sh.CE.Index = 0
	if sh.CE.Successor.Valid() {
		sh.CE.Index = graph.SuccessorIndex(w.graph, rec.State, sh.CE.Successor)
	}
	return sh, nil
}

func (w *Worker) traceCycle(ctx context.Context, sh Shared) (Shared, error) {
	l := &cycleListener{iteration: sh.Iteration, target: sh.CE.Initial}
	pass := visitor.Pass{Number: sh.Pass, Round: sh.Round, Listener: l}
	if sh.Round == 0 && sh.CE.Initial.Owner() == w.id {
		rec, err := w.store.Record(sh.CE.Initial)
		if err != nil {
			return sh, err
		}
		pass.Roots = []graph.State{rec.State}
	}
	stats, err := w.visitor.Run(ctx, pass)
	if err != nil {
		return sh, err
	}
	sh.Sent = stats.Sent
	sh.CE.Closed = l.closed
	return sh, nil
}
