package algorithm

import (
	"ltlmc/graph"
	"ltlmc/state"
	"ltlmc/stateManager"
	"ltlmc/visitor"
)

// mapListener applies the maximal accepting predecessor rule to the edges of one visit pass.
type mapListener struct {
	iteration uint16
	graph     graph.Graph
	reducer   graph.Reducer

	expanded  int64
	accepting int64
	witness   state.Handle
}

func (l *mapListener) updateIteration(ext *state.Extension) visitor.Action {
	if ext.Iteration != l.iteration {
		ext.Iteration = l.iteration
		return visitor.Expand
	}
	return visitor.Forget
}

// An accepting state may still close a cycle. The first time a state turns
// out not to be accepting it is marked so.
func (l *mapListener) isAccepting(rec *stateManager.Record) bool {
	if !rec.Ext.Accepting() {
		return false
	}
	if !l.graph.IsAccepting(rec.State) {
		rec.Ext.Elim = state.NotAccepting
		return false
	}
	return true
}

func (l *mapListener) found(h state.Handle) visitor.Action {
	if !l.witness.Valid() || h < l.witness {
		l.witness = h
	}
	return visitor.Terminate
}

func (l *mapListener) Transition(from visitor.Source, to state.Handle, rec *stateManager.Record) visitor.Action {
	t := &rec.Ext
	if !from.Valid() {
		return l.updateIteration(t)
	}
	if l.reducer != nil && l.iteration == 1 {
		l.reducer.Transition(from.State, rec.State)
	}
	f := from.Ext

	if !t.Parent.Valid() {
		t.Parent = from.Handle
	}
	if from.Accepting && from.Handle == to {
		return l.found(to)
	}

	accepting := l.isAccepting(rec)
	id := state.VertexIdOf(to)
	if accepting && f.Map == id {
		return l.found(to)
	}

	// States whose maps differed at the end of the last iteration are in
	// different components and do not exchange maps
	if f.OldMap.Valid() && t.OldMap.Valid() && f.OldMap != t.OldMap {
		return l.updateIteration(t)
	}

	m := state.MaxVertexId(f.Map, t.Map)
	if accepting {
		m = state.MaxVertexId(m, id)
	}
	if t.Map.Less(m) {
		if accepting && t.Elim == state.Candidate && id.Less(m) {
			t.Elim = state.Excluded
		}
		t.Map = m
		return visitor.Expand
	}
	return l.updateIteration(t)
}

func (l *mapListener) Expansion(h state.Handle, rec *stateManager.Record) {
	l.expanded++
	if rec.Ext.Seen {
		return
	}
	rec.Ext.Seen = true
	if l.graph.IsAccepting(rec.State) {
		l.accepting++
	} else {
		rec.Ext.Elim = state.NotAccepting
	}
}

// cycleListener searches breadth first from target and re-parents every
// state it reaches until an edge closes the cycle.
type cycleListener struct {
	iteration uint16
	target    state.Handle
	closed    bool
}

func (l *cycleListener) Transition(from visitor.Source, to state.Handle, rec *stateManager.Record) visitor.Action {
	if from.Valid() && to == l.target {
		rec.Ext.Parent = from.Handle
		l.closed = true
		return visitor.Terminate
	}
	if rec.Ext.Iteration == l.iteration {
		return visitor.Forget
	}
	rec.Ext.Iteration = l.iteration
	if from.Valid() {
		rec.Ext.Parent = from.Handle
	}
	return visitor.Expand
}

func (l *cycleListener) Expansion(state.Handle, *stateManager.Record) {}
