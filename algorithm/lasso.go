package algorithm

import (
	"context"
	"errors"
	"fmt"

	"ltlmc/checking"
	"ltlmc/graph"
	"ltlmc/state"
	"ltlmc/stateManager"
)

var errBrokenTrace = errors.New("algorithm: parent chain broken")

// counterexample reconstructs a path from an initial state to the witness
// and a cycle from the witness back to itself.
func (m *Map) counterexample(ctx context.Context) (checking.Trace, checking.Trace, error) {
	prefix, err := m.parentTrace(ctx, m.witness, false)
	if err != nil {
		return nil, nil, err
	}

	// A fresh iteration number marks the states reached by the cycle search
	m.shared.Iteration = uint16(m.iteration + 1)
	m.shared.CE = CE{Initial: m.witness}
	merged, err := m.pass(ctx, SectionTraceCycle)
	if err != nil {
		return nil, nil, err
	}
	if !merged.CE.Closed {
		return nil, nil, fmt.Errorf("%w: no cycle through %v", errBrokenTrace, m.witness)
	}

	cycle, err := m.parentTrace(ctx, m.witness, true)
	if err != nil {
		return nil, nil, err
	}
	return prefix, cycle, nil
}

// parentTrace follows parents from start around the ring of workers.
// The walk ends at an initial state, or back at start if cycle is set.
// The returned trace runs in the forward direction.
func (m *Map) parentTrace(ctx context.Context, start state.Handle, cycle bool) (checking.Trace, error) {
	trace := checking.Trace{}
	cur := start
	var succ graph.State
	// A walk cannot be longer than the number of stored states
	limit := m.expanded + 2
	for steps := int64(0); ; steps++ {
		if steps > limit {
			return nil, fmt.Errorf("%w: no end after %d steps from %v", errBrokenTrace, steps, start)
		}
		sh := m.shared
		sh.CE = CE{Initial: m.witness, Current: cur, Successor: succ}
		res, err := m.topology.Ring(ctx, SectionParentTrace, sh)
		if err != nil {
			return nil, err
		}
		if !res.CE.Resolved {
			return nil, fmt.Errorf("%w: %v", stateManager.ErrUnknownHandle, cur)
		}
		if succ.Valid() {
			trace = append(trace, checking.Step{State: res.CE.State, Successor: res.CE.Index})
		}
		if cycle && succ.Valid() && cur == start {
			break
		}
		if !cycle && res.CE.IsInitial {
			break
		}
		if !res.CE.Parent.Valid() {
			return nil, fmt.Errorf("%w: %s has no parent", errBrokenTrace, res.CE.State)
		}
		succ, cur = res.CE.State, res.CE.Parent
	}

	for i, j := 0, len(trace)-1; i < j; i, j = i+1, j-1 {
		trace[i], trace[j] = trace[j], trace[i]
	}
	return trace, nil
}
