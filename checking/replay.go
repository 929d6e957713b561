package checking

import (
	"errors"
	"fmt"

	"ltlmc/graph"
)

var ErrReplay = errors.New("checking: unable to replay counterexample")

// Replay rebuilds an exported counterexample by following successor indices
// from start, the first state of the prefix. The cycle must start in an
// accepting state and lead back to it.
func Replay(g graph.Graph, start graph.State, prefix, cycle []int) (Trace, Trace, error) {
	if len(cycle) == 0 {
		return nil, nil, fmt.Errorf("%w: empty cycle", ErrReplay)
	}
	pt, entry, err := follow(g, start, prefix)
	if err != nil {
		return nil, nil, err
	}
	if !g.IsAccepting(entry) {
		return nil, nil, fmt.Errorf("%w: cycle entry %v is not accepting", ErrReplay, entry)
	}
	ct, end, err := follow(g, entry, cycle)
	if err != nil {
		return nil, nil, err
	}
	if string(end) != string(entry) {
		return nil, nil, fmt.Errorf("%w: cycle ends in %v instead of %v", ErrReplay, end, entry)
	}
	return pt, ct, nil
}

func follow(g graph.Graph, s graph.State, indices []int) (Trace, graph.State, error) {
	trace := Trace{}
	for i, idx := range indices {
		next := nth(g, s, idx)
		if next == nil {
			return nil, nil, fmt.Errorf("%w: %v has no successor %d at step %d", ErrReplay, s, idx, i)
		}
		trace = append(trace, Step{State: s, Successor: idx})
		s = next
	}
	return trace, s, nil
}

func nth(g graph.Graph, s graph.State, n int) graph.State {
	i := 0
	var out graph.State
	g.Successors(s, func(succ graph.State) {
		i++
		if i == n {
			out = succ
		}
	})
	return out
}
