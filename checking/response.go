package checking

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"ltlmc/graph"
	"ltlmc/state"
)

type Verdict int

const (
	PropertyHolds Verdict = iota
	PropertyViolated
	ResourceExhausted
)

func (v Verdict) String() string {
	switch v {
	case PropertyHolds:
		return "PropertyHolds"
	case PropertyViolated:
		return "PropertyViolated"
	case ResourceExhausted:
		return "ResourceExhausted"
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// A Step is a state of a counterexample together with the 1-based index of
// the next state among its successors.
type Step struct {
	State     graph.State
	Successor int
}

type Trace []Step

func (t Trace) States() []string {
	out := make([]string, 0, len(t))
	for _, s := range t {
		out = append(out, string(s.State))
	}
	return out
}

func (t Trace) Indices() []int {
	out := make([]int, 0, len(t))
	for _, s := range t {
		out = append(out, s.Successor)
	}
	return out
}

func (t Trace) String() string { return strings.Join(t.States(), " -> ") }

// Response is the result of a run of the checker.
type Response struct {
	Verdict Verdict

	Expanded    int64
	Eliminated  int64
	Accepting   int64
	States      int64
	Transitions int64
	Iterations  int

	// The accepting state closing the cycle, invalid if none was found
	CycleEntry state.Handle
	// From an initial state to the cycle entry, excluded
	Prefix Trace
	// From the cycle entry back to itself
	Cycle Trace
}

func (r *Response) Response() (bool, string) {
	switch r.Verdict {
	case PropertyHolds:
		return true, fmt.Sprintf("No accepting cycle. %d states stored, %d transitions, %d states expanded, %d of %d accepting states eliminated in %d iterations",
			r.States, r.Transitions, r.Expanded, r.Eliminated, r.Accepting, r.Iterations)
	case ResourceExhausted:
		return false, fmt.Sprintf("Resources exhausted after %d states expanded in %d iterations", r.Expanded, r.Iterations)
	}

	var buffer bytes.Buffer
	wrt := tabwriter.NewWriter(&buffer, 4, 4, 1, ' ', 0)
	out := fmt.Sprintf("Accepting cycle found through %v after %d iterations.\n", r.CycleEntry, r.Iterations)
	if r.Prefix == nil && r.Cycle == nil {
		return false, out
	}
	fmt.Fprintf(wrt, "Prefix:\n")
	for _, s := range r.Prefix {
		fmt.Fprintf(wrt, "-> %v\t(successor %d)\n", s.State, s.Successor)
	}
	fmt.Fprintf(wrt, "Cycle:\n")
	for _, s := range r.Cycle {
		fmt.Fprintf(wrt, "-> %v\t(successor %d)\n", s.State, s.Successor)
	}
	wrt.Flush()
	out += buffer.String()
	return false, out
}

func (r *Response) Export() ([]int, []int) {
	return r.Prefix.Indices(), r.Cycle.Indices()
}
