// Package graph defines the state graph the checker explores.
package graph

import "bytes"

// State is an opaque, immutable state blob. A nil State is invalid.
type State []byte

func (s State) Valid() bool { return s != nil }

func (s State) String() string { return string(s) }

// A Graph generates the state space of a Büchi product lazily.
//
// Implementations are shared by all workers and must be safe for concurrent use.
// Successors must enumerate the successors of a state in a deterministic order.
type Graph interface {
	Initials(yield func(State))
	Successors(s State, yield func(State))
	IsAccepting(s State) bool
	// Size hint for a state blob in bytes
	StateSize() int
}

// A Reducer is an optional partial order reduction hook.
//
// During the first iteration it observes every edge. When asked to eliminate
// it returns states whose expansion was deferred and must now be forced.
type Reducer interface {
	Transition(from, to State)
	Eliminate(worker int) []State
}

// SuccessorIndex returns the 1-based position of to among the successors of from,
// or 0 if to is not a successor.
func SuccessorIndex(g Graph, from, to State) int {
	i, found := 0, 0
	g.Successors(from, func(s State) {
		i++
		if found == 0 && bytes.Equal(s, to) {
			found = i
		}
	})
	return found
}

// IsInitial returns true if s is one of the initial states of g.
func IsInitial(g Graph, s State) bool {
	found := false
	g.Initials(func(i State) {
		if !found && bytes.Equal(i, s) {
			found = true
		}
	})
	return found
}
