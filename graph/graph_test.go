package graph

import (
	"strings"
	"testing"

	"golang.org/x/exp/slices"
)

func collect(fn func(yield func(State))) []string {
	out := []string{}
	fn(func(s State) { out = append(out, string(s)) })
	return out
}

func TestExplicit(t *testing.T) {
	g := NewExplicit().AddInitial("A").AddEdge("A", "B").AddEdge("A", "C").AddEdge("B", "B").SetAccepting("B")

	if got := collect(g.Initials); !slices.Equal(got, []string{"A"}) {
		t.Errorf("Unexpected initials: %v", got)
	}
	if got := collect(func(y func(State)) { g.Successors(State("A"), y) }); !slices.Equal(got, []string{"B", "C"}) {
		t.Errorf("Unexpected successors of A: %v", got)
	}
	if !g.IsAccepting(State("B")) || g.IsAccepting(State("A")) {
		t.Errorf("Only B should be accepting")
	}
	if got := g.States(); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("Unexpected states: %v", got)
	}
}

func TestSuccessorIndex(t *testing.T) {
	g := NewExplicit().AddInitial("A").AddEdge("A", "B").AddEdge("A", "C")
	tests := []struct {
		to   string
		want int
	}{
		{"B", 1},
		{"C", 2},
		{"A", 0},
	}
	for _, test := range tests {
		if got := SuccessorIndex(g, State("A"), State(test.to)); got != test.want {
			t.Errorf("Index of %v: expected %v. Got: %v", test.to, test.want, got)
		}
	}
	if !IsInitial(g, State("A")) || IsInitial(g, State("B")) {
		t.Errorf("Only A should be initial")
	}
}

func TestLoadExplicit(t *testing.T) {
	in := `
initial: [A]
accepting: [B]
edges:
  A: [B, C]
  B: [B]
`
	g, err := LoadExplicit(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := collect(func(y func(State)) { g.Successors(State("A"), y) }); !slices.Equal(got, []string{"B", "C"}) {
		t.Errorf("Unexpected successors of A: %v", got)
	}
	if !g.IsAccepting(State("B")) {
		t.Errorf("B should be accepting")
	}

	if _, err := LoadExplicit(strings.NewReader("edges: {}")); err == nil {
		t.Errorf("Expected an error for a graph without initial states")
	}
}
