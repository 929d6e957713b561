package graph

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Explicit is a graph with named states given as an edge list.
// It must not be modified once exploration has started.
type Explicit struct {
	initial   []string
	edges     map[string][]string
	accepting map[string]bool
}

func NewExplicit() *Explicit {
	return &Explicit{
		initial:   []string{},
		edges:     map[string][]string{},
		accepting: map[string]bool{},
	}
}

func (e *Explicit) AddInitial(names ...string) *Explicit {
	for _, n := range names {
		e.addState(n)
		e.initial = append(e.initial, n)
	}
	return e
}

// AddEdge adds a transition. Successors keep the order in which edges are added.
func (e *Explicit) AddEdge(from, to string) *Explicit {
	e.addState(to)
	e.edges[from] = append(e.edges[from], to)
	return e
}

func (e *Explicit) SetAccepting(names ...string) *Explicit {
	for _, n := range names {
		e.addState(n)
		e.accepting[n] = true
	}
	return e
}

func (e *Explicit) addState(n string) {
	if _, ok := e.edges[n]; !ok {
		e.edges[n] = []string{}
	}
}

// States returns the names of all states in sorted order.
func (e *Explicit) States() []string {
	names := maps.Keys(e.edges)
	slices.Sort(names)
	return names
}

func (e *Explicit) Initials(yield func(State)) {
	for _, n := range e.initial {
		yield(State(n))
	}
}

func (e *Explicit) Successors(s State, yield func(State)) {
	for _, n := range e.edges[string(s)] {
		yield(State(n))
	}
}

func (e *Explicit) IsAccepting(s State) bool { return e.accepting[string(s)] }

func (e *Explicit) StateSize() int { return 16 }

type explicitFile struct {
	Initial   []string            `yaml:"initial"`
	Accepting []string            `yaml:"accepting"`
	Edges     map[string][]string `yaml:"edges"`
}

// LoadExplicit reads a graph of the form
//
//	initial: [A]
//	accepting: [B]
//	edges:
//	  A: [B]
//	  B: [B]
func LoadExplicit(r io.Reader) (*Explicit, error) {
	var f explicitFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("graph: decoding explicit graph: %w", err)
	}
	if len(f.Initial) == 0 {
		return nil, fmt.Errorf("graph: explicit graph has no initial state")
	}
	g := NewExplicit().AddInitial(f.Initial...).SetAccepting(f.Accepting...)
	// Map iteration order is random, sort sources to build a reproducible graph
	sources := maps.Keys(f.Edges)
	slices.Sort(sources)
	for _, from := range sources {
		g.addState(from)
		for _, to := range f.Edges[from] {
			g.AddEdge(from, to)
		}
	}
	return g, nil
}

func LoadExplicitFile(path string) (*Explicit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadExplicit(f)
}
