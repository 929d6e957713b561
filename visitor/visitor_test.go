package visitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"ltlmc/graph"
	"ltlmc/scheduler"
	"ltlmc/state"
	"ltlmc/stateManager"
	"ltlmc/store"

	"golang.org/x/sync/errgroup"
)

// Expands every state the first time an edge reaches it
type reachability struct {
	mu       sync.Mutex
	expanded map[string]int
	stopAt   string
}

func (r *reachability) Transition(from Source, to state.Handle, rec *stateManager.Record) Action {
	if r.stopAt != "" && string(rec.State) == r.stopAt {
		return Terminate
	}
	if rec.Ext.Seen {
		return Forget
	}
	rec.Ext.Seen = true
	if from.Valid() {
		rec.Ext.Parent = from.Handle
	}
	return Expand
}

func (r *reachability) Expansion(h state.Handle, rec *stateManager.Record) {
	r.mu.Lock()
	r.expanded[string(rec.State)]++
	r.mu.Unlock()
}

// A chain 0 -> 1 -> ... -> n-1 with every state also pointing back to 0
func chain(n int) *graph.Explicit {
	g := graph.NewExplicit().AddInitial("0")
	for i := 0; i < n-1; i++ {
		g.AddEdge(fmt.Sprint(i), fmt.Sprint(i+1))
		g.AddEdge(fmt.Sprint(i+1), "0")
	}
	return g
}

func runPass(t *testing.T, workers int, g graph.Graph, l Listener) (*stateManager.Manager, Stats) {
	cfg := store.DefaultConfig()
	cfg.Size = 8
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	m := stateManager.New(workers, cfg)
	mb := scheduler.NewMailbox(workers)

	roots := []graph.State{}
	g.Initials(func(s graph.State) { roots = append(roots, s) })

	stats := make([]Stats, workers)
	eg, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		w := w
		v := New(w, g, m, mb, slog.New(slog.NewTextHandler(io.Discard, nil)))
		eg.Go(func() error {
			s, err := v.Run(ctx, Pass{Number: 1, Listener: l, Roots: roots})
			stats[w] = s
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	total := Stats{}
	for _, s := range stats {
		total.Expanded += s.Expanded
		total.Transitions += s.Transitions
		total.Sent += s.Sent
		total.States += s.States
	}
	return m, total
}

func TestVisitReachesEveryState(t *testing.T) {
	for _, workers := range []int{1, 2, 4} {
		workers := workers
		t.Run(fmt.Sprintf("Workers%d", workers), func(t *testing.T) {
			l := &reachability{expanded: map[string]int{}}
			m, stats := runPass(t, workers, chain(200), l)

			if len(l.expanded) != 200 {
				t.Fatalf("Expected 200 expanded states. Got: %v", len(l.expanded))
			}
			for s, n := range l.expanded {
				if n != 1 {
					t.Errorf("State %v expanded %v times", s, n)
				}
			}
			if stats.Expanded != 200 || stats.States != 200 {
				t.Errorf("Unexpected stats: %+v", stats)
			}
			// One root edge and two edges out of every state but the last
			if stats.Transitions != 1+2*199 {
				t.Errorf("Expected %v transitions. Got: %v", 1+2*199, stats.Transitions)
			}
			if stats.Sent != 0 {
				t.Errorf("A mailbox pass should report nothing in flight. Got: %v", stats.Sent)
			}
			if m.Len() != 200 {
				t.Errorf("Expected 200 stored states. Got: %v", m.Len())
			}
		})
	}
}

func TestVisitParents(t *testing.T) {
	l := &reachability{expanded: map[string]int{}}
	m, _ := runPass(t, 2, chain(10), l)

	h, ok := m.Lookup(graph.State("5"), 0)
	if !ok {
		t.Fatalf("State 5 was not stored")
	}
	rec, _ := m.Record(h)
	parent, err := m.Record(rec.Ext.Parent)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(parent.State) != "4" {
		t.Fatalf("Expected 4 to be the parent of 5. Got: %v", parent.State)
	}
}

func TestVisitTerminate(t *testing.T) {
	l := &reachability{expanded: map[string]int{}, stopAt: "50"}
	_, _ = runPass(t, 3, chain(200), l)

	if _, ok := l.expanded["150"]; ok {
		t.Fatalf("The pass should have stopped before reaching state 150")
	}
	if _, ok := l.expanded["49"]; !ok {
		t.Fatalf("Expected state 49 to be expanded before the pass stopped")
	}
}

func TestForcedExpansion(t *testing.T) {
	g := graph.NewExplicit().AddInitial("A").AddEdge("A", "B").AddEdge("C", "D")
	cfg := store.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	m := stateManager.New(1, cfg)
	mb := scheduler.NewMailbox(1)
	l := &reachability{expanded: map[string]int{}}
	v := New(0, g, m, mb, nil)

	if _, err := v.Run(context.Background(), Pass{Number: 1, Listener: l, Roots: []graph.State{graph.State("A")}}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// A has been seen, forcing it expands it again. C is unreachable but forced.
	if _, err := v.Run(context.Background(), Pass{Number: 2, Listener: l, Forced: []graph.State{graph.State("A"), graph.State("C")}}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if l.expanded["A"] != 2 {
		t.Errorf("Expected A to be expanded twice. Got: %v", l.expanded["A"])
	}
	if l.expanded["C"] != 1 || l.expanded["D"] != 1 {
		t.Errorf("Expected the forced state C and its successor D to be expanded. Got: %v", l.expanded)
	}
}
