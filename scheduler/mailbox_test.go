package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"ltlmc/graph"
	"ltlmc/state"
	"ltlmc/wire"
)

// Each worker forwards every edge it receives to the next worker until it
// has travelled hops times around the ring.
func runRelay(t *testing.T, mb *Mailbox, peers, hops int, pass uint64) []int {
	received := make([]int, peers)
	var wg sync.WaitGroup
	for w := 0; w < peers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			mb.Begin(w, pass, 0)
			if w == 0 {
				mb.Submit(context.Background(), 1%peers, []Edge{{To: graph.State("0")}})
			}
			for {
				edges, ok := mb.Wait(w)
				if !ok {
					return
				}
				for _, e := range edges {
					received[w]++
					var n int
					fmt.Sscan(string(e.To), &n)
					if n+1 < hops*peers {
						mb.Submit(context.Background(), (w+1)%peers, []Edge{{To: graph.State(fmt.Sprint(n + 1))}})
					}
				}
			}
		}()
	}
	wg.Wait()
	return received
}

func TestMailboxQuiescence(t *testing.T) {
	mb := NewMailbox(3)
	received := runRelay(t, mb, 3, 4, 1)
	total := 0
	for _, n := range received {
		total += n
	}
	if total != 12 {
		t.Fatalf("Expected 12 deliveries. Got: %v (%v)", total, received)
	}
	if mb.Settled() != true {
		t.Fatalf("A mailbox pass should always settle")
	}

	// The mailbox can be reused for a new pass
	received = runRelay(t, mb, 3, 2, 2)
	total = 0
	for _, n := range received {
		total += n
	}
	if total != 6 {
		t.Fatalf("Expected 6 deliveries in the second pass. Got: %v", total)
	}
}

func TestMailboxInterrupt(t *testing.T) {
	mb := NewMailbox(2)
	var wg sync.WaitGroup
	results := make([]bool, 2)
	for w := 0; w < 2; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			mb.Begin(w, 1, 0)
			if w == 0 {
				mb.Interrupt()
			}
			_, results[w] = mb.Wait(w)
		}()
	}
	wg.Wait()
	if results[0] || results[1] {
		t.Fatalf("Interrupted workers should receive nothing. Got: %v", results)
	}
	if !mb.Interrupted() {
		t.Fatalf("Expected the mailbox to be interrupted")
	}

	mb.Begin(0, 2, 0)
	if mb.Interrupted() {
		t.Fatalf("A new pass should clear the interrupt")
	}
}

func TestEdgeWire(t *testing.T) {
	edges := []Edge{
		{To: graph.State("A"), Hash: 42},
		{
			From:          state.MakeHandle(1, 3),
			FromState:     graph.State("B"),
			FromAccepting: true,
			FromExt:       state.Extension{Map: state.VertexIdOf(state.MakeHandle(0, 1)), Iteration: 2},
			To:            graph.State("C"),
			Hash:          7,
			Force:         true,
		},
	}
	w := wire.NewWriter()
	EncodeEdges(w, edges)
	got, err := DecodeEdges(wire.NewReader(w.Words()))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 edges. Got: %v", got)
	}
	if got[0].FromState != nil || !got[0].IsRoot() || string(got[0].To) != "A" {
		t.Errorf("Unexpected root edge: %v", got[0])
	}
	if got[1].From != edges[1].From || got[1].FromExt != edges[1].FromExt || !got[1].Force || !got[1].FromAccepting {
		t.Errorf("Expected %+v. Got: %+v", edges[1], got[1])
	}

	if _, err := DecodeEdges(wire.NewReader([]uint32{5})); err == nil {
		t.Errorf("Expected an error for a truncated edge list")
	}
}
