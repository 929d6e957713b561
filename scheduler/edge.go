package scheduler

import (
	"fmt"

	"ltlmc/graph"
	"ltlmc/state"
	"ltlmc/wire"
)

// An Edge is a transition routed to the owner of its target.
//
// It carries a snapshot of the source taken when the source was expanded so
// that the owner of the target can classify it without access to the source's
// record. A root edge has an invalid From.
type Edge struct {
	From          state.Handle
	FromState     graph.State
	FromAccepting bool
	FromExt       state.Extension

	To graph.State
	// Hash of To
	Hash uint64
	// Expand the target whatever the classification
	Force bool
}

func (e Edge) IsRoot() bool { return !e.From.Valid() }

func (e Edge) String() string {
	return fmt.Sprintf("%v(%s) -> %s", e.From, e.FromState, e.To)
}

func (e Edge) EncodeWire(w *wire.Writer) {
	w.Uint64(uint64(e.From))
	w.Bytes(e.FromState)
	w.Bool(e.FromAccepting)
	e.FromExt.EncodeWire(w)
	w.Bytes(e.To)
	w.Uint64(e.Hash)
	w.Bool(e.Force)
}

func DecodeEdge(r *wire.Reader) Edge {
	e := Edge{
		From:          state.Handle(r.Uint64()),
		FromState:     r.Bytes(),
		FromAccepting: r.Bool(),
		FromExt:       state.DecodeExtension(r),
	}
	e.To = r.Bytes()
	e.Hash = r.Uint64()
	e.Force = r.Bool()
	return e
}

func EncodeEdges(w *wire.Writer, edges []Edge) {
	w.Uint32(uint32(len(edges)))
	for _, e := range edges {
		e.EncodeWire(w)
	}
}

func DecodeEdges(r *wire.Reader) ([]Edge, error) {
	n := int(r.Uint32())
	if r.Err() != nil {
		return nil, r.Err()
	}
	// Each edge takes at least 17 words
	if n > r.Remaining() {
		return nil, fmt.Errorf("%w: %d edges announced, %d words left", wire.ErrShortRead, n, r.Remaining())
	}
	edges := make([]Edge, 0, n)
	for i := 0; i < n; i++ {
		edges = append(edges, DecodeEdge(r))
	}
	return edges, r.Err()
}
