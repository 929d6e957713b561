package algorithm

import (
	"ltlmc/graph"
	"ltlmc/state"
	"ltlmc/wire"
)

// CE carries the counterexample state of a run between the engine and the workers.
type CE struct {
	// The accepting state closing the cycle
	Initial state.Handle

	// Parent trace request: the state to resolve and the state reached from it
	Current   state.Handle
	Successor graph.State

	// Parent trace reply, filled in by the owner of Current
	Resolved  bool
	State     graph.State
	Parent    state.Handle
	Index     int
	IsInitial bool

	// The cycle search reached Initial again
	Closed bool
}

// Shared is the record exchanged between the engine and every worker.
// The engine sets the iteration and pass fields, workers reply with their counters.
type Shared struct {
	Iteration uint16
	Pass      uint64
	Round     int
	Peers     int

	Accepting  int64
	Eliminated int64
	Expanded   int64
	// States stored for the first time and edges classified
	States      int64
	Transitions int64
	Sent        int64
	NeedExpand  bool

	CE CE
}

// Merge combines the replies of two workers.
// Counters are summed and the lowest valid witness wins.
func (s Shared) Merge(o Shared) Shared {
	out := s
	out.Accepting += o.Accepting
	out.Eliminated += o.Eliminated
	out.Expanded += o.Expanded
	out.States += o.States
	out.Transitions += o.Transitions
	out.Sent += o.Sent
	out.NeedExpand = s.NeedExpand || o.NeedExpand
	out.CE.Closed = s.CE.Closed || o.CE.Closed
	if o.CE.Initial.Valid() && (!s.CE.Initial.Valid() || o.CE.Initial < s.CE.Initial) {
		out.CE.Initial = o.CE.Initial
	}
	return out
}

// The reply fields of sh cleared
func (s Shared) request() Shared {
	out := s
	out.Accepting, out.Eliminated, out.Expanded, out.Sent = 0, 0, 0, 0
	out.States, out.Transitions = 0, 0
	return out
}

func (c CE) EncodeWire(w *wire.Writer) {
	w.Uint64(uint64(c.Initial))
	w.Uint64(uint64(c.Current))
	w.Bytes(c.Successor)
	w.Bool(c.Resolved)
	w.Bytes(c.State)
	w.Uint64(uint64(c.Parent))
	w.Int64(int64(c.Index))
	w.Bool(c.IsInitial)
	w.Bool(c.Closed)
}

func DecodeCE(r *wire.Reader) CE {
	c := CE{
		Initial:   state.Handle(r.Uint64()),
		Current:   state.Handle(r.Uint64()),
		Successor: r.Bytes(),
		Resolved:  r.Bool(),
	}
	c.State = r.Bytes()
	c.Parent = state.Handle(r.Uint64())
	c.Index = int(r.Int64())
	c.IsInitial = r.Bool()
	c.Closed = r.Bool()
	return c
}

func (s Shared) EncodeWire(w *wire.Writer) {
	w.Uint32(uint32(s.Iteration))
	w.Uint64(s.Pass)
	w.Int64(int64(s.Round))
	w.Int64(int64(s.Peers))
	w.Int64(s.Accepting)
	w.Int64(s.Eliminated)
	w.Int64(s.Expanded)
	w.Int64(s.States)
	w.Int64(s.Transitions)
	w.Int64(s.Sent)
	w.Bool(s.NeedExpand)
	s.CE.EncodeWire(w)
}

func DecodeShared(r *wire.Reader) (Shared, error) {
	s := Shared{
		Iteration: uint16(r.Uint32()),
		Pass:      r.Uint64(),
		Round:     int(r.Int64()),
		Peers:     int(r.Int64()),
	}
	s.Accepting = r.Int64()
	s.Eliminated = r.Int64()
	s.Expanded = r.Int64()
	s.States = r.Int64()
	s.Transitions = r.Int64()
	s.Sent = r.Int64()
	s.NeedExpand = r.Bool()
	s.CE = DecodeCE(r)
	return s, r.Err()
}

// Codec moves Shared records over the wire.
type Codec struct{}

func (Codec) Encode(w *wire.Writer, sh Shared) { sh.EncodeWire(w) }

func (Codec) Decode(r *wire.Reader) (Shared, error) { return DecodeShared(r) }
