package state

import (
	"fmt"

	"ltlmc/wire"
)

// Elim is the elimination status of a state.
type Elim uint8

const (
	// Accepting and still able to take part in a cycle
	Candidate Elim = iota
	// Accepting but another accepting state reached it with a higher id during the current iteration
	Excluded
	// Accepting but proven not to lie on an accepting cycle
	Eliminated
	// The graph reports the state as not accepting
	NotAccepting
)

func (e Elim) String() string {
	switch e {
	case Candidate:
		return "Candidate"
	case Excluded:
		return "Excluded"
	case Eliminated:
		return "Eliminated"
	case NotAccepting:
		return "NotAccepting"
	}
	return fmt.Sprintf("Elim(%d)", uint8(e))
}

// Extension is the per-state data kept next to every stored state.
type Extension struct {
	Parent Handle

	// Highest accepting id known to reach the state in the current iteration
	Map VertexId
	// Map as it was at the end of the previous iteration
	OldMap VertexId

	Seen      bool
	Iteration uint16
	Elim      Elim
}

// Accepting returns true if the state has not been ruled out as accepting.
// A state that has not yet been expanded is reported as accepting.
func (e Extension) Accepting() bool { return e.Elim < Eliminated }

func (e Extension) String() string {
	return fmt.Sprintf("parent: %v map: %v oldmap: %v seen: %v iteration: %v elim: %v", e.Parent, e.Map, e.OldMap, e.Seen, e.Iteration, e.Elim)
}

func (e Extension) EncodeWire(w *wire.Writer) {
	w.Uint64(uint64(e.Parent))
	e.Map.EncodeWire(w)
	e.OldMap.EncodeWire(w)
	w.Bool(e.Seen)
	w.Uint32(uint32(e.Iteration))
	w.Uint32(uint32(e.Elim))
}

func DecodeExtension(r *wire.Reader) Extension {
	return Extension{
		Parent:    Handle(r.Uint64()),
		Map:       DecodeVertexId(r),
		OldMap:    DecodeVertexId(r),
		Seen:      r.Bool(),
		Iteration: uint16(r.Uint32()),
		Elim:      Elim(r.Uint32()),
	}
}
