package state

import (
	"fmt"

	"ltlmc/wire"
)

const (
	counterBits = 48
	counterMask = 1<<counterBits - 1
)

// A Handle is a stable reference to a stored state.
//
// The upper bits hold the owning worker and the lower bits the position of
// the record in the owner's arena, offset by one so that the zero Handle is
// never a valid reference.
type Handle uint64

func MakeHandle(owner int, index uint64) Handle {
	return Handle(uint64(owner)<<counterBits | (index+1)&counterMask)
}

func (h Handle) Valid() bool { return h&counterMask != 0 }

// The worker owning the referenced state
func (h Handle) Owner() int { return int(uint64(h) >> counterBits) }

// The position of the record in the owner's arena
func (h Handle) Index() uint64 { return uint64(h)&counterMask - 1 }

func (h Handle) String() string {
	if !h.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("%d:%d", h.Owner(), h.Index())
}

// VertexId is the totally ordered identity of a stored state.
// The zero VertexId is invalid and orders before every valid one.
type VertexId struct {
	Owner   uint32
	Counter uint64
}

func VertexIdOf(h Handle) VertexId {
	if !h.Valid() {
		return VertexId{}
	}
	return VertexId{Owner: uint32(h.Owner()), Counter: uint64(h) & counterMask}
}

func (v VertexId) Valid() bool { return v.Counter != 0 }

// Less orders ids by owner and then by counter.
func (v VertexId) Less(o VertexId) bool {
	if v.Owner != o.Owner {
		return v.Owner < o.Owner
	}
	return v.Counter < o.Counter
}

func MaxVertexId(a, b VertexId) VertexId {
	if a.Less(b) {
		return b
	}
	return a
}

func (v VertexId) String() string {
	if !v.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("%d:%d", v.Owner, v.Counter-1)
}

func (v VertexId) EncodeWire(w *wire.Writer) {
	w.Uint32(v.Owner)
	w.Uint64(v.Counter)
}

func DecodeVertexId(r *wire.Reader) VertexId {
	return VertexId{Owner: r.Uint32(), Counter: r.Uint64()}
}
