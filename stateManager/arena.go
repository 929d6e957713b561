package stateManager

import (
	"sync"
	"sync/atomic"

	"ltlmc/graph"
	"ltlmc/state"
)

const (
	chunkBits = 10
	chunkSize = 1 << chunkBits
)

// A Record is a stored state and its extension.
//
// State is immutable once the record is published. Ext must only be accessed
// while holding the record lock.
type Record struct {
	sync.Mutex
	State graph.State
	Ext   state.Extension
}

type chunk [chunkSize]Record

// An arena holds the records of a single owner in fixed size chunks so that
// a record never moves once allocated.
type arena struct {
	owner int

	mu     sync.Mutex
	chunks atomic.Pointer[[]*chunk]
	n      atomic.Uint64
}

func newArena(owner int) *arena {
	a := &arena{owner: owner}
	a.chunks.Store(&[]*chunk{})
	return a
}

func (a *arena) alloc(s graph.State) state.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.n.Load()
	chunks := *a.chunks.Load()
	if int(idx>>chunkBits) == len(chunks) {
		grown := make([]*chunk, len(chunks)+1)
		copy(grown, chunks)
		grown[len(chunks)] = new(chunk)
		a.chunks.Store(&grown)
		chunks = grown
	}
	chunks[idx>>chunkBits][idx&(chunkSize-1)].State = s
	a.n.Store(idx + 1)
	return state.MakeHandle(a.owner, idx)
}

func (a *arena) get(idx uint64) (*Record, bool) {
	if idx >= a.n.Load() {
		return nil, false
	}
	chunks := *a.chunks.Load()
	return &chunks[idx>>chunkBits][idx&(chunkSize-1)], true
}

func (a *arena) len() int { return int(a.n.Load()) }
