package stateManager

import (
	"errors"
	"fmt"

	"ltlmc/graph"
	"ltlmc/state"
	"ltlmc/store"
)

var ErrUnknownHandle = errors.New("stateManager: unknown handle")

// Manager stores the states of a run and their extensions.
//
// The states are partitioned between a fixed number of workers by hash.
// A state is fetched only by its owner and its record is allocated in the
// owner's arena. In a distributed run each process holds a Manager in which
// only the arena of its own worker is populated.
type Manager struct {
	table  *store.Table[graph.State, state.Handle]
	hasher store.BytesHasher[graph.State]
	arenas []*arena
}

// New returns a Manager for workers workers backed by a table configured by cfg.
func New(workers int, cfg store.Config) *Manager {
	if workers < 1 {
		workers = 1
	}
	m := &Manager{arenas: make([]*arena, workers)}
	m.table = store.New[graph.State, state.Handle](m.hasher, cfg)
	for i := range m.arenas {
		m.arenas[i] = newArena(i)
	}
	return m
}

func (m *Manager) Workers() int { return len(m.arenas) }

func (m *Manager) Hash(s graph.State) uint64 { return m.hasher.Hash(s) }

// Owner returns the worker responsible for states with the given hash.
// The table indexes with the low bits of the hash so the high bits pick the owner.
func (m *Manager) Owner(hash uint64) int {
	return int((hash >> 32) % uint64(len(m.arenas)))
}

// Fetch returns the handle of s, storing it in the arena of worker if it is new.
// had is true if the state was already stored.
// The caller must not modify s afterwards.
func (m *Manager) Fetch(worker int, s graph.State, hint uint64) (state.Handle, bool, error) {
	if worker < 0 || worker >= len(m.arenas) {
		return 0, false, fmt.Errorf("stateManager: worker %d out of range [0, %d)", worker, len(m.arenas))
	}
	h, delta, err := m.table.MergeInsert(s, 0, func(existing, _ state.Handle) state.Handle {
		if existing.Valid() {
			return existing
		}
		return m.arenas[worker].alloc(s)
	}, hint)
	if err != nil {
		return 0, false, err
	}
	return h, delta == 0, nil
}

// Lookup returns the handle of s if it has been stored.
func (m *Manager) Lookup(s graph.State, hint uint64) (state.Handle, bool) {
	return m.table.Get(s, hint)
}

// Record returns the record behind h. It fails with ErrUnknownHandle if h
// was not allocated in this Manager.
func (m *Manager) Record(h state.Handle) (*Record, error) {
	if !h.Valid() || h.Owner() >= len(m.arenas) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	r, ok := m.arenas[h.Owner()].get(h.Index())
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	return r, nil
}

// Owned calls fn for every record stored in the arena of worker.
// Must not run concurrently with fetches by that worker.
func (m *Manager) Owned(worker int, fn func(h state.Handle, r *Record)) {
	a := m.arenas[worker]
	n := a.len()
	for i := 0; i < n; i++ {
		r, _ := a.get(uint64(i))
		fn(state.MakeHandle(worker, uint64(i)), r)
	}
}

// The number of stored states
func (m *Manager) Len() int {
	n := 0
	for _, a := range m.arenas {
		n += a.len()
	}
	return n
}

func (m *Manager) TableSize() int { return m.table.Size() }

func (m *Manager) TableGrows() int { return m.table.Grows() }
