package stateManager

import "ltlmc/state"

// Lock locks the records of the given handles in handle order and returns a
// function releasing them. Invalid and repeated handles are skipped.
func (m *Manager) Lock(hs ...state.Handle) (func(), error) {
	switch len(hs) {
	case 1:
		return m.lock1(hs[0])
	case 2:
		a, b := hs[0], hs[1]
		if !a.Valid() || a == b {
			return m.lock1(b)
		}
		if !b.Valid() {
			return m.lock1(a)
		}
		if b < a {
			a, b = b, a
		}
		ra, err := m.Record(a)
		if err != nil {
			return nil, err
		}
		rb, err := m.Record(b)
		if err != nil {
			return nil, err
		}
		ra.Lock()
		rb.Lock()
		return func() {
			rb.Unlock()
			ra.Unlock()
		}, nil
	}
	return func() {}, nil
}

func (m *Manager) lock1(h state.Handle) (func(), error) {
	if !h.Valid() {
		return func() {}, nil
	}
	r, err := m.Record(h)
	if err != nil {
		return nil, err
	}
	r.Lock()
	return r.Unlock, nil
}
