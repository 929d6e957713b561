package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
)

// Mailbox is the Comms of workers sharing one process.
//
// A pass ends when every worker is waiting and no edge is queued: at that
// point no worker can produce new edges.
type Mailbox struct {
	// Used to wait for a change in the inboxes or in active
	cond *sync.Cond

	peers int
	pass  uint64
	round int
	inbox [][]Edge
	// Number of queued edges over all inboxes
	queued int
	// Number of workers not waiting for edges
	active int
	done   bool

	interrupted atomic.Bool
}

func NewMailbox(peers int) *Mailbox {
	return &Mailbox{
		cond:  sync.NewCond(new(sync.Mutex)),
		peers: peers,
		inbox: make([][]Edge, peers),
	}
}

// The first worker to begin a new round resets the mailbox for all of them.
// Passes are numbered from 1.
func (mb *Mailbox) Begin(worker int, pass uint64, round int) {
	mb.cond.L.Lock()
	defer mb.cond.L.Unlock()
	if mb.pass == pass && mb.round == round {
		return
	}
	mb.pass = pass
	mb.round = round
	mb.active = mb.peers
	mb.done = false
	mb.queued = 0
	for i := range mb.inbox {
		mb.inbox[i] = nil
	}
	mb.interrupted.Store(false)
}

func (mb *Mailbox) Submit(_ context.Context, to int, edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}
	mb.cond.L.Lock()
	defer mb.cond.L.Unlock()

	mb.inbox[to] = append(mb.inbox[to], edges...)
	mb.queued += len(edges)
	mb.cond.Broadcast()
	return nil
}

func (mb *Mailbox) Wait(worker int) ([]Edge, bool) {
	mb.cond.L.Lock()
	defer mb.cond.L.Unlock()

	if edges, ok := mb.take(worker); ok {
		return edges, true
	}

	mb.active--
	if mb.active == 0 && mb.queued == 0 {
		mb.done = true
		mb.cond.Broadcast()
	}
	for len(mb.inbox[worker]) == 0 && !mb.done && !mb.interrupted.Load() {
		mb.cond.Wait()
	}
	if mb.done || mb.interrupted.Load() {
		return nil, false
	}
	mb.active++
	return mb.take(worker)
}

func (mb *Mailbox) take(worker int) ([]Edge, bool) {
	if mb.interrupted.Load() || len(mb.inbox[worker]) == 0 {
		return nil, false
	}
	edges := mb.inbox[worker]
	mb.inbox[worker] = nil
	mb.queued -= len(edges)
	return edges, true
}

func (mb *Mailbox) Interrupt() {
	mb.interrupted.Store(true)
	mb.cond.L.Lock()
	mb.cond.Broadcast()
	mb.cond.L.Unlock()
}

func (mb *Mailbox) Interrupted() bool { return mb.interrupted.Load() }

func (mb *Mailbox) Settled() bool { return true }
