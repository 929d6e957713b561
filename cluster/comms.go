package cluster

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"ltlmc/scheduler"
	"ltlmc/wire"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type batch struct {
	pass  uint64
	edges []scheduler.Edge
}

// PeerComms is the Comms of a worker whose peers run in other processes.
//
// Wait never blocks: a worker ends its round as soon as it runs out of edges
// and the engine starts another round while edges are in flight.
type PeerComms struct {
	id    int
	peers []*grpc.ClientConn

	mu    sync.Mutex
	pass  uint64
	inbox []batch

	interrupted atomic.Bool
}

// newPeerComms connects to every peer but id. Connections are made lazily.
func newPeerComms(id int, addrs []string, runID string, opts ...grpc.DialOption) (*PeerComms, error) {
	c := &PeerComms{id: id, peers: make([]*grpc.ClientConn, len(addrs))}
	opts = append(opts, grpc.WithChainUnaryInterceptor(runInterceptor(runID)))
	for i, addr := range addrs {
		if i == id {
			continue
		}
		cc, err := grpc.NewClient(addr, opts...)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("cluster: connecting to peer %d at %s: %w", i, addr, err)
		}
		c.peers[i] = cc
	}
	return c, nil
}

func (c *PeerComms) Close() error {
	var first error
	for _, cc := range c.peers {
		if cc == nil {
			continue
		}
		if err := cc.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *PeerComms) Begin(worker int, pass uint64, round int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pass = pass
	c.interrupted.Store(false)
}

func (c *PeerComms) Submit(ctx context.Context, to int, edges []scheduler.Edge) error {
	if to == c.id {
		c.deliver(c.currentPass(), edges)
		return nil
	}
	if to < 0 || to >= len(c.peers) {
		return fmt.Errorf("cluster: no peer %d", to)
	}
	w := wire.NewWriter()
	w.Uint64(c.currentPass())
	scheduler.EncodeEdges(w, edges)
	err := c.peers[to].Invoke(ctx, deliverMethod, wrapperspb.Bytes(wire.Frame(w.Words())), new(empty.Empty))
	return fromStatus(err)
}

func (c *PeerComms) currentPass() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pass
}

func (c *PeerComms) deliver(pass uint64, edges []scheduler.Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, batch{pass: pass, edges: edges})
}

// Wait hands out the edges of the current pass, drops those of earlier
// passes and keeps those of later ones.
func (c *PeerComms) Wait(worker int) ([]scheduler.Edge, bool) {
	if c.interrupted.Load() {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []scheduler.Edge
	kept := c.inbox[:0]
	for _, b := range c.inbox {
		switch {
		case b.pass == c.pass:
			out = append(out, b.edges...)
		case b.pass > c.pass:
			kept = append(kept, b)
		}
	}
	c.inbox = kept
	return out, len(out) > 0
}

func (c *PeerComms) Interrupt() { c.interrupted.Store(true) }

func (c *PeerComms) Interrupted() bool { return c.interrupted.Load() }

func (c *PeerComms) Settled() bool { return false }
