package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"testing"

	"ltlmc/algorithm"
	"ltlmc/checking"
	"ltlmc/graph"
	"ltlmc/parallel"
	"ltlmc/scheduler"
	"ltlmc/stateManager"
	"ltlmc/store"
	"ltlmc/wire"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type testCluster struct {
	addrs    []string
	dialOpts []grpc.DialOption
	servers  []*grpc.Server
	workers  []*Server[algorithm.Shared]
}

// Starts one worker server per address on in-memory listeners
func startCluster(t *testing.T, workers int, g graph.Graph, cfg store.Config) *testCluster {
	t.Helper()
	listeners := map[string]*bufconn.Listener{}
	tc := &testCluster{}
	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("worker%d", i)
		listeners[name] = bufconn.Listen(1 << 20)
		tc.addrs = append(tc.addrs, "passthrough:///"+name)
	}
	tc.dialOpts = []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			lis, ok := listeners[addr]
			if !ok {
				return nil, fmt.Errorf("no listener %s", addr)
			}
			return lis.DialContext(ctx)
		}),
	}
	cfg.Logger = quiet
	for i := 0; i < workers; i++ {
		i := i
		factory := func(comms scheduler.Comms) (parallel.Instance[algorithm.Shared], error) {
			return algorithm.NewWorker(i, g, stateManager.New(workers, cfg), comms, quiet), nil
		}
		w := NewServer[algorithm.Shared](i, tc.addrs, algorithm.Codec{}, factory, quiet, tc.dialOpts...)
		gs := grpc.NewServer()
		w.Register(gs)
		lis := listeners[fmt.Sprintf("worker%d", i)]
		go gs.Serve(lis)
		tc.servers = append(tc.servers, gs)
		tc.workers = append(tc.workers, w)
	}
	t.Cleanup(func() {
		for i, gs := range tc.servers {
			gs.Stop()
			tc.workers[i].Close()
		}
	})
	return tc
}

func (tc *testCluster) check(t *testing.T) *checking.Response {
	t.Helper()
	ctx := context.Background()
	remote, err := Dial(ctx, tc.addrs, algorithm.Codec{}, tc.dialOpts...)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer remote.Close()
	resp, err := algorithm.NewMap(remote, algorithm.Options{Logger: quiet, Counterexample: true}).Run(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return resp
}

func checkLocal(t *testing.T, g graph.Graph, workers int) *checking.Response {
	t.Helper()
	cfg := store.DefaultConfig()
	cfg.Logger = quiet
	m := stateManager.New(workers, cfg)
	mb := scheduler.NewMailbox(workers)
	instances := []parallel.Instance[algorithm.Shared]{}
	for i := 0; i < workers; i++ {
		instances = append(instances, algorithm.NewWorker(i, g, m, mb, quiet))
	}
	resp, err := algorithm.NewMap(parallel.NewLocal(instances...), algorithm.Options{Logger: quiet}).Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return resp
}

func TestRemoteSelfLoop(t *testing.T) {
	g := graph.NewExplicit().AddInitial("A").AddEdge("A", "B").AddEdge("B", "B").SetAccepting("B")
	tc := startCluster(t, 2, g, store.DefaultConfig())
	resp := tc.check(t)
	if resp.Verdict != checking.PropertyViolated {
		t.Fatalf("Expected a violation. Got: %v", resp.Verdict)
	}
	if resp.Prefix.String() != "A" || resp.Cycle.String() != "B" {
		t.Fatalf("Expected prefix A and cycle B. Got: %v and %v", resp.Prefix, resp.Cycle)
	}
}

func TestRemoteMatchesLocal(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		n := 2 + r.Intn(30)
		g := graph.NewExplicit().AddInitial("s0")
		for j := 0; j < n; j++ {
			from := fmt.Sprintf("s%d", j)
			for k := r.Intn(3) + 1; k > 0; k-- {
				g.AddEdge(from, fmt.Sprintf("s%d", r.Intn(n)))
			}
			if r.Intn(4) == 0 {
				g.SetAccepting(from)
			}
		}
		local := checkLocal(t, g, 3)
		tc := startCluster(t, 3, g, store.DefaultConfig())
		remote := tc.check(t)
		if local.Verdict != remote.Verdict {
			t.Fatalf("Graph %d: local verdict %v, remote verdict %v", i, local.Verdict, remote.Verdict)
		}
		if remote.Verdict == checking.PropertyHolds && remote.Accepting != local.Accepting {
			t.Fatalf("Graph %d: local found %d accepting states, remote %d", i, local.Accepting, remote.Accepting)
		}
	}
}

func TestRemoteResourceExhausted(t *testing.T) {
	g := graph.NewExplicit().AddInitial("s0")
	for i := 0; i < 300; i++ {
		g.AddEdge(fmt.Sprintf("s%d", i), fmt.Sprintf("s%d", i+1))
	}
	cfg := store.DefaultConfig()
	cfg.Size = 16
	cfg.MaxSize = 40
	tc := startCluster(t, 2, g, cfg)

	remote, err := Dial(context.Background(), tc.addrs, algorithm.Codec{}, tc.dialOpts...)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer remote.Close()
	resp, err := algorithm.NewMap(remote, algorithm.Options{Logger: quiet}).Run(context.Background())
	if !errors.Is(err, store.ErrResourceExhausted) {
		t.Fatalf("Expected ErrResourceExhausted. Got: %v", err)
	}
	if resp.Verdict != checking.ResourceExhausted {
		t.Fatalf("Expected the ResourceExhausted verdict. Got: %v", resp.Verdict)
	}
}

func TestRunMismatch(t *testing.T) {
	g := graph.NewExplicit().AddInitial("A")
	tc := startCluster(t, 1, g, store.DefaultConfig())

	first, err := Dial(context.Background(), tc.addrs, algorithm.Codec{}, tc.dialOpts...)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer first.Close()
	// A second run takes over the worker
	second, err := Dial(context.Background(), tc.addrs, algorithm.Codec{}, tc.dialOpts...)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer second.Close()
	if first.RunID() == second.RunID() {
		t.Fatalf("Two runs should not share a run id")
	}

	_, err = first.Parallel(context.Background(), algorithm.SectionInit, algorithm.Shared{Peers: 1})
	if !errors.Is(err, ErrRunMismatch) {
		t.Fatalf("Expected ErrRunMismatch for the replaced run. Got: %v", err)
	}
	if _, err := second.Parallel(context.Background(), algorithm.SectionInit, algorithm.Shared{Peers: 1}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Deliveries without a run id are rejected
	cc, err := grpc.NewClient(tc.addrs[0], tc.dialOpts...)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer cc.Close()
	err = cc.Invoke(context.Background(), deliverMethod, wrapperspb.Bytes(nil), new(empty.Empty))
	if !errors.Is(fromStatus(err), ErrRunMismatch) {
		t.Fatalf("Expected ErrRunMismatch. Got: %v", err)
	}
}

func TestPeerCommsPasses(t *testing.T) {
	c := &PeerComms{id: 0}
	c.Begin(0, 2, 0)
	c.deliver(1, []scheduler.Edge{{To: graph.State("stale")}})
	c.deliver(2, []scheduler.Edge{{To: graph.State("current")}})
	c.deliver(3, []scheduler.Edge{{To: graph.State("early")}})

	edges, ok := c.Wait(0)
	if !ok || len(edges) != 1 || string(edges[0].To) != "current" {
		t.Fatalf("Expected only the edge of the current pass. Got: %v", edges)
	}
	if _, ok := c.Wait(0); ok {
		t.Fatalf("Expected no more edges in pass 2")
	}
	c.Begin(0, 3, 0)
	edges, ok = c.Wait(0)
	if !ok || len(edges) != 1 || string(edges[0].To) != "early" {
		t.Fatalf("Expected the edge delivered ahead of its pass. Got: %v", edges)
	}
	if c.Settled() {
		t.Fatalf("Remote rounds never settle on their own")
	}
}

func TestCallRejectsBadFrames(t *testing.T) {
	g := graph.NewExplicit().AddInitial("A")
	tc := startCluster(t, 1, g, store.DefaultConfig())
	cc, err := grpc.NewClient(tc.addrs[0], tc.dialOpts...)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer cc.Close()

	payloads := map[string][]byte{
		"Unframed":  {1, 0, 0, 0},
		"Oversized": {0, 0, 0, 0x10},
		"Trailing":  append(wire.Frame([]uint32{uint32(SectionBind)}), 0),
	}
	for name, payload := range payloads {
		err := cc.Invoke(context.Background(), callMethod, wrapperspb.Bytes(payload), new(wrapperspb.BytesValue))
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("%s: expected InvalidArgument. Got: %v", name, err)
		}
	}
}
