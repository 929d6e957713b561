package cluster

import (
	"context"
	"fmt"

	"ltlmc/parallel"
	"ltlmc/wire"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Remote is a topology of workers served by other processes.
type Remote[S any] struct {
	conns []*grpc.ClientConn
	codec Codec[S]
	runID string
}

// Dial connects to the workers at addrs, ordered by worker id, and binds
// them to a new run.
func Dial[S any](ctx context.Context, addrs []string, codec Codec[S], opts ...grpc.DialOption) (*Remote[S], error) {
	if len(addrs) == 0 {
		return nil, parallel.ErrNoPeers
	}
	r := &Remote[S]{codec: codec, runID: uuid.NewString()}
	opts = append(opts, grpc.WithChainUnaryInterceptor(runInterceptor(r.runID)))
	for i, addr := range addrs {
		cc, err := grpc.NewClient(addr, opts...)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("cluster: connecting to worker %d at %s: %w", i, addr, err)
		}
		r.conns = append(r.conns, cc)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range r.conns {
		i := i
		g.Go(func() error {
			var zero S
			_, err := r.call(gctx, i, SectionBind, zero)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// RunID identifies the run the workers are bound to.
func (r *Remote[S]) RunID() string { return r.runID }

func (r *Remote[S]) Peers() int { return len(r.conns) }

func (r *Remote[S]) call(ctx context.Context, worker int, section parallel.Section, sh S) (S, error) {
	var zero S
	out := new(wrapperspb.BytesValue)
	in := wrapperspb.Bytes(encodeCall(r.codec, section, sh))
	if err := r.conns[worker].Invoke(ctx, callMethod, in, out); err != nil {
		return zero, fmt.Errorf("cluster: worker %d section %d: %w", worker, section, fromStatus(err))
	}
	if section == SectionBind {
		return zero, nil
	}
	words, err := wire.Unframe(out.GetValue())
	if err != nil {
		return zero, err
	}
	return r.codec.Decode(wire.NewReader(words))
}

func (r *Remote[S]) Parallel(ctx context.Context, section parallel.Section, sh S) ([]S, error) {
	out := make([]S, len(r.conns))
	g, gctx := errgroup.WithContext(ctx)
	for i := range r.conns {
		i := i
		g.Go(func() error {
			res, err := r.call(gctx, i, section, sh)
			out[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Remote[S]) Ring(ctx context.Context, section parallel.Section, sh S) (S, error) {
	for i := range r.conns {
		res, err := r.call(ctx, i, section, sh)
		if err != nil {
			return sh, err
		}
		sh = res
	}
	return sh, nil
}

func (r *Remote[S]) Close() error {
	var first error
	for _, cc := range r.conns {
		if err := cc.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
