package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"ltlmc/parallel"
	"ltlmc/scheduler"
	"ltlmc/wire"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// A Factory creates the worker instance of a new run.
type Factory[S any] func(comms scheduler.Comms) (parallel.Instance[S], error)

// Server hosts one worker of a distributed check.
//
// Every run starts with a bind request carrying a fresh run id. The server
// then creates a new worker instance and rejects requests of any other run.
type Server[S any] struct {
	id       int
	peers    []string
	codec    Codec[S]
	factory  Factory[S]
	dialOpts []grpc.DialOption
	log      *slog.Logger

	mu       sync.Mutex
	runID    string
	comms    *PeerComms
	instance parallel.Instance[S]
}

// NewServer creates the server of worker id. peers holds the addresses of
// all workers, ordered by worker id, and dialOpts are used to reach them.
func NewServer[S any](id int, peers []string, codec Codec[S], factory Factory[S], log *slog.Logger, dialOpts ...grpc.DialOption) *Server[S] {
	if log == nil {
		log = slog.Default()
	}
	return &Server[S]{
		id:       id,
		peers:    peers,
		codec:    codec,
		factory:  factory,
		dialOpts: dialOpts,
		log:      log.With("worker", id),
	}
}

func (s *Server[S]) Register(gs grpc.ServiceRegistrar) { RegisterWorkerServer(gs, s) }

func (s *Server[S]) bind(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if runID == "" {
		return fmt.Errorf("%w: bind without a run id", ErrRunMismatch)
	}
	if s.comms != nil {
		s.comms.Close()
	}
	comms, err := newPeerComms(s.id, s.peers, runID, s.dialOpts...)
	if err != nil {
		return err
	}
	instance, err := s.factory(comms)
	if err != nil {
		comms.Close()
		return err
	}
	s.runID, s.comms, s.instance = runID, comms, instance
	s.log.Info("Bound to run", "run", runID)
	return nil
}

func (s *Server[S]) session(runID string) (parallel.Instance[S], *PeerComms, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.instance == nil || runID != s.runID {
		return nil, nil, fmt.Errorf("%w: got %q, bound to %q", ErrRunMismatch, runID, s.runID)
	}
	return s.instance, s.comms, nil
}

func (s *Server[S]) Call(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	words, err := wire.Unframe(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	r := wire.NewReader(words)
	section := parallel.Section(r.Uint32())
	if r.Err() != nil {
		return nil, status.Error(codes.InvalidArgument, r.Err().Error())
	}
	if section == SectionBind {
		return &wrapperspb.BytesValue{}, toStatus(s.bind(runOf(ctx)))
	}

	instance, _, err := s.session(runOf(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	sh, err := s.codec.Decode(r)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	out, err := instance.Run(ctx, section, sh)
	if err != nil {
		s.log.Error("Section failed", "section", section, "err", err)
		return nil, toStatus(err)
	}
	w := wire.NewWriter()
	s.codec.Encode(w, out)
	return wrapperspb.Bytes(wire.Frame(w.Words())), nil
}

func (s *Server[S]) Deliver(ctx context.Context, in *wrapperspb.BytesValue) (*empty.Empty, error) {
	_, comms, err := s.session(runOf(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	words, err := wire.Unframe(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	r := wire.NewReader(words)
	pass := r.Uint64()
	edges, err := scheduler.DecodeEdges(r)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	comms.deliver(pass, edges)
	return &empty.Empty{}, nil
}

// Close releases the connections to the peers.
func (s *Server[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.comms == nil {
		return nil
	}
	return s.comms.Close()
}
