// Package parallel runs numbered sections of code on a set of workers,
// either on all of them at once or one after another around a ring.
package parallel

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

var ErrNoPeers = errors.New("parallel: topology has no peers")

// Section identifies a piece of worker code.
type Section uint32

// An Instance is one worker. Run executes section against the shared record
// sh and returns the worker's updated copy.
type Instance[S any] interface {
	Run(ctx context.Context, section Section, sh S) (S, error)
}

// Topology invokes sections on a fixed set of workers.
type Topology[S any] interface {
	Peers() int
	// Parallel runs section on every worker with its own copy of sh.
	// The results are ordered by worker.
	Parallel(ctx context.Context, section Section, sh S) ([]S, error)
	// Ring runs section on each worker in turn, passing the result of one
	// worker on to the next.
	Ring(ctx context.Context, section Section, sh S) (S, error)
	Close() error
}

// Fold merges the results of a parallel section.
func Fold[S any](shs []S, merge func(a, b S) S) S {
	var out S
	for i, sh := range shs {
		if i == 0 {
			out = sh
			continue
		}
		out = merge(out, sh)
	}
	return out
}

// Local runs every worker as a goroutine of the current process.
type Local[S any] struct {
	instances []Instance[S]
}

func NewLocal[S any](instances ...Instance[S]) *Local[S] {
	return &Local[S]{instances: instances}
}

func (l *Local[S]) Peers() int { return len(l.instances) }

func (l *Local[S]) Parallel(ctx context.Context, section Section, sh S) ([]S, error) {
	if len(l.instances) == 0 {
		return nil, ErrNoPeers
	}
	out := make([]S, len(l.instances))
	g, gctx := errgroup.WithContext(ctx)
	for i, inst := range l.instances {
		i, inst := i, inst
		g.Go(func() error {
			res, err := inst.Run(gctx, section, sh)
			if err != nil {
				return fmt.Errorf("parallel: worker %d section %d: %w", i, section, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Local[S]) Ring(ctx context.Context, section Section, sh S) (S, error) {
	if len(l.instances) == 0 {
		return sh, ErrNoPeers
	}
	for i, inst := range l.instances {
		if err := ctx.Err(); err != nil {
			return sh, err
		}
		res, err := inst.Run(ctx, section, sh)
		if err != nil {
			return sh, fmt.Errorf("parallel: worker %d section %d: %w", i, section, err)
		}
		sh = res
	}
	return sh, nil
}

func (l *Local[S]) Close() error { return nil }
