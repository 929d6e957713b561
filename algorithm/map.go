// Package algorithm implements accepting cycle detection with maximal
// accepting predecessors (MAP).
//
// Each outer iteration propagates, for every state, the highest accepting
// state reaching it. An accepting state reached by its own id lies on a cycle.
// Accepting states that are not excluded by a higher predecessor are
// eliminated at the end of the iteration. The run ends when a cycle is found
// or every accepting state has been eliminated.
package algorithm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"ltlmc/checking"
	"ltlmc/metrics"
	"ltlmc/parallel"
	"ltlmc/state"
	"ltlmc/store"
)

// ErrIterationLimit is returned when a run needs more iterations than a
// record can tag.
var ErrIterationLimit = errors.New("algorithm: iteration limit reached")

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Reconstruct the counterexample when a cycle is found
	Counterexample bool
}

// Map is the engine driving the workers of a topology.
type Map struct {
	topology parallel.Topology[Shared]
	log      *slog.Logger
	metrics  *metrics.Metrics
	ce       bool

	shared     Shared
	iteration  int
	accepting   int64
	eliminated  int64
	expanded    int64
	states      int64
	transitions int64
	// Eliminated during the current iteration
	dEliminated int64
	witness     state.Handle
}

func NewMap(top parallel.Topology[Shared], opts Options) *Map {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Map{
		topology: top,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		ce:       opts.Counterexample,
	}
}

// Run checks the graph of the topology's workers for an accepting cycle.
//
// If the state store runs out of room the returned response has the
// ResourceExhausted verdict and the error wraps store.ErrResourceExhausted.
func (m *Map) Run(ctx context.Context) (*checking.Response, error) {
	m.shared = Shared{Peers: m.topology.Peers()}
	if _, err := m.topology.Parallel(ctx, SectionInit, m.shared); err != nil {
		return nil, fmt.Errorf("algorithm: initializing workers: %w", err)
	}

	m.iteration = 1
	for {
		tag, err := iterationTag(m.iteration)
		if err != nil {
			return m.fail(err)
		}
		m.shared.Iteration = tag
		m.metrics.Iteration(m.iteration)
		if err := m.iterate(ctx); err != nil {
			return m.fail(err)
		}
		m.log.Info("Iteration done", "iteration", m.iteration, "expanded", m.expanded,
			"eliminated", m.eliminated, "accepting", m.accepting, "states", m.states)
		if m.witness.Valid() || m.dEliminated == 0 || m.eliminated >= m.accepting {
			break
		}
		m.iteration++
	}

	resp := m.response(checking.PropertyHolds)
	if m.witness.Valid() {
		resp.Verdict = checking.PropertyViolated
		if m.ce {
			prefix, cycle, err := m.counterexample(ctx)
			if err != nil {
				return resp, fmt.Errorf("algorithm: reconstructing counterexample: %w", err)
			}
			resp.Prefix, resp.Cycle = prefix, cycle
		}
	}
	m.metrics.Run(resp.Verdict.String())
	m.log.Info("Run done", "verdict", resp.Verdict, "iterations", m.iteration, "expanded", m.expanded)
	return resp, nil
}

func (m *Map) response(v checking.Verdict) *checking.Response {
	return &checking.Response{
		Verdict:     v,
		Expanded:    m.expanded,
		Eliminated:  m.eliminated,
		Accepting:   m.accepting,
		States:      m.states,
		Transitions: m.transitions,
		Iterations:  m.iteration,
		CycleEntry:  m.witness,
	}
}

func (m *Map) fail(err error) (*checking.Response, error) {
	if errors.Is(err, store.ErrResourceExhausted) {
		m.log.Error("State store exhausted", "iteration", m.iteration, "err", err)
		resp := m.response(checking.ResourceExhausted)
		m.metrics.Run(resp.Verdict.String())
		return resp, err
	}
	return nil, err
}

func (m *Map) iterate(ctx context.Context) error {
	m.dEliminated = 0
	if err := m.visit(ctx); err != nil {
		return err
	}
	for !m.witness.Valid() && m.iteration == 1 {
		m.shared.NeedExpand = false
		sh, err := m.topology.Ring(ctx, SectionPOR, m.shared)
		if err != nil {
			return err
		}
		if !sh.NeedExpand {
			break
		}
		if err := m.visit(ctx); err != nil {
			return err
		}
	}

	shs, err := m.topology.Parallel(ctx, SectionCleanup, m.shared)
	if err != nil {
		return err
	}
	m.collect(parallel.Fold(shs, Shared.Merge))
	return nil
}

func (m *Map) visit(ctx context.Context) error {
	merged, err := m.pass(ctx, SectionVisit)
	if err != nil {
		return err
	}
	m.collect(merged)
	return nil
}

// pass repeats section on every worker until no edge is left in flight or
// the pass was cut short.
func (m *Map) pass(ctx context.Context, section parallel.Section) (Shared, error) {
	total := Shared{}
	m.shared.Pass++
	for round := 0; ; round++ {
		m.shared.Round = round
		shs, err := m.topology.Parallel(ctx, section, m.shared)
		if err != nil {
			return total, err
		}
		merged := parallel.Fold(shs, Shared.Merge)
		total = total.Merge(merged)
		if merged.Sent == 0 || merged.CE.Closed {
			return total, nil
		}
		// The cycle search carries the witness in its request
		if section == SectionVisit && merged.CE.Initial.Valid() {
			return total, nil
		}
	}
}

// iterationTag is the tag records carry for iteration i. The cycle search
// runs at the tag after the last iteration, so that one must fit too.
func iterationTag(i int) (uint16, error) {
	if i < 1 || i+1 > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d", ErrIterationLimit, i)
	}
	return uint16(i), nil
}

func (m *Map) collect(sh Shared) {
	m.accepting += sh.Accepting
	m.expanded += sh.Expanded
	m.states += sh.States
	m.transitions += sh.Transitions
	m.eliminated += sh.Eliminated
	m.dEliminated += sh.Eliminated
	if sh.CE.Initial.Valid() && !m.witness.Valid() {
		m.witness = sh.CE.Initial
		m.log.Info("Accepting cycle found", "iteration", m.iteration, "entry", m.witness)
	}
	m.metrics.Expanded(sh.Expanded)
	m.metrics.Eliminated(sh.Eliminated)
	m.metrics.Accepting(m.accepting)
}
