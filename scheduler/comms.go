package scheduler

import "context"

// Comms moves edges between the workers of one traversal pass.
type Comms interface {
	// Begin is called by every worker at the start of each round of a pass.
	// Edges left over from earlier passes are dropped.
	Begin(worker int, pass uint64, round int)
	// Submit queues edges for worker to.
	Submit(ctx context.Context, to int, edges []Edge) error
	// Wait returns the next batch of edges for worker.
	// It returns false when the worker should end the pass.
	Wait(worker int) ([]Edge, bool)
	// Interrupt asks all workers to end the pass early.
	Interrupt()
	Interrupted() bool
	// Settled reports whether a worker leaving the pass implies that no edge
	// of the pass is still in flight anywhere.
	Settled() bool
}
