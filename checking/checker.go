package checking

import (
	"context"

	"ltlmc/graph"
)

// The Checker decides whether a graph has an accepting cycle.
type Checker interface {
	// Explore the graph and report whether it contains an accepting cycle
	Check(ctx context.Context, g graph.Graph) (CheckerResponse, error)
}

// CheckerResponse is a response returned by a Checker
//
// Contains the result of checking the system.
type CheckerResponse interface {
	// Create a response.
	//
	// Returns a boolean that is true if the property holds, false otherwise.
	// Returns a string describing the response.
	// If the property is violated this includes the counterexample.
	Response() (bool, string)

	// Export the counterexample
	//
	// Returns the successor indices of the prefix and of the cycle.
	// Both are empty if the property holds or no counterexample was produced.
	Export() (prefix []int, cycle []int)
}
