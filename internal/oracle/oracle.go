// Package oracle defines the contract to the constraint-based metabolic
// simulator that evaluates a concrete consortium. The simulator itself (the
// thing solving linear programs over a combined reaction network) is an
// external collaborator; the engine only depends on the Community interface
// and the scoped bound-mutation discipline defined here.
//
// The package also ships ResponseCommunity, an in-memory reference
// implementation driven by an analytic growth response, used by the CLI
// dry-run mode and the test suite.
package oracle

import "context"

// Direction selects the objective sense of a single-reaction optimization.
type Direction int

const (
	// Minimize drives the reaction flux as negative as the model allows
	// (for exchanges: maximum uptake).
	Minimize Direction = iota
	// Maximize drives the reaction flux as positive as the model allows.
	Maximize
)

// String returns the solver-conventional name of the direction.
func (d Direction) String() string {
	if d == Maximize {
		return "max"
	}
	return "min"
}

// Solution is the outcome of a community-level solve.
type Solution struct {
	// GrowthRate is the community growth rate under the solved objective.
	GrowthRate float64
	// MemberGrowth breaks growth down per member organism.
	MemberGrowth map[string]float64
}

// Community is the metabolic oracle for one fixed set of member organisms.
//
// Reaction bounds are shared mutable state within one evaluation run; every
// mid-run mutation must go through WithFixedBound so that the original
// bounds are restored before the next read, on every exit path. Instances
// are not required to be safe for concurrent use; parallel work runs on
// independent instances.
type Community interface {
	// Members returns the member organism identifiers.
	Members() []string

	// Exchanges returns the boundary-reaction identifiers available for
	// nutrient or product exchange.
	Exchanges() []string

	// SetMedium applies nutrient availability as a mapping from exchange
	// reaction id to upper import bound. Unknown reaction ids are reported
	// in missing, never silently dropped.
	SetMedium(medium map[string]float64) (applied int, missing []string, err error)

	// CooperativeTradeoff solves for the community growth optimum under an
	// objective that balances member growth fairly.
	CooperativeTradeoff(ctx context.Context) (Solution, error)

	// OptimizeFlux solves for the extreme value of a single reaction's flux
	// in the given direction, ignoring any growth objective.
	OptimizeFlux(ctx context.Context, reactionID string, dir Direction) (float64, error)

	// Bounds returns the current lower and upper flux bounds of a reaction.
	Bounds(reactionID string) (lower, upper float64, err error)

	// SetBounds replaces a reaction's flux bounds.
	SetBounds(reactionID string, lower, upper float64) error
}

// Builder constructs a fresh Community for a member subset. The robustness
// scanner uses it to rebuild the model after each member removal.
type Builder interface {
	Build(ctx context.Context, members []string) (Community, error)
}
