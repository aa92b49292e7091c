// Package search enumerates and ranks candidate consortia over a species
// pool. Two interchangeable strategies are provided: a greedy constructive
// search and a capped exhaustive enumeration. Both are deterministic for
// identical inputs.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/agbru/consort/internal/errors"
	"github.com/agbru/consort/internal/fitness"
	"github.com/agbru/consort/internal/interaction"
	"github.com/agbru/consort/internal/scoring"
)

// Default search parameters, carried over from the original design pipeline.
const (
	// DefaultPoolSize is the number of top-S_microbe species forming the
	// candidate pool.
	DefaultPoolSize = 50
	// DefaultKMin and DefaultKMax bound the consortium sizes searched.
	DefaultKMin = 2
	DefaultKMax = 5
	// DefaultTopKGreedy and DefaultTopKExhaustive are the per-strategy
	// result list sizes.
	DefaultTopKGreedy     = 20
	DefaultTopKExhaustive = 50
	// DefaultHardCap bounds exhaustive enumeration to protect against
	// combinatorial blow-up.
	DefaultHardCap = 500000
)

// Options configures a search run.
type Options struct {
	// KMin and KMax bound the member-set sizes considered.
	KMin, KMax int
	// TopK is the maximum number of ranked candidates returned.
	TopK int
	// HardCap bounds the number of combinations the exhaustive strategy
	// enumerates. Ignored by the greedy strategy. Zero means DefaultHardCap.
	HardCap int
	// RequireFunctional, when set, rejects member sets without at least one
	// functional-source member.
	RequireFunctional bool
	// Weights are the scoring coefficients.
	Weights scoring.Weights
}

// DefaultOptions returns the original pipeline's search defaults for the
// named strategy.
func DefaultOptions(strategy string) Options {
	topK := DefaultTopKGreedy
	if strategy == StrategyExhaustive {
		topK = DefaultTopKExhaustive
	}
	return Options{
		KMin:              DefaultKMin,
		KMax:              DefaultKMax,
		TopK:              topK,
		HardCap:           DefaultHardCap,
		RequireFunctional: true,
		Weights:           scoring.DefaultWeights(),
	}
}

// validate rejects option combinations that cannot produce any candidate.
func (o Options) validate(poolSize int) error {
	if poolSize == 0 {
		return apperrors.NewValidationError("pool", "species pool is empty")
	}
	if o.KMin < 1 {
		return apperrors.NewValidationError("kmin", "must be >= 1, got %d", o.KMin)
	}
	if o.KMax < o.KMin {
		return apperrors.NewValidationError("kmax", "must be >= kmin (%d), got %d", o.KMin, o.KMax)
	}
	return nil
}

// Candidate is one scored member set produced by a search strategy.
type Candidate struct {
	// ID labels the candidate by strategy and size (e.g., "greedy_k3").
	ID string
	// Members is the deduplicated, normalized member list.
	Members []string
	// Breakdown carries the score and its component averages.
	Breakdown scoring.Breakdown
}

// String renders the candidate as "id members=[a;b] score=v".
func (c Candidate) String() string {
	return fmt.Sprintf("%s members=[%s] score=%.4f", c.ID, strings.Join(c.Members, ";"), c.Breakdown.Score)
}

// Result is the outcome of one search run.
type Result struct {
	// Candidates are the ranked top-K member sets, best first.
	Candidates []Candidate
	// Enumerated counts the combinations examined (including ones rejected
	// by the functional constraint).
	Enumerated int
	// Truncated reports that the exhaustive strategy hit its hard cap and
	// the candidate list ranks only the combinations enumerated so far.
	Truncated bool
}

// Strategy is a candidate search algorithm over a species pool.
type Strategy interface {
	// Name returns the strategy identifier used for selection and labels.
	Name() string
	// Search enumerates member sets from pool, scores them, and returns the
	// ranked top-K. The pool is conventionally the top-N species by
	// S_microbe; size constraints live in opts, never in the scorer.
	Search(ctx context.Context, pool []string, table *fitness.Table, index *interaction.Index, opts Options) (Result, error)
}

// Strategy identifiers accepted by NewStrategy.
const (
	StrategyGreedy     = "greedy"
	StrategyExhaustive = "exhaustive"
)

// NewStrategy returns the strategy with the given name.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case StrategyGreedy:
		return &Greedy{}, nil
	case StrategyExhaustive:
		return &Exhaustive{}, nil
	default:
		return nil, apperrors.NewConfigError("unknown search strategy %q (available: %s)",
			name, strings.Join(List(), ", "))
	}
}

// List returns the available strategy names in sorted order.
func List() []string {
	return []string{StrategyExhaustive, StrategyGreedy}
}

// rankCandidates sorts candidates by descending score (stable, so ties keep
// enumeration order) and truncates to topK.
func rankCandidates(candidates []Candidate, topK int) []Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Breakdown.Score > candidates[j].Breakdown.Score
	})
	if topK > 0 && topK < len(candidates) {
		candidates = candidates[:topK]
	}
	return candidates
}
