package search

import (
	"context"
	"fmt"

	"github.com/agbru/consort/internal/fitness"
	"github.com/agbru/consort/internal/interaction"
	"github.com/agbru/consort/internal/scoring"
)

// Exhaustive implements full subset enumeration over the pool for every size
// in [KMin, KMax], protected by a hard enumeration cap. When the cap is hit,
// enumeration stops and the combinations scored so far are still ranked and
// returned, flagged as truncated.
type Exhaustive struct{}

// Name returns the strategy identifier.
func (e *Exhaustive) Name() string { return StrategyExhaustive }

// Search enumerates subsets in deterministic lexicographic order over the
// pool indices, size by size. The hard cap counts every enumerated
// combination, including those rejected by the functional constraint.
func (e *Exhaustive) Search(ctx context.Context, pool []string, table *fitness.Table, index *interaction.Index, opts Options) (Result, error) {
	normalized := fitness.UniqueMembers(pool)
	if err := opts.validate(len(normalized)); err != nil {
		return Result{}, err
	}
	hardCap := opts.HardCap
	if hardCap <= 0 {
		hardCap = DefaultHardCap
	}

	kMax := opts.KMax
	if kMax > len(normalized) {
		kMax = len(normalized)
	}

	var candidates []Candidate
	res := Result{}

sizes:
	for k := opts.KMin; k <= kMax; k++ {
		gen := newCombinationGenerator(len(normalized), k)
		combo := make([]string, k)
		for gen.next() {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			if res.Enumerated >= hardCap {
				res.Truncated = true
				break sizes
			}
			res.Enumerated++

			for i, idx := range gen.indices {
				combo[i] = normalized[idx]
			}
			if opts.RequireFunctional && !scoring.HasFunctional(combo, table) {
				continue
			}
			breakdown, err := scoring.Score(combo, table, index, opts.Weights)
			if err != nil {
				return Result{}, err
			}
			candidates = append(candidates, Candidate{
				ID:        fmt.Sprintf("exhaustive_k%d_%d", k, res.Enumerated),
				Members:   append([]string{}, combo...),
				Breakdown: breakdown,
			})
		}
	}

	res.Candidates = rankCandidates(candidates, opts.TopK)
	return res, nil
}

// combinationGenerator yields k-subsets of {0..n-1} in lexicographic order
// without recursion. indices is valid after each successful next().
type combinationGenerator struct {
	n, k    int
	indices []int
	started bool
	done    bool
}

func newCombinationGenerator(n, k int) *combinationGenerator {
	return &combinationGenerator{n: n, k: k, indices: make([]int, k), done: k > n || k <= 0}
}

// next advances to the following combination, returning false when exhausted.
func (g *combinationGenerator) next() bool {
	if g.done {
		return false
	}
	if !g.started {
		for i := range g.indices {
			g.indices[i] = i
		}
		g.started = true
		return true
	}
	// Find the rightmost index that can still advance.
	i := g.k - 1
	for i >= 0 && g.indices[i] == g.n-g.k+i {
		i--
	}
	if i < 0 {
		g.done = true
		return false
	}
	g.indices[i]++
	for j := i + 1; j < g.k; j++ {
		g.indices[j] = g.indices[j-1] + 1
	}
	return true
}
