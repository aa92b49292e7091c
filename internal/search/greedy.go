package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/agbru/consort/internal/fitness"
	"github.com/agbru/consort/internal/interaction"
	"github.com/agbru/consort/internal/scoring"
)

// Greedy implements the constructive search strategy: starting from each
// pool species in descending S_microbe order, it repeatedly adds the single
// species that maximizes the resulting score, and keeps the best-scoring set
// seen for every size in [KMin, KMax].
type Greedy struct{}

// Name returns the strategy identifier.
func (g *Greedy) Name() string { return StrategyGreedy }

// bestByK tracks the best candidate found per consortium size.
type bestByK struct {
	score     float64
	members   []string
	breakdown scoring.Breakdown
}

// Search runs the greedy construction. Determinism: the pool is scanned in
// descending S_microbe order with input-order tie-breaks, and a candidate
// replaces the incumbent for its size only on a strictly greater score.
func (g *Greedy) Search(ctx context.Context, pool []string, table *fitness.Table, index *interaction.Index, opts Options) (Result, error) {
	normalized := fitness.UniqueMembers(pool)
	if err := opts.validate(len(normalized)); err != nil {
		return Result{}, err
	}

	// Keep only species known to the fitness table, sorted by descending
	// S_microbe (stable, so equal scores keep pool order).
	ordered := make([]string, 0, len(normalized))
	for _, s := range normalized {
		if _, ok := table.Lookup(s); ok {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, _ := table.Lookup(ordered[i])
		rj, _ := table.Lookup(ordered[j])
		return ri.SMicrobe > rj.SMicrobe
	})

	kMax := opts.KMax
	if kMax > len(ordered) {
		kMax = len(ordered)
	}

	best := make(map[int]bestByK)
	enumerated := 0

	for _, seed := range ordered {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		current := []string{seed}

		if opts.KMin <= 1 && g.acceptable(current, table, opts) {
			b, err := scoring.Score(current, table, index, opts.Weights)
			if err != nil {
				return Result{}, err
			}
			enumerated++
			recordBest(best, 1, b, current)
		}

		for len(current) < kMax {
			next, nextBreakdown, found, scored, err := g.bestExtension(current, ordered, table, index, opts)
			enumerated += scored
			if err != nil {
				return Result{}, err
			}
			if !found {
				break
			}
			current = append(current, next)
			if k := len(current); k >= opts.KMin {
				recordBest(best, k, nextBreakdown, current)
			}
		}
	}

	candidates := make([]Candidate, 0, len(best))
	for k := opts.KMin; k <= kMax; k++ {
		entry, ok := best[k]
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:        fmt.Sprintf("greedy_k%d", k),
			Members:   entry.members,
			Breakdown: entry.breakdown,
		})
	}
	return Result{Candidates: rankCandidates(candidates, opts.TopK), Enumerated: enumerated}, nil
}

// bestExtension scores every legal one-species extension of current and
// returns the one with the highest score. Ties keep the earlier candidate in
// pool order. found is false when no extension satisfies the constraint.
func (g *Greedy) bestExtension(current, ordered []string, table *fitness.Table, index *interaction.Index, opts Options) (next string, b scoring.Breakdown, found bool, scored int, err error) {
	inCurrent := make(map[string]struct{}, len(current))
	for _, m := range current {
		inCurrent[m] = struct{}{}
	}

	var bestScore float64
	for _, candidate := range ordered {
		if _, dup := inCurrent[candidate]; dup {
			continue
		}
		trial := append(append([]string{}, current...), candidate)
		if !g.acceptable(trial, table, opts) {
			continue
		}
		breakdown, scoreErr := scoring.Score(trial, table, index, opts.Weights)
		if scoreErr != nil {
			return "", scoring.Breakdown{}, false, scored, scoreErr
		}
		scored++
		if !found || breakdown.Score > bestScore {
			found = true
			bestScore = breakdown.Score
			next = candidate
			b = breakdown
		}
	}
	return next, b, found, scored, nil
}

// acceptable applies the functional-source constraint when enabled.
func (g *Greedy) acceptable(members []string, table *fitness.Table, opts Options) bool {
	if !opts.RequireFunctional {
		return true
	}
	return scoring.HasFunctional(members, table)
}

// recordBest stores the candidate for size k when it strictly beats the
// incumbent.
func recordBest(best map[int]bestByK, k int, b scoring.Breakdown, members []string) {
	if incumbent, ok := best[k]; ok && b.Score <= incumbent.score {
		return
	}
	best[k] = bestByK{
		score:     b.Score,
		members:   append([]string{}, members...),
		breakdown: b,
	}
}
