package search

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/agbru/consort/internal/fitness"
	"github.com/agbru/consort/internal/interaction"
	"github.com/agbru/consort/internal/scoring"
)

func searchTable(t *testing.T) *fitness.Table {
	t.Helper()
	table, err := fitness.NewTable([]fitness.Record{
		{Species: "gordonia_sp", SMicrobe: 0.92, Source: fitness.SourceFunctional, KcatMax: 1.4, EnvironmentMatch: 0.8},
		{Species: "rhodococcus_ruber", SMicrobe: 0.85, Source: fitness.SourceFunctional, KcatMax: 1.1, EnvironmentMatch: 0.7},
		{Species: "pseudomonas_putida", SMicrobe: 0.78, Source: fitness.SourceComplement, KcatMax: math.NaN(), EnvironmentMatch: 0.9},
		{Species: "bacillus_subtilis", SMicrobe: 0.40, Source: fitness.SourceComplement, KcatMax: math.NaN(), EnvironmentMatch: 0.5},
		{Species: "sphingomonas_sp", SMicrobe: 0.35, Source: fitness.SourceComplement, KcatMax: math.NaN(), EnvironmentMatch: math.NaN()},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func searchIndex() *interaction.Index {
	return interaction.NewIndex([]interaction.Record{
		{SpeciesA: "gordonia_sp", SpeciesB: "pseudomonas_putida", Competition: 0.1, Complementarity: 0.6, Delta: 0.5},
		{SpeciesA: "rhodococcus_ruber", SpeciesB: "pseudomonas_putida", Competition: 0.2, Complementarity: 0.4, Delta: 0.2},
		{SpeciesA: "gordonia_sp", SpeciesB: "rhodococcus_ruber", Competition: 0.5, Complementarity: 0.2, Delta: -0.3},
		{SpeciesA: "bacillus_subtilis", SpeciesB: "pseudomonas_putida", Competition: 0.3, Complementarity: 0.3, Delta: 0.0},
	})
}

func searchOpts(strategy string) Options {
	opts := DefaultOptions(strategy)
	opts.KMin = 2
	opts.KMax = 3
	return opts
}

func TestNewStrategy(t *testing.T) {
	for _, name := range List() {
		s, err := NewStrategy(name)
		if err != nil {
			t.Fatalf("NewStrategy(%q): %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("Name() = %q, want %q", s.Name(), name)
		}
	}
	if _, err := NewStrategy("random"); err == nil {
		t.Error("unknown strategy accepted")
	}
}

func TestGreedyProducesOneCandidatePerSize(t *testing.T) {
	table := searchTable(t)
	result, err := (&Greedy{}).Search(context.Background(), table.Species(), table, searchIndex(), searchOpts(StrategyGreedy))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	seen := make(map[string]bool)
	for _, c := range result.Candidates {
		if seen[c.ID] {
			t.Errorf("duplicate candidate id %q", c.ID)
		}
		seen[c.ID] = true
		if len(c.Members) < 2 || len(c.Members) > 3 {
			t.Errorf("candidate %q has %d members, outside [2, 3]", c.ID, len(c.Members))
		}
	}
	if !seen["greedy_k2"] || !seen["greedy_k3"] {
		t.Errorf("candidates = %v, want one per size", result.Candidates)
	}
	if result.Truncated {
		t.Error("greedy search reported truncation")
	}
}

func TestGreedyExtendsThroughScoreDecline(t *testing.T) {
	// A third member with hostile interactions lowers the score, yet greedy
	// keeps extending every trajectory to kmax and reports one best candidate
	// per size; the final ranking, not the trajectory, puts the smaller,
	// better consortium first.
	table, err := fitness.NewTable([]fitness.Record{
		{Species: "a_sp", SMicrobe: 0.9, Source: fitness.SourceFunctional, KcatMax: math.NaN()},
		{Species: "b_sp", SMicrobe: 0.8, Source: fitness.SourceComplement, KcatMax: math.NaN()},
		{Species: "c_sp", SMicrobe: 0.1, Source: fitness.SourceComplement, KcatMax: math.NaN()},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	index := interaction.NewIndex([]interaction.Record{
		{SpeciesA: "a_sp", SpeciesB: "b_sp", Competition: 0, Complementarity: 0.9, Delta: 0.9},
		{SpeciesA: "a_sp", SpeciesB: "c_sp", Competition: 1.0, Complementarity: 0, Delta: -1.0},
		{SpeciesA: "b_sp", SpeciesB: "c_sp", Competition: 1.0, Complementarity: 0, Delta: -1.0},
	})

	result, err := (&Greedy{}).Search(context.Background(), table.Species(), table, index, searchOpts(StrategyGreedy))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	byID := make(map[string]Candidate, len(result.Candidates))
	for _, c := range result.Candidates {
		byID[c.ID] = c
	}
	k2, ok2 := byID["greedy_k2"]
	k3, ok3 := byID["greedy_k3"]
	if !ok2 || !ok3 {
		t.Fatalf("candidates = %v, want one per size even when extending lowers the score", result.Candidates)
	}
	if k3.Breakdown.Score >= k2.Breakdown.Score {
		t.Errorf("k3 score %v not below k2 score %v with a hostile third member",
			k3.Breakdown.Score, k2.Breakdown.Score)
	}
	if result.Candidates[0].ID != "greedy_k2" {
		t.Errorf("top candidate = %q, want the better pair ranked first", result.Candidates[0].ID)
	}
}

func TestGreedyRankedDescending(t *testing.T) {
	table := searchTable(t)
	result, err := (&Greedy{}).Search(context.Background(), table.Species(), table, searchIndex(), searchOpts(StrategyGreedy))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for i := 1; i < len(result.Candidates); i++ {
		if result.Candidates[i-1].Breakdown.Score < result.Candidates[i].Breakdown.Score {
			t.Errorf("candidates not ranked: %v before %v",
				result.Candidates[i-1].Breakdown.Score, result.Candidates[i].Breakdown.Score)
		}
	}
}

func TestSearchDeterministic(t *testing.T) {
	table := searchTable(t)
	index := searchIndex()
	for _, name := range List() {
		strategy, err := NewStrategy(name)
		if err != nil {
			t.Fatalf("NewStrategy: %v", err)
		}
		first, err := strategy.Search(context.Background(), table.Species(), table, index, searchOpts(name))
		if err != nil {
			t.Fatalf("%s first run: %v", name, err)
		}
		second, err := strategy.Search(context.Background(), table.Species(), table, index, searchOpts(name))
		if err != nil {
			t.Fatalf("%s second run: %v", name, err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s is not deterministic", name)
		}
	}
}

func TestExhaustiveAtLeastMatchesGreedy(t *testing.T) {
	table := searchTable(t)
	index := searchIndex()

	greedy, err := (&Greedy{}).Search(context.Background(), table.Species(), table, index, searchOpts(StrategyGreedy))
	if err != nil {
		t.Fatalf("greedy: %v", err)
	}
	exhaustive, err := (&Exhaustive{}).Search(context.Background(), table.Species(), table, index, searchOpts(StrategyExhaustive))
	if err != nil {
		t.Fatalf("exhaustive: %v", err)
	}
	if len(greedy.Candidates) == 0 || len(exhaustive.Candidates) == 0 {
		t.Fatal("no candidates from one of the strategies")
	}
	// Exhaustive covers the full space, so its best cannot lose to greedy's.
	if exhaustive.Candidates[0].Breakdown.Score < greedy.Candidates[0].Breakdown.Score-1e-12 {
		t.Errorf("exhaustive best %v below greedy best %v",
			exhaustive.Candidates[0].Breakdown.Score, greedy.Candidates[0].Breakdown.Score)
	}
}

func TestExhaustiveEnumerationCount(t *testing.T) {
	table := searchTable(t)
	opts := searchOpts(StrategyExhaustive)
	opts.RequireFunctional = false

	result, err := (&Exhaustive{}).Search(context.Background(), table.Species(), table, searchIndex(), opts)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// C(5,2) + C(5,3) = 10 + 10.
	if result.Enumerated != 20 {
		t.Errorf("Enumerated = %d, want 20", result.Enumerated)
	}
	if result.Truncated {
		t.Error("unexpected truncation")
	}
}

func TestExhaustiveHardCap(t *testing.T) {
	records := make([]fitness.Record, 30)
	for i := range records {
		records[i] = fitness.Record{
			Species:  fmt.Sprintf("species_%02d", i),
			SMicrobe: float64(i) / 30,
			Source:   fitness.SourceFunctional,
		}
	}
	table, err := fitness.NewTable(records)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	opts := DefaultOptions(StrategyExhaustive)
	opts.KMin = 2
	opts.KMax = 10
	opts.HardCap = 1000

	result, err := (&Exhaustive{}).Search(context.Background(), table.Species(), table, interaction.NewIndex(nil), opts)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !result.Truncated {
		t.Fatal("cap not reported as truncation")
	}
	if result.Enumerated != 1000 {
		t.Errorf("Enumerated = %d, want exactly the cap", result.Enumerated)
	}
	if len(result.Candidates) == 0 {
		t.Error("truncated run returned no candidates")
	}
}

func TestFunctionalConstraint(t *testing.T) {
	table := searchTable(t)
	opts := searchOpts(StrategyExhaustive)
	opts.RequireFunctional = true

	result, err := (&Exhaustive{}).Search(context.Background(), table.Species(), table, searchIndex(), opts)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, c := range result.Candidates {
		if !scoring.HasFunctional(c.Members, table) {
			t.Errorf("candidate %q has no functional member", c.ID)
		}
	}
	// Rejected combinations still count toward enumeration.
	if result.Enumerated != 20 {
		t.Errorf("Enumerated = %d, want 20 despite the constraint", result.Enumerated)
	}
}

func TestSearchCanceledContext(t *testing.T) {
	table := searchTable(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, name := range List() {
		strategy, _ := NewStrategy(name)
		if _, err := strategy.Search(ctx, table.Species(), table, searchIndex(), searchOpts(name)); err == nil {
			t.Errorf("%s ignored the canceled context", name)
		}
	}
}

func TestSearchEmptyPool(t *testing.T) {
	table := searchTable(t)
	for _, name := range List() {
		strategy, _ := NewStrategy(name)
		if _, err := strategy.Search(context.Background(), nil, table, searchIndex(), searchOpts(name)); err == nil {
			t.Errorf("%s accepted an empty pool", name)
		}
	}
}

func TestRankMembers(t *testing.T) {
	table := searchTable(t)
	candidates := []Candidate{
		{Members: []string{"gordonia_sp", "pseudomonas_putida"}, Breakdown: scoring.Breakdown{Score: 0.9}},
		{Members: []string{"gordonia_sp", "rhodococcus_ruber"}, Breakdown: scoring.Breakdown{Score: 0.7}},
	}
	ranks := RankMembers(candidates, table)
	if len(ranks) != 3 {
		t.Fatalf("ranks = %d, want 3 distinct members", len(ranks))
	}
	if ranks[0].Species != "gordonia_sp" || ranks[0].Frequency != 2 {
		t.Errorf("top rank = %+v, want gordonia_sp with frequency 2", ranks[0])
	}
}
