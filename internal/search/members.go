package search

import (
	"math"
	"sort"

	"github.com/agbru/consort/internal/fitness"
)

// MemberRank describes how often a species appears across the top-ranked
// candidates, weighted by its own fitness. Mirrors the member-contribution
// table the original pipeline emitted next to its rankings.
type MemberRank struct {
	// Species is the member name.
	Species string
	// Frequency counts appearances across the ranked candidates.
	Frequency int
	// SMicrobe is the member's fitness (0 when absent from the table).
	SMicrobe float64
	// Source is the member's source tag.
	Source string
	// EnvironmentMatch is the member's environment score, NaN when unknown.
	EnvironmentMatch float64
	// WeightedScore is Frequency × SMicrobe, the ranking key.
	WeightedScore float64
}

// RankMembers aggregates member appearances over the candidates and ranks
// species by frequency-weighted fitness, then frequency, then fitness.
func RankMembers(candidates []Candidate, table *fitness.Table) []MemberRank {
	freq := make(map[string]int)
	var order []string
	for _, c := range candidates {
		for _, m := range c.Members {
			if freq[m] == 0 {
				order = append(order, m)
			}
			freq[m]++
		}
	}

	ranks := make([]MemberRank, 0, len(order))
	for _, species := range order {
		r := MemberRank{
			Species:          species,
			Frequency:        freq[species],
			Source:           fitness.SourceUnknown,
			EnvironmentMatch: math.NaN(),
		}
		if rec, ok := table.Lookup(species); ok {
			r.SMicrobe = rec.SMicrobe
			r.Source = rec.Source
			r.EnvironmentMatch = rec.EnvironmentMatch
		}
		r.WeightedScore = float64(r.Frequency) * r.SMicrobe
		ranks = append(ranks, r)
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].WeightedScore != ranks[j].WeightedScore {
			return ranks[i].WeightedScore > ranks[j].WeightedScore
		}
		if ranks[i].Frequency != ranks[j].Frequency {
			return ranks[i].Frequency > ranks[j].Frequency
		}
		return ranks[i].SMicrobe > ranks[j].SMicrobe
	})
	return ranks
}
