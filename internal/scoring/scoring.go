// Package scoring computes the composite utility of a consortium candidate
// from per-species fitness and pairwise interaction data. Scoring is a pure
// function of its inputs: identical inputs always produce identical output.
package scoring

import (
	"math"

	apperrors "github.com/agbru/consort/internal/errors"
	"github.com/agbru/consort/internal/fitness"
	"github.com/agbru/consort/internal/interaction"
)

// Weights are the caller-supplied coefficients of the composite score
//
//	score = Alpha·avg(S_microbe) + Beta·avg(Δ⁺) − Gamma·avg(competition⁺)
//	      + LambdaKcat·avg(kcat_max) − Mu·size
//
// Note the sign convention on Mu: the formula subtracts Mu·size, so a
// positive Mu penalizes larger consortia while a negative Mu rewards them.
// The shipped default keeps the upstream pipeline's Mu = −0.05 (a size
// bonus); callers wanting a true size penalty pass a positive Mu.
type Weights struct {
	Alpha      float64 // weight of the mean single-species fitness
	Beta       float64 // weight of the mean strictly positive delta index
	Gamma      float64 // weight of the mean strictly positive competition index
	LambdaKcat float64 // weight of the mean kcat_max over members that have one
	Mu         float64 // size term coefficient, subtracted as Mu·size
}

// DefaultWeights returns the weights used by the original design pipeline.
func DefaultWeights() Weights {
	return Weights{Alpha: 0.2, Beta: 0.2, Gamma: 0.1, LambdaKcat: 0.35, Mu: -0.05}
}

// Breakdown is the score of one member set plus every intermediate average,
// kept for diagnostics and reporting.
type Breakdown struct {
	// Score is the composite utility.
	Score float64
	// AvgSMicrobe is the mean fitness over members (absent members count 0).
	AvgSMicrobe float64
	// AvgDeltaPos is the mean of strictly positive delta values over pairs
	// with interaction data.
	AvgDeltaPos float64
	// AvgCompetitionPos is the mean of strictly positive competition values
	// over the same pair set.
	AvgCompetitionPos float64
	// AvgKcat is the mean kcat_max over members that have one.
	AvgKcat float64
	// Size is the number of (deduplicated) members.
	Size int
	// UsedPairs counts member pairs that contributed interaction data.
	UsedPairs int
	// Missing lists members absent from the fitness table (scored as 0).
	Missing []string
	// SourceCount histograms members by source tag.
	SourceCount map[string]int
}

// Score computes the composite utility of the given member set. Members are
// normalized and deduplicated first; an empty result is an input error.
// Pairs without interaction data are excluded from the pairwise means, and
// members without a kcat estimate are excluded from the kcat mean; neither
// is counted as zero.
func Score(members []string, table *fitness.Table, index *interaction.Index, w Weights) (Breakdown, error) {
	unique := fitness.UniqueMembers(members)
	if len(unique) == 0 {
		return Breakdown{}, apperrors.NewValidationError("members", "consortium member set is empty")
	}

	b := Breakdown{
		Size:        len(unique),
		SourceCount: make(map[string]int, len(unique)),
	}

	var fitnessValues, kcatValues []float64
	for _, m := range unique {
		rec, ok := table.Lookup(m)
		if !ok {
			b.Missing = append(b.Missing, m)
			fitnessValues = append(fitnessValues, 0)
			b.SourceCount[fitness.SourceUnknown]++
			continue
		}
		fitnessValues = append(fitnessValues, rec.SMicrobe)
		if rec.HasKcat() {
			kcatValues = append(kcatValues, rec.KcatMax)
		}
		b.SourceCount[rec.Source]++
	}

	var deltaPos, competitionPos []float64
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			rec, ok := index.Lookup(unique[i], unique[j])
			if !ok {
				continue
			}
			b.UsedPairs++
			if !math.IsNaN(rec.Delta) && rec.Delta > 0 {
				deltaPos = append(deltaPos, rec.Delta)
			}
			if !math.IsNaN(rec.Competition) && rec.Competition > 0 {
				competitionPos = append(competitionPos, rec.Competition)
			}
		}
	}

	b.AvgSMicrobe = mean(fitnessValues)
	b.AvgDeltaPos = mean(deltaPos)
	b.AvgCompetitionPos = mean(competitionPos)
	b.AvgKcat = mean(kcatValues)
	b.Score = w.Alpha*b.AvgSMicrobe +
		w.Beta*b.AvgDeltaPos -
		w.Gamma*b.AvgCompetitionPos +
		w.LambdaKcat*b.AvgKcat -
		w.Mu*float64(b.Size)
	return b, nil
}

// HasFunctional reports whether at least one member of the set carries the
// functional source tag. Members missing from the table count as unknown.
func HasFunctional(members []string, table *fitness.Table) bool {
	for _, m := range members {
		if rec, ok := table.Lookup(m); ok && rec.IsFunctional() {
			return true
		}
	}
	return false
}

// mean returns the arithmetic mean of values, or 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
