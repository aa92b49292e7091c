// Package interaction builds the symmetric pairwise ecological-interaction
// index used by consortium scoring. Raw records come from upstream
// interaction analysis as a flat relation table; the index keeps exactly one
// record per unordered species pair.
package interaction

import (
	"math"

	"github.com/agbru/consort/internal/fitness"
)

// Record holds the interaction metrics for one unordered species pair.
// Metric fields use math.NaN() as the "absent" sentinel.
type Record struct {
	// SpeciesA and SpeciesB are the normalized pair members. The pair is
	// unordered; the stored A/B assignment follows the raw record.
	SpeciesA string
	SpeciesB string
	// Competition is the competition index between the pair.
	Competition float64
	// Complementarity is the complementarity index between the pair.
	Complementarity float64
	// Delta is complementarity minus competition. Recomputed on ingest when
	// the raw record omits it and both parts are present.
	Delta float64
}

// pairKey is the canonical (sorted) form of an unordered species pair.
type pairKey struct {
	lo, hi string
}

func keyFor(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Index is a symmetric lookup of the single best interaction record per
// unordered species pair.
type Index struct {
	pairs map[pairKey]Record
}

// NewIndex builds an Index from raw records. Names are normalized; records
// with a blank member or identical members are dropped. When multiple raw
// records target the same unordered pair, the one with the strictly greater
// Delta wins; ties are broken by greater Complementarity. Absent metrics
// lose against any present value.
func NewIndex(records []Record) *Index {
	idx := &Index{pairs: make(map[pairKey]Record, len(records))}
	for _, r := range records {
		r.SpeciesA = fitness.NormalizeName(r.SpeciesA)
		r.SpeciesB = fitness.NormalizeName(r.SpeciesB)
		if r.SpeciesA == "" || r.SpeciesB == "" || r.SpeciesA == r.SpeciesB {
			continue
		}
		if math.IsNaN(r.Delta) && !math.IsNaN(r.Complementarity) && !math.IsNaN(r.Competition) {
			r.Delta = r.Complementarity - r.Competition
		}
		key := keyFor(r.SpeciesA, r.SpeciesB)
		existing, found := idx.pairs[key]
		if !found || betterRecord(r, existing) {
			idx.pairs[key] = r
		}
	}
	return idx
}

// betterRecord reports whether candidate should replace current for the same
// pair: strictly greater delta wins, then strictly greater complementarity.
func betterRecord(candidate, current Record) bool {
	cd, xd := orNegInf(candidate.Delta), orNegInf(current.Delta)
	if cd != xd {
		return cd > xd
	}
	return orNegInf(candidate.Complementarity) > orNegInf(current.Complementarity)
}

// orNegInf maps the NaN "absent" sentinel to -Inf so comparisons treat
// missing metrics as worse than any present value.
func orNegInf(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

// Lookup returns the interaction record for an unordered pair. The second
// return value is false when the index has no data for the pair; callers
// must exclude such pairs from pairwise aggregates rather than treat them
// as neutral.
func (idx *Index) Lookup(a, b string) (Record, bool) {
	r, ok := idx.pairs[keyFor(fitness.NormalizeName(a), fitness.NormalizeName(b))]
	return r, ok
}

// Len returns the number of distinct unordered pairs in the index.
func (idx *Index) Len() int { return len(idx.pairs) }
