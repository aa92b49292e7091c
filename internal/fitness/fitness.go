// Package fitness holds the per-species fitness records consumed by the
// design phase. Records are produced upstream (identification and scoring
// pipelines) and are read-only here.
package fitness

import (
	"math"
	"sort"
	"strings"

	apperrors "github.com/agbru/consort/internal/errors"
)

// Source tags classify where a candidate species came from.
const (
	SourceFunctional = "functional"
	SourceComplement = "complement"
	SourceUnknown    = "unknown"
)

// Record is a single species fitness record.
//
// Optional numeric fields use math.NaN() as the "absent" sentinel, matching
// the upstream tabular data where the columns may be empty. Use HasKcat /
// HasEnvironmentMatch instead of comparing against NaN directly.
type Record struct {
	// Species is the normalized species name, unique within a Table.
	Species string
	// SMicrobe is the precomputed single-species fitness score.
	// Missing values are coerced to 0 on load.
	SMicrobe float64
	// Source tags the record origin: functional, complement or unknown.
	Source string
	// KcatMax is the maximum kcat estimate, NaN when unknown.
	KcatMax float64
	// EnvironmentMatch is the environmental suitability score, NaN when unknown.
	EnvironmentMatch float64
}

// HasKcat reports whether the record carries a kcat estimate.
func (r Record) HasKcat() bool { return !math.IsNaN(r.KcatMax) }

// HasEnvironmentMatch reports whether the record carries an environment score.
func (r Record) HasEnvironmentMatch() bool { return !math.IsNaN(r.EnvironmentMatch) }

// IsFunctional reports whether the record is tagged as a functional degrader.
func (r Record) IsFunctional() bool { return r.Source == SourceFunctional }

// NormalizeName canonicalizes a species name: full-width punctuation is
// mapped to ASCII, surrounding whitespace is trimmed and internal whitespace
// runs collapse to a single space. Returns "" for blank input.
func NormalizeName(name string) string {
	replacer := strings.NewReplacer("（", "(", "）", ")", "，", ",", "、", ",")
	return strings.Join(strings.Fields(replacer.Replace(name)), " ")
}

// NormalizeSource canonicalizes a source tag (lowercased, trimmed); blank
// tags become SourceUnknown.
func NormalizeSource(source string) string {
	s := strings.ToLower(strings.TrimSpace(source))
	if s == "" {
		return SourceUnknown
	}
	return s
}

// Table is a read-only lookup of species fitness records. It preserves the
// input order of first appearance so that downstream tie-breaks stay
// deterministic.
type Table struct {
	records map[string]Record
	order   []string
}

// NewTable builds a Table from records. Species names and source tags are
// normalized; records with blank names are dropped; a later record for the
// same species replaces the earlier one without changing its position.
// An empty result is an input error: the design phase cannot run without
// fitness data.
func NewTable(records []Record) (*Table, error) {
	t := &Table{records: make(map[string]Record, len(records))}
	for _, r := range records {
		r.Species = NormalizeName(r.Species)
		if r.Species == "" {
			continue
		}
		r.Source = NormalizeSource(r.Source)
		if _, seen := t.records[r.Species]; !seen {
			t.order = append(t.order, r.Species)
		}
		t.records[r.Species] = r
	}
	if len(t.order) == 0 {
		return nil, apperrors.NewValidationError("records", "fitness table has no usable records")
	}
	return t, nil
}

// Lookup returns the record for the (normalized) species name.
func (t *Table) Lookup(species string) (Record, bool) {
	r, ok := t.records[NormalizeName(species)]
	return r, ok
}

// Len returns the number of species in the table.
func (t *Table) Len() int { return len(t.order) }

// Species returns all species names in order of first appearance.
func (t *Table) Species() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// TopBySMicrobe returns up to n species names sorted by descending SMicrobe.
// Ties keep input order, so identical inputs always yield identical pools.
// n <= 0 returns all species.
func (t *Table) TopBySMicrobe(n int) []string {
	sorted := t.Species()
	sort.SliceStable(sorted, func(i, j int) bool {
		return t.records[sorted[i]].SMicrobe > t.records[sorted[j]].SMicrobe
	})
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// UniqueMembers normalizes and deduplicates a member list, preserving the
// order of first appearance. Blank names are dropped.
func UniqueMembers(members []string) []string {
	seen := make(map[string]struct{}, len(members))
	var out []string
	for _, m := range members {
		normalized := NormalizeName(m)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
