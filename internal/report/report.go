// # Naming Conventions
//
// Functions in this package follow consistent naming patterns based on their
// behavior:
//
//   - Display* functions write formatted tables to an [io.Writer].
//     They handle presentation logic only.
//     Examples: [DisplayCandidates], [DisplayAlphaScan].
//
//   - Format* functions return a formatted string without performing I/O.
//     They are pure functions suitable for composition.
//     Examples: [FormatFloat], [FormatMembers].

package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/agbru/consort/internal/optimize"
	"github.com/agbru/consort/internal/scan"
	"github.com/agbru/consort/internal/search"
)

// FormatFloat renders a float with 4 decimal places, with NaN shown as "n/a"
// so degraded scan rows stay readable.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

// FormatMembers joins member names for a single table cell.
func FormatMembers(members []string) string {
	return strings.Join(members, ", ")
}

// FormatFeasible renders a feasibility verdict.
func FormatFeasible(feasible bool) string {
	if feasible {
		return "yes"
	}
	return "no"
}

// newTable creates a tabwriter aligned for the report tables.
func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
}

// DisplayCandidates writes the ranked candidate table of a design search.
func DisplayCandidates(out io.Writer, result search.Result) error {
	fmt.Fprintf(out, "Candidates: %d (enumerated %d", len(result.Candidates), result.Enumerated)
	if result.Truncated {
		fmt.Fprint(out, ", truncated at enumeration cap")
	}
	fmt.Fprintln(out, ")")

	w := newTable(out)
	fmt.Fprintln(w, "RANK\tID\tSIZE\tSCORE\tAVG_FIT\tAVG_DELTA\tAVG_COMP\tAVG_KCAT\tMEMBERS")
	for i, c := range result.Candidates {
		b := c.Breakdown
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, c.ID, b.Size,
			FormatFloat(b.Score), FormatFloat(b.AvgSMicrobe), FormatFloat(b.AvgDeltaPos),
			FormatFloat(b.AvgCompetitionPos), FormatFloat(b.AvgKcat),
			FormatMembers(c.Members))
	}
	return w.Flush()
}

// DisplayMemberRanking writes the aggregated per-member contribution table.
func DisplayMemberRanking(out io.Writer, ranks []search.MemberRank) error {
	w := newTable(out)
	fmt.Fprintln(w, "RANK\tSPECIES\tFREQ\tS_MICROBE\tENV_MATCH\tWEIGHTED\tSOURCE")
	for i, r := range ranks {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			i+1, r.Species, r.Frequency,
			FormatFloat(r.SMicrobe), FormatFloat(r.EnvironmentMatch),
			FormatFloat(r.WeightedScore), r.Source)
	}
	return w.Flush()
}

// DisplayEvaluation writes the outcome of a single uptake maximization,
// including the per-member growth breakdown.
func DisplayEvaluation(out io.Writer, res optimize.Result) error {
	w := newTable(out)
	fmt.Fprintf(w, "Alpha\t%s\n", FormatFloat(res.Alpha))
	fmt.Fprintf(w, "Biomass optimum\t%s\n", FormatFloat(res.BiomassMax))
	fmt.Fprintf(w, "Growth at bound\t%s\n", FormatFloat(res.GrowthRate))
	fmt.Fprintf(w, "Max uptake flux\t%s\n", FormatFloat(res.UptakeFlux))
	fmt.Fprintf(w, "Feasible\t%s\n", FormatFeasible(res.Feasible))
	fmt.Fprintf(w, "Bisection probes\t%d\n", res.Iterations)
	if res.NonMonotonic > 0 {
		fmt.Fprintf(w, "Non-monotonic probes\t%d\n", res.NonMonotonic)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(res.MemberGrowth) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	w = newTable(out)
	fmt.Fprintln(w, "MEMBER\tGROWTH")
	for _, m := range sortedKeys(res.MemberGrowth) {
		fmt.Fprintf(w, "%s\t%s\n", m, FormatFloat(res.MemberGrowth[m]))
	}
	return w.Flush()
}

// DisplayAlphaScan writes the growth trade-off scan table.
func DisplayAlphaScan(out io.Writer, rows []scan.AlphaRow) error {
	w := newTable(out)
	fmt.Fprintln(w, "ALPHA\tUPTAKE_FLUX\tGROWTH\tFEASIBLE\tPROBES\tNOTE")
	for _, r := range rows {
		note := ""
		if r.Err != nil {
			note = r.Err.Error()
		} else if r.NonMonotonic > 0 {
			note = fmt.Sprintf("%d non-monotonic probes", r.NonMonotonic)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			FormatFloat(r.Alpha), FormatFloat(r.UptakeFlux), FormatFloat(r.GrowthRate),
			FormatFeasible(r.Feasible), r.Iterations, note)
	}
	return w.Flush()
}

// DisplayRobustness writes the leave-one-out robustness table.
func DisplayRobustness(out io.Writer, rows []scan.RobustnessRow) error {
	w := newTable(out)
	fmt.Fprintln(w, "REMOVED\tBIOMASS_MAX\tUPTAKE_FLUX\tGROWTH\tFEASIBLE\tNOTE")
	for _, r := range rows {
		note := ""
		if r.Err != nil {
			note = r.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Removed, FormatFloat(r.BiomassMax), FormatFloat(r.UptakeFlux),
			FormatFloat(r.GrowthRate), FormatFeasible(r.Feasible), note)
	}
	return w.Flush()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
