// Package scan runs batched evaluations around a single consortium: growth
// trade-off (alpha) scans and leave-one-out robustness scans. Scans degrade
// per row instead of aborting, so one infeasible reduced community does not
// cost the rest of the sweep.
package scan

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/agbru/consort/internal/errors"
	"github.com/agbru/consort/internal/logging"
	"github.com/agbru/consort/internal/metrics"
	"github.com/agbru/consort/internal/optimize"
	"github.com/agbru/consort/internal/oracle"
)

// DefaultWorkers is the concurrency of a robustness scan when the caller
// does not choose one.
const DefaultWorkers = 4

// DefaultAlphas returns the standard growth-retention sweep, 0.5 through 0.9.
func DefaultAlphas() []float64 {
	return []float64{0.5, 0.6, 0.7, 0.8, 0.9}
}

// ParseAlphas parses a comma-separated alpha list ("0.5,0.7,0.9") and
// returns it sorted ascending with duplicates removed.
func ParseAlphas(s string) ([]float64, error) {
	var alphas []float64
	seen := make(map[float64]struct{})
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, apperrors.NewValidationError("alphas", "%q is not a number", part)
		}
		if v <= 0 || v > 1 {
			return nil, apperrors.NewValidationError("alphas", "alpha %v outside (0, 1]", v)
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		alphas = append(alphas, v)
	}
	if len(alphas) == 0 {
		return nil, apperrors.NewValidationError("alphas", "no alpha values given")
	}
	sort.Float64s(alphas)
	return alphas, nil
}

// AlphaRow is the outcome of one alpha of a trade-off scan.
type AlphaRow struct {
	// Alpha is the growth-retention fraction of the row.
	Alpha float64
	// UptakeFlux is the maximal sustainable uptake at this alpha (NaN when
	// the row failed).
	UptakeFlux float64
	// GrowthRate is the community growth at UptakeFlux (NaN on failure).
	GrowthRate float64
	// Feasible reports whether the growth target was met.
	Feasible bool
	// Iterations is the bisection probe count of the row.
	Iterations int
	// NonMonotonic counts monotonicity violations observed in the row.
	NonMonotonic int
	// Err is the row's failure, if any.
	Err error
}

// AlphaScan evaluates the community at each alpha, reusing one baseline
// solve across the sweep. Rows come back in the order of alphas; a failing
// alpha yields a NaN row with Err set. The scan runs sequentially because
// all rows share one Community instance.
func AlphaScan(ctx context.Context, c oracle.Community, opt *optimize.Optimizer, targetExchange string, alphas []float64, log logging.Logger) ([]AlphaRow, error) {
	if log == nil {
		log = logging.Nop()
	}
	if len(alphas) == 0 {
		return nil, apperrors.NewValidationError("alphas", "no alpha values given")
	}
	ctx, span := otel.Tracer("consort/scan").Start(ctx, "scan.alpha", trace.WithAttributes(
		attribute.String("target_exchange", targetExchange),
		attribute.Int("alphas", len(alphas)),
	))
	defer span.End()

	biomassMax, err := opt.BiomassMax(ctx, c)
	if err != nil {
		return nil, err
	}

	rows := make([]AlphaRow, len(alphas))
	for i, alpha := range alphas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := opt.MaximizeUptakeWithBiomass(ctx, c, targetExchange, alpha, biomassMax)
		if err != nil {
			if apperrors.IsContextError(err) {
				return nil, err
			}
			log.Error("alpha row failed", err, logging.Float64("alpha", alpha))
			rows[i] = AlphaRow{Alpha: alpha, UptakeFlux: math.NaN(), GrowthRate: math.NaN(), Err: err}
			metrics.ScanRows.WithLabelValues("alpha", "error").Inc()
			continue
		}
		rows[i] = AlphaRow{
			Alpha:        alpha,
			UptakeFlux:   res.UptakeFlux,
			GrowthRate:   res.GrowthRate,
			Feasible:     res.Feasible,
			Iterations:   res.Iterations,
			NonMonotonic: res.NonMonotonic,
		}
		metrics.ScanRows.WithLabelValues("alpha", "ok").Inc()
	}
	return rows, nil
}

// RobustnessRow is the outcome of evaluating the consortium with one member
// removed.
type RobustnessRow struct {
	// Removed is the member left out of the reduced community.
	Removed string
	// BiomassMax is the reduced community's growth optimum (NaN on failure).
	BiomassMax float64
	// UptakeFlux is the reduced community's maximal sustainable uptake (NaN
	// on failure).
	UptakeFlux float64
	// GrowthRate is the growth at UptakeFlux (NaN on failure).
	GrowthRate float64
	// Feasible reports whether the reduced community met its growth target.
	Feasible bool
	// Err is the row's failure, if any. An InfeasibleError here means the
	// removed member is essential.
	Err error
}

// RobustnessOptions configures a leave-one-out scan.
type RobustnessOptions struct {
	// TargetExchange is the pollutant exchange reaction id.
	TargetExchange string
	// Alpha is the growth-retention fraction for every row.
	Alpha float64
	// Medium, when non-nil, is applied to each rebuilt community before
	// evaluation.
	Medium map[string]float64
	// Workers bounds row concurrency; <= 0 means DefaultWorkers.
	Workers int
}

// RobustnessScan evaluates the consortium once per member with that member
// removed, rebuilding each reduced community from the Builder so rows never
// share model state. Rows come back in member order; a failing row carries
// NaN values and its error instead of aborting the scan.
func RobustnessScan(ctx context.Context, b oracle.Builder, members []string, opt *optimize.Optimizer, o RobustnessOptions, log logging.Logger) ([]RobustnessRow, error) {
	if log == nil {
		log = logging.Nop()
	}
	if len(members) < 2 {
		return nil, apperrors.NewValidationError("members",
			"robustness scan needs at least 2 members, got %d", len(members))
	}
	workers := o.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	ctx, span := otel.Tracer("consort/scan").Start(ctx, "scan.robustness", trace.WithAttributes(
		attribute.String("target_exchange", o.TargetExchange),
		attribute.Int("members", len(members)),
		attribute.Int("workers", workers),
	))
	defer span.End()

	rows := make([]RobustnessRow, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, removed := range members {
		i, removed := i, removed
		g.Go(func() error {
			reduced := make([]string, 0, len(members)-1)
			for _, m := range members {
				if m != removed {
					reduced = append(reduced, m)
				}
			}
			rows[i] = robustnessRow(gctx, b, reduced, removed, opt, o, log)
			if err := rows[i].Err; err != nil && apperrors.IsContextError(err) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// robustnessRow builds and evaluates one reduced community.
func robustnessRow(ctx context.Context, b oracle.Builder, reduced []string, removed string, opt *optimize.Optimizer, o RobustnessOptions, log logging.Logger) RobustnessRow {
	fail := func(err error) RobustnessRow {
		if !apperrors.IsContextError(err) {
			log.Error("robustness row failed", err, logging.String("removed", removed))
			metrics.ScanRows.WithLabelValues("robustness", "error").Inc()
		}
		return RobustnessRow{
			Removed:    removed,
			BiomassMax: math.NaN(), UptakeFlux: math.NaN(), GrowthRate: math.NaN(),
			Err: err,
		}
	}

	c, err := b.Build(ctx, reduced)
	if err != nil {
		return fail(apperrors.WrapError(err, "building reduced community without %q", removed))
	}
	if o.Medium != nil {
		if _, _, err := c.SetMedium(o.Medium); err != nil {
			return fail(apperrors.NewOracleError("set_medium", "", err))
		}
	}
	res, err := opt.MaximizeUptake(ctx, c, o.TargetExchange, o.Alpha)
	if err != nil {
		return fail(err)
	}

	metrics.ScanRows.WithLabelValues("robustness", "ok").Inc()
	return RobustnessRow{
		Removed:    removed,
		BiomassMax: res.BiomassMax,
		UptakeFlux: res.UptakeFlux,
		GrowthRate: res.GrowthRate,
		Feasible:   res.Feasible,
	}
}
