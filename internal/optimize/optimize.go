// Package optimize implements the two-stage uptake maximization at the heart
// of consortium evaluation: given a community model, find the largest
// pollutant uptake flux the community sustains while keeping its growth rate
// at or above a fraction alpha of its unconstrained optimum.
//
// Stage one asks the oracle for the widest uptake the network admits at the
// growth target. Stage two refines the answer by bisection over the target
// exchange flux, probing the growth response with scoped bound pins so the
// model is never left in a mutated state.
package optimize

import (
	"context"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/agbru/consort/internal/errors"
	"github.com/agbru/consort/internal/logging"
	"github.com/agbru/consort/internal/metrics"
	"github.com/agbru/consort/internal/oracle"
)

// Numeric constants of the two-stage optimization. Fluxes are negative for
// uptake, so "deeper" uptake means a more negative value.
const (
	// Epsilon is the magnitude of the modest probe uptake used to classify
	// the growth response: the shallow bisection endpoint sits at -Epsilon.
	Epsilon = 1.0
	// DefaultDistanceTol is the flux-interval width below which bisection
	// stops.
	DefaultDistanceTol = 1e-3
	// DefaultGrowthTol is the growth-rate distance to the target below which
	// bisection stops early.
	DefaultGrowthTol = 1e-4
	// DefaultMaxIterations caps bisection probes per run.
	DefaultMaxIterations = 30
	// InfeasibleFloor is the growth rate below which the unconstrained
	// community is treated as unable to grow at all.
	InfeasibleFloor = 1e-12
	// TargetSlack absorbs solver noise when comparing a growth rate against
	// the growth target.
	TargetSlack = 1e-12
	// StageGrowthSlack bounds how far above the unconstrained optimum a
	// reported stage-two growth rate may sit before being clamped.
	StageGrowthSlack = 1e-6
)

// Tolerances bundles the bisection stopping criteria.
type Tolerances struct {
	// Distance is the flux-interval convergence tolerance.
	Distance float64
	// Growth is the growth-rate convergence tolerance.
	Growth float64
	// MaxIterations caps the number of bisection probes.
	MaxIterations int
}

// DefaultTolerances returns the standard stopping criteria.
func DefaultTolerances() Tolerances {
	return Tolerances{
		Distance:      DefaultDistanceTol,
		Growth:        DefaultGrowthTol,
		MaxIterations: DefaultMaxIterations,
	}
}

// Validate checks the tolerances for usable values.
func (t Tolerances) Validate() error {
	if t.Distance <= 0 {
		return apperrors.NewValidationError("distance_tol", "must be > 0, got %v", t.Distance)
	}
	if t.Growth <= 0 {
		return apperrors.NewValidationError("growth_tol", "must be > 0, got %v", t.Growth)
	}
	if t.MaxIterations < 1 {
		return apperrors.NewValidationError("max_iterations", "must be >= 1, got %d", t.MaxIterations)
	}
	return nil
}

// Result is the outcome of one uptake maximization.
type Result struct {
	// Alpha is the growth-retention fraction the run was solved for.
	Alpha float64
	// BiomassMax is the unconstrained community growth optimum.
	BiomassMax float64
	// GrowthRate is the community growth at the reported uptake flux.
	GrowthRate float64
	// UptakeFlux is the largest sustainable uptake found (negative for
	// import; closer to zero means less uptake).
	UptakeFlux float64
	// MemberGrowth breaks GrowthRate down per member organism.
	MemberGrowth map[string]float64
	// Feasible reports whether the growth target was met at UptakeFlux.
	Feasible bool
	// Iterations is the number of bisection probes spent.
	Iterations int
	// NonMonotonic counts probe pairs whose growth response moved against
	// the assumed fall-off; a nonzero value flags an unreliable answer.
	NonMonotonic int
}

// Optimizer runs uptake maximizations against a Community.
type Optimizer struct {
	tol    Tolerances
	log    logging.Logger
	tracer trace.Tracer
}

// NewOptimizer creates an Optimizer with the given stopping criteria. A nil
// logger is replaced with a no-op logger.
func NewOptimizer(tol Tolerances, log logging.Logger) *Optimizer {
	if log == nil {
		log = logging.Nop()
	}
	return &Optimizer{
		tol:    tol,
		log:    log,
		tracer: otel.Tracer("consort/optimize"),
	}
}

// BiomassMax solves the unconstrained community growth optimum.
func (o *Optimizer) BiomassMax(ctx context.Context, c oracle.Community) (float64, error) {
	sol, err := c.CooperativeTradeoff(ctx)
	metrics.OracleSolves.WithLabelValues("cooperative_tradeoff").Inc()
	if err != nil {
		return 0, apperrors.NewOracleError("cooperative_tradeoff", "", err)
	}
	return sol.GrowthRate, nil
}

// MaximizeUptake solves the unconstrained optimum first and then maximizes
// uptake of the target exchange at the growth target alpha·biomassMax.
func (o *Optimizer) MaximizeUptake(ctx context.Context, c oracle.Community, targetExchange string, alpha float64) (Result, error) {
	biomassMax, err := o.BiomassMax(ctx, c)
	if err != nil {
		return Result{}, err
	}
	return o.MaximizeUptakeWithBiomass(ctx, c, targetExchange, alpha, biomassMax)
}

// MaximizeUptakeWithBiomass maximizes uptake against an already-solved
// unconstrained optimum, so alpha scans can share one baseline solve.
func (o *Optimizer) MaximizeUptakeWithBiomass(ctx context.Context, c oracle.Community, targetExchange string, alpha, biomassMax float64) (Result, error) {
	ctx, span := o.tracer.Start(ctx, "optimize.maximize_uptake", trace.WithAttributes(
		attribute.String("exchange", targetExchange),
		attribute.Float64("alpha", alpha),
	))
	defer span.End()

	if err := o.tol.Validate(); err != nil {
		return Result{}, err
	}
	if alpha <= 0 || alpha > 1 {
		return Result{}, apperrors.NewValidationError("alpha", "must be in (0, 1], got %v", alpha)
	}
	if biomassMax <= InfeasibleFloor {
		return Result{}, apperrors.NewInfeasibleError("baseline",
			"community growth optimum %v is below the feasibility floor", biomassMax)
	}
	target := alpha * biomassMax

	// Stage one: the widest uptake the network admits, growth ignored.
	fMin, err := c.OptimizeFlux(ctx, targetExchange, oracle.Minimize)
	metrics.OracleSolves.WithLabelValues("flux").Inc()
	if err != nil {
		return Result{}, apperrors.NewOracleError("optimize_flux", targetExchange, err)
	}

	muMin, mgMin, err := o.growthAt(ctx, c, targetExchange, fMin)
	if err != nil {
		return Result{}, err
	}
	if muMin >= target-TargetSlack {
		// The growth target holds even at the widest uptake; nothing to
		// refine.
		o.log.Debug("uptake bound accepted at network limit",
			logging.Float64("flux", fMin), logging.Float64("growth", muMin))
		return o.finish(Result{
			Alpha: alpha, BiomassMax: biomassMax,
			GrowthRate: muMin, UptakeFlux: fMin, MemberGrowth: mgMin,
		}, target), nil
	}

	fHi := -Epsilon
	if fHi < fMin {
		fHi = fMin
	}
	muHi, mgHi, err := o.growthAt(ctx, c, targetExchange, fHi)
	if err != nil {
		return Result{}, err
	}

	var best probe
	var left, right float64
	if muHi >= target-TargetSlack {
		// The boundary lies between the network limit and the shallow probe.
		best = probe{flux: fHi, mu: muHi, members: mgHi}
		left, right = fMin, fHi
	} else {
		// Even the shallow probe starves the community; check the closed
		// exchange before refining anything.
		muZero, mgZero, err := o.growthAt(ctx, c, targetExchange, 0)
		if err != nil {
			return Result{}, err
		}
		if muZero < target-TargetSlack {
			// The target is out of reach even with the exchange closed, so
			// zero uptake is the answer outright and no probe can improve it.
			o.log.Debug("growth target unreachable at zero uptake",
				logging.Float64("growth", muZero), logging.Float64("target", target))
			return o.finish(Result{
				Alpha: alpha, BiomassMax: biomassMax,
				GrowthRate: muZero, UptakeFlux: 0, MemberGrowth: mgZero,
			}, target), nil
		}
		best = probe{flux: 0, mu: muZero, members: mgZero}
		left, right = fHi, 0
	}

	best, iters, nonMono, err := o.bisect(ctx, c, targetExchange, target, left, right, best)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Alpha: alpha, BiomassMax: biomassMax,
		GrowthRate: best.mu, UptakeFlux: best.flux, MemberGrowth: best.members,
		Iterations: iters, NonMonotonic: nonMono,
	}
	return o.finish(res, target), nil
}

// finish applies the stage-two growth clamp and the feasibility verdict.
func (o *Optimizer) finish(res Result, target float64) Result {
	if res.GrowthRate > res.BiomassMax+StageGrowthSlack {
		res.GrowthRate = res.BiomassMax + StageGrowthSlack
	}
	res.Feasible = res.GrowthRate >= target-TargetSlack
	return res
}

// probe is one evaluated point of the growth response.
type probe struct {
	flux    float64
	mu      float64
	members map[string]float64
}

// bisect narrows the flux interval [left, right] toward the growth-target
// boundary; left is the infeasible end, right the feasible end. A probe
// meeting the target becomes the new best and pulls the feasible edge to the
// midpoint; a failing probe pulls the other edge. It
// returns the best feasible probe, the probe count, and the count of
// monotonicity violations observed along the way.
func (o *Optimizer) bisect(ctx context.Context, c oracle.Community, targetExchange string, target, left, right float64, best probe) (probe, int, int, error) {
	iters := 0
	nonMono := 0
	prev := best
	defer func() { metrics.BisectionIterations.Observe(float64(iters)) }()

	for iters < o.tol.MaxIterations {
		if err := ctx.Err(); err != nil {
			return best, iters, nonMono, err
		}
		if math.Abs(right-left) <= o.tol.Distance {
			break
		}
		mid := 0.5 * (left + right)
		mu, mg, err := o.growthAt(ctx, c, targetExchange, mid)
		if err != nil {
			return best, iters, nonMono, err
		}
		iters++

		// Deeper uptake should never grow faster than a shallower probe.
		deeper := mid < prev.flux
		if (deeper && mu > prev.mu+TargetSlack) || (!deeper && mu < prev.mu-TargetSlack && mid != prev.flux) {
			nonMono++
			metrics.NonMonotonicObservations.Inc()
			o.log.Debug("non-monotonic growth response",
				logging.Float64("flux", mid), logging.Float64("growth", mu),
				logging.Float64("prev_flux", prev.flux), logging.Float64("prev_growth", prev.mu))
		}
		prev = probe{flux: mid, mu: mu, members: mg}

		if mu >= target {
			best = prev
			right = mid
		} else {
			left = mid
		}
		if math.Abs(mu-target) <= o.tol.Growth {
			break
		}
	}
	return best, iters, nonMono, nil
}

// growthAt evaluates community growth with the target exchange pinned to the
// given flux, restoring the original bounds afterwards.
func (o *Optimizer) growthAt(ctx context.Context, c oracle.Community, targetExchange string, flux float64) (float64, map[string]float64, error) {
	var sol oracle.Solution
	err := oracle.WithFixedBound(c, targetExchange, flux, func() error {
		s, err := c.CooperativeTradeoff(ctx)
		if err != nil {
			return apperrors.NewOracleError("cooperative_tradeoff", targetExchange, err)
		}
		sol = s
		return nil
	})
	metrics.OracleSolves.WithLabelValues("cooperative_tradeoff").Inc()
	if err != nil {
		return 0, nil, err
	}
	return sol.GrowthRate, sol.MemberGrowth, nil
}
