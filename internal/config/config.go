// Package config defines the consort command's configuration and its
// resolution chain (highest priority first):
//  1. CLI flags (--scores, --profile, --alpha, ...)
//  2. Environment variables (CONSORT_SCORES, CONSORT_ALPHA, ...)
//  3. Adaptive hardware estimation (worker count)
//  4. Static defaults in this file
package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	apperrors "github.com/agbru/consort/internal/errors"
	"github.com/agbru/consort/internal/optimize"
	"github.com/agbru/consort/internal/oracle"
	"github.com/agbru/consort/internal/scoring"
	"github.com/agbru/consort/internal/search"
)

// EnvPrefix is the prefix of all environment variable overrides.
const EnvPrefix = "CONSORT_"

// Operating modes of the consort command.
const (
	ModeDesign   = "design"
	ModeEvaluate = "evaluate"
)

// Default values for flags whose zero value is not a usable default.
const (
	DefaultTimeout        = 10 * time.Minute
	DefaultAlpha          = 0.7
	DefaultTargetExchange = "EX_dbp_m"
)

// AppConfig holds the full resolved configuration of one consort run.
type AppConfig struct {
	// Mode selects the pipeline: "design" or "evaluate".
	Mode string

	// Design mode inputs.
	ScoresFile string
	PairsFile  string
	Strategy   string
	PoolSize   int
	KMin       int
	KMax       int
	TopK       int
	HardCap    int
	// RequireFunctional keeps only candidates containing at least one
	// functionally annotated degrader.
	RequireFunctional bool
	Weights           scoring.Weights

	// Evaluate mode inputs.
	ProfileFile    string
	MediumFile     string
	Alpha          float64
	Alphas         string
	AlphaScan      bool
	Robustness     bool
	TargetExchange string
	UptakeFloor    float64
	DistanceTol    float64
	GrowthTol      float64
	MaxIterations  int
	Workers        int

	// Ambient settings.
	Timeout time.Duration
	Verbose bool
	Quiet   bool
	Version bool
}

// ParseConfig parses command-line arguments into an AppConfig, applies
// environment variable overrides for flags left unset, and validates the
// result. Usage and flag errors are written to errWriter.
func ParseConfig(programName string, args []string, errWriter io.Writer) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errWriter)

	cfg := AppConfig{Weights: scoring.DefaultWeights()}

	fs.StringVar(&cfg.Mode, "mode", ModeDesign, "pipeline to run: design or evaluate")

	// Design mode.
	fs.StringVar(&cfg.ScoresFile, "scores", "", "fitness score CSV (design mode, required)")
	fs.StringVar(&cfg.PairsFile, "pairs", "", "pairwise interaction CSV (design mode)")
	fs.StringVar(&cfg.Strategy, "strategy", search.StrategyGreedy, "search strategy: greedy or exhaustive")
	fs.IntVar(&cfg.PoolSize, "pool", search.DefaultPoolSize, "candidate pool size (top species by fitness)")
	fs.IntVar(&cfg.KMin, "kmin", search.DefaultKMin, "smallest consortium size")
	fs.IntVar(&cfg.KMax, "kmax", search.DefaultKMax, "largest consortium size")
	fs.IntVar(&cfg.TopK, "topk", 0, "candidates to keep per run (0 = strategy default)")
	fs.IntVar(&cfg.HardCap, "cap", search.DefaultHardCap, "enumeration cap for exhaustive search")
	fs.BoolVar(&cfg.RequireFunctional, "require-functional", true, "require a functionally annotated degrader in every candidate")
	fs.Float64Var(&cfg.Weights.Alpha, "weight-fitness", cfg.Weights.Alpha, "score weight of mean member fitness")
	fs.Float64Var(&cfg.Weights.Beta, "weight-delta", cfg.Weights.Beta, "score weight of mean positive growth delta")
	fs.Float64Var(&cfg.Weights.Gamma, "weight-competition", cfg.Weights.Gamma, "score penalty weight of mean positive competition")
	fs.Float64Var(&cfg.Weights.LambdaKcat, "weight-kcat", cfg.Weights.LambdaKcat, "score weight of mean catalytic rate")
	fs.Float64Var(&cfg.Weights.Mu, "weight-size", cfg.Weights.Mu, "per-member size weight (negative rewards larger consortia)")

	// Evaluate mode.
	fs.StringVar(&cfg.ProfileFile, "profile", "", "community profile YAML (evaluate mode, required)")
	fs.StringVar(&cfg.MediumFile, "medium", "", "growth medium CSV (evaluate mode)")
	fs.Float64Var(&cfg.Alpha, "alpha", DefaultAlpha, "growth-retention fraction in (0, 1]")
	fs.StringVar(&cfg.Alphas, "alphas", "", "comma-separated alphas for --alpha-scan (default 0.5..0.9)")
	fs.BoolVar(&cfg.AlphaScan, "alpha-scan", false, "sweep the growth trade-off over several alphas")
	fs.BoolVar(&cfg.Robustness, "robust", false, "run a leave-one-out robustness scan")
	fs.StringVar(&cfg.TargetExchange, "target", DefaultTargetExchange, "pollutant exchange reaction id")
	fs.Float64Var(&cfg.UptakeFloor, "uptake-floor", oracle.DefaultUptakeFloor, "minimum import capacity granted to the target exchange")
	fs.Float64Var(&cfg.DistanceTol, "dist-tol", optimize.DefaultDistanceTol, "bisection flux-interval tolerance")
	fs.Float64Var(&cfg.GrowthTol, "growth-tol", optimize.DefaultGrowthTol, "bisection growth-rate tolerance")
	fs.IntVar(&cfg.MaxIterations, "max-iter", optimize.DefaultMaxIterations, "bisection iteration cap")
	fs.IntVar(&cfg.Workers, "workers", 0, "robustness scan concurrency (0 = adaptive)")

	// Ambient.
	fs.DurationVar(&cfg.Timeout, "timeout", DefaultTimeout, "overall run timeout")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose logging (shorthand)")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "verbose logging")
	fs.BoolVar(&cfg.Quiet, "q", false, "suppress progress output (shorthand)")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "suppress progress output")
	fs.BoolVar(&cfg.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}
	if fs.NArg() > 0 {
		return AppConfig{}, apperrors.NewConfigError("unexpected positional arguments: %v", fs.Args())
	}

	applyEnvOverrides(&cfg, fs)
	cfg = ApplyAdaptiveWorkers(cfg)

	if cfg.Version {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for mode-appropriate, usable values.
func (c AppConfig) Validate() error {
	switch c.Mode {
	case ModeDesign:
		if c.ScoresFile == "" {
			return apperrors.NewConfigError("design mode needs --scores")
		}
		if _, err := search.NewStrategy(c.Strategy); err != nil {
			return err
		}
		if c.PoolSize < 1 {
			return apperrors.NewConfigError("--pool must be >= 1, got %d", c.PoolSize)
		}
		if c.KMin < 1 {
			return apperrors.NewConfigError("--kmin must be >= 1, got %d", c.KMin)
		}
		if c.KMax < c.KMin {
			return apperrors.NewConfigError("--kmax (%d) must be >= --kmin (%d)", c.KMax, c.KMin)
		}
		if c.TopK < 0 {
			return apperrors.NewConfigError("--topk must be >= 0, got %d", c.TopK)
		}
		if c.HardCap < 1 {
			return apperrors.NewConfigError("--cap must be >= 1, got %d", c.HardCap)
		}
	case ModeEvaluate:
		if c.ProfileFile == "" {
			return apperrors.NewConfigError("evaluate mode needs --profile")
		}
		if c.Alpha <= 0 || c.Alpha > 1 {
			return apperrors.NewConfigError("--alpha must be in (0, 1], got %v", c.Alpha)
		}
		if c.UptakeFloor < 0 {
			return apperrors.NewConfigError("--uptake-floor must be >= 0, got %v", c.UptakeFloor)
		}
		tol := c.Tolerances()
		if err := tol.Validate(); err != nil {
			return err
		}
		if c.Workers < 0 {
			return apperrors.NewConfigError("--workers must be >= 0, got %d", c.Workers)
		}
	default:
		return apperrors.NewConfigError("unknown mode %q (want %s or %s)", c.Mode, ModeDesign, ModeEvaluate)
	}
	if c.Timeout <= 0 {
		return apperrors.NewConfigError("--timeout must be > 0, got %v", c.Timeout)
	}
	if c.Quiet && c.Verbose {
		return apperrors.NewConfigError("--quiet and --verbose are mutually exclusive")
	}
	return nil
}

// Tolerances bundles the bisection settings for the optimizer.
func (c AppConfig) Tolerances() optimize.Tolerances {
	return optimize.Tolerances{
		Distance:      c.DistanceTol,
		Growth:        c.GrowthTol,
		MaxIterations: c.MaxIterations,
	}
}

// SearchOptions bundles the design settings for the search strategies. The
// pool itself is selected separately from PoolSize.
func (c AppConfig) SearchOptions() search.Options {
	opts := search.DefaultOptions(c.Strategy)
	opts.KMin = c.KMin
	opts.KMax = c.KMax
	if c.TopK > 0 {
		opts.TopK = c.TopK
	}
	opts.HardCap = c.HardCap
	opts.RequireFunctional = c.RequireFunctional
	opts.Weights = c.Weights
	return opts
}

// String renders the configuration for verbose startup logging.
func (c AppConfig) String() string {
	switch c.Mode {
	case ModeDesign:
		return fmt.Sprintf("mode=design scores=%s pairs=%s strategy=%s pool=%d k=[%d,%d] cap=%d",
			c.ScoresFile, c.PairsFile, c.Strategy, c.PoolSize, c.KMin, c.KMax, c.HardCap)
	case ModeEvaluate:
		return fmt.Sprintf("mode=evaluate profile=%s medium=%s alpha=%v target=%s workers=%d",
			c.ProfileFile, c.MediumFile, c.Alpha, c.TargetExchange, c.Workers)
	}
	return fmt.Sprintf("mode=%s", c.Mode)
}
