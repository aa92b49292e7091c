package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/agbru/consort/internal/cli"
	apperrors "github.com/agbru/consort/internal/errors"
	"github.com/agbru/consort/internal/logging"
	"github.com/agbru/consort/internal/metrics"
	"github.com/agbru/consort/internal/optimize"
	"github.com/agbru/consort/internal/oracle"
	"github.com/agbru/consort/internal/report"
	"github.com/agbru/consort/internal/scan"
)

// runEvaluate executes the evaluation pipeline: build the community from its
// profile, prepare the medium, maximize pollutant uptake at the configured
// growth trade-off, and optionally sweep alphas or run a leave-one-out
// robustness scan.
func (a *Application) runEvaluate(ctx context.Context, out io.Writer) error {
	cfg := a.Config

	profile, err := oracle.LoadProfile(cfg.ProfileFile)
	if err != nil {
		return apperrors.WrapError(err, "loading community profile")
	}
	community, err := oracle.NewResponseCommunity(profile)
	if err != nil {
		return err
	}
	a.Logger.Info("community loaded",
		logging.String("profile", cfg.ProfileFile),
		logging.String("name", profile.Name),
		logging.Int("members", len(profile.Members)))

	medium, err := a.prepareMedium(community)
	if err != nil {
		return err
	}

	opt := optimize.NewOptimizer(cfg.Tolerances(), a.Logger)

	if cfg.AlphaScan {
		if err := a.runAlphaScan(ctx, community, opt, out); err != nil {
			return err
		}
	} else {
		if err := a.runSingleEvaluation(ctx, community, opt, out); err != nil {
			return err
		}
	}

	if cfg.Robustness {
		if err := a.runRobustness(ctx, profile, medium, opt, out); err != nil {
			return err
		}
	}
	return nil
}

// prepareMedium loads the medium (when given), grants the target exchange
// its uptake floor, and applies the result to the community. The applied
// medium map is returned for reuse by the robustness scan.
func (a *Application) prepareMedium(community oracle.Community) (map[string]float64, error) {
	cfg := a.Config

	var medium oracle.Medium
	if cfg.MediumFile != "" {
		var err error
		medium, err = oracle.ReadMediumFile(cfg.MediumFile)
		if err != nil {
			return nil, apperrors.WrapError(err, "loading medium")
		}
	}
	medium = medium.EnsureUptakeCapacity(cfg.TargetExchange, cfg.UptakeFloor)

	mediumMap := medium.ToMap()
	applied, missing, err := community.SetMedium(mediumMap)
	if err != nil {
		return nil, apperrors.NewOracleError("set_medium", "", err)
	}
	if len(missing) > 0 {
		a.Logger.Info("medium entries without a matching exchange skipped",
			logging.Int("applied", applied),
			logging.String("missing", strings.Join(missing, ", ")))
	}
	return mediumMap, nil
}

// runSingleEvaluation maximizes uptake at the configured alpha and prints
// the result table.
func (a *Application) runSingleEvaluation(ctx context.Context, community oracle.Community, opt *optimize.Optimizer, out io.Writer) error {
	cfg := a.Config

	var res optimize.Result
	start := time.Now()
	err := cli.WithSpinner(a.ErrWriter, "maximizing uptake", cfg.Quiet, func(cli.Spinner) error {
		var evalErr error
		res, evalErr = opt.MaximizeUptake(ctx, community, cfg.TargetExchange, cfg.Alpha)
		return evalErr
	})
	if err != nil {
		return err
	}
	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())

	if res.NonMonotonic > 0 {
		a.Logger.Info("growth response was not monotone; treat the bound as approximate",
			logging.Int("violations", res.NonMonotonic))
	}
	return report.DisplayEvaluation(out, res)
}

// runAlphaScan sweeps the growth trade-off over the configured alphas and
// prints the scan table.
func (a *Application) runAlphaScan(ctx context.Context, community oracle.Community, opt *optimize.Optimizer, out io.Writer) error {
	cfg := a.Config

	alphas := scan.DefaultAlphas()
	if cfg.Alphas != "" {
		var err error
		alphas, err = scan.ParseAlphas(cfg.Alphas)
		if err != nil {
			return err
		}
	}

	var rows []scan.AlphaRow
	err := cli.WithSpinner(a.ErrWriter, fmt.Sprintf("scanning %d alphas", len(alphas)), cfg.Quiet, func(cli.Spinner) error {
		var scanErr error
		rows, scanErr = scan.AlphaScan(ctx, community, opt, cfg.TargetExchange, alphas, a.Logger)
		return scanErr
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Growth trade-off scan:")
	return report.DisplayAlphaScan(out, rows)
}

// runRobustness evaluates every leave-one-out reduction of the community and
// prints the robustness table.
func (a *Application) runRobustness(ctx context.Context, profile oracle.Profile, medium map[string]float64, opt *optimize.Optimizer, out io.Writer) error {
	cfg := a.Config

	builder := oracle.NewProfileBuilder(profile)
	var rows []scan.RobustnessRow
	err := cli.WithSpinner(a.ErrWriter, "robustness scan", cfg.Quiet, func(cli.Spinner) error {
		var scanErr error
		rows, scanErr = scan.RobustnessScan(ctx, builder, profile.Members, opt, scan.RobustnessOptions{
			TargetExchange: cfg.TargetExchange,
			Alpha:          cfg.Alpha,
			Medium:         medium,
			Workers:        cfg.Workers,
		}, a.Logger)
		return scanErr
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Leave-one-out robustness:")
	return report.DisplayRobustness(out, rows)
}
