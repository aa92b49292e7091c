package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/agbru/consort/internal/cli"
	apperrors "github.com/agbru/consort/internal/errors"
	"github.com/agbru/consort/internal/fitness"
	"github.com/agbru/consort/internal/interaction"
	"github.com/agbru/consort/internal/logging"
	"github.com/agbru/consort/internal/metrics"
	"github.com/agbru/consort/internal/report"
	"github.com/agbru/consort/internal/search"
	"github.com/agbru/consort/internal/sysmon"
)

// runDesign executes the statistical design pipeline: load fitness and
// interaction data, enumerate candidate consortia with the configured
// strategy, and print the ranked candidates plus the per-member
// contribution table.
func (a *Application) runDesign(ctx context.Context, out io.Writer) error {
	cfg := a.Config

	table, err := fitness.ReadFile(cfg.ScoresFile)
	if err != nil {
		return apperrors.WrapError(err, "loading fitness scores")
	}
	a.Logger.Info("fitness scores loaded",
		logging.String("file", cfg.ScoresFile), logging.Int("species", table.Len()))

	index := interaction.NewIndex(nil)
	if cfg.PairsFile != "" {
		index, err = interaction.ReadFile(cfg.PairsFile)
		if err != nil {
			return apperrors.WrapError(err, "loading pairwise interactions")
		}
		a.Logger.Info("pairwise interactions loaded",
			logging.String("file", cfg.PairsFile), logging.Int("pairs", index.Len()))
	} else {
		a.Logger.Info("no interaction file given; pairwise terms contribute zero")
	}

	strategy, err := search.NewStrategy(cfg.Strategy)
	if err != nil {
		return err
	}
	pool := table.TopBySMicrobe(cfg.PoolSize)
	opts := cfg.SearchOptions()

	var result search.Result
	start := time.Now()
	err = cli.WithSpinner(a.ErrWriter, fmt.Sprintf("searching (%s)", strategy.Name()), cfg.Quiet, func(cli.Spinner) error {
		var searchErr error
		result, searchErr = strategy.Search(ctx, pool, table, index, opts)
		return searchErr
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	metrics.CandidatesScored.WithLabelValues(strategy.Name()).Add(float64(result.Enumerated))

	a.Logger.Info("search finished", append(sysmon.Sample().LogFields(),
		logging.String("strategy", strategy.Name()),
		logging.Int("pool", len(pool)),
		logging.Int("enumerated", result.Enumerated),
		logging.Int("candidates", len(result.Candidates)),
		logging.Bool("truncated", result.Truncated),
		logging.String("duration", cli.FormatExecutionDuration(elapsed)))...)

	if err := report.DisplayCandidates(out, result); err != nil {
		return err
	}
	if len(result.Candidates) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Member contributions across top candidates:")
		if err := report.DisplayMemberRanking(out, search.RankMembers(result.Candidates, table)); err != nil {
			return err
		}
	}
	return nil
}
