// Package app wires the consort command together: configuration parsing,
// logger setup, lifecycle (timeout and signals), and dispatch to the design
// or evaluation pipeline.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/agbru/consort/internal/config"
	apperrors "github.com/agbru/consort/internal/errors"
	"github.com/agbru/consort/internal/logging"
)

// Application represents the consort application instance.
type Application struct {
	Config    config.AppConfig
	Logger    logging.Logger
	ErrWriter io.Writer
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithLogger sets a custom Logger for the application.
func WithLogger(l logging.Logger) AppOption {
	return func(a *Application) { a.Logger = l }
}

// New creates a new Application instance by parsing command-line arguments.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter}
	for _, opt := range opts {
		opt(app)
	}

	programName := "consort"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	if app.Logger == nil {
		app.Logger = app.defaultLogger()
	}
	return app, nil
}

// defaultLogger builds the logger matching the configured verbosity.
func (a *Application) defaultLogger() logging.Logger {
	if a.Config.Quiet {
		return logging.Nop()
	}
	if a.Config.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return logging.NewDefaultLogger()
}

// Run executes the application based on the configured mode and returns the
// process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	if a.Config.Version {
		PrintVersion(out)
		return apperrors.ExitSuccess
	}

	ctx, cancelTimeout := context.WithTimeout(ctx, a.Config.Timeout)
	defer cancelTimeout()
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if a.Config.Verbose {
		a.Logger.Debug("configuration resolved", logging.String("config", a.Config.String()))
	}

	var err error
	switch a.Config.Mode {
	case config.ModeDesign:
		err = a.runDesign(ctx, out)
	case config.ModeEvaluate:
		err = a.runEvaluate(ctx, out)
	default:
		err = apperrors.NewConfigError("unknown mode %q", a.Config.Mode)
	}

	if err != nil {
		if apperrors.IsContextError(err) {
			fmt.Fprintln(a.ErrWriter, "Canceled.")
		} else {
			fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		}
		return apperrors.ExitCode(err)
	}
	return apperrors.ExitSuccess
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
