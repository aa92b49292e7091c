// Package cli holds the terminal-facing helpers of the consort command:
// spinner-based progress for long searches and scans, and duration
// formatting for result lines.
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// ProgressRefreshRate defines the refresh frequency of the progress spinner.
const ProgressRefreshRate = 200 * time.Millisecond

// FormatExecutionDuration formats a time.Duration for display.
// It shows microseconds for durations less than a millisecond, milliseconds for
// durations less than a second, and the default string representation otherwise.
// This approach provides a more human-readable output for short durations.
//
// Parameters:
//   - d: The duration to format.
//
// Returns:
//   - string: A formatted string representing the duration.
func FormatExecutionDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	} else if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.String()
}

// Spinner is an interface that abstracts the behavior of a terminal spinner.
// It decouples the command's progress display from a specific spinner
// implementation, facilitating easier testing.
type Spinner interface {
	// Start begins the spinner animation.
	Start()
	// Stop halts the spinner animation.
	Stop()
	// UpdateSuffix sets the text that is displayed after the spinner.
	UpdateSuffix(suffix string)
}

// realSpinner wraps a `spinner.Spinner` to implement the Spinner interface.
type realSpinner struct {
	s *spinner.Spinner
}

// Start begins the spinner animation.
func (rs *realSpinner) Start() {
	rs.s.Start()
}

// Stop halts the spinner animation.
func (rs *realSpinner) Stop() {
	rs.s.Stop()
}

// UpdateSuffix sets the text that is displayed after the spinner.
func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Suffix = suffix
}

// nopSpinner satisfies Spinner without touching the terminal. Used in quiet
// mode and when output is not a terminal.
type nopSpinner struct{}

func (nopSpinner) Start()                {}
func (nopSpinner) Stop()                 {}
func (nopSpinner) UpdateSuffix(_ string) {}

// NewSpinner creates a terminal spinner writing to w with the given phase
// label. When quiet is set it returns an inert spinner so scripted runs stay
// clean.
func NewSpinner(w io.Writer, label string, quiet bool) Spinner {
	if quiet {
		return nopSpinner{}
	}
	s := spinner.New(spinner.CharSets[11], ProgressRefreshRate, spinner.WithWriter(w))
	s.Suffix = " " + label
	return &realSpinner{s}
}

// WithSpinner runs fn under a running spinner, stopping it on every exit
// path.
func WithSpinner(w io.Writer, label string, quiet bool, fn func(Spinner) error) error {
	sp := NewSpinner(w, label, quiet)
	sp.Start()
	defer sp.Stop()
	return fn(sp)
}
