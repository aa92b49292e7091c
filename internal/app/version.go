package app

import (
	"fmt"
	"io"
	"runtime"
)

// Version is the release version, overridden at build time via
// -ldflags "-X github.com/agbru/consort/internal/app.Version=...".
var Version = "dev"

// Commit is the VCS revision the binary was built from, set the same way.
var Commit = "unknown"

// PrintVersion writes the version banner.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "consort %s (%s, %s/%s)\n", Version, Commit, runtime.GOOS, runtime.GOARCH)
}

// HasVersionFlag reports whether args request the version banner, so main
// can short-circuit before full flag parsing.
func HasVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--version" || arg == "-version" {
			return true
		}
	}
	return false
}
