// This file contains environment variable utilities for configuration override.

package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Environment Variable Utilities
// ─────────────────────────────────────────────────────────────────────────────

// isFlagSet checks if a flag was explicitly set on the command line.
// This is used to determine whether to apply environment variable overrides.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// This is useful for aliased flags where either the short or long form may be used.
func isFlagSetAny(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if isFlagSet(fs, name) {
			return true
		}
	}
	return false
}

// parseBoolEnv parses a boolean environment variable value.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
// Returns defaultVal if the value is not recognized.
func parseBoolEnv(val string, defaultVal bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

// envOverride declares a single environment variable override.
// Each entry maps an env key (without the CONSORT_ prefix) to the CLI flag
// name(s) it corresponds to and a function that applies the env value.
type envOverride struct {
	envKey string
	flags  []string
	apply  func(*AppConfig, string)
}

// envOverrides is the declarative table of all environment variable overrides,
// grouped by value kind (string, numeric, duration, bool).
var envOverrides = []envOverride{
	// String overrides
	{"MODE", []string{"mode"}, func(c *AppConfig, v string) {
		c.Mode = v
	}},
	{"SCORES", []string{"scores"}, func(c *AppConfig, v string) {
		c.ScoresFile = v
	}},
	{"PAIRS", []string{"pairs"}, func(c *AppConfig, v string) {
		c.PairsFile = v
	}},
	{"STRATEGY", []string{"strategy"}, func(c *AppConfig, v string) {
		c.Strategy = v
	}},
	{"PROFILE", []string{"profile"}, func(c *AppConfig, v string) {
		c.ProfileFile = v
	}},
	{"MEDIUM", []string{"medium"}, func(c *AppConfig, v string) {
		c.MediumFile = v
	}},
	{"ALPHAS", []string{"alphas"}, func(c *AppConfig, v string) {
		c.Alphas = v
	}},
	{"TARGET", []string{"target"}, func(c *AppConfig, v string) {
		c.TargetExchange = v
	}},

	// Numeric overrides
	{"POOL", []string{"pool"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.PoolSize = parsed
		}
	}},
	{"KMIN", []string{"kmin"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.KMin = parsed
		}
	}},
	{"KMAX", []string{"kmax"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.KMax = parsed
		}
	}},
	{"TOPK", []string{"topk"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.TopK = parsed
		}
	}},
	{"CAP", []string{"cap"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.HardCap = parsed
		}
	}},
	{"ALPHA", []string{"alpha"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.Alpha = parsed
		}
	}},
	{"UPTAKE_FLOOR", []string{"uptake-floor"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			c.UptakeFloor = parsed
		}
	}},
	{"WORKERS", []string{"workers"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.Workers = parsed
		}
	}},

	// Duration overrides
	{"TIMEOUT", []string{"timeout"}, func(c *AppConfig, v string) {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.Timeout = parsed
		}
	}},

	// Boolean overrides
	{"REQUIRE_FUNCTIONAL", []string{"require-functional"}, func(c *AppConfig, v string) {
		c.RequireFunctional = parseBoolEnv(v, c.RequireFunctional)
	}},
	{"ALPHA_SCAN", []string{"alpha-scan"}, func(c *AppConfig, v string) {
		c.AlphaScan = parseBoolEnv(v, c.AlphaScan)
	}},
	{"ROBUST", []string{"robust"}, func(c *AppConfig, v string) {
		c.Robustness = parseBoolEnv(v, c.Robustness)
	}},
	{"VERBOSE", []string{"v", "verbose"}, func(c *AppConfig, v string) {
		c.Verbose = parseBoolEnv(v, c.Verbose)
	}},
	{"QUIET", []string{"quiet", "q"}, func(c *AppConfig, v string) {
		c.Quiet = parseBoolEnv(v, c.Quiet)
	}},
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// This implements the priority: CLI flags > Environment variables > Defaults.
//
// Supported environment variables (all prefixed with CONSORT_):
//   - MODE, SCORES, PAIRS, STRATEGY, PROFILE, MEDIUM, ALPHAS, TARGET,
//     POOL, KMIN, KMAX, TOPK, CAP, ALPHA, UPTAKE_FLOOR, WORKERS, TIMEOUT,
//     REQUIRE_FUNCTIONAL, ALPHA_SCAN, ROBUST, VERBOSE, QUIET
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) {
	for _, o := range envOverrides {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			o.apply(config, val)
		}
	}
}
