package config

import "runtime"

// Worker resolution chain (highest priority first):
//  1. CLI flag (--workers)
//  2. Environment variable (CONSORT_WORKERS)
//  3. Adaptive hardware estimation (this file)

// ApplyAdaptiveWorkers fills in the robustness scan concurrency based on
// hardware characteristics when it is left at its zero default, preserving
// any user-specified override.
func ApplyAdaptiveWorkers(cfg AppConfig) AppConfig {
	if cfg.Workers == 0 {
		cfg.Workers = EstimateOptimalWorkers()
	}
	return cfg
}

// EstimateOptimalWorkers provides a heuristic worker count without running
// benchmarks. Robustness rows are solver-bound, so the count tracks the CPU
// count but stays bounded: past a point, extra concurrent solves mostly
// compete for memory bandwidth.
func EstimateOptimalWorkers() int {
	numCPU := runtime.NumCPU()

	switch {
	case numCPU <= 2:
		return numCPU
	case numCPU <= 8:
		return numCPU - 1
	default:
		return 8
	}
}
