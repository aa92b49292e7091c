// Package metrics exposes the engine's Prometheus instrumentation. All
// collectors are registered on the default registry under the "consort"
// namespace; embedding programs expose them by mounting promhttp on the
// default handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "consort"

var (
	// OracleSolves counts calls into the metabolic oracle, partitioned by
	// solve mode ("cooperative_tradeoff" or "flux").
	OracleSolves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oracle_solves_total",
		Help:      "Number of metabolic oracle solves issued, by solve mode.",
	}, []string{"mode"})

	// BisectionIterations observes how many iterations each bisection run
	// needed before converging or hitting the iteration cap.
	BisectionIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "bisection_iterations",
		Help:      "Iterations per uptake bisection run.",
		Buckets:   prometheus.LinearBuckets(1, 3, 10),
	})

	// CandidatesScored counts consortium candidates scored during design
	// search, by strategy.
	CandidatesScored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "candidates_scored_total",
		Help:      "Number of candidate consortia scored, by search strategy.",
	}, []string{"strategy"})

	// ScanRows counts completed scan rows, by scan kind ("alpha" or
	// "robustness") and outcome ("ok" or "error").
	ScanRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_rows_total",
		Help:      "Scan rows produced, by scan kind and outcome.",
	}, []string{"kind", "outcome"})

	// NonMonotonicObservations counts bisection probes whose growth response
	// violated the assumed monotone fall-off.
	NonMonotonicObservations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "non_monotonic_observations_total",
		Help:      "Bisection probes where growth rose as forced uptake increased.",
	})

	// EvaluationDuration observes wall-clock seconds per full consortium
	// evaluation (baseline plus both optimization stages).
	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluation_duration_seconds",
		Help:      "Wall-clock duration of a full consortium evaluation.",
		Buckets:   prometheus.DefBuckets,
	})
)
