package matchwindow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	windowsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchwindow_created_total",
			Help: "Total number of match windows created",
		},
	)

	compatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchwindow_compatibility_scores",
			Help:    "Distribution of compatibility scores of created windows",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchwindow_transitions_total",
			Help: "Committed match window transitions by resulting status",
		},
		[]string{"status"},
	)

	versionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchwindow_version_conflicts_total",
			Help: "Optimistic lock conflicts by operation",
		},
		[]string{"operation"},
	)

	sweepOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchwindow_sweep_items_total",
			Help: "Items handled by the expiry and reminder sweeps",
		},
		[]string{"sweep", "outcome"},
	)
)

func RecordWindowCreated(score float64) {
	windowsCreated.Inc()
	compatibilityScores.Observe(score)
}

func RecordTransition(status Status) {
	transitionsTotal.WithLabelValues(string(status)).Inc()
}

func RecordVersionConflict(operation string) {
	versionConflicts.WithLabelValues(operation).Inc()
}

func RecordSweep(sweep string, result SweepResult) {
	sweepOutcomes.WithLabelValues(sweep, "processed").Add(float64(result.Processed))
	sweepOutcomes.WithLabelValues(sweep, "skipped").Add(float64(result.Skipped))
	sweepOutcomes.WithLabelValues(sweep, "failed").Add(float64(result.Failed))
}
