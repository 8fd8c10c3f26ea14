package reputation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	behaviorEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reputation_behavior_events_total",
			Help: "Total number of behavior events recorded",
		},
		[]string{"type"},
	)

	decayFactors = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reputation_decay_factor",
			Help:    "Distribution of decay factors applied to behavior events",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	trustLevelChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reputation_trust_level_changes_total",
			Help: "Trust level transitions caused by behavior events",
		},
		[]string{"from", "to"},
	)
)

func RecordBehaviorEvent(behavior BehaviorType, decay float64) {
	behaviorEventsTotal.WithLabelValues(string(behavior)).Inc()
	decayFactors.Observe(decay)
}

func RecordTrustLevelChange(from, to TrustLevel) {
	if from != to {
		trustLevelChanges.WithLabelValues(string(from), string(to)).Inc()
	}
}
