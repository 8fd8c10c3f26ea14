package ghosting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	detections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghosting_conversations_checked_total",
			Help: "Idle conversations checked for ghosting by outcome",
		},
		[]string{"outcome"}, // flagged, skipped, failed
	)

	flagCacheResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghosting_flag_cache_resets_total",
			Help: "Times the in-memory flag cache was emptied after reaching its bound",
		},
	)
)

func RecordDetection(outcome string) {
	detections.WithLabelValues(outcome).Inc()
}

func RecordFlagCacheReset() {
	flagCacheResets.Inc()
}
