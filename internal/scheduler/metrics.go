package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Scheduled job runs by job and status",
		},
		[]string{"job", "status"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Scheduled job run duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)

func RecordJobRun(job string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	jobRuns.WithLabelValues(job, status).Inc()
	jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}
