package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitter_jobs_processed_total",
		Help: "Queue jobs handled successfully, by job type.",
	}, []string{"job_type"})

	JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitter_jobs_failed_total",
		Help: "Queue jobs that ended in an error, by job type.",
	}, []string{"job_type"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "splitter_job_duration_seconds",
		Help: "Wall time spent handling a queue job, by job type.",
		// separation jobs run for minutes, not milliseconds
		Buckets: []float64{1, 5, 15, 60, 120, 300, 600, 1200, 2400},
	}, []string{"job_type"})

	PollAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitter_poll_attempts_total",
		Help: "Status polls issued against the separation service.",
	})
)
