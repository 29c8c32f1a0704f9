package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snakefit",
		Name:      "jobs_total",
		Help:      "Finished fit jobs by terminal state.",
	}, []string{"state"})

	jobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "snakefit",
		Name:      "jobs_running",
		Help:      "Fit jobs currently optimizing.",
	})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "snakefit",
		Name:      "job_duration_seconds",
		Help:      "Wall time spent in the optimizer per job.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	evaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "snakefit",
		Name:      "energy_evaluations_total",
		Help:      "Contour energy evaluations across all jobs.",
	})
)
