package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Record outcomes counted by ObserveRecord.
const (
	OutcomeAdded     = "added"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leadflow_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_ingest_records_total",
		Help: "Ingested records by outcome",
	}, []string{"outcome"})

	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadflow_jobs_total",
		Help: "Finished jobs by type, status and error code",
	}, []string{"type", "status", "code"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leadflow_job_duration_seconds",
		Help:    "Wall time from job creation to its terminal state",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	}, []string{"type", "status"})

	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadflow_jobs_in_flight",
		Help: "Background ingestions currently running",
	})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveRecord counts one engine decision.
func ObserveRecord(outcome string) {
	recordsTotal.WithLabelValues(outcome).Inc()
}

// ObserveJob records a job reaching a terminal state.
func ObserveJob(jobType, status, code string, duration time.Duration) {
	jobsTotal.WithLabelValues(jobType, status, code).Inc()
	jobDuration.WithLabelValues(jobType, status).Observe(duration.Seconds())
}

func IncrementInFlight() {
	jobsInFlight.Inc()
}

func DecrementInFlight() {
	jobsInFlight.Dec()
}
