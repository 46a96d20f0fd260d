// Package obsmetrics exposes Prometheus instrumentation for the prediction
// pipeline, training dispatcher, and event consumers.
package obsmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector registered by the service.
type Metrics struct {
	PredictionDuration *prometheus.HistogramVec
	PredictionTotal    *prometheus.CounterVec
	PredictionErrors   *prometheus.CounterVec

	DispatcherJobDuration *prometheus.HistogramVec
	DispatcherJobTotal    *prometheus.CounterVec
	DispatcherQueueDepth  prometheus.Gauge

	EventIngested   *prometheus.CounterVec
	EventDuplicates *prometheus.CounterVec
	EventMalformed  *prometheus.CounterVec

	ActiveSwaps prometheus.Counter
}

// New creates and registers the metrics under namespace (defaults to "mlsvc").
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mlsvc"
	}

	return &Metrics{
		PredictionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prediction_duration_seconds",
				Help:      "Duration of a prediction pipeline invocation",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"family", "cache_status"},
		),
		PredictionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Total predictions served",
			},
			[]string{"family", "cache_status"},
		),
		PredictionErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prediction_errors_total",
				Help:      "Total prediction errors by kind",
			},
			[]string{"family", "error_kind"},
		),
		DispatcherJobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatcher_job_duration_seconds",
				Help:      "Duration of a training job",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"family", "status"},
		),
		DispatcherJobTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatcher_jobs_total",
				Help:      "Total training jobs processed",
			},
			[]string{"family", "status"},
		),
		DispatcherQueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dispatcher_queue_depth",
				Help:      "Current depth of the training job queue",
			},
		),
		EventIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_ingested_total",
				Help:      "Total domain events ingested into the training dataset",
			},
			[]string{"family"},
		),
		EventDuplicates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_duplicate_total",
				Help:      "Total domain events skipped as duplicates",
			},
			[]string{"family"},
		),
		EventMalformed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_malformed_total",
				Help:      "Total domain events discarded as malformed",
			},
			[]string{"family"},
		),
		ActiveSwaps: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "active_swaps_total",
				Help:      "Total active-model swap operations completed",
			},
		),
	}
}

// RecordPrediction records a completed prediction's latency and outcome.
func (m *Metrics) RecordPrediction(family, cacheStatus string, d time.Duration) {
	m.PredictionDuration.WithLabelValues(family, cacheStatus).Observe(d.Seconds())
	m.PredictionTotal.WithLabelValues(family, cacheStatus).Inc()
}

// RecordPredictionError records a prediction error by family and taxonomy kind.
func (m *Metrics) RecordPredictionError(family, errorKind string) {
	m.PredictionErrors.WithLabelValues(family, errorKind).Inc()
}

// RecordDispatcherJob records a completed training job's latency and status.
func (m *Metrics) RecordDispatcherJob(family, status string, d time.Duration) {
	m.DispatcherJobDuration.WithLabelValues(family, status).Observe(d.Seconds())
	m.DispatcherJobTotal.WithLabelValues(family, status).Inc()
}

// RecordActiveSwap records one completed active-model promotion.
func (m *Metrics) RecordActiveSwap() {
	m.ActiveSwaps.Inc()
}

// SetDispatcherQueueDepth reports the training job queue's current depth,
// meant to be sampled on a fixed interval rather than per-job.
func (m *Metrics) SetDispatcherQueueDepth(depth int) {
	m.DispatcherQueueDepth.Set(float64(depth))
}
