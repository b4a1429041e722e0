package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports run counts, latencies and cache lookups.
type PrometheusMetricsRecorder struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cache    *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the collectors with reg. A nil reg
// uses the default registerer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PrometheusMetricsRecorder{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bgstats",
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bgstats",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bgstats",
			Name:      "run_cache_lookups_total",
			Help:      "Dataset run cache lookups by result.",
		}, []string{"template", "result"}),
	}
	for _, c := range []prometheus.Collector{rec.runs, rec.duration, rec.cache} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.runs.WithLabelValues(operation, status).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveCache implements CacheObserver.
func (r *PrometheusMetricsRecorder) ObserveCache(template string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(template, result).Inc()
}
