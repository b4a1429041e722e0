package core

import (
	"context"
	"time"
)

// MetricsRecorder observes service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// CacheObserver is implemented by recorders that also count run cache lookups.
type CacheObserver interface {
	ObserveCache(template string, hit bool)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan ends a span started by a Tracer.
type TraceSpan interface {
	End(err error)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// MultiMetricsRecorder fans observations out to every recorder.
type MultiMetricsRecorder []MetricsRecorder

// Observe implements MetricsRecorder.
func (m MultiMetricsRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, rec := range m {
		rec.Observe(ctx, operation, success, duration)
	}
}

// ObserveCache implements CacheObserver for members that support it.
func (m MultiMetricsRecorder) ObserveCache(template string, hit bool) {
	for _, rec := range m {
		if co, ok := rec.(CacheObserver); ok {
			co.ObserveCache(template, hit)
		}
	}
}
