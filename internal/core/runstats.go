package core

import (
	"context"
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var runStatsSeq atomic.Uint64

// OperationStats totals the runs of one operation.
type OperationStats struct {
	Runs      int64   `json:"runs"`
	Failures  int64   `json:"failures"`
	TotalMS   float64 `json:"total_ms"`
	SlowestMS float64 `json:"slowest_ms"`
}

// RunStatsSnapshot is a point-in-time copy of RunStats.
type RunStatsSnapshot struct {
	Operations  map[string]OperationStats `json:"operations"`
	CacheHits   int64                     `json:"cache_hits"`
	CacheMisses int64                     `json:"cache_misses"`
	TakenAt     time.Time                 `json:"taken_at"`
}

// RunStats is a MetricsRecorder and CacheObserver published as a single
// expvar variable.
type RunStats struct {
	name   string
	mu     sync.Mutex
	ops    map[string]*OperationStats
	hits   int64
	misses int64
}

// NewRunStats publishes a RunStats under name. An empty name gets a
// generated one, since expvar names are process-global.
func NewRunStats(name string) *RunStats {
	if name == "" {
		name = fmt.Sprintf("bgstats_runs_%d", runStatsSeq.Add(1))
	}
	s := &RunStats{name: name, ops: make(map[string]*OperationStats)}
	expvar.Publish(name, expvar.Func(func() any { return s.Snapshot() }))
	return s
}

// Name is the expvar variable name.
func (s *RunStats) Name() string { return s.name }

// Observe implements MetricsRecorder.
func (s *RunStats) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[operation]
	if !ok {
		op = &OperationStats{}
		s.ops[operation] = op
	}
	op.Runs++
	if !success {
		op.Failures++
	}
	op.TotalMS += ms
	op.SlowestMS = max(op.SlowestMS, ms)
}

// ObserveCache implements CacheObserver.
func (s *RunStats) ObserveCache(_ string, hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hit {
		s.hits++
	} else {
		s.misses++
	}
}

func (s *RunStats) Snapshot() RunStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := make(map[string]OperationStats, len(s.ops))
	for name, op := range s.ops {
		ops[name] = *op
	}
	return RunStatsSnapshot{Operations: ops, CacheHits: s.hits, CacheMisses: s.misses, TakenAt: time.Now().UTC()}
}
