package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"boardgamestats/pkg/datasetapi"
	"boardgamestats/pkg/domain"
)

type countingPlugin struct {
	calls *atomic.Int64
	fail  bool
}

func (countingPlugin) Name() string    { return "testplugin" }
func (countingPlugin) Version() string { return "0.1.0" }

func (p countingPlugin) Register(reg *PluginRegistry) error {
	return reg.RegisterDatasetTemplate(datasetapi.Template{
		Key:     "rows",
		Version: "1.0.0",
		Title:   "Rows",
		Dialect: datasetapi.DialectDSL,
		Query:   "games | count()",
		Parameters: []datasetapi.Parameter{
			{Name: "scale", Type: datasetapi.TypeInteger, Default: 1, Minimum: datasetapi.Bound(1)},
		},
		Columns:       []datasetapi.Column{{Name: "rows", Type: "integer"}},
		OutputFormats: []datasetapi.Format{datasetapi.FormatJSON},
		Binder: func(env datasetapi.Environment) (datasetapi.Runner, error) {
			return func(_ context.Context, req datasetapi.RunRequest) (datasetapi.RunResult, error) {
				p.calls.Add(1)
				if p.fail {
					return datasetapi.RunResult{}, errors.New("runner failed")
				}
				scale := datasetapi.IntParam(req.Parameters, "scale", 1)
				return datasetapi.RunResult{
					Rows:        []map[string]any{{"rows": env.Table.Len() * scale}},
					GeneratedAt: env.Now(),
				}, nil
			}, nil
		},
	})
}

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	tbl := domain.NewTable([]domain.Record{{ID: 1}, {ID: 2}, {ID: 3}})
	opts = append([]ServiceOption{WithClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) })}, opts...)
	svc, err := NewService(tbl, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestInstallPluginAndResolve(t *testing.T) {
	svc := newTestService(t)
	calls := &atomic.Int64{}
	meta, err := svc.InstallPlugin(countingPlugin{calls: calls})
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if len(meta.Datasets) != 1 || meta.Datasets[0].Slug != "testplugin/rows@1.0.0" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if _, err := svc.InstallPlugin(countingPlugin{calls: calls}); err == nil {
		t.Fatalf("expected duplicate plugin error")
	}
	if _, err := svc.InstallPlugin(nil); err == nil {
		t.Fatalf("expected nil plugin error")
	}
	if got := svc.DatasetTemplates(); len(got) != 1 || got[0].Plugin != "testplugin" {
		t.Fatalf("unexpected catalog: %+v", got)
	}
	tpl, ok := svc.ResolveDatasetTemplate("testplugin/rows@1.0.0")
	if !ok {
		t.Fatalf("template not resolved")
	}
	if _, ok := svc.ResolveDatasetKey("rows"); !ok {
		t.Fatalf("key lookup failed")
	}
	if _, ok := svc.ResolveDatasetTemplate("testplugin/rows@2.0.0"); ok {
		t.Fatalf("unexpected resolution of unknown version")
	}
	res, perrs, err := tpl.Run(context.Background(), map[string]any{"scale": 2}, DatasetScope{Requestor: "test"}, datasetapi.FormatJSON)
	if err != nil || len(perrs) != 0 {
		t.Fatalf("run: %v %v", err, perrs)
	}
	if res.Rows[0]["rows"] != 6 {
		t.Fatalf("unexpected rows: %+v", res.Rows)
	}
	if plugins := svc.RegisteredPlugins(); len(plugins) != 1 || plugins[0].Version != "0.1.0" {
		t.Fatalf("unexpected plugins: %+v", plugins)
	}
}

func TestRunCacheMemoisesPerParameters(t *testing.T) {
	svc := newTestService(t, WithRunCacheSize(8))
	calls := &atomic.Int64{}
	if _, err := svc.InstallPlugin(countingPlugin{calls: calls}); err != nil {
		t.Fatalf("install: %v", err)
	}
	tpl, _ := svc.ResolveDatasetTemplate("testplugin/rows@1.0.0")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, _, err := tpl.Run(ctx, nil, DatasetScope{}, datasetapi.FormatJSON); err != nil {
			t.Fatalf("run: %v", err)
		}
	}
	// explicit default value normalises to the same key
	if _, _, err := tpl.Run(ctx, map[string]any{"scale": "1"}, DatasetScope{}, datasetapi.FormatJSON); err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one runner call, got %d", calls.Load())
	}
	if _, _, err := tpl.Run(ctx, map[string]any{"scale": 3}, DatasetScope{}, datasetapi.FormatJSON); err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls.Load() != 2 || svc.RunCacheLen() != 2 {
		t.Fatalf("expected a second entry: calls=%d len=%d", calls.Load(), svc.RunCacheLen())
	}
}

func TestRunCacheDisabled(t *testing.T) {
	svc := newTestService(t, WithRunCacheSize(0))
	calls := &atomic.Int64{}
	if _, err := svc.InstallPlugin(countingPlugin{calls: calls}); err != nil {
		t.Fatalf("install: %v", err)
	}
	tpl, _ := svc.ResolveDatasetTemplate("testplugin/rows@1.0.0")
	for i := 0; i < 2; i++ {
		if _, _, err := tpl.Run(context.Background(), nil, DatasetScope{}, datasetapi.FormatJSON); err != nil {
			t.Fatalf("run: %v", err)
		}
	}
	if calls.Load() != 2 || svc.RunCacheLen() != 0 {
		t.Fatalf("cache should be off: calls=%d len=%d", calls.Load(), svc.RunCacheLen())
	}
}

func TestRunsAreObserved(t *testing.T) {
	var trace bytes.Buffer
	tracer := NewSpanLog(&trace)
	stats := NewRunStats("")
	reg := prometheus.NewRegistry()
	promRec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("prometheus recorder: %v", err)
	}
	svc := newTestService(t, WithTracer(tracer), WithMetricsRecorder(MultiMetricsRecorder{stats, promRec}))
	calls := &atomic.Int64{}
	if _, err := svc.InstallPlugin(countingPlugin{calls: calls, fail: true}); err != nil {
		t.Fatalf("install: %v", err)
	}
	tpl, _ := svc.ResolveDatasetTemplate("testplugin/rows@1.0.0")
	if _, _, err := tpl.Run(context.Background(), nil, DatasetScope{}, datasetapi.FormatJSON); err == nil {
		t.Fatalf("expected runner error")
	}
	// failures are not cached
	if _, _, err := tpl.Run(context.Background(), nil, DatasetScope{}, datasetapi.FormatJSON); err == nil {
		t.Fatalf("expected runner error")
	}
	if calls.Load() != 2 {
		t.Fatalf("failed runs must not be cached, calls=%d", calls.Load())
	}

	op := RunOperation + ":testplugin/rows@1.0.0"
	snap := stats.Snapshot()
	if got := snap.Operations[op]; got.Runs != 2 || got.Failures != 2 || snap.CacheMisses != 2 || snap.CacheHits != 0 {
		t.Fatalf("unexpected expvar snapshot: %+v", snap)
	}
	if got := testutil.ToFloat64(promRec.runs.WithLabelValues(op, "error")); got != 2 {
		t.Fatalf("expected 2 prometheus errors, got %v", got)
	}
	if got := testutil.ToFloat64(promRec.cache.WithLabelValues("testplugin/rows@1.0.0", "miss")); got != 2 {
		t.Fatalf("expected 2 cache misses, got %v", got)
	}

	entries := tracer.Recent()
	if len(entries) != 2 || entries[0].OK || entries[0].Operation != RunOperation {
		t.Fatalf("unexpected spans: %+v", entries)
	}
	lines := strings.Split(strings.TrimSpace(trace.String()), "\n")
	var decoded SpanRecord
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil || decoded.Error != "runner failed" {
		t.Fatalf("unexpected trace line %q: %v", lines[0], err)
	}
}

func TestSpanLogKeepsLatestSpans(t *testing.T) {
	log := NewSpanLog(nil)
	for i := 0; i < spanLogCapacity+3; i++ {
		_, span := log.Start(context.Background(), fmt.Sprintf("op-%d", i))
		span.End(nil)
	}
	recent := log.Recent()
	if len(recent) != spanLogCapacity {
		t.Fatalf("expected %d spans, got %d", spanLogCapacity, len(recent))
	}
	if recent[0].Operation != "op-3" || recent[len(recent)-1].Operation != fmt.Sprintf("op-%d", spanLogCapacity+2) || !recent[0].OK {
		t.Fatalf("ring out of order: first %+v last %+v", recent[0], recent[len(recent)-1])
	}
}

func TestRunStatsTracksSlowestRun(t *testing.T) {
	stats := NewRunStats("")
	stats.Observe(context.Background(), "run", true, 10*time.Millisecond)
	stats.Observe(context.Background(), "run", false, 30*time.Millisecond)
	stats.Observe(context.Background(), "", true, time.Second)
	stats.ObserveCache("t", true)
	snap := stats.Snapshot()
	got := snap.Operations["run"]
	if len(snap.Operations) != 1 || got.Runs != 2 || got.Failures != 1 || got.TotalMS != 40 || got.SlowestMS != 30 || snap.CacheHits != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if expvar.Get(stats.Name()) == nil {
		t.Fatalf("stats not published as %s", stats.Name())
	}
}

func TestRegistryRejectsDuplicatesAndInvalidTemplates(t *testing.T) {
	reg := NewPluginRegistry()
	calls := &atomic.Int64{}
	if err := (countingPlugin{calls: calls}).Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := (countingPlugin{calls: calls}).Register(reg); err == nil {
		t.Fatalf("expected duplicate template error")
	}
	if err := reg.RegisterDatasetTemplate(datasetapi.Template{Key: "broken"}); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(reg.DatasetTemplates()) != 1 {
		t.Fatalf("unexpected registry contents")
	}
}

func TestNewServiceRequiresTable(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatalf("expected error for nil table")
	}
}
