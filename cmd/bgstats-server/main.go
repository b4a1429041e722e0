// Command bgstats-server serves the board-game dashboard, the dataset API
// and the metrics endpoints over one loaded CSV table.
package main

import (
	"context"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"boardgamestats/internal/adapters/datasets"
	"boardgamestats/internal/audit"
	"boardgamestats/internal/blob"
	"boardgamestats/internal/config"
	"boardgamestats/internal/core"
	"boardgamestats/internal/dashboard"
	"boardgamestats/internal/loader"
	"boardgamestats/internal/logging"
	"boardgamestats/internal/persistence"
	"boardgamestats/pkg/domain"
	"boardgamestats/plugins/boardgames"
)

const shutdownTimeout = 10 * time.Second

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.FromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "configuration: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("bgstats-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address")
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "path to the board-game CSV")
	fs.StringVar(&cfg.DataBlobKey, "data-blob", cfg.DataBlobKey, "blob key of the CSV; overrides -data")
	tracePath := fs.String("trace", "", "append JSON trace spans to this file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := logging.Init(cfg.Logging()); err != nil {
		_, _ = fmt.Fprintf(stderr, "configuration: %v\n", err)
		return 2
	}
	defer func() { _ = logging.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, *tracePath, stdout); err != nil {
		logging.GetLogger().Error("server stopped", "error", err)
		_, _ = fmt.Fprintf(stderr, "bgstats-server: %v\n", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, tracePath string, stdout io.Writer) error {
	store, err := blob.Open(ctx)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	table, err := loadTable(ctx, cfg, store)
	if err != nil {
		return err
	}
	auditStore, err := persistence.OpenAuditStore(ctx)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer func() { _ = auditStore.Close() }()

	var tracer core.Tracer
	if tracePath != "" {
		f, err := os.OpenFile(tracePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer func() { _ = f.Close() }()
		tracer = core.NewSpanLog(f)
	}

	app, err := newApp(appDeps{
		Table:        table,
		Blob:         store,
		Audit:        auditStore,
		Tracer:       tracer,
		RunCacheSize: cfg.RunCacheSize,
		ExpvarName:   "bgstats",
	})
	if err != nil {
		return err
	}
	app.worker.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logging.WithComponent("server").Info("listening", "addr", cfg.HTTPAddr, "rows", table.Len(),
		"blob_driver", string(store.Driver()), "audit_driver", auditStore.Driver())
	_, _ = fmt.Fprintf(stdout, "bgstats-server listening on %s\n", cfg.HTTPAddr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return app.worker.Stop(shutdownCtx)
}

func loadTable(ctx context.Context, cfg config.Config, store blob.Store) (*domain.Table, error) {
	opts := loader.Options{NullPolicy: cfg.NullPolicy}
	if cfg.DataBlobKey != "" {
		return loader.LoadBlob(ctx, store, cfg.DataBlobKey, opts)
	}
	return loader.LoadFile(cfg.DataPath, opts)
}

type appDeps struct {
	Table        *domain.Table
	Blob         blob.Store
	Audit        audit.Store
	Tracer       core.Tracer
	RunCacheSize int
	ExpvarName   string
}

type app struct {
	service *core.Service
	worker  *datasets.Worker
	handler http.Handler
}

// newApp wires the service, export worker and routes. The worker is not
// started.
func newApp(deps appDeps) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	promRecorder, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	metrics := core.MultiMetricsRecorder{promRecorder, core.NewRunStats(deps.ExpvarName)}

	svc, err := core.NewService(deps.Table,
		core.WithMetricsRecorder(metrics),
		core.WithTracer(deps.Tracer),
		core.WithRunCacheSize(deps.RunCacheSize),
	)
	if err != nil {
		return nil, err
	}
	if _, err := svc.InstallPlugin(boardgames.New()); err != nil {
		return nil, fmt.Errorf("install plugin: %w", err)
	}

	objects := datasets.NewBlobObjectStore(deps.Blob, 0)
	worker := datasets.NewWorker(svc, objects, deps.Audit)

	api := datasets.NewHandler(svc)
	api.Exports = worker
	api.Store = objects

	mux := http.NewServeMux()
	mux.Handle("/api/v1/datasets/", api)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("GET /debug/vars", expvar.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/", dashboard.NewHandler(svc))

	return &app{service: svc, worker: worker, handler: mux}, nil
}
