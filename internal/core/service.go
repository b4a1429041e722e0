// Package core hosts the dataset catalog: it installs plugins, binds their
// templates to the loaded board-game table and instruments every run.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"boardgamestats/internal/logging"
	"boardgamestats/pkg/datasetapi"
	"boardgamestats/pkg/domain"
)

// RunOperation is the metrics and tracing operation name of a template run.
const RunOperation = "dataset.run"

// Service owns the loaded table and the installed dataset templates.
type Service struct {
	table   *domain.Table
	now     func() time.Time
	metrics MetricsRecorder
	tracer  Tracer
	logger  *slog.Logger

	cacheSize int
	cache     *runCache

	mu        sync.RWMutex
	plugins   map[string]PluginMetadata
	templates map[string]DatasetTemplate
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetricsRecorder sets the recorder observing template runs.
func WithMetricsRecorder(rec MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer sets the tracer wrapping template runs.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the clock handed to binders.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRunCacheSize bounds the run cache; zero or less disables it.
func WithRunCacheSize(size int) ServiceOption {
	return func(s *Service) { s.cacheSize = size }
}

// WithLogger replaces the component logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs a service over an already loaded table.
func NewService(table *domain.Table, opts ...ServiceOption) (*Service, error) {
	if table == nil {
		return nil, errors.New("core: table required")
	}
	s := &Service{
		table:     table,
		now:       func() time.Time { return time.Now().UTC() },
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
		logger:    logging.WithComponent("core"),
		cacheSize: DefaultRunCacheSize,
		plugins:   make(map[string]PluginMetadata),
		templates: make(map[string]DatasetTemplate),
	}
	for _, opt := range opts {
		opt(s)
	}
	cache, err := newRunCache(s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("core: run cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Table returns the loaded table.
func (s *Service) Table() *domain.Table { return s.table }

// Now returns the service clock reading.
func (s *Service) Now() time.Time { return s.now() }

// InstallPlugin registers the plugin's templates and binds them to the table.
func (s *Service) InstallPlugin(plugin Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, errors.New("plugin cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plugins[plugin.Name()]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", plugin.Name())
	}

	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, fmt.Errorf("register plugin %s: %w", plugin.Name(), err)
	}

	env := datasetapi.Environment{Table: s.table, Now: s.now}
	bound := make(map[string]DatasetTemplate)
	var descriptors []DatasetTemplateDescriptor
	for _, tpl := range registry.DatasetTemplates() {
		tpl.Plugin = plugin.Name()
		if err := tpl.bind(env, s.instrument); err != nil {
			return PluginMetadata{}, fmt.Errorf("bind dataset template %s: %w", tpl.Slug(), err)
		}
		if _, exists := s.templates[tpl.Slug()]; exists {
			return PluginMetadata{}, fmt.Errorf("dataset template %s already installed", tpl.Slug())
		}
		bound[tpl.Slug()] = tpl
		descriptors = append(descriptors, tpl.Descriptor())
	}
	for slug, tpl := range bound {
		s.templates[slug] = tpl
	}
	meta := PluginMetadata{Name: plugin.Name(), Version: plugin.Version(), Datasets: descriptors}
	s.plugins[plugin.Name()] = meta
	s.logger.Info("plugin installed", "plugin", meta.Name, "version", meta.Version, "templates", len(descriptors))
	return meta, nil
}

// RegisteredPlugins returns installed plugins sorted by name.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PluginMetadata, 0, len(s.plugins))
	for _, meta := range s.plugins {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DatasetTemplates returns descriptors of every installed template in
// plugin/key/version order.
func (s *Service) DatasetTemplates() []DatasetTemplateDescriptor {
	s.mu.RLock()
	out := make([]DatasetTemplateDescriptor, 0, len(s.templates))
	for _, tpl := range s.templates {
		out = append(out, tpl.Descriptor())
	}
	s.mu.RUnlock()
	datasetapi.SortTemplateDescriptors(out)
	return out
}

// ResolveDatasetTemplate finds an installed template by slug.
func (s *Service) ResolveDatasetTemplate(slug string) (DatasetTemplate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[strings.TrimSpace(slug)]
	return tpl, ok
}

// ResolveDatasetKey finds a template by key alone when exactly one installed
// template carries it.
func (s *Service) ResolveDatasetKey(key string) (DatasetTemplate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found DatasetTemplate
	matches := 0
	for _, tpl := range s.templates {
		if tpl.Key == key {
			found = tpl
			matches++
		}
	}
	return found, matches == 1
}

// RunCacheLen reports the number of memoised results.
func (s *Service) RunCacheLen() int { return s.cache.len() }

func (s *Service) instrument(slug string, next datasetapi.Runner) datasetapi.Runner {
	log := s.logger.With("template", slug)
	return func(ctx context.Context, req datasetapi.RunRequest) (datasetapi.RunResult, error) {
		key, cacheable := s.cache.key(slug, req.Parameters)
		if cacheable {
			res, hit := s.cache.get(key)
			s.observeCache(slug, hit)
			if hit {
				log.Debug("run cache hit")
				return res, nil
			}
		}
		ctx, span := s.tracer.Start(ctx, RunOperation)
		started := time.Now()
		res, err := next(ctx, req)
		elapsed := time.Since(started)
		span.End(err)
		s.metrics.Observe(ctx, RunOperation+":"+slug, err == nil, elapsed)
		if err != nil {
			log.Warn("dataset run failed", "error", err, "duration", elapsed)
			return datasetapi.RunResult{}, err
		}
		log.Debug("dataset run", "rows", len(res.Rows), "duration", elapsed)
		if cacheable {
			s.cache.add(key, res)
		}
		return res, nil
	}
}

func (s *Service) observeCache(slug string, hit bool) {
	if co, ok := s.metrics.(CacheObserver); ok {
		co.ObserveCache(slug, hit)
	}
}
