package datasets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"boardgamestats/internal/audit"
	"boardgamestats/internal/core"
	"boardgamestats/internal/logging"
	"boardgamestats/pkg/datasetapi"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ActionDatasetExport is the audit action recorded for every export step.
const ActionDatasetExport = "dataset_export"

// DefaultQueueSize bounds the number of pending exports.
const DefaultQueueSize = 32

var errQueueFull = errors.New("export queue full")

// ExportArtifact captures a stored dataset artifact.
type ExportArtifact struct {
	ID          string             `json:"id"`
	Format      core.DatasetFormat `json:"format"`
	ContentType string             `json:"content_type"`
	SizeBytes   int64              `json:"size_bytes"`
	SizeHuman   string             `json:"size_human,omitempty"`
	URL         string             `json:"url"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// ExportRecord tracks an export request and resulting artifacts.
type ExportRecord struct {
	ID          string                         `json:"id"`
	Template    core.DatasetTemplateDescriptor `json:"template"`
	Scope       core.DatasetScope              `json:"scope"`
	Parameters  map[string]any                 `json:"parameters"`
	Formats     []core.DatasetFormat           `json:"formats"`
	Status      ExportStatus                   `json:"status"`
	Error       string                         `json:"error,omitempty"`
	Artifacts   []ExportArtifact               `json:"artifacts,omitempty"`
	RequestedBy string                         `json:"requested_by"`
	Reason      string                         `json:"reason,omitempty"`
	CreatedAt   time.Time                      `json:"created_at"`
	UpdatedAt   time.Time                      `json:"updated_at"`
	CompletedAt *time.Time                     `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	TemplateSlug string
	Parameters   map[string]any
	Formats      []core.DatasetFormat
	Scope        core.DatasetScope
	RequestedBy  string
	Reason       string
}

// ExportScheduler is implemented by Worker and consumed by Handler.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
}

// ObjectStore persists export artifacts.
type ObjectStore interface {
	// Put stores a new immutable object and fails if the key exists.
	Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error)
	// Get returns the artifact metadata and full payload bytes.
	Get(ctx context.Context, key string) (ExportArtifact, []byte, error)
	// Delete removes the object and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns artifacts whose IDs start with prefix.
	List(ctx context.Context, prefix string) ([]ExportArtifact, error)
}

// AuditLogger receives the export audit trail. audit.Store satisfies it.
type AuditLogger interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// WorkerOption customises a Worker.
type WorkerOption func(*Worker)

// WithQueueSize overrides DefaultQueueSize.
func WithQueueSize(size int) WorkerOption {
	return func(w *Worker) {
		if size > 0 {
			w.queueSize = size
		}
	}
}

// WithWorkerClock injects the time source used for record timestamps.
func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// Worker executes dataset exports asynchronously.
type Worker struct {
	catalog Catalog
	store   ObjectStore
	audit   AuditLogger
	logger  *slog.Logger
	now     func() time.Time

	queueSize int
	queue     chan exportTask
	mu        sync.RWMutex
	jobs      map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// NewWorker constructs an export worker. store and auditLog may be nil.
func NewWorker(c Catalog, store ObjectStore, auditLog AuditLogger, opts ...WorkerOption) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		catalog:   c,
		store:     store,
		audit:     auditLog,
		logger:    logging.WithComponent("export-worker"),
		now:       func() time.Time { return time.Now().UTC() },
		queueSize: DefaultQueueSize,
		jobs:      make(map[string]*ExportRecord),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.queue = make(chan exportTask, w.queueSize)
	return w
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport schedules an export job and returns the queued record.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.catalog == nil {
		return ExportRecord{}, fmt.Errorf("export catalog not configured")
	}

	slug := strings.TrimSpace(input.TemplateSlug)
	if slug == "" {
		return ExportRecord{}, fmt.Errorf("template slug required")
	}
	template, ok := w.catalog.ResolveDatasetTemplate(slug)
	if !ok {
		return ExportRecord{}, fmt.Errorf("dataset template %s not found", slug)
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []core.DatasetFormat{datasetapi.FormatJSON, datasetapi.FormatCSV}
	}
	uniqFormats := make([]core.DatasetFormat, 0, len(formats))
	seen := make(map[core.DatasetFormat]struct{})
	for _, format := range formats {
		if _, duplicate := seen[format]; duplicate {
			continue
		}
		if !template.SupportsFormat(format) {
			return ExportRecord{}, fmt.Errorf("format %s not supported by template", format)
		}
		uniqFormats = append(uniqFormats, format)
		seen[format] = struct{}{}
	}

	if _, errs := template.ValidateParameters(input.Parameters); len(errs) > 0 {
		return ExportRecord{}, fmt.Errorf("parameter validation failed: %v", errs[0])
	}

	id := uuid.NewString()
	now := w.now()
	record := ExportRecord{
		ID:          id,
		Template:    template.Descriptor(),
		Scope:       input.Scope,
		Parameters:  cloneMap(input.Parameters),
		Formats:     uniqFormats,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queuedSnapshot := record.copy()
	w.mu.Unlock()

	w.record(ctx, queuedSnapshot, ExportStatusQueued, nil)

	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		// The trail is append-only, so the rejection closes the queued entry.
		w.record(ctx, queuedSnapshot, ExportStatusFailed, map[string]any{"error": errQueueFull.Error()})
		return ExportRecord{}, errQueueFull
	}
	return queuedSnapshot, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	record, ok := w.GetExport(task.id)
	if !ok {
		return
	}
	logger := logging.WithExport(task.id, record.Template.Slug)

	template, ok := w.catalog.ResolveDatasetTemplate(task.input.TemplateSlug)
	if !ok {
		w.fail(task.id, fmt.Sprintf("template %s missing", task.input.TemplateSlug))
		return
	}

	w.updateStatus(task.id, ExportStatusRunning)

	cleaned, errs := template.ValidateParameters(task.input.Parameters)
	if len(errs) > 0 {
		w.fail(task.id, fmt.Sprintf("parameter validation failed: %v", errs))
		return
	}

	result, paramErrs, err := template.Run(w.ctx, cleaned, task.input.Scope, datasetapi.FormatJSON)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("dataset run failed: %v", err))
		return
	}
	if len(paramErrs) > 0 {
		w.fail(task.id, fmt.Sprintf("parameter validation failed: %v", paramErrs))
		return
	}

	artifacts := make([]ExportArtifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		rendered, err := materialize(format, template, result)
		if err != nil {
			w.fail(task.id, err.Error())
			return
		}
		artifact := ExportArtifact{
			ID:          artifactKey(task.id, template.Key, format),
			Format:      format,
			ContentType: rendered.ContentType,
			SizeBytes:   int64(len(rendered.Payload)),
			Metadata: map[string]any{
				"template": template.Slug(),
				"rows":     len(result.Rows),
			},
			CreatedAt: w.now(),
		}
		if w.store != nil {
			stored, err := w.store.Put(w.ctx, artifact.ID, rendered.Payload, artifact.ContentType, artifact.Metadata)
			if err != nil {
				w.fail(task.id, fmt.Sprintf("store artifact failed: %v", err))
				return
			}
			artifact.URL = stored.URL
			if stored.SizeBytes > 0 {
				artifact.SizeBytes = stored.SizeBytes
			}
		}
		artifact.SizeHuman = humanize.Bytes(uint64(artifact.SizeBytes))
		logger.Debug("artifact materialised", "format", format, "bytes", artifact.SizeBytes)
		artifacts = append(artifacts, artifact)
	}

	w.complete(task.id, artifacts)
	logger.Info("export complete", "artifacts", len(artifacts))
}

func artifactKey(exportID, templateKey string, format core.DatasetFormat) string {
	return fmt.Sprintf("exports/%s/%s.%s", exportID, templateKey, extension(format))
}

func (w *Worker) updateStatus(id string, status ExportStatus) {
	snapshot, ok := w.mutate(id, func(record *ExportRecord, now time.Time) {
		record.Status = status
		record.Error = ""
		record.UpdatedAt = now
	})
	if ok {
		w.record(w.ctx, snapshot, status, nil)
	}
}

func (w *Worker) complete(id string, artifacts []ExportArtifact) {
	snapshot, ok := w.mutate(id, func(record *ExportRecord, now time.Time) {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	})
	if ok {
		w.record(w.ctx, snapshot, ExportStatusSucceeded, map[string]any{"artifacts": len(artifacts)})
	}
}

func (w *Worker) fail(id, reason string) {
	snapshot, ok := w.mutate(id, func(record *ExportRecord, now time.Time) {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	})
	if ok {
		w.record(w.ctx, snapshot, ExportStatusFailed, map[string]any{"error": reason})
	}
}

func (w *Worker) mutate(id string, apply func(*ExportRecord, time.Time)) (ExportRecord, bool) {
	now := w.now()
	w.mu.Lock()
	defer w.mu.Unlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	apply(record, now)
	return record.copy(), true
}

func (w *Worker) record(ctx context.Context, record ExportRecord, status ExportStatus, metadata map[string]any) {
	if w.audit == nil {
		return
	}
	entry := audit.Entry{
		ID:         uuid.NewString(),
		Action:     ActionDatasetExport,
		Actor:      record.RequestedBy,
		Template:   record.Template.Slug,
		Status:     string(status),
		Requestor:  record.Scope.Requestor,
		Reason:     record.Reason,
		Metadata:   mergeMetadata(map[string]any{"export_id": record.ID}, metadata),
		OccurredAt: record.UpdatedAt,
	}
	if err := w.audit.Record(ctx, entry); err != nil {
		w.logger.Warn("audit record failed", "export_id", record.ID, "status", status, "error", err)
	}
}

func mergeMetadata(base map[string]any, extra map[string]any) map[string]any {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func (r ExportRecord) copy() ExportRecord {
	clone := r
	clone.Parameters = cloneMap(r.Parameters)
	clone.Formats = append([]core.DatasetFormat(nil), r.Formats...)
	if r.Artifacts != nil {
		clone.Artifacts = make([]ExportArtifact, len(r.Artifacts))
		for i, artifact := range r.Artifacts {
			artifact.Metadata = cloneMap(artifact.Metadata)
			clone.Artifacts[i] = artifact
		}
	}
	if r.CompletedAt != nil {
		completed := *r.CompletedAt
		clone.CompletedAt = &completed
	}
	return clone
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
