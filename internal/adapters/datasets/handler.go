// Package datasets exposes dataset templates over HTTP and runs export jobs
// that materialise results into the object store.
package datasets

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"boardgamestats/internal/core"
	"boardgamestats/pkg/datasetapi"
)

// Catalog exposes dataset templates for HTTP handlers.
type Catalog interface {
	DatasetTemplates() []core.DatasetTemplateDescriptor
	ResolveDatasetTemplate(slug string) (core.DatasetTemplate, bool)
}

// Handler provides HTTP access to dataset templates and exports.
type Handler struct {
	Catalog Catalog
	Exports ExportScheduler
	Store   ObjectStore
}

// NewHandler constructs a dataset HTTP handler.
func NewHandler(c Catalog) *Handler {
	return &Handler{Catalog: c}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		writeError(w, http.StatusInternalServerError, "dataset catalog not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodGet && path == "/api/v1/datasets/templates":
		h.handleListTemplates(w, r)
		return
	case strings.HasPrefix(path, "/api/v1/datasets/exports"):
		if h.Exports == nil {
			http.NotFound(w, r)
			return
		}
		h.handleExports(w, r, path)
		return
	case strings.HasPrefix(path, "/api/v1/datasets/templates/"):
		h.handleTemplate(w, r, strings.TrimPrefix(path, "/api/v1/datasets/templates/"))
		return
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	templates := h.Catalog.DatasetTemplates()
	datasetapi.SortTemplateDescriptors(templates)
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (h *Handler) handleTemplate(w http.ResponseWriter, r *http.Request, remainder string) {
	segments := strings.Split(remainder, "/")
	if len(segments) < 3 {
		writeError(w, http.StatusNotFound, "dataset template not found")
		return
	}
	slug := datasetapi.Slug(segments[0], segments[1], segments[2])

	template, ok := h.Catalog.ResolveDatasetTemplate(slug)
	if !ok {
		writeError(w, http.StatusNotFound, "dataset template not found")
		return
	}

	if len(segments) == 3 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"template": template.Descriptor()})
		return
	}

	if len(segments) != 4 {
		writeError(w, http.StatusNotFound, "dataset endpoint not found")
		return
	}

	switch segments[3] {
	case "validate":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleValidate(w, r, template)
	case "run":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleRun(w, r, template)
	default:
		writeError(w, http.StatusNotFound, "dataset endpoint not found")
	}
}

func (h *Handler) handleExports(w http.ResponseWriter, r *http.Request, path string) {
	if path == "/api/v1/datasets/exports" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleExportCreate(w, r)
		return
	}

	if !strings.HasPrefix(path, "/api/v1/datasets/exports/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, format, download := strings.Cut(strings.TrimPrefix(path, "/api/v1/datasets/exports/"), "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	record, ok := h.Exports.GetExport(id)
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	if download {
		h.handleArtifactDownload(w, r, record, format)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

// handleArtifactDownload streams the stored artifact of one format.
func (h *Handler) handleArtifactDownload(w http.ResponseWriter, r *http.Request, record ExportRecord, format string) {
	if h.Store == nil {
		http.NotFound(w, r)
		return
	}
	if record.Status != ExportStatusSucceeded {
		writeError(w, http.StatusConflict, "export not complete")
		return
	}
	for _, artifact := range record.Artifacts {
		if string(artifact.Format) != format {
			continue
		}
		stored, payload, err := h.Store.Get(r.Context(), artifact.ID)
		if err != nil {
			writeError(w, http.StatusNotFound, "artifact not found")
			return
		}
		w.Header().Set("Content-Type", firstNonEmpty(stored.ContentType, artifact.ContentType))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.%s\"", record.Template.Key, extension(artifact.Format)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
		return
	}
	writeError(w, http.StatusNotFound, "artifact not found")
}

type validationRequest struct {
	Parameters map[string]any `json:"parameters"`
}

type validationResponse struct {
	Template   core.DatasetTemplateDescriptor `json:"template"`
	Valid      bool                           `json:"valid"`
	Parameters map[string]any                 `json:"parameters"`
	Errors     []core.DatasetParameterError   `json:"errors,omitempty"`
}

const emptyBodySentinel = "EOF"

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request, template core.DatasetTemplate) {
	var req validationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid validation request payload")
		return
	}
	cleaned, errs := template.ValidateParameters(req.Parameters)
	writeJSON(w, http.StatusOK, validationResponse{
		Template:   template.Descriptor(),
		Valid:      len(errs) == 0,
		Parameters: cleaned,
		Errors:     errs,
	})
}

type scopeRequest struct {
	Requestor string `json:"requestor"`
}

type runRequest struct {
	Parameters map[string]any `json:"parameters"`
	Scope      scopeRequest   `json:"scope"`
}

type runResponse struct {
	Template   core.DatasetTemplateDescriptor `json:"template"`
	Scope      core.DatasetScope              `json:"scope"`
	Parameters map[string]any                 `json:"parameters"`
	Result     core.DatasetRunResult          `json:"result"`
}

type exportRequest struct {
	Template struct {
		Slug    string `json:"slug"`
		Plugin  string `json:"plugin"`
		Key     string `json:"key"`
		Version string `json:"version"`
	} `json:"template"`
	Parameters  map[string]any `json:"parameters"`
	Formats     []string       `json:"formats"`
	Scope       scopeRequest   `json:"scope"`
	RequestedBy string         `json:"requested_by"`
	Reason      string         `json:"reason"`
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil && err.Error() != emptyBodySentinel {
		return err
	}
	return nil
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request, template core.DatasetTemplate) {
	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid run request payload")
		return
	}

	scope := core.DatasetScope{Requestor: req.Scope.Requestor}

	cleaned, errs := template.ValidateParameters(req.Parameters)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Template:   template.Descriptor(),
			Valid:      false,
			Parameters: cleaned,
			Errors:     errs,
		})
		return
	}

	format := negotiateFormat(r, template.OutputFormats)
	if format == "" {
		writeError(w, http.StatusNotAcceptable, "requested format not supported")
		return
	}

	result, paramErrs, err := template.Run(r.Context(), cleaned, scope, format)
	var queryErr *datasetapi.QueryError
	if errors.As(err, &queryErr) {
		writeError(w, http.StatusBadRequest, queryErr.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(paramErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Template:   template.Descriptor(),
			Valid:      false,
			Parameters: cleaned,
			Errors:     paramErrs,
		})
		return
	}

	switch format {
	case datasetapi.FormatCSV:
		streamCSV(w, template, result)
	default:
		writeJSON(w, http.StatusOK, runResponse{
			Template:   template.Descriptor(),
			Scope:      scope,
			Parameters: cleaned,
			Result:     result,
		})
	}
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}

	slug := strings.TrimSpace(req.Template.Slug)
	if slug == "" {
		if req.Template.Plugin == "" || req.Template.Key == "" || req.Template.Version == "" {
			writeError(w, http.StatusBadRequest, "template slug or plugin/key/version required")
			return
		}
		slug = datasetapi.Slug(req.Template.Plugin, req.Template.Key, req.Template.Version)
	}

	formats := make([]core.DatasetFormat, 0, len(req.Formats))
	for _, f := range req.Formats {
		format, ok := datasetapi.ParseFormat(strings.TrimSpace(f))
		if !ok {
			writeError(w, http.StatusBadRequest, "unsupported export format")
			return
		}
		formats = append(formats, format)
	}

	scope := core.DatasetScope{Requestor: req.Scope.Requestor}
	record, err := h.Exports.EnqueueExport(r.Context(), ExportInput{
		TemplateSlug: slug,
		Parameters:   req.Parameters,
		Formats:      formats,
		Scope:        scope,
		RequestedBy:  firstNonEmpty(req.RequestedBy, req.Scope.Requestor),
		Reason:       req.Reason,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func negotiateFormat(r *http.Request, supported []core.DatasetFormat) core.DatasetFormat {
	wanted := strings.ToLower(r.URL.Query().Get("format"))
	if wanted == "" {
		accept := r.Header.Get("Accept")
		if strings.Contains(accept, "text/csv") {
			wanted = string(datasetapi.FormatCSV)
		} else {
			wanted = string(datasetapi.FormatJSON)
		}
	}
	switch core.DatasetFormat(wanted) {
	case datasetapi.FormatCSV, datasetapi.FormatJSON:
		for _, candidate := range supported {
			if string(candidate) == wanted {
				return candidate
			}
		}
	}
	return ""
}

func streamCSV(w http.ResponseWriter, template core.DatasetTemplate, result core.DatasetRunResult) {
	descriptor := template.Descriptor()
	filename := fmt.Sprintf("%s-%s.csv", descriptor.Key, time.Now().UTC().Format("20060102T150405Z"))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	writer := csv.NewWriter(w)
	defer writer.Flush()
	_ = writeCSV(writer, resultColumns(template, result), result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
