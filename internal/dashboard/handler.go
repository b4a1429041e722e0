package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"boardgamestats/internal/charts"
	"boardgamestats/internal/core"
	"boardgamestats/internal/logging"
	"boardgamestats/pkg/datasetapi"
	"boardgamestats/pkg/domain"
)

// Catalog exposes dataset templates to the dashboard.
type Catalog interface {
	DatasetTemplates() []core.DatasetTemplateDescriptor
	ResolveDatasetTemplate(slug string) (core.DatasetTemplate, bool)
}

// Handler serves the dashboard page and its chart images.
type Handler struct {
	catalog Catalog
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewHandler constructs the dashboard handler.
func NewHandler(c Catalog) *Handler {
	h := &Handler{catalog: c, logger: logging.WithComponent("dashboard"), mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /{$}", h.handlePage)
	h.mux.HandleFunc("GET /charts/{plugin}/{key}/{file}", h.handleChart)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// ChartPath returns the image route of a template with the given query.
func ChartPath(desc core.DatasetTemplateDescriptor, query url.Values) string {
	path := fmt.Sprintf("/charts/%s/%s/%s.png", url.PathEscape(desc.Plugin), url.PathEscape(desc.Key), url.PathEscape(desc.Version))
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path
}

func (h *Handler) handleChart(w http.ResponseWriter, r *http.Request) {
	version, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok {
		http.NotFound(w, r)
		return
	}
	slug := datasetapi.Slug(r.PathValue("plugin"), r.PathValue("key"), version)
	template, ok := h.catalog.ResolveDatasetTemplate(slug)
	if !ok {
		http.Error(w, "dataset template not found", http.StatusNotFound)
		return
	}
	params := make(map[string]any)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			params[name] = values[0]
		}
	}
	result, paramErrs, err := template.Run(r.Context(), params, datasetapi.Scope{Requestor: "dashboard"}, datasetapi.FormatPNG)
	if len(paramErrs) > 0 {
		http.Error(w, joinParameterErrors(paramErrs), http.StatusBadRequest)
		return
	}
	var queryErr *datasetapi.QueryError
	if errors.As(err, &queryErr) {
		http.Error(w, queryErr.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("chart run failed", "template", slug, "error", err)
		http.Error(w, "dataset run failed", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := charts.Render(&buf, charts.SpecFor(template.Descriptor()), result); err != nil {
		h.logger.Error("chart render failed", "template", slug, "error", err)
		http.Error(w, "chart render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	data, invalid := h.buildPage(r)
	status := http.StatusOK
	if invalid {
		status = http.StatusBadRequest
	}
	templ.Handler(Page(data), templ.WithStatus(status)).ServeHTTP(w, r)
}

type placed struct {
	desc    core.DatasetTemplateDescriptor
	section int
	order   int
}

// buildPage assembles the view model. invalid reports whether a control
// value in the query was rejected.
func (h *Handler) buildPage(r *http.Request) (PageData, bool) {
	var items []placed
	for _, desc := range h.catalog.DatasetTemplates() {
		section := desc.Metadata.AnnotationInt(datasetapi.AnnotationSection, 0)
		if section == 0 {
			continue
		}
		items = append(items, placed{desc: desc, section: section, order: desc.Metadata.AnnotationInt(datasetapi.AnnotationOrder, 1)})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].section == items[j].section {
			return items[i].order < items[j].order
		}
		return items[i].section < items[j].section
	})

	data := PageData{Title: PageTitle, Intro: PageIntro}
	invalid := false
	for _, item := range items {
		ann := item.desc.Metadata.Annotations
		if len(data.Sections) == 0 || data.Sections[len(data.Sections)-1].Number != item.section {
			data.Sections = append(data.Sections, Section{Number: item.section, Anchor: ann[datasetapi.AnnotationAnchor]})
		}
		section := &data.Sections[len(data.Sections)-1]
		if v := ann[datasetapi.AnnotationHeading]; v != "" {
			section.Heading = v
		}
		if v := ann[datasetapi.AnnotationNarrative]; v != "" {
			section.Narrative = v
		}
		if v := ann[datasetapi.AnnotationNavLabel]; v != "" {
			section.NavLabel = v
		}
		panel, bad := h.buildPanel(r, item.desc)
		invalid = invalid || bad
		section.Panels = append(section.Panels, panel)
	}
	return data, invalid
}

func (h *Handler) buildPanel(r *http.Request, desc core.DatasetTemplateDescriptor) (Panel, bool) {
	panel := Panel{Slug: desc.Slug, Title: desc.Title}
	ann := desc.Metadata.Annotations
	query := url.Values{}

	if control := ann[datasetapi.AnnotationControl]; control != "" {
		slider, raw, err := h.slider(r, desc, control)
		if err != "" {
			panel.Error = err
			return panel, true
		}
		panel.Control = slider
		if raw != "" {
			query.Set(control, raw)
		}
	}

	if ann[datasetapi.AnnotationChartKind] == datasetapi.ChartTable {
		table, err := h.runTable(r, desc)
		if err != nil {
			h.logger.Error("table run failed", "template", desc.Slug, "error", err)
			panel.Error = err.Error()
			return panel, false
		}
		panel.Table = table
		return panel, false
	}
	panel.ChartURL = ChartPath(desc, query)
	return panel, false
}

// slider builds the control for an integer parameter from its declared
// bounds and default, taking the current value from the query string.
func (h *Handler) slider(r *http.Request, desc core.DatasetTemplateDescriptor, name string) (*Slider, string, string) {
	var param *datasetapi.Parameter
	for i := range desc.Parameters {
		if desc.Parameters[i].Name == name {
			param = &desc.Parameters[i]
		}
	}
	if param == nil {
		return nil, "", ""
	}
	template, ok := h.catalog.ResolveDatasetTemplate(desc.Slug)
	if !ok {
		return nil, "", "dataset template not found"
	}
	raw := r.URL.Query().Get(name)
	supplied := map[string]any{}
	if raw != "" {
		supplied[name] = raw
	}
	cleaned, errs := template.ValidateParameters(supplied)
	if len(errs) > 0 {
		return nil, "", joinParameterErrors(errs)
	}
	s := &Slider{
		Param:  name,
		Label:  "Stichprobengröße",
		Step:   1,
		Value:  datasetapi.IntParam(cleaned, name, 0),
		Anchor: desc.Metadata.Annotations[datasetapi.AnnotationAnchor],
	}
	if param.Minimum != nil {
		s.Min = int(*param.Minimum)
	}
	if param.Maximum != nil {
		s.Max = int(*param.Maximum)
	}
	return s, raw, ""
}

func (h *Handler) runTable(r *http.Request, desc core.DatasetTemplateDescriptor) (*Table, error) {
	template, ok := h.catalog.ResolveDatasetTemplate(desc.Slug)
	if !ok {
		return nil, fmt.Errorf("dataset template %s not found", desc.Slug)
	}
	result, paramErrs, err := template.Run(r.Context(), nil, datasetapi.Scope{Requestor: "dashboard"}, datasetapi.FormatHTML)
	if err != nil {
		return nil, err
	}
	if len(paramErrs) > 0 {
		return nil, errors.New(joinParameterErrors(paramErrs))
	}
	spec := charts.SpecFor(desc)
	table := &Table{Headers: [2]string{spec.XLabel, spec.YLabel}}
	for _, row := range result.Rows {
		table.Rows = append(table.Rows, [2]string{fmt.Sprint(row[spec.X]), formatMean(row[spec.Y])})
	}
	return table, nil
}

func formatMean(v any) string {
	switch n := v.(type) {
	case domain.OptionalFloat:
		if !n.Valid {
			return domain.NoData
		}
		return strconv.FormatFloat(n.Value, 'f', 2, 64)
	case float64:
		return strconv.FormatFloat(n, 'f', 2, 64)
	case nil:
		return domain.NoData
	}
	return fmt.Sprint(v)
}

func joinParameterErrors(errs []core.DatasetParameterError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Message
	}
	return strings.Join(parts, "; ")
}
