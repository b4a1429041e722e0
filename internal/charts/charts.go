// Package charts renders dataset run results as PNG images. The chart kind
// and the columns to plot come from template annotations, so a result can be
// drawn without knowing which template produced it.
package charts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"

	"boardgamestats/pkg/datasetapi"
	"boardgamestats/pkg/domain"
)

// Default canvas size in pixels.
const (
	DefaultWidth  = 960
	DefaultHeight = 540
)

// ErrUnknownKind is returned for a chart kind the renderer cannot draw.
var ErrUnknownKind = errors.New("charts: unknown chart kind")

// Spec selects what to draw from a result.
type Spec struct {
	Kind        string
	Title       string
	X           string
	Y           string
	Series      string
	Fit         string
	XLabel      string
	YLabel      string
	LegendTitle string
	Width       int
	Height      int
}

// SpecFor derives a Spec from a template descriptor's annotations.
func SpecFor(desc datasetapi.TemplateDescriptor) Spec {
	ann := desc.Metadata.Annotations
	return Spec{
		Kind:        ann[datasetapi.AnnotationChartKind],
		Title:       desc.Title,
		X:           ann[datasetapi.AnnotationChartX],
		Y:           ann[datasetapi.AnnotationChartY],
		Series:      ann[datasetapi.AnnotationChartSeries],
		Fit:         ann[datasetapi.AnnotationChartFit],
		XLabel:      ann[datasetapi.AnnotationXLabel],
		YLabel:      ann[datasetapi.AnnotationYLabel],
		LegendTitle: ann[datasetapi.AnnotationLegendTitle],
	}
}

func (s Spec) size() (int, int) {
	w, h := s.Width, s.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// Render writes res as a PNG. A result without plottable rows renders a
// placeholder image rather than failing.
func Render(w io.Writer, spec Spec, res datasetapi.RunResult) error {
	if spec.Kind == datasetapi.ChartTable {
		return renderTable(w, spec, res)
	}
	var (
		ch  *chart.Chart
		err error
	)
	switch spec.Kind {
	case datasetapi.ChartHistogram:
		ch, err = histogramChart(spec, res)
	case datasetapi.ChartScatter:
		ch, err = scatterChart(spec, res)
	case datasetapi.ChartGroupedBar:
		ch, err = groupedBarChart(spec, res)
	case datasetapi.ChartViolin:
		ch, err = violinChart(spec, res)
	case datasetapi.ChartRegression:
		ch, err = regressionChart(spec, res)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
	if errors.Is(err, errNoData) {
		return renderPlaceholder(w, spec, domain.NoData)
	}
	if err != nil {
		return err
	}
	ch.Width, ch.Height = spec.size()
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("charts: render %s: %w", spec.Kind, err)
	}
	return nil
}

var errNoData = errors.New("charts: nothing to plot")

// number extracts a plottable value from a result cell. Cells may hold Go
// values straight from a runner or JSON-decoded values from an export.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case domain.OptionalFloat:
		return n.Value, n.Valid
	case domain.NullFloat:
		return n.Float, n.Valid
	case domain.NullInt:
		return float64(n.Int), n.Valid
	}
	return 0, false
}

func label(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}

// axisRange pads [lo, hi] by frac of its span and widens a degenerate span.
func axisRange(lo, hi, frac float64) *chart.ContinuousRange {
	if hi <= lo {
		lo, hi = lo-0.5, hi+0.5
	}
	pad := (hi - lo) * frac
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func integerFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}

func decimalFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.1f", f)
	}
	return ""
}

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}
}

func withLegend(ch *chart.Chart) {
	ch.Background.Padding.Left = 140
	ch.Elements = []chart.Renderable{chart.LegendLeft(ch)}
}
