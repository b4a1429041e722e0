package datasetapi

import "strconv"

// Well-known Metadata.Annotations keys read by the dashboard and the chart
// renderer.
const (
	AnnotationSection   = "section"
	AnnotationOrder     = "order"
	AnnotationAnchor    = "anchor"
	AnnotationNavLabel  = "nav_label"
	AnnotationHeading   = "heading"
	AnnotationNarrative = "narrative"
	AnnotationControl   = "control"

	AnnotationChartKind   = "chart.kind"
	AnnotationChartX      = "chart.x"
	AnnotationChartY      = "chart.y"
	AnnotationChartSeries = "chart.series"
	AnnotationChartFit    = "chart.fit"
	AnnotationXLabel      = "chart.x_label"
	AnnotationYLabel      = "chart.y_label"
	AnnotationLegendTitle = "chart.legend_title"
)

// Chart kinds understood by the renderer.
const (
	ChartHistogram  = "histogram"
	ChartTable      = "table"
	ChartScatter    = "scatter"
	ChartGroupedBar = "grouped_bar"
	ChartViolin     = "violin"
	ChartRegression = "regression"
)

// AnnotationInt parses an integer annotation, returning def when absent or
// malformed.
func (m Metadata) AnnotationInt(key string, def int) int {
	if v, err := strconv.Atoi(m.Annotations[key]); err == nil {
		return v
	}
	return def
}
