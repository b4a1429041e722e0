package charts

import (
	"math"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"boardgamestats/pkg/datasetapi"
)

// histogramUpper is the column holding each bin's upper edge.
const histogramUpper = "upper"

type bar struct {
	x0, x1, h float64
}

// barOutline turns bars into one stepped line that returns to zero between
// bars, so a filled series draws them as rectangles.
func barOutline(bars []bar) ([]float64, []float64) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].x0 < bars[j].x0 })
	xs := make([]float64, 0, 4*len(bars))
	ys := make([]float64, 0, 4*len(bars))
	for _, b := range bars {
		xs = append(xs, b.x0, b.x0, b.x1, b.x1)
		ys = append(ys, 0, b.h, b.h, 0)
	}
	return xs, ys
}

func barStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 1,
		FillColor:   col.WithAlpha(200),
	}
}

func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    col,
	}
}

func histogramChart(spec Spec, res datasetapi.RunResult) (*chart.Chart, error) {
	var bars []bar
	lo, hi, top := math.Inf(1), math.Inf(-1), 0.0
	for _, row := range res.Rows {
		x0, ok0 := number(row[spec.X])
		x1, ok1 := number(row[histogramUpper])
		h, okH := number(row[spec.Y])
		if !ok0 || !ok1 || !okH {
			continue
		}
		bars = append(bars, bar{x0: x0, x1: x1, h: h})
		lo, hi, top = math.Min(lo, x0), math.Max(hi, x1), math.Max(top, h)
	}
	if len(bars) == 0 {
		return nil, errNoData
	}
	if top == 0 {
		top = 1
	}
	xs, ys := barOutline(bars)
	return &chart.Chart{
		Title:      spec.Title,
		Background: background(),
		XAxis:      chart.XAxis{Name: spec.XLabel, Range: axisRange(lo, hi, 0.02), ValueFormatter: decimalFormatter},
		YAxis:      chart.YAxis{Name: spec.YLabel, Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1}, ValueFormatter: integerFormatter},
		Series: []chart.Series{chart.ContinuousSeries{
			Name:    spec.YLabel,
			XValues: xs,
			YValues: ys,
			Style:   barStyle(chart.ColorBlue),
		}},
	}, nil
}

type point struct {
	x, y float64
}

type pointGroup struct {
	name   string
	xs, ys []float64
}

// groupPoints splits plottable rows by the series column, keeping first
// appearance order.
func groupPoints(rows []map[string]any, x, y, series string) []*pointGroup {
	var order []*pointGroup
	byName := map[string]*pointGroup{}
	for _, row := range rows {
		xv, okX := number(row[x])
		yv, okY := number(row[y])
		if !okX || !okY {
			continue
		}
		name := ""
		if series != "" {
			name = label(row[series])
		}
		g, ok := byName[name]
		if !ok {
			g = &pointGroup{name: name}
			byName[name] = g
			order = append(order, g)
		}
		g.xs = append(g.xs, xv)
		g.ys = append(g.ys, yv)
	}
	return order
}

func extent(groups []*pointGroup) (xlo, xhi, ylo, yhi float64) {
	xlo, ylo = math.Inf(1), math.Inf(1)
	xhi, yhi = math.Inf(-1), math.Inf(-1)
	for _, g := range groups {
		for i := range g.xs {
			xlo, xhi = math.Min(xlo, g.xs[i]), math.Max(xhi, g.xs[i])
			ylo, yhi = math.Min(ylo, g.ys[i]), math.Max(yhi, g.ys[i])
		}
	}
	return xlo, xhi, ylo, yhi
}

func scatterChart(spec Spec, res datasetapi.RunResult) (*chart.Chart, error) {
	groups := groupPoints(res.Rows, spec.X, spec.Y, spec.Series)
	if len(groups) == 0 {
		return nil, errNoData
	}
	xlo, xhi, ylo, yhi := extent(groups)
	series := make([]chart.Series, 0, len(groups))
	for i, g := range groups {
		series = append(series, chart.ContinuousSeries{
			Name:    g.name,
			XValues: g.xs,
			YValues: g.ys,
			Style:   pointStyle(chart.GetDefaultColor(i)),
		})
	}
	ch := &chart.Chart{
		Title:      spec.Title,
		Background: background(),
		XAxis:      chart.XAxis{Name: spec.XLabel, Range: axisRange(xlo, xhi, 0.03), ValueFormatter: integerFormatter},
		YAxis:      chart.YAxis{Name: spec.YLabel, Range: axisRange(ylo, yhi, 0.05), ValueFormatter: decimalFormatter},
		Series:     series,
	}
	if spec.Series != "" {
		withLegend(ch)
	}
	return ch, nil
}

// groupedBarChart draws one bar per series value inside each integer x slot.
func groupedBarChart(spec Spec, res datasetapi.RunResult) (*chart.Chart, error) {
	groups := groupPoints(res.Rows, spec.X, spec.Y, spec.Series)
	if len(groups) == 0 {
		return nil, errNoData
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].name < groups[j].name })
	xlo, xhi, _, yhi := extent(groups)
	if yhi <= 0 {
		yhi = 1
	}
	const slotWidth = 0.8
	slot := slotWidth / float64(len(groups))
	series := make([]chart.Series, 0, len(groups))
	for i, g := range groups {
		bars := make([]bar, len(g.xs))
		for j := range g.xs {
			x0 := g.xs[j] - slotWidth/2 + float64(i)*slot
			bars[j] = bar{x0: x0, x1: x0 + slot*0.9, h: g.ys[j]}
		}
		xs, ys := barOutline(bars)
		series = append(series, chart.ContinuousSeries{
			Name:    g.name,
			XValues: xs,
			YValues: ys,
			Style:   barStyle(chart.GetDefaultColor(i)),
		})
	}
	var ticks []chart.Tick
	for x := math.Ceil(xlo); x <= xhi; x++ {
		ticks = append(ticks, chart.Tick{Value: x, Label: integerFormatter(x)})
	}
	ch := &chart.Chart{
		Title:      spec.Title,
		Background: background(),
		XAxis:      chart.XAxis{Name: spec.XLabel, Range: &chart.ContinuousRange{Min: xlo - 0.5, Max: xhi + 0.5}, Ticks: ticks},
		YAxis:      chart.YAxis{Name: spec.YLabel, Range: &chart.ContinuousRange{Min: 0, Max: yhi * 1.1}, ValueFormatter: decimalFormatter},
		Series:     series,
	}
	withLegend(ch)
	return ch, nil
}

// regressionChart plots the per-x points, outliers in red, and the fitted
// line from the Fit column.
func regressionChart(spec Spec, res datasetapi.RunResult) (*chart.Chart, error) {
	var (
		inXs, inYs, outXs, outYs []float64
		fit                      []point
	)
	for _, row := range res.Rows {
		x, okX := number(row[spec.X])
		y, okY := number(row[spec.Y])
		if !okX || !okY {
			continue
		}
		if outlier, _ := row["outlier"].(bool); outlier {
			outXs, outYs = append(outXs, x), append(outYs, y)
		} else {
			inXs, inYs = append(inXs, x), append(inYs, y)
		}
		if spec.Fit != "" {
			if f, ok := number(row[spec.Fit]); ok {
				fit = append(fit, point{x: x, y: f})
			}
		}
	}
	groups := []*pointGroup{{xs: inXs, ys: inYs}, {xs: outXs, ys: outYs}}
	if len(inXs)+len(outXs) == 0 {
		return nil, errNoData
	}
	xlo, xhi, ylo, yhi := extent(groups)
	var series []chart.Series
	if len(inXs) > 0 {
		series = append(series, chart.ContinuousSeries{Name: "Jahresmittel", XValues: inXs, YValues: inYs, Style: pointStyle(chart.ColorBlue)})
	}
	if len(outXs) > 0 {
		series = append(series, chart.ContinuousSeries{Name: "Ausreißer", XValues: outXs, YValues: outYs, Style: pointStyle(chart.ColorOrange)})
	}
	if len(fit) > 1 {
		sort.Slice(fit, func(i, j int) bool { return fit[i].x < fit[j].x })
		first, last := fit[0], fit[len(fit)-1]
		series = append(series, chart.ContinuousSeries{
			Name:    "Trend",
			XValues: []float64{first.x, last.x},
			YValues: []float64{first.y, last.y},
			Style:   chart.Style{StrokeColor: chart.ColorRed, StrokeWidth: 2},
		})
		ylo = math.Min(ylo, math.Min(first.y, last.y))
		yhi = math.Max(yhi, math.Max(first.y, last.y))
	}
	ch := &chart.Chart{
		Title:      spec.Title,
		Background: background(),
		XAxis:      chart.XAxis{Name: spec.XLabel, Range: axisRange(xlo, xhi, 0.03), ValueFormatter: integerFormatter},
		YAxis:      chart.YAxis{Name: spec.YLabel, Range: axisRange(ylo, yhi, 0.05), ValueFormatter: integerFormatter},
		Series:     series,
	}
	withLegend(ch)
	return ch, nil
}
