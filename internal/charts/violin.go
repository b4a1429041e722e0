package charts

import (
	"math"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"

	"boardgamestats/pkg/datasetapi"
)

const (
	kdeGridPoints = 48
	kdeCut        = 2
	violinWidth   = 0.4
)

type density struct {
	grid, values []float64
}

// scottBandwidth returns the normal-reference Gaussian bandwidth. Constant samples
// get a small fixed bandwidth so they still draw as a sliver.
func scottBandwidth(values []float64) float64 {
	n := float64(len(values))
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= n
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	sd := 0.0
	if n > 1 {
		sd = math.Sqrt(ss / (n - 1))
	}
	if sd == 0 {
		return 0.1
	}
	return 1.06 * sd * math.Pow(n, -0.2)
}

func kde(values []float64) density {
	h := scottBandwidth(values)
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	lo, hi = lo-kdeCut*h, hi+kdeCut*h
	step := (hi - lo) / float64(kdeGridPoints-1)
	d := density{grid: make([]float64, kdeGridPoints), values: make([]float64, kdeGridPoints)}
	norm := 1 / (float64(len(values)) * h * math.Sqrt(2*math.Pi))
	for i := range d.grid {
		y := lo + float64(i)*step
		var sum float64
		for _, v := range values {
			z := (y - v) / h
			sum += math.Exp(-0.5 * z * z)
		}
		d.grid[i] = y
		d.values[i] = sum * norm
	}
	return d
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// violinChart draws a mirrored kernel density outline per x value with a
// dot at the group median.
func violinChart(spec Spec, res datasetapi.RunResult) (*chart.Chart, error) {
	groups := map[float64][]float64{}
	for _, row := range res.Rows {
		x, okX := number(row[spec.X])
		y, okY := number(row[spec.Y])
		if okX && okY {
			groups[x] = append(groups[x], y)
		}
	}
	if len(groups) == 0 {
		return nil, errNoData
	}
	xs := make([]float64, 0, len(groups))
	for x := range groups {
		xs = append(xs, x)
	}
	sort.Float64s(xs)

	densities := make([]density, len(xs))
	peak := 0.0
	for i, x := range xs {
		densities[i] = kde(groups[x])
		for _, v := range densities[i].values {
			peak = math.Max(peak, v)
		}
	}
	scale := violinWidth / peak

	var (
		series     []chart.Series
		ticks      []chart.Tick
		medX, medY []float64
		ylo, yhi   = math.Inf(1), math.Inf(-1)
	)
	for i, x := range xs {
		d := densities[i]
		n := len(d.grid)
		outX := make([]float64, 0, 2*n+1)
		outY := make([]float64, 0, 2*n+1)
		for j := 0; j < n; j++ {
			outX = append(outX, x-d.values[j]*scale)
			outY = append(outY, d.grid[j])
		}
		for j := n - 1; j >= 0; j-- {
			outX = append(outX, x+d.values[j]*scale)
			outY = append(outY, d.grid[j])
		}
		outX = append(outX, outX[0])
		outY = append(outY, outY[0])
		series = append(series, chart.ContinuousSeries{
			XValues: outX,
			YValues: outY,
			Style:   chart.Style{StrokeColor: chart.GetDefaultColor(i), StrokeWidth: 1.5},
		})
		ylo, yhi = math.Min(ylo, d.grid[0]), math.Max(yhi, d.grid[n-1])
		medX = append(medX, x)
		medY = append(medY, median(groups[x]))
		ticks = append(ticks, chart.Tick{Value: x, Label: integerFormatter(x)})
	}
	series = append(series, chart.ContinuousSeries{
		XValues: medX,
		YValues: medY,
		Style:   pointStyle(chart.ColorBlack),
	})
	return &chart.Chart{
		Title:      spec.Title,
		Background: background(),
		XAxis:      chart.XAxis{Name: spec.XLabel, Range: &chart.ContinuousRange{Min: xs[0] - 1, Max: xs[len(xs)-1] + 1}, Ticks: ticks},
		YAxis:      chart.YAxis{Name: spec.YLabel, Range: &chart.ContinuousRange{Min: math.Floor(ylo), Max: math.Ceil(yhi)}, ValueFormatter: integerFormatter},
		Series:     series,
	}, nil
}
