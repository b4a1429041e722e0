package analysis

import (
	"sort"

	"boardgamestats/pkg/domain"
)

// OutlierIQRFactor scales the interquartile range of the year axis into the
// Tukey fences used to flag outlying years.
const OutlierIQRFactor = 3.0

// TrendOptions controls PlaytimeTrend.
type TrendOptions struct {
	ExcludeOutliers bool `json:"exclude_outliers"`
}

// TrendPoint is the mean playtime of one publication year.
type TrendPoint struct {
	Year         int     `json:"year"`
	Rows         int     `json:"rows"`
	MeanPlaytime float64 `json:"mean_playtime"`
	Outlier      bool    `json:"outlier"`
}

// PlaytimeTrendResult carries every yearly point, the fitted line and the
// fences used for outlier flags.
type PlaytimeTrendResult struct {
	Points           []TrendPoint         `json:"points"`
	Fit              LinearFit            `json:"fit"`
	LowerFence       domain.OptionalFloat `json:"lower_fence"`
	UpperFence       domain.OptionalFloat `json:"upper_fence"`
	ExcludedOutliers bool                 `json:"excluded_outliers"`
}

// PlaytimeTrend averages playtime per year and fits a line through the
// (year, mean) pairs. Outlying years are flagged but kept in the fit unless
// opts.ExcludeOutliers is set.
func PlaytimeTrend(t *domain.Table, opts TrendOptions) PlaytimeTrendResult {
	sums := map[int]*[2]float64{}
	t.Each(func(_ int, r domain.Record) bool {
		if !r.YearPublished.Valid || !r.MfgPlaytime.Valid {
			return true
		}
		acc, ok := sums[r.YearPublished.Int]
		if !ok {
			acc = &[2]float64{}
			sums[r.YearPublished.Int] = acc
		}
		acc[0] += r.MfgPlaytime.Float
		acc[1]++
		return true
	})
	points := make([]TrendPoint, 0, len(sums))
	for year, acc := range sums {
		points = append(points, TrendPoint{Year: year, Rows: int(acc[1]), MeanPlaytime: acc[0] / acc[1]})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Year < points[j].Year })

	res := PlaytimeTrendResult{Points: points, ExcludedOutliers: opts.ExcludeOutliers}
	if len(points) > 0 {
		years := make([]float64, len(points))
		for i, p := range points {
			years[i] = float64(p.Year)
		}
		q1, q3 := quantile(years, 0.25), quantile(years, 0.75)
		iqr := q3 - q1
		lower, upper := q1-OutlierIQRFactor*iqr, q3+OutlierIQRFactor*iqr
		res.LowerFence, res.UpperFence = domain.Some(lower), domain.Some(upper)
		for i := range points {
			y := float64(points[i].Year)
			points[i].Outlier = y < lower || y > upper
		}
	}

	var xs, ys []float64
	for _, p := range points {
		if opts.ExcludeOutliers && p.Outlier {
			continue
		}
		xs = append(xs, float64(p.Year))
		ys = append(ys, p.MeanPlaytime)
	}
	res.Fit = FitOLS(xs, ys)
	return res
}
