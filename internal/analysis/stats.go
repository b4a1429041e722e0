package analysis

import (
	"math"
	"sort"

	"boardgamestats/pkg/domain"
)

// Summary holds five-number statistics plus the mean of a group.
type Summary struct {
	Count  int                  `json:"count"`
	Min    domain.OptionalFloat `json:"min"`
	Q1     domain.OptionalFloat `json:"q1"`
	Median domain.OptionalFloat `json:"median"`
	Q3     domain.OptionalFloat `json:"q3"`
	Max    domain.OptionalFloat `json:"max"`
	Mean   domain.OptionalFloat `json:"mean"`
}

// Summarize computes the summary of values without modifying them.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return Summary{
		Count:  len(sorted),
		Min:    domain.Some(sorted[0]),
		Q1:     domain.Some(quantile(sorted, 0.25)),
		Median: domain.Some(quantile(sorted, 0.5)),
		Q3:     domain.Some(quantile(sorted, 0.75)),
		Max:    domain.Some(sorted[len(sorted)-1]),
		Mean:   domain.Mean(sorted),
	}
}

// quantile interpolates linearly between closest ranks of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// LinearFit is an ordinary least squares line y = Slope*x + Intercept.
type LinearFit struct {
	Slope     domain.OptionalFloat `json:"slope"`
	Intercept domain.OptionalFloat `json:"intercept"`
	RSquared  domain.OptionalFloat `json:"r_squared"`
	N         int                  `json:"n"`
}

// Valid reports whether the fit is defined.
func (f LinearFit) Valid() bool { return f.Slope.Valid && f.Intercept.Valid }

// At evaluates the fitted line at x.
func (f LinearFit) At(x float64) domain.OptionalFloat {
	if !f.Valid() {
		return domain.None()
	}
	return domain.Some(f.Slope.Value*x + f.Intercept.Value)
}

// FitOLS fits a line through the points. Fewer than two distinct x values
// yield an invalid fit.
func FitOLS(xs, ys []float64) LinearFit {
	n := min(len(xs), len(ys))
	fit := LinearFit{N: n}
	if n < 2 {
		return fit
	}
	var mx, my float64
	for i := 0; i < n; i++ {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)
	var sxx, sxy, syy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-mx, ys[i]-my
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return fit
	}
	slope := sxy / sxx
	fit.Slope = domain.Some(slope)
	fit.Intercept = domain.Some(my - slope*mx)
	if syy > 0 {
		fit.RSquared = domain.Some(sxy * sxy / (sxx * syy))
	}
	return fit
}
