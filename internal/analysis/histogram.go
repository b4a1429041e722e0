package analysis

import (
	"fmt"

	"boardgamestats/pkg/domain"
)

// DefaultBins is the bin count of the rating histogram.
const DefaultBins = 30

// Bin is one histogram bucket. Buckets are half-open [Lower, Upper) except
// the last, which also holds values equal to Upper.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is the rating distribution. Total counts the binned ratings and
// Excluded the rows without a rating.
type Histogram struct {
	Bins     []Bin `json:"bins"`
	Total    int   `json:"total"`
	Excluded int   `json:"excluded"`
}

// RatingHistogram partitions the non-null ratings into bins equal-width
// buckets spanning [min, max]. A single distinct value is centred in a span
// of width one.
func RatingHistogram(t *domain.Table, bins int) (Histogram, error) {
	if bins < 1 {
		return Histogram{}, fmt.Errorf("%w: %d", ErrInvalidBins, bins)
	}
	var values []float64
	excluded := 0
	t.Each(func(_ int, r domain.Record) bool {
		if r.AvgRating.Valid {
			values = append(values, r.AvgRating.Float)
		} else {
			excluded++
		}
		return true
	})
	h := Histogram{Excluded: excluded, Bins: []Bin{}}
	if len(values) == 0 {
		return h, nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)
	h.Bins = make([]Bin, bins)
	for i := range h.Bins {
		h.Bins[i] = Bin{Lower: lo + float64(i)*width, Upper: lo + float64(i+1)*width}
	}
	h.Bins[bins-1].Upper = hi

	for _, v := range values {
		idx := int((v - lo) / (hi - lo) * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		h.Bins[idx].Count++
	}
	h.Total = len(values)
	return h, nil
}
