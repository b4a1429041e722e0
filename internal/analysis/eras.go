package analysis

import "boardgamestats/pkg/domain"

// DefaultEraThresholds are the split years of the era comparison table.
var DefaultEraThresholds = []int{1985, 2016}

// Side names one half of a year partition.
type Side string

const (
	// SideBefore holds rows with year < threshold.
	SideBefore Side = "before"
	// SideFrom holds rows with year >= threshold.
	SideFrom Side = "from"
)

// EraPartition is one row of the era comparison: the mean rating of the rows
// on one side of a threshold year.
type EraPartition struct {
	Threshold  int                  `json:"threshold"`
	Side       Side                 `json:"side"`
	Rows       int                  `json:"rows"`
	MeanRating domain.OptionalFloat `json:"mean_rating"`
}

// CompareEras returns two partitions per threshold, in threshold order,
// before-side first. An empty side carries no data. Without thresholds the
// defaults apply.
func CompareEras(t *domain.Table, thresholds ...int) []EraPartition {
	if len(thresholds) == 0 {
		thresholds = DefaultEraThresholds
	}
	out := make([]EraPartition, 0, 2*len(thresholds))
	for _, threshold := range thresholds {
		var before, from []float64
		t.Each(func(_ int, r domain.Record) bool {
			if !r.YearPublished.Valid || !r.AvgRating.Valid {
				return true
			}
			if r.YearPublished.Int < threshold {
				before = append(before, r.AvgRating.Float)
			} else {
				from = append(from, r.AvgRating.Float)
			}
			return true
		})
		out = append(out,
			EraPartition{Threshold: threshold, Side: SideBefore, Rows: len(before), MeanRating: domain.Mean(before)},
			EraPartition{Threshold: threshold, Side: SideFrom, Rows: len(from), MeanRating: domain.Mean(from)},
		)
	}
	return out
}
