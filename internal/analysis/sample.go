package analysis

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"boardgamestats/pkg/domain"
)

// Sample size bounds and defaults for the sampled era scatter.
const (
	MinSampleSize     = 100
	MaxSampleSize     = 2000
	DefaultSampleSize = 1000
	DefaultSeed       = 42
	DefaultSplitYear  = 2000
)

// Sample draws n rows without replacement. The same seed and n over the same
// table always select the same rows in the same order.
func Sample(t *domain.Table, n int, seed uint64) (*domain.Table, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrSampleSizeOutOfRange, n)
	}
	if n > t.Len() {
		return nil, fmt.Errorf("%w: requested %d, table has %d rows", ErrSampleExceedsPopulation, n, t.Len())
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	positions := make([]int, t.Len())
	for i := range positions {
		positions[i] = i
	}
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(positions)-i)
		positions[i], positions[j] = positions[j], positions[i]
	}
	return t.Subset(positions[:n])
}

// SampleSpec parameterises SampledEraScatter.
type SampleSpec struct {
	Size      int    `json:"size"`
	Seed      uint64 `json:"seed"`
	Threshold int    `json:"threshold"`
}

// DefaultSampleSpec returns the dashboard's initial slider state.
func DefaultSampleSpec() SampleSpec {
	return SampleSpec{Size: DefaultSampleSize, Seed: DefaultSeed, Threshold: DefaultSplitYear}
}

// Validate checks the size bounds and the population. It runs before any
// sampling work.
func (s SampleSpec) Validate(population int) error {
	if s.Size < MinSampleSize || s.Size > MaxSampleSize {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrSampleSizeOutOfRange, s.Size, MinSampleSize, MaxSampleSize)
	}
	if s.Size > population {
		return fmt.Errorf("%w: requested %d, table has %d rows", ErrSampleExceedsPopulation, s.Size, population)
	}
	return nil
}

// YearMean is the mean rating of one publication year.
type YearMean struct {
	Year       int                  `json:"year"`
	Rows       int                  `json:"rows"`
	MeanRating domain.OptionalFloat `json:"mean_rating"`
}

// EraScatter holds the per-year means of a sample split at a threshold.
type EraScatter struct {
	Spec      SampleSpec `json:"spec"`
	SampleIDs []int      `json:"sample_ids"`
	Before    []YearMean `json:"before"`
	From      []YearMean `json:"from"`
}

// SampledEraScatter samples the table, splits the sample at spec.Threshold
// and returns mean rating per year for each side, sorted by year.
func SampledEraScatter(t *domain.Table, spec SampleSpec) (EraScatter, error) {
	if err := spec.Validate(t.Len()); err != nil {
		return EraScatter{}, err
	}
	sample, err := Sample(t, spec.Size, spec.Seed)
	if err != nil {
		return EraScatter{}, err
	}
	before := map[int][]float64{}
	from := map[int][]float64{}
	sample.Each(func(_ int, r domain.Record) bool {
		if !r.YearPublished.Valid {
			return true
		}
		side := from
		if r.YearPublished.Int < spec.Threshold {
			side = before
		}
		values := side[r.YearPublished.Int]
		if r.AvgRating.Valid {
			values = append(values, r.AvgRating.Float)
		}
		side[r.YearPublished.Int] = values
		return true
	})
	return EraScatter{
		Spec:      spec,
		SampleIDs: sample.IDs(),
		Before:    yearMeans(before),
		From:      yearMeans(from),
	}, nil
}

func yearMeans(groups map[int][]float64) []YearMean {
	out := make([]YearMean, 0, len(groups))
	for year, values := range groups {
		out = append(out, YearMean{Year: year, Rows: len(values), MeanRating: domain.Mean(values)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
