package analysis_test

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"boardgamestats/internal/analysis"
	"boardgamestats/internal/loader"
	"boardgamestats/pkg/domain"
)

func TestRatingHistogramCountsEveryNonNullRating(t *testing.T) {
	tbl := table(
		row{rating: 1.0}, row{rating: 2.5}, row{rating: 6.9}, row{rating: 6.9},
		row{rating: 10.0}, row{noRating: true}, row{rating: 4.2},
	)
	h, err := analysis.RatingHistogram(tbl, analysis.DefaultBins)
	if err != nil {
		t.Fatalf("histogram: %v", err)
	}
	if len(h.Bins) != 30 {
		t.Fatalf("expected 30 bins, got %d", len(h.Bins))
	}
	sum := 0
	for _, b := range h.Bins {
		sum += b.Count
	}
	if sum != 6 || h.Total != 6 || h.Excluded != 1 {
		t.Fatalf("counts: sum=%d total=%d excluded=%d", sum, h.Total, h.Excluded)
	}
	if h.Bins[0].Lower != 1.0 || h.Bins[29].Upper != 10.0 {
		t.Fatalf("span should be [1, 10], got [%v, %v]", h.Bins[0].Lower, h.Bins[29].Upper)
	}
	if h.Bins[29].Count != 1 {
		t.Fatalf("maximum belongs to the closed last bin, got %d", h.Bins[29].Count)
	}
}

func TestRatingHistogramDegenerateInputs(t *testing.T) {
	if _, err := analysis.RatingHistogram(table(row{rating: 5}), 0); !errors.Is(err, analysis.ErrInvalidBins) {
		t.Fatalf("expected ErrInvalidBins, got %v", err)
	}
	h, err := analysis.RatingHistogram(table(row{rating: 7}, row{rating: 7}), 4)
	if err != nil {
		t.Fatalf("histogram: %v", err)
	}
	if h.Bins[0].Lower != 6.5 || h.Bins[3].Upper != 7.5 || h.Total != 2 {
		t.Fatalf("single value should widen to [6.5, 7.5]: %+v", h)
	}
	empty, err := analysis.RatingHistogram(table(row{noRating: true}), 30)
	if err != nil || len(empty.Bins) != 0 || empty.Excluded != 1 {
		t.Fatalf("unexpected empty histogram: %+v %v", empty, err)
	}
}

func TestCompareErasBoundaryMembership(t *testing.T) {
	tbl := table(row{rating: 5, year: 1980}, row{rating: 6, year: 1990}, row{rating: 8, year: 2016})
	got := analysis.CompareEras(tbl)
	want := []struct {
		threshold int
		side      analysis.Side
		rows      int
		mean      float64
	}{
		{1985, analysis.SideBefore, 1, 5},
		{1985, analysis.SideFrom, 2, 7},
		{2016, analysis.SideBefore, 2, 5.5},
		{2016, analysis.SideFrom, 1, 8},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d partitions, got %d", len(want), len(got))
	}
	for i, w := range want {
		g := got[i]
		if g.Threshold != w.threshold || g.Side != w.side || g.Rows != w.rows || !g.MeanRating.Valid || g.MeanRating.Value != w.mean {
			t.Fatalf("partition %d: got %+v want %+v", i, g, w)
		}
	}
}

func TestCompareErasEmptyPartitionHasNoData(t *testing.T) {
	got := analysis.CompareEras(table(row{rating: 6, year: 1990}), 3000)
	if got[1].Rows != 0 || got[1].MeanRating.Valid {
		t.Fatalf("expected empty from-side, got %+v", got[1])
	}
	if got[1].MeanRating.String() != domain.NoData {
		t.Fatalf("expected %q, got %q", domain.NoData, got[1].MeanRating.String())
	}
}

func TestSampleIsReproducible(t *testing.T) {
	tbl := population(500)
	a, err := analysis.Sample(tbl, 150, 42)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	b, err := analysis.Sample(tbl, 150, 42)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if !reflect.DeepEqual(a.Records(), b.Records()) {
		t.Fatalf("same seed and size must select identical rows")
	}
	seen := map[int]bool{}
	for _, id := range a.IDs() {
		if seen[id] {
			t.Fatalf("row %d sampled twice", id)
		}
		seen[id] = true
	}
	c, _ := analysis.Sample(tbl, 150, 7)
	if reflect.DeepEqual(a.IDs(), c.IDs()) {
		t.Fatalf("different seeds should draw different samples")
	}
	if tbl.Len() != 500 {
		t.Fatalf("sampling must not alter the table")
	}
}

func TestSampleRejectsOversizedRequests(t *testing.T) {
	if _, err := analysis.Sample(population(10), 11, 42); !errors.Is(err, analysis.ErrSampleExceedsPopulation) {
		t.Fatalf("expected ErrSampleExceedsPopulation, got %v", err)
	}
}

func TestSampledEraScatterValidatesBeforeSampling(t *testing.T) {
	spec := analysis.DefaultSampleSpec()

	spec.Size = 99
	if _, err := analysis.SampledEraScatter(population(10), spec); !errors.Is(err, analysis.ErrSampleSizeOutOfRange) {
		t.Fatalf("expected range error first, got %v", err)
	}
	spec.Size = 2001
	if _, err := analysis.SampledEraScatter(population(3000), spec); !errors.Is(err, analysis.ErrSampleSizeOutOfRange) {
		t.Fatalf("expected range error, got %v", err)
	}
	spec.Size = 200
	if _, err := analysis.SampledEraScatter(population(150), spec); !errors.Is(err, analysis.ErrSampleExceedsPopulation) {
		t.Fatalf("expected population error, got %v", err)
	}
}

func TestSampledEraScatterSplitsAndSortsYears(t *testing.T) {
	tbl := population(700)
	spec := analysis.SampleSpec{Size: 300, Seed: 42, Threshold: 2000}
	got, err := analysis.SampledEraScatter(tbl, spec)
	if err != nil {
		t.Fatalf("scatter: %v", err)
	}
	if len(got.SampleIDs) != 300 {
		t.Fatalf("expected 300 sampled ids, got %d", len(got.SampleIDs))
	}
	rows := 0
	for i, p := range got.Before {
		if p.Year >= 2000 || (i > 0 && got.Before[i-1].Year >= p.Year) {
			t.Fatalf("before side not split or sorted: %+v", got.Before)
		}
		rows += p.Rows
	}
	for i, p := range got.From {
		if p.Year < 2000 || (i > 0 && got.From[i-1].Year >= p.Year) {
			t.Fatalf("from side not split or sorted: %+v", got.From)
		}
		rows += p.Rows
	}
	if rows != 300 {
		t.Fatalf("every sampled row should land in one group, got %d", rows)
	}
	again, _ := analysis.SampledEraScatter(tbl, spec)
	if !reflect.DeepEqual(got, again) {
		t.Fatalf("scatter must be deterministic")
	}
}

func TestBestCategoryByPlayers(t *testing.T) {
	tbl := table(
		row{rating: 7.0, category: "strategy", min: 2, max: 4},
		row{rating: 8.0, category: "strategy", min: 2, max: 6},
		row{rating: 9.9, category: "misc", min: 2, max: 4},
		row{rating: 7.5, category: "party", min: 3, max: 8},
		row{rating: 7.5, category: "party", min: 3, max: 5},
		row{rating: 6.0, category: "party", min: 4, max: 10},
		row{rating: 8.0, category: "party", min: 4, max: 10},
		row{noRating: true, category: "family", min: 2, max: 4},
	)
	got := analysis.BestCategoryByPlayers(tbl)
	want := []analysis.CategoryWinner{
		{Category: "party", MinPlayers: 3, MaxPlayers: 5, MeanRating: 7.5, Candidates: 2},
		{Category: "party", MinPlayers: 4, MaxPlayers: 10, MeanRating: 7.0, Candidates: 1},
		{Category: "strategy", MinPlayers: 2, MaxPlayers: 6, MeanRating: 8.0, Candidates: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected winners:\n got %+v\nwant %+v", got, want)
	}
	for _, w := range got {
		if w.Category == domain.MiscCategory {
			t.Fatalf("misc must never appear")
		}
	}
}

func TestRatingByAgeKeepsRawValues(t *testing.T) {
	tbl := table(
		row{rating: 6, age: 12}, row{rating: 7, age: 8}, row{rating: 5, age: 12},
		row{rating: 9, age: 12}, row{noRating: true, age: 8},
	)
	got := analysis.RatingByAge(tbl)
	if len(got) != 2 || got[0].Age != 8 || got[1].Age != 12 {
		t.Fatalf("unexpected groups: %+v", got)
	}
	if !reflect.DeepEqual(got[1].Ratings, []float64{6, 5, 9}) {
		t.Fatalf("ratings must keep table order: %v", got[1].Ratings)
	}
	s := got[1].Summary
	if s.Count != 3 || s.Min.Value != 5 || s.Median.Value != 6 || s.Max.Value != 9 || s.Q1.Value != 5.5 || s.Q3.Value != 7.5 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func trendTable(withOutlier bool) *domain.Table {
	var rows []row
	for year := 1990; year < 2010; year++ {
		rows = append(rows, row{rating: 7, year: year, playtime: 60 + float64(year-1990)*2})
	}
	if withOutlier {
		rows = append(rows, row{rating: 7, year: -2200, playtime: 6000})
	}
	return table(rows...)
}

func TestPlaytimeTrendKeepsOutlierByDefault(t *testing.T) {
	with := analysis.PlaytimeTrend(trendTable(true), analysis.TrendOptions{})
	without := analysis.PlaytimeTrend(trendTable(false), analysis.TrendOptions{})
	if !with.Fit.Valid() || !without.Fit.Valid() {
		t.Fatalf("fits should be valid")
	}
	if math.Abs(without.Fit.Slope.Value-2) > 1e-9 {
		t.Fatalf("clean slope should be 2, got %v", without.Fit.Slope.Value)
	}
	if math.Abs(with.Fit.Slope.Value-without.Fit.Slope.Value) < 0.5 {
		t.Fatalf("outlier should shift the slope: %v vs %v", with.Fit.Slope.Value, without.Fit.Slope.Value)
	}
	if with.Fit.N != 21 || with.Points[0].Year != -2200 || !with.Points[0].Outlier {
		t.Fatalf("outlier must be kept and flagged: n=%d first=%+v", with.Fit.N, with.Points[0])
	}
	for _, p := range with.Points[1:] {
		if p.Outlier {
			t.Fatalf("year %d should not be flagged", p.Year)
		}
	}
}

func TestPlaytimeTrendExcludeOutliers(t *testing.T) {
	got := analysis.PlaytimeTrend(trendTable(true), analysis.TrendOptions{ExcludeOutliers: true})
	if !got.ExcludedOutliers || got.Fit.N != 20 || len(got.Points) != 21 {
		t.Fatalf("unexpected result: excluded=%v n=%d points=%d", got.ExcludedOutliers, got.Fit.N, len(got.Points))
	}
	if math.Abs(got.Fit.Slope.Value-2) > 1e-9 {
		t.Fatalf("refit slope should be 2, got %v", got.Fit.Slope.Value)
	}
}

func TestPlaytimeTrendSingleYearHasNoFit(t *testing.T) {
	got := analysis.PlaytimeTrend(table(row{year: 2000, playtime: 30}, row{year: 2000, playtime: 60}), analysis.TrendOptions{})
	if got.Fit.Valid() || got.Fit.Slope.String() != domain.NoData {
		t.Fatalf("single year must not produce a fit: %+v", got.Fit)
	}
	if len(got.Points) != 1 || got.Points[0].MeanPlaytime != 45 {
		t.Fatalf("unexpected points: %+v", got.Points)
	}
}

func TestFitOLSPerfectLine(t *testing.T) {
	fit := analysis.FitOLS([]float64{1, 2, 3}, []float64{3, 5, 7})
	if fit.Slope.Value != 2 || fit.Intercept.Value != 1 || fit.RSquared.Value != 1 || fit.N != 3 {
		t.Fatalf("unexpected fit: %+v", fit)
	}
	if v := fit.At(10); v.Value != 21 {
		t.Fatalf("At(10) = %v", v)
	}
}

func TestLoadingTwiceYieldsIdenticalOutputs(t *testing.T) {
	var b strings.Builder
	b.WriteString(",AvgRating,YearPublished,category,MinPlayers,MaxPlayers,MfgAgeRec,MfgPlaytime\n")
	cats := []string{"strategy", "party", "misc", "family"}
	for i := 0; i < 240; i++ {
		year := 1970 + i%50
		if i == 17 {
			year = -2200
		}
		b.WriteString(strings.Join([]string{
			itoa(i), ftoa(4 + float64(i%50)/10), itoa(year), cats[i%4],
			itoa(1 + i%3), itoa(3 + i%5), itoa(6 + i%8), ftoa(20 + float64(i%7)*15),
		}, ","))
		b.WriteString("\n")
	}
	load := func() *domain.Table {
		tbl, err := loader.Load(strings.NewReader(b.String()), loader.Options{})
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		return tbl
	}
	run := func(tbl *domain.Table) []any {
		h, _ := analysis.RatingHistogram(tbl, 30)
		s, err := analysis.SampledEraScatter(tbl, analysis.SampleSpec{Size: 120, Seed: 42, Threshold: 2000})
		if err != nil {
			t.Fatalf("scatter: %v", err)
		}
		return []any{
			h,
			analysis.CompareEras(tbl),
			s,
			analysis.BestCategoryByPlayers(tbl),
			analysis.RatingByAge(tbl),
			analysis.PlaytimeTrend(tbl, analysis.TrendOptions{}),
		}
	}
	first, second := run(load()), run(load())
	for i := range first {
		if !reflect.DeepEqual(first[i], second[i]) {
			t.Fatalf("query %d differs between loads", i+1)
		}
	}
}
