package boardgames

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"boardgamestats/internal/analysis"
	"boardgamestats/pkg/datasetapi"
)

func ratingDistributionTemplate() datasetapi.Template {
	return datasetapi.Template{
		Key:         KeyRatingDistribution,
		Version:     templateVersion,
		Title:       "Verteilungen der Bewertungen",
		Description: "Histogram of average ratings over equal-width bins.",
		Dialect:     datasetapi.DialectDSL,
		Query:       "games | drop_null(AvgRating) | histogram(AvgRating, bins={{bins}})",
		Parameters: []datasetapi.Parameter{{
			Name:        "bins",
			Type:        datasetapi.TypeInteger,
			Description: "Number of equal-width bins",
			Default:     analysis.DefaultBins,
			Minimum:     datasetapi.Bound(1),
			Maximum:     datasetapi.Bound(200),
			Example:     analysis.DefaultBins,
		}},
		Columns: []datasetapi.Column{
			{Name: "bin", Type: datasetapi.TypeInteger, Description: "1-based bin index"},
			{Name: "lower", Type: datasetapi.TypeNumber, Description: "Inclusive lower edge"},
			{Name: "upper", Type: datasetapi.TypeNumber, Description: "Upper edge, inclusive for the last bin only"},
			{Name: "count", Type: datasetapi.TypeInteger},
		},
		Metadata:      questionMetadata(question1, "1", datasetapi.ChartHistogram, "lower", "count", ""),
		OutputFormats: allFormats,
		Binder: func(env datasetapi.Environment) (datasetapi.Runner, error) {
			return func(_ context.Context, req datasetapi.RunRequest) (datasetapi.RunResult, error) {
				bins := datasetapi.IntParam(req.Parameters, "bins", analysis.DefaultBins)
				hist, err := analysis.RatingHistogram(env.Table, bins)
				if err != nil {
					return datasetapi.RunResult{}, queryError(err)
				}
				rows := make([]map[string]any, 0, len(hist.Bins))
				for i, bin := range hist.Bins {
					rows = append(rows, map[string]any{
						"bin":   i + 1,
						"lower": bin.Lower,
						"upper": bin.Upper,
						"count": bin.Count,
					})
				}
				return datasetapi.RunResult{
					Rows: rows,
					Metadata: map[string]any{
						"bins":     bins,
						"total":    hist.Total,
						"excluded": hist.Excluded,
					},
					GeneratedAt: env.Now(),
				}, nil
			}, nil
		},
	}
}

func eraComparisonTemplate() datasetapi.Template {
	meta := questionMetadata(question2, "1", datasetapi.ChartTable, "label", "mean_rating", "")
	meta.Annotations[datasetapi.AnnotationXLabel] = "Jahr"
	return datasetapi.Template{
		Key:         KeyEraComparison,
		Version:     templateVersion,
		Title:       "Durchschnittliche Bewertung für ältere und neuere Spiele",
		Description: "Mean rating before and from each threshold year.",
		Dialect:     datasetapi.DialectDSL,
		Query:       "games | split(YearPublished, [{{threshold_older}}, {{threshold_newer}}]) | mean(AvgRating)",
		Parameters: []datasetapi.Parameter{
			{Name: "threshold_older", Type: datasetapi.TypeInteger, Unit: "year", Default: analysis.DefaultEraThresholds[0], Example: 1985},
			{Name: "threshold_newer", Type: datasetapi.TypeInteger, Unit: "year", Default: analysis.DefaultEraThresholds[1], Example: 2016},
		},
		Columns: []datasetapi.Column{
			{Name: "label", Type: datasetapi.TypeString, Description: "Jahr"},
			{Name: "threshold", Type: datasetapi.TypeInteger, Unit: "year"},
			{Name: "side", Type: datasetapi.TypeString, Description: "before or from the threshold"},
			{Name: "rows", Type: datasetapi.TypeInteger},
			{Name: "mean_rating", Type: datasetapi.TypeNumber, Description: "Durchschnittliche Bewertung", Format: "%.2f"},
		},
		Metadata:      meta,
		OutputFormats: allFormats,
		Binder: func(env datasetapi.Environment) (datasetapi.Runner, error) {
			return func(_ context.Context, req datasetapi.RunRequest) (datasetapi.RunResult, error) {
				older := datasetapi.IntParam(req.Parameters, "threshold_older", analysis.DefaultEraThresholds[0])
				newer := datasetapi.IntParam(req.Parameters, "threshold_newer", analysis.DefaultEraThresholds[1])
				parts := analysis.CompareEras(env.Table, older, newer)
				rows := make([]map[string]any, 0, len(parts))
				for _, p := range parts {
					rows = append(rows, map[string]any{
						"label":       eraLabel(p.Side, p.Threshold),
						"threshold":   p.Threshold,
						"side":        string(p.Side),
						"rows":        p.Rows,
						"mean_rating": p.MeanRating,
					})
				}
				return datasetapi.RunResult{Rows: rows, GeneratedAt: env.Now()}, nil
			}, nil
		},
	}
}

func eraScatterTemplate() datasetapi.Template {
	meta := questionMetadata(question2, "2", datasetapi.ChartScatter, "year", "mean_rating", "era")
	meta.Annotations[datasetapi.AnnotationControl] = "sample_size"
	return datasetapi.Template{
		Key:         KeyEraScatter,
		Version:     templateVersion,
		Title:       "Durchschnittliche Bewertung nach Jahr (Stichprobe)",
		Description: "Per-year mean rating of a seeded random sample, split at a threshold year.",
		Dialect:     datasetapi.DialectDSL,
		Query:       "games | sample({{sample_size}}, seed={{seed}}) | split(YearPublished, {{threshold}}) | group(YearPublished) | mean(AvgRating)",
		Parameters: []datasetapi.Parameter{
			{
				Name:        "sample_size",
				Type:        datasetapi.TypeInteger,
				Description: "Rows drawn without replacement",
				Default:     analysis.DefaultSampleSize,
				Minimum:     datasetapi.Bound(analysis.MinSampleSize),
				Maximum:     datasetapi.Bound(analysis.MaxSampleSize),
				Example:     analysis.DefaultSampleSize,
			},
			{Name: "seed", Type: datasetapi.TypeInteger, Default: analysis.DefaultSeed, Minimum: datasetapi.Bound(0)},
			{Name: "threshold", Type: datasetapi.TypeInteger, Unit: "year", Default: analysis.DefaultSplitYear},
		},
		Columns: []datasetapi.Column{
			{Name: "era", Type: datasetapi.TypeString},
			{Name: "year", Type: datasetapi.TypeInteger, Unit: "year"},
			{Name: "rows", Type: datasetapi.TypeInteger},
			{Name: "mean_rating", Type: datasetapi.TypeNumber, Format: "%.2f"},
		},
		Metadata:      meta,
		OutputFormats: allFormats,
		Binder: func(env datasetapi.Environment) (datasetapi.Runner, error) {
			return func(_ context.Context, req datasetapi.RunRequest) (datasetapi.RunResult, error) {
				spec := analysis.SampleSpec{
					Size:      datasetapi.IntParam(req.Parameters, "sample_size", analysis.DefaultSampleSize),
					Seed:      uint64(datasetapi.IntParam(req.Parameters, "seed", analysis.DefaultSeed)),
					Threshold: datasetapi.IntParam(req.Parameters, "threshold", analysis.DefaultSplitYear),
				}
				scatter, err := analysis.SampledEraScatter(env.Table, spec)
				if err != nil {
					return datasetapi.RunResult{}, queryError(err)
				}
				rows := make([]map[string]any, 0, len(scatter.Before)+len(scatter.From))
				appendEra := func(side analysis.Side, means []analysis.YearMean) {
					label := scatterLabel(side, spec.Threshold)
					for _, m := range means {
						rows = append(rows, map[string]any{
							"era":         label,
							"year":        m.Year,
							"rows":        m.Rows,
							"mean_rating": m.MeanRating,
						})
					}
				}
				appendEra(analysis.SideBefore, scatter.Before)
				appendEra(analysis.SideFrom, scatter.From)
				return datasetapi.RunResult{
					Rows: rows,
					Metadata: map[string]any{
						"sample_size": spec.Size,
						"seed":        spec.Seed,
						"threshold":   spec.Threshold,
						"sample_ids":  scatter.SampleIDs,
					},
					GeneratedAt: env.Now(),
				}, nil
			}, nil
		},
	}
}

func categoryWinnersTemplate() datasetapi.Template {
	meta := questionMetadata(question3, "1", datasetapi.ChartGroupedBar, "min_players", "mean_rating", "category")
	meta.Annotations[datasetapi.AnnotationLegendTitle] = "Kategorie"
	return datasetapi.Template{
		Key:         KeyCategoryWinners,
		Version:     templateVersion,
		Title:       "Durchschnittliche Bewertung für Spielkategorien nach Spieleranzahl",
		Description: "Best-rated player range per category and minimum player count, excluding misc.",
		Dialect:     datasetapi.DialectDSL,
		Query:       "games | where(category != \"misc\") | group(category, MinPlayers, MaxPlayers) | mean(AvgRating) | argmax(category, MinPlayers)",
		Columns: []datasetapi.Column{
			{Name: "category", Type: datasetapi.TypeString},
			{Name: "min_players", Type: datasetapi.TypeInteger},
			{Name: "max_players", Type: datasetapi.TypeInteger},
			{Name: "mean_rating", Type: datasetapi.TypeNumber, Format: "%.2f"},
			{Name: "candidates", Type: datasetapi.TypeInteger, Description: "MaxPlayers groups compared"},
		},
		Metadata:      meta,
		OutputFormats: allFormats,
		Binder: func(env datasetapi.Environment) (datasetapi.Runner, error) {
			return func(context.Context, datasetapi.RunRequest) (datasetapi.RunResult, error) {
				winners := analysis.BestCategoryByPlayers(env.Table)
				rows := make([]map[string]any, 0, len(winners))
				for _, w := range winners {
					rows = append(rows, map[string]any{
						"category":    w.Category,
						"min_players": w.MinPlayers,
						"max_players": w.MaxPlayers,
						"mean_rating": w.MeanRating,
						"candidates":  w.Candidates,
					})
				}
				return datasetapi.RunResult{Rows: rows, GeneratedAt: env.Now()}, nil
			}, nil
		},
	}
}

type ageSummary struct {
	Age int `json:"age"`
	analysis.Summary
}

func ratingByAgeTemplate() datasetapi.Template {
	return datasetapi.Template{
		Key:         KeyRatingByAge,
		Version:     templateVersion,
		Title:       "Verteilung der Bewertungen im Bezug auf die empfohlene Altersgruppe",
		Description: "Ratings grouped by recommended minimum age, one row per game.",
		Dialect:     datasetapi.DialectDSL,
		Query:       "games | drop_null(MfgAgeRec, AvgRating) | group(MfgAgeRec) | collect(AvgRating)",
		Columns: []datasetapi.Column{
			{Name: "age", Type: datasetapi.TypeInteger, Unit: "years"},
			{Name: "rating", Type: datasetapi.TypeNumber},
		},
		Metadata:      questionMetadata(question4, "1", datasetapi.ChartViolin, "age", "rating", ""),
		OutputFormats: allFormats,
		Binder: func(env datasetapi.Environment) (datasetapi.Runner, error) {
			return func(context.Context, datasetapi.RunRequest) (datasetapi.RunResult, error) {
				groups := analysis.RatingByAge(env.Table)
				var rows []map[string]any
				summaries := make([]ageSummary, 0, len(groups))
				for _, g := range groups {
					for _, r := range g.Ratings {
						rows = append(rows, map[string]any{"age": g.Age, "rating": r})
					}
					summaries = append(summaries, ageSummary{Age: g.Age, Summary: g.Summary})
				}
				return datasetapi.RunResult{
					Rows:        rows,
					Metadata:    map[string]any{"groups": summaries},
					GeneratedAt: env.Now(),
				}, nil
			}, nil
		},
	}
}

func playtimeTrendTemplate() datasetapi.Template {
	meta := questionMetadata(question5, "1", datasetapi.ChartRegression, "year", "mean_playtime", "")
	meta.Annotations[datasetapi.AnnotationChartFit] = "fitted"
	return datasetapi.Template{
		Key:         KeyPlaytimeTrend,
		Version:     templateVersion,
		Title:       "Durchschnittliche Spielzeit nach Jahren",
		Description: "Mean playtime per publication year with an ordinary least squares fit.",
		Dialect:     datasetapi.DialectDSL,
		Query:       "games | drop_null(YearPublished, MfgPlaytime) | group(YearPublished) | mean(MfgPlaytime) | ols(YearPublished, MfgPlaytime)",
		Parameters: []datasetapi.Parameter{{
			Name:        "exclude_outliers",
			Type:        datasetapi.TypeBoolean,
			Description: "Refit without years outside 3 IQR of the year distribution",
			Default:     false,
		}},
		Columns: []datasetapi.Column{
			{Name: "year", Type: datasetapi.TypeInteger, Unit: "year"},
			{Name: "rows", Type: datasetapi.TypeInteger},
			{Name: "mean_playtime", Type: datasetapi.TypeNumber, Unit: "minutes", Format: "%.1f"},
			{Name: "outlier", Type: datasetapi.TypeBoolean},
			{Name: "fitted", Type: datasetapi.TypeNumber, Unit: "minutes", Description: "Fitted line at year"},
		},
		Metadata:      meta,
		OutputFormats: allFormats,
		Binder: func(env datasetapi.Environment) (datasetapi.Runner, error) {
			return func(_ context.Context, req datasetapi.RunRequest) (datasetapi.RunResult, error) {
				trend := analysis.PlaytimeTrend(env.Table, analysis.TrendOptions{
					ExcludeOutliers: datasetapi.BoolParam(req.Parameters, "exclude_outliers", false),
				})
				rows := make([]map[string]any, 0, len(trend.Points))
				for _, p := range trend.Points {
					rows = append(rows, map[string]any{
						"year":          p.Year,
						"rows":          p.Rows,
						"mean_playtime": p.MeanPlaytime,
						"outlier":       p.Outlier,
						"fitted":        trend.Fit.At(float64(p.Year)),
					})
				}
				return datasetapi.RunResult{
					Rows: rows,
					Metadata: map[string]any{
						"slope":             trend.Fit.Slope,
						"intercept":         trend.Fit.Intercept,
						"r_squared":         trend.Fit.RSquared,
						"n":                 trend.Fit.N,
						"lower_fence":       trend.LowerFence,
						"upper_fence":       trend.UpperFence,
						"excluded_outliers": trend.ExcludedOutliers,
					},
					GeneratedAt: env.Now(),
				}, nil
			}, nil
		},
	}
}

func queryError(err error) error {
	if errors.Is(err, analysis.ErrInvalidBins) ||
		errors.Is(err, analysis.ErrSampleSizeOutOfRange) ||
		errors.Is(err, analysis.ErrSampleExceedsPopulation) {
		return &datasetapi.QueryError{Err: err}
	}
	return err
}

func eraLabel(side analysis.Side, threshold int) string {
	if side == analysis.SideBefore {
		return fmt.Sprintf("Ältere Spiele (vor %d)", threshold)
	}
	return fmt.Sprintf("Neuere Spiele (ab oder nach %d)", threshold)
}

func scatterLabel(side analysis.Side, threshold int) string {
	if side == analysis.SideBefore {
		return "vor " + strconv.Itoa(threshold)
	}
	return "ab " + strconv.Itoa(threshold)
}
