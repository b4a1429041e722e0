package analysis_test

import (
	"strconv"

	"boardgamestats/pkg/domain"
)

type row struct {
	rating   float64
	noRating bool
	year     int
	category string
	min, max int
	age      int
	playtime float64
}

func table(rows ...row) *domain.Table {
	records := make([]domain.Record, len(rows))
	for i, r := range rows {
		rec := domain.Record{
			ID:            i + 1,
			YearPublished: domain.Int(r.year),
			Category:      r.category,
			MinPlayers:    domain.Int(r.min),
			MaxPlayers:    domain.Int(r.max),
			MfgAgeRec:     domain.Int(r.age),
			MfgPlaytime:   domain.Float(r.playtime),
		}
		if !r.noRating {
			rec.AvgRating = domain.Float(r.rating)
		}
		records[i] = rec
	}
	return domain.NewTable(records)
}

// population builds n rows spread over 1950..2019 with deterministic ratings.
func population(n int) *domain.Table {
	rows := make([]row, n)
	for i := range rows {
		rows[i] = row{
			rating:   5 + float64(i%40)/10,
			year:     1950 + i%70,
			category: "strategy",
			min:      1 + i%4,
			max:      4 + i%4,
			age:      8 + i%6,
			playtime: 30 + float64(i%90),
		}
	}
	return table(rows...)
}

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
