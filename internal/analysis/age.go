package analysis

import (
	"sort"

	"boardgamestats/pkg/domain"
)

// AgeGroup is the full rating distribution of one recommended age. Ratings
// keep table order.
type AgeGroup struct {
	Age     int       `json:"age"`
	Ratings []float64 `json:"ratings"`
	Summary Summary   `json:"summary"`
}

// RatingByAge groups every rating by the manufacturer's recommended age,
// sorted by age.
func RatingByAge(t *domain.Table) []AgeGroup {
	groups := map[int][]float64{}
	t.Each(func(_ int, r domain.Record) bool {
		if r.MfgAgeRec.Valid && r.AvgRating.Valid {
			groups[r.MfgAgeRec.Int] = append(groups[r.MfgAgeRec.Int], r.AvgRating.Float)
		}
		return true
	})
	out := make([]AgeGroup, 0, len(groups))
	for age, ratings := range groups {
		out = append(out, AgeGroup{Age: age, Ratings: ratings, Summary: Summarize(ratings)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Age < out[j].Age })
	return out
}
