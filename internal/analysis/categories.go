package analysis

import (
	"sort"

	"boardgamestats/pkg/domain"
)

// CategoryWinner is the best-rated player range for one category and
// minimum player count.
type CategoryWinner struct {
	Category   string  `json:"category"`
	MinPlayers int     `json:"min_players"`
	MaxPlayers int     `json:"max_players"`
	MeanRating float64 `json:"mean_rating"`
	Candidates int     `json:"candidates"`
}

type playerGroup struct {
	category   string
	minPlayers int
	maxPlayers int
}

// BestCategoryByPlayers groups the categorised rows by (category,
// minPlayers, maxPlayers), averages the ratings of each group and keeps, for
// every (category, minPlayers), the group with the highest mean. Ties go to
// the smallest maxPlayers. Groups without ratings never win. The "misc"
// category is left out.
func BestCategoryByPlayers(t *domain.Table) []CategoryWinner {
	sums := map[playerGroup]*[2]float64{}
	t.Each(func(_ int, r domain.Record) bool {
		if r.Uncategorized() || r.Category == "" || !r.MinPlayers.Valid || !r.MaxPlayers.Valid || !r.AvgRating.Valid {
			return true
		}
		key := playerGroup{category: r.Category, minPlayers: r.MinPlayers.Int, maxPlayers: r.MaxPlayers.Int}
		acc, ok := sums[key]
		if !ok {
			acc = &[2]float64{}
			sums[key] = acc
		}
		acc[0] += r.AvgRating.Float
		acc[1]++
		return true
	})

	keys := make([]playerGroup, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.category != b.category {
			return a.category < b.category
		}
		if a.minPlayers != b.minPlayers {
			return a.minPlayers < b.minPlayers
		}
		return a.maxPlayers < b.maxPlayers
	})

	var out []CategoryWinner
	for _, k := range keys {
		mean := sums[k][0] / sums[k][1]
		last := len(out) - 1
		if last >= 0 && out[last].Category == k.category && out[last].MinPlayers == k.minPlayers {
			out[last].Candidates++
			if mean > out[last].MeanRating {
				out[last].MaxPlayers = k.maxPlayers
				out[last].MeanRating = mean
			}
			continue
		}
		out = append(out, CategoryWinner{
			Category:   k.category,
			MinPlayers: k.minPlayers,
			MaxPlayers: k.maxPlayers,
			MeanRating: mean,
			Candidates: 1,
		})
	}
	if out == nil {
		out = []CategoryWinner{}
	}
	return out
}
