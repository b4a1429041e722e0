package datasets

import (
	"testing"
	"time"

	"boardgamestats/internal/core"
	"boardgamestats/pkg/domain"
	"boardgamestats/plugins/boardgames"
)

func newCatalog(t *testing.T, n int) *core.Service {
	t.Helper()
	records := make([]domain.Record, n)
	for i := range records {
		records[i] = domain.Record{
			ID:            i + 1,
			AvgRating:     domain.Float(5 + float64(i%30)/10),
			YearPublished: domain.Int(1970 + i%50),
			Category:      []string{"strategy", "party", "family"}[i%3],
			MinPlayers:    domain.Int(1 + i%3),
			MaxPlayers:    domain.Int(4 + i%3),
			MfgAgeRec:     domain.Int(8 + i%4),
			MfgPlaytime:   domain.Float(30 + float64(i%60)),
		}
	}
	svc, err := core.NewService(domain.NewTable(records), core.WithClock(func() time.Time { return time.Unix(0, 0).UTC() }))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.InstallPlugin(boardgames.New()); err != nil {
		t.Fatalf("install: %v", err)
	}
	return svc
}
