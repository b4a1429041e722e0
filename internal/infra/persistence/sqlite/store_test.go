package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"boardgamestats/internal/audit"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "audit.db")
	s, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	now := time.Date(2024, 6, 1, 8, 30, 0, 123, time.UTC)
	entries := []audit.Entry{
		{ID: "e2", Action: "dataset_export", Actor: "ana", Template: "boardgames/era_scatter@1.0.0", Status: "succeeded", OccurredAt: now.Add(time.Second)},
		{ID: "e1", Action: "dataset_export", Actor: "ana", Template: "boardgames/era_scatter@1.0.0", Status: "queued", Requestor: "ana", Reason: "report", Metadata: map[string]any{"rows": 12}, OccurredAt: now},
		{ID: "e3", Action: "dataset_export", Template: "boardgames/playtime_trend@1.0.0", Status: "failed", OccurredAt: now},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("record %s: %v", e.ID, err)
		}
	}
	if err := s.Record(ctx, entries[0]); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()
	got, err := s.List(ctx, audit.Filter{Template: "boardgames/era_scatter@1.0.0"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "e1" || got[1].ID != "e2" {
		t.Fatalf("unexpected entries: %+v", got)
	}
	if !got[0].OccurredAt.Equal(now) || got[0].Reason != "report" || got[0].Requestor != "ana" {
		t.Fatalf("fields not round-tripped: %+v", got[0])
	}
	if got[0].Metadata["rows"] != float64(12) {
		t.Fatalf("metadata not decoded: %+v", got[0].Metadata)
	}
	all, err := s.List(ctx, audit.Filter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected three entries, got %d (%v)", len(all), err)
	}
	if s.Driver() != Driver || s.Path() != path {
		t.Fatalf("unexpected driver or path")
	}
}
