package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"boardgamestats/internal/audit"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	meta := map[string]any{"rows": 3}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Record(ctx, audit.Entry{ID: "1", Action: "dataset_export", Template: "t", Status: "queued", Metadata: meta, OccurredAt: now}); err != nil {
		t.Fatalf("record: %v", err)
	}
	meta["rows"] = 99
	if err := s.Record(ctx, audit.Entry{ID: "2", Action: "dataset_export", Template: "t", Status: "succeeded", OccurredAt: now.Add(time.Second)}); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := s.List(ctx, audit.Filter{Template: "t"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "1" || got[1].Status != "succeeded" {
		t.Fatalf("unexpected entries: %+v", got)
	}
	if got[0].Metadata["rows"] != 3 {
		t.Fatalf("metadata should be detached, got %v", got[0].Metadata["rows"])
	}
	if s.Driver() != Driver || s.Close() != nil {
		t.Fatalf("unexpected driver/close behaviour")
	}
}

func TestRecordRejectsInvalidEntry(t *testing.T) {
	err := NewStore().Record(context.Background(), audit.Entry{Action: "x"})
	if !errors.Is(err, audit.ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}
