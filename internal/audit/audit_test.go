package audit

import (
	"testing"
	"time"
)

func TestFilterApplyOrdersAndLimits(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ID: "c", Action: "dataset_export", Template: "a", Status: "failed", OccurredAt: base.Add(2 * time.Minute)},
		{ID: "b", Action: "dataset_export", Template: "a", Status: "queued", OccurredAt: base},
		{ID: "a", Action: "dataset_export", Template: "a", Status: "running", OccurredAt: base},
		{ID: "d", Action: "dataset_export", Template: "b", Status: "queued", OccurredAt: base.Add(time.Minute)},
	}
	got := Filter{Template: "a"}.Apply(entries)
	if len(got) != 3 || got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", got)
	}
	got = Filter{Since: base.Add(time.Minute), Limit: 1}.Apply(entries)
	if len(got) != 1 || got[0].ID != "d" {
		t.Fatalf("unexpected since/limit result: %+v", got)
	}
	if got := (Filter{Status: "queued"}).Apply(entries); len(got) != 2 {
		t.Fatalf("expected two queued entries, got %d", len(got))
	}
}

func TestEntryValidate(t *testing.T) {
	if err := (Entry{ID: "x"}).Validate(); err != ErrInvalidEntry {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
	if err := (Entry{ID: "x", Action: "y"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
