package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"boardgamestats/internal/audit"
	"boardgamestats/internal/infra/persistence/postgres/testutil"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != sqlDriver {
			t.Fatalf("unexpected driver %s", driverName)
		}
		return db, nil
	})
	t.Cleanup(restore)
	s, err := NewStore(context.Background(), "postgres://stub")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s, conn
}

func TestNewStoreCreatesTable(t *testing.T) {
	_, conn := openStub(t)
	if len(conn.Execs) == 0 || !strings.Contains(conn.Execs[0], "CREATE TABLE IF NOT EXISTS audit_entries") {
		t.Fatalf("expected schema statement, got %v", conn.Execs)
	}
}

func TestRecordAndListRoundTrip(t *testing.T) {
	s, conn := openStub(t)
	ctx := context.Background()
	now := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
	entries := []audit.Entry{
		{ID: "b", Action: "dataset_export", Template: "x", Status: "succeeded", OccurredAt: now.Add(time.Minute)},
		{ID: "a", Action: "dataset_export", Template: "x", Status: "queued", Metadata: map[string]any{"format": "csv"}, OccurredAt: now},
		{ID: "c", Action: "dataset_export", Template: "y", Status: "queued", OccurredAt: now},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := s.Record(ctx, entries[0]); err != nil {
		t.Fatalf("replayed id should be ignored: %v", err)
	}
	if got := len(conn.Tables["audit_entries"]); got != 3 {
		t.Fatalf("expected three stored rows, got %d", got)
	}
	got, err := s.List(ctx, audit.Filter{Template: "x"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected entries: %+v", got)
	}
	if got[0].Metadata["format"] != "csv" {
		t.Fatalf("metadata not decoded: %+v", got[0].Metadata)
	}
	if s.Driver() != Driver {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
}

func TestNewStorePingError(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestListQueryError(t *testing.T) {
	s, conn := openStub(t)
	conn.FailQuery = true
	if _, err := s.List(context.Background(), audit.Filter{}); err == nil {
		t.Fatalf("expected query error")
	}
}
