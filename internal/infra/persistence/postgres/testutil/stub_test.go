package testutil

import (
	"context"
	"database/sql/driver"
	"strings"
	"testing"
)

const (
	insertEntry = `INSERT INTO audit_entries(id, action, template, status) VALUES($1,$2,$3,$4) ON CONFLICT (id) DO NOTHING`
	selectAll   = `SELECT id, action, template, status FROM audit_entries`
	selectByTpl = `SELECT id, status FROM audit_entries WHERE template = $1`
)

func entryArgs(id, template, status string) []driver.NamedValue {
	return []driver.NamedValue{{Value: id}, {Value: "dataset_export"}, {Value: template}, {Value: status}}
}

func collect(t *testing.T, rows driver.Rows) [][]driver.Value {
	t.Helper()
	defer func() { _ = rows.Close() }()
	var out [][]driver.Value
	for {
		dest := make([]driver.Value, len(rows.Columns()))
		if err := rows.Next(dest); err != nil {
			return out
		}
		out = append(out, dest)
	}
}

func TestStubStoresAndSelectsAuditEntries(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS audit_entries (id TEXT PRIMARY KEY)`, nil); err != nil {
		t.Fatalf("schema exec: %v", err)
	}
	for _, args := range [][]driver.NamedValue{
		entryArgs("a-1", "boardgames/rating_distribution@1.0.0", "queued"),
		entryArgs("a-2", "boardgames/playtime_trend@1.0.0", "succeeded"),
	} {
		if _, err := conn.ExecContext(ctx, insertEntry, args); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	res, err := conn.ExecContext(ctx, insertEntry, entryArgs("a-1", "boardgames/rating_distribution@1.0.0", "running"))
	if err != nil {
		t.Fatalf("conflicting insert: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 0 {
		t.Fatalf("expected DO NOTHING to skip the duplicate, affected %d", n)
	}
	if len(conn.Tables["audit_entries"]) != 2 {
		t.Fatalf("expected two stored entries, got %v", conn.Tables["audit_entries"])
	}

	rows, err := conn.QueryContext(ctx, selectAll, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	all := collect(t, rows)
	if len(all) != 2 || all[0][0] != "a-1" || all[0][3] != "queued" || all[1][2] != "boardgames/playtime_trend@1.0.0" {
		t.Fatalf("unexpected rows %v", all)
	}

	rows, err = conn.QueryContext(ctx, selectByTpl, []driver.NamedValue{{Value: "boardgames/playtime_trend@1.0.0"}})
	if err != nil {
		t.Fatalf("filtered select: %v", err)
	}
	filtered := collect(t, rows)
	if len(filtered) != 1 || filtered[0][0] != "a-2" || filtered[0][1] != "succeeded" {
		t.Fatalf("unexpected filtered rows %v", filtered)
	}
	if len(conn.Execs) != 4 || !strings.HasPrefix(conn.Execs[0], "CREATE TABLE") {
		t.Fatalf("expected every exec to be recorded, got %v", conn.Execs)
	}
}

func TestStubRejectsDuplicateWithoutConflictClause(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	plain := `INSERT INTO audit_entries(id, status) VALUES($1,$2)`
	if _, err := conn.ExecContext(ctx, plain, []driver.NamedValue{{Value: "a-1"}, {Value: "queued"}}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := conn.ExecContext(ctx, plain, []driver.NamedValue{{Value: "a-1"}, {Value: "running"}}); err == nil {
		t.Fatalf("expected duplicate key error")
	}
	if _, err := conn.ExecContext(ctx, plain, []driver.NamedValue{{Value: "a-2"}}); err == nil {
		t.Fatalf("expected column/arg mismatch error")
	}
}

func TestStubFailureSwitches(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	defer func() { _ = db.Close() }()

	conn.FailPing = true
	if err := db.PingContext(ctx); err == nil {
		t.Fatalf("expected ping failure")
	}
	conn.FailPing = false
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	conn.FailExec = true
	if _, err := db.ExecContext(ctx, insertEntry, "a-1", "dataset_export", "t", "queued"); err == nil {
		t.Fatalf("expected exec failure")
	}
	if len(conn.Tables["audit_entries"]) != 0 {
		t.Fatalf("failed exec must not store rows")
	}
	conn.FailExec = false
	if _, err := db.ExecContext(ctx, insertEntry, "a-1", "dataset_export", "t", "queued"); err != nil {
		t.Fatalf("exec: %v", err)
	}

	conn.FailQuery = true
	if _, err := db.QueryContext(ctx, selectAll); err == nil {
		t.Fatalf("expected query failure")
	}
	conn.FailQuery = false
	rows, err := db.QueryContext(ctx, selectAll)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		t.Fatalf("expected the stored entry")
	}
	var id, action, template, status string
	if err := rows.Scan(&id, &action, &template, &status); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if id != "a-1" || status != "queued" {
		t.Fatalf("unexpected entry %s %s", id, status)
	}
}
