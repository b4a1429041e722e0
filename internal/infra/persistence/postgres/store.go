// Package postgres persists the audit trail to Postgres through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"boardgamestats/internal/audit"
)

const (
	// Driver is the name reported by Store.Driver.
	Driver = "postgres"

	sqlDriver  = "pgx"
	defaultDSN = "postgres://localhost/bgstats?sslmode=disable"
)

var _ audit.Store = (*Store)(nil)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const schema = `CREATE TABLE IF NOT EXISTS audit_entries (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	actor TEXT NOT NULL DEFAULT '',
	template TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	requestor TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	metadata JSONB,
	occurred_at TIMESTAMPTZ NOT NULL
)`

// Store writes one row per audit entry.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at dsn (falling back to a local default),
// pings it and ensures the audit table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(sqlDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure audit table: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts entry; a replayed ID is ignored.
func (s *Store) Record(ctx context.Context, entry audit.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	var meta []byte
	if len(entry.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(entry.Metadata); err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_entries(id, action, actor, template, status, requestor, reason, metadata, occurred_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9) ON CONFLICT (id) DO NOTHING`,
		entry.ID, entry.Action, entry.Actor, entry.Template, entry.Status, entry.Requestor, entry.Reason,
		meta, entry.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("insert audit entry %s: %w", entry.ID, err)
	}
	return nil
}

// List returns matching entries ordered by time.
func (s *Store) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	query := `SELECT id, action, actor, template, status, requestor, reason, metadata, occurred_at FROM audit_entries`
	var args []any
	if filter.Template != "" {
		query += ` WHERE template = $1`
		args = append(args, filter.Template)
	}
	query += ` ORDER BY occurred_at, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []audit.Entry
	for rows.Next() {
		var (
			e        audit.Entry
			meta     []byte
			occurred time.Time
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.Actor, &e.Template, &e.Status, &e.Requestor, &e.Reason, &meta, &occurred); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", e.ID, err)
			}
		}
		e.OccurredAt = occurred.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return filter.Apply(out), nil
}

// Driver implements audit.Store.
func (s *Store) Driver() string { return Driver }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
