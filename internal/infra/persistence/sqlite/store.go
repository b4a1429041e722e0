// Package sqlite persists the audit trail to a local SQLite file using the
// pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"boardgamestats/internal/audit"
)

const (
	// Driver is the name reported by Store.Driver.
	Driver = "sqlite"
	// DefaultPath is used when no path is configured.
	DefaultPath = "bgstats-audit.db"
)

var _ audit.Store = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS audit_entries (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	actor TEXT NOT NULL DEFAULT '',
	template TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	requestor TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	metadata TEXT,
	occurred_at TEXT NOT NULL
)`

// Store writes one row per audit entry.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Record inserts entry. A duplicate ID is an error.
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
		`INSERT INTO audit_entries(id, action, actor, template, status, requestor, reason, metadata, occurred_at) VALUES(?,?,?,?,?,?,?,?,?)`,
		entry.ID, entry.Action, entry.Actor, entry.Template, entry.Status, entry.Requestor, entry.Reason,
		nullableText(meta), entry.OccurredAt.UTC().Format(time.RFC3339Nano))
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
		query += ` WHERE template = ?`
		args = append(args, filter.Template)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []audit.Entry
	for rows.Next() {
		var (
			e        audit.Entry
			meta     sql.NullString
			occurred string
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.Actor, &e.Template, &e.Status, &e.Requestor, &e.Reason, &meta, &occurred); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", e.ID, err)
			}
		}
		if e.OccurredAt, err = time.Parse(time.RFC3339Nano, occurred); err != nil {
			return nil, fmt.Errorf("decode time for %s: %w", e.ID, err)
		}
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

func nullableText(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
