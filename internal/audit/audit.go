// Package audit defines the export audit trail shared by the storage
// drivers under internal/infra/persistence.
package audit

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrInvalidEntry is returned when an entry lacks an ID or action.
var ErrInvalidEntry = errors.New("audit: entry requires id and action")

// Entry records one step of a dataset export.
type Entry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	Template   string         `json:"template"`
	Status     string         `json:"status"`
	Requestor  string         `json:"requestor,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Validate checks the fields every store requires.
func (e Entry) Validate() error {
	if e.ID == "" || e.Action == "" {
		return ErrInvalidEntry
	}
	return nil
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Template string
	Action   string
	Status   string
	Since    time.Time
	Limit    int
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if f.Template != "" && e.Template != f.Template {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && e.OccurredAt.Before(f.Since) {
		return false
	}
	return true
}

// Apply filters, orders by time then ID, and truncates to Limit.
func (f Filter) Apply(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// Store persists audit entries.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
	Driver() string
	Close() error
}

// CloneMetadata returns a shallow copy of m.
func CloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
