// Package memory provides an in-process audit store used by default and in
// tests.
package memory

import (
	"context"
	"sync"

	"boardgamestats/internal/audit"
)

// Driver is the name reported by Store.Driver.
const Driver = "memory"

var _ audit.Store = (*Store)(nil)

// Store keeps audit entries in a slice guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{}
}

// Record appends entry. Metadata is copied so later caller mutation does not
// leak into the trail.
func (s *Store) Record(_ context.Context, entry audit.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	entry.Metadata = audit.CloneMetadata(entry.Metadata)
	entry.OccurredAt = entry.OccurredAt.UTC()
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return nil
}

// List returns matching entries ordered by time.
func (s *Store) List(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	s.mu.RLock()
	snapshot := make([]audit.Entry, len(s.entries))
	for i, e := range s.entries {
		e.Metadata = audit.CloneMetadata(e.Metadata)
		snapshot[i] = e
	}
	s.mu.RUnlock()
	return filter.Apply(snapshot), nil
}

// Driver implements audit.Store.
func (s *Store) Driver() string { return Driver }

// Close implements audit.Store.
func (s *Store) Close() error { return nil }
