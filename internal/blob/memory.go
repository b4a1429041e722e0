package blob

import (
	memorystore "boardgamestats/internal/infra/blob/memory"
)

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }
