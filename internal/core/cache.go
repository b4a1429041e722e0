package core

import (
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"

	"boardgamestats/pkg/datasetapi"
)

// DefaultRunCacheSize bounds the number of memoised runs.
const DefaultRunCacheSize = 64

// runCache memoises run results per template and normalised parameters.
// A nil cache is disabled.
type runCache struct {
	entries *lru.Cache[string, datasetapi.RunResult]
}

func newRunCache(size int) (*runCache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.New[string, datasetapi.RunResult](size)
	if err != nil {
		return nil, err
	}
	return &runCache{entries: entries}, nil
}

// key encodes params as JSON; map keys marshal in sorted order, so equal
// parameter sets produce equal keys.
func (c *runCache) key(slug string, params map[string]any) (string, bool) {
	if c == nil {
		return "", false
	}
	b, err := json.Marshal(params)
	if err != nil {
		return "", false
	}
	return slug + "?" + string(b), true
}

func (c *runCache) get(key string) (datasetapi.RunResult, bool) {
	if c == nil {
		return datasetapi.RunResult{}, false
	}
	return c.entries.Get(key)
}

func (c *runCache) add(key string, res datasetapi.RunResult) {
	if c != nil {
		c.entries.Add(key, res)
	}
}

func (c *runCache) len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
