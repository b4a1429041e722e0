// Package memory implements an in-memory blob Store.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"boardgamestats/internal/blob/core"
)

type object struct {
	info core.Info
	data []byte
}

// Store implements core.Store backed by process memory.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New returns an empty in-memory store.
func New() *Store { return &Store{objects: make(map[string]object)} }

func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put writes or replaces the object at key.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	clean, err := core.CleanKey(key)
	if err != nil {
		return core.Info{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.Info{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	sum := sha256.Sum256(data)
	info := core.Info{
		Key:          clean,
		Size:         int64(len(data)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     core.CopyMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.mu.Lock()
	s.objects[clean] = object{info: info, data: data}
	s.mu.Unlock()
	return detach(info), nil
}

func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	obj, err := s.lookup(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	return detach(obj.info), io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))), nil
}

func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	obj, err := s.lookup(key)
	if err != nil {
		return core.Info{}, err
	}
	return detach(obj.info), nil
}

// Delete removes the object and reports whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	clean, err := core.CleanKey(key)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[clean]; !ok {
		return false, nil
	}
	delete(s.objects, clean)
	return true, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	infos := make([]core.Info, 0, len(s.objects))
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, detach(obj.info))
		}
	}
	s.mu.RUnlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// PresignURL returns an opaque memory:// URL; nothing can dereference it.
func (s *Store) PresignURL(_ context.Context, key string, opts core.SignedURLOptions) (string, error) {
	if opts.Method != "" && !strings.EqualFold(opts.Method, "GET") {
		return "", core.ErrUnsupported
	}
	obj, err := s.lookup(key)
	if err != nil {
		return "", err
	}
	return "memory://" + obj.info.Key, nil
}

func (s *Store) lookup(key string) (object, error) {
	clean, err := core.CleanKey(key)
	if err != nil {
		return object{}, err
	}
	s.mu.RLock()
	obj, ok := s.objects[clean]
	s.mu.RUnlock()
	if !ok {
		return object{}, fmt.Errorf("%w: %s", core.ErrNotFound, clean)
	}
	return obj, nil
}

func detach(info core.Info) core.Info {
	info.Metadata = core.CopyMetadata(info.Metadata)
	return info
}
