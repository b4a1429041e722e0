// Package fs stores blobs as plain files with a JSON sidecar holding the
// content type, user metadata and a sha256 ETag.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"boardgamestats/internal/blob/core"
)

const metaSuffix = ".meta"

// Store implements core.Store on the local filesystem. Writes go through a
// temp file and rename so readers never observe a partial object.
type Store struct {
	root string
	mu   sync.Mutex
}

// New returns a Store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("fs blob root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory backing the store.
func (s *Store) Root() string { return s.root }

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

type sidecar struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (s *Store) paths(key string) (clean, data, meta string, err error) {
	clean, err = core.CleanKey(key)
	if err != nil {
		return "", "", "", err
	}
	if strings.HasSuffix(clean, metaSuffix) {
		return "", "", "", fmt.Errorf("%w: %s suffix is reserved", core.ErrInvalidKey, metaSuffix)
	}
	data = filepath.Join(s.root, filepath.FromSlash(clean))
	return clean, data, data + metaSuffix, nil
}

// Put writes or replaces the object at key.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	clean, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return core.Info{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return core.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".put-*")
	if err != nil {
		return core.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return core.Info{}, err
	}

	sc := sidecar{
		ContentType: opts.ContentType,
		Metadata:    core.CopyMetadata(opts.Metadata),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		UpdatedAt:   time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return core.Info{}, err
	}
	if err := writeSidecar(metaPath, sc); err != nil {
		return core.Info{}, err
	}
	return sc.info(clean), nil
}

// Get opens the object for reading. The caller closes the reader.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	clean, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, err := readSidecar(metaPath)
	if err != nil {
		return core.Info{}, nil, notFound(clean, err)
	}
	file, err := os.Open(dataPath)
	if err != nil {
		return core.Info{}, nil, notFound(clean, err)
	}
	return sc.info(clean), file, nil
}

func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	clean, _, metaPath, err := s.paths(key)
	if err != nil {
		return core.Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, err := readSidecar(metaPath)
	if err != nil {
		return core.Info{}, notFound(clean, err)
	}
	return sc.info(clean), nil
}

// Delete removes the object and reports whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	_, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return true, err
	}
	return true, nil
}

// List returns objects whose key starts with prefix, sorted by key.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	err := filepath.WalkDir(s.root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, metaSuffix) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(path, metaSuffix))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		sc, err := readSidecar(path)
		if err != nil {
			return err
		}
		infos = append(infos, sc.info(key))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// PresignURL returns a file URL for local development. There is no signing.
func (s *Store) PresignURL(ctx context.Context, key string, opts core.SignedURLOptions) (string, error) {
	if opts.Method != "" && !strings.EqualFold(opts.Method, "GET") {
		return "", core.ErrUnsupported
	}
	if _, err := s.Head(ctx, key); err != nil {
		return "", err
	}
	_, dataPath, _, _ := s.paths(key)
	abs, err := filepath.Abs(dataPath)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func (sc sidecar) info(key string) core.Info {
	return core.Info{
		Key:          key,
		Size:         sc.Size,
		ContentType:  sc.ContentType,
		ETag:         sc.ETag,
		Metadata:     core.CopyMetadata(sc.Metadata),
		LastModified: sc.UpdatedAt,
	}
}

func notFound(key string, err error) error {
	if errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	return err
}

func writeSidecar(path string, sc sidecar) error {
	b, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readSidecar(path string) (sidecar, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return sidecar{}, err
	}
	var sc sidecar
	if err := json.Unmarshal(b, &sc); err != nil {
		return sidecar{}, fmt.Errorf("decode blob sidecar %s: %w", path, err)
	}
	return sc, nil
}
