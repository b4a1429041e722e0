package datasets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"boardgamestats/internal/blob"
	"boardgamestats/internal/core"
)

// ErrArtifactExists is returned by BlobObjectStore.Put for an occupied key.
var ErrArtifactExists = errors.New("artifact already exists")

// BlobObjectStore adapts a blob.Store to the ObjectStore contract used by
// the export worker. Artifact metadata is flattened to strings on write.
type BlobObjectStore struct {
	store     blob.Store
	urlExpiry time.Duration
}

// NewBlobObjectStore wraps store. A zero expiry uses the driver default.
func NewBlobObjectStore(store blob.Store, urlExpiry time.Duration) *BlobObjectStore {
	return &BlobObjectStore{store: store, urlExpiry: urlExpiry}
}

// Put writes payload under key unless an object already lives there.
func (s *BlobObjectStore) Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error) {
	if _, err := s.store.Head(ctx, key); err == nil {
		return ExportArtifact{}, fmt.Errorf("%w: %s", ErrArtifactExists, key)
	} else if !errors.Is(err, blob.ErrNotFound) {
		return ExportArtifact{}, err
	}
	info, err := s.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata:    flattenMetadata(metadata),
	})
	if err != nil {
		return ExportArtifact{}, err
	}
	return s.artifact(ctx, info), nil
}

// Get reads the full object stored under key.
func (s *BlobObjectStore) Get(ctx context.Context, key string) (ExportArtifact, []byte, error) {
	info, rc, err := s.store.Get(ctx, key)
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	defer rc.Close()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	return s.artifact(ctx, info), payload, nil
}

// Delete removes key and reports whether it existed.
func (s *BlobObjectStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.store.Delete(ctx, key)
}

// List returns artifacts whose keys start with prefix.
func (s *BlobObjectStore) List(ctx context.Context, prefix string) ([]ExportArtifact, error) {
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]ExportArtifact, 0, len(infos))
	for _, info := range infos {
		out = append(out, s.artifact(ctx, info))
	}
	return out, nil
}

func (s *BlobObjectStore) artifact(ctx context.Context, info blob.Info) ExportArtifact {
	artifact := ExportArtifact{
		ID:          info.Key,
		Format:      formatFromKey(info.Key),
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		CreatedAt:   info.LastModified,
	}
	if len(info.Metadata) > 0 {
		artifact.Metadata = make(map[string]any, len(info.Metadata))
		for k, v := range info.Metadata {
			artifact.Metadata[k] = v
		}
	}
	// Drivers without signing leave URL empty; the HTTP download route still works.
	if url, err := s.store.PresignURL(ctx, info.Key, blob.SignedURLOptions{Method: "GET", Expiry: s.urlExpiry}); err == nil {
		artifact.URL = url
	}
	return artifact
}

func flattenMetadata(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func formatFromKey(key string) core.DatasetFormat {
	idx := strings.LastIndex(key, ".")
	if idx < 0 {
		return ""
	}
	for _, format := range exportFormats {
		if extension(format) == key[idx+1:] {
			return format
		}
	}
	return ""
}
