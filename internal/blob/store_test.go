package blob_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"boardgamestats/internal/blob"
)

func drivers(t *testing.T) map[string]blob.Store {
	t.Helper()
	fsStore, err := blob.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem store: %v", err)
	}
	return map[string]blob.Store{
		"memory": blob.NewMemory(),
		"fs":     fsStore,
		"s3":     blob.NewMockS3ForTests(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			info, err := store.Put(ctx, "exports/run-1.csv", strings.NewReader("id,value\n1,2\n"), blob.PutOptions{
				ContentType: "text/csv",
				Metadata:    map[string]string{"template": "boardgames/era_comparison@1.0.0"},
			})
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Key != "exports/run-1.csv" || info.Size != 13 {
				t.Fatalf("unexpected put info: %+v", info)
			}
			if info.ETag == "" {
				t.Fatalf("expected etag")
			}

			got, rc, err := store.Get(ctx, "exports/run-1.csv")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			body, err := io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(body) != "id,value\n1,2\n" {
				t.Fatalf("unexpected body %q", body)
			}
			if got.ContentType != "text/csv" {
				t.Fatalf("unexpected content type %q", got.ContentType)
			}
			if got.Metadata["template"] != "boardgames/era_comparison@1.0.0" {
				t.Fatalf("metadata lost: %+v", got.Metadata)
			}

			if _, err := store.Put(ctx, "exports/run-1.csv", bytes.NewReader([]byte("x")), blob.PutOptions{}); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			head, err := store.Head(ctx, "exports/run-1.csv")
			if err != nil || head.Size != 1 {
				t.Fatalf("head after overwrite: %+v %v", head, err)
			}
		})
	}
}

func TestStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"exports/b.json", "exports/a.json", "datasets/games.csv"} {
				if _, err := store.Put(ctx, key, strings.NewReader(key), blob.PutOptions{}); err != nil {
					t.Fatalf("put %s: %v", key, err)
				}
			}
			list, err := store.List(ctx, "exports/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 2 || list[0].Key != "exports/a.json" || list[1].Key != "exports/b.json" {
				t.Fatalf("unexpected list: %+v", list)
			}
			all, err := store.List(ctx, "")
			if err != nil || len(all) != 3 {
				t.Fatalf("list all: %+v %v", all, err)
			}

			existed, err := store.Delete(ctx, "exports/a.json")
			if err != nil || !existed {
				t.Fatalf("delete: %v %v", existed, err)
			}
			existed, err = store.Delete(ctx, "exports/a.json")
			if err != nil || existed {
				t.Fatalf("second delete should report absence: %v %v", existed, err)
			}
			if _, err := store.Head(ctx, "exports/a.json"); !errors.Is(err, blob.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, blob.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on get, got %v", err)
			}
		})
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	ctx := context.Background()
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "../x", "/abs"} {
				if _, err := store.Put(ctx, key, strings.NewReader("x"), blob.PutOptions{}); !errors.Is(err, blob.ErrInvalidKey) {
					t.Fatalf("put %q: expected ErrInvalidKey, got %v", key, err)
				}
			}
		})
	}
}

func TestPresignURL(t *testing.T) {
	ctx := context.Background()
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Put(ctx, "charts/q1.png", strings.NewReader("png"), blob.PutOptions{ContentType: "image/png"}); err != nil {
				t.Fatalf("put: %v", err)
			}
			url, err := store.PresignURL(ctx, "charts/q1.png", blob.SignedURLOptions{Method: "get"})
			if err != nil || !strings.Contains(url, "q1.png") {
				t.Fatalf("presign: %q %v", url, err)
			}
			if _, err := store.PresignURL(ctx, "charts/q1.png", blob.SignedURLOptions{Method: "PUT"}); !errors.Is(err, blob.ErrUnsupported) {
				t.Fatalf("expected ErrUnsupported for PUT, got %v", err)
			}
		})
	}
}

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	ctx := context.Background()

	t.Setenv(blob.EnvDriver, "memory")
	store, err := blob.Open(ctx)
	if err != nil || store.Driver() != blob.DriverMemory {
		t.Fatalf("memory driver: %v %v", store, err)
	}

	t.Setenv(blob.EnvDriver, "")
	t.Setenv(blob.EnvFSRoot, t.TempDir())
	store, err = blob.Open(ctx)
	if err != nil || store.Driver() != blob.DriverFilesystem {
		t.Fatalf("default fs driver: %v %v", store, err)
	}

	t.Setenv(blob.EnvDriver, "s3")
	t.Setenv("BGSTATS_BLOB_S3_BUCKET", "")
	if _, err := blob.Open(ctx); err == nil {
		t.Fatalf("expected error when bucket missing")
	}

	t.Setenv(blob.EnvDriver, "ftp")
	if _, err := blob.Open(ctx); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
