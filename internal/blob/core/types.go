// Package core holds the storage-neutral blob contract shared by the
// dataset loader, the export worker and the concrete drivers.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver names a blob backend.
type Driver string

const (
	// DriverFilesystem stores objects below a local directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 talks to S3 or an S3-compatible endpoint such as MinIO.
	DriverS3 Driver = "s3"
	// DriverMemory keeps objects in process memory.
	DriverMemory Driver = "memory"
)

// PutOptions carries optional attributes for a write.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions configures a pre-signed download URL. Only GET is
// supported by every driver.
type SignedURLOptions struct {
	Method string
	Expiry time.Duration
}

// DefaultURLExpiry applies when SignedURLOptions.Expiry is zero.
const DefaultURLExpiry = 15 * time.Minute

// Info describes one stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is the object storage contract. Keys are slash separated and must
// not escape the store root.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

var (
	// ErrUnsupported is returned for capabilities a driver does not offer.
	ErrUnsupported = errors.New("blob: unsupported operation")
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("blob: not found")
	// ErrInvalidKey is returned for empty or escaping keys.
	ErrInvalidKey = errors.New("blob: invalid key")
)
