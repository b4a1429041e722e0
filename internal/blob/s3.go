package blob

import (
	"context"

	infraS3 "boardgamestats/internal/infra/blob/s3"
)

// S3Config configures the S3 driver.
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed Store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// OpenS3FromEnv constructs an S3 store from BGSTATS_BLOB_S3_* variables.
func OpenS3FromEnv(ctx context.Context) (Store, error) {
	return infraS3.OpenFromEnv(ctx)
}

// NewMockS3ForTests returns an S3 store backed by an in-process fake
// endpoint so callers outside the infra tree can exercise the driver.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
