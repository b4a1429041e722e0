package blob

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by Open.
const (
	EnvDriver = "BGSTATS_BLOB_DRIVER"
	EnvFSRoot = "BGSTATS_BLOB_FS_ROOT"
)

// DefaultFSRoot is used when the filesystem driver has no explicit root.
const DefaultFSRoot = "./blobdata"

// Open selects a Store from the environment.
//
//	BGSTATS_BLOB_DRIVER: fs|s3|memory (default fs)
//	BGSTATS_BLOB_FS_ROOT: directory root for fs (default ./blobdata)
//	BGSTATS_BLOB_S3_*: see OpenS3FromEnv
func Open(ctx context.Context) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv(EnvDriver)))
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	return OpenDriver(ctx, Driver(driver), os.Getenv(EnvFSRoot))
}

// OpenDriver constructs a Store for an explicit driver name. fsRoot is only
// used by the filesystem driver.
func OpenDriver(ctx context.Context, driver Driver, fsRoot string) (Store, error) {
	switch driver {
	case DriverFilesystem:
		if strings.TrimSpace(fsRoot) == "" {
			fsRoot = DefaultFSRoot
		}
		return NewFilesystem(fsRoot)
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}
