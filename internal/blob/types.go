// Package blob is the only entry point to object storage for the rest of the
// module. It re-exports the core contract and selects drivers from the
// environment.
package blob

import (
	"boardgamestats/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrInvalidKey  = core.ErrInvalidKey
)
