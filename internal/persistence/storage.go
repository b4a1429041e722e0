// Package persistence selects the audit store driver from the environment.
package persistence

import (
	"context"
	"fmt"
	"os"

	"boardgamestats/internal/audit"
	"boardgamestats/internal/infra/persistence/memory"
	"boardgamestats/internal/infra/persistence/postgres"
	"boardgamestats/internal/infra/persistence/sqlite"
)

// AuditDriver enumerates supported audit stores.
type AuditDriver string

const (
	AuditMemory   AuditDriver = memory.Driver
	AuditSQLite   AuditDriver = sqlite.Driver
	AuditPostgres AuditDriver = postgres.Driver
)

// Environment variables read by OpenAuditStore.
const (
	EnvAuditDriver = "BGSTATS_AUDIT_DRIVER"
	EnvSQLitePath  = "BGSTATS_SQLITE_PATH"
	EnvPostgresDSN = "BGSTATS_POSTGRES_DSN"
)

// AuditConfig carries explicit driver settings.
type AuditConfig struct {
	Driver      AuditDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenAuditStore opens the store named by BGSTATS_AUDIT_DRIVER, defaulting to
// memory.
func OpenAuditStore(ctx context.Context) (audit.Store, error) {
	return OpenAuditStoreWith(ctx, AuditConfig{
		Driver:      AuditDriver(os.Getenv(EnvAuditDriver)),
		SQLitePath:  os.Getenv(EnvSQLitePath),
		PostgresDSN: os.Getenv(EnvPostgresDSN),
	})
}

// OpenAuditStoreWith opens the store described by cfg.
func OpenAuditStoreWith(ctx context.Context, cfg AuditConfig) (audit.Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = AuditMemory
	}
	switch driver {
	case AuditMemory:
		return memory.NewStore(), nil
	case AuditSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath)
	case AuditPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown audit driver %s", driver)
	}
}
