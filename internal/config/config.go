// Package config reads process configuration from BGSTATS_* environment
// variables. Blob and audit drivers read their own variables when opened.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"boardgamestats/internal/loader"
	"boardgamestats/internal/logging"
)

const (
	EnvDataPath     = "BGSTATS_DATA_PATH"
	EnvDataBlobKey  = "BGSTATS_DATA_BLOB_KEY"
	EnvNullPolicy   = "BGSTATS_NULL_POLICY"
	EnvHTTPAddr     = "BGSTATS_HTTP_ADDR"
	EnvLogLevel     = "BGSTATS_LOG_LEVEL"
	EnvLogFile      = "BGSTATS_LOG_FILE"
	EnvRunCacheSize = "BGSTATS_RUN_CACHE_SIZE"
)

const (
	DefaultDataPath     = "boardgamegeek.csv"
	DefaultHTTPAddr     = ":8080"
	DefaultRunCacheSize = 64
)

// Config is the resolved process configuration.
type Config struct {
	DataPath     string
	DataBlobKey  string
	NullPolicy   loader.NullPolicy
	HTTPAddr     string
	LogLevel     logging.LogLevel
	LogFile      string
	RunCacheSize int
}

// FromEnv resolves Config, applying defaults for unset variables.
func FromEnv() (Config, error) {
	cfg := Config{
		DataPath:     envOr(EnvDataPath, DefaultDataPath),
		DataBlobKey:  strings.TrimSpace(os.Getenv(EnvDataBlobKey)),
		HTTPAddr:     envOr(EnvHTTPAddr, DefaultHTTPAddr),
		LogLevel:     logging.ParseLevel(os.Getenv(EnvLogLevel)),
		LogFile:      strings.TrimSpace(os.Getenv(EnvLogFile)),
		RunCacheSize: DefaultRunCacheSize,
	}

	policy, err := loader.ParseNullPolicy(os.Getenv(EnvNullPolicy))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvNullPolicy, err)
	}
	cfg.NullPolicy = policy

	if raw := strings.TrimSpace(os.Getenv(EnvRunCacheSize)); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return Config{}, fmt.Errorf("%s: want a non-negative integer, got %q", EnvRunCacheSize, raw)
		}
		cfg.RunCacheSize = size
	}
	return cfg, nil
}

// Logging returns the logger settings derived from cfg. File output is
// JSON, stderr output is text.
func (c Config) Logging() logging.Config {
	lc := logging.Config{Level: c.LogLevel, OutputPath: c.LogFile, Format: "text"}
	if c.LogFile != "" {
		lc.Format = "json"
	}
	return lc
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
