package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	logger   *slog.Logger
	loggerMu sync.RWMutex
	logFile  *os.File
	isInited bool
	initOnce sync.Once
)

// LogLevel represents logging verbosity.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// ParseLevel maps a case-insensitive level name onto a LogLevel. Unknown
// names resolve to LevelInfo.
func ParseLevel(name string) LogLevel {
	switch LogLevel(strings.ToUpper(strings.TrimSpace(name))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "WARNING":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Config holds logger configuration.
type Config struct {
	Level      LogLevel
	OutputPath string // empty for stderr
	Format     string // "json" or "text"
	Writer     io.Writer
}

// Init installs the global logger. A second call without Close fails.
func Init(config Config) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if isInited {
		return fmt.Errorf("logger already initialized; call Close() first to reinitialize")
	}

	writer := config.Writer
	if writer == nil && config.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0o750); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		writer = file
		logFile = file
	}
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: slogLevel(config.Level)}
	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	logger = slog.New(handler)
	isInited = true
	return nil
}

// InitDefault installs an INFO text logger on stderr. Safe to call repeatedly.
func InitDefault() {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if isInited {
		return
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	isInited = true
}

// Close releases the log file, if any, and resets the logger so Init can be
// called again.
func Close() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if !isInited {
		return nil
	}
	var err error
	if logFile != nil {
		err = logFile.Close()
		logFile = nil
	}
	logger = nil
	isInited = false
	initOnce = sync.Once{}
	return err
}

// GetLogger returns the global logger, initialising defaults on first use.
func GetLogger() *slog.Logger {
	loggerMu.RLock()
	if isInited {
		l := logger
		loggerMu.RUnlock()
		return l
	}
	loggerMu.RUnlock()

	initOnce.Do(InitDefault)

	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
