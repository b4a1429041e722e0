// Package logging provides the process-wide structured logger.
//
// It wraps [log/slog] behind a single global instance so that level and
// destination are controlled from one place. Call Init once at startup:
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug, Format: "json"}); err != nil {
//	    log.Fatal(err)
//	}
//
// GetLogger lazily falls back to an INFO text logger on stderr when Init was
// never called, so packages that log during tests are safe.
//
// Child loggers carry structured fields for the subsystem at hand:
//
//	log := logging.WithTemplate(slug) // adds template field
//	log := logging.WithExport(id)     // adds export_id field
package logging
