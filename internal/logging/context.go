package logging

import "log/slog"

// WithComponent returns a logger tagged with the subsystem name.
//
//	log := logging.WithComponent("loader")
//	log.Info("table loaded", "rows", n)
func WithComponent(name string) *slog.Logger {
	return GetLogger().With("component", name)
}

// WithTemplate returns a logger tagged with a dataset template slug.
func WithTemplate(slug string) *slog.Logger {
	return GetLogger().With("template", slug)
}

// WithExport returns a logger tagged with an export identifier and the
// template it materialises.
func WithExport(id, slug string) *slog.Logger {
	return GetLogger().With("export_id", id, "template", slug)
}
