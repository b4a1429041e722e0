package datasetapi

import (
	"context"
	"fmt"
	"time"

	"boardgamestats/pkg/domain"
)

// Dialect names the language of Template.Query.
type Dialect string

// DialectDSL marks a query written in the pipeline notation used by the
// bundled templates, e.g. "games | group(year) | mean(playtime)".
const DialectDSL Dialect = "dsl"

// Format is an output encoding for run results and exports.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatPNG     Format = "png"
	FormatHTML    Format = "html"
)

// ParseFormat maps a case-insensitive name onto a Format.
func ParseFormat(name string) (Format, bool) {
	switch Format(lower(name)) {
	case FormatJSON:
		return FormatJSON, true
	case FormatCSV:
		return FormatCSV, true
	case FormatParquet:
		return FormatParquet, true
	case FormatPNG:
		return FormatPNG, true
	case FormatHTML:
		return FormatHTML, true
	}
	return "", false
}

// Scope identifies who asked for a run.
type Scope struct {
	Requestor string `json:"requestor"`
}

// Parameter types understood by ValidateParameters.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Parameter declares one run input. Minimum and Maximum bound numeric
// parameters inclusively.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Description string   `json:"description,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
	Example     any      `json:"example,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// Bound returns a pointer for Parameter.Minimum and Parameter.Maximum literals.
func Bound(v float64) *float64 { return &v }

// Column describes one field of the result rows.
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"`
}

// Metadata carries documentation and presentation hints. Annotations are
// free-form; the dashboard and chart renderer read well-known keys.
type Metadata struct {
	Source        string            `json:"source,omitempty"`
	Documentation string            `json:"documentation,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	Annotations   map[string]string `json:"annotations,omitempty"`
}

// Environment is the runtime state handed to binders.
type Environment struct {
	Table *domain.Table
	Now   func() time.Time
}

// Template is a plugin-contributed dataset definition.
type Template struct {
	Key           string
	Version       string
	Title         string
	Description   string
	Dialect       Dialect
	Query         string
	Parameters    []Parameter
	Columns       []Column
	Metadata      Metadata
	OutputFormats []Format
	Binder        Binder
}

// TemplateDescriptor is the serialisable view of a host template.
type TemplateDescriptor struct {
	Plugin        string      `json:"plugin"`
	Key           string      `json:"key"`
	Version       string      `json:"version"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Dialect       Dialect     `json:"dialect"`
	Query         string      `json:"query"`
	Parameters    []Parameter `json:"parameters"`
	Columns       []Column    `json:"columns"`
	Metadata      Metadata    `json:"metadata"`
	OutputFormats []Format    `json:"output_formats"`
	Slug          string      `json:"slug"`
}

// RunRequest is passed to a Runner with validated parameters.
type RunRequest struct {
	Template   TemplateDescriptor
	Parameters map[string]any
	Scope      Scope
}

// RunResult is a tabular dataset plus run metadata. Metadata carries values
// that are not rows, such as a fitted trend line.
type RunResult struct {
	Schema      []Column         `json:"schema"`
	Rows        []map[string]any `json:"rows"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	Format      Format           `json:"format"`
}

// Runner executes a bound template.
type Runner func(context.Context, RunRequest) (RunResult, error)

// Binder binds a template to the runtime environment.
type Binder func(Environment) (Runner, error)

// ParameterError reports a rejected parameter.
type ParameterError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e ParameterError) Error() string { return fmt.Sprintf("%s: %s", e.Name, e.Message) }

// QueryError wraps an error raised by a runner for invalid input that could
// only be detected against the data, such as a sample larger than the table.
// HTTP adapters map it to 400.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return e.Err.Error() }
func (e *QueryError) Unwrap() error { return e.Err }
