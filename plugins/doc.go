// Package plugins hosts plugin implementation subpackages. It contains no
// runtime code; the architecture test alongside it keeps plugin packages
// independent of storage, loading and transport so a template only ever
// sees the table handed to its binder.
package plugins
