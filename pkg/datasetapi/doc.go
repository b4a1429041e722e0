// Package datasetapi defines the contract between dataset plugins and the
// host: templates, parameters, columns, output formats, and the binder and
// runner functions that produce rows from the loaded board-game table.
package datasetapi
