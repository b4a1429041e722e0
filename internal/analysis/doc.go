// Package analysis is the dataset query layer: pure functions that turn the
// board-game table into the datasets behind each dashboard question.
//
// Every function reads an immutable *domain.Table, never mutates it and is
// idempotent. Aggregates over groups that may be empty are reported as
// domain.OptionalFloat. Rows whose fields required by a query are null are
// left out of that query only.
package analysis
