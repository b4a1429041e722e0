// Package loader reads the board-game CSV into an immutable domain.Table.
//
// The file is parsed with gota as an all-string frame so that every cell can
// be converted with a precise diagnostic. The schema is checked once: a
// missing column, an unparsable number or (under the strict null policy) a
// missing value aborts the load with a *LoadError.
package loader
