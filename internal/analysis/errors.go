package analysis

import "errors"

var (
	// ErrInvalidBins is returned when a histogram is requested with fewer than one bin.
	ErrInvalidBins = errors.New("bin count must be at least 1")
	// ErrSampleSizeOutOfRange is returned when a sample size lies outside
	// [MinSampleSize, MaxSampleSize].
	ErrSampleSizeOutOfRange = errors.New("sample size out of range")
	// ErrSampleExceedsPopulation is returned when more rows are requested
	// than the table holds.
	ErrSampleExceedsPopulation = errors.New("sample size exceeds population")
)
