package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn reports a required header that is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrMalformedValue reports a cell that cannot be converted to its column type.
	ErrMalformedValue = errors.New("malformed value")
	// ErrNullValue reports a missing cell rejected by the strict null policy.
	ErrNullValue = errors.New("null value")
	// ErrEmptyTable reports an input without a header row.
	ErrEmptyTable = errors.New("empty input")
	// ErrDuplicateID reports two rows sharing an identifier.
	ErrDuplicateID = errors.New("duplicate row identifier")
)

// LoadError describes why a source file was rejected. Row is the 1-based
// data row (the header is not counted) and is zero for schema errors.
type LoadError struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("load: column %q row %d value %q: %v", e.Column, e.Row, e.Value, e.Err)
	case e.Column != "":
		return fmt.Sprintf("load: column %q: %v", e.Column, e.Err)
	default:
		return fmt.Sprintf("load: %v", e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }
