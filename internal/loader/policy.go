package loader

import (
	"fmt"
	"strings"
)

// NullPolicy decides what happens to missing cells in numeric columns.
type NullPolicy string

const (
	// NullSkip loads missing cells as nulls; each query drops rows whose
	// required fields are null.
	NullSkip NullPolicy = "skip"
	// NullStrict rejects any missing cell in a required column.
	NullStrict NullPolicy = "strict"
)

// ParseNullPolicy maps a configuration value onto a NullPolicy. The empty
// string selects NullSkip.
func ParseNullPolicy(s string) (NullPolicy, error) {
	switch NullPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", NullSkip:
		return NullSkip, nil
	case NullStrict:
		return NullStrict, nil
	default:
		return "", fmt.Errorf("unknown null policy %q (want skip or strict)", s)
	}
}

// NullTokens are the cell spellings treated as missing.
var NullTokens = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "<nil>"}
