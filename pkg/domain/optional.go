package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// NoData is the textual rendering of an aggregate computed over zero rows.
const NoData = "no data"

// OptionalFloat is the result of an aggregate over a group that may be empty.
// An invalid value is reported as "no data" in text and null in JSON; it is
// never rendered as zero or NaN.
type OptionalFloat struct {
	Value float64
	Valid bool
}

// Some wraps a computed aggregate. NaN and infinities collapse to no data.
func Some(v float64) OptionalFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return OptionalFloat{}
	}
	return OptionalFloat{Value: v, Valid: true}
}

// None returns the "no data" value.
func None() OptionalFloat { return OptionalFloat{} }

// String implements fmt.Stringer.
func (o OptionalFloat) String() string {
	if !o.Valid {
		return NoData
	}
	return strconv.FormatFloat(o.Value, 'g', -1, 64)
}

// MarshalJSON implements json.Marshaler.
func (o OptionalFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = OptionalFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Mean returns the arithmetic mean of values, or no data when values is empty.
func Mean(values []float64) OptionalFloat {
	if len(values) == 0 {
		return None()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Some(sum / float64(len(values)))
}
