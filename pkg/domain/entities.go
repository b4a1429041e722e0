// Package domain defines the board-game record schema, the immutable table
// handle shared by every dataset query, and the value types used to report
// aggregates over possibly-empty groups.
package domain

import (
	"encoding/json"
	"strconv"
)

// MiscCategory is the category label the source dataset uses for
// uncategorised games.
const MiscCategory = "misc"

// Column names expected in the source file header.
const (
	ColumnAvgRating     = "AvgRating"
	ColumnYearPublished = "YearPublished"
	ColumnCategory      = "category"
	ColumnMinPlayers    = "MinPlayers"
	ColumnMaxPlayers    = "MaxPlayers"
	ColumnMfgAgeRec     = "MfgAgeRec"
	ColumnMfgPlaytime   = "MfgPlaytime"
)

// RequiredColumns lists the header names a source file must provide in
// addition to the leading identifier column.
var RequiredColumns = []string{
	ColumnAvgRating,
	ColumnYearPublished,
	ColumnCategory,
	ColumnMinPlayers,
	ColumnMaxPlayers,
	ColumnMfgAgeRec,
	ColumnMfgPlaytime,
}

// Record is one row of the board-game table.
type Record struct {
	ID            int       `json:"id"`
	AvgRating     NullFloat `json:"avg_rating"`
	YearPublished NullInt   `json:"year_published"`
	Category      string    `json:"category"`
	MinPlayers    NullInt   `json:"min_players"`
	MaxPlayers    NullInt   `json:"max_players"`
	MfgAgeRec     NullInt   `json:"mfg_age_rec"`
	MfgPlaytime   NullFloat `json:"mfg_playtime"`
}

// Uncategorized reports whether the record carries the "misc" label.
func (r Record) Uncategorized() bool { return r.Category == MiscCategory }

// NullFloat is a float cell that may be missing in the source file.
type NullFloat struct {
	Float float64
	Valid bool
}

// Float wraps a present float value.
func Float(v float64) NullFloat { return NullFloat{Float: v, Valid: true} }

// MarshalJSON renders missing values as null.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float)
}

// UnmarshalJSON accepts a number or null.
func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}

// NullInt is an integer cell that may be missing in the source file.
type NullInt struct {
	Int   int
	Valid bool
}

// Int wraps a present integer value.
func Int(v int) NullInt { return NullInt{Int: v, Valid: true} }

// MarshalJSON renders missing values as null.
func (n NullInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(n.Int)), nil
}

// UnmarshalJSON accepts an integer or null.
func (n *NullInt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullInt{}
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Int(v)
	return nil
}
