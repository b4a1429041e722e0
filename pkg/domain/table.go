package domain

import "fmt"

// Table is an immutable, in-memory collection of board-game records. It is
// built once and shared by every query; no method mutates it and accessors
// hand out copies.
type Table struct {
	records []Record
}

// NewTable copies records into a new table.
func NewTable(records []Record) *Table {
	cp := make([]Record, len(records))
	copy(cp, records)
	return &Table{records: cp}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// At returns the record at position i.
func (t *Table) At(i int) Record {
	return t.records[i]
}

// Records returns a copy of every row in stable input order.
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Each calls fn for every row in input order until fn returns false.
func (t *Table) Each(fn func(i int, r Record) bool) {
	if t == nil {
		return
	}
	for i, r := range t.records {
		if !fn(i, r) {
			return
		}
	}
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := make([]Record, 0, t.Len())
	t.Each(func(_ int, r Record) bool {
		if keep(r) {
			out = append(out, r)
		}
		return true
	})
	return &Table{records: out}
}

// Subset returns a new table holding the rows at the given positions, in the
// order the positions are listed.
func (t *Table) Subset(positions []int) (*Table, error) {
	out := make([]Record, 0, len(positions))
	for _, p := range positions {
		if p < 0 || p >= t.Len() {
			return nil, fmt.Errorf("row position %d out of range [0,%d)", p, t.Len())
		}
		out = append(out, t.records[p])
	}
	return &Table{records: out}, nil
}

// IDs returns the row identifiers in table order.
func (t *Table) IDs() []int {
	ids := make([]int, 0, t.Len())
	t.Each(func(_ int, r Record) bool {
		ids = append(ids, r.ID)
		return true
	})
	return ids
}
