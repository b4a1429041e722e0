package domain

import (
	"encoding/json"
	"math"
	"testing"
)

func TestOptionalFloatRendering(t *testing.T) {
	if got := None().String(); got != NoData {
		t.Fatalf("None().String() = %q", got)
	}
	if got := Some(7.25).String(); got != "7.25" {
		t.Fatalf("Some(7.25).String() = %q", got)
	}
	if Some(math.NaN()).Valid || Some(math.Inf(1)).Valid {
		t.Fatalf("NaN and Inf must collapse to no data")
	}

	b, err := json.Marshal(map[string]OptionalFloat{"a": Some(1.5), "b": None()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":1.5,"b":null}` {
		t.Fatalf("unexpected json %s", b)
	}
	var decoded map[string]OptionalFloat
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded["a"].Valid || decoded["a"].Value != 1.5 || decoded["b"].Valid {
		t.Fatalf("unexpected decode %+v", decoded)
	}
}

func TestMean(t *testing.T) {
	if Mean(nil).Valid {
		t.Fatalf("mean of nothing must be no data")
	}
	if m := Mean([]float64{7, 8, 9}); !m.Valid || m.Value != 8 {
		t.Fatalf("Mean = %+v", m)
	}
}

func TestNullableCellsJSON(t *testing.T) {
	rec := Record{ID: 3, AvgRating: Float(7.5), Category: "strategy", MaxPlayers: Int(4)}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Record
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != rec {
		t.Fatalf("round trip changed record: %+v vs %+v", back, rec)
	}
	if back.YearPublished.Valid || back.MfgPlaytime.Valid {
		t.Fatalf("missing cells must stay null")
	}
	if !(Record{Category: MiscCategory}).Uncategorized() {
		t.Fatalf("misc record should be uncategorized")
	}
}

func TestTableIsImmutable(t *testing.T) {
	src := []Record{{ID: 1, Category: "a"}, {ID: 2, Category: "b"}, {ID: 3, Category: "a"}}
	tbl := NewTable(src)
	src[0].Category = "changed"
	if tbl.At(0).Category != "a" {
		t.Fatalf("table shares backing array with caller")
	}
	records := tbl.Records()
	records[1].Category = "changed"
	if tbl.At(1).Category != "b" {
		t.Fatalf("Records leaks internal slice")
	}

	filtered := tbl.Filter(func(r Record) bool { return r.Category == "a" })
	if got := filtered.IDs(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("Filter IDs = %v", got)
	}
	if tbl.Len() != 3 {
		t.Fatalf("Filter mutated source table")
	}

	sub, err := tbl.Subset([]int{2, 0})
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	if got := sub.IDs(); got[0] != 3 || got[1] != 1 {
		t.Fatalf("Subset order = %v", got)
	}
	if _, err := tbl.Subset([]int{3}); err == nil {
		t.Fatalf("expected out of range error")
	}

	var nilTable *Table
	if nilTable.Len() != 0 || nilTable.Records() != nil {
		t.Fatalf("nil table should be empty")
	}
}
