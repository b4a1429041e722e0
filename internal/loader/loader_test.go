package loader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"boardgamestats/internal/blob"
	"boardgamestats/internal/loader"
)

const header = ",AvgRating,YearPublished,category,MinPlayers,MaxPlayers,MfgAgeRec,MfgPlaytime\n"

func sample() string {
	return header +
		"0,7.5,1995,strategy,2,4,12,90\n" +
		"1,6.25,1980,misc,1,5,8,30\n" +
		"2,8,2016.0,strategy,2,6,14,120.5\n" +
		"3,,NA,party,3,8,,\n"
}

func TestLoadParsesTypedRecords(t *testing.T) {
	tbl, err := loader.Load(strings.NewReader(sample()), loader.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tbl.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", tbl.Len())
	}
	first := tbl.At(0)
	if first.ID != 0 || first.AvgRating.Float != 7.5 || first.YearPublished.Int != 1995 || first.Category != "strategy" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.MinPlayers.Int != 2 || first.MaxPlayers.Int != 4 || first.MfgAgeRec.Int != 12 || first.MfgPlaytime.Float != 90 {
		t.Fatalf("unexpected player/age/playtime fields: %+v", first)
	}
	if got := tbl.At(2).YearPublished; !got.Valid || got.Int != 2016 {
		t.Fatalf("integral float year not accepted: %+v", got)
	}
	last := tbl.At(3)
	if last.AvgRating.Valid || last.YearPublished.Valid || last.MfgAgeRec.Valid || last.MfgPlaytime.Valid {
		t.Fatalf("expected nulls under skip policy: %+v", last)
	}
}

func TestLoadStrictPolicyRejectsNulls(t *testing.T) {
	_, err := loader.Load(strings.NewReader(sample()), loader.Options{NullPolicy: loader.NullStrict})
	var le *loader.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !errors.Is(err, loader.ErrNullValue) || le.Column != "AvgRating" || le.Row != 4 {
		t.Fatalf("unexpected error detail: %+v", le)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	csv := ",AvgRating,YearPublished,category,MinPlayers,MaxPlayers,MfgAgeRec\n0,7,2000,x,1,2,3\n"
	_, err := loader.Load(strings.NewReader(csv), loader.Options{})
	var le *loader.LoadError
	if !errors.As(err, &le) || !errors.Is(err, loader.ErrMissingColumn) {
		t.Fatalf("expected missing column error, got %v", err)
	}
	if le.Column != "MfgPlaytime" {
		t.Fatalf("expected MfgPlaytime to be named, got %q", le.Column)
	}
	if !strings.Contains(err.Error(), "MfgPlaytime") {
		t.Fatalf("diagnostic should name the column: %v", err)
	}
}

func TestLoadMalformedValue(t *testing.T) {
	csv := header + "0,7.5,1995,strategy,2,4,12,90\n1,great,1990,party,2,4,8,30\n"
	_, err := loader.Load(strings.NewReader(csv), loader.Options{})
	var le *loader.LoadError
	if !errors.As(err, &le) || !errors.Is(err, loader.ErrMalformedValue) {
		t.Fatalf("expected malformed value error, got %v", err)
	}
	if le.Column != "AvgRating" || le.Row != 2 || le.Value != "great" {
		t.Fatalf("unexpected error detail: %+v", le)
	}

	csv = header + "0,7.5,1995.5,strategy,2,4,12,90\n"
	if _, err := loader.Load(strings.NewReader(csv), loader.Options{}); !errors.Is(err, loader.ErrMalformedValue) {
		t.Fatalf("fractional year should be malformed, got %v", err)
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	csv := header + "5,7.5,1995,strategy,2,4,12,90\n5,6,1990,party,2,4,8,30\n"
	if _, err := loader.Load(strings.NewReader(csv), loader.Options{}); !errors.Is(err, loader.ErrDuplicateID) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestLoadEmptyInput(t *testing.T) {
	if _, err := loader.Load(strings.NewReader(""), loader.Options{}); !errors.Is(err, loader.ErrEmptyTable) {
		t.Fatalf("expected empty table error, got %v", err)
	}
}

func TestLoadFileAndBlobAgree(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "games.csv")
	if err := os.WriteFile(path, []byte(sample()), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fromFile, err := loader.LoadFile(path, loader.Options{})
	if err != nil {
		t.Fatalf("load file: %v", err)
	}

	store := blob.NewMemory()
	ctx := context.Background()
	if _, err := store.Put(ctx, "datasets/games.csv", strings.NewReader(sample()), blob.PutOptions{ContentType: "text/csv"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	fromBlob, err := loader.LoadBlob(ctx, store, "datasets/games.csv", loader.Options{})
	if err != nil {
		t.Fatalf("load blob: %v", err)
	}
	a, b := fromFile.Records(), fromBlob.Records()
	if len(a) != len(b) {
		t.Fatalf("row count mismatch %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}

	if _, err := loader.LoadFile(filepath.Join(dir, "absent.csv"), loader.Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, err := loader.LoadBlob(ctx, store, "datasets/absent.csv", loader.Options{}); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected blob not found, got %v", err)
	}
}

func TestParseNullPolicy(t *testing.T) {
	for in, want := range map[string]loader.NullPolicy{"": loader.NullSkip, "SKIP": loader.NullSkip, " strict ": loader.NullStrict} {
		got, err := loader.ParseNullPolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseNullPolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := loader.ParseNullPolicy("drop"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
