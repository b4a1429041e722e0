package datasets

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"boardgamestats/internal/blob"
	"boardgamestats/internal/core"
	"boardgamestats/pkg/datasetapi"
	"boardgamestats/pkg/domain"
)

func TestBlobObjectStoreIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	store := NewBlobObjectStore(blob.NewMemory(), 0)

	artifact, err := store.Put(ctx, "exports/a/rating_distribution.csv", []byte("bin\n1\n"), "text/csv", map[string]any{"rows": 1})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if artifact.Format != datasetapi.FormatCSV || artifact.SizeBytes != 6 {
		t.Fatalf("unexpected artifact %+v", artifact)
	}
	if artifact.Metadata["rows"] != "1" {
		t.Fatalf("metadata should be flattened to strings, got %+v", artifact.Metadata)
	}
	if _, err := store.Put(ctx, "exports/a/rating_distribution.csv", []byte("x"), "text/csv", nil); !errors.Is(err, ErrArtifactExists) {
		t.Fatalf("expected ErrArtifactExists, got %v", err)
	}

	_, payload, err := store.Get(ctx, "exports/a/rating_distribution.csv")
	if err != nil || string(payload) != "bin\n1\n" {
		t.Fatalf("get = %q, %v", payload, err)
	}

	if _, err := store.Put(ctx, "exports/b/rating_distribution.png", []byte{1}, "image/png", nil); err != nil {
		t.Fatalf("put png: %v", err)
	}
	listed, err := store.List(ctx, "exports/a/")
	if err != nil || len(listed) != 1 {
		t.Fatalf("list = %v, %v", listed, err)
	}

	existed, err := store.Delete(ctx, "exports/a/rating_distribution.csv")
	if err != nil || !existed {
		t.Fatalf("delete = %v, %v", existed, err)
	}
	if _, _, err := store.Get(ctx, "exports/a/rating_distribution.csv"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	cases := map[string]any{
		"":      nil,
		"x":     "x",
		"1.5":   1.5,
		"3":     3,
		"true":  true,
	}
	for want, in := range cases {
		if got := formatValue(in); got != want {
			t.Fatalf("formatValue(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestResultTableEscapesCells(t *testing.T) {
	desc := core.DatasetTemplateDescriptor{Title: "Spiele & Zeit"}
	columns := []datasetapi.Column{{Name: "era", Type: datasetapi.TypeString}, {Name: "mean", Type: datasetapi.TypeNumber}}
	result := core.DatasetRunResult{Rows: []map[string]any{
		{"era": "<1985", "mean": domain.None()},
		{"era": "2016+", "mean": 7.25},
	}}
	var buf bytes.Buffer
	if err := ResultTable(desc, columns, result).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	body := buf.String()
	for _, want := range []string{
		"<title>Spiele &amp; Zeit</title>",
		"<th>era</th><th>mean</th>",
		"<tr><td>&lt;1985</td><td>no data</td></tr>",
		"<tr><td>2016+</td><td>7.25</td></tr>",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("html missing %q in %s", want, body)
		}
	}
}
