package datasets

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"boardgamestats/internal/charts"
	"boardgamestats/internal/core"
	"boardgamestats/pkg/datasetapi"
	"boardgamestats/pkg/domain"
)

var exportFormats = []core.DatasetFormat{
	datasetapi.FormatJSON,
	datasetapi.FormatCSV,
	datasetapi.FormatParquet,
	datasetapi.FormatPNG,
	datasetapi.FormatHTML,
}

type renderedArtifact struct {
	ContentType string
	Payload     []byte
}

func extension(format core.DatasetFormat) string {
	return string(format)
}

func materialize(format core.DatasetFormat, template core.DatasetTemplate, result core.DatasetRunResult) (renderedArtifact, error) {
	var buf bytes.Buffer
	var contentType string
	var err error
	switch format {
	case datasetapi.FormatJSON:
		contentType = "application/json"
		err = json.NewEncoder(&buf).Encode(result)
	case datasetapi.FormatCSV:
		contentType = "text/csv"
		err = WriteCSV(&buf, resultColumns(template, result), result)
	case datasetapi.FormatHTML:
		contentType = "text/html; charset=utf-8"
		err = ResultTable(template.Descriptor(), resultColumns(template, result), result).Render(context.Background(), &buf)
	case datasetapi.FormatParquet:
		contentType = "application/vnd.apache.parquet"
		err = writeParquet(&buf, resultColumns(template, result), result)
	case datasetapi.FormatPNG:
		contentType = "image/png"
		err = charts.Render(&buf, charts.SpecFor(template.Descriptor()), result)
	default:
		return renderedArtifact{}, fmt.Errorf("unsupported export format %s", format)
	}
	if err != nil {
		return renderedArtifact{}, fmt.Errorf("render %s: %w", format, err)
	}
	return renderedArtifact{ContentType: contentType, Payload: buf.Bytes()}, nil
}

func resultColumns(template core.DatasetTemplate, result core.DatasetRunResult) []datasetapi.Column {
	if len(result.Schema) > 0 {
		return result.Schema
	}
	return template.Columns
}

// WriteCSV writes a header row followed by one record per result row.
func WriteCSV(w io.Writer, columns []datasetapi.Column, result core.DatasetRunResult) error {
	writer := csv.NewWriter(w)
	if err := writeCSV(writer, columns, result); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeCSV(writer *csv.Writer, columns []datasetapi.Column, result core.DatasetRunResult) error {
	header := make([]string, len(columns))
	for i, column := range columns {
		header[i] = column.Name
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range result.Rows {
		record := make([]string, len(columns))
		for i, column := range columns {
			record[i] = formatValue(row[column.Name])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// formatValue renders one cell. Empty aggregates become "no data".
func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case bool:
		return strconv.FormatBool(value)
	case fmt.Stringer:
		return value.String()
	}
	return fmt.Sprint(v)
}

// parquetSchema maps the result columns onto optional leaves so empty
// aggregates can be stored as nulls.
func parquetSchema(columns []datasetapi.Column) *parquet.Schema {
	group := parquet.Group{}
	for _, column := range columns {
		var node parquet.Node
		switch column.Type {
		case datasetapi.TypeInteger:
			node = parquet.Int(64)
		case datasetapi.TypeNumber:
			node = parquet.Leaf(parquet.DoubleType)
		case datasetapi.TypeBoolean:
			node = parquet.Leaf(parquet.BooleanType)
		default:
			node = parquet.String()
		}
		group[column.Name] = parquet.Optional(node)
	}
	return parquet.NewSchema("dataset", group)
}

func writeParquet(w io.Writer, columns []datasetapi.Column, result core.DatasetRunResult) error {
	schema := parquetSchema(columns)
	types := make(map[string]string, len(columns))
	for _, column := range columns {
		types[column.Name] = column.Type
	}
	paths := schema.Columns()

	rows := make([]parquet.Row, 0, len(result.Rows))
	for _, source := range result.Rows {
		row := make(parquet.Row, len(paths))
		for idx, path := range paths {
			name := path[0]
			value, ok := parquetValue(types[name], source[name])
			if !ok {
				row[idx] = parquet.NullValue().Level(0, 0, idx)
				continue
			}
			row[idx] = value.Level(0, 1, idx)
		}
		rows = append(rows, row)
	}

	writer := parquet.NewWriter(w, schema)
	if _, err := writer.WriteRows(rows); err != nil {
		return err
	}
	return writer.Close()
}

func parquetValue(columnType string, v any) (parquet.Value, bool) {
	switch columnType {
	case datasetapi.TypeInteger:
		n, ok := numeric(v)
		if !ok {
			return parquet.Value{}, false
		}
		return parquet.Int64Value(int64(n)), true
	case datasetapi.TypeNumber:
		n, ok := numeric(v)
		if !ok {
			return parquet.Value{}, false
		}
		return parquet.DoubleValue(n), true
	case datasetapi.TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return parquet.Value{}, false
		}
		return parquet.BooleanValue(b), true
	}
	if v == nil {
		return parquet.Value{}, false
	}
	return parquet.ByteArrayValue([]byte(formatValue(v))), true
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case domain.OptionalFloat:
		return n.Value, n.Valid
	case domain.NullFloat:
		return n.Float, n.Valid
	case domain.NullInt:
		return float64(n.Int), n.Valid
	}
	return 0, false
}
