// Command bgstats loads the board-game CSV and prints one dataset.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"boardgamestats/internal/adapters/datasets"
	"boardgamestats/internal/config"
	"boardgamestats/internal/core"
	"boardgamestats/internal/loader"
	"boardgamestats/internal/logging"
	"boardgamestats/pkg/datasetapi"
	"boardgamestats/pkg/domain"
	"boardgamestats/plugins/boardgames"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

// paramFlags collects repeatable -param name=value pairs.
type paramFlags map[string]any

func (p paramFlags) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return strings.Join(parts, ",")
}

func (p paramFlags) Set(v string) error {
	name, value, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("want name=value, got %q", v)
	}
	p[strings.TrimSpace(name)] = strings.TrimSpace(value)
	return nil
}

func cli(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.FromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "configuration: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("bgstats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	params := paramFlags{}
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "path to the board-game CSV")
	dataset := fs.String("dataset", "", "dataset key or slug, e.g. rating_distribution")
	format := fs.String("format", "table", "output format: table, json or csv")
	list := fs.Bool("list", false, "list the available datasets and exit")
	strict := fs.Bool("strict", cfg.NullPolicy == loader.NullStrict, "reject rows with missing values")
	fs.Var(params, "param", "dataset parameter name=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *strict {
		cfg.NullPolicy = loader.NullStrict
	}
	switch *format {
	case "table", "json", "csv":
	default:
		_, _ = fmt.Fprintf(stderr, "unsupported format %q (want table, json or csv)\n", *format)
		return 2
	}
	if !*list && *dataset == "" {
		_, _ = fmt.Fprintln(stderr, "-dataset is required unless -list is given")
		return 2
	}

	logCfg := cfg.Logging()
	if logCfg.OutputPath == "" {
		logCfg.Writer = stderr
		logCfg.Level = logging.LevelWarn
	}
	if err := logging.Init(logCfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "configuration: %v\n", err)
		return 2
	}
	defer func() { _ = logging.Close() }()

	table, err := loader.LoadFile(cfg.DataPath, loader.Options{NullPolicy: cfg.NullPolicy})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load %s: %v\n", cfg.DataPath, err)
		return 1
	}
	svc, err := newService(table)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	if *list {
		return printCatalog(svc, stdout, stderr)
	}
	if err := runDataset(context.Background(), svc, *dataset, params, *format, stdout); err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		var queryErr *datasetapi.QueryError
		if errors.As(err, &queryErr) || errors.Is(err, errInvalidParameters) {
			return 2
		}
		return 1
	}
	return 0
}

func newService(table *domain.Table) (*core.Service, error) {
	svc, err := core.NewService(table, core.WithRunCacheSize(0))
	if err != nil {
		return nil, err
	}
	if _, err := svc.InstallPlugin(boardgames.New()); err != nil {
		return nil, fmt.Errorf("install plugin: %w", err)
	}
	return svc, nil
}

var errInvalidParameters = errors.New("invalid parameters")

func resolve(svc *core.Service, name string) (core.DatasetTemplate, bool) {
	if strings.Contains(name, "@") {
		return svc.ResolveDatasetTemplate(name)
	}
	return svc.ResolveDatasetKey(name)
}

func runDataset(ctx context.Context, svc *core.Service, name string, params paramFlags, format string, stdout io.Writer) error {
	template, ok := resolve(svc, name)
	if !ok {
		return fmt.Errorf("unknown dataset %q; use -list", name)
	}
	cleaned, errs := template.ValidateParameters(params)
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("%w: %s", errInvalidParameters, strings.Join(msgs, "; "))
	}
	result, _, err := template.Run(ctx, cleaned, datasetapi.Scope{Requestor: "cli"}, datasetapi.FormatJSON)
	if err != nil {
		return err
	}

	columns := result.Schema
	if len(columns) == 0 {
		columns = template.Columns
	}
	switch format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "csv":
		return datasets.WriteCSV(stdout, columns, result)
	default:
		printTable(stdout, template.Title, columns, result)
		return nil
	}
}

func printTable(w io.Writer, title string, columns []datasetapi.Column, result datasetapi.RunResult) {
	_, _ = fmt.Fprintln(w, title)
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	tw.SetHeader(header)
	for _, row := range result.Rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = cell(c, row[c.Name])
		}
		tw.Append(cells)
	}
	tw.Render()

	keys := make([]string, 0, len(result.Metadata))
	for k, v := range result.Metadata {
		switch v.(type) {
		case float64, int, bool, string, domain.OptionalFloat:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s: %v\n", k, result.Metadata[k])
	}
}

// cell applies the column's printf format to present numbers.
func cell(c datasetapi.Column, v any) string {
	if c.Format != "" {
		switch n := v.(type) {
		case float64:
			return fmt.Sprintf(c.Format, n)
		case domain.OptionalFloat:
			if n.Valid {
				return fmt.Sprintf(c.Format, n.Value)
			}
			return domain.NoData
		}
	}
	switch n := v.(type) {
	case nil:
		return ""
	case domain.OptionalFloat:
		return n.String()
	}
	return fmt.Sprint(v)
}

func printCatalog(svc *core.Service, stdout, stderr io.Writer) int {
	descriptors := svc.DatasetTemplates()
	datasetapi.SortTemplateDescriptors(descriptors)
	tw := tablewriter.NewWriter(stdout)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"key", "slug", "title", "parameters"})
	for _, d := range descriptors {
		names := make([]string, len(d.Parameters))
		for i, p := range d.Parameters {
			names[i] = p.Name
		}
		tw.Append([]string{d.Key, d.Slug, d.Title, strings.Join(names, ", ")})
	}
	tw.Render()
	if len(descriptors) == 0 {
		_, _ = fmt.Fprintln(stderr, "no datasets installed")
		return 1
	}
	return 0
}
