package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"boardgamestats/internal/blob"
	"boardgamestats/internal/logging"
	"boardgamestats/pkg/domain"
)

// Options configures a load.
type Options struct {
	NullPolicy NullPolicy
}

// LoadFile opens path and loads it.
func LoadFile(path string, opts Options) (*domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()
	t, err := Load(f, opts)
	if err != nil {
		return nil, err
	}
	logging.WithComponent("loader").Info("dataset loaded", "path", path, "rows", t.Len(), "null_policy", string(opts.policy()))
	return t, nil
}

// LoadBlob reads the dataset stored under key.
func LoadBlob(ctx context.Context, store blob.Store, key string, opts Options) (*domain.Table, error) {
	info, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset blob %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	t, err := Load(rc, opts)
	if err != nil {
		return nil, err
	}
	logging.WithComponent("loader").Info("dataset loaded",
		"blob_driver", string(store.Driver()), "key", info.Key, "etag", info.ETag, "rows", t.Len())
	return t, nil
}

// Load parses CSV from r. The first column is the row identifier; the
// remaining required columns are located by header name.
func Load(r io.Reader, opts Options) (*domain.Table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(NullTokens),
	)
	if df.Err != nil {
		if strings.Contains(df.Err.Error(), "empty DataFrame") {
			return nil, &LoadError{Err: ErrEmptyTable}
		}
		return nil, &LoadError{Err: fmt.Errorf("%w: %v", ErrMalformedValue, df.Err)}
	}
	names := df.Names()
	if len(names) == 0 {
		return nil, &LoadError{Err: ErrEmptyTable}
	}
	present := make(map[string]struct{}, len(names))
	for _, n := range names[1:] {
		present[n] = struct{}{}
	}
	for _, col := range domain.RequiredColumns {
		if _, ok := present[col]; !ok {
			return nil, &LoadError{Column: col, Err: ErrMissingColumn}
		}
	}

	p := parser{policy: opts.policy(), rows: df.Nrow()}
	ids := p.column(df.Col(names[0]), names[0])
	rating := p.column(df.Col(domain.ColumnAvgRating), domain.ColumnAvgRating)
	year := p.column(df.Col(domain.ColumnYearPublished), domain.ColumnYearPublished)
	category := p.column(df.Col(domain.ColumnCategory), domain.ColumnCategory)
	minPlayers := p.column(df.Col(domain.ColumnMinPlayers), domain.ColumnMinPlayers)
	maxPlayers := p.column(df.Col(domain.ColumnMaxPlayers), domain.ColumnMaxPlayers)
	age := p.column(df.Col(domain.ColumnMfgAgeRec), domain.ColumnMfgAgeRec)
	playtime := p.column(df.Col(domain.ColumnMfgPlaytime), domain.ColumnMfgPlaytime)

	records := make([]domain.Record, p.rows)
	seen := make(map[int]int, p.rows)
	for i := 0; i < p.rows; i++ {
		id, err := p.id(ids, i)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[id.Int]; dup {
			return nil, &LoadError{Column: ids.name, Row: i + 1, Value: ids.values[i],
				Err: fmt.Errorf("%w: first seen on row %d", ErrDuplicateID, prev)}
		}
		seen[id.Int] = i + 1
		rec := domain.Record{ID: id.Int}
		if rec.AvgRating, err = p.float(rating, i); err != nil {
			return nil, err
		}
		if rec.YearPublished, err = p.int(year, i); err != nil {
			return nil, err
		}
		if rec.Category, err = p.str(category, i); err != nil {
			return nil, err
		}
		if rec.MinPlayers, err = p.int(minPlayers, i); err != nil {
			return nil, err
		}
		if rec.MaxPlayers, err = p.int(maxPlayers, i); err != nil {
			return nil, err
		}
		if rec.MfgAgeRec, err = p.int(age, i); err != nil {
			return nil, err
		}
		if rec.MfgPlaytime, err = p.float(playtime, i); err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return domain.NewTable(records), nil
}

func (o Options) policy() NullPolicy {
	if o.NullPolicy == "" {
		return NullSkip
	}
	return o.NullPolicy
}

type column struct {
	name   string
	values []string
	null   []bool
}

type parser struct {
	policy NullPolicy
	rows   int
}

func (p parser) column(s series.Series, name string) column {
	return column{name: name, values: s.Records(), null: s.IsNaN()}
}

func (p parser) missing(c column, i int) (bool, error) {
	if !c.null[i] {
		return false, nil
	}
	if p.policy == NullStrict {
		return true, &LoadError{Column: c.name, Row: i + 1, Value: c.values[i], Err: ErrNullValue}
	}
	return true, nil
}

func (p parser) malformed(c column, i int, err error) error {
	return &LoadError{Column: c.name, Row: i + 1, Value: c.values[i], Err: fmt.Errorf("%w: %v", ErrMalformedValue, err)}
}

// id is never nullable regardless of policy.
func (p parser) id(c column, i int) (domain.NullInt, error) {
	if c.null[i] {
		return domain.NullInt{}, &LoadError{Column: c.name, Row: i + 1, Value: c.values[i], Err: ErrNullValue}
	}
	v, err := parseInt(c.values[i])
	if err != nil {
		return domain.NullInt{}, p.malformed(c, i, err)
	}
	return domain.Int(v), nil
}

func (p parser) float(c column, i int) (domain.NullFloat, error) {
	if null, err := p.missing(c, i); null {
		return domain.NullFloat{}, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(c.values[i]), 64)
	if err != nil {
		return domain.NullFloat{}, p.malformed(c, i, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.NullFloat{}, p.malformed(c, i, errors.New("not a finite number"))
	}
	return domain.Float(v), nil
}

func (p parser) int(c column, i int) (domain.NullInt, error) {
	if null, err := p.missing(c, i); null {
		return domain.NullInt{}, err
	}
	v, err := parseInt(c.values[i])
	if err != nil {
		return domain.NullInt{}, p.malformed(c, i, err)
	}
	return domain.Int(v), nil
}

func (p parser) str(c column, i int) (string, error) {
	if null, err := p.missing(c, i); null {
		return "", err
	}
	return strings.TrimSpace(c.values[i]), nil
}

// parseInt accepts integral floats such as "1995.0", which is how pandas
// writes integer columns that contained nulls.
func parseInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("not an integer")
	}
	return int(f), nil
}
