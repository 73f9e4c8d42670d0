// Package dataset holds the observation tables of a run. A Table wraps a gota
// DataFrame and exposes the column-oriented access the pruning filters and the
// model fitters need.
//
// Column decisions are always replayed by name: tables loaded from different
// files are never assumed to share column order.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	// ErrMissingColumn is returned when a referenced column is absent.
	ErrMissingColumn = errors.New("column not found")
	// ErrEmptyTable is returned for inputs without data rows.
	ErrEmptyTable = errors.New("table has no rows")
)

// Table is an immutable observation table.
type Table struct {
	df dataframe.DataFrame
}

// NewTable wraps a DataFrame, surfacing any error gota recorded while building it.
func NewTable(df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("invalid dataframe: %w", df.Err)
	}
	return &Table{df: df}, nil
}

func (t *Table) Names() []string { return t.df.Names() }
func (t *Table) Nrow() int       { return t.df.Nrow() }
func (t *Table) Ncol() int       { return t.df.Ncol() }

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	for _, n := range t.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Column returns the named series.
func (t *Table) Column(name string) (series.Series, error) {
	if !t.Has(name) {
		return series.Series{}, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return t.df.Col(name), nil
}

// IsNumeric reports whether the named column was detected as Float or Int.
func (t *Table) IsNumeric(name string) bool {
	s, err := t.Column(name)
	if err != nil {
		return false
	}
	return s.Type() == series.Float || s.Type() == series.Int
}

// NumericColumns lists numeric column names in table order among candidates.
func (t *Table) NumericColumns(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if t.IsNumeric(name) {
			out = append(out, name)
		}
	}
	return out
}

// Floats returns the named column as float64 values, NaN marking missing or
// unparsable cells.
func (t *Table) Floats(name string) ([]float64, error) {
	s, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	return s.Float(), nil
}

// Strings returns the textual form of every cell in the named column.
func (t *Table) Strings(name string) ([]string, error) {
	s, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	return s.Records(), nil
}

// Values returns a comparable key for every cell in the named column. Numeric
// cells use the shortest exact float formatting, so values that differ below
// gota's fixed six-decimal rendering stay distinct. Other cells use their text.
func (t *Table) Values(name string) ([]string, error) {
	if !t.IsNumeric(name) {
		return t.Strings(name)
	}
	floats, err := t.Floats(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(floats))
	for i, v := range floats {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out, nil
}

// Missing returns a mask of missing cells in the named column.
func (t *Table) Missing(name string) ([]bool, error) {
	s, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	return s.IsNaN(), nil
}

// MissingFraction returns the share of missing cells in the named column.
func (t *Table) MissingFraction(name string) (float64, error) {
	mask, err := t.Missing(name)
	if err != nil {
		return 0, err
	}
	if len(mask) == 0 {
		return 0, nil
	}
	n := 0
	for _, m := range mask {
		if m {
			n++
		}
	}
	return float64(n) / float64(len(mask)), nil
}

// Rows returns a new table holding the given row indices, in that order.
func (t *Table) Rows(idx []int) (*Table, error) {
	if len(idx) == 0 {
		return nil, ErrEmptyTable
	}
	return NewTable(t.df.Subset(idx))
}

// Select returns a new table with exactly the named columns, in that order.
func (t *Table) Select(names []string) (*Table, error) {
	if missing := t.absent(names); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return NewTable(t.df.Select(names))
}

func (t *Table) absent(names []string) []string {
	present := make(map[string]struct{}, t.df.Ncol())
	for _, n := range t.df.Names() {
		present[n] = struct{}{}
	}
	var missing []string
	for _, n := range names {
		if _, ok := present[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}
