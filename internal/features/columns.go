package features

import (
	"fmt"

	"har-report/internal/common"
	"har-report/internal/dataset"

	"github.com/rs/zerolog/log"
)

// NamedColumns drops an explicit list of columns. Names the table does not
// have are skipped.
type NamedColumns struct {
	name    string
	columns map[string]struct{}
}

func NewNamedColumns(name string, columns []string) *NamedColumns {
	set := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return &NamedColumns{name: name, columns: set}
}

func (f *NamedColumns) Name() string { return f.name }

func (f *NamedColumns) Apply(t *dataset.Table, candidates []string) ([]string, []dataset.Drop, error) {
	kept := make([]string, 0, len(candidates))
	var dropped []dataset.Drop
	for _, name := range candidates {
		if _, ok := f.columns[name]; ok {
			dropped = append(dropped, dataset.Drop{Column: name, Filter: f.name, Reason: "listed as irrelevant"})
			continue
		}
		kept = append(kept, name)
	}
	for c := range f.columns {
		if !t.Has(c) {
			log.Debug().Str("column", c).Msg("Irrelevant column not present")
		}
	}
	return kept, dropped, nil
}

// Missingness drops columns whose missing fraction reaches Threshold.
type Missingness struct {
	Threshold float64
}

func NewMissingness(threshold float64) *Missingness {
	return &Missingness{Threshold: threshold}
}

func (f *Missingness) Name() string { return common.FilterMissingness }

func (f *Missingness) Apply(t *dataset.Table, candidates []string) ([]string, []dataset.Drop, error) {
	kept := make([]string, 0, len(candidates))
	var dropped []dataset.Drop
	for _, name := range candidates {
		frac, err := t.MissingFraction(name)
		if err != nil {
			return nil, nil, err
		}
		if frac >= f.Threshold {
			dropped = append(dropped, dataset.Drop{
				Column: name,
				Filter: f.Name(),
				Reason: fmt.Sprintf("%.1f%% missing", 100*frac),
			})
			continue
		}
		kept = append(kept, name)
	}
	return kept, dropped, nil
}

// NumericOnly drops columns that were not detected as numeric.
type NumericOnly struct{}

func NewNumericOnly() *NumericOnly { return &NumericOnly{} }

func (f *NumericOnly) Name() string { return common.FilterNonNumeric }

func (f *NumericOnly) Apply(t *dataset.Table, candidates []string) ([]string, []dataset.Drop, error) {
	kept := make([]string, 0, len(candidates))
	var dropped []dataset.Drop
	for _, name := range candidates {
		if !t.Has(name) {
			return nil, nil, fmt.Errorf("%w: %s", dataset.ErrMissingColumn, name)
		}
		if t.IsNumeric(name) {
			kept = append(kept, name)
			continue
		}
		dropped = append(dropped, dataset.Drop{Column: name, Filter: f.Name(), Reason: "not numeric"})
	}
	return kept, dropped, nil
}
