// Package features prunes the candidate feature columns of a training table.
// Filters run in sequence over column names; the result is a
// dataset.Selection that is replayed by name on every other table.
package features

import (
	"fmt"
	"time"

	"har-report/internal/common"
	"har-report/internal/dataset"

	"github.com/rs/zerolog/log"
)

// Filter removes columns from a candidate list. Kept columns preserve the
// order of candidates.
type Filter interface {
	Name() string
	Apply(t *dataset.Table, candidates []string) (kept []string, dropped []dataset.Drop, err error)
}

// MetricsTracker receives pruning observations.
type MetricsTracker interface {
	ColumnsDropped(filter string, n int)
	FeaturesKept(n int)
	StageDuration(stage string, d time.Duration)
}

// Options configures the default filter chain.
type Options struct {
	FreqCut           float64
	UniqueCut         float64
	Irrelevant        []string
	MissingThreshold  float64
	CorrelationCutoff float64
}

// Result is a fitted selection plus the diagnostics gathered on the way.
type Result struct {
	Selection   *dataset.Selection
	Variance    []VarianceMetric
	Correlation *CorrelationMatrix
}

// Pruner fits a Selection on a training table. Filters keep the diagnostics
// of their last run, so a Pruner must not be shared between goroutines.
type Pruner struct {
	label   string
	filters []Filter
	metrics MetricsTracker
}

func NewPruner(label string, metrics MetricsTracker, filters ...Filter) *Pruner {
	return &Pruner{label: label, filters: filters, metrics: metrics}
}

// NewDefaultPruner chains near-zero-variance, irrelevant-column, missingness,
// correlation and non-numeric filters.
func NewDefaultPruner(label string, opts Options, metrics MetricsTracker) *Pruner {
	return NewPruner(label, metrics,
		NewNearZeroVariance(opts.FreqCut, opts.UniqueCut),
		NewNamedColumns(common.FilterIrrelevant, opts.Irrelevant),
		NewMissingness(opts.MissingThreshold),
		NewCorrelation(opts.CorrelationCutoff),
		NewNumericOnly(),
	)
}

// Fit runs every filter over the non-label columns of t.
func (p *Pruner) Fit(t *dataset.Table) (*Result, error) {
	if !t.Has(p.label) {
		return nil, fmt.Errorf("%w: label %s", dataset.ErrMissingColumn, p.label)
	}

	candidates := make([]string, 0, t.Ncol())
	for _, name := range t.Names() {
		if name != p.label {
			candidates = append(candidates, name)
		}
	}

	sel := &dataset.Selection{Label: p.label}
	res := &Result{Selection: sel}

	for _, f := range p.filters {
		start := time.Now()
		kept, dropped, err := f.Apply(t, candidates)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", f.Name(), err)
		}
		candidates = kept
		sel.Dropped = append(sel.Dropped, dropped...)

		if p.metrics != nil {
			p.metrics.ColumnsDropped(f.Name(), len(dropped))
			p.metrics.StageDuration("filter_"+f.Name(), time.Since(start))
		}
		log.Info().
			Str("filter", f.Name()).
			Int("dropped", len(dropped)).
			Int("remaining", len(kept)).
			Msg("Filter applied")

		switch v := f.(type) {
		case *NearZeroVariance:
			res.Variance = v.Metrics()
		case *Correlation:
			res.Correlation = v.Matrix()
		}
	}

	sel.Features = candidates
	if p.metrics != nil {
		p.metrics.FeaturesKept(len(candidates))
	}
	return res, nil
}
