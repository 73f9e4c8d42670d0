package features

import (
	"fmt"
	"sort"

	"har-report/internal/common"
	"har-report/internal/dataset"
)

// VarianceMetric describes how little a column varies.
type VarianceMetric struct {
	Column        string  `json:"column"`
	FreqRatio     float64 `json:"freqRatio"`
	PercentUnique float64 `json:"percentUnique"`
	ZeroVar       bool    `json:"zeroVar"`
	NZV           bool    `json:"nzv"`
}

// NearZeroVariance drops columns dominated by a single value.
type NearZeroVariance struct {
	FreqCut   float64
	UniqueCut float64
	metrics   []VarianceMetric
}

func NewNearZeroVariance(freqCut, uniqueCut float64) *NearZeroVariance {
	return &NearZeroVariance{FreqCut: freqCut, UniqueCut: uniqueCut}
}

func (f *NearZeroVariance) Name() string { return common.FilterNearZeroVariance }

// Metrics returns the per-column metrics of the last Apply, in candidate order.
func (f *NearZeroVariance) Metrics() []VarianceMetric { return f.metrics }

func (f *NearZeroVariance) Apply(t *dataset.Table, candidates []string) ([]string, []dataset.Drop, error) {
	f.metrics = make([]VarianceMetric, 0, len(candidates))
	kept := make([]string, 0, len(candidates))
	var dropped []dataset.Drop

	for _, name := range candidates {
		values, err := t.Values(name)
		if err != nil {
			return nil, nil, err
		}
		missing, err := t.Missing(name)
		if err != nil {
			return nil, nil, err
		}

		m := f.Evaluate(name, values, missing)
		f.metrics = append(f.metrics, m)
		if !m.NZV {
			kept = append(kept, name)
			continue
		}

		reason := fmt.Sprintf("freqRatio %.2f, %.2f%% unique", m.FreqRatio, m.PercentUnique)
		if m.ZeroVar {
			reason = "zero variance"
		}
		dropped = append(dropped, dataset.Drop{Column: name, Filter: f.Name(), Reason: reason})
	}
	return kept, dropped, nil
}

// Evaluate computes the metric for one column. Missing cells are excluded
// from the counts but not from the row total.
func (f *NearZeroVariance) Evaluate(name string, values []string, missing []bool) VarianceMetric {
	counts := make(map[string]int)
	for i, v := range values {
		if missing[i] {
			continue
		}
		counts[v]++
	}

	m := VarianceMetric{Column: name}
	if len(values) > 0 {
		m.PercentUnique = 100 * float64(len(counts)) / float64(len(values))
	}
	m.ZeroVar = len(counts) <= 1

	if len(counts) > 1 {
		freq := make([]int, 0, len(counts))
		for _, c := range counts {
			freq = append(freq, c)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(freq)))
		m.FreqRatio = float64(freq[0]) / float64(freq[1])
	}

	m.NZV = m.ZeroVar || (m.FreqRatio > f.FreqCut && m.PercentUnique <= f.UniqueCut)
	return m
}
