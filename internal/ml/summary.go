package ml

import (
	"math"

	"har-report/internal/dataset"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FeatureStats describes the distribution of one kept feature.
type FeatureStats struct {
	Name              string  `json:"name"`
	Mean              float64 `json:"mean"`
	StandardDeviation float64 `json:"standard_deviation"`
	MinValue          float64 `json:"min_value"`
	MaxValue          float64 `json:"max_value"`
	Median            float64 `json:"median"`
	Missing           int     `json:"missing"`
}

// Summarize computes FeatureStats over the present cells of each feature.
func Summarize(t *dataset.Table, features []string) ([]FeatureStats, error) {
	out := make([]FeatureStats, 0, len(features))
	for _, name := range features {
		values, err := t.Floats(name)
		if err != nil {
			return nil, err
		}

		present := make([]float64, 0, len(values))
		for _, v := range values {
			if !math.IsNaN(v) {
				present = append(present, v)
			}
		}

		fs := FeatureStats{Name: name, Missing: len(values) - len(present)}
		if len(present) > 0 {
			fs.Mean = stat.Mean(present, nil)
			fs.MinValue = floats.Min(present)
			fs.MaxValue = floats.Max(present)
			fs.Median = median(present)
		}
		if len(present) > 1 {
			fs.StandardDeviation = stat.StdDev(present, nil)
		}
		out = append(out, fs)
	}
	return out, nil
}
