package ml

import (
	"fmt"
	"math"
	"sort"

	"har-report/internal/dataset"

	"github.com/sjwhitworth/golearn/base"
	"gonum.org/v1/gonum/stat"
)

// Imputer fills missing feature cells with medians learned from one table.
type Imputer struct {
	Medians map[string]float64 `json:"medians"`
}

// FitImputer learns the median of every feature over its present cells. A
// column with no present cells gets 0.
func FitImputer(t *dataset.Table, features []string) (*Imputer, error) {
	imp := &Imputer{Medians: make(map[string]float64, len(features))}
	for _, name := range features {
		values, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		imp.Medians[name] = median(values)
	}
	return imp, nil
}

// Fill returns values with NaN cells replaced by the column median.
func (imp *Imputer) Fill(name string, values []float64) []float64 {
	m := imp.Medians[name]
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			v = m
		}
		out[i] = v
	}
	return out
}

func median(values []float64) float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return 0
	}
	sort.Float64s(present)
	return stat.Quantile(0.5, stat.Empirical, present, nil)
}

// Schema fixes the golearn attributes shared by every table of a run, so
// instances built from different tables agree on attribute identity and on
// the class value encoding.
type Schema struct {
	Features []string
	Label    string
	Classes  []string

	attrs []*base.FloatAttribute
	class *base.CategoricalAttribute
}

// NewSchema declares features as float attributes and label as the class
// attribute with the given class values.
func NewSchema(features []string, label string, classes []string) (*Schema, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("schema for %s needs at least one class", label)
	}
	s := &Schema{
		Features: append([]string(nil), features...),
		Label:    label,
		Classes:  append([]string(nil), classes...),
		attrs:    make([]*base.FloatAttribute, len(features)),
	}
	for i, name := range features {
		s.attrs[i] = base.NewFloatAttribute(name)
	}
	s.class = base.NewCategoricalAttribute()
	s.class.SetName(label)
	for _, c := range s.Classes {
		s.class.GetSysValFromString(c)
	}
	return s, nil
}

// Classes returns the sorted distinct values of the label column.
func Classes(t *dataset.Table, label string) ([]string, error) {
	labels, err := t.Strings(label)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, l := range labels {
		set[l] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out, nil
}

// Instances converts t into golearn instances, filling missing cells with imp.
// When t has no label column every row gets the first class as a placeholder.
func (s *Schema) Instances(t *dataset.Table, imp *Imputer) (*base.DenseInstances, error) {
	rows := t.Nrow()
	if rows == 0 {
		return nil, dataset.ErrEmptyTable
	}

	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, len(s.attrs))
	for i, a := range s.attrs {
		specs[i] = inst.AddAttribute(a)
	}
	classSpec := inst.AddAttribute(s.class)
	if err := inst.AddClassAttribute(s.class); err != nil {
		return nil, fmt.Errorf("class attribute: %w", err)
	}
	if err := inst.Extend(rows); err != nil {
		return nil, fmt.Errorf("allocate %d rows: %w", rows, err)
	}

	for i, name := range s.Features {
		values, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		if imp != nil {
			values = imp.Fill(name, values)
		}
		for r, v := range values {
			inst.Set(specs[i], r, base.PackFloatToBytes(v))
		}
	}

	var labels []string
	if t.Has(s.Label) {
		var err error
		if labels, err = t.Strings(s.Label); err != nil {
			return nil, err
		}
	}
	for r := 0; r < rows; r++ {
		label := s.Classes[0]
		if labels != nil {
			label = labels[r]
		}
		inst.Set(classSpec, r, s.class.GetSysValFromString(label))
	}
	return inst, nil
}
