package ml

import (
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"har-report/internal/common"
	"har-report/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTable(t *testing.T, records [][]string) *dataset.Table {
	t.Helper()
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	require.NoError(t, w.WriteAll(records))
	tbl, err := dataset.ReadCSV(strings.NewReader(sb.String()), dataset.LoadOptions{
		Label:         "classe",
		MissingTokens: common.DefaultMissingTokens,
	})
	require.NoError(t, err)
	return tbl
}

func TestForestFeatures(t *testing.T) {
	tests := []struct {
		requested, p, want int
	}{
		{0, 52, 7},
		{0, 5, 2},
		{0, 1, 1},
		{3, 10, 3},
		{12, 10, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ForestFeatures(tt.requested, tt.p), "requested=%d p=%d", tt.requested, tt.p)
	}
}

func TestImputer(t *testing.T) {
	tbl := loadTable(t, [][]string{
		{"a", "b", "classe"},
		{"1", "NA", "A"},
		{"NA", "NA", "B"},
		{"5", "", "A"},
		{"3", "NA", "B"},
	})

	imp, err := FitImputer(tbl, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 3.0, imp.Medians["a"])
	assert.Equal(t, 0.0, imp.Medians["b"])

	filled := imp.Fill("a", []float64{math.NaN(), 7})
	assert.Equal(t, []float64{3, 7}, filled)

	_, err = FitImputer(tbl, []string{"absent"})
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestSchemaInstances(t *testing.T) {
	train := loadTable(t, [][]string{
		{"a", "b", "classe"},
		{"1", "0.5", "B"},
		{"NA", "1.5", "A"},
		{"3", "2.5", "B"},
	})
	classes, err := Classes(train, "classe")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, classes)

	schema, err := NewSchema([]string{"a", "b"}, "classe", classes)
	require.NoError(t, err)
	imp, err := FitImputer(train, schema.Features)
	require.NoError(t, err)

	inst, err := schema.Instances(train, imp)
	require.NoError(t, err)
	cols, rows := inst.Size()
	assert.Equal(t, 3, cols)
	assert.Equal(t, 3, rows)
	assert.Equal(t, []string{"B", "A", "B"}, Labels(inst))

	validation := loadTable(t, [][]string{
		{"problem_id", "b", "a"},
		{"1", "0.7", "2"},
		{"2", "NA", "NA"},
	})
	vinst, err := schema.Instances(validation, imp)
	require.NoError(t, err)
	_, rows = vinst.Size()
	assert.Equal(t, 2, rows)
	assert.Equal(t, []string{"A", "A"}, Labels(vinst))

	_, err = NewSchema([]string{"a"}, "classe", nil)
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	classes := []string{"A", "B", "C"}
	schema, err := NewSchema([]string{"f"}, "classe", classes)
	require.NoError(t, err)

	build := func(labels ...string) *dataset.Table {
		records := [][]string{{"f", "classe"}}
		for _, l := range labels {
			records = append(records, []string{"1", l})
		}
		return loadTable(t, records)
	}
	ref, err := schema.Instances(build("A", "A", "B", "B", "C"), nil)
	require.NoError(t, err)
	pred, err := schema.Instances(build("A", "B", "B", "B", "C"), nil)
	require.NoError(t, err)

	ev, err := Evaluate(common.ModelDecisionTree, ref, pred, classes)
	require.NoError(t, err)

	assert.Equal(t, common.ModelDecisionTree, ev.Model)
	assert.Equal(t, classes, ev.Classes)
	assert.Equal(t, [][]int{{1, 1, 0}, {0, 2, 0}, {0, 0, 1}}, ev.Confusion)
	assert.InDelta(t, 0.8, ev.Accuracy, 1e-12)
	assert.InDelta(t, 0.2, ev.OutOfSampleError, 1e-12)
	assert.NotEmpty(t, ev.Summary)

	a, ok := ev.Class("A")
	require.True(t, ok)
	assert.InDelta(t, 0.5, a.Sensitivity, 1e-12)
	assert.InDelta(t, 1.0, a.Specificity, 1e-12)
	assert.InDelta(t, 1.0, a.Precision, 1e-12)
	assert.Equal(t, 2, a.Support)

	b, ok := ev.Class("B")
	require.True(t, ok)
	assert.InDelta(t, 1.0, b.Sensitivity, 1e-12)
	assert.InDelta(t, 2.0/3.0, b.Specificity, 1e-12)
	assert.InDelta(t, 2.0/3.0, b.Precision, 1e-12)

	c, ok := ev.Class("C")
	require.True(t, ok)
	assert.InDelta(t, 1.0, c.Specificity, 1e-12)
	assert.Equal(t, 1, c.Support)

	_, ok = ev.Class("E")
	assert.False(t, ok)

	short, err := schema.Instances(build("A"), nil)
	require.NoError(t, err)
	_, err = Evaluate(common.ModelDecisionTree, ref, short, classes)
	assert.Error(t, err)
}

func TestBest(t *testing.T) {
	tree := &Evaluation{Model: common.ModelDecisionTree, Accuracy: 0.8}
	forest := &Evaluation{Model: common.ModelRandomForest, Accuracy: 0.9}
	tie := &Evaluation{Model: common.ModelRandomForest, Accuracy: 0.8}

	assert.Equal(t, forest, Best(tree, forest))
	assert.Equal(t, tree, Best(tree, tie))
	assert.Equal(t, tree, Best(nil, tree))
	assert.Nil(t, Best())
}

func TestSummarize(t *testing.T) {
	tbl := loadTable(t, [][]string{
		{"a", "classe"},
		{"2", "A"},
		{"NA", "B"},
		{"4", "A"},
		{"6", "B"},
	})
	stats, err := Summarize(tbl, []string{"a"})
	require.NoError(t, err)
	require.Len(t, stats, 1)

	s := stats[0]
	assert.Equal(t, "a", s.Name)
	assert.Equal(t, 1, s.Missing)
	assert.InDelta(t, 4.0, s.Mean, 1e-12)
	assert.InDelta(t, 2.0, s.StandardDeviation, 1e-12)
	assert.Equal(t, 2.0, s.MinValue)
	assert.Equal(t, 6.0, s.MaxValue)
	assert.Equal(t, 4.0, s.Median)
}
