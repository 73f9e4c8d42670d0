package features

import (
	"encoding/csv"
	"strings"
	"sync"
	"testing"
	"time"

	"har-report/internal/common"
	"har-report/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockMetricsTracker is a mock implementation of MetricsTracker for testing.
type MockMetricsTracker struct {
	mu      sync.Mutex
	Dropped map[string]int
	Kept    int
	Stages  []string
}

func (m *MockMetricsTracker) ColumnsDropped(filter string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Dropped == nil {
		m.Dropped = make(map[string]int)
	}
	m.Dropped[filter] += n
}

func (m *MockMetricsTracker) FeaturesKept(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Kept = n
}

func (m *MockMetricsTracker) StageDuration(stage string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stages = append(m.Stages, stage)
}

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

func defaultOptions() Options {
	return Options{
		FreqCut:           common.DefaultFreqCut,
		UniqueCut:         common.DefaultUniqueCut,
		Irrelevant:        common.DefaultIrrelevantColumns,
		MissingThreshold:  common.DefaultMissingThreshold,
		CorrelationCutoff: common.DefaultCorrelationCutoff,
	}
}

// syntheticTraining returns the training side of a 100-row synthetic table.
func syntheticTraining(t *testing.T, seed uint64) *dataset.Table {
	t.Helper()
	tbl := loadTable(t, dataset.Synthetic(dataset.SyntheticOptions{
		Rows:         100,
		Seed:         seed,
		NoiseColumns: 3,
		IndexColumn:  true,
	}))
	train, _, err := dataset.Split(tbl, "classe", 0.7, seed)
	require.NoError(t, err)
	return train
}

func TestPrunerSyntheticScenario(t *testing.T) {
	train := syntheticTraining(t, 12345)
	metrics := &MockMetricsTracker{}

	res, err := NewDefaultPruner("classe", defaultOptions(), metrics).Fit(train)
	require.NoError(t, err)
	sel := res.Selection

	assert.Equal(t, []string{"constant"}, sel.DroppedBy(common.FilterNearZeroVariance))
	assert.Equal(t, []string{"X"}, sel.DroppedBy(common.FilterIrrelevant))
	assert.Equal(t, []string{"sparse"}, sel.DroppedBy(common.FilterMissingness))
	assert.Empty(t, sel.DroppedBy(common.FilterNonNumeric))

	corr := sel.DroppedBy(common.FilterCorrelation)
	require.Len(t, corr, 1)
	assert.Contains(t, []string{"pair_a", "pair_b"}, corr[0])

	assert.Len(t, sel.Features, 5)
	assert.Contains(t, sel.Features, "signal")
	assert.NotContains(t, sel.Features, "classe")
	assert.Equal(t, "classe", sel.Label)

	// diagnostics
	assert.Len(t, res.Variance, len(train.Names())-1)
	require.NotNil(t, res.Correlation)
	assert.NotContains(t, res.Correlation.Names, "constant")
	assert.Greater(t, res.Correlation.At("pair_a", "pair_b"), 0.9)

	assert.Equal(t, 1, metrics.Dropped[common.FilterNearZeroVariance])
	assert.Equal(t, 1, metrics.Dropped[common.FilterCorrelation])
	assert.Equal(t, 5, metrics.Kept)
	assert.Len(t, metrics.Stages, 5)
}

func TestPrunerBounds(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3} {
		train := syntheticTraining(t, seed)
		res, err := NewDefaultPruner("classe", defaultOptions(), nil).Fit(train)
		require.NoError(t, err)

		m, err := CorrelationOf(train, res.Selection.Features)
		require.NoError(t, err)
		assert.Less(t, m.MaxAbs(res.Selection.Features), common.DefaultCorrelationCutoff)

		for _, name := range res.Selection.Features {
			frac, err := train.MissingFraction(name)
			require.NoError(t, err)
			assert.Less(t, frac, common.DefaultMissingThreshold, name)
			assert.True(t, train.IsNumeric(name), name)
		}
	}
}

func TestPrunerReplayConsistency(t *testing.T) {
	tbl := loadTable(t, dataset.Synthetic(dataset.SyntheticOptions{Rows: 100, Seed: 5, NoiseColumns: 2}))
	train, test, err := dataset.Split(tbl, "classe", 0.7, 5)
	require.NoError(t, err)

	res, err := NewDefaultPruner("classe", defaultOptions(), nil).Fit(train)
	require.NoError(t, err)

	prunedTrain, err := res.Selection.Apply(train)
	require.NoError(t, err)
	prunedTest, err := res.Selection.Apply(test)
	require.NoError(t, err)
	assert.Equal(t, prunedTrain.Names(), prunedTest.Names())

	validation := loadTable(t, dataset.Synthetic(dataset.SyntheticOptions{
		Rows: 20, Seed: 6, NoiseColumns: 2, IDColumn: "problem_id",
	}))
	prunedValidation, err := res.Selection.Apply(validation)
	require.NoError(t, err)
	assert.Equal(t, res.Selection.Features, prunedValidation.Names())
}

func TestPrunerMissingLabel(t *testing.T) {
	tbl := loadTable(t, [][]string{{"a", "b"}, {"1", "2"}})
	_, err := NewDefaultPruner("classe", defaultOptions(), nil).Fit(tbl)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestPrunerDropsNonNumeric(t *testing.T) {
	tbl := loadTable(t, [][]string{
		{"sensor", "device", "classe"},
		{"0.1", "wrist", "A"},
		{"0.5", "arm", "B"},
		{"0.9", "belt", "A"},
		{"1.3", "wrist", "B"},
	})
	opts := defaultOptions()
	opts.UniqueCut = 10

	res, err := NewDefaultPruner("classe", opts, nil).Fit(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"device"}, res.Selection.DroppedBy(common.FilterNonNumeric))
	assert.Equal(t, []string{"sensor"}, res.Selection.Features)
}
