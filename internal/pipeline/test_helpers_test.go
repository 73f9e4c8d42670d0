package pipeline

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"har-report/internal/cfg"
	"har-report/internal/common"
	"har-report/internal/dataset"
	"har-report/internal/storage"

	"github.com/stretchr/testify/require"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu       sync.Mutex
	rows     map[string]int
	dropped  map[string]int
	kept     int
	stages   map[string]time.Duration
	accuracy map[string]float64
	runs     int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		rows:     make(map[string]int),
		dropped:  make(map[string]int),
		stages:   make(map[string]time.Duration),
		accuracy: make(map[string]float64),
	}
}

func (m *MockMetrics) SetRows(partition string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[partition] = n
}

func (m *MockMetrics) ColumnsDropped(filter string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[filter] += n
}

func (m *MockMetrics) FeaturesKept(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kept = n
}

func (m *MockMetrics) StageDuration(stage string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages[stage] = d
}

func (m *MockMetrics) SetAccuracy(model string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accuracy[model] = v
}

func (m *MockMetrics) RunsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
}

// MockStore records saved runs in memory.
type MockStore struct {
	mu   sync.Mutex
	runs []storage.RunRecord
}

func (s *MockStore) SaveRun(rec storage.RunRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, rec)
	return storage.RunKey(rec.StartedAt), nil
}

// writeSyntheticInputs writes a 100-row training table and a 20-row
// validation table and returns settings pointing at them.
func writeSyntheticInputs(t *testing.T) *cfg.Settings {
	t.Helper()
	dir := t.TempDir()

	trainPath := filepath.Join(dir, "pml-training.csv")
	require.NoError(t, dataset.WriteCSV(trainPath, dataset.Synthetic(dataset.SyntheticOptions{
		Rows: 100, Seed: 21, NoiseColumns: 3, IndexColumn: true,
	})))

	validationPath := filepath.Join(dir, "pml-testing.csv")
	require.NoError(t, dataset.WriteCSV(validationPath, dataset.Synthetic(dataset.SyntheticOptions{
		Rows: 20, Seed: 22, NoiseColumns: 3, IndexColumn: true, IDColumn: common.DefaultIDColumn,
	})))

	return &cfg.Settings{
		TrainPath:         trainPath,
		ValidationPath:    validationPath,
		DataDir:           dir,
		OutputDir:         filepath.Join(dir, "report"),
		LabelColumn:       common.DefaultLabelColumn,
		IDColumn:          common.DefaultIDColumn,
		IrrelevantColumns: common.DefaultIrrelevantColumns,
		MissingTokens:     common.DefaultMissingTokens,
		TrainFraction:     common.DefaultTrainFraction,
		Seed:              common.DefaultSeed,
		FreqCut:           common.DefaultFreqCut,
		UniqueCut:         common.DefaultUniqueCut,
		MissingThreshold:  common.DefaultMissingThreshold,
		CorrelationCutoff: common.DefaultCorrelationCutoff,
		TreePruneSplit:    common.DefaultTreePruneSplit,
		ForestSize:        10,
		FetchTimeout:      common.DefaultFetchTimeout,
		LogLevel:          common.DefaultLogLevel,
	}
}
