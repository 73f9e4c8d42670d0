package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}
	if m.gatherer != registry {
		t.Error("registry should be used as the gatherer")
	}
}

func TestMetricsRecording(t *testing.T) {
	m := New()

	m.SetRows("train", 72)
	m.SetRows("test", 28)
	if v := testutil.ToFloat64(m.PartitionRows.WithLabelValues("train")); v != 72 {
		t.Errorf("Expected 72 training rows, got %f", v)
	}

	m.ColumnsDropped("correlation", 2)
	m.ColumnsDropped("correlation", 1)
	if v := testutil.ToFloat64(m.DroppedColumns.WithLabelValues("correlation")); v != 3 {
		t.Errorf("Expected 3 dropped columns, got %f", v)
	}

	m.FeaturesKept(5)
	if v := testutil.ToFloat64(m.KeptFeatures); v != 5 {
		t.Errorf("Expected 5 kept features, got %f", v)
	}

	m.StageDuration("fit", 1500*time.Millisecond)
	if v := testutil.ToFloat64(m.StageSeconds.WithLabelValues("fit")); v != 1.5 {
		t.Errorf("Expected 1.5 seconds, got %f", v)
	}

	m.SetAccuracy("random_forest", 0.97)
	if v := testutil.ToFloat64(m.Accuracy.WithLabelValues("random_forest")); v != 0.97 {
		t.Errorf("Expected accuracy 0.97, got %f", v)
	}

	m.RunsInc()
	if v := testutil.ToFloat64(m.RunsTotal); v != 1 {
		t.Errorf("Expected 1 run, got %f", v)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RunsInc()
	m.SetAccuracy("decision_tree", 0.5)

	path := filepath.Join(t.TempDir(), "nested", "metrics.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read textfile: %v", err)
	}
	body := string(data)
	for _, want := range []string{
		"har_runs_total 1",
		`har_model_accuracy{model="decision_tree"} 0.5`,
		"# HELP har_features_kept",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("textfile missing %q:\n%s", want, body)
		}
	}
}
