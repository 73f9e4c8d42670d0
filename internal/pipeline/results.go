package pipeline

import (
	"time"

	"har-report/internal/dataset"
	"har-report/internal/features"
	"har-report/internal/ml"
	"har-report/internal/storage"
)

// Prediction is the predicted label of one validation row.
type Prediction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Results holds everything a run produced.
type Results struct {
	RunID          string
	StartTime      time.Time
	EndTime        time.Time
	TrainPath      string
	ValidationPath string
	Seed           uint64

	TrainRows      int
	TestRows       int
	ValidationRows int

	Selection    *dataset.Selection
	Variance     []features.VarianceMetric
	Correlation  *features.CorrelationMatrix
	FeatureStats []ml.FeatureStats

	Classes     []string
	Evaluations []*ml.Evaluation
	Models      map[string]string // model name to textual rendering
	Best        *ml.Evaluation
	Predictions []Prediction
}

// Evaluation returns the evaluation of the named model.
func (r *Results) Evaluation(model string) *ml.Evaluation {
	for _, ev := range r.Evaluations {
		if ev.Model == model {
			return ev
		}
	}
	return nil
}

// Labels returns the predicted labels in validation row order.
func (r *Results) Labels() []string {
	out := make([]string, len(r.Predictions))
	for i, p := range r.Predictions {
		out[i] = p.Label
	}
	return out
}

// Record converts the results into a persisted run record.
func (r *Results) Record(outputDir string) storage.RunRecord {
	rec := storage.RunRecord{
		StartedAt:      r.StartTime,
		Duration:       r.EndTime.Sub(r.StartTime),
		TrainPath:      r.TrainPath,
		ValidationPath: r.ValidationPath,
		Seed:           r.Seed,
		TrainRows:      r.TrainRows,
		TestRows:       r.TestRows,
		Accuracy:       make(map[string]float64, len(r.Evaluations)),
		Predictions:    r.Labels(),
		OutputDir:      outputDir,
	}
	if r.Selection != nil {
		rec.Features = r.Selection.Features
		rec.DroppedColumns = len(r.Selection.Dropped)
	}
	for _, ev := range r.Evaluations {
		rec.Accuracy[ev.Model] = ev.Accuracy
	}
	if r.Best != nil {
		rec.BestModel = r.Best.Model
	}
	return rec
}
