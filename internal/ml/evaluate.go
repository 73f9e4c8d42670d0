package ml

import (
	"fmt"
	"math"
	"sort"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/evaluation"
)

// ClassMetrics are the one-vs-rest scores of a single class.
type ClassMetrics struct {
	Class       string  `json:"class"`
	Sensitivity float64 `json:"sensitivity"`
	Specificity float64 `json:"specificity"`
	Precision   float64 `json:"precision"`
	Support     int     `json:"support"`
}

// Evaluation scores one model's predictions against reference labels.
type Evaluation struct {
	Model            string         `json:"model"`
	Classes          []string       `json:"classes"`
	Confusion        [][]int        `json:"confusion"` // rows: reference, columns: predicted
	Accuracy         float64        `json:"accuracy"`
	OutOfSampleError float64        `json:"outOfSampleError"`
	PerClass         []ClassMetrics `json:"perClass"`
	Summary          string         `json:"summary"`
}

// Evaluate compares predicted with reference row by row. classes fixes the
// order of the confusion matrix; labels seen only in the grids are appended.
func Evaluate(model string, reference, predicted base.FixedDataGrid, classes []string) (*Evaluation, error) {
	_, refRows := reference.Size()
	_, predRows := predicted.Size()
	if refRows != predRows {
		return nil, fmt.Errorf("%s: %d reference rows but %d predictions", model, refRows, predRows)
	}

	cm, err := evaluation.GetConfusionMatrix(reference, predicted)
	if err != nil {
		return nil, fmt.Errorf("%s: confusion matrix: %w", model, err)
	}

	order := classOrder(classes, cm)
	ev := &Evaluation{
		Model:     model,
		Classes:   order,
		Confusion: make([][]int, len(order)),
		Accuracy:  finite(evaluation.GetAccuracy(cm)),
		Summary:   evaluation.GetSummary(cm),
	}
	ev.OutOfSampleError = 1 - ev.Accuracy

	for i, ref := range order {
		ev.Confusion[i] = make([]int, len(order))
		support := 0
		for j, pred := range order {
			ev.Confusion[i][j] = cm[ref][pred]
			support += cm[ref][pred]
		}

		tn := evaluation.GetTrueNegatives(ref, cm)
		fp := evaluation.GetFalsePositives(ref, cm)
		specificity := 0.0
		if tn+fp > 0 {
			specificity = tn / (tn + fp)
		}

		ev.PerClass = append(ev.PerClass, ClassMetrics{
			Class:       ref,
			Sensitivity: finite(evaluation.GetRecall(ref, cm)),
			Specificity: specificity,
			Precision:   finite(evaluation.GetPrecision(ref, cm)),
			Support:     support,
		})
	}
	return ev, nil
}

// Class returns the metrics of the named class.
func (e *Evaluation) Class(name string) (ClassMetrics, bool) {
	for _, c := range e.PerClass {
		if c.Class == name {
			return c, true
		}
	}
	return ClassMetrics{}, false
}

// Best returns the evaluation with the highest accuracy. Ties keep the
// earlier entry.
func Best(evals ...*Evaluation) *Evaluation {
	var best *Evaluation
	for _, e := range evals {
		if e == nil {
			continue
		}
		if best == nil || e.Accuracy > best.Accuracy {
			best = e
		}
	}
	return best
}

func classOrder(classes []string, cm evaluation.ConfusionMatrix) []string {
	seen := make(map[string]struct{}, len(classes))
	order := make([]string, 0, len(classes))
	for _, c := range classes {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			order = append(order, c)
		}
	}
	var extra []string
	for ref, row := range cm {
		if _, ok := seen[ref]; !ok {
			seen[ref] = struct{}{}
			extra = append(extra, ref)
		}
		for pred := range row {
			if _, ok := seen[pred]; !ok {
				seen[pred] = struct{}{}
				extra = append(extra, pred)
			}
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
