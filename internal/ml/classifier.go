// Package ml fits and evaluates the activity classifiers. Tree induction and
// scoring are delegated to golearn; this package converts pruned tables into
// golearn instances and wraps the two model families behind one interface.
package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	"har-report/internal/common"

	"github.com/rs/zerolog/log"
	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/ensemble"
	"github.com/sjwhitworth/golearn/trees"
)

// Classifier is a model that can be fitted once and then asked for labels.
type Classifier interface {
	// Name identifies the model family in reports and metric labels.
	Name() string

	// Fit trains the model. The class attribute of train is the target.
	Fit(train base.FixedDataGrid) error

	// Predict returns a grid whose class attribute holds the predicted labels.
	Predict(grid base.FixedDataGrid) (base.FixedDataGrid, error)

	// Describe renders the fitted model as text.
	Describe() string

	// FitDuration is the wall time of the last successful Fit.
	FitDuration() time.Duration
}

// ErrNotFitted is returned by Predict before a successful Fit.
var ErrNotFitted = errors.New("model not fitted")

type learner interface {
	Fit(base.FixedDataGrid) error
	Predict(base.FixedDataGrid) (base.FixedDataGrid, error)
}

// Model adapts a golearn learner to Classifier.
type Model struct {
	name    string
	build   func(features int) (learner, string)
	learner learner
	desc    string
	fitTime time.Duration
}

// NewDecisionTree returns an ID3 tree. pruneSplit is the share of training
// rows held back for pruning; 0 disables pruning.
func NewDecisionTree(pruneSplit float64) *Model {
	return &Model{
		name: common.ModelDecisionTree,
		build: func(int) (learner, string) {
			return trees.NewID3DecisionTree(pruneSplit), ""
		},
	}
}

// NewRandomForest returns a bagged forest of size trees, each grown on
// featuresPerTree random features. featuresPerTree 0 means floor(sqrt(p)).
func NewRandomForest(size, featuresPerTree int) *Model {
	return &Model{
		name: common.ModelRandomForest,
		build: func(p int) (learner, string) {
			k := ForestFeatures(featuresPerTree, p)
			desc := fmt.Sprintf("random forest: %d trees, %d of %d features per tree", size, k, p)
			return ensemble.NewRandomForest(size, k), desc
		},
	}
}

// ForestFeatures resolves the per-tree feature count for p available features.
func ForestFeatures(requested, p int) int {
	k := requested
	if k <= 0 {
		k = int(math.Floor(math.Sqrt(float64(p))))
	}
	if k > p {
		k = p
	}
	if k < 1 {
		k = 1
	}
	return k
}

func (m *Model) Name() string { return m.name }

func (m *Model) FitDuration() time.Duration { return m.fitTime }

func (m *Model) Fit(train base.FixedDataGrid) (err error) {
	p := len(base.NonClassAttributes(train))
	if p == 0 {
		return fmt.Errorf("%s: no feature attributes to fit on", m.name)
	}
	_, rows := train.Size()
	if rows == 0 {
		return fmt.Errorf("%s: no training rows", m.name)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: fit panicked: %v", m.name, r)
		}
	}()

	l, desc := m.build(p)
	start := time.Now()
	if err := l.Fit(train); err != nil {
		return fmt.Errorf("%s: fit: %w", m.name, err)
	}
	m.fitTime = time.Since(start)
	m.learner = l
	m.desc = desc

	log.Info().
		Str("model", m.name).
		Int("rows", rows).
		Int("features", p).
		Dur("took", m.fitTime).
		Msg("Model fitted")
	return nil
}

func (m *Model) Predict(grid base.FixedDataGrid) (out base.FixedDataGrid, err error) {
	if m.learner == nil {
		return nil, fmt.Errorf("%s: %w", m.name, ErrNotFitted)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: predict panicked: %v", m.name, r)
		}
	}()
	out, err = m.learner.Predict(grid)
	if err != nil {
		return nil, fmt.Errorf("%s: predict: %w", m.name, err)
	}
	return out, nil
}

func (m *Model) Describe() string {
	if m.learner == nil {
		return m.name + " (not fitted)"
	}
	if m.desc != "" {
		return m.desc
	}
	return fmt.Sprintf("%v", m.learner)
}

// Labels returns the class value of every row in grid.
func Labels(grid base.FixedDataGrid) []string {
	_, rows := grid.Size()
	out := make([]string, rows)
	for i := 0; i < rows; i++ {
		out[i] = base.GetClass(grid, i)
	}
	return out
}
