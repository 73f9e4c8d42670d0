// Package pipeline runs the report end to end: load, split, prune, fit,
// evaluate and predict.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"har-report/internal/cfg"
	"har-report/internal/dataset"
	"har-report/internal/features"
	"har-report/internal/ml"
	"har-report/internal/storage"

	"github.com/rs/zerolog/log"
)

// MetricsInterface receives run observations.
type MetricsInterface interface {
	features.MetricsTracker
	SetRows(partition string, n int)
	SetAccuracy(model string, v float64)
	RunsInc()
}

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(rec storage.RunRecord) (string, error)
}

// Resolver maps a configured location to a readable local path.
type Resolver interface {
	Resolve(ctx context.Context, location string) (string, error)
}

// Engine executes one report run.
type Engine struct {
	config   *cfg.Settings
	resolver Resolver
	metrics  MetricsInterface
	store    RunStore
	models   []func() ml.Classifier
}

// Option customises an Engine.
type Option func(*Engine)

// WithStore records finished runs in s.
func WithStore(s RunStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithResolver replaces the default downloader.
func WithResolver(r Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// NewEngine creates an engine for config. metrics may be nil.
func NewEngine(config *cfg.Settings, metrics MetricsInterface, opts ...Option) *Engine {
	e := &Engine{
		config:   config,
		resolver: dataset.NewFetcher(config.DataDir, config.FetchTimeout),
		metrics:  metrics,
	}
	e.models = []func() ml.Classifier{
		func() ml.Classifier { return ml.NewDecisionTree(config.TreePruneSplit) },
		func() ml.Classifier { return ml.NewRandomForest(config.ForestSize, config.ForestFeatures) },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes every stage and returns the collected results.
func (e *Engine) Run(ctx context.Context) (*Results, error) {
	res := &Results{
		StartTime:      time.Now(),
		TrainPath:      e.config.TrainPath,
		ValidationPath: e.config.ValidationPath,
		Seed:           e.config.Seed,
		Models:         make(map[string]string),
	}
	log.Info().
		Str("train", e.config.TrainPath).
		Str("validation", e.config.ValidationPath).
		Uint64("seed", e.config.Seed).
		Msg("Starting run")

	// load
	stage := time.Now()
	full, validation, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	e.stageDone("load", stage)

	// split
	stage = time.Now()
	train, test, err := dataset.Split(full, e.config.LabelColumn, e.config.TrainFraction, e.config.Seed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	res.TrainRows, res.TestRows, res.ValidationRows = train.Nrow(), test.Nrow(), validation.Nrow()
	if e.metrics != nil {
		e.metrics.SetRows("train", res.TrainRows)
		e.metrics.SetRows("test", res.TestRows)
		e.metrics.SetRows("validation", res.ValidationRows)
	}
	log.Info().
		Int("train", res.TrainRows).
		Int("test", res.TestRows).
		Int("validation", res.ValidationRows).
		Msg("Split complete")
	e.stageDone("split", stage)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// prune
	stage = time.Now()
	pruner := features.NewDefaultPruner(e.config.LabelColumn, features.Options{
		FreqCut:           e.config.FreqCut,
		UniqueCut:         e.config.UniqueCut,
		Irrelevant:        e.config.IrrelevantColumns,
		MissingThreshold:  e.config.MissingThreshold,
		CorrelationCutoff: e.config.CorrelationCutoff,
	}, e.metrics)
	pruned, err := pruner.Fit(train)
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}
	res.Selection = pruned.Selection
	res.Variance = pruned.Variance
	res.Correlation = pruned.Correlation
	if len(res.Selection.Features) == 0 {
		return nil, fmt.Errorf("prune: every feature was dropped")
	}
	log.Info().
		Int("kept", len(res.Selection.Features)).
		Strs("dropped", res.Selection.DroppedColumns()).
		Msg("Feature selection fitted")

	trainSel, err := res.Selection.Apply(train)
	if err != nil {
		return nil, fmt.Errorf("training subset: %w", err)
	}
	testSel, err := res.Selection.Apply(test)
	if err != nil {
		return nil, fmt.Errorf("testing subset: %w", err)
	}
	validationSel, err := res.Selection.Apply(validation)
	if err != nil {
		return nil, fmt.Errorf("validation table: %w", err)
	}
	if res.FeatureStats, err = ml.Summarize(trainSel, res.Selection.Features); err != nil {
		return nil, fmt.Errorf("feature summary: %w", err)
	}
	e.stageDone("prune", stage)

	// instances
	classes, err := ml.Classes(trainSel, e.config.LabelColumn)
	if err != nil {
		return nil, err
	}
	res.Classes = classes
	schema, err := ml.NewSchema(res.Selection.Features, e.config.LabelColumn, classes)
	if err != nil {
		return nil, err
	}
	imputer, err := ml.FitImputer(trainSel, res.Selection.Features)
	if err != nil {
		return nil, fmt.Errorf("imputer: %w", err)
	}
	trainInst, err := schema.Instances(trainSel, imputer)
	if err != nil {
		return nil, fmt.Errorf("training instances: %w", err)
	}
	testInst, err := schema.Instances(testSel, imputer)
	if err != nil {
		return nil, fmt.Errorf("testing instances: %w", err)
	}
	validationInst, err := schema.Instances(validationSel, imputer)
	if err != nil {
		return nil, fmt.Errorf("validation instances: %w", err)
	}

	// fit and evaluate
	fitted := make(map[string]ml.Classifier, len(e.models))
	for _, build := range e.models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		model := build()

		if err := model.Fit(trainInst); err != nil {
			return nil, err
		}
		e.recordStage("fit_"+model.Name(), model.FitDuration())

		pred, err := model.Predict(testInst)
		if err != nil {
			return nil, err
		}
		ev, err := ml.Evaluate(model.Name(), testInst, pred, classes)
		if err != nil {
			return nil, err
		}

		res.Evaluations = append(res.Evaluations, ev)
		res.Models[model.Name()] = model.Describe()
		fitted[model.Name()] = model
		if e.metrics != nil {
			e.metrics.SetAccuracy(model.Name(), ev.Accuracy)
		}
		log.Info().
			Str("model", model.Name()).
			Float64("accuracy", ev.Accuracy).
			Float64("out_of_sample_error", ev.OutOfSampleError).
			Msg("Model evaluated")
	}

	// predict validation
	stage = time.Now()
	res.Best = ml.Best(res.Evaluations...)
	best := fitted[res.Best.Model]
	pred, err := best.Predict(validationInst)
	if err != nil {
		return nil, err
	}
	ids := e.validationIDs(validation)
	for i, label := range ml.Labels(pred) {
		res.Predictions = append(res.Predictions, Prediction{ID: ids[i], Label: label})
	}
	e.stageDone("predict", stage)
	log.Info().
		Str("model", res.Best.Model).
		Int("predictions", len(res.Predictions)).
		Msg("Validation table predicted")

	res.EndTime = time.Now()

	if e.store != nil {
		id, err := e.store.SaveRun(res.Record(e.config.OutputDir))
		if err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		res.RunID = id
		log.Info().Str("id", id).Msg("Run recorded")
	}
	if e.metrics != nil {
		e.metrics.RunsInc()
	}
	return res, nil
}

func (e *Engine) load(ctx context.Context) (full, validation *dataset.Table, err error) {
	opts := dataset.LoadOptions{
		Label:         e.config.LabelColumn,
		MissingTokens: e.config.MissingTokens,
	}

	trainPath, err := e.resolver.Resolve(ctx, e.config.TrainPath)
	if err != nil {
		return nil, nil, fmt.Errorf("training table: %w", err)
	}
	if full, err = dataset.LoadCSV(trainPath, opts); err != nil {
		return nil, nil, fmt.Errorf("training table: %w", err)
	}
	if !full.Has(e.config.LabelColumn) {
		return nil, nil, fmt.Errorf("training table: %w: label %s", dataset.ErrMissingColumn, e.config.LabelColumn)
	}

	validationPath, err := e.resolver.Resolve(ctx, e.config.ValidationPath)
	if err != nil {
		return nil, nil, fmt.Errorf("validation table: %w", err)
	}
	if validation, err = dataset.LoadCSV(validationPath, opts); err != nil {
		return nil, nil, fmt.Errorf("validation table: %w", err)
	}
	return full, validation, nil
}

// validationIDs reads the id column, falling back to 1-based row numbers.
func (e *Engine) validationIDs(validation *dataset.Table) []string {
	if e.config.IDColumn != "" {
		if ids, err := validation.Strings(e.config.IDColumn); err == nil {
			return ids
		}
		log.Debug().Str("column", e.config.IDColumn).Msg("Validation table has no id column, using row numbers")
	}
	ids := make([]string, validation.Nrow())
	for i := range ids {
		ids[i] = strconv.Itoa(i + 1)
	}
	return ids
}

func (e *Engine) stageDone(name string, start time.Time) {
	e.recordStage(name, time.Since(start))
}

func (e *Engine) recordStage(name string, d time.Duration) {
	if e.metrics != nil {
		e.metrics.StageDuration(name, d)
	}
	log.Debug().Str("stage", name).Dur("took", d).Msg("Stage complete")
}
