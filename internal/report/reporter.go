// Package report writes the artefacts of a run to an output directory and
// prints a console summary.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"har-report/internal/common"
	"har-report/internal/pipeline"

	"github.com/rs/zerolog/log"
)

// Reporter generates run reports
type Reporter struct {
	results    *pipeline.Results
	outputPath string
}

// NewReporter creates a new reporter
func NewReporter(results *pipeline.Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport writes every report file.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	steps := []func() error{
		r.generateSummary,
		r.generateDroppedColumns,
		r.generateVarianceMetrics,
		r.generateCorrelation,
		r.generateConfusionMatrices,
		r.generateTree,
		r.generatePredictions,
		r.generateAnswerFiles,
		r.generateJSONReport,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// generateSummary generates a human-readable summary
func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, "summary.txt")
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	res := r.results
	fmt.Fprintf(file, "HUMAN ACTIVITY RECOGNITION REPORT\n")
	fmt.Fprintf(file, "=================================\n\n")

	fmt.Fprintf(file, "Run: %s to %s\n",
		res.StartTime.Format("2006-01-02 15:04:05"),
		res.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(file, "Duration: %s\n", res.EndTime.Sub(res.StartTime).Round(time.Millisecond))
	fmt.Fprintf(file, "Training table: %s\n", res.TrainPath)
	fmt.Fprintf(file, "Validation table: %s\n", res.ValidationPath)
	fmt.Fprintf(file, "Seed: %d\n\n", res.Seed)

	fmt.Fprintf(file, "PARTITIONS\n")
	fmt.Fprintf(file, "----------\n")
	fmt.Fprintf(file, "Training subset: %d rows\n", res.TrainRows)
	fmt.Fprintf(file, "Testing subset: %d rows\n", res.TestRows)
	fmt.Fprintf(file, "Validation table: %d rows\n", res.ValidationRows)
	fmt.Fprintf(file, "Classes: %s\n\n", strings.Join(res.Classes, ", "))

	fmt.Fprintf(file, "FEATURE PRUNING\n")
	fmt.Fprintf(file, "---------------\n")
	for _, filter := range []string{
		common.FilterNearZeroVariance,
		common.FilterIrrelevant,
		common.FilterMissingness,
		common.FilterCorrelation,
		common.FilterNonNumeric,
	} {
		fmt.Fprintf(file, "%-20s %d dropped\n", filter+":", len(res.Selection.DroppedBy(filter)))
	}
	fmt.Fprintf(file, "Features kept: %d\n\n", len(res.Selection.Features))

	fmt.Fprintf(file, "%-24s %10s %10s %10s %10s %8s\n", "feature", "mean", "sd", "min", "max", "missing")
	for _, fs := range res.FeatureStats {
		fmt.Fprintf(file, "%-24s %10.3f %10.3f %10.3f %10.3f %8d\n",
			fs.Name, fs.Mean, fs.StandardDeviation, fs.MinValue, fs.MaxValue, fs.Missing)
	}

	for _, ev := range res.Evaluations {
		title := "MODEL: " + ev.Model
		fmt.Fprintf(file, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
		if desc, ok := res.Models[ev.Model]; ok && ev.Model != common.ModelDecisionTree {
			fmt.Fprintf(file, "%s\n", desc)
		}
		fmt.Fprintf(file, "Accuracy: %.4f\n", ev.Accuracy)
		fmt.Fprintf(file, "Out-of-sample error: %.4f\n", ev.OutOfSampleError)
		fmt.Fprintf(file, "%-8s %12s %12s %10s %8s\n", "class", "sensitivity", "specificity", "precision", "support")
		for _, c := range ev.PerClass {
			fmt.Fprintf(file, "%-8s %12.4f %12.4f %10.4f %8d\n",
				c.Class, c.Sensitivity, c.Specificity, c.Precision, c.Support)
		}
		fmt.Fprintf(file, "\n%s\n", ev.Summary)
	}

	if res.Best != nil {
		fmt.Fprintf(file, "\nBEST MODEL\n")
		fmt.Fprintf(file, "----------\n")
		fmt.Fprintf(file, "%s (accuracy %.4f)\n", res.Best.Model, res.Best.Accuracy)
		fmt.Fprintf(file, "Validation predictions: %s\n", strings.Join(res.Labels(), " "))
	}

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) generateDroppedColumns() error {
	rows := make([][]string, 0, len(r.results.Selection.Dropped))
	for _, d := range r.results.Selection.Dropped {
		rows = append(rows, []string{d.Column, d.Filter, d.Reason})
	}
	return r.writeCSV("dropped_columns.csv", []string{"column", "filter", "reason"}, rows)
}

func (r *Reporter) generateVarianceMetrics() error {
	rows := make([][]string, 0, len(r.results.Variance))
	for _, m := range r.results.Variance {
		rows = append(rows, []string{
			m.Column,
			formatFloat(m.FreqRatio),
			formatFloat(m.PercentUnique),
			strconv.FormatBool(m.ZeroVar),
			strconv.FormatBool(m.NZV),
		})
	}
	return r.writeCSV("nzv_metrics.csv", []string{"column", "freqRatio", "percentUnique", "zeroVar", "nzv"}, rows)
}

// generateCorrelation writes the correlation matrix behind the heatmap.
func (r *Reporter) generateCorrelation() error {
	m := r.results.Correlation
	if m == nil {
		return nil
	}
	header := append([]string{""}, m.Names...)
	rows := make([][]string, len(m.Names))
	for i, a := range m.Names {
		row := make([]string, 0, len(m.Names)+1)
		row = append(row, a)
		for _, b := range m.Names {
			row = append(row, formatFloat(m.At(a, b)))
		}
		rows[i] = row
	}
	return r.writeCSV("correlation.csv", header, rows)
}

func (r *Reporter) generateConfusionMatrices() error {
	for _, ev := range r.results.Evaluations {
		header := append([]string{"reference\\predicted"}, ev.Classes...)
		rows := make([][]string, len(ev.Classes))
		for i, class := range ev.Classes {
			row := make([]string, 0, len(ev.Classes)+1)
			row = append(row, class)
			for _, n := range ev.Confusion[i] {
				row = append(row, strconv.Itoa(n))
			}
			rows[i] = row
		}
		if err := r.writeCSV("confusion_"+ev.Model+".csv", header, rows); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reporter) generateTree() error {
	desc, ok := r.results.Models[common.ModelDecisionTree]
	if !ok {
		return nil
	}
	treePath := filepath.Join(r.outputPath, "decision_tree.txt")
	if err := os.WriteFile(treePath, []byte(desc+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write decision tree: %w", err)
	}
	log.Info().Str("file", treePath).Msg("Decision tree written")
	return nil
}

func (r *Reporter) generatePredictions() error {
	rows := make([][]string, 0, len(r.results.Predictions))
	for _, p := range r.results.Predictions {
		rows = append(rows, []string{p.ID, p.Label})
	}
	return r.writeCSV("validation_predictions.csv", []string{"id", "prediction"}, rows)
}

// generateAnswerFiles writes one file per validation row holding only its label.
func (r *Reporter) generateAnswerFiles() error {
	for _, p := range r.results.Predictions {
		if !safeFileID(p.ID) {
			return fmt.Errorf("invalid problem id %q for an answer file name", p.ID)
		}
		name := filepath.Join(r.outputPath, "problem_id_"+p.ID+".txt")
		if err := os.WriteFile(name, []byte(p.Label+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write answer file: %w", err)
		}
	}
	log.Info().Int("files", len(r.results.Predictions)).Str("dir", r.outputPath).Msg("Answer files generated")
	return nil
}

// safeFileID reports whether id can be embedded in a file name inside the
// output directory.
func safeFileID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return filepath.Base(id) == id && !strings.ContainsAny(id, `/\`)
}

// generateJSONReport generates a JSON report with all data
func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, "report.json")
	res := r.results

	best := ""
	if res.Best != nil {
		best = res.Best.Model
	}
	var correlation map[string]interface{}
	if res.Correlation != nil {
		values := make([][]float64, len(res.Correlation.Names))
		for i, a := range res.Correlation.Names {
			values[i] = make([]float64, len(res.Correlation.Names))
			for j, b := range res.Correlation.Names {
				values[i][j] = res.Correlation.At(a, b)
			}
		}
		correlation = map[string]interface{}{
			"names":  res.Correlation.Names,
			"values": values,
		}
	}

	report := map[string]interface{}{
		"summary": map[string]interface{}{
			"run_id":          res.RunID,
			"start_time":      res.StartTime,
			"end_time":        res.EndTime,
			"train_path":      res.TrainPath,
			"validation_path": res.ValidationPath,
			"seed":            res.Seed,
			"train_rows":      res.TrainRows,
			"test_rows":       res.TestRows,
			"validation_rows": res.ValidationRows,
			"classes":         res.Classes,
			"best_model":      best,
		},
		"selection":     res.Selection,
		"nzv_metrics":   res.Variance,
		"correlation":   correlation,
		"feature_stats": res.FeatureStats,
		"evaluations":   res.Evaluations,
		"predictions":   res.Predictions,
		"generated_at":  time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

func (r *Reporter) writeCSV(name string, header []string, rows [][]string) error {
	csvPath := filepath.Join(r.outputPath, name)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	log.Info().Str("file", csvPath).Msg("CSV report generated")
	return nil
}

// PrintSummary prints a summary to console
func (r *Reporter) PrintSummary() {
	r.printSummary(os.Stdout)
}

func (r *Reporter) printSummary(w io.Writer) {
	res := r.results
	fmt.Fprintln(w, "\n=== HAR REPORT ===")
	fmt.Fprintf(w, "Rows: %d train, %d test, %d validation\n", res.TrainRows, res.TestRows, res.ValidationRows)
	fmt.Fprintf(w, "Features kept: %d (dropped %d)\n", len(res.Selection.Features), len(res.Selection.Dropped))

	evals := append(res.Evaluations[:0:0], res.Evaluations...)
	sort.SliceStable(evals, func(i, j int) bool { return evals[i].Accuracy > evals[j].Accuracy })
	for _, ev := range evals {
		fmt.Fprintf(w, "%-14s accuracy %.4f, out-of-sample error %.4f\n", ev.Model+":", ev.Accuracy, ev.OutOfSampleError)
	}
	if res.Best != nil {
		fmt.Fprintf(w, "Best model: %s\n", res.Best.Model)
		for _, class := range res.Best.Classes {
			if c, ok := res.Best.Class(class); ok {
				fmt.Fprintf(w, "  %-6s sensitivity %.4f, specificity %.4f\n", class, c.Sensitivity, c.Specificity)
			}
		}
	}
	fmt.Fprintf(w, "Predictions: %s\n", strings.Join(res.Labels(), " "))
	if res.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", res.RunID)
	}
	fmt.Fprintln(w, "==================")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
