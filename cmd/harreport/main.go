package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"har-report/internal/cfg"
	"har-report/internal/common"
	"har-report/internal/dataset"
	"har-report/internal/metrics"
	"har-report/internal/pipeline"
	"har-report/internal/report"
	"har-report/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configFile string

	trainPath      string
	validationPath string
	outputDir      string
	storePath      string
	seed           uint64
	forestSize     int

	historyLimit int

	genRows           int
	genValidationRows int
	genNoise          int
	genSeed           uint64
	genOut            string
)

var rootCmd = &cobra.Command{
	Use:   "harreport",
	Short: "Classify weight-lifting activity quality from wearable sensor data",
	Long: `harreport loads a labelled sensor table, prunes uninformative features,
fits a decision tree and a random forest, reports their accuracy on a held-out
subset and predicts the labels of an unlabelled validation table.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := os.Setenv(common.EnvConfigFile, configFile); err != nil {
				return err
			}
		}
		setupLogging(logLevel)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full analysis and write the report",
	RunE:  runReport,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs, newest first",
	RunE:  listHistory,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write synthetic training and validation tables",
	RunE:  generateData,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file")

	runCmd.Flags().StringVar(&trainPath, "train", "", "Training table path or URL")
	runCmd.Flags().StringVar(&validationPath, "validation", "", "Validation table path or URL")
	runCmd.Flags().StringVar(&outputDir, "output", "", "Output directory for the report")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the stratified split (forest bagging draws from an unseeded source)")
	runCmd.Flags().IntVar(&forestSize, "forest-size", 0, "Number of trees in the random forest")
	runCmd.Flags().StringVar(&storePath, "store", "", "Directory of the run history database")

	historyCmd.Flags().StringVar(&storePath, "store", "", "Directory of the run history database")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of runs to list")

	generateCmd.Flags().IntVar(&genRows, "rows", 1000, "Training rows")
	generateCmd.Flags().IntVar(&genValidationRows, "validation-rows", 20, "Validation rows")
	generateCmd.Flags().IntVar(&genNoise, "noise", 10, "Number of noise columns")
	generateCmd.Flags().Uint64Var(&genSeed, "seed", common.DefaultSeed, "Generator seed")
	generateCmd.Flags().StringVar(&genOut, "out", common.DefaultDataDir, "Output directory")

	rootCmd.AddCommand(runCmd, historyCmd, generateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("harreport failed")
	}
}

func setupLogging(level string) {
	if level == "" {
		level = os.Getenv(common.EnvLogLevel)
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// loadSettings loads configuration and applies the flags that were set.
func loadSettings(cmd *cobra.Command) (*cfg.Settings, error) {
	config, err := cfg.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("train") {
		config.TrainPath = trainPath
	}
	if flags.Changed("validation") {
		config.ValidationPath = validationPath
	}
	if flags.Changed("output") {
		config.OutputDir = outputDir
	}
	if flags.Changed("seed") {
		config.Seed = seed
	}
	if flags.Changed("forest-size") {
		config.ForestSize = forestSize
	}
	if flags.Changed("store") {
		config.StorePath = storePath
	}

	if err := cfg.ValidateSettings(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	config, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	var opts []pipeline.Option
	if config.StorePath != "" {
		store, err := storage.New(config.StorePath)
		if err != nil {
			return fmt.Errorf("failed to open run store: %w", err)
		}
		defer store.Close()
		opts = append(opts, pipeline.WithStore(store))
	}

	results, err := pipeline.NewEngine(config, m, opts...).Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	reporter := report.NewReporter(results, config.OutputDir)
	if err := reporter.GenerateReport(); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	if err := m.WriteTextfile(filepath.Join(config.OutputDir, "metrics.prom")); err != nil {
		return err
	}

	reporter.PrintSummary()
	log.Info().Str("dir", config.OutputDir).Msg("Report complete")
	return nil
}

func listHistory(cmd *cobra.Command, args []string) error {
	path := storePath
	if !cmd.Flags().Changed("store") {
		config, err := cfg.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		path = config.StorePath
	}
	if path == "" {
		return fmt.Errorf("no run store configured; set --store or %s", common.EnvStorePath)
	}

	store, err := storage.New(path)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSEED\tFEATURES\tTREE\tFOREST\tBEST\tPREDICTIONS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4f\t%.4f\t%s\t%s\n",
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Seed,
			len(r.Features),
			r.Accuracy[common.ModelDecisionTree],
			r.Accuracy[common.ModelRandomForest],
			r.BestModel,
			strings.Join(r.Predictions, ""),
		)
	}
	return w.Flush()
}

func generateData(cmd *cobra.Command, args []string) error {
	trainFile := filepath.Join(genOut, "pml-training.csv")
	validationFile := filepath.Join(genOut, "pml-testing.csv")

	train := dataset.Synthetic(dataset.SyntheticOptions{
		Rows:         genRows,
		Seed:         genSeed,
		Label:        common.DefaultLabelColumn,
		NoiseColumns: genNoise,
		IndexColumn:  true,
	})
	if err := dataset.WriteCSV(trainFile, train); err != nil {
		return err
	}

	validation := dataset.Synthetic(dataset.SyntheticOptions{
		Rows:         genValidationRows,
		Seed:         genSeed + 1,
		NoiseColumns: genNoise,
		IndexColumn:  true,
		IDColumn:     common.DefaultIDColumn,
	})
	if err := dataset.WriteCSV(validationFile, validation); err != nil {
		return err
	}

	log.Info().
		Str("train", trainFile).
		Int("train_rows", genRows).
		Str("validation", validationFile).
		Int("validation_rows", genValidationRows).
		Msg("Synthetic data generated")
	return nil
}
