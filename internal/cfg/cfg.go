package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"har-report/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	TrainPath         string
	ValidationPath    string
	DataDir           string
	OutputDir         string
	StorePath         string
	LabelColumn       string
	IDColumn          string
	IrrelevantColumns []string
	MissingTokens     []string
	TrainFraction     float64
	Seed              uint64
	FreqCut           float64
	UniqueCut         float64
	MissingThreshold  float64
	CorrelationCutoff float64
	TreePruneSplit    float64
	ForestSize        int
	ForestFeatures    int
	FetchTimeout      time.Duration
	LogLevel          string
}

type ConfigFile struct {
	Data struct {
		TrainPath      string   `yaml:"trainPath"`
		ValidationPath string   `yaml:"validationPath"`
		DataDir        string   `yaml:"dataDir"`
		LabelColumn    string   `yaml:"labelColumn"`
		IDColumn       string   `yaml:"idColumn"`
		MissingTokens  []string `yaml:"missingTokens"`
		FetchTimeout   string   `yaml:"fetchTimeout"`
	} `yaml:"data"`

	Split struct {
		TrainFraction float64 `yaml:"trainFraction"`
		Seed          uint64  `yaml:"seed"`
	} `yaml:"split"`

	Pruning struct {
		IrrelevantColumns []string `yaml:"irrelevantColumns"`
		FreqCut           float64  `yaml:"freqCut"`
		UniqueCut         float64  `yaml:"uniqueCut"`
		MissingThreshold  float64  `yaml:"missingThreshold"`
		CorrelationCutoff float64  `yaml:"correlationCutoff"`
	} `yaml:"pruning"`

	Models struct {
		TreePruneSplit float64 `yaml:"treePruneSplit"`
		ForestSize     int     `yaml:"forestSize"`
		ForestFeatures int     `yaml:"forestFeatures"`
	} `yaml:"models"`

	Output struct {
		Dir       string `yaml:"dir"`
		StorePath string `yaml:"storePath"`
		LogLevel  string `yaml:"logLevel"`
	} `yaml:"output"`
}

// Load reads the optional .env file and then builds Settings from CONFIG_FILE
// (with environment overrides) or from the environment alone.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	fetchTimeout, err := time.ParseDuration(config.Data.FetchTimeout)
	if err != nil {
		fetchTimeout = common.DefaultFetchTimeout
	}

	missingTokens := config.Data.MissingTokens
	if len(missingTokens) == 0 {
		missingTokens = common.DefaultMissingTokens
	}
	irrelevant := config.Pruning.IrrelevantColumns
	if irrelevant == nil {
		irrelevant = common.DefaultIrrelevantColumns
	}

	settings := Settings{
		TrainPath:         getEnvOrDefault(common.EnvTrainPath, orString(config.Data.TrainPath, common.DefaultTrainPath)),
		ValidationPath:    getEnvOrDefault(common.EnvValidationPath, orString(config.Data.ValidationPath, common.DefaultValidationPath)),
		DataDir:           getEnvOrDefault(common.EnvDataDir, orString(config.Data.DataDir, common.DefaultDataDir)),
		OutputDir:         getEnvOrDefault(common.EnvOutputDir, orString(config.Output.Dir, common.DefaultOutputDir)),
		StorePath:         getEnvOrDefault(common.EnvStorePath, config.Output.StorePath),
		LabelColumn:       getEnvOrDefault(common.EnvLabelColumn, orString(config.Data.LabelColumn, common.DefaultLabelColumn)),
		IDColumn:          getEnvOrDefault(common.EnvIDColumn, orString(config.Data.IDColumn, common.DefaultIDColumn)),
		IrrelevantColumns: getListFromEnvOrConfig(common.EnvIrrelevantColumns, irrelevant),
		MissingTokens:     getListFromEnvOrConfig(common.EnvMissingTokens, missingTokens),
		TrainFraction:     getFloatFromEnvOrConfig(common.EnvTrainFraction, config.Split.TrainFraction, common.DefaultTrainFraction),
		Seed:              getUintFromEnvOrConfig(common.EnvSeed, config.Split.Seed, common.DefaultSeed),
		FreqCut:           getFloatFromEnvOrConfig(common.EnvFreqCut, config.Pruning.FreqCut, common.DefaultFreqCut),
		UniqueCut:         getFloatFromEnvOrConfig(common.EnvUniqueCut, config.Pruning.UniqueCut, common.DefaultUniqueCut),
		MissingThreshold:  getFloatFromEnvOrConfig(common.EnvMissingThreshold, config.Pruning.MissingThreshold, common.DefaultMissingThreshold),
		CorrelationCutoff: getFloatFromEnvOrConfig(common.EnvCorrelationCutoff, config.Pruning.CorrelationCutoff, common.DefaultCorrelationCutoff),
		TreePruneSplit:    getFloatFromEnvOrConfig(common.EnvTreePruneSplit, config.Models.TreePruneSplit, common.DefaultTreePruneSplit),
		ForestSize:        getIntFromEnvOrConfig(common.EnvForestSize, config.Models.ForestSize, common.DefaultForestSize),
		ForestFeatures:    getIntFromEnvOrConfig(common.EnvForestFeatures, config.Models.ForestFeatures, common.DefaultForestFeatures),
		FetchTimeout:      getDurationOrDefault(common.EnvFetchTimeout, fetchTimeout),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, orString(config.Output.LogLevel, common.DefaultLogLevel)),
	}

	if err := ValidateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		TrainPath:         getEnvOrDefault(common.EnvTrainPath, common.DefaultTrainPath),
		ValidationPath:    getEnvOrDefault(common.EnvValidationPath, common.DefaultValidationPath),
		DataDir:           getEnvOrDefault(common.EnvDataDir, common.DefaultDataDir),
		OutputDir:         getEnvOrDefault(common.EnvOutputDir, common.DefaultOutputDir),
		StorePath:         os.Getenv(common.EnvStorePath), // optional
		LabelColumn:       getEnvOrDefault(common.EnvLabelColumn, common.DefaultLabelColumn),
		IDColumn:          getEnvOrDefault(common.EnvIDColumn, common.DefaultIDColumn),
		IrrelevantColumns: getListFromEnvOrConfig(common.EnvIrrelevantColumns, common.DefaultIrrelevantColumns),
		MissingTokens:     getListFromEnvOrConfig(common.EnvMissingTokens, common.DefaultMissingTokens),
		TrainFraction:     getFloatOrDefault(common.EnvTrainFraction, common.DefaultTrainFraction),
		Seed:              getUintOrDefault(common.EnvSeed, common.DefaultSeed),
		FreqCut:           getFloatOrDefault(common.EnvFreqCut, common.DefaultFreqCut),
		UniqueCut:         getFloatOrDefault(common.EnvUniqueCut, common.DefaultUniqueCut),
		MissingThreshold:  getFloatOrDefault(common.EnvMissingThreshold, common.DefaultMissingThreshold),
		CorrelationCutoff: getFloatOrDefault(common.EnvCorrelationCutoff, common.DefaultCorrelationCutoff),
		TreePruneSplit:    getFloatOrDefault(common.EnvTreePruneSplit, common.DefaultTreePruneSplit),
		ForestSize:        getIntOrDefault(common.EnvForestSize, common.DefaultForestSize),
		ForestFeatures:    getIntOrDefault(common.EnvForestFeatures, common.DefaultForestFeatures),
		FetchTimeout:      getDurationOrDefault(common.EnvFetchTimeout, common.DefaultFetchTimeout),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
	}

	if err := ValidateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orString(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getUintOrDefault(key string, defaultValue uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			return u
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// splitList splits a comma separated value. Empty items are kept so that
// the empty cell can be listed as a missing token (",NA").
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func getListFromEnvOrConfig(key string, configValue []string) []string {
	if env, ok := os.LookupEnv(key); ok && env != "" {
		return splitList(env)
	}
	return configValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getUintFromEnvOrConfig(key string, configValue, defaultValue uint64) uint64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseUint(env, 10, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// ValidateSettings checks every value for its allowed range. It is exported
// so the CLI can re-validate after applying flag overrides.
func ValidateSettings(settings *Settings) error {
	if settings.TrainPath == "" {
		return fmt.Errorf("training data path cannot be empty")
	}
	if settings.ValidationPath == "" {
		return fmt.Errorf("validation data path cannot be empty")
	}
	if settings.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if settings.LabelColumn == "" {
		return fmt.Errorf("label column cannot be empty")
	}

	if settings.TrainFraction <= 0 || settings.TrainFraction >= 1 {
		return fmt.Errorf("train fraction must be between 0 and 1 (exclusive), got %f", settings.TrainFraction)
	}

	if settings.FreqCut <= common.MinFreqCut {
		return fmt.Errorf("frequency ratio cut must be greater than %.0f, got %f", common.MinFreqCut, settings.FreqCut)
	}
	if settings.UniqueCut <= 0 || settings.UniqueCut > common.MaxUniqueCutPerc {
		return fmt.Errorf("unique percentage cut must be between 0 and 100, got %f", settings.UniqueCut)
	}
	if settings.MissingThreshold <= 0 || settings.MissingThreshold > 1 {
		return fmt.Errorf("missing threshold must be between 0 and 1, got %f", settings.MissingThreshold)
	}
	if settings.CorrelationCutoff <= 0 || settings.CorrelationCutoff > 1 {
		return fmt.Errorf("correlation cutoff must be between 0 and 1, got %f", settings.CorrelationCutoff)
	}

	if settings.TreePruneSplit < 0 || settings.TreePruneSplit > common.MaxTreePrune {
		return fmt.Errorf("tree prune split must be between 0 and %.1f, got %f", common.MaxTreePrune, settings.TreePruneSplit)
	}
	if settings.ForestSize <= 0 || settings.ForestSize > common.MaxForestSize {
		return fmt.Errorf("forest size must be between 1 and %d, got %d", common.MaxForestSize, settings.ForestSize)
	}
	if settings.ForestFeatures < 0 {
		return fmt.Errorf("forest features cannot be negative, got %d", settings.ForestFeatures)
	}

	if settings.FetchTimeout < common.MinFetchTimeout || settings.FetchTimeout > common.MaxFetchTimeout {
		return fmt.Errorf("fetch timeout must be between 1s and 10m, got %v", settings.FetchTimeout)
	}

	return nil
}
