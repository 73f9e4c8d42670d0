package common

import "time"

// Environment variable keys
const (
	EnvConfigFile        = "CONFIG_FILE"
	EnvTrainPath         = "HAR_TRAIN_PATH"
	EnvValidationPath    = "HAR_VALIDATION_PATH"
	EnvDataDir           = "HAR_DATA_DIR"
	EnvOutputDir         = "HAR_OUTPUT_DIR"
	EnvStorePath         = "HAR_STORE_PATH"
	EnvLabelColumn       = "HAR_LABEL_COLUMN"
	EnvIDColumn          = "HAR_ID_COLUMN"
	EnvIrrelevantColumns = "HAR_IRRELEVANT_COLUMNS"
	EnvMissingTokens     = "HAR_MISSING_TOKENS"
	EnvTrainFraction     = "HAR_TRAIN_FRACTION"
	EnvSeed              = "HAR_SEED"
	EnvFreqCut           = "HAR_FREQ_CUT"
	EnvUniqueCut         = "HAR_UNIQUE_CUT"
	EnvMissingThreshold  = "HAR_MISSING_THRESHOLD"
	EnvCorrelationCutoff = "HAR_CORRELATION_CUTOFF"
	EnvTreePruneSplit    = "HAR_TREE_PRUNE_SPLIT"
	EnvForestSize        = "HAR_FOREST_SIZE"
	EnvForestFeatures    = "HAR_FOREST_FEATURES"
	EnvFetchTimeout      = "HAR_FETCH_TIMEOUT"
	EnvLogLevel          = "HAR_LOG_LEVEL"
)

// Configuration defaults
const (
	DefaultTrainPath         = "data/pml-training.csv"
	DefaultValidationPath    = "data/pml-testing.csv"
	DefaultDataDir           = "data"
	DefaultOutputDir         = "report"
	DefaultLabelColumn       = "classe"
	DefaultIDColumn          = "problem_id"
	DefaultTrainFraction     = 0.7
	DefaultSeed              = 12345
	DefaultFreqCut           = 95.0 / 5.0
	DefaultUniqueCut         = 10.0
	DefaultMissingThreshold  = 0.2
	DefaultCorrelationCutoff = 0.9
	DefaultTreePruneSplit    = 0.0
	DefaultForestSize        = 50
	DefaultForestFeatures    = 0 // floor(sqrt(features))
	DefaultFetchTimeout      = 60 * time.Second
	DefaultLogLevel          = "info"
)

// DefaultIrrelevantColumns are bookkeeping columns of the HAR dataset: the
// row index, the subject, the capture timestamps and the window counter.
var DefaultIrrelevantColumns = []string{
	"X",
	"user_name",
	"raw_timestamp_part_1",
	"raw_timestamp_part_2",
	"cvtd_timestamp",
	"num_window",
}

// DefaultMissingTokens are the cell values read as missing.
var DefaultMissingTokens = []string{"", "NA", "#DIV/0!"}

// Filter names used in selections, reports and metric labels
const (
	FilterNearZeroVariance = "near-zero-variance"
	FilterIrrelevant       = "irrelevant"
	FilterMissingness      = "missingness"
	FilterCorrelation      = "correlation"
	FilterNonNumeric       = "non-numeric"
)

// Model names
const (
	ModelDecisionTree = "decision_tree"
	ModelRandomForest = "random_forest"
)

// Validation constants
const (
	MaxForestSize    = 1000
	MaxTreePrune     = 0.9
	MinFetchTimeout  = time.Second
	MaxFetchTimeout  = 10 * time.Minute
	MinFreqCut       = 1.0
	MaxUniqueCutPerc = 100.0
)
