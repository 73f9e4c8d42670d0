package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
)

// SyntheticOptions shapes a generated sensor table.
type SyntheticOptions struct {
	Rows    int
	Seed    uint64
	Label   string
	Classes []string
	// NoiseColumns is the number of independent standard normal columns.
	NoiseColumns int
	// IndexColumn adds a leading row number column named "X".
	IndexColumn bool
	// IDColumn, when set, replaces the label with a sequential problem id.
	IDColumn string
}

// Synthetic generates CSV records, header first, that exercise every pruning
// filter:
//
//	constant   a single repeated value
//	sparse     missing on every row of the last class
//	pair_a/b   two columns with correlation 0.95
//	signal     class index plus noise
//	noise_<n>  independent standard normal
func Synthetic(opts SyntheticOptions) [][]string {
	if opts.Rows <= 0 {
		opts.Rows = 100
	}
	if len(opts.Classes) == 0 {
		opts.Classes = []string{"A", "B", "C", "D"}
	}
	if opts.Label == "" {
		opts.Label = "classe"
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))
	last := len(opts.Classes) - 1
	rho := 0.95
	resid := math.Sqrt(1 - rho*rho)

	var header []string
	if opts.IndexColumn {
		header = append(header, "X")
	}
	header = append(header, "constant", "sparse", "pair_a", "pair_b", "signal")
	for i := 1; i <= opts.NoiseColumns; i++ {
		header = append(header, fmt.Sprintf("noise_%d", i))
	}
	if opts.IDColumn != "" {
		header = append(header, opts.IDColumn)
	} else {
		header = append(header, opts.Label)
	}

	records := make([][]string, 0, opts.Rows+1)
	records = append(records, header)
	for i := 0; i < opts.Rows; i++ {
		class := i % len(opts.Classes)
		row := make([]string, 0, len(header))
		if opts.IndexColumn {
			row = append(row, strconv.Itoa(i+1))
		}

		a := rng.NormFloat64()
		b := rho*a + resid*rng.NormFloat64()
		sparse := "NA"
		if class != last {
			sparse = formatFloat(rng.NormFloat64())
		}
		signal := float64(class) + 0.3*rng.NormFloat64()

		row = append(row, "1", sparse, formatFloat(a), formatFloat(b), formatFloat(signal))
		for j := 0; j < opts.NoiseColumns; j++ {
			row = append(row, formatFloat(rng.NormFloat64()))
		}
		if opts.IDColumn != "" {
			row = append(row, strconv.Itoa(i+1))
		} else {
			row = append(row, opts.Classes[class])
		}
		records = append(records, row)
	}
	return records
}

// WriteCSV writes records to filePath, creating parent directories.
func WriteCSV(filePath string, records [][]string) error {
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
