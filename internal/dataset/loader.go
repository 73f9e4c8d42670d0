package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rs/zerolog/log"
)

// LoadOptions controls how a delimited file becomes a Table.
type LoadOptions struct {
	// Label is always loaded as a String column when present.
	Label string
	// MissingTokens are the cell values read as missing.
	MissingTokens []string
}

// LoadCSV loads a delimited file with a header row.
func LoadCSV(filePath string, opts LoadOptions) (*Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	t, err := ReadCSV(file, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filePath, err)
	}

	log.Info().
		Str("file", filePath).
		Int("rows", t.Nrow()).
		Int("columns", t.Ncol()).
		Msg("CSV data loaded successfully")

	return t, nil
}

// ReadCSV parses CSV records from r.
func ReadCSV(r io.Reader, opts LoadOptions) (*Table, error) {
	reader := csv.NewReader(r)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to read CSV header: %w", ErrEmptyTable)
	}
	if len(records) < 2 {
		return nil, ErrEmptyTable
	}

	// R writes the row index under an empty header cell and reads it back as "X".
	if records[0][0] == "" {
		records[0][0] = "X"
	}

	options := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(opts.MissingTokens),
	}
	if opts.Label != "" {
		options = append(options, dataframe.WithTypes(map[string]series.Type{
			opts.Label: series.String,
		}))
	}

	return NewTable(dataframe.LoadRecords(records, options...))
}
