// Package source reads raw tabular and GeoJSON inputs from disk.
// It performs structural parsing only; geographic filtering and schema
// coercion happen downstream.
package source

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/you/transitmap/internal/geo"
)

// ErrSourceNotFound indicates a source path that does not exist.
var ErrSourceNotFound = errors.New("source file not found")

// ParseError indicates a source whose content is not valid for its
// expected format.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse source %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError indicates a tabular source missing required columns.
// It is fatal for the ingestion run; partial ingestion of a malformed
// source is never attempted.
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("source %s is missing required columns: %s", e.Path, strings.Join(e.Missing, ", "))
}

// Table holds a parsed tabular source. Column names are lower-cased so
// downstream lookups are case-insensitive.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// LoadFeatureCollection parses a GeoJSON file into a feature collection.
func LoadFeatureCollection(path string) (*geo.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("failed to read source %s: %w", path, err)
	}

	var fc geo.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &fc, nil
}

// LoadTable parses a delimited file into rows keyed by lower-cased column
// name. Every name in required must be present in the header; absence is a
// fatal SchemaError.
func LoadTable(path string, required []string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("failed to open source %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(h))
	}

	if missing := missingColumns(columns, required); len(missing) > 0 {
		return nil, &SchemaError{Path: path, Missing: missing}
	}

	table := &Table{Columns: columns}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}

		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func missingColumns(columns, required []string) []string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	var missing []string
	for _, r := range required {
		if !present[strings.ToLower(r)] {
			missing = append(missing, r)
		}
	}
	return missing
}
