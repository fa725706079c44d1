// Package dataset loads a single source file into an in-memory columnar
// table. Supported formats are CSV, JSON and parquet; a per-dataset override
// can switch a file to key-value mode (flat JSON object -> two-column table).
//
// Datasets live only for the duration of one import pass; nothing here
// persists or touches the destination store.
package dataset

import (
	"path/filepath"
	"strings"

	"dsimport/internal/schema"
)

// Format is the closed set of file formats the reader understands. The
// underlying value is the raw file-extension tag so an unrecognized tag can
// be carried into the error that rejects it.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// Mode selects the reader strategy for a dataset.
type Mode int

const (
	// ModeRecords is the generic path: rows of records, dispatched by Format.
	ModeRecords Mode = iota

	// ModeKeyValue treats the file as one flat JSON object and synthesizes a
	// two-column (code, name) table from its entries, preserving key order.
	// It applies regardless of the file's format tag.
	ModeKeyValue
)

// Dataset is one source file fully loaded: an ordered column schema plus the
// rows aligned to it. Name doubles as the destination table name.
type Dataset struct {
	Name    string
	Columns []schema.Column
	Rows    [][]any
}

// ColumnNames returns the column names in schema order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// FormatForPath derives the format tag from the file extension. The suffix
// match is case-sensitive; anything unrecognized is returned as-is so the
// reader can report the offending tag.
func FormatForPath(path string) Format {
	return Format(strings.TrimPrefix(filepath.Ext(path), "."))
}

// NameForPath derives the dataset (and destination table) name from the file
// stem, the extension-stripped base name.
func NameForPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
