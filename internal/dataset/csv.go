package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"dsimport/internal/schema"
)

// readCSV loads a delimited-text file. The first record is the header; every
// data record must have the same field count. Column types are inferred by
// parse-voting over the full file (see inferColumnTypes), then cells are
// converted to their typed form.
func readCSV(name, path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Exported CSVs routinely arrive with a UTF-8 or UTF-16 BOM. BOMOverride
	// sniffs it and decodes accordingly; plain UTF-8 passes through.
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	cr := csv.NewReader(transform.NewReader(f, dec))
	cr.ReuseRecord = false

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv: empty file, expected a header row")
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	raw := records[1:]

	types := inferColumnTypes(len(header), raw)

	cols := make([]schema.Column, len(header))
	for i, h := range header {
		cols[i] = schema.Column{Name: h, Type: types[i]}
	}

	rows := make([][]any, len(raw))
	for i, rec := range raw {
		row := make([]any, len(cols))
		for c := range cols {
			row[c] = convertCell(rec[c], types[c])
		}
		rows[i] = row
	}

	return &Dataset{Name: name, Columns: cols, Rows: rows}, nil
}
