package dataset

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"dsimport/internal/schema"
)

// readParquet loads a columnar-binary file through the Arrow parquet reader
// and materializes every record batch.
//
// The Arrow schema is mapped onto the closed type set by exact match
// (int32, float32, utf8, timestamp); any other physical type, int64 and
// float64 included, falls back to String per the default-to-text policy.
func readParquet(ctx context.Context, name, path string) (*Dataset, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("parquet: open: %w", err)
	}
	defer pf.Close()

	rdr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: 4096}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("parquet: reader: %w", err)
	}

	tbl, err := rdr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("parquet: read table: %w", err)
	}
	defer tbl.Release()

	fields := tbl.Schema().Fields()
	cols := make([]schema.Column, len(fields))
	for i, f := range fields {
		cols[i] = schema.Column{Name: f.Name, Type: arrowColumnType(f.Type)}
	}

	rows := make([][]any, 0, int(tbl.NumRows()))
	tr := array.NewTableReader(tbl, 4096)
	defer tr.Release()

	for tr.Next() {
		rec := tr.Record()
		n := int(rec.NumRows())
		for r := 0; r < n; r++ {
			row := make([]any, len(cols))
			for c := range cols {
				row[c] = arrowValue(rec.Column(c), r)
			}
			rows = append(rows, row)
		}
	}

	return &Dataset{Name: name, Columns: cols, Rows: rows}, nil
}

func arrowColumnType(dt arrow.DataType) schema.Type {
	switch dt.ID() {
	case arrow.INT32:
		return schema.Int32
	case arrow.FLOAT32:
		return schema.Float32
	case arrow.STRING, arrow.LARGE_STRING:
		return schema.String
	case arrow.TIMESTAMP:
		return schema.DateTime
	default:
		return schema.String
	}
}

func arrowValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Int32:
		return a.Value(i)
	case *array.Float32:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	default:
		return arr.ValueStr(i)
	}
}
