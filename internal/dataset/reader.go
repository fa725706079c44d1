package dataset

import "context"

// Read loads the file at path into a Dataset named name.
//
// The mode override is checked before generic format dispatch: a dataset
// configured as ModeKeyValue is parsed as a flat JSON object whatever its
// extension says. Unknown formats fail with *UnsupportedFormatError; any I/O
// or parse failure is wrapped in *ReadError.
func Read(ctx context.Context, name, path string, format Format, mode Mode) (*Dataset, error) {
	if mode == ModeKeyValue {
		ds, err := readKeyValue(name, path)
		if err != nil {
			return nil, &ReadError{Path: path, Err: err}
		}
		return ds, nil
	}

	var (
		ds  *Dataset
		err error
	)
	switch format {
	case FormatCSV:
		ds, err = readCSV(name, path)
	case FormatJSON:
		ds, err = readJSONRecords(name, path)
	case FormatParquet:
		ds, err = readParquet(ctx, name, path)
	default:
		return nil, &UnsupportedFormatError{Tag: string(format)}
	}
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return ds, nil
}
