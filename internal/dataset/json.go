package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"dsimport/internal/schema"
)

// readKeyValue parses the file as one flat JSON object and synthesizes a
// two-column table: column "code" holds the object's keys, column "name" the
// corresponding values, in object key order.
//
// encoding/json maps do not preserve key order, so the object is walked
// token-by-token instead of decoded into a map.
func readKeyValue(name, path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("json: read first token: %w", err)
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("json: key-value dataset must be a flat object, got %v", tok)
	}

	var rows [][]any
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("json: read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("json: object key not a string (got %T)", keyTok)
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("json: decode value for key %q: %w", key, err)
		}
		val, err := scalarString(raw)
		if err != nil {
			return nil, fmt.Errorf("json: value for key %q: %w", key, err)
		}
		rows = append(rows, []any{key, val})
	}
	if end, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("json: read object end: %w", err)
	} else if end != json.Delim('}') {
		return nil, fmt.Errorf("json: expected object end '}', got %v", end)
	}

	return &Dataset{
		Name: name,
		Columns: []schema.Column{
			{Name: "code", Type: schema.String},
			{Name: "name", Type: schema.String},
		},
		Rows: rows,
	}, nil
}

// readJSONRecords loads a JSON file whose root is an array of objects, or a
// single object treated as one record. Column order follows the key order of
// the first record; later records must not introduce new keys.
func readJSONRecords(name, path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("json: empty file")
		}
		return nil, fmt.Errorf("json: read first token: %w", err)
	}

	var (
		keys    []string
		records []map[string]any
	)

	switch tok {
	case json.Delim('['):
		first := true
		for dec.More() {
			if first {
				elemTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("json: read first element: %w", err)
				}
				if elemTok != json.Delim('{') {
					return nil, fmt.Errorf("json: array element not an object (got %v)", elemTok)
				}
				var obj map[string]any
				keys, obj, err = decodeOrderedObject(dec)
				if err != nil {
					return nil, err
				}
				records = append(records, obj)
				first = false
				continue
			}

			var obj map[string]any
			if err := dec.Decode(&obj); err != nil {
				return nil, fmt.Errorf("json: decode array element %d: %w", len(records), err)
			}
			for k := range obj {
				if !containsKey(keys, k) {
					return nil, fmt.Errorf("json: record %d has unexpected field %q", len(records), k)
				}
			}
			records = append(records, obj)
		}
		if end, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("json: read array end: %w", err)
		} else if end != json.Delim(']') {
			return nil, fmt.Errorf("json: expected array end ']', got %v", end)
		}

	case json.Delim('{'):
		var obj map[string]any
		keys, obj, err = decodeOrderedObject(dec)
		if err != nil {
			return nil, err
		}
		records = append(records, obj)

	default:
		return nil, fmt.Errorf("json: unsupported root token %v (want object or array)", tok)
	}

	return buildJSONDataset(name, keys, records)
}

// decodeOrderedObject consumes an object whose opening '{' has already been
// read. It returns the keys in encounter order alongside the decoded map.
func decodeOrderedObject(dec *json.Decoder) ([]string, map[string]any, error) {
	var keys []string
	obj := make(map[string]any)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("json: read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("json: object key not a string (got %T)", keyTok)
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("json: decode value for key %q: %w", key, err)
		}

		if _, dup := obj[key]; !dup {
			keys = append(keys, key)
		}
		obj[key] = raw
	}
	if end, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("json: read object end: %w", err)
	} else if end != json.Delim('}') {
		return nil, nil, fmt.Errorf("json: expected object end '}', got %v", end)
	}

	return keys, obj, nil
}

// buildJSONDataset votes a column type per key and converts values to their
// typed form. Numbers become Int32 when every value is an integral int32,
// Float32 when every value is numeric; everything else is String.
func buildJSONDataset(name string, keys []string, records []map[string]any) (*Dataset, error) {
	cols := make([]schema.Column, len(keys))
	for i, k := range keys {
		cols[i] = schema.Column{Name: k, Type: voteJSONColumn(k, records)}
	}

	rows := make([][]any, len(records))
	for r, rec := range records {
		row := make([]any, len(cols))
		for c, col := range cols {
			v, err := convertJSONValue(rec[col.Name], col.Type)
			if err != nil {
				return nil, fmt.Errorf("json: record %d, field %q: %w", r, col.Name, err)
			}
			row[c] = v
		}
		rows[r] = row
	}

	return &Dataset{Name: name, Columns: cols, Rows: rows}, nil
}

func voteJSONColumn(key string, records []map[string]any) schema.Type {
	seen := false
	allInt := true
	allFloat := true

	for _, rec := range records {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		seen = true

		num, isNum := v.(json.Number)
		if !isNum {
			return schema.String
		}
		if allInt {
			if _, ok := parseInt32(num.String()); !ok {
				allInt = false
			}
		}
		if allFloat {
			if _, ok := parseFloat32(num.String()); !ok {
				allFloat = false
			}
		}
		if !allInt && !allFloat {
			return schema.String
		}
	}

	switch {
	case !seen:
		return schema.String
	case allInt:
		return schema.Int32
	case allFloat:
		return schema.Float32
	default:
		return schema.String
	}
}

func convertJSONValue(v any, t schema.Type) (any, error) {
	if v == nil {
		return nil, nil
	}

	if num, ok := v.(json.Number); ok {
		switch t {
		case schema.Int32:
			if n, ok := parseInt32(num.String()); ok {
				return n, nil
			}
		case schema.Float32:
			if f, ok := parseFloat32(num.String()); ok {
				return f, nil
			}
		}
		return num.String(), nil
	}

	return scalarString(v)
}

// scalarString renders a decoded JSON value as a string. Containers are kept
// as their compact JSON text, matching the default-to-text policy.
func scalarString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("marshal non-scalar value: %w", err)
		}
		return string(b), nil
	}
}

func containsKey(keys []string, k string) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}
