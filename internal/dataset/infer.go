package dataset

import (
	"strconv"
	"strings"
	"time"

	"dsimport/internal/schema"
)

// timestampLayouts are the layouts accepted when voting a column as DateTime.
// Date-only values also resolve to DateTime; the closed type set has no
// separate date type.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

func parseTimestamp(v string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseInt32(v string) (int32, bool) {
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

func parseFloat32(v string) (float32, bool) {
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, false
	}
	return float32(f), true
}

// inferColumnTypes votes a type per column over all string cells.
//
// A column gets a type only if every non-empty value parses as that type;
// empty cells do not vote. Preference order is most-specific first: Int32,
// then DateTime, then Float32, then the String fallback. Columns with no
// non-empty values stay String.
func inferColumnTypes(cols int, rows [][]string) []schema.Type {
	out := make([]schema.Type, cols)

	for col := 0; col < cols; col++ {
		var seen bool
		allInt := true
		allFloat := true
		allTS := true

		for _, r := range rows {
			if col >= len(r) {
				continue
			}
			v := strings.TrimSpace(r[col])
			if v == "" {
				continue
			}
			seen = true

			if allInt {
				if _, ok := parseInt32(v); !ok {
					allInt = false
				}
			}
			if allFloat {
				if _, ok := parseFloat32(v); !ok {
					allFloat = false
				}
			}
			if allTS {
				if _, ok := parseTimestamp(v); !ok {
					allTS = false
				}
			}
			if !allInt && !allFloat && !allTS {
				break
			}
		}

		switch {
		case !seen:
			out[col] = schema.String
		case allInt:
			out[col] = schema.Int32
		case allTS:
			out[col] = schema.DateTime
		case allFloat:
			out[col] = schema.Float32
		default:
			out[col] = schema.String
		}
	}

	return out
}

// convertCell turns a raw string cell into the typed value for its column.
// Empty cells become nil. A value that fails to parse (possible only when the
// caller did not infer the type from this data) is kept as its raw string.
func convertCell(v string, t schema.Type) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	switch t {
	case schema.Int32:
		if n, ok := parseInt32(v); ok {
			return n
		}
	case schema.Float32:
		if f, ok := parseFloat32(v); ok {
			return f
		}
	case schema.DateTime:
		if ts, ok := parseTimestamp(v); ok {
			return ts
		}
	}
	return v
}
