// Package schema defines the importer's column type enumeration and the DDL
// synthesis for destination tables.
//
// The type set is intentionally closed: every source column must resolve to
// exactly one of the four types below, and anything a reader cannot classify
// falls back to String. Mapping and DDL generation are pure functions so they
// can be tested without a store.
package schema

import (
	"strings"
)

// Type is the closed set of column types the importer works with.
type Type int

const (
	// String is the default type. Any source type outside the closed set
	// resolves to String rather than failing.
	String Type = iota
	Int32
	Float32
	DateTime
)

// String returns the importer-internal label for a type.
func (t Type) String() string {
	switch t {
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case DateTime:
		return "datetime"
	case String:
		return "string"
	default:
		return "string"
	}
}

// Column is a single (name, type) entry of a dataset schema. Column order is
// significant and is preserved from source file to generated DDL.
type Column struct {
	Name string
	Type Type
}

// Engine is the table engine every destination table is created with. Tables
// are transient staging targets; no partitioning or durability is modeled.
const Engine = "Memory"

// StoreType maps a column type to its destination store type name.
//
// The mapping is total: types outside the closed set map to "String" instead
// of producing an error.
func StoreType(t Type) string {
	switch t {
	case Int32:
		return "Int32"
	case Float32:
		return "Float32"
	case DateTime:
		return "DateTime"
	default:
		return "String"
	}
}

// ColumnDefs renders one "<name> <type>" definition per column, in the
// column order given.
func ColumnDefs(cols []Column) []string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c.Name + " " + StoreType(c.Type)
	}
	return defs
}

// CreateTableDDL synthesizes the full CREATE TABLE statement for a dataset.
//
// The statement shape is fixed:
//
//	CREATE TABLE <table> (<name> <type>, ...) ENGINE = Memory
func CreateTableDDL(table string, cols []Column) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(ColumnDefs(cols), ", "))
	b.WriteString(") ENGINE = ")
	b.WriteString(Engine)
	return b.String()
}
