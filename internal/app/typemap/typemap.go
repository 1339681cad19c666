// Package typemap translates SQLite declared column types into Azure SQL
// types. The table is fixed and total over everything the extractor can
// hand us; anything unknown fails the job rather than guessing.
package typemap

import (
	"fmt"
	"strings"
)

// UnsupportedTypeError names the column whose declared type has no mapping.
type UnsupportedTypeError struct {
	Table        string
	Column       string
	DeclaredType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported source type %q on column %s.%s", e.DeclaredType, e.Table, e.Column)
}

// targetTypes keys are normalized declared types: uppercased, length
// suffixes stripped, whitespace collapsed. SQLite accepts any declared
// type, so the table lists the names SQLite's own documentation uses for
// each affinity plus the date/time and boolean conventions.
var targetTypes = map[string]string{
	// 64-bit covers SQLite's full integer range, rowid primary keys included.
	"INT":              "BIGINT",
	"INTEGER":          "BIGINT",
	"TINYINT":          "BIGINT",
	"SMALLINT":         "BIGINT",
	"MEDIUMINT":        "BIGINT",
	"BIGINT":           "BIGINT",
	"UNSIGNED BIG INT": "BIGINT",
	"INT2":             "BIGINT",
	"INT8":             "BIGINT",

	"CHARACTER":         "NVARCHAR(MAX)",
	"VARCHAR":           "NVARCHAR(MAX)",
	"VARYING CHARACTER": "NVARCHAR(MAX)",
	"NCHAR":             "NVARCHAR(MAX)",
	"NATIVE CHARACTER":  "NVARCHAR(MAX)",
	"NVARCHAR":          "NVARCHAR(MAX)",
	"TEXT":              "NVARCHAR(MAX)",
	"CLOB":              "NVARCHAR(MAX)",

	// Untyped columns get blob affinity in SQLite.
	"BLOB": "VARBINARY(MAX)",
	"":     "VARBINARY(MAX)",

	"REAL":             "FLOAT",
	"DOUBLE":           "FLOAT",
	"DOUBLE PRECISION": "FLOAT",
	"FLOAT":            "FLOAT",

	"NUMERIC": "DECIMAL(18,4)",
	"DECIMAL": "DECIMAL(18,4)",

	"BOOLEAN": "BIT",
	"BOOL":    "BIT",

	"DATE":      "DATETIME2",
	"DATETIME":  "DATETIME2",
	"TIMESTAMP": "DATETIME2",
}

// Normalize reduces a declared type to its table key: "varchar(60)" and
// "VARCHAR (60)" both become "VARCHAR".
func Normalize(declared string) string {
	s := strings.TrimSpace(declared)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// Lookup returns the target type for a declared source type.
func Lookup(declared string) (string, bool) {
	target, ok := targetTypes[Normalize(declared)]
	return target, ok
}

// Map resolves a column's declared type or fails with
// *UnsupportedTypeError naming the offending column.
func Map(table, column, declared string) (string, error) {
	target, ok := Lookup(declared)
	if !ok {
		return "", &UnsupportedTypeError{Table: table, Column: column, DeclaredType: declared}
	}
	return target, nil
}
