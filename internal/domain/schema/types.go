// Package schema defines the extracted shape of the source database and the
// converted DDL destined for the target. Definitions are produced once by
// extraction and never mutated afterward.
package schema

// ColumnDefinition describes a single column as declared in the source.
type ColumnDefinition struct {
	// Name is the column name, carried verbatim to the target.
	Name string

	// SourceType is the declared type text from the source catalog,
	// e.g. "INTEGER", "NUMERIC(10,2)". Mapping to a target type is the
	// type mapper's job; extraction never interprets it.
	SourceType string

	// Nullable is false when the source declared NOT NULL.
	Nullable bool

	// PrimaryKey marks membership in the table's primary key.
	PrimaryKey bool
}

// ForeignKeyConstraint describes one foreign key, possibly multi-column.
type ForeignKeyConstraint struct {
	// Name is the constraint name used on the target. Source constraints
	// without names get a deterministic generated one.
	Name string

	// Columns are the referencing columns in declaration order.
	Columns []string

	// ReferencedTable is the table the key points at.
	ReferencedTable string

	// ReferencedColumns pair up with Columns.
	ReferencedColumns []string

	// OnDelete and OnUpdate carry the referential actions
	// (NO ACTION, CASCADE, SET NULL, SET DEFAULT, RESTRICT).
	OnDelete string
	OnUpdate string
}

// IndexDefinition describes a secondary index. Primary keys are not listed
// here; they ride inline on the CREATE TABLE.
type IndexDefinition struct {
	Name    string
	Columns []string
	Unique  bool
}

// CheckConstraint carries a CHECK expression as verbatim source text.
// Expression syntax is not rewritten; anything both dialects accept survives.
type CheckConstraint struct {
	Name       string
	Expression string
}

// SchemaDefinition is the full extracted definition of one source table.
type SchemaDefinition struct {
	Table       string
	Columns     []ColumnDefinition
	ForeignKeys []ForeignKeyConstraint
	Indexes     []IndexDefinition
	Checks      []CheckConstraint
}

// PrimaryKeyColumns returns the names of the primary-key columns in
// declaration order, or nil when the table has no primary key.
func (s *SchemaDefinition) PrimaryKeyColumns() []string {
	var cols []string
	for _, c := range s.Columns {
		if c.PrimaryKey {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// ColumnNames returns every column name in declaration order.
func (s *SchemaDefinition) ColumnNames() []string {
	cols := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = c.Name
	}
	return cols
}

// References reports whether the table has a foreign key pointing at other.
// Self-references do not count; they never constrain creation order.
func (s *SchemaDefinition) References(other string) bool {
	for _, fk := range s.ForeignKeys {
		if fk.ReferencedTable == other && other != s.Table {
			return true
		}
	}
	return false
}

// DDLStatement is the converted, ready-to-apply DDL for one table. The
// statements are grouped so the applier can run CreateTable+CreateIndexes+
// AddChecks inside one transaction per table and defer AddForeignKeys until
// every table exists.
type DDLStatement struct {
	Table          string
	CreateTable    string
	CreateIndexes  []string
	AddChecks      []string
	AddForeignKeys []string
}
