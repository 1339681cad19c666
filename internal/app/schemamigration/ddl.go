package schemamigration

import (
	"fmt"
	"strings"

	"github.com/varunr89/oews-sub002/internal/app/typemap"
	"github.com/varunr89/oews-sub002/internal/domain/schema"
)

// sqlIdent quotes a T-SQL identifier with brackets.
func sqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func sqlIdentList(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = sqlIdent(name)
	}
	return strings.Join(quoted, ", ")
}

// mapAction translates a referential action to its T-SQL spelling.
// RESTRICT does not exist on the target; NO ACTION is its closest match.
func mapAction(action string) string {
	if action == "RESTRICT" || action == "" {
		return "NO ACTION"
	}
	return action
}

// buildCreateTable emits the CREATE TABLE statement with mapped column
// types and an inline named primary key. Output is deterministic: columns
// appear in extracted order and nothing is reformatted between calls.
func buildCreateTable(def schema.SchemaDefinition) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", sqlIdent(def.Table))

	pk := def.PrimaryKeyColumns()
	for i, col := range def.Columns {
		targetType, err := typemap.Map(def.Table, col.Name, col.SourceType)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  %s %s", sqlIdent(col.Name), targetType)
		// Primary key columns are forced NOT NULL; the target requires it
		// even where SQLite tolerated NULLs in a PK.
		if !col.Nullable || col.PrimaryKey {
			b.WriteString(" NOT NULL")
		}
		if i < len(def.Columns)-1 || len(pk) > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}

	if len(pk) > 0 {
		fmt.Fprintf(&b, "  CONSTRAINT %s PRIMARY KEY (%s)\n",
			sqlIdent("pk_"+def.Table), sqlIdentList(pk))
	}

	b.WriteString(")")
	return b.String(), nil
}

func buildCreateIndexes(def schema.SchemaDefinition) []string {
	statements := make([]string, 0, len(def.Indexes))
	for _, idx := range def.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		statements = append(statements, fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
			unique, sqlIdent(idx.Name), sqlIdent(def.Table), sqlIdentList(idx.Columns)))
	}
	return statements
}

func buildAddChecks(def schema.SchemaDefinition) []string {
	statements := make([]string, 0, len(def.Checks))
	for _, chk := range def.Checks {
		statements = append(statements, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)",
			sqlIdent(def.Table), sqlIdent(chk.Name), chk.Expression))
	}
	return statements
}

func buildAddForeignKeys(def schema.SchemaDefinition) []string {
	statements := make([]string, 0, len(def.ForeignKeys))
	for _, fk := range def.ForeignKeys {
		statements = append(statements, fmt.Sprintf(
			"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
			sqlIdent(def.Table), sqlIdent(fk.Name),
			sqlIdentList(fk.Columns),
			sqlIdent(fk.ReferencedTable), sqlIdentList(fk.ReferencedColumns),
			mapAction(fk.OnDelete), mapAction(fk.OnUpdate)))
	}
	return statements
}
