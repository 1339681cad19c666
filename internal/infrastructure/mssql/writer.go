package mssql

import (
	"context"
	"fmt"
	"strings"
)

// T-SQL caps one statement at 2100 parameters and a VALUES list at 1000
// rows. Batches beyond either limit are split into several statements
// inside the same transaction.
const (
	maxParamsPerStatement = 2100
	maxRowsPerValues      = 1000
)

// rowsPerStatement returns how many rows of the given width fit into one
// INSERT statement.
func rowsPerStatement(columns int) int {
	if columns <= 0 {
		return 0
	}
	n := maxParamsPerStatement / columns
	if n > maxRowsPerValues {
		n = maxRowsPerValues
	}
	if n < 1 {
		n = 1
	}
	return n
}

// insertStatement builds a multi-row parameterized INSERT for rowCount rows
// of the given columns, using the driver's @pN placeholders.
func insertStatement(table string, columns []string, rowCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", quoteIdent(table), quoteIdentList(columns))
	p := 1
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			p++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// InsertBatch writes rows into table inside one transaction. The batch is
// all-or-nothing: a failure rolls every row in it back.
func (t *Target) InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	width := len(columns)
	if width == 0 {
		return fmt.Errorf("insert into %s: no columns", table)
	}
	chunk := rowsPerStatement(width)

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert into %s: begin: %w", table, err)
	}
	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		part := rows[start:end]

		args := make([]any, 0, len(part)*width)
		for _, row := range part {
			if len(row) != width {
				tx.Rollback()
				return fmt.Errorf("insert into %s: row has %d values, want %d", table, len(row), width)
			}
			args = append(args, row...)
		}
		stmt := insertStatement(table, columns, len(part))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert into %s: commit: %w", table, err)
	}
	return nil
}
