package mssql

import (
	"context"
	"database/sql"
	"fmt"
)

// TableExists reports whether a base table with the given name exists.
func (t *Target) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := t.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = @p1 AND TABLE_TYPE = 'BASE TABLE'",
		table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}

// RowCount returns the number of rows in table.
func (t *Target) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	err := t.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT_BIG(*) FROM %s", quoteIdent(table))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}
	return n, nil
}

// SampleRows draws n rows uniformly at random from table.
func (t *Target) SampleRows(ctx context.Context, table string, columns []string, n int) ([][]any, error) {
	query := fmt.Sprintf("SELECT TOP (@p1) %s FROM %s ORDER BY NEWID()",
		quoteIdentList(columns), quoteIdent(table))

	rows, err := t.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", table, err)
	}
	defer rows.Close()
	return scanAll(rows, len(columns))
}

func scanAll(rows *sql.Rows, width int) ([][]any, error) {
	vals := make([]any, width)
	ptrs := make([]any, width)
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	var out [][]any
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]any, width)
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				row[i] = append([]byte(nil), b...)
				continue
			}
			row[i] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
