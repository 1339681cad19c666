package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Rows streams one table's rows. Values copies the driver's buffers, so a
// returned row stays valid after the next call.
type Rows struct {
	rows *sql.Rows
	ptrs []any
	vals []any
}

func (r *Rows) Next() bool {
	return r.rows.Next()
}

// Values scans the current row. Byte slices are copied out of the driver's
// reusable buffer.
func (r *Rows) Values() ([]any, error) {
	if err := r.rows.Scan(r.ptrs...); err != nil {
		return nil, err
	}
	row := make([]any, len(r.vals))
	for i, v := range r.vals {
		if b, ok := v.([]byte); ok {
			row[i] = append([]byte(nil), b...)
			continue
		}
		row[i] = v
	}
	return row, nil
}

func (r *Rows) Err() error {
	return r.rows.Err()
}

func (r *Rows) Close() error {
	return r.rows.Close()
}

// ReadTable streams every row of table in a stable order: the primary key
// when there is one, rowid otherwise.
func (s *Source) ReadTable(ctx context.Context, table string, columns, orderBy []string) (*Rows, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("read %s: no columns", table)
	}
	order := "rowid"
	if len(orderBy) > 0 {
		order = joinIdents(orderBy)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		joinIdents(columns), quoteIdent(table), order)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return newRows(rows, len(columns)), nil
}

// SampleRows draws n rows uniformly at random from table.
func (s *Source) SampleRows(ctx context.Context, table string, columns []string, n int) ([][]any, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY random() LIMIT %d",
		joinIdents(columns), quoteIdent(table), n)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", table, err)
	}
	r := newRows(rows, len(columns))
	defer r.Close()

	var out [][]any
	for r.Next() {
		row, err := r.Values()
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", table, err)
		}
		out = append(out, row)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("sample %s: %w", table, err)
	}
	return out, nil
}

func newRows(rows *sql.Rows, n int) *Rows {
	r := &Rows{rows: rows, vals: make([]any, n), ptrs: make([]any, n)}
	for i := range r.vals {
		r.ptrs[i] = &r.vals[i]
	}
	return r
}

func joinIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}
	return strings.Join(quoted, ", ")
}
