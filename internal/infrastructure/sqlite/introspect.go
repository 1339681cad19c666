package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/varunr89/oews-sub002/internal/domain/schema"
	"github.com/varunr89/oews-sub002/internal/pkg/logger"
)

// IntrospectSchema reads the full catalog: every base table with its
// columns, primary key, foreign keys, indexes and check constraints.
// System tables (sqlite_*) are excluded. Tables come back sorted by name.
func (s *Source) IntrospectSchema(ctx context.Context) ([]schema.SchemaDefinition, error) {
	tables, err := s.listTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	defs := make([]schema.SchemaDefinition, 0, len(tables))
	for _, t := range tables {
		def := schema.SchemaDefinition{Table: t.name}

		def.Columns, err = s.introspectColumns(ctx, t.name)
		if err != nil {
			return nil, fmt.Errorf("columns of %s: %w", t.name, err)
		}
		def.ForeignKeys, err = s.introspectForeignKeys(ctx, t.name)
		if err != nil {
			return nil, fmt.Errorf("foreign keys of %s: %w", t.name, err)
		}
		def.Indexes, err = s.introspectIndexes(ctx, t.name)
		if err != nil {
			return nil, fmt.Errorf("indexes of %s: %w", t.name, err)
		}
		def.Checks = parseCheckConstraints(t.name, t.createSQL)

		defs = append(defs, def)
	}

	resolveImplicitReferences(defs)
	return defs, nil
}

type tableEntry struct {
	name      string
	createSQL string
}

func (s *Source) listTables(ctx context.Context) ([]tableEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, sql FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []tableEntry
	for rows.Next() {
		var t tableEntry
		var createSQL sql.NullString
		if err := rows.Scan(&t.name, &createSQL); err != nil {
			return nil, err
		}
		t.createSQL = createSQL.String
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (s *Source) introspectColumns(ctx context.Context, table string) ([]schema.ColumnDefinition, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_xinfo(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []schema.ColumnDefinition
	for rows.Next() {
		var cid, notnull, pk, hidden int
		var name, declType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &declType, &notnull, &dflt, &pk, &hidden); err != nil {
			return nil, err
		}
		// hidden=1 marks virtual-table internals; generated columns
		// (hidden 2 and 3) are kept and materialize on read.
		if hidden == 1 {
			continue
		}
		cols = append(cols, schema.ColumnDefinition{
			Name:       name,
			SourceType: declType,
			Nullable:   notnull == 0,
			PrimaryKey: pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s has no columns", table)
	}
	return cols, nil
}

func (s *Source) introspectForeignKeys(ctx context.Context, table string) ([]schema.ForeignKeyConstraint, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int]*schema.ForeignKeyConstraint)
	var order []int
	for rows.Next() {
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		fk, ok := byID[id]
		if !ok {
			fk = &schema.ForeignKeyConstraint{
				Name:            fmt.Sprintf("fk_%s_%d", table, id),
				ReferencedTable: refTable,
				OnUpdate:        normalizeAction(onUpdate),
				OnDelete:        normalizeAction(onDelete),
			}
			byID[id] = fk
			order = append(order, id)
		}
		fk.Columns = append(fk.Columns, from)
		// A NULL target column means the FK references the parent's
		// primary key implicitly; resolved once all tables are read.
		if to.Valid {
			fk.ReferencedColumns = append(fk.ReferencedColumns, to.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Ints(order)
	fks := make([]schema.ForeignKeyConstraint, 0, len(order))
	for _, id := range order {
		fks = append(fks, *byID[id])
	}
	return fks, nil
}

func normalizeAction(action string) string {
	action = strings.ToUpper(strings.TrimSpace(action))
	if action == "" {
		return "NO ACTION"
	}
	return action
}

func (s *Source) introspectIndexes(ctx context.Context, table string) ([]schema.IndexDefinition, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type indexEntry struct {
		name    string
		unique  bool
		partial bool
	}
	var entries []indexEntry
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		// The primary key is emitted inline in the CREATE TABLE; its
		// auto index must not become a duplicate CREATE INDEX.
		if origin == "pk" {
			continue
		}
		entries = append(entries, indexEntry{name: name, unique: unique == 1, partial: partial == 1})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var indexes []schema.IndexDefinition
	for _, entry := range entries {
		if entry.partial {
			logger.Warn("skipping partial index, WHERE clause is not migrated", "index", entry.name, "table", table)
			continue
		}
		columns, expression, err := s.indexColumns(ctx, entry.name)
		if err != nil {
			return nil, err
		}
		if expression {
			logger.Warn("skipping expression index", "index", entry.name, "table", table)
			continue
		}
		indexes = append(indexes, schema.IndexDefinition{
			Name:    entry.name,
			Columns: columns,
			Unique:  entry.unique,
		})
	}
	return indexes, nil
}

func (s *Source) indexColumns(ctx context.Context, index string) (columns []string, expression bool, err error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(index)))
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, false, err
		}
		if !name.Valid {
			expression = true
			continue
		}
		columns = append(columns, name.String)
	}
	return columns, expression, rows.Err()
}

// resolveImplicitReferences fills in referenced columns for foreign keys
// declared against a parent table without naming its columns.
func resolveImplicitReferences(defs []schema.SchemaDefinition) {
	pkByTable := make(map[string][]string, len(defs))
	for _, d := range defs {
		pkByTable[d.Table] = d.PrimaryKeyColumns()
	}
	for i := range defs {
		for j := range defs[i].ForeignKeys {
			fk := &defs[i].ForeignKeys[j]
			if len(fk.ReferencedColumns) == 0 {
				fk.ReferencedColumns = append([]string{}, pkByTable[fk.ReferencedTable]...)
			}
		}
	}
}
