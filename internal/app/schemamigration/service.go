// Package schemamigration turns the extracted source schema into target
// DDL and applies it in dependency-safe order.
package schemamigration

import (
	"context"
	"fmt"

	"github.com/varunr89/oews-sub002/internal/domain/schema"
	"github.com/varunr89/oews-sub002/internal/pkg/logger"
)

// ExtractionError reports that the source catalog could not be read.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("schema extraction failed: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// ApplicationError reports a DDL statement the target rejected. The failed
// table's transaction is already rolled back when this surfaces.
type ApplicationError struct {
	Table string
	Cause error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("schema application failed on table %s: %v", e.Table, e.Cause)
}

func (e *ApplicationError) Unwrap() error { return e.Cause }

// SchemaReader introspects the source catalog.
type SchemaReader interface {
	IntrospectSchema(ctx context.Context) ([]schema.SchemaDefinition, error)
}

// TargetExecutor runs DDL on the target database.
type TargetExecutor interface {
	// ExecInTransaction runs statements in one transaction, rolling back
	// all of them if any fails.
	ExecInTransaction(ctx context.Context, statements []string) error
	// Exec runs a single autocommitted statement.
	Exec(ctx context.Context, statement string) error
}

// Service converts and applies schemas. Stateless; safe to reuse.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Extract reads every base table's definition from the source.
func (s *Service) Extract(ctx context.Context, reader SchemaReader) ([]schema.SchemaDefinition, error) {
	defs, err := reader.IntrospectSchema(ctx)
	if err != nil {
		return nil, &ExtractionError{Cause: err}
	}
	logger.Info("schema extracted", "tables", len(defs))
	return defs, nil
}

// Convert produces the target DDL for one table. Identical input yields
// byte-identical output.
func (s *Service) Convert(def schema.SchemaDefinition) (schema.DDLStatement, error) {
	createTable, err := buildCreateTable(def)
	if err != nil {
		return schema.DDLStatement{}, err
	}
	return schema.DDLStatement{
		Table:          def.Table,
		CreateTable:    createTable,
		CreateIndexes:  buildCreateIndexes(def),
		AddChecks:      buildAddChecks(def),
		AddForeignKeys: buildAddForeignKeys(def),
	}, nil
}

// ConvertAll converts every table, failing on the first unmappable column.
func (s *Service) ConvertAll(defs []schema.SchemaDefinition) ([]schema.DDLStatement, error) {
	statements := make([]schema.DDLStatement, 0, len(defs))
	for _, def := range defs {
		ddl, err := s.Convert(def)
		if err != nil {
			return nil, err
		}
		statements = append(statements, ddl)
	}
	return statements, nil
}

// CreationOrder sorts tables so every table follows the tables it
// references. Fails with *schema.CircularDependencyError on a cycle.
func (s *Service) CreationOrder(defs []schema.SchemaDefinition) ([]string, error) {
	return schema.BuildGraph(defs).TopologicalSort()
}

// Apply runs the DDL against the target in creation order. Each table's
// CREATE TABLE, indexes and checks run in their own transaction; foreign
// keys are added in a final pass once every table exists, so reference
// targets are always present. Cancellation is honored between statements,
// never inside a table's transaction.
func (s *Service) Apply(ctx context.Context, target TargetExecutor, statements []schema.DDLStatement, order []string) error {
	byTable := make(map[string]schema.DDLStatement, len(statements))
	for _, ddl := range statements {
		byTable[ddl.Table] = ddl
	}

	for _, table := range order {
		if err := ctx.Err(); err != nil {
			return &ApplicationError{Table: table, Cause: err}
		}
		ddl, ok := byTable[table]
		if !ok {
			return &ApplicationError{Table: table, Cause: fmt.Errorf("no DDL generated for table")}
		}
		batch := make([]string, 0, 1+len(ddl.CreateIndexes)+len(ddl.AddChecks))
		batch = append(batch, ddl.CreateTable)
		batch = append(batch, ddl.CreateIndexes...)
		batch = append(batch, ddl.AddChecks...)
		if err := target.ExecInTransaction(ctx, batch); err != nil {
			return &ApplicationError{Table: table, Cause: err}
		}
		logger.Info("table created", "table", table, "indexes", len(ddl.CreateIndexes), "checks", len(ddl.AddChecks))
	}

	for _, table := range order {
		ddl := byTable[table]
		for _, stmt := range ddl.AddForeignKeys {
			if err := ctx.Err(); err != nil {
				return &ApplicationError{Table: table, Cause: err}
			}
			if err := target.Exec(ctx, stmt); err != nil {
				return &ApplicationError{Table: table, Cause: err}
			}
		}
	}
	return nil
}
