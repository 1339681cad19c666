package schemamigration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/varunr89/oews-sub002/internal/app/typemap"
	"github.com/varunr89/oews-sub002/internal/domain/schema"
)

func employeesDef() schema.SchemaDefinition {
	return schema.SchemaDefinition{
		Table: "employees",
		Columns: []schema.ColumnDefinition{
			{Name: "id", SourceType: "INTEGER", Nullable: false, PrimaryKey: true},
			{Name: "name", SourceType: "TEXT", Nullable: false},
			{Name: "salary", SourceType: "REAL", Nullable: true},
		},
	}
}

func TestConvert_CreateTable(t *testing.T) {
	ddl, err := NewService().Convert(employeesDef())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "CREATE TABLE [employees] (\n" +
		"  [id] BIGINT NOT NULL,\n" +
		"  [name] NVARCHAR(MAX) NOT NULL,\n" +
		"  [salary] FLOAT,\n" +
		"  CONSTRAINT [pk_employees] PRIMARY KEY ([id])\n" +
		")"
	if ddl.CreateTable != expected {
		t.Errorf("unexpected DDL:\n%s\nexpected:\n%s", ddl.CreateTable, expected)
	}
	if len(ddl.CreateIndexes)+len(ddl.AddChecks)+len(ddl.AddForeignKeys) != 0 {
		t.Errorf("expected no extra statements, got %+v", ddl)
	}
}

func TestConvert_Idempotent(t *testing.T) {
	svc := NewService()
	def := employeesDef()
	first, err := svc.Convert(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Convert(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.CreateTable != second.CreateTable {
		t.Error("CREATE TABLE not byte-identical across calls")
	}
}

func TestConvert_CompositeAndConstraints(t *testing.T) {
	def := schema.SchemaDefinition{
		Table: "order_items",
		Columns: []schema.ColumnDefinition{
			{Name: "order_id", SourceType: "INTEGER", PrimaryKey: true},
			{Name: "line_no", SourceType: "INTEGER", PrimaryKey: true},
			{Name: "qty", SourceType: "INTEGER", Nullable: false},
		},
		ForeignKeys: []schema.ForeignKeyConstraint{{
			Name:              "fk_order_items_0",
			Columns:           []string{"order_id"},
			ReferencedTable:   "orders",
			ReferencedColumns: []string{"id"},
			OnDelete:          "CASCADE",
			OnUpdate:          "RESTRICT",
		}},
		Indexes: []schema.IndexDefinition{
			{Name: "idx_items_qty", Columns: []string{"qty"}, Unique: false},
			{Name: "idx_items_unique", Columns: []string{"order_id", "line_no"}, Unique: true},
		},
		Checks: []schema.CheckConstraint{{Name: "chk_order_items_1", Expression: "qty > 0"}},
	}

	ddl, err := NewService().Convert(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(ddl.CreateTable, "CONSTRAINT [pk_order_items] PRIMARY KEY ([order_id], [line_no])") {
		t.Errorf("composite key missing:\n%s", ddl.CreateTable)
	}
	// Primary key columns are forced NOT NULL.
	if !strings.Contains(ddl.CreateTable, "[order_id] BIGINT NOT NULL") {
		t.Errorf("pk column not forced NOT NULL:\n%s", ddl.CreateTable)
	}

	if len(ddl.CreateIndexes) != 2 {
		t.Fatalf("expected 2 index statements, got %+v", ddl.CreateIndexes)
	}
	if ddl.CreateIndexes[0] != "CREATE INDEX [idx_items_qty] ON [order_items] ([qty])" {
		t.Errorf("unexpected index DDL: %s", ddl.CreateIndexes[0])
	}
	if ddl.CreateIndexes[1] != "CREATE UNIQUE INDEX [idx_items_unique] ON [order_items] ([order_id], [line_no])" {
		t.Errorf("unexpected unique index DDL: %s", ddl.CreateIndexes[1])
	}

	if len(ddl.AddChecks) != 1 ||
		ddl.AddChecks[0] != "ALTER TABLE [order_items] ADD CONSTRAINT [chk_order_items_1] CHECK (qty > 0)" {
		t.Errorf("unexpected check DDL: %+v", ddl.AddChecks)
	}

	expectedFK := "ALTER TABLE [order_items] ADD CONSTRAINT [fk_order_items_0] " +
		"FOREIGN KEY ([order_id]) REFERENCES [orders] ([id]) ON DELETE CASCADE ON UPDATE NO ACTION"
	if len(ddl.AddForeignKeys) != 1 || ddl.AddForeignKeys[0] != expectedFK {
		t.Errorf("unexpected FK DDL: %+v", ddl.AddForeignKeys)
	}
}

func TestConvert_UnsupportedType(t *testing.T) {
	def := schema.SchemaDefinition{
		Table:   "geo",
		Columns: []schema.ColumnDefinition{{Name: "shape", SourceType: "GEOMETRY"}},
	}
	_, err := NewService().Convert(def)
	var unsupported *typemap.UnsupportedTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedTypeError, got %v", err)
	}
	if unsupported.Table != "geo" || unsupported.Column != "shape" {
		t.Errorf("expected geo.shape named, got %s.%s", unsupported.Table, unsupported.Column)
	}
}

func TestConvert_BracketEscaping(t *testing.T) {
	def := schema.SchemaDefinition{
		Table:   "odd]name",
		Columns: []schema.ColumnDefinition{{Name: "v", SourceType: "TEXT", Nullable: true}},
	}
	ddl, err := NewService().Convert(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(ddl.CreateTable, "[odd]]name]") {
		t.Errorf("bracket not escaped:\n%s", ddl.CreateTable)
	}
}

type fakeReader struct {
	defs []schema.SchemaDefinition
	err  error
}

func (f *fakeReader) IntrospectSchema(ctx context.Context) ([]schema.SchemaDefinition, error) {
	return f.defs, f.err
}

func TestExtract_WrapsFailure(t *testing.T) {
	_, err := NewService().Extract(context.Background(), &fakeReader{err: errors.New("catalog locked")})
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "catalog locked") {
		t.Errorf("cause not preserved: %v", err)
	}
}

func TestCreationOrder(t *testing.T) {
	defs := []schema.SchemaDefinition{
		{Table: "orders", ForeignKeys: []schema.ForeignKeyConstraint{{
			Columns: []string{"customer_id"}, ReferencedTable: "customers", ReferencedColumns: []string{"id"},
		}}},
		{Table: "customers"},
	}
	order, err := NewService().CreationOrder(defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "customers" || order[1] != "orders" {
		t.Errorf("expected [customers orders], got %v", order)
	}
}

type fakeTarget struct {
	transactions [][]string
	statements   []string
	failOn       string
}

func (f *fakeTarget) ExecInTransaction(ctx context.Context, statements []string) error {
	for _, stmt := range statements {
		if f.failOn != "" && strings.Contains(stmt, f.failOn) {
			return fmt.Errorf("statement rejected: %s", stmt)
		}
	}
	f.transactions = append(f.transactions, statements)
	return nil
}

func (f *fakeTarget) Exec(ctx context.Context, statement string) error {
	if f.failOn != "" && strings.Contains(statement, f.failOn) {
		return fmt.Errorf("statement rejected: %s", statement)
	}
	f.statements = append(f.statements, statement)
	return nil
}

func TestApply_OrderAndPhases(t *testing.T) {
	svc := NewService()
	defs := []schema.SchemaDefinition{
		{Table: "orders",
			Columns: []schema.ColumnDefinition{{Name: "id", SourceType: "INTEGER", PrimaryKey: true}},
			ForeignKeys: []schema.ForeignKeyConstraint{{
				Name: "fk_orders_0", Columns: []string{"customer_id"},
				ReferencedTable: "customers", ReferencedColumns: []string{"id"},
			}}},
		{Table: "customers",
			Columns: []schema.ColumnDefinition{{Name: "id", SourceType: "INTEGER", PrimaryKey: true}},
			Indexes: []schema.IndexDefinition{{Name: "idx_customers", Columns: []string{"id"}}}},
	}
	statements, err := svc.ConvertAll(defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	order, err := svc.CreationOrder(defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target := &fakeTarget{}
	if err := svc.Apply(context.Background(), target, statements, order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(target.transactions) != 2 {
		t.Fatalf("expected one transaction per table, got %d", len(target.transactions))
	}
	if !strings.Contains(target.transactions[0][0], "[customers]") {
		t.Errorf("expected customers first, got %s", target.transactions[0][0])
	}
	if len(target.transactions[1]) != 1 || !strings.Contains(target.transactions[1][0], "[orders]") {
		t.Errorf("expected orders second, got %v", target.transactions[1])
	}
	// Index rides in the same transaction as its table.
	if len(target.transactions[0]) != 2 || !strings.Contains(target.transactions[0][1], "idx_customers") {
		t.Errorf("expected index with customers, got %v", target.transactions[0])
	}
	// Foreign keys land after both tables exist.
	if len(target.statements) != 1 || !strings.Contains(target.statements[0], "FOREIGN KEY") {
		t.Errorf("expected FK in second phase, got %v", target.statements)
	}
}

func TestApply_FailureNamesTable(t *testing.T) {
	svc := NewService()
	defs := []schema.SchemaDefinition{
		{Table: "broken", Columns: []schema.ColumnDefinition{{Name: "id", SourceType: "INTEGER", PrimaryKey: true}}},
	}
	statements, _ := svc.ConvertAll(defs)
	order, _ := svc.CreationOrder(defs)

	target := &fakeTarget{failOn: "[broken]"}
	err := svc.Apply(context.Background(), target, statements, order)
	var appErr *ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected ApplicationError, got %v", err)
	}
	if appErr.Table != "broken" {
		t.Errorf("expected broken named, got %s", appErr.Table)
	}
}

func TestApply_Cancellation(t *testing.T) {
	svc := NewService()
	defs := []schema.SchemaDefinition{
		{Table: "a", Columns: []schema.ColumnDefinition{{Name: "id", SourceType: "INTEGER", PrimaryKey: true}}},
	}
	statements, _ := svc.ConvertAll(defs)
	order, _ := svc.CreationOrder(defs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.Apply(ctx, &fakeTarget{}, statements, order)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}
