package schema

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func defsWithFK(pairs map[string][]string) []SchemaDefinition {
	var defs []SchemaDefinition
	for table, refs := range pairs {
		def := SchemaDefinition{Table: table}
		for _, ref := range refs {
			def.ForeignKeys = append(def.ForeignKeys, ForeignKeyConstraint{
				Columns:           []string{ref + "_id"},
				ReferencedTable:   ref,
				ReferencedColumns: []string{"id"},
			})
		}
		defs = append(defs, def)
	}
	return defs
}

func TestTopologicalSort_Chain(t *testing.T) {
	g := BuildGraph(defsWithFK(map[string][]string{
		"customers": nil,
		"orders":    {"customers"},
	}))

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"customers", "orders"}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_NoForeignKeys(t *testing.T) {
	g := BuildGraph(defsWithFK(map[string][]string{
		"zebra": nil,
		"apple": nil,
		"mango": nil,
	}))

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"apple", "mango", "zebra"}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("expected alphabetical order %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	// orders and invoices both reference customers; order_items references both.
	g := BuildGraph(defsWithFK(map[string][]string{
		"customers":   nil,
		"orders":      {"customers"},
		"invoices":    {"customers"},
		"order_items": {"orders", "invoices"},
	}))

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"customers", "invoices", "orders", "order_items"}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Deterministic(t *testing.T) {
	defs := defsWithFK(map[string][]string{
		"a": nil,
		"b": nil,
		"c": {"a", "b"},
		"d": {"a"},
		"e": {"c", "d"},
	})

	first, err := BuildGraph(defs).TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 20; i++ {
		next, err := BuildGraph(defs).TopologicalSort()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("order changed between runs: %v vs %v", first, next)
		}
	}
}

func TestTopologicalSort_Cycle(t *testing.T) {
	g := BuildGraph(defsWithFK(map[string][]string{
		"employees":   {"departments"},
		"departments": {"employees"},
	}))

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected error for mutual foreign keys")
	}
	var cycErr *CircularDependencyError
	if !errors.As(err, &cycErr) {
		t.Fatalf("expected CircularDependencyError, got %T", err)
	}
	expected := []string{"departments", "employees"}
	if !reflect.DeepEqual(cycErr.Tables, expected) {
		t.Errorf("expected tables %v, got %v", expected, cycErr.Tables)
	}
	if len(cycErr.Cycle) < 3 {
		t.Fatalf("expected a walked cycle, got %v", cycErr.Cycle)
	}
	if cycErr.Cycle[0] != cycErr.Cycle[len(cycErr.Cycle)-1] {
		t.Errorf("cycle should close on itself, got %v", cycErr.Cycle)
	}
	if !strings.Contains(err.Error(), "->") {
		t.Errorf("expected cycle path in message, got %q", err.Error())
	}
}

func TestTopologicalSort_CycleBehindCleanTables(t *testing.T) {
	// logs has no part in the cycle and must not be reported.
	g := BuildGraph(defsWithFK(map[string][]string{
		"logs": nil,
		"a":    {"b"},
		"b":    {"a"},
	}))

	_, err := g.TopologicalSort()
	var cycErr *CircularDependencyError
	if !errors.As(err, &cycErr) {
		t.Fatalf("expected CircularDependencyError, got %v", err)
	}
	for _, table := range cycErr.Tables {
		if table == "logs" {
			t.Errorf("clean table reported in cycle set: %v", cycErr.Tables)
		}
	}
}

func TestBuildGraph_IgnoresSelfAndExternalReferences(t *testing.T) {
	defs := []SchemaDefinition{
		{
			Table: "employees",
			ForeignKeys: []ForeignKeyConstraint{
				{Columns: []string{"manager_id"}, ReferencedTable: "employees", ReferencedColumns: []string{"id"}},
				{Columns: []string{"ghost_id"}, ReferencedTable: "missing", ReferencedColumns: []string{"id"}},
			},
		},
	}
	g := BuildGraph(defs)
	if g.Size() != 1 {
		t.Errorf("expected 1 table, got %d", g.Size())
	}
	if deps := g.Dependencies("employees"); len(deps) != 0 {
		t.Errorf("expected no dependencies, got %v", deps)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(order, []string{"employees"}) {
		t.Errorf("expected [employees], got %v", order)
	}
}

func TestTransferLevels(t *testing.T) {
	g := BuildGraph(defsWithFK(map[string][]string{
		"customers":   nil,
		"products":    nil,
		"orders":      {"customers"},
		"order_items": {"orders", "products"},
	}))

	levels, err := g.TransferLevels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := [][]string{
		{"customers", "products"},
		{"orders"},
		{"order_items"},
	}
	if !reflect.DeepEqual(levels, expected) {
		t.Errorf("expected %v, got %v", expected, levels)
	}
}

func TestTransferLevels_Cycle(t *testing.T) {
	g := BuildGraph(defsWithFK(map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}))
	if _, err := g.TransferLevels(); err == nil {
		t.Fatal("expected error for cyclic graph")
	}
}
