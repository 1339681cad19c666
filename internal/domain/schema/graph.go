package schema

import (
	"fmt"
	"sort"
	"strings"
)

// CircularDependencyError reports that the foreign-key graph is not a DAG.
// Tables lists every table caught in or behind a cycle; Cycle is one concrete
// dependency loop for the error message.
type CircularDependencyError struct {
	Tables []string
	Cycle  []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("circular foreign-key dependency: %s", strings.Join(e.Cycle, " -> "))
	}
	return fmt.Sprintf("circular foreign-key dependency involving tables: %s", strings.Join(e.Tables, ", "))
}

// Graph is a directed dependency graph over table names. An edge A -> B means
// A has a foreign key referencing B, so B must be created before A.
// It is rebuilt per run from extracted metadata.
type Graph struct {
	nodes map[string]bool

	// dependencies maps each table to the tables it references.
	dependencies map[string][]string

	// dependents maps each table to the tables that reference it.
	dependents map[string][]string
}

// NewGraph creates an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:        make(map[string]bool),
		dependencies: make(map[string][]string),
		dependents:   make(map[string][]string),
	}
}

// BuildGraph constructs the dependency graph for a set of table definitions.
// Foreign keys referencing tables outside the set (or the table itself) add
// no edge: they cannot constrain creation order within the set.
func BuildGraph(defs []SchemaDefinition) *Graph {
	g := NewGraph()
	known := make(map[string]bool, len(defs))
	for _, d := range defs {
		known[d.Table] = true
	}
	for _, d := range defs {
		g.AddTable(d.Table)
		for _, fk := range d.ForeignKeys {
			if fk.ReferencedTable == d.Table || !known[fk.ReferencedTable] {
				continue
			}
			g.AddDependency(d.Table, fk.ReferencedTable)
		}
	}
	return g
}

// AddTable adds a node to the graph.
func (g *Graph) AddTable(name string) {
	g.nodes[name] = true
	if _, ok := g.dependencies[name]; !ok {
		g.dependencies[name] = nil
	}
	if _, ok := g.dependents[name]; !ok {
		g.dependents[name] = nil
	}
}

// AddDependency records that from references to (from -> to). Duplicate
// edges from multi-column or repeated foreign keys collapse to one.
func (g *Graph) AddDependency(from, to string) {
	g.AddTable(from)
	g.AddTable(to)
	for _, dep := range g.dependencies[from] {
		if dep == to {
			return
		}
	}
	g.dependencies[from] = append(g.dependencies[from], to)
	g.dependents[to] = append(g.dependents[to], from)
}

// Dependencies returns the tables that name references.
func (g *Graph) Dependencies(name string) []string {
	return g.dependencies[name]
}

// Size returns the number of tables in the graph.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// TopologicalSort returns the tables in creation order: every table appears
// after all tables it references. Kahn's algorithm with ties broken by table
// name, so identical input always yields the identical order. Returns
// *CircularDependencyError when the graph is not a DAG.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for name := range g.nodes {
		inDegree[name] = len(g.dependencies[name])
	}

	var ready []string
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		var unlocked []string
		for _, dep := range g.dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				unlocked = append(unlocked, dep)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Strings(ready)
		}
	}

	if len(order) != len(g.nodes) {
		return nil, g.cycleError(order)
	}
	return order, nil
}

// TransferLevels groups tables into waves safe for concurrent transfer:
// level 0 holds tables with no dependencies, level n tables whose furthest
// dependency chain has length n. Tables within one level share no edge and
// may be transferred in parallel; levels run strictly in order. Table names
// within a level are sorted. Requires an acyclic graph.
func (g *Graph) TransferLevels() ([][]string, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	level := make(map[string]int, len(order))
	maxLevel := 0
	for _, name := range order {
		l := 0
		for _, dep := range g.dependencies[name] {
			if level[dep]+1 > l {
				l = level[dep] + 1
			}
		}
		level[name] = l
		if l > maxLevel {
			maxLevel = l
		}
	}

	levels := make([][]string, maxLevel+1)
	for _, name := range order {
		levels[level[name]] = append(levels[level[name]], name)
	}
	for _, names := range levels {
		sort.Strings(names)
	}
	return levels, nil
}

// cycleError builds the error for a failed sort: the unsorted remainder plus
// one concrete cycle walked out of it.
func (g *Graph) cycleError(sorted []string) *CircularDependencyError {
	placed := make(map[string]bool, len(sorted))
	for _, name := range sorted {
		placed[name] = true
	}

	var remaining []string
	for name := range g.nodes {
		if !placed[name] {
			remaining = append(remaining, name)
		}
	}
	sort.Strings(remaining)

	return &CircularDependencyError{
		Tables: remaining,
		Cycle:  g.findCycle(remaining, placed),
	}
}

// findCycle walks dependency edges from the smallest remaining table until a
// node repeats, then trims the walk to the loop itself.
func (g *Graph) findCycle(remaining []string, placed map[string]bool) []string {
	if len(remaining) == 0 {
		return nil
	}

	seen := make(map[string]int)
	var path []string
	current := remaining[0]
	for {
		if at, ok := seen[current]; ok {
			cycle := append([]string{}, path[at:]...)
			return append(cycle, current)
		}
		seen[current] = len(path)
		path = append(path, current)

		next := ""
		for _, dep := range g.dependencies[current] {
			if placed[dep] {
				continue
			}
			if next == "" || dep < next {
				next = dep
			}
		}
		if next == "" {
			return nil
		}
		current = next
	}
}
