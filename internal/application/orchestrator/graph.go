package orchestrator

import (
	"fmt"

	"github.com/aescanero/dagocrew/pkg/domain"
)

// Graph holds task IDs and their dependency edges. Insertion order is
// remembered and used as the tie-break when ordering tasks.
type Graph struct {
	ids   []string
	index map[string]int
	deps  map[string][]string
}

// NewGraph creates an empty dependency graph
func NewGraph() *Graph {
	return &Graph{
		index: make(map[string]int),
		deps:  make(map[string][]string),
	}
}

// Add registers a task with its dependencies. Dependencies may name tasks
// that are registered later; Validate reports the ones that never are.
func (g *Graph) Add(id string, deps []string) error {
	if _, exists := g.index[id]; exists {
		return &domain.DuplicateTaskError{TaskID: id}
	}

	seen := make(map[string]bool, len(deps))
	unique := make([]string, 0, len(deps))
	for _, dep := range deps {
		if dep == id {
			return &domain.CycleError{Path: []string{id, id}}
		}
		if seen[dep] {
			continue
		}
		seen[dep] = true

		// dep already reaches id through existing edges: id -> dep closes a cycle
		if path := g.pathTo(dep, id); path != nil {
			return &domain.CycleError{Path: append([]string{id}, path...)}
		}
		unique = append(unique, dep)
	}

	g.index[id] = len(g.ids)
	g.ids = append(g.ids, id)
	g.deps[id] = unique
	return nil
}

// pathTo returns the dependency path from -> ... -> target, or nil
func (g *Graph) pathTo(from, target string) []string {
	visited := make(map[string]bool)

	var walk func(id string) []string
	walk = func(id string) []string {
		if id == target {
			return []string{id}
		}
		if visited[id] {
			return nil
		}
		visited[id] = true
		for _, dep := range g.deps[id] {
			if rest := walk(dep); rest != nil {
				return append([]string{id}, rest...)
			}
		}
		return nil
	}

	return walk(from)
}

// Validate checks that every dependency is registered and that the graph is acyclic
func (g *Graph) Validate() error {
	for _, id := range g.ids {
		for _, dep := range g.deps[id] {
			if _, ok := g.index[dep]; !ok {
				return &domain.DanglingDependencyError{TaskID: id, Dependency: dep}
			}
		}
	}
	return g.detectCycles()
}

// detectCycles runs a depth-first search with temporary/permanent marks
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			for i, s := range stack {
				if s == id {
					path := append(append([]string(nil), stack[i:]...), id)
					return &domain.CycleError{Path: path}
				}
			}
			return &domain.CycleError{Path: []string{id, id}}
		}

		temporary[id] = true
		stack = append(stack, id)
		for _, dep := range g.deps[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, id := range g.ids {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// TopologicalOrder returns the task IDs so that every task follows its
// dependencies. Among ready tasks the earliest registered wins, so a valid
// insertion order is returned unchanged.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	pending := make(map[string]int, len(g.ids))
	for _, id := range g.ids {
		pending[id] = len(g.deps[id])
	}
	dependents := g.dependentsMap()

	done := make([]bool, len(g.ids))
	order := make([]string, 0, len(g.ids))
	for len(order) < len(g.ids) {
		next := -1
		for i, id := range g.ids {
			if !done[i] && pending[id] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, &domain.CycleError{}
		}

		id := g.ids[next]
		done[next] = true
		order = append(order, id)
		for _, dependent := range dependents[id] {
			pending[dependent]--
		}
	}

	return order, nil
}

// CheckOrder verifies that order is a permutation of the registered tasks
// in which every task comes after all of its dependencies.
func (g *Graph) CheckOrder(order []string) error {
	if len(order) != len(g.ids) {
		return fmt.Errorf("order has %d tasks, expected %d", len(order), len(g.ids))
	}

	position := make(map[string]int, len(order))
	for i, id := range order {
		if _, ok := g.index[id]; !ok {
			return fmt.Errorf("order references unknown task %s", id)
		}
		if _, dup := position[id]; dup {
			return fmt.Errorf("task %s appears more than once", id)
		}
		position[id] = i
	}

	for _, id := range order {
		for _, dep := range g.deps[id] {
			if position[dep] > position[id] {
				return fmt.Errorf("task %s is ordered before its dependency %s", id, dep)
			}
		}
	}
	return nil
}

// Dependencies returns the declared dependencies of id, in declaration order
func (g *Graph) Dependencies(id string) []string {
	return append([]string(nil), g.deps[id]...)
}

// Dependents returns the tasks that depend on id, in insertion order
func (g *Graph) Dependents(id string) []string {
	return append([]string(nil), g.dependentsMap()[id]...)
}

// Terminal returns the tasks nothing depends on, in insertion order
func (g *Graph) Terminal() []string {
	dependents := g.dependentsMap()
	var terminal []string
	for _, id := range g.ids {
		if len(dependents[id]) == 0 {
			terminal = append(terminal, id)
		}
	}
	return terminal
}

// IDs returns the registered task IDs in insertion order
func (g *Graph) IDs() []string {
	return append([]string(nil), g.ids...)
}

// Contains reports whether id is registered
func (g *Graph) Contains(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Len returns the number of registered tasks
func (g *Graph) Len() int {
	return len(g.ids)
}

func (g *Graph) dependentsMap() map[string][]string {
	dependents := make(map[string][]string, len(g.ids))
	for _, id := range g.ids {
		for _, dep := range g.deps[id] {
			dependents[dep] = append(dependents[dep], id)
		}
	}
	return dependents
}
