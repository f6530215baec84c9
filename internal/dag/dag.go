// Package dag orders named units by their declared dependencies.
package dag

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// CycleError is returned when the dependencies form a cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Graph is a directed acyclic graph of named nodes carrying a value.
// An edge parent -> child means child depends on parent.
type Graph[T any] struct {
	values   map[string]T
	children map[string][]string
	parents  map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph[T any]() *Graph[T] {
	return &Graph[T]{
		values:   make(map[string]T),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// AddNode adds a node, replacing the value of an existing one.
func (g *Graph[T]) AddNode(id string, value T) {
	g.values[id] = value
}

// Has reports whether id is a node of the graph.
func (g *Graph[T]) Has(id string) bool {
	_, ok := g.values[id]
	return ok
}

// Value returns the value stored under id.
func (g *Graph[T]) Value(id string) (T, bool) {
	v, ok := g.values[id]
	return v, ok
}

// Len returns the number of nodes.
func (g *Graph[T]) Len() int {
	return len(g.values)
}

// AddEdge records that child depends on parent.
func (g *Graph[T]) AddEdge(parent, child string) error {
	if !g.Has(parent) {
		return fmt.Errorf("unknown dependency %q of %q", parent, child)
	}
	if !g.Has(child) {
		return fmt.Errorf("unknown node %q", child)
	}
	if parent == child {
		return &CycleError{Path: []string{parent, parent}}
	}
	if !slices.Contains(g.children[parent], child) {
		g.children[parent] = append(g.children[parent], child)
		g.parents[child] = append(g.parents[child], parent)
	}
	return nil
}

// Parents returns the direct dependencies of id, sorted.
func (g *Graph[T]) Parents(id string) []string {
	out := slices.Clone(g.parents[id])
	sort.Strings(out)
	return out
}

// Children returns the direct dependents of id, sorted.
func (g *Graph[T]) Children(id string) []string {
	out := slices.Clone(g.children[id])
	sort.Strings(out)
	return out
}

// Sort returns node IDs with every dependency before its dependents. Among
// nodes that are ready at the same time the smallest ID comes first, so the
// order is fully determined by the graph.
func (g *Graph[T]) Sort() ([]string, error) {
	indegree := make(map[string]int, len(g.values))
	var ready []string
	for id := range g.values {
		indegree[id] = len(g.parents[id])
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.values))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, child := range g.children[id] {
			indegree[child]--
			if indegree[child] == 0 {
				i := sort.SearchStrings(ready, child)
				ready = slices.Insert(ready, i, child)
			}
		}
	}

	if len(order) != len(g.values) {
		return nil, &CycleError{Path: g.findCycle(indegree)}
	}
	return order, nil
}

// Values returns node values in Sort order.
func (g *Graph[T]) Values() ([]T, error) {
	order, err := g.Sort()
	if err != nil {
		return nil, err
	}
	out := make([]T, len(order))
	for i, id := range order {
		out[i] = g.values[id]
	}
	return out, nil
}

// findCycle walks parent links among the nodes Sort could not place until a
// node repeats.
func (g *Graph[T]) findCycle(indegree map[string]int) []string {
	var stuck []string
	for id, n := range indegree {
		if n > 0 {
			stuck = append(stuck, id)
		}
	}
	if len(stuck) == 0 {
		return nil
	}
	sort.Strings(stuck)

	seen := make(map[string]int)
	var path []string
	for cur := stuck[0]; ; {
		if i, ok := seen[cur]; ok {
			cycle := slices.Clone(path[i:])
			slices.Reverse(cycle)
			start := slices.Index(cycle, slices.Min(cycle))
			cycle = append(cycle[start:], cycle[:start]...)
			return append(cycle, cycle[0])
		}
		seen[cur] = len(path)
		path = append(path, cur)

		next := ""
		for _, p := range g.Parents(cur) {
			if indegree[p] > 0 {
				next = p
				break
			}
		}
		if next == "" {
			return path
		}
		cur = next
	}
}
