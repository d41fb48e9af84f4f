// Package depgraph builds and queries the dependency DAG between services:
// construction validates unknown references and cycles, and
// GatingReady answers whether a service's declared dependencies currently
// satisfy their conditions.
package depgraph

import (
	"fmt"
	"sort"

	"github.com/micromux/micromux/internal/config"
)

// UnknownDependencyError reports a depends_on entry naming a service that
// was never declared.
type UnknownDependencyError struct {
	From string
	To   string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("service %q depends on undeclared service %q", e.From, e.To)
}

// CycleError reports a dependency cycle, with Path listing the cycle in
// traversal order (first element repeated at the end).
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	s := ""
	for i, name := range e.Path {
		if i > 0 {
			s += " -> "
		}
		s += name
	}
	return fmt.Sprintf("dependency cycle: %s", s)
}

// Graph is a directed acyclic graph of service names, built in two phases:
// every node is added before any edge, so construction order never affects
// the outcome.
type Graph struct {
	edges   map[string][]config.DependencyEdge // service -> its dependencies
	reverse map[string][]string                // dependency -> dependents
}

// Build constructs a Graph from a resolved ServiceSpec set. Node order in
// the input map is irrelevant: all nodes are added first, then all edges.
func Build(specs map[string]*config.ServiceSpec) (*Graph, error) {
	g := &Graph{
		edges:   make(map[string][]config.DependencyEdge, len(specs)),
		reverse: make(map[string][]string, len(specs)),
	}

	for name := range specs {
		g.edges[name] = nil
	}

	names := sortedNames(g.edges)
	for _, name := range names {
		spec := specs[name]
		for _, dep := range spec.DependsOn {
			if _, exists := g.edges[dep.Name]; !exists {
				return nil, &UnknownDependencyError{From: name, To: dep.Name}
			}
			g.edges[name] = append(g.edges[name], dep)
			g.reverse[dep.Name] = append(g.reverse[dep.Name], name)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	return g, nil
}

func sortedNames(edges map[string][]config.DependencyEdge) []string {
	names := make([]string, 0, len(edges))
	for name := range edges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dependencies returns the declared dependency edges for name, or nil if
// name has none or is not in the graph.
func (g *Graph) Dependencies(name string) []config.DependencyEdge {
	return g.edges[name]
}

// Dependents returns the names of services that declare name as a
// dependency, used to re-evaluate gating when name's state changes.
func (g *Graph) Dependents(name string) []string {
	return g.reverse[name]
}

// Names returns every service name in the graph, sorted.
func (g *Graph) Names() []string {
	return sortedNames(g.edges)
}

func (g *Graph) findCycle() []string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(g.edges))
	var path []string

	var visit func(name string) []string
	visit = func(name string) []string {
		switch state[name] {
		case done:
			return nil
		case visiting:
			cycleStart := len(path)
			for i, p := range path {
				if p == name {
					cycleStart = i
					break
				}
			}
			cycle := append([]string{}, path[cycleStart:]...)
			return append(cycle, name)
		}
		state[name] = visiting
		path = append(path, name)
		for _, dep := range g.edges[name] {
			if cycle := visit(dep.Name); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		return nil
	}

	for _, name := range sortedNames(g.edges) {
		if state[name] == unvisited {
			if cycle := visit(name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TopologicalOrder returns a stable startup order (Kahn's algorithm,
// alphabetical tie-break among ready nodes). Reverse it for shutdown order.
func (g *Graph) TopologicalOrder() []string {
	inDegree := make(map[string]int, len(g.edges))
	for name, deps := range g.edges {
		inDegree[name] = len(deps)
	}

	var ready []string
	for name, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.edges))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		var unlocked []string
		for _, dependent := range g.reverse[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				unlocked = append(unlocked, dependent)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
		sort.Strings(ready)
	}

	return order
}

// ConditionSatisfied is supplied by the caller (the supervisor, which owns
// actual-state lookups) to answer whether a dependency currently satisfies
// a gating condition. Keeping this a callback rather than importing the
// runtime-state package keeps depgraph a pure graph structure.
type ConditionSatisfied func(depName string, cond config.Condition) bool

// GatingReady reports whether every declared dependency of name currently
// satisfies its gating condition. A service with no dependencies is always
// ready.
func (g *Graph) GatingReady(name string, satisfied ConditionSatisfied) bool {
	for _, dep := range g.edges[name] {
		if !satisfied(dep.Name, dep.Condition) {
			return false
		}
	}
	return true
}
