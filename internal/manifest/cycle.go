package manifest

import (
	"fmt"
	"slices"
	"strings"
)

// Cycle is a loop in the extends graph. Path starts and ends at the same id.
type Cycle struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// FindCycles reports every loop in the extends graph of specs.
//
// The extends graph must be acyclic: an extension that (transitively)
// extends itself could never finish resolving its dependencies. Unknown ids
// are ignored here and reported by Validate.
//
// The algorithm:
//  1. Build id → extended ids from the extends lists
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
//
// Nodes are visited in sorted order so results are deterministic.
func FindCycles(specs []ExtensionSpec) []Cycle {
	graph := buildExtendsGraph(specs)

	var cycles []Cycle
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	return cycles
}

// extendsGraph maps an extension id to the ids it extends.
type extendsGraph map[string][]string

func buildExtendsGraph(specs []ExtensionSpec) extendsGraph {
	known := make(map[string]bool, len(specs))
	for _, spec := range specs {
		known[spec.ID] = true
	}

	graph := make(extendsGraph, len(specs))
	for _, spec := range specs {
		graph[spec.ID] = []string{}
		for _, dep := range spec.Extends {
			if known[dep] {
				graph[spec.ID] = append(graph[spec.ID], dep)
			}
		}
	}
	return graph
}

func (g extendsGraph) nodes() []string {
	nodes := make([]string, 0, len(g))
	for node := range g {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	return nodes
}

func hasSelfLoop(node string, graph extendsGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are not cycles.
func tarjanSCC(graph extendsGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range graph.nodes() {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sccToCycle(scc []string, graph extendsGraph) Cycle {
	if len(scc) == 1 {
		id := scc[0]
		return Cycle{
			Path:    []string{id, id},
			Message: fmt.Sprintf("extension %s extends itself", id),
		}
	}

	path := cyclePath(scc, graph)
	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("extends cycle: %s", strings.Join(path, " -> ")),
	}
}

// cyclePath walks edges inside the SCC from its smallest id until it gets
// back to the start.
func cyclePath(scc []string, graph extendsGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := slices.Min(scc)
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
