package program

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/factlog/internal/ir"
)

// CycleWarning reports rules that may feed each other forever.
//
// Cycles are warnings, not errors: a recursive rule over a finite domain
// (transitive closure, for example) still reaches a fixpoint. Rules that
// invent new values on every pass do not.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["rule-a", "rule-b", "rule-a"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeCycles builds the rule dependency graph and reports each strongly
// connected component that is a cycle.
//
// Rule A depends on rule B when one of B's then templates could match one
// of A's when patterns, judged by attribute key alone. A variable attribute
// on either side matches every key.
//
// A DAG (no cycles) returns an empty warning list. Warnings are ordered by
// the first member's declaration order.
func AnalyzeCycles(p *Program) []CycleWarning {
	if len(p.Rules) == 0 {
		return []CycleWarning{}
	}

	graph := buildDependencyGraph(p.Rules)
	order := make(map[string]int, len(p.Rules))
	for i, r := range p.Rules {
		order[r.Name] = i
	}

	var warnings []CycleWarning
	for _, scc := range tarjanSCC(graph, p.Rules) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			slices.SortFunc(scc, func(a, b string) int { return order[a] - order[b] })
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int { return order[a.Path[0]] - order[b.Path[0]] })
	if warnings == nil {
		return []CycleWarning{}
	}
	return warnings
}

// dependencyGraph maps rule name -> rules its derived facts could trigger.
type dependencyGraph map[string][]string

func buildDependencyGraph(rules []Rule) dependencyGraph {
	graph := make(dependencyGraph, len(rules))
	for _, producer := range rules {
		graph[producer.Name] = []string{}
		for _, consumer := range rules {
			if feeds(producer, consumer) {
				graph[producer.Name] = append(graph[producer.Name], consumer.Name)
			}
		}
	}
	return graph
}

func feeds(producer, consumer Rule) bool {
	for _, out := range producer.Then {
		for _, in := range consumer.When {
			if attrsOverlap(out.Attr, in.Attr) {
				return true
			}
		}
	}
	return false
}

func attrsOverlap(a, b ir.AttrTerm) bool {
	aa, aLit := a.(ir.Attribute)
	ba, bLit := b.(ir.Attribute)
	if !aLit || !bLit {
		return true
	}
	return aa.Key == ba.Key
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in rule declaration order so output is deterministic.
func tarjanSCC(graph dependencyGraph, rules []Rule) [][]string {
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

		// Root node: pop the stack into an SCC.
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

	for _, r := range rules {
		if _, visited := indices[r.Name]; !visited {
			strongConnect(r.Name)
		}
	}
	return sccs
}

func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-recursive rule: %s → %s", name, name),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Mutually recursive rules: %s", strings.Join(path, " → ")),
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	inSCC := make(map[string]bool, len(scc))
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := map[string]bool{}
	for {
		visited[current] = true
		next := ""
		for _, neighbor := range graph[current] {
			if inSCC[neighbor] && !visited[neighbor] {
				next = neighbor
				break
			}
		}
		if next == "" && slices.Contains(graph[current], start) {
			next = start
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
