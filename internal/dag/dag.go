// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed graph ordering with cycle detection. Mod load
// ordering uses the depth-first DependencyOrder, which keeps going past cycles;
// validation uses the strict Kahn TopologicalSort.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle contains the nodes that form the cycle (not necessarily all of them,
		// but enough to identify the problem).
		Cycle []string
	}

	// Graph is a directed graph for topological sorting.
	// Nodes are identified by string keys. Edges represent "must run before" relationships:
	// an edge from A to B means A must complete before B starts.
	Graph struct {
		// adjacency maps each node to its outgoing neighbors (nodes that depend on it).
		adjacency map[string][]string
		// predecessors maps each node to its incoming neighbors in edge insertion order.
		predecessors map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}
)

const (
	unvisited visitState = iota
	visiting
	visited
)

type (
	visitState int

	dfsFrame struct {
		node string
		next int
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency:    make(map[string][]string),
		predecessors: make(map[string][]string),
		nodeSet:      make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "from" must run before "to".
// Both nodes are implicitly added if they don't exist.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
	g.predecessors[to] = append(g.predecessors[to], from)
}

// HasNode reports whether name was added to the graph.
func (g *Graph) HasNode(name string) bool {
	return g.nodeSet[name]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// TopologicalSort returns a valid execution order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle.
// The returned order is deterministic: nodes at the same topological level
// appear in the order they were first added to the graph.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	// Compute in-degrees.
	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	// Seed the queue with nodes that have no incoming edges, in insertion order.
	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		// Remaining nodes with non-zero in-degree form the cycle.
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}

// DependencyOrder walks the graph depth-first from each root in the given
// order and returns nodes in post-order, so every node follows all of its
// predecessors. The walk uses an explicit stack.
//
// An edge leading back to a node that is still being visited closes a cycle:
// the cycle is reported and that edge is skipped, so the walk always
// produces an order. Roots that are not graph nodes are ignored.
func (g *Graph) DependencyOrder(roots []string) (order []string, cycles []*CycleError) {
	state := make(map[string]visitState, len(g.nodes))

	for _, root := range roots {
		if !g.nodeSet[root] || state[root] != unvisited {
			continue
		}
		state[root] = visiting
		stack := []dfsFrame{{node: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			preds := g.predecessors[top.node]
			if top.next < len(preds) {
				p := preds[top.next]
				top.next++
				switch state[p] {
				case unvisited:
					state[p] = visiting
					stack = append(stack, dfsFrame{node: p})
				case visiting:
					cycles = append(cycles, &CycleError{Cycle: cyclePath(stack, p)})
				case visited:
				}
				continue
			}
			state[top.node] = visited
			order = append(order, top.node)
			stack = stack[:len(stack)-1]
		}
	}
	return order, cycles
}

// cyclePath returns the stack segment starting at closing, followed by
// closing again: [closing, ..., top, closing].
func cyclePath(stack []dfsFrame, closing string) []string {
	start := 0
	for i, f := range stack {
		if f.node == closing {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.node)
	}
	return append(path, closing)
}
