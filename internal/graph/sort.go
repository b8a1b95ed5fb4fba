package graph

import "errors"

// ErrCycle is returned by TopologicalSort when the DAG's edges contain a
// cycle. The planner treats this as Cyclic (spec.md §7) — it should be
// unreachable given correct method selection, and is checked defensively.
var ErrCycle = errors.New("graph: cycle detected among dependency edges")

// TopologicalSort orders nodes via Kahn's algorithm so that every node
// appears after all of its Dependencies. Nodes that are free at the
// same time come out in map-iteration order, so the relative order of
// independent nodes is not defined.
func (g *DAG) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		inDegree[id] = 0
	}

	for _, node := range g.Nodes {
		for _, depID := range node.Dependencies {
			if _, exists := g.Nodes[depID]; exists {
				inDegree[node.ID]++
			}
		}
	}

	queue := make([]string, 0, len(g.Nodes))
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(g.Nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		for _, dependent := range g.GetDependents(current) {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(sorted) != len(g.Nodes) {
		return nil, ErrCycle
	}

	return sorted, nil
}
