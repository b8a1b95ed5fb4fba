package graph

// dfsState is a node's position in a single depth-first traversal:
// unvisited, on the current path (still being explored), or fully
// resolved with no cycle found through it.
type dfsState int

const (
	dfsUnvisited dfsState = iota
	dfsOnPath
	dfsResolved
)

// HasCycles reports whether the plan DAG contains a dependency cycle —
// true whenever the planner's output->input method ordering (spec.md
// §4.C) cannot be linearized. It is a thin wrapper over FindCycle so
// the two never disagree.
func (g *DAG) HasCycles() bool {
	return len(g.FindCycle()) > 0
}

// FindCycle walks every node via depth-first search and returns the
// method keys forming one cycle, in dependency order, or nil if the
// plan DAG is acyclic. Method B appears right before method A in the
// returned path whenever B depends on A (A writes one of B's free
// inputs) — the same edge direction TopologicalSort walks.
func (g *DAG) FindCycle() []string {
	state := make(map[string]dfsState, len(g.Nodes))
	via := make(map[string]string, len(g.Nodes))

	for id := range g.Nodes {
		if state[id] == dfsUnvisited {
			if path := g.walk(id, state, via); path != nil {
				return path
			}
		}
	}
	return nil
}

// walk explores id's dependencies, recording each node's predecessor in
// via so a detected cycle can be unwound back to where it closes.
func (g *DAG) walk(id string, state map[string]dfsState, via map[string]string) []string {
	state[id] = dfsOnPath

	node, exists := g.GetNode(id)
	if !exists {
		state[id] = dfsResolved
		return nil
	}

	for _, depID := range node.Dependencies {
		switch state[depID] {
		case dfsOnPath:
			return unwind(id, depID, via)
		case dfsUnvisited:
			via[depID] = id
			if path := g.walk(depID, state, via); path != nil {
				return path
			}
		case dfsResolved:
			// already fully explored with no cycle reachable from it
		}
	}

	state[id] = dfsResolved
	return nil
}

// unwind reconstructs the cycle from id back to closesAt (the ancestor
// id depends on that is still on the current path), using the
// predecessor links walk recorded.
func unwind(id, closesAt string, via map[string]string) []string {
	path := []string{closesAt}
	for current := id; current != closesAt && current != ""; current = via[current] {
		path = append([]string{current}, path...)
	}
	return path
}
