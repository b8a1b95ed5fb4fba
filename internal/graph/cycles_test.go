package graph

import "testing"

// buildMethodDAG mirrors the shape planner.order builds: one node per
// chosen "constraint:method" key, an edge from B to A whenever B reads
// a variable A writes.
func buildMethodDAG(edges map[string][]string) *DAG {
	g := NewDAG()
	for id, deps := range edges {
		g.AddNode(&Node{ID: id, Dependencies: deps})
	}
	return g
}

func TestHasCyclesOnAcyclicMethodChain(t *testing.T) {
	g := buildMethodDAG(map[string][]string{
		"1:abc": {},
		"2:bcd": {"1:abc"},
		"3:cde": {"2:bcd"},
	})
	if g.HasCycles() {
		t.Error("expected a linear method chain to be acyclic")
	}
}

func TestHasCyclesOnTwoMethodCycle(t *testing.T) {
	g := buildMethodDAG(map[string][]string{
		"1:abc": {"2:bca"},
		"2:bca": {"1:abc"},
	})
	if !g.HasCycles() {
		t.Error("expected mutually-dependent methods to be detected as cyclic")
	}
}

func TestHasCyclesOnThreeMethodCycle(t *testing.T) {
	g := buildMethodDAG(map[string][]string{
		"1:abc": {"3:cab"},
		"2:bca": {"1:abc"},
		"3:cab": {"2:bca"},
	})
	if !g.HasCycles() {
		t.Error("expected a three-method cycle to be detected")
	}
}

func TestHasCyclesOnDiamondIsNotACycle(t *testing.T) {
	g := buildMethodDAG(map[string][]string{
		"1:write-a": {},
		"2:read-a-write-b": {"1:write-a"},
		"3:read-a-write-c": {"1:write-a"},
		"4:read-b-c":        {"2:read-a-write-b", "3:read-a-write-c"},
	})
	if g.HasCycles() {
		t.Error("a diamond-shaped dependency is not a cycle")
	}
}

func TestHasCyclesOnSelfDependency(t *testing.T) {
	g := buildMethodDAG(map[string][]string{
		"1:abc": {"1:abc"},
	})
	if !g.HasCycles() {
		t.Error("a method depending on itself must be reported as cyclic")
	}
}

func TestFindCycleReturnsNilWhenAcyclic(t *testing.T) {
	g := buildMethodDAG(map[string][]string{
		"1:abc": {},
		"2:bcd": {"1:abc"},
	})
	if cycle := g.FindCycle(); cycle != nil {
		t.Errorf("expected no cycle, got %v", cycle)
	}
}

func TestFindCycleReturnsThePathWhenCyclic(t *testing.T) {
	g := buildMethodDAG(map[string][]string{
		"1:abc": {"2:bca"},
		"2:bca": {"1:abc"},
	})
	cycle := g.FindCycle()
	if cycle == nil {
		t.Fatal("expected a cycle path, got nil")
	}
	if len(cycle) != 2 {
		t.Errorf("expected a 2-node cycle path, got %v", cycle)
	}
	seen := make(map[string]bool)
	for _, id := range cycle {
		seen[id] = true
	}
	if !seen["1:abc"] || !seen["2:bca"] {
		t.Errorf("expected cycle path to contain both methods, got %v", cycle)
	}
}

func TestHasCyclesAgreesWithFindCycle(t *testing.T) {
	acyclic := buildMethodDAG(map[string][]string{
		"1:abc": {},
		"2:bcd": {"1:abc"},
	})
	if acyclic.HasCycles() != (acyclic.FindCycle() != nil) {
		t.Error("HasCycles and FindCycle disagree on an acyclic graph")
	}

	cyclic := buildMethodDAG(map[string][]string{
		"1:abc": {"2:bca"},
		"2:bca": {"1:abc"},
	})
	if cyclic.HasCycles() != (cyclic.FindCycle() != nil) {
		t.Error("HasCycles and FindCycle disagree on a cyclic graph")
	}
}

func TestTopologicalSortFailsOnTheSameGraphHasCyclesFlags(t *testing.T) {
	g := buildMethodDAG(map[string][]string{
		"1:abc": {"2:bca"},
		"2:bca": {"1:abc"},
	})

	if !g.HasCycles() {
		t.Fatal("expected graph to be cyclic")
	}
	if _, err := g.TopologicalSort(); err == nil {
		t.Error("expected TopologicalSort to fail on a cyclic graph")
	}
}

func TestDiamondOrdersUpstreamBeforeDownstream(t *testing.T) {
	g := buildMethodDAG(map[string][]string{
		"write-a":        {},
		"read-a-write-b": {"write-a"},
		"read-a-write-c": {"write-a"},
		"read-b-and-c":   {"read-a-write-b", "read-a-write-c"},
	})

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("topological sort failed on an acyclic diamond: %v", err)
	}

	index := make(map[string]int, len(order))
	for i, id := range order {
		index[id] = i
	}
	if index["write-a"] > index["read-a-write-b"] {
		t.Error("write-a must be ordered before read-a-write-b")
	}
	if index["write-a"] > index["read-a-write-c"] {
		t.Error("write-a must be ordered before read-a-write-c")
	}
	if index["read-a-write-b"] > index["read-b-and-c"] {
		t.Error("read-a-write-b must be ordered before read-b-and-c")
	}
	if index["read-a-write-c"] > index["read-b-and-c"] {
		t.Error("read-a-write-c must be ordered before read-b-and-c")
	}
}
