package main

import (
	"context"

	"github.com/corewave/dataflow/internal/graph"
	"github.com/corewave/dataflow/internal/model"
	"github.com/corewave/dataflow/internal/value"
)

const (
	varA graph.VarID = iota + 1
	varB
	varC
)

func addBody(ctx context.Context, in []value.Value) ([]value.Value, error) {
	a, _ := in[0].Float64()
	b, _ := in[1].Float64()
	return []value.Value{value.Float64(a + b)}, nil
}

func subBody(ctx context.Context, in []value.Value) ([]value.Value, error) {
	x, _ := in[0].Float64()
	y, _ := in[1].Float64()
	return []value.Value{value.Float64(y - x)}, nil
}

// demoSpec returns the built-in a+b=c component (spec.md §8's worked
// scenarios) flowctl solves when no --component file overrides its
// variables.
func demoSpec() model.ComponentSpec {
	return model.ComponentSpec{
		Name: "demo",
		Variables: []model.VarSpec{
			{ID: varA, Name: "a", Initial: value.Float64(0)},
			{ID: varB, Name: "b", Initial: value.Float64(0)},
			{ID: varC, Name: "c", Initial: value.Float64(0)},
		},
		Constraints: []model.ConstraintSpec{{
			ID:   1,
			Name: "a+b=c",
			Methods: []model.MethodSpec{
				{ID: 1, Name: "abc", Inputs: []graph.VarID{varA, varB}, Outputs: []graph.VarID{varC}, Body: addBody},
				{ID: 2, Name: "acb", Inputs: []graph.VarID{varA, varC}, Outputs: []graph.VarID{varB}, Body: subBody},
				{ID: 3, Name: "bca", Inputs: []graph.VarID{varB, varC}, Outputs: []graph.VarID{varA}, Body: subBody},
			},
		}},
	}
}

// variableByName resolves a demo variable's VarID by its declared name.
func variableByName(name string) (graph.VarID, bool) {
	switch name {
	case "a":
		return varA, true
	case "b":
		return varB, true
	case "c":
		return varC, true
	default:
		return 0, false
	}
}
