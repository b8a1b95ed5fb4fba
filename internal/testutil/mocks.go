// Package testutil provides shared testing fixtures for the dataflow
// test suite: common errors, method bodies and spec builders other
// packages' tests can reuse instead of redeclaring them.
package testutil

import (
	"context"
	"errors"

	"github.com/corewave/dataflow/internal/activation"
	"github.com/corewave/dataflow/internal/graph"
	"github.com/corewave/dataflow/internal/model"
	"github.com/corewave/dataflow/internal/value"
)

// Common test errors for use in mock method bodies.
var (
	ErrMockUnavailable = errors.New("service unavailable")
	ErrMockTimeout     = errors.New("operation timed out")
	ErrMockDiverged    = errors.New("method diverged")
)

// SumBody adds its two inputs and returns a single output.
func SumBody(ctx context.Context, in []value.Value) ([]value.Value, error) {
	a, _ := in[0].Float64()
	b, _ := in[1].Float64()
	return []value.Value{value.Float64(a + b)}, nil
}

// DiffBody subtracts its first input from its second and returns a
// single output: useful as the inverse method of SumBody in a
// three-variable sum constraint (a + b = c).
func DiffBody(ctx context.Context, in []value.Value) ([]value.Value, error) {
	x, _ := in[0].Float64()
	y, _ := in[1].Float64()
	return []value.Value{value.Float64(y - x)}, nil
}

// IdentityBody copies its inputs to its outputs unchanged.
func IdentityBody(ctx context.Context, in []value.Value) ([]value.Value, error) {
	out := make([]value.Value, len(in))
	copy(out, in)
	return out, nil
}

// FailingBody always returns err, ignoring its inputs.
func FailingBody(err error) activation.MethodFunc {
	return func(ctx context.Context, in []value.Value) ([]value.Value, error) {
		return nil, err
	}
}

// BlockingBody blocks until ctx is done, then reports ctx's error —
// useful for exercising cancellation and staleness in the activation
// engine.
func BlockingBody(ctx context.Context, in []value.Value) ([]value.Value, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// SumSpec returns a three-variable component (a, b, c with a+b=c)
// with all three candidate methods wired, the shared fixture used by
// the system tests.
func SumSpec(name string, a, b, c graph.VarID) model.ComponentSpec {
	return model.ComponentSpec{
		Name: name,
		Variables: []model.VarSpec{
			{ID: a, Name: "a", Initial: value.Float64(0)},
			{ID: b, Name: "b", Initial: value.Float64(0)},
			{ID: c, Name: "c", Initial: value.Float64(0)},
		},
		Constraints: []model.ConstraintSpec{{
			ID:   1,
			Name: "a+b=c",
			Methods: []model.MethodSpec{
				{ID: 1, Name: "abc", Inputs: []graph.VarID{a, b}, Outputs: []graph.VarID{c}, Body: SumBody},
				{ID: 2, Name: "acb", Inputs: []graph.VarID{a, c}, Outputs: []graph.VarID{b}, Body: DiffBody},
				{ID: 3, Name: "bca", Inputs: []graph.VarID{b, c}, Outputs: []graph.VarID{a}, Body: DiffBody},
			},
		}},
	}
}
