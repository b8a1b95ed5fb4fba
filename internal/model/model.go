// Package model holds the plain-data declarations a component is built
// from (spec.md §4.B, §9 design note: "every piece of state lives
// inside a Component or ConstraintSystem instance"). These structures
// are what an (out-of-scope) DSL or host language binding would
// populate; this package only carries the shape, never parses it.
package model

import (
	"github.com/corewave/dataflow/internal/activation"
	"github.com/corewave/dataflow/internal/graph"
	"github.com/corewave/dataflow/internal/value"
)

// VarSpec declares one variable of a component.
type VarSpec struct {
	ID      graph.VarID
	Name    string
	Initial value.Value
}

// MethodSpec declares one candidate method of a constraint, plus the
// executable body the activation engine will dispatch for it.
type MethodSpec struct {
	ID        graph.MethodID
	Name      string
	Inputs    []graph.VarID
	Outputs   []graph.VarID
	InputMask map[graph.VarID]bool
	IsAsync   bool
	Body      activation.MethodFunc
}

// ConstraintSpec declares one constraint: identity plus its candidate
// methods. All methods of a constraint are expected to operate over
// the same variable set; the caller populating this from a DSL is
// responsible for that invariant, not this package.
type ConstraintSpec struct {
	ID      graph.ConstraintID
	Name    string
	Methods []MethodSpec
}

// ComponentSpec declares one component's complete contents: its
// variables and its constraints.
type ComponentSpec struct {
	Name        string
	Variables   []VarSpec
	Constraints []ConstraintSpec
}
