package planner

import (
	"errors"
	"fmt"

	"github.com/corewave/dataflow/internal/graph"
)

// Sentinel causes behind the two planner-specific error kinds (spec.md
// §7). Both are reported as a single failure batch: for Overconstrained
// every variable of the constraints left uncovered moves to Error, for
// Cyclic every variable of every enabled constraint does.
var (
	ErrOverconstrained = errors.New("planner: no method selection covers every enabled constraint")
	ErrCyclic          = errors.New("planner: selected methods induce a cycle")
)

// OverconstrainedError names the constraints that could not be covered
// by any free method once selection stalled.
type OverconstrainedError struct {
	Remaining []graph.ConstraintID
}

func (e *OverconstrainedError) Error() string {
	return fmt.Sprintf("overconstrained: %d constraint(s) left unenforced", len(e.Remaining))
}

func (e *OverconstrainedError) Unwrap() error { return ErrOverconstrained }

// CyclicError wraps the underlying graph cycle detected during the
// defensive topological sort over chosen methods (spec.md §4.C: "should
// not happen if selection is correct, but is reported defensively").
// Path, when non-empty, names the "constraintID:methodID" keys forming
// the cycle, in dependency order.
type CyclicError struct {
	Cause error
	Path  []string
}

func (e *CyclicError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("cyclic plan: %v", e.Cause)
	}
	return fmt.Sprintf("cyclic plan: %v (cycle: %v)", e.Cause, e.Path)
}
func (e *CyclicError) Unwrap() error { return ErrCyclic }
