// Package planner implements the QuickPlan-style multi-way planning
// algorithm (spec.md §4.C): pick one method per enforceable constraint,
// honoring the variable priority order, and order the selection into a
// topologically sorted Plan.
package planner

import (
	"fmt"
	"sort"

	"github.com/corewave/dataflow/internal/graph"
)

// OverconstrainedPolicy resolves spec.md §9's open question about a
// constraint whose outputs are all pinned.
type OverconstrainedPolicy int

const (
	// PolicyStrict requires a method that reads every pinned variable
	// without writing any of them. This is what spec.md resolves the
	// ambiguity to by default.
	PolicyStrict OverconstrainedPolicy = iota

	// PolicyNoOutputSatisfies additionally accepts a method declared
	// with zero outputs as satisfying the constraint, without requiring
	// it to read the pinned variables at all.
	PolicyNoOutputSatisfies
)

// PriorityFunc ranks variables the way the variable store does (higher
// = stronger stay). The planner depends only on this function, not on
// varstore directly, so it can be tested with synthetic priorities.
type PriorityFunc func(graph.VarID) int64

// DisabledFunc reports whether a variable is currently disabled.
type DisabledFunc func(graph.VarID) bool

// PinnedFunc reports whether a variable is currently pinned. A pinned
// variable structurally excludes any method that would write it from
// selection (spec.md §8: "a pinned variable never appears in the
// outputs of any method chosen by the planner") — this is enforced
// independently of the priority weighting pinning also applies,
// because priority alone cannot break a tie among several methods that
// all happen to write a pinned variable.
type PinnedFunc func(graph.VarID) bool

// PlanEntry is one step of a Plan: the constraint and the method chosen
// to enforce it.
type PlanEntry struct {
	Constraint graph.ConstraintID
	Method     graph.MethodID
	MethodName string
}

// Plan is the ordered method selection produced by Build (spec.md §3).
type Plan struct {
	Entries []PlanEntry
	Stats   PlanStats
}

// PlanStats summarizes a plan, grounded on the teacher's update-plan
// statistics (containers-by-change-type, warnings) generalized to
// constraints-by-method-arity.
type PlanStats struct {
	ConstraintCount      int
	MethodsByOutputArity map[int]int
	// FreeVariableCount is the number of variables referenced by the
	// component's constraints that no chosen method writes — pure
	// inputs the plan leaves untouched.
	FreeVariableCount        int
	OverconstrainedRemainder int
	Warnings                 []string
}

// Builder runs the planning algorithm over one component's constraint
// graph and variable priorities.
type Builder struct {
	Policy OverconstrainedPolicy
}

// NewBuilder creates a planner using the strict overconstrained policy
// unless overridden.
func NewBuilder(policy OverconstrainedPolicy) *Builder {
	return &Builder{Policy: policy}
}

// candidate is one (constraint, method) pairing still eligible to be
// chosen, along with the priorities the selection rule needs.
type candidate struct {
	constraint         *graph.ConstraintDecl
	method             *graph.MethodDecl
	maxOutPrio         int64 // strongest (max priority) output this method would write
	minOutPrio         int64 // weakest (min priority) output this method would write; MaxInt64 if zero outputs
	onlyBecauseDisabled bool // true if every other declared method was rejected due to a disabled variable
}

// Build selects one method per enabled constraint and returns the
// topologically ordered Plan, or Overconstrained/Cyclic per spec.md §4.C/§7.
func (b *Builder) Build(g *graph.ConstraintGraph, priority PriorityFunc, pinned PinnedFunc, disabled DisabledFunc) (*Plan, error) {
	constraints := g.Constraints()
	sort.Slice(constraints, func(i, j int) bool { return constraints[i].ID < constraints[j].ID })

	unenforced := make(map[graph.ConstraintID]*graph.ConstraintDecl, len(constraints))
	for _, c := range constraints {
		if c.Enabled {
			unenforced[c.ID] = c
		}
	}

	written := make(map[graph.VarID]graph.MethodID)
	chosen := make([]PlanEntry, 0, len(unenforced))
	stats := PlanStats{
		ConstraintCount:      len(unenforced),
		MethodsByOutputArity: make(map[int]int),
	}
	var warnings []string

	for len(unenforced) > 0 {
		free := b.freeConstraints(unenforced, written, priority, pinned, disabled)
		if len(free) == 0 {
			break
		}

		sort.Slice(free, func(i, j int) bool {
			if free[i].minOutPrio != free[j].minOutPrio {
				return free[i].minOutPrio < free[j].minOutPrio
			}
			return free[i].constraint.ID < free[j].constraint.ID
		})
		pick := free[0]

		if pick.onlyBecauseDisabled {
			warnings = append(warnings, fmt.Sprintf(
				"constraint %s: only method %s remained eligible because a disabled variable ruled out its alternatives",
				pick.constraint.Name, pick.method.Name))
		}

		for _, v := range pick.method.Outputs {
			written[v] = pick.method.ID
		}
		chosen = append(chosen, PlanEntry{
			Constraint: pick.constraint.ID,
			Method:     pick.method.ID,
			MethodName: pick.method.Name,
		})
		stats.MethodsByOutputArity[len(pick.method.Outputs)]++
		delete(unenforced, pick.constraint.ID)
	}

	if len(unenforced) > 0 {
		remaining := make([]graph.ConstraintID, 0, len(unenforced))
		for id := range unenforced {
			remaining = append(remaining, id)
		}
		sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })
		stats.OverconstrainedRemainder = len(remaining)
		return nil, &OverconstrainedError{Remaining: remaining}
	}

	order, err := b.order(g, chosen)
	if err != nil {
		return nil, err
	}

	stats.FreeVariableCount = countFreeVariables(constraints, written)
	stats.Warnings = warnings
	return &Plan{Entries: order, Stats: stats}, nil
}

// countFreeVariables counts the variables this component declares
// across every constraint (enabled or not) that no chosen method
// writes — the plan's independent variables, in HotDrink's sense: pure
// inputs the solver never recomputes.
func countFreeVariables(constraints []*graph.ConstraintDecl, written map[graph.VarID]graph.MethodID) int {
	seen := make(map[graph.VarID]bool)
	free := 0
	for _, c := range constraints {
		for _, m := range c.Methods {
			for _, v := range append(append([]graph.VarID{}, m.Inputs...), m.Outputs...) {
				if seen[v] {
					continue
				}
				seen[v] = true
				if _, ok := written[v]; !ok {
					free++
				}
			}
		}
	}
	return free
}

// freeConstraints finds, for every still-unenforced constraint, its best
// candidate method (if any) and returns one candidate per free
// constraint.
func (b *Builder) freeConstraints(
	unenforced map[graph.ConstraintID]*graph.ConstraintDecl,
	written map[graph.VarID]graph.MethodID,
	priority PriorityFunc,
	pinned PinnedFunc,
	disabled DisabledFunc,
) []candidate {
	var free []candidate

	for _, c := range unenforced {
		best, ok := b.bestMethod(c, written, priority, pinned, disabled)
		if ok {
			free = append(free, best)
		}
	}
	return free
}

// bestMethod returns, among a constraint's eligible methods, the one
// minimizing the maximum output priority (ties broken by declaration
// order), plus the weakest output priority across ALL eligible methods
// of this constraint — used by the caller to rank constraints against
// each other.
func (b *Builder) bestMethod(
	c *graph.ConstraintDecl,
	written map[graph.VarID]graph.MethodID,
	priority PriorityFunc,
	pinned PinnedFunc,
	disabled DisabledFunc,
) (candidate, bool) {
	var best *graph.MethodDecl
	var bestMax int64
	weakestAcrossAll := int64(1) << 62
	eligibleCount := 0
	anyRejectedForDisabled := false

	for _, m := range c.Methods {
		reason := b.rejectReason(m, written, pinned, disabled)
		if reason == rejectDisabled {
			anyRejectedForDisabled = true
		}
		if reason != rejectNone {
			continue
		}
		eligibleCount++

		maxPrio, minPrio := outputPriorityRange(m, priority)
		if minPrio < weakestAcrossAll {
			weakestAcrossAll = minPrio
		}
		if best == nil || maxPrio < bestMax {
			best = m
			bestMax = maxPrio
		}
	}

	if best == nil {
		return candidate{}, false
	}
	return candidate{
		constraint:          c,
		method:              best,
		maxOutPrio:          bestMax,
		minOutPrio:          weakestAcrossAll,
		onlyBecauseDisabled: eligibleCount == 1 && len(c.Methods) > 1 && anyRejectedForDisabled,
	}, true
}

type rejection int

const (
	rejectNone rejection = iota
	rejectDisabled
	rejectPinned
	rejectOther
)

// rejectReason reports why a method is (or isn't) eligible given what's
// already written, which variables are pinned, and which are disabled
// (spec.md §4.C). A method that would write a pinned variable is
// rejected outright — pinning is a structural exclusion, not merely a
// priority weighting, so it holds even when every candidate for a
// constraint ties on priority.
func (b *Builder) rejectReason(m *graph.MethodDecl, written map[graph.VarID]graph.MethodID, pinned PinnedFunc, disabled DisabledFunc) rejection {
	for _, v := range m.Inputs {
		if disabled(v) {
			return rejectDisabled
		}
	}

	if len(m.Outputs) == 0 {
		if b.Policy == PolicyNoOutputSatisfies {
			return rejectNone
		}
		return rejectOther
	}

	for _, v := range m.Outputs {
		if pinned(v) {
			return rejectPinned
		}
		if disabled(v) {
			return rejectDisabled
		}
		if _, taken := written[v]; taken {
			return rejectOther
		}
	}
	return rejectNone
}

// outputPriorityRange returns (max, min) priority among a method's
// outputs. A zero-output method (only reachable under
// PolicyNoOutputSatisfies) ranks as infinitely weak so it never
// outranks a method that actually writes something.
func outputPriorityRange(m *graph.MethodDecl, priority PriorityFunc) (maxPrio, minPrio int64) {
	if len(m.Outputs) == 0 {
		return -(int64(1) << 62), -(int64(1) << 62)
	}
	maxPrio = -(int64(1) << 62)
	minPrio = int64(1) << 62
	for _, v := range m.Outputs {
		p := priority(v)
		if p > maxPrio {
			maxPrio = p
		}
		if p < minPrio {
			minPrio = p
		}
	}
	return maxPrio, minPrio
}

func planKey(e PlanEntry) string {
	return fmt.Sprintf("%d:%d", e.Constraint, e.Method)
}

// order builds the output->input dependency DAG among chosen methods
// and topologically sorts it (spec.md §4.C): method B depends on method
// A whenever A writes one of B's inputs.
func (b *Builder) order(g *graph.ConstraintGraph, chosen []PlanEntry) ([]PlanEntry, error) {
	if len(chosen) == 0 {
		return nil, nil
	}

	byKey := make(map[string]PlanEntry, len(chosen))
	methodOf := make(map[string]*graph.MethodDecl, len(chosen))
	writer := make(map[graph.VarID]string, len(chosen))

	for _, e := range chosen {
		key := planKey(e)
		byKey[key] = e

		c, ok := g.Constraint(e.Constraint)
		if !ok {
			continue
		}
		for _, m := range c.Methods {
			if m.ID == e.Method {
				methodOf[key] = m
				for _, v := range m.Outputs {
					writer[v] = key
				}
				break
			}
		}
	}

	dag := graph.NewDAG()
	for key, m := range methodOf {
		var deps []string
		for _, in := range m.Inputs {
			if w, ok := writer[in]; ok && w != key {
				deps = append(deps, w)
			}
		}
		dag.AddNode(&graph.Node{ID: key, Dependencies: deps})
	}

	order, err := dag.TopologicalSort()
	if err != nil {
		return nil, &CyclicError{Cause: err, Path: dag.FindCycle()}
	}

	out := make([]PlanEntry, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, nil
}

