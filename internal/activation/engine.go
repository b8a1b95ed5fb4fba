// Package activation implements the activation engine (spec.md §4.D,
// §5, §9): it dispatches the methods a Plan selected, honoring each
// variable's generation so that a superseded activation's result is
// discarded instead of overwriting a newer edit, and propagates method
// failures along the plan's dependency edges without invoking
// downstream methods at all.
//
// The dispatch shape is grounded on the teacher's
// DiscoverAndCheck worker pool (internal/update/orchestrator.go): a
// semaphore bounds concurrency, a sync.WaitGroup joins every
// goroutine, and a mutex guards shared results. thread_pool_size == 0
// collapses the semaphore to a single slot, giving the cooperative,
// single-threaded mode spec.md §6 asks for — the same code path, not
// a separate implementation.
package activation

import (
	"context"
	"fmt"
	"sync"

	"github.com/corewave/dataflow/internal/graph"
	"github.com/corewave/dataflow/internal/planner"
	"github.com/corewave/dataflow/internal/value"
	"github.com/corewave/dataflow/internal/varstore"
)

// Outcome reports what happened to one plan entry's activation.
type Outcome struct {
	Entry   planner.PlanEntry
	Applied bool  // false when every completion for this entry was discarded as stale
	Err     error // non-nil on MethodFailure or on upstream propagation
}

// Engine runs one component's Plan against its variable store.
type Engine struct {
	store    *varstore.Store
	registry *Registry
	poolSize int
	breaker  *CircuitBreaker
}

// NewEngine creates an engine. poolSize <= 0 means cooperative mode: at
// most one activation runs at a time (spec.md §6 `thread_pool_size`).
// Each method gets its own circuit: a method that fails
// DefaultFailureThreshold times in a row stops being invoked until its
// reset timeout elapses, so one broken method doesn't cost every plan a
// full activation attempt.
func NewEngine(store *varstore.Store, registry *Registry, poolSize int) *Engine {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Engine{store: store, registry: registry, poolSize: poolSize, breaker: NewCircuitBreaker()}
}

type entryPlan struct {
	entry  planner.PlanEntry
	method *graph.MethodDecl
	deps   []int // indices, within the plan, of entries writing one of this entry's inputs
}

// Run dispatches every entry of plan, respecting the output->input
// dependency edges among them, and returns one Outcome per entry in
// plan order.
func (e *Engine) Run(ctx context.Context, g *graph.ConstraintGraph, plan *planner.Plan) ([]Outcome, error) {
	n := len(plan.Entries)
	if n == 0 {
		return nil, nil
	}

	entries, err := resolveEntries(g, plan.Entries)
	if err != nil {
		return nil, err
	}

	done := make([]chan struct{}, n)
	for i := range done {
		done[i] = make(chan struct{})
	}

	outcomes := make([]Outcome, n)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.poolSize)

	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer close(done[i])

			for _, dep := range entries[i].deps {
				<-done[dep]
			}

			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := e.runEntry(ctx, entries, outcomes, i)
			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
		}(i)
	}

	wg.Wait()
	return outcomes, nil
}

// runEntry executes one entry once its dependencies have all finished,
// or propagates a dependency's failure without invoking this entry's
// method (spec.md §4.D).
func (e *Engine) runEntry(ctx context.Context, entries []entryPlan, prior []Outcome, i int) Outcome {
	ep := entries[i]

	var upstreamCause error
	for _, dep := range ep.deps {
		if prior[dep].Err != nil {
			upstreamCause = prior[dep].Err
			break
		}
	}
	if upstreamCause != nil {
		cause := fmt.Errorf("%w: %v", ErrUpstreamFailed, upstreamCause)
		applied := e.failOutputs(ep.method, cause)
		return Outcome{Entry: ep.entry, Applied: applied, Err: cause}
	}

	inputs := make([]value.Value, len(ep.method.Inputs))
	for k, v := range ep.method.Inputs {
		val, err := e.store.Get(v)
		if err != nil {
			applied := e.failOutputs(ep.method, err)
			return Outcome{Entry: ep.entry, Applied: applied, Err: err}
		}
		inputs[k] = val
	}

	fn, ok := e.registry.Lookup(ep.method.ID)
	if !ok {
		applied := e.failOutputs(ep.method, ErrMethodNotRegistered)
		return Outcome{Entry: ep.entry, Applied: applied, Err: ErrMethodNotRegistered}
	}

	if !e.breaker.Allow(ep.method.ID) {
		applied := e.failOutputs(ep.method, ErrCircuitOpen)
		return Outcome{Entry: ep.entry, Applied: applied, Err: ErrCircuitOpen}
	}

	gens := make(map[graph.VarID]int64, len(ep.method.Outputs))
	for _, v := range ep.method.Outputs {
		gen, err := e.store.BeginActivation(v)
		if err != nil {
			return Outcome{Entry: ep.entry, Applied: false, Err: err}
		}
		gens[v] = gen
	}

	results, err := fn(ctx, inputs)
	if err != nil {
		e.breaker.RecordFailure(ep.method.ID)
		applied := false
		for _, v := range ep.method.Outputs {
			ok, ferr := e.store.FailActivation(v, gens[v], err)
			if ferr == nil && ok {
				applied = true
			}
		}
		return Outcome{Entry: ep.entry, Applied: applied, Err: err}
	}
	e.breaker.RecordSuccess(ep.method.ID)

	applied := false
	for k, v := range ep.method.Outputs {
		if k >= len(results) {
			break
		}
		ok, cerr := e.store.CompleteActivation(v, gens[v], results[k])
		if cerr == nil && ok {
			applied = true
		}
	}
	return Outcome{Entry: ep.entry, Applied: applied, Err: nil}
}

// failOutputs transitions every output of a method to Error without
// ever invoking the method body, used when an input is already known
// bad (an upstream failure or a lookup error).
func (e *Engine) failOutputs(m *graph.MethodDecl, cause error) bool {
	applied := false
	for _, v := range m.Outputs {
		gen, err := e.store.BeginActivation(v)
		if err != nil {
			continue
		}
		ok, ferr := e.store.FailActivation(v, gen, cause)
		if ferr == nil && ok {
			applied = true
		}
	}
	return applied
}

// resolveEntries looks up each plan entry's MethodDecl and computes its
// dependency indices from the output->input edges among chosen
// methods, the same relation planner.Builder.order used to produce the
// plan's order in the first place.
func resolveEntries(g *graph.ConstraintGraph, planEntries []planner.PlanEntry) ([]entryPlan, error) {
	entries := make([]entryPlan, len(planEntries))
	writer := make(map[graph.VarID]int, len(planEntries))

	for i, pe := range planEntries {
		c, ok := g.Constraint(pe.Constraint)
		if !ok {
			return nil, fmt.Errorf("%w: constraint %d", graph.ErrNotFound, pe.Constraint)
		}
		var method *graph.MethodDecl
		for _, m := range c.Methods {
			if m.ID == pe.Method {
				method = m
				break
			}
		}
		if method == nil {
			return nil, fmt.Errorf("%w: method %d on constraint %d", graph.ErrNotFound, pe.Method, pe.Constraint)
		}
		entries[i] = entryPlan{entry: pe, method: method}
		for _, v := range method.Outputs {
			writer[v] = i
		}
	}

	for i := range entries {
		seen := make(map[int]bool)
		for _, v := range entries[i].method.Inputs {
			if w, ok := writer[v]; ok && w != i && !seen[w] {
				seen[w] = true
				entries[i].deps = append(entries[i].deps, w)
			}
		}
	}
	return entries, nil
}
