// Package component implements the component facade (spec.md §4.G): the
// single entry point that wires the variable store, constraint graph,
// planner, activation engine, event dispatcher and edit journal into
// the public edit -> plan -> execute -> notify cycle.
package component

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/corewave/dataflow/internal/activation"
	"github.com/corewave/dataflow/internal/events"
	"github.com/corewave/dataflow/internal/graph"
	"github.com/corewave/dataflow/internal/journal"
	"github.com/corewave/dataflow/internal/logging"
	"github.com/corewave/dataflow/internal/model"
	"github.com/corewave/dataflow/internal/planner"
	"github.com/corewave/dataflow/internal/value"
	"github.com/corewave/dataflow/internal/varstore"
)

// Options configures a Component (spec.md §6 configuration options).
type Options struct {
	// ThreadPoolSize is the activation engine's worker count. 0 selects
	// the cooperative, single-threaded mode.
	ThreadPoolSize int

	// MaxJournalEntries caps undo depth; 0 means unbounded.
	MaxJournalEntries int

	// DefaultStay is the initial stay strength for freshly declared
	// variables.
	DefaultStay int64

	// EmitOk controls whether a variable recovering from Error fires an
	// additional Ok event alongside its Ready event.
	EmitOk bool

	// OverconstrainedPolicy resolves the ambiguity spec.md §9 leaves
	// open about constraints whose outputs are entirely pinned.
	OverconstrainedPolicy planner.OverconstrainedPolicy
}

// Component is one live instance of a ComponentSpec: its variables,
// constraints, methods and everything the facade needs to solve them.
type Component struct {
	name     string
	graph    *graph.ConstraintGraph
	store    *varstore.Store
	registry *activation.Registry
	engine   *activation.Engine
	builder  *planner.Builder
	journal  *journal.Journal
	bus      *events.Bus
	opts     Options

	// mu serializes update/solve on the component (spec.md §5 ordering
	// guarantee (iii)): the owning context, never a worker, mutates the
	// store and commits plans.
	mu sync.Mutex
}

// New builds a Component from a plain ComponentSpec (spec.md §6: the
// core consumes this as a plain data structure produced by the
// out-of-scope DSL collaborator).
func New(spec model.ComponentSpec, opts Options) *Component {
	g := graph.NewConstraintGraph()
	store := varstore.NewStore(opts.DefaultStay)
	registry := activation.NewRegistry()

	for _, v := range spec.Variables {
		store.Declare(v.ID, v.Name, v.Initial)
	}

	for _, cs := range spec.Constraints {
		decl := &graph.ConstraintDecl{
			ID:      cs.ID,
			Name:    cs.Name,
			Enabled: true,
		}
		for _, ms := range cs.Methods {
			decl.Methods = append(decl.Methods, &graph.MethodDecl{
				ID:        ms.ID,
				Name:      ms.Name,
				Inputs:    ms.Inputs,
				Outputs:   ms.Outputs,
				InputMask: ms.InputMask,
				IsAsync:   ms.IsAsync,
			})
			if ms.Body != nil {
				registry.Register(ms.ID, ms.Body)
			}
		}
		g.AddConstraint(decl)
	}

	return &Component{
		name:     spec.Name,
		graph:    g,
		store:    store,
		registry: registry,
		engine:   activation.NewEngine(store, registry, opts.ThreadPoolSize),
		builder:  planner.NewBuilder(opts.OverconstrainedPolicy),
		journal:  journal.New(opts.MaxJournalEntries),
		bus:      events.NewBus(),
		opts:     opts,
	}
}

// Name returns the component's declared name.
func (c *Component) Name() string { return c.name }

// SetVariable applies a user edit and journals it (spec.md §4.A, §4.F).
// Pin/unpin and enable/disable are deliberately not routed through here
// — they are never journaled.
func (c *Component) SetVariable(id graph.VarID, v value.Value) error {
	old, oldStay, _, err := c.store.Set(id, v)
	if err != nil {
		return err
	}
	newStay := c.store.Priority(id)
	c.journal.Record(journal.Edit{
		Variable: id,
		Old:      old,
		New:      v,
		OldStay:  oldStay,
		NewStay:  newStay,
	})
	return nil
}

// Edit is an alias for SetVariable (spec.md §4.G).
func (c *Component) Edit(id graph.VarID, v value.Value) error {
	return c.SetVariable(id, v)
}

// Pin forces a variable to the strongest stay tier, excluding it from
// planner outputs. Not journaled.
func (c *Component) Pin(id graph.VarID) error { return c.store.Pin(id) }

// Unpin releases a pinned variable. Not journaled.
func (c *Component) Unpin(id graph.VarID) error { return c.store.Unpin(id) }

// EnableConstraint re-admits a constraint into planning. Not journaled.
func (c *Component) EnableConstraint(id graph.ConstraintID) error {
	return c.graph.SetEnabled(id, true)
}

// DisableConstraint removes a constraint from planning; its variables
// are no longer held consistent (spec.md §3). Not journaled.
func (c *Component) DisableConstraint(id graph.ConstraintID) error {
	return c.graph.SetEnabled(id, false)
}

// Value returns a variable's current value.
func (c *Component) Value(id graph.VarID) (value.Value, error) {
	return c.store.Get(id)
}

// Subscribe registers a subscriber for one variable's name, or
// events.Wildcard for every variable in the component.
func (c *Component) Subscribe(topic string) (events.Subscriber, func()) {
	return c.bus.Subscribe(topic)
}

// TouchAll marks every variable edited-this-cycle, forcing a full
// replan on the next Update (spec.md §4.G, used for benchmarking).
func (c *Component) TouchAll() {
	for _, id := range c.store.IDs() {
		_ = c.store.MarkEdited(id)
	}
}

// Update re-plans if the component is dirty and executes the resulting
// plan, publishing Pending/Ready/Error events as activations resolve.
// It is idempotent: calling Update twice with no edits in between is a
// no-op the second time (spec.md §4.G, §8 plan idempotence).
//
// In cooperative mode (ThreadPoolSize == 0) Update blocks until every
// activation has resolved. In parallel mode (ThreadPoolSize > 0) Update
// returns as soon as the plan is dispatched; completion is observed
// only through the Ready/Error events published as activations land
// (spec.md §5 suspension points). A second Update called before the
// first's dispatch finishes starts its own planning pass and its own
// dispatch — the generation guards in internal/varstore are what keep
// a superseded activation's result from overwriting a later edit
// (spec.md §8 Scenario 4).
func (c *Component) Update(ctx context.Context) error {
	c.mu.Lock()

	if !c.store.AnyEdited() {
		c.mu.Unlock()
		return nil
	}

	opID := uuid.New().String()
	ctx = logging.WithCycleID(ctx, opID)
	logging.InfoContext(ctx, "component %q: starting solve cycle", c.name)

	plan, err := c.builder.Build(c.graph, c.store.Priority, c.store.Pinned, c.isDisabled)
	if err != nil {
		c.store.ClearEdited()
		c.failOverconstrained(ctx, err)
		c.mu.Unlock()
		return err
	}
	c.store.ClearEdited()
	for _, e := range plan.Entries {
		if decl, ok := c.graph.Constraint(e.Constraint); ok {
			decl.ActiveMethod = e.Method
			decl.HasActive = true
		}
	}

	priorStates := c.snapshotPriorStates(plan)
	c.publishPending(plan)
	c.mu.Unlock()

	if c.opts.ThreadPoolSize > 0 {
		go c.dispatch(ctx, plan, priorStates)
		return nil
	}
	return c.execute(ctx, plan, priorStates)
}

// dispatch runs a plan to completion in the background and logs
// (rather than returns) its failure, since parallel mode's caller has
// already moved on by the time it would run.
func (c *Component) dispatch(ctx context.Context, plan *planner.Plan, priorStates map[graph.VarID]varstore.EventState) {
	if err := c.execute(ctx, plan, priorStates); err != nil {
		logging.ErrorContext(ctx, "component %q: dispatched solve cycle failed: %v", c.name, err)
	}
}

// execute runs a plan's activations and publishes the resulting
// events. Shared by Update's synchronous and dispatched paths.
func (c *Component) execute(ctx context.Context, plan *planner.Plan, priorStates map[graph.VarID]varstore.EventState) error {
	outcomes, err := c.engine.Run(ctx, c.graph, plan)
	if err != nil {
		logging.ErrorContext(ctx, "component %q: solve cycle failed: %v", c.name, err)
		return err
	}

	c.publishOutcomes(plan, outcomes, priorStates)
	logging.InfoContext(ctx, "component %q: solve cycle complete", c.name)
	return nil
}

// Solve is a synonym for Update (spec.md §4.G).
func (c *Component) Solve(ctx context.Context) error { return c.Update(ctx) }

func (c *Component) isDisabled(v graph.VarID) bool { return !c.store.Enabled(v) }

// Undo pops the most recent journaled edit and restores the variable's
// previous (value, stay); the generation still advances so any in-flight
// activation bound to the pre-restore generation is stale. Reports
// whether there was anything to undo.
func (c *Component) Undo() bool {
	e, ok := c.journal.Undo()
	if !ok {
		return false
	}
	_, err := c.store.Restore(e.Variable, e.Old, e.OldStay)
	return err == nil
}

// Redo reapplies the most recently undone edit's new (value, stay).
func (c *Component) Redo() bool {
	e, ok := c.journal.Redo()
	if !ok {
		return false
	}
	_, err := c.store.Restore(e.Variable, e.New, e.NewStay)
	return err == nil
}

// planOutputs returns every variable a plan's entries write, resolving
// each entry's MethodDecl the same way the planner and activation
// engine do.
func (c *Component) planOutputs(plan *planner.Plan) []graph.VarID {
	var outputs []graph.VarID
	for _, e := range plan.Entries {
		decl, ok := c.graph.Constraint(e.Constraint)
		if !ok {
			continue
		}
		for _, m := range decl.Methods {
			if m.ID == e.Method {
				outputs = append(outputs, m.Outputs...)
				break
			}
		}
	}
	return outputs
}

func (c *Component) snapshotPriorStates(plan *planner.Plan) map[graph.VarID]varstore.EventState {
	prior := make(map[graph.VarID]varstore.EventState)
	for _, v := range c.planOutputs(plan) {
		st, _, _ := c.store.State(v)
		prior[v] = st
	}
	return prior
}

// publishPending announces that every variable a plan is about to write
// is entering the Pending state, ahead of dispatch.
func (c *Component) publishPending(plan *planner.Plan) {
	for _, v := range c.planOutputs(plan) {
		c.publish(v, events.KindPending, value.Nil, nil)
	}
}

// publishOutcomes announces the terminal state of every applied
// activation. Discarded (stale) results never reach here as events —
// spec.md §4.D: "no event is emitted for that output".
func (c *Component) publishOutcomes(plan *planner.Plan, outcomes []activation.Outcome, prior map[graph.VarID]varstore.EventState) {
	for i, o := range outcomes {
		if !o.Applied {
			continue
		}
		entry := plan.Entries[i]
		decl, ok := c.graph.Constraint(entry.Constraint)
		if !ok {
			continue
		}
		var method *graph.MethodDecl
		for _, m := range decl.Methods {
			if m.ID == entry.Method {
				method = m
				break
			}
		}
		if method == nil {
			continue
		}
		for _, v := range method.Outputs {
			if o.Err != nil {
				c.publish(v, events.KindError, value.Nil, o.Err)
				continue
			}
			val, _ := c.store.Get(v)
			c.publish(v, events.KindReady, val, nil)
			if c.opts.EmitOk && prior[v] == varstore.StateError {
				c.publish(v, events.KindOk, val, nil)
			}
		}
	}
}

// failOverconstrained moves every variable touched by a constraint the
// planner could not cover into Error (spec.md §7: "affected variables
// are set to Error(Overconstrained)"), treating a Cyclic failure the
// same way (spec.md §7: "treated as Overconstrained for event
// emission").
func (c *Component) failOverconstrained(ctx context.Context, cause error) {
	logging.WarnContext(ctx, "component %q: planning failed: %v", c.name, cause)
	remaining := c.remainingConstraints(cause)
	seen := make(map[graph.VarID]bool)
	for _, cid := range remaining {
		decl, ok := c.graph.Constraint(cid)
		if !ok {
			continue
		}
		for _, m := range decl.Methods {
			vars := make([]graph.VarID, 0, len(m.Inputs)+len(m.Outputs))
			vars = append(vars, m.Inputs...)
			vars = append(vars, m.Outputs...)
			for _, v := range vars {
				if seen[v] {
					continue
				}
				seen[v] = true
				gen, err := c.store.BeginActivation(v)
				if err != nil {
					continue
				}
				if ok, ferr := c.store.FailActivation(v, gen, cause); ferr == nil && ok {
					logging.WarnContext(logging.WithGeneration(ctx, gen), "component %q: variable %q overconstrained", c.name, c.store.Name(v))
					c.publish(v, events.KindError, value.Nil, cause)
				}
			}
		}
	}
}

func (c *Component) remainingConstraints(cause error) []graph.ConstraintID {
	var oce *planner.OverconstrainedError
	if errors.As(cause, &oce) {
		return oce.Remaining
	}
	var cyc *planner.CyclicError
	if errors.As(cause, &cyc) {
		ids := make([]graph.ConstraintID, 0)
		for _, c2 := range c.graph.Constraints() {
			if c2.Enabled {
				ids = append(ids, c2.ID)
			}
		}
		return ids
	}
	return nil
}

// Rebroadcast republishes an already-marshalled event onto this
// component's bus without touching the variable store — the mechanism
// the constraint system's host bridge uses to deliver a worker-side
// completion back to the subscribers that own it (spec.md §4.H
// `notify`).
func (c *Component) Rebroadcast(e events.Event) {
	c.bus.Publish(e.VarName, e)
}

func (c *Component) publish(v graph.VarID, kind events.Kind, val value.Value, cause error) {
	name := c.store.Name(v)
	gen := c.store.Generation(v)
	e := events.Event{Variable: v, VarName: name, Generation: gen, Kind: kind, Value: val}
	if cause != nil {
		e.Err = cause.Error()
	}
	c.bus.Publish(name, e)
}
