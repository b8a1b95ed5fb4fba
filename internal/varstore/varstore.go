// Package varstore implements the variable store (spec.md §4.A): the
// owner of current values, generations, stay strengths and pending
// state for every variable in a component.
package varstore

import (
	"fmt"
	"sync"

	"github.com/corewave/dataflow/internal/graph"
	"github.com/corewave/dataflow/internal/value"
)

// EventState is the per-variable transition state (spec.md §3): event
// state transitions only Pending -> {Ready, Error} within one
// generation.
type EventState int

const (
	StatePending EventState = iota
	StateReady
	StateError
)

func (s EventState) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateReady:
		return "Ready"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Variable is one entry in the store. Fields are only ever mutated
// through Store methods, which hold the store's lock.
type Variable struct {
	ID         graph.VarID
	Name       string
	value      value.Value
	generation int64
	stay       int64
	pinned     bool
	enabled    bool
	state      EventState
	err        error
	edited     bool
}

// pinnedStay is the stay-strength tier every pinned variable occupies,
// strictly above any edit sequence number (spec.md §3: "pinned ⇒ stay
// is strongest tier").
const pinnedStay = int64(1) << 62

// Store owns every variable of one component. All access is
// mutex-guarded so the engine's worker goroutines (spec.md §5) can read
// snapshots concurrently with the owning context mutating state.
type Store struct {
	mu          sync.Mutex
	vars        map[graph.VarID]*Variable
	editSeq     int64
	defaultStay int64
}

// NewStore creates an empty store. defaultStay is the initial stay
// strength assigned to freshly declared variables (spec.md §6
// `default_stay` option) — it must sit below the first edit sequence
// number (1) so any edit outranks a never-touched variable.
func NewStore(defaultStay int64) *Store {
	return &Store{
		vars:        make(map[graph.VarID]*Variable),
		defaultStay: defaultStay,
	}
}

// Declare registers a variable at component-build time with its default
// value. Declaring an ID twice overwrites the previous declaration.
func (s *Store) Declare(id graph.VarID, name string, initial value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[id] = &Variable{
		ID:      id,
		Name:    name,
		value:   initial,
		stay:    s.defaultStay,
		enabled: true,
		state:   StateReady,
	}
}

func (s *Store) lookup(id graph.VarID) (*Variable, error) {
	v, ok := s.vars[id]
	if !ok {
		return nil, fmt.Errorf("%w: variable %d", graph.ErrNotFound, id)
	}
	return v, nil
}

// Get returns the current value of a variable.
func (s *Store) Get(id graph.VarID) (value.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(id)
	if err != nil {
		return value.Nil, err
	}
	return v.value, nil
}

// Snapshot returns an immutable copy of a variable's state, suitable
// for handing to a worker across the boundary described in spec.md §5.
func (s *Store) Snapshot(id graph.VarID) (Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(id)
	if err != nil {
		return Variable{}, err
	}
	return *v, nil
}

// Set applies a user edit: it always advances the generation (even if
// the value is unchanged), promotes the variable to the most-recent
// stay tier (unless pinned, which is already stronger), and marks the
// variable edited-this-cycle. It returns the previous (value, stay) and
// new generation so the caller (the component facade) can push an Edit
// entry to the journal — the store itself never imports the journal
// package, keeping the dependency direction one-way.
func (s *Store) Set(id graph.VarID, v value.Value) (old value.Value, oldStay int64, generation int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	variable, err := s.lookup(id)
	if err != nil {
		return value.Nil, 0, 0, err
	}

	old = variable.value
	oldStay = variable.stay
	variable.value = v
	variable.generation++
	variable.edited = true
	variable.state = StateReady
	variable.err = nil

	if !variable.pinned {
		s.editSeq++
		variable.stay = s.editSeq
	}

	return old, oldStay, variable.generation, nil
}

// Restore reapplies an exact (value, stay) pair without treating it as
// a fresh most-recent edit — used by undo/redo (spec.md §8: "undo ∘
// set_variable(v, x) restores the previous (value, stay) of v (modulo
// generation, which always advances)"). The generation still advances,
// same as Set, so in-flight activations bound to the pre-restore
// generation are correctly treated as stale.
func (s *Store) Restore(id graph.VarID, v value.Value, stay int64) (generation int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	variable, err := s.lookup(id)
	if err != nil {
		return 0, err
	}

	variable.value = v
	if !variable.pinned {
		variable.stay = stay
	}
	variable.generation++
	variable.edited = true
	variable.state = StateReady
	variable.err = nil

	return variable.generation, nil
}

// Pin forces a variable to the strongest stay tier so the planner may
// never choose it as an output (spec.md §4.C).
func (s *Store) Pin(id graph.VarID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(id)
	if err != nil {
		return err
	}
	v.pinned = true
	return nil
}

// Unpin releases a pinned variable back to its last edit-sequence stay.
func (s *Store) Unpin(id graph.VarID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(id)
	if err != nil {
		return err
	}
	v.pinned = false
	return nil
}

// Pinned reports whether a variable is currently pinned.
func (s *Store) Pinned(id graph.VarID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[id]
	return ok && v.pinned
}

// SetEnabled toggles whether a variable may be read or written by
// planned methods (spec.md §4.A).
func (s *Store) SetEnabled(id graph.VarID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(id)
	if err != nil {
		return err
	}
	v.enabled = enabled
	return nil
}

// Enabled reports whether a variable currently accepts reads/writes.
func (s *Store) Enabled(id graph.VarID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[id]
	return ok && v.enabled
}

// Priority returns the total-order key the planner uses to rank
// variables (spec.md §3): higher means stronger stay. Pinned variables
// always outrank unpinned ones; among unpinned variables, more recent
// edits outrank older edits, which outrank never-edited variables.
func (s *Store) Priority(id graph.VarID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[id]
	if !ok {
		return s.defaultStay
	}
	if v.pinned {
		return pinnedStay
	}
	return v.stay
}

// Name returns a variable's declared name, or "" if unknown.
func (s *Store) Name(id graph.VarID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[id]
	if !ok {
		return ""
	}
	return v.Name
}

// Generation returns the current generation counter of a variable.
func (s *Store) Generation(id graph.VarID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[id]
	if !ok {
		return 0
	}
	return v.generation
}

// State returns the current event-visible state of a variable: its
// EventState, its value (meaningful when Ready), and its error
// (meaningful when Error).
func (s *Store) State(id graph.VarID) (EventState, value.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[id]
	if !ok {
		return StatePending, value.Nil, fmt.Errorf("%w: variable %d", graph.ErrNotFound, id)
	}
	return v.state, v.value, v.err
}

// MarkEdited flags a variable as edited-this-cycle without changing its
// value — used by TouchAll (spec.md §4.G) to force a full replan.
func (s *Store) MarkEdited(id graph.VarID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(id)
	if err != nil {
		return err
	}
	v.edited = true
	return nil
}

// AnyEdited reports whether any variable has been edited since the last
// ClearEdited call — the component facade uses this as the "dirty" flag
// that gates replanning on update/solve (spec.md §4.G).
func (s *Store) AnyEdited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vars {
		if v.edited {
			return true
		}
	}
	return false
}

// ClearEdited resets every variable's edited-this-cycle flag, called
// once a plan has been committed for execution.
func (s *Store) ClearEdited() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vars {
		v.edited = false
	}
}

// IDs returns every declared variable ID, in no particular order.
func (s *Store) IDs() []graph.VarID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]graph.VarID, 0, len(s.vars))
	for id := range s.vars {
		ids = append(ids, id)
	}
	return ids
}

// BeginActivation advances a variable's generation ahead of dispatching
// a method that will write it, and marks the variable Pending. The
// returned generation is the one the activation must present back to
// CompleteActivation/FailActivation — if a newer activation has since
// advanced the generation again, the completion is discarded as stale
// (spec.md §4.D).
func (s *Store) BeginActivation(id graph.VarID) (generation int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	v.generation++
	v.state = StatePending
	return v.generation, nil
}

// CompleteActivation applies a successful method result to a variable
// if, and only if, gen still matches the variable's current generation.
// It reports whether the result was applied (true) or discarded as
// stale (false) — discarded completions must not emit any event
// (spec.md §4.D, §4.E).
func (s *Store) CompleteActivation(id graph.VarID, gen int64, v value.Value) (applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	variable, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	if variable.generation != gen {
		return false, nil
	}
	variable.value = v
	variable.state = StateReady
	variable.err = nil
	return true, nil
}

// FailActivation transitions a variable to Error if gen still matches
// its current generation; otherwise the failure is discarded as stale.
func (s *Store) FailActivation(id graph.VarID, gen int64, cause error) (applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	variable, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	if variable.generation != gen {
		return false, nil
	}
	variable.state = StateError
	variable.err = cause
	return true, nil
}
