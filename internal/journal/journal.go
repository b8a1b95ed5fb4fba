// Package journal implements the edit journal (spec.md §4.F): an
// undo/redo stack of variable edits. Pin/unpin and enable/disable are
// never journaled — only set_variable edits are (spec.md §8 round-trip
// laws cover set_variable exclusively).
package journal

import (
	"sync"

	"github.com/corewave/dataflow/internal/graph"
	"github.com/corewave/dataflow/internal/value"
)

// Edit is one journaled set_variable call: enough to restore the
// variable's previous (value, stay) on undo, and to reapply the new
// (value, stay) on redo (spec.md §8: "undo ∘ set_variable(v, x) restores
// the previous (value, stay) of v, modulo generation").
type Edit struct {
	Variable graph.VarID
	Old      value.Value
	New      value.Value
	OldStay  int64
	NewStay  int64
}

// Journal is a bounded undo/redo stack for one component.
type Journal struct {
	mu       sync.Mutex
	undo     []Edit
	redo     []Edit
	maxDepth int
}

// New creates a journal capped at maxDepth entries; maxDepth <= 0 means
// unbounded (spec.md §6 `max_journal_entries`).
func New(maxDepth int) *Journal {
	return &Journal{maxDepth: maxDepth}
}

// Record pushes a new edit onto the undo stack and clears the redo
// stack, since a fresh edit invalidates whatever was undone before it
// (spec.md §8: "redo ∘ undo = identity ... until a new set_variable is
// issued"). If the journal is at capacity, the oldest entry is dropped.
func (j *Journal) Record(e Edit) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.undo = append(j.undo, e)
	j.redo = j.redo[:0]

	if j.maxDepth > 0 && len(j.undo) > j.maxDepth {
		j.undo = j.undo[len(j.undo)-j.maxDepth:]
	}
}

// Undo pops the most recent edit, pushes it to the redo stack, and
// returns it so the caller can restore the variable's previous value.
// The second return value is false when there is nothing to undo.
func (j *Journal) Undo() (Edit, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.undo) == 0 {
		return Edit{}, false
	}
	last := j.undo[len(j.undo)-1]
	j.undo = j.undo[:len(j.undo)-1]
	j.redo = append(j.redo, last)
	return last, true
}

// Redo pops the most recently undone edit, pushes it back to the undo
// stack, and returns it so the caller can reapply its new value.
func (j *Journal) Redo() (Edit, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.redo) == 0 {
		return Edit{}, false
	}
	last := j.redo[len(j.redo)-1]
	j.redo = j.redo[:len(j.redo)-1]
	j.undo = append(j.undo, last)
	return last, true
}

// CanUndo reports whether Undo would succeed.
func (j *Journal) CanUndo() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.undo) > 0
}

// CanRedo reports whether Redo would succeed.
func (j *Journal) CanRedo() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.redo) > 0
}

// Depth returns the current number of undoable entries.
func (j *Journal) Depth() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.undo)
}
