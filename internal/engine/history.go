package engine

import (
	"slices"

	"github.com/roach88/gridcore/internal/ops"
)

// HistoryEntry is one undoable step: the operations that reverse a
// committed transaction, in the order they must be applied.
type HistoryEntry struct {
	TransactionID string
	Cursor        string
	Operations    []ops.Operation
}

// History holds the undo and redo stacks.
//
// A committed user transaction pushes onto undo and clears redo. Undo pops
// from undo and its own reverse lands on redo; redo pops from redo and its
// reverse lands back on undo without clearing redo.
type History struct {
	undo     []HistoryEntry
	redo     []HistoryEntry
	maxDepth int
}

// NewHistory creates empty stacks. maxDepth bounds each stack; 0 means
// unbounded.
func NewHistory(maxDepth int) *History {
	return &History{maxDepth: maxDepth}
}

func (h *History) push(stack []HistoryEntry, e HistoryEntry) []HistoryEntry {
	stack = append(stack, e)
	if h.maxDepth > 0 && len(stack) > h.maxDepth {
		stack = slices.Delete(stack, 0, len(stack)-h.maxDepth)
	}
	return stack
}

// PushUndo adds an entry to the undo stack.
func (h *History) PushUndo(e HistoryEntry) {
	h.undo = h.push(h.undo, e)
}

// PushRedo adds an entry to the redo stack.
func (h *History) PushRedo(e HistoryEntry) {
	h.redo = h.push(h.redo, e)
}

// PopUndo removes the most recent undo entry.
func (h *History) PopUndo() (HistoryEntry, bool) {
	return pop(&h.undo)
}

// PopRedo removes the most recent redo entry.
func (h *History) PopRedo() (HistoryEntry, bool) {
	return pop(&h.redo)
}

func pop(stack *[]HistoryEntry) (HistoryEntry, bool) {
	n := len(*stack)
	if n == 0 {
		return HistoryEntry{}, false
	}
	e := (*stack)[n-1]
	*stack = (*stack)[:n-1]
	return e, true
}

// ClearRedo drops every redo entry.
func (h *History) ClearRedo() {
	h.redo = nil
}

// UndoDepth is the number of undo entries.
func (h *History) UndoDepth() int { return len(h.undo) }

// RedoDepth is the number of redo entries.
func (h *History) RedoDepth() int { return len(h.redo) }
