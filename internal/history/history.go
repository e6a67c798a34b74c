package history

import (
	"fmt"

	"github.com/starford/laguz/internal/apperr"
)

// DefaultLimit is the undo depth used when no cap is configured.
const DefaultLimit = 50

// History is a two-stack linear undo/redo model. Membership is the only
// per-command state: commands on the undo stack have been applied,
// commands on the redo stack are available to reapply.
type History struct {
	limit   int
	undo    []Command
	redo    []Command
	pending []*Compound // open compound scopes, innermost last
}

// New creates a history capped at limit applied commands. A
// non-positive limit falls back to DefaultLimit.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Record logs an already-applied command. It clears the redo stack (a
// new edit discards any branch left by prior undos) and silently evicts
// the oldest entry once the depth cap is exceeded. Inside a compound
// scope the command joins the scope instead.
func (h *History) Record(cmd Command) {
	if n := len(h.pending); n > 0 {
		scope := h.pending[n-1]
		scope.Commands = append(scope.Commands, cmd)
		return
	}
	h.undo = append(h.undo, cmd)
	h.redo = nil
	if len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
}

// Undo pops the most recent command, applies its inverse to t, and
// moves it to the redo stack. Fails with ErrEmptyHistory when there is
// nothing to undo.
func (h *History) Undo(t Target) error {
	if len(h.pending) > 0 {
		return fmt.Errorf("history: undo inside open compound scope: %w", apperr.ErrInvalidOperation)
	}
	if len(h.undo) == 0 {
		return fmt.Errorf("history: undo: %w", apperr.ErrEmptyHistory)
	}
	cmd := h.undo[len(h.undo)-1]
	if err := cmd.Revert(t); err != nil {
		return err
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cmd)
	return nil
}

// Redo reapplies the most recently undone command and moves it back to
// the undo stack. Fails with ErrEmptyHistory when the redo stack is
// empty.
func (h *History) Redo(t Target) error {
	if len(h.pending) > 0 {
		return fmt.Errorf("history: redo inside open compound scope: %w", apperr.ErrInvalidOperation)
	}
	if len(h.redo) == 0 {
		return fmt.Errorf("history: redo: %w", apperr.ErrEmptyHistory)
	}
	cmd := h.redo[len(h.redo)-1]
	if err := cmd.Apply(t); err != nil {
		return err
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, cmd)
	return nil
}

// CanUndo reports whether Undo would act.
func (h *History) CanUndo() bool { return len(h.undo) > 0 && len(h.pending) == 0 }

// CanRedo reports whether Redo would act.
func (h *History) CanRedo() bool { return len(h.redo) > 0 && len(h.pending) == 0 }

// Clear discards both stacks. Loading a document is not undoable.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
	h.pending = nil
}

// BeginCompound opens a scope that batches subsequent Record calls into
// one undo unit. Scopes nest; each Begin must be paired with exactly
// one Commit or Rollback on every exit path.
func (h *History) BeginCompound() {
	h.pending = append(h.pending, &Compound{})
}

// CommitCompound closes the innermost scope and records it (empty
// scopes record nothing).
func (h *History) CommitCompound() {
	n := len(h.pending)
	if n == 0 {
		return
	}
	scope := h.pending[n-1]
	h.pending = h.pending[:n-1]
	if len(scope.Commands) == 0 {
		return
	}
	h.Record(*scope)
}

// RollbackCompound closes the innermost scope, reverting its commands
// against t in reverse order so the target returns to its pre-scope
// state. Nothing is recorded.
func (h *History) RollbackCompound(t Target) error {
	n := len(h.pending)
	if n == 0 {
		return nil
	}
	scope := h.pending[n-1]
	h.pending = h.pending[:n-1]
	return scope.Revert(t)
}
