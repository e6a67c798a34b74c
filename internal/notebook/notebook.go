// Package notebook implements the notebook document model: an
// observable ordered sequence of cell models with undo/redo history and
// per-cell output trust. It is the single authoritative API for
// mutating notebook structure and the single event stream views
// subscribe to.
package notebook

import (
	"fmt"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/cell"
	"github.com/starford/laguz/internal/history"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/observable"
	"github.com/starford/laguz/internal/trust"
)

// EventType classifies notebook change events.
type EventType string

const (
	// EventCells is a structural change to the cell sequence.
	EventCells EventType = "cells"
	// EventCellContent is a content change inside one cell.
	EventCellContent EventType = "cell.content"
	// EventMetadata is a top-level metadata change.
	EventMetadata EventType = "metadata"
)

// Event is delivered synchronously to notebook observers. Structural
// events carry the sequence change descriptor; content events carry the
// cell, its current index, and the changed field.
type Event struct {
	Type   EventType
	Change observable.Change[*cell.Cell]
	Cell   *cell.Cell
	Index  int
	Field  string
	Key    string
}

// Notebook owns the cell sequence, the undo history, and the trust
// evaluator. One instance is exclusively owned by its opener; callers
// serialize their edit intents.
type Notebook struct {
	cells    *observable.Sequence[*cell.Cell]
	hist     *history.History
	eval     *trust.Evaluator
	metadata map[string]any

	observers map[int]func(Event)
	nextID    int
	cellSubs  map[*cell.Cell]int
	disposed  bool
}

// New creates an empty notebook. The notary provides the trust
// collaborator; historyLimit caps undo depth (<=0 uses the default).
func New(notary trust.Notary, historyLimit int) *Notebook {
	n := &Notebook{
		cells:     observable.New[*cell.Cell](),
		hist:      history.New(historyLimit),
		eval:      trust.NewEvaluator(notary),
		metadata:  make(map[string]any),
		observers: make(map[int]func(Event)),
		cellSubs:  make(map[*cell.Cell]int),
	}
	n.cells.Observe(func(ch observable.Change[*cell.Cell]) {
		// Hook/unhook content observers before fan-out so content events
		// from freshly inserted cells reach notebook observers.
		for _, c := range ch.Old {
			n.unhookCell(c)
		}
		if ch.Op != observable.OpMove {
			for _, c := range ch.New {
				n.hookCell(c)
			}
		}
		n.emit(Event{Type: EventCells, Change: ch})
	})
	return n
}

// CellCount returns the number of cells.
func (n *Notebook) CellCount() int { return n.cells.Len() }

// Cell returns the cell at index i.
func (n *Notebook) Cell(i int) (*cell.Cell, error) {
	return n.cells.Get(i)
}

// Cells returns a copy of the current cell list.
func (n *Notebook) Cells() []*cell.Cell { return n.cells.Items() }

// Metadata returns a copy of the top-level metadata map.
func (n *Notebook) Metadata() map[string]any {
	out := make(map[string]any, len(n.metadata))
	for k, v := range n.metadata {
		out[k] = v
	}
	return out
}

// InsertCell creates a cell of the given kind at index i. The edit is
// validated, recorded, then applied; a validation failure never touches
// history.
func (n *Notebook) InsertCell(i int, kind cell.Kind, source string) error {
	if !kind.Valid() {
		return fmt.Errorf("notebook: insert cell of kind %q: %w", kind, apperr.ErrInvalidOperation)
	}
	if i < 0 || i > n.cells.Len() {
		return fmt.Errorf("notebook: insert at %d with %d cells: %w", i, n.cells.Len(), apperr.ErrOutOfRange)
	}
	snap := models.CellSnapshot{Kind: string(kind), Source: source}
	cmd := history.InsertCells{Index: i, Cells: []models.CellSnapshot{snap}}
	n.hist.Record(cmd)
	return cmd.Apply(n.editor())
}

// RemoveCells removes count cells starting at index i.
func (n *Notebook) RemoveCells(i, count int) error {
	if count < 0 || i < 0 || i+count > n.cells.Len() {
		return fmt.Errorf("notebook: remove [%d,%d) with %d cells: %w", i, i+count, n.cells.Len(), apperr.ErrOutOfRange)
	}
	if count == 0 {
		return nil
	}
	snaps := make([]models.CellSnapshot, count)
	for j := 0; j < count; j++ {
		c, _ := n.cells.Get(i + j)
		snaps[j] = c.Snapshot()
	}
	cmd := history.RemoveCells{Index: i, Cells: snaps}
	n.hist.Record(cmd)
	return cmd.Apply(n.editor())
}

// MoveCell moves a single cell from index from to index to.
func (n *Notebook) MoveCell(from, to int) error {
	return n.MoveCells(from, to, 1)
}

// MoveCells moves the block of count cells starting at from so it
// begins at index to.
func (n *Notebook) MoveCells(from, to, count int) error {
	if count < 0 || from < 0 || from+count > n.cells.Len() || to < 0 || to > n.cells.Len()-count {
		return fmt.Errorf("notebook: move %d cells from %d to %d with %d cells: %w", count, from, to, n.cells.Len(), apperr.ErrOutOfRange)
	}
	if count == 0 || from == to {
		return nil
	}
	cmd := history.MoveCells{From: from, To: to, Count: count}
	n.hist.Record(cmd)
	return cmd.Apply(n.editor())
}

// SetCellSource replaces the source of the cell at index i as a
// recorded, undoable edit.
func (n *Notebook) SetCellSource(i int, source string) error {
	c, err := n.cells.Get(i)
	if err != nil {
		return err
	}
	cmd := history.SetSource{Index: i, Old: c.Source(), New: source}
	n.hist.Record(cmd)
	return cmd.Apply(n.editor())
}

// SetMetadata sets a top-level metadata key as a recorded edit.
// Metadata changes follow the same record-then-apply discipline but do
// not affect cell trust.
func (n *Notebook) SetMetadata(key string, value any) error {
	old, had := n.metadata[key]
	cmd := history.SetMetadata{Key: key, Old: old, New: value, HadOld: had, HasNew: true}
	n.hist.Record(cmd)
	return cmd.Apply(n.editor())
}

// DeleteMetadata removes a top-level metadata key as a recorded edit.
func (n *Notebook) DeleteMetadata(key string) error {
	old, had := n.metadata[key]
	if !had {
		return nil
	}
	cmd := history.SetMetadata{Key: key, Old: old, HadOld: true}
	n.hist.Record(cmd)
	return cmd.Apply(n.editor())
}

// ConvertCell changes the kind of the cell at index i by replacing the
// cell: the old cell is disposed and a new one of the target kind takes
// its place with the same source. Output and execution state do not
// carry over. The replacement is one undo unit.
func (n *Notebook) ConvertCell(i int, kind cell.Kind) error {
	c, err := n.cells.Get(i)
	if err != nil {
		return err
	}
	if !kind.Valid() {
		return fmt.Errorf("notebook: convert to kind %q: %w", kind, apperr.ErrInvalidOperation)
	}
	if c.Kind() == kind {
		return nil
	}
	source := c.Source()
	return n.Compound(func() error {
		if err := n.RemoveCells(i, 1); err != nil {
			return err
		}
		return n.InsertCell(i, kind, source)
	})
}

// Compound runs fn as one undo unit. If fn fails, every edit it made is
// rolled back and nothing is recorded; the model and the history stay
// mutually consistent on every exit path.
func (n *Notebook) Compound(fn func() error) error {
	n.hist.BeginCompound()
	if err := fn(); err != nil {
		if rbErr := n.hist.RollbackCompound(n.editor()); rbErr != nil {
			return fmt.Errorf("notebook: rollback after %v: %w", err, rbErr)
		}
		return err
	}
	n.hist.CommitCompound()
	return nil
}

// Undo reverts the most recent recorded edit.
func (n *Notebook) Undo() error { return n.hist.Undo(n.editor()) }

// Redo reapplies the most recently undone edit.
func (n *Notebook) Redo() error { return n.hist.Redo(n.editor()) }

// CanUndo reports whether an undo is available.
func (n *Notebook) CanUndo() bool { return n.hist.CanUndo() }

// CanRedo reports whether a redo is available.
func (n *Notebook) CanRedo() bool { return n.hist.CanRedo() }

// IsTrusted reports the trust classification of the cell at index i.
func (n *Notebook) IsTrusted(i int) (bool, error) {
	c, err := n.cells.Get(i)
	if err != nil {
		return false, err
	}
	return n.eval.IsTrusted(c), nil
}

// SignAll marks every cell trusted by re-signing its current content.
// This is the explicit trust operation, e.g. after local execution.
func (n *Notebook) SignAll() {
	for _, c := range n.cells.Items() {
		n.eval.Mark(c)
	}
}

// SignCell marks the single cell at index i trusted.
func (n *Notebook) SignCell(i int) error {
	c, err := n.cells.Get(i)
	if err != nil {
		return err
	}
	n.eval.Mark(c)
	return nil
}

// Observe registers a notebook event observer.
func (n *Notebook) Observe(fn func(Event)) int {
	if n.disposed {
		return -1
	}
	id := n.nextID
	n.nextID++
	n.observers[id] = fn
	return id
}

// Unobserve removes an observer.
func (n *Notebook) Unobserve(handle int) {
	delete(n.observers, handle)
}

// Dispose detaches all observers and disposes every cell.
func (n *Notebook) Dispose() {
	n.disposed = true
	n.observers = make(map[int]func(Event))
	for _, c := range n.cells.Items() {
		c.Dispose()
	}
	n.cells.Dispose()
}

func (n *Notebook) emit(ev Event) {
	if n.disposed {
		return
	}
	snapshot := make([]func(Event), 0, len(n.observers))
	for _, fn := range n.observers {
		snapshot = append(snapshot, fn)
	}
	for _, fn := range snapshot {
		fn(ev)
	}
}

func (n *Notebook) hookCell(c *cell.Cell) {
	if _, ok := n.cellSubs[c]; ok {
		return
	}
	n.cellSubs[c] = c.Observe(func(cc cell.ContentChange) {
		n.emit(Event{
			Type:  EventCellContent,
			Cell:  cc.Cell,
			Index: n.indexOf(cc.Cell),
			Field: cc.Field,
		})
	})
}

func (n *Notebook) unhookCell(c *cell.Cell) {
	if handle, ok := n.cellSubs[c]; ok {
		c.Unobserve(handle)
		delete(n.cellSubs, c)
	}
	n.eval.Forget(c)
	c.Dispose()
}

func (n *Notebook) indexOf(target *cell.Cell) int {
	for i, c := range n.cells.Items() {
		if c == target {
			return i
		}
	}
	return -1
}
