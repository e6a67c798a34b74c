// Package history records notebook edits as invertible commands and
// maintains a linear undo/redo history over them.
package history

import "github.com/starford/laguz/internal/models"

// Target is the narrow mutation surface commands replay against. The
// notebook model implements it with raw (unrecorded) mutations so that
// undo and redo bypass Record.
type Target interface {
	InsertSnapshots(index int, cells []models.CellSnapshot) error
	RemoveRange(index, count int) error
	MoveRange(from, to, count int) error
	SetSourceAt(index int, source string) error
	SetMetadataValue(key string, value any, present bool) error
}

// Command is one recorded edit. Commands are immutable once recorded
// and carry the minimal data needed to invert themselves.
type Command interface {
	Apply(t Target) error
	Revert(t Target) error
}

// InsertCells records cells inserted at Index.
type InsertCells struct {
	Index int
	Cells []models.CellSnapshot
}

func (c InsertCells) Apply(t Target) error  { return t.InsertSnapshots(c.Index, c.Cells) }
func (c InsertCells) Revert(t Target) error { return t.RemoveRange(c.Index, len(c.Cells)) }

// RemoveCells records cells removed from Index, with full snapshots so
// the removal can be inverted.
type RemoveCells struct {
	Index int
	Cells []models.CellSnapshot
}

func (c RemoveCells) Apply(t Target) error  { return t.RemoveRange(c.Index, len(c.Cells)) }
func (c RemoveCells) Revert(t Target) error { return t.InsertSnapshots(c.Index, c.Cells) }

// MoveCells records a block move. Its inverse is the reverse move.
type MoveCells struct {
	From, To, Count int
}

func (c MoveCells) Apply(t Target) error  { return t.MoveRange(c.From, c.To, c.Count) }
func (c MoveCells) Revert(t Target) error { return t.MoveRange(c.To, c.From, c.Count) }

// SetSource records a cell source change.
type SetSource struct {
	Index    int
	Old, New string
}

func (c SetSource) Apply(t Target) error  { return t.SetSourceAt(c.Index, c.New) }
func (c SetSource) Revert(t Target) error { return t.SetSourceAt(c.Index, c.Old) }

// SetMetadata records a top-level metadata change. HadOld / HasNew
// distinguish deletion from storing a nil value.
type SetMetadata struct {
	Key      string
	Old, New any
	HadOld   bool
	HasNew   bool
}

func (c SetMetadata) Apply(t Target) error {
	return t.SetMetadataValue(c.Key, c.New, c.HasNew)
}

func (c SetMetadata) Revert(t Target) error {
	return t.SetMetadataValue(c.Key, c.Old, c.HadOld)
}

// Compound batches several commands into one undo unit. Revert runs the
// contained inverses in reverse order.
type Compound struct {
	Commands []Command
}

func (c Compound) Apply(t Target) error {
	for _, cmd := range c.Commands {
		if err := cmd.Apply(t); err != nil {
			return err
		}
	}
	return nil
}

func (c Compound) Revert(t Target) error {
	for i := len(c.Commands) - 1; i >= 0; i-- {
		if err := c.Commands[i].Revert(t); err != nil {
			return err
		}
	}
	return nil
}
