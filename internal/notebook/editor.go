package notebook

import (
	"github.com/starford/laguz/internal/cell"
	"github.com/starford/laguz/internal/history"
	"github.com/starford/laguz/internal/models"
)

// editor adapts the notebook's raw (unrecorded) mutations to the
// history.Target interface. Commands replay through it during apply,
// undo, redo, and compound rollback without touching the history.
type editor struct {
	nb *Notebook
}

func (n *Notebook) editor() editor { return editor{nb: n} }

var _ history.Target = editor{}

func (e editor) InsertSnapshots(index int, snaps []models.CellSnapshot) error {
	cells := make([]*cell.Cell, len(snaps))
	for i, snap := range snaps {
		c, err := cell.FromSnapshot(snap)
		if err != nil {
			return err
		}
		cells[i] = c
	}
	return e.nb.cells.Insert(index, cells...)
}

func (e editor) RemoveRange(index, count int) error {
	_, err := e.nb.cells.RemoveRange(index, count)
	return err
}

func (e editor) MoveRange(from, to, count int) error {
	return e.nb.cells.Move(from, to, count)
}

func (e editor) SetSourceAt(index int, source string) error {
	c, err := e.nb.cells.Get(index)
	if err != nil {
		return err
	}
	c.SetSource(source)
	return nil
}

func (e editor) SetMetadataValue(key string, value any, present bool) error {
	if present {
		e.nb.metadata[key] = value
	} else {
		delete(e.nb.metadata, key)
	}
	e.nb.emit(Event{Type: EventMetadata, Key: key})
	return nil
}
