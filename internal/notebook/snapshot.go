package notebook

import (
	"encoding/json"
	"fmt"

	"github.com/starford/laguz/internal/cell"
	"github.com/starford/laguz/internal/models"
)

// Snapshot captures the notebook's complete state for persistence.
func (n *Notebook) Snapshot() models.NotebookSnapshot {
	snap := models.NotebookSnapshot{
		Metadata: n.Metadata(),
		Cells:    make([]models.CellSnapshot, 0, n.cells.Len()),
	}
	for _, c := range n.cells.Items() {
		snap.Cells = append(snap.Cells, c.Snapshot())
	}
	return snap
}

// Restore fully replaces the notebook's contents from a snapshot and
// clears the undo history: loading a document is not an undoable
// action. Existing cells are disposed.
func (n *Notebook) Restore(snap models.NotebookSnapshot) error {
	// Build replacement cells first so a malformed snapshot leaves the
	// notebook untouched.
	cells := make([]*cell.Cell, len(snap.Cells))
	for i, cs := range snap.Cells {
		c, err := cell.FromSnapshot(cs)
		if err != nil {
			return fmt.Errorf("notebook: restore cell %d: %w", i, err)
		}
		cells[i] = c
	}

	if count := n.cells.Len(); count > 0 {
		if _, err := n.cells.RemoveRange(0, count); err != nil {
			return err
		}
	}
	if err := n.cells.Insert(0, cells...); err != nil {
		return err
	}

	n.metadata = make(map[string]any, len(snap.Metadata))
	for k, v := range snap.Metadata {
		n.metadata[k] = v
	}
	n.hist.Clear()
	return nil
}

// Encode serializes a snapshot to the on-disk document format.
func Encode(snap models.NotebookSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("notebook: encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses the on-disk document format.
func Decode(data []byte) (models.NotebookSnapshot, error) {
	var snap models.NotebookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.NotebookSnapshot{}, fmt.Errorf("notebook: decode snapshot: %w", err)
	}
	return snap, nil
}
