package history

import (
	"errors"
	"fmt"
	"testing"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

// fakeTarget is a minimal in-memory cell list for replaying commands.
type fakeTarget struct {
	cells    []models.CellSnapshot
	metadata map[string]any
	failNext bool
}

func newFakeTarget(sources ...string) *fakeTarget {
	t := &fakeTarget{metadata: make(map[string]any)}
	for _, s := range sources {
		t.cells = append(t.cells, models.CellSnapshot{Kind: "code", Source: s})
	}
	return t
}

func (f *fakeTarget) sources() []string {
	out := make([]string, len(f.cells))
	for i, c := range f.cells {
		out[i] = c.Source
	}
	return out
}

func (f *fakeTarget) InsertSnapshots(index int, cells []models.CellSnapshot) error {
	if f.failNext {
		f.failNext = false
		return fmt.Errorf("injected failure")
	}
	if index < 0 || index > len(f.cells) {
		return apperr.ErrOutOfRange
	}
	f.cells = append(f.cells[:index], append(append([]models.CellSnapshot{}, cells...), f.cells[index:]...)...)
	return nil
}

func (f *fakeTarget) RemoveRange(index, count int) error {
	if index < 0 || count < 0 || index+count > len(f.cells) {
		return apperr.ErrOutOfRange
	}
	f.cells = append(f.cells[:index], f.cells[index+count:]...)
	return nil
}

func (f *fakeTarget) MoveRange(from, to, count int) error {
	if from < 0 || count < 0 || from+count > len(f.cells) || to < 0 || to > len(f.cells)-count {
		return apperr.ErrOutOfRange
	}
	block := append([]models.CellSnapshot{}, f.cells[from:from+count]...)
	rest := append(f.cells[:from], f.cells[from+count:]...)
	f.cells = append(rest[:to], append(block, rest[to:]...)...)
	return nil
}

func (f *fakeTarget) SetSourceAt(index int, source string) error {
	if index < 0 || index >= len(f.cells) {
		return apperr.ErrOutOfRange
	}
	f.cells[index].Source = source
	return nil
}

func (f *fakeTarget) SetMetadataValue(key string, value any, present bool) error {
	if present {
		f.metadata[key] = value
	} else {
		delete(f.metadata, key)
	}
	return nil
}

func snap(source string) models.CellSnapshot {
	return models.CellSnapshot{Kind: "code", Source: source}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestUndoRedoSingleOperation(t *testing.T) {
	ft := newFakeTarget("a", "b")
	h := New(10)

	cmd := InsertCells{Index: 1, Cells: []models.CellSnapshot{snap("m")}}
	if err := cmd.Apply(ft); err != nil {
		t.Fatal(err)
	}
	h.Record(cmd)
	if !equal(ft.sources(), []string{"a", "m", "b"}) {
		t.Fatalf("after apply: %v", ft.sources())
	}

	if err := h.Undo(ft); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if !equal(ft.sources(), []string{"a", "b"}) {
		t.Errorf("after undo: %v", ft.sources())
	}

	if err := h.Redo(ft); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if !equal(ft.sources(), []string{"a", "m", "b"}) {
		t.Errorf("after redo: %v", ft.sources())
	}
}

func TestUndoEmptyHistory(t *testing.T) {
	h := New(10)
	if err := h.Undo(newFakeTarget()); !errors.Is(err, apperr.ErrEmptyHistory) {
		t.Errorf("err = %v, want ErrEmptyHistory", err)
	}
	if err := h.Redo(newFakeTarget()); !errors.Is(err, apperr.ErrEmptyHistory) {
		t.Errorf("redo err = %v, want ErrEmptyHistory", err)
	}
}

func TestDepthCapEvictsOldest(t *testing.T) {
	ft := newFakeTarget()
	h := New(3)
	for i := 0; i < 5; i++ {
		cmd := InsertCells{Index: i, Cells: []models.CellSnapshot{snap(fmt.Sprintf("c%d", i))}}
		if err := cmd.Apply(ft); err != nil {
			t.Fatal(err)
		}
		h.Record(cmd)
	}

	// Only the newest 3 edits can be undone.
	for i := 0; i < 3; i++ {
		if err := h.Undo(ft); err != nil {
			t.Fatalf("undo %d: %v", i, err)
		}
	}
	if err := h.Undo(ft); !errors.Is(err, apperr.ErrEmptyHistory) {
		t.Errorf("4th undo err = %v, want ErrEmptyHistory", err)
	}
	if !equal(ft.sources(), []string{"c0", "c1"}) {
		t.Errorf("remaining = %v", ft.sources())
	}
}

func TestNewEditClearsRedoBranch(t *testing.T) {
	ft := newFakeTarget()
	h := New(10)

	apply := func(cmd Command) {
		if err := cmd.Apply(ft); err != nil {
			t.Fatal(err)
		}
		h.Record(cmd)
	}

	apply(InsertCells{Index: 0, Cells: []models.CellSnapshot{snap("a")}})
	apply(InsertCells{Index: 1, Cells: []models.CellSnapshot{snap("b")}})
	if err := h.Undo(ft); err != nil {
		t.Fatal(err)
	}
	if !h.CanRedo() {
		t.Fatal("expected redo available after undo")
	}

	apply(InsertCells{Index: 1, Cells: []models.CellSnapshot{snap("c")}})
	if err := h.Redo(ft); !errors.Is(err, apperr.ErrEmptyHistory) {
		t.Errorf("redo after new edit: err = %v, want ErrEmptyHistory", err)
	}
}

func TestMoveCommandInverse(t *testing.T) {
	ft := newFakeTarget("A", "B", "C")
	h := New(10)

	cmd := MoveCells{From: 0, To: 2, Count: 1}
	if err := cmd.Apply(ft); err != nil {
		t.Fatal(err)
	}
	h.Record(cmd)
	if !equal(ft.sources(), []string{"B", "C", "A"}) {
		t.Fatalf("after move: %v", ft.sources())
	}
	if err := h.Undo(ft); err != nil {
		t.Fatal(err)
	}
	if !equal(ft.sources(), []string{"A", "B", "C"}) {
		t.Errorf("after undo: %v", ft.sources())
	}
}

func TestSetMetadataInverse(t *testing.T) {
	ft := newFakeTarget()
	h := New(10)

	cmd := SetMetadata{Key: "kernel", New: "python3", HasNew: true}
	_ = cmd.Apply(ft)
	h.Record(cmd)
	if ft.metadata["kernel"] != "python3" {
		t.Fatalf("metadata = %v", ft.metadata)
	}
	if err := h.Undo(ft); err != nil {
		t.Fatal(err)
	}
	if _, ok := ft.metadata["kernel"]; ok {
		t.Errorf("metadata key survived undo: %v", ft.metadata)
	}
}

func TestCompoundUndoneAsOneUnit(t *testing.T) {
	ft := newFakeTarget("a", "b")
	h := New(10)

	// Paste = remove selection + insert clipboard, one undo unit.
	h.BeginCompound()
	rm := RemoveCells{Index: 0, Cells: []models.CellSnapshot{snap("a")}}
	_ = rm.Apply(ft)
	h.Record(rm)
	ins := InsertCells{Index: 0, Cells: []models.CellSnapshot{snap("x"), snap("y")}}
	_ = ins.Apply(ft)
	h.Record(ins)
	h.CommitCompound()

	if !equal(ft.sources(), []string{"x", "y", "b"}) {
		t.Fatalf("after compound: %v", ft.sources())
	}
	if err := h.Undo(ft); err != nil {
		t.Fatal(err)
	}
	if !equal(ft.sources(), []string{"a", "b"}) {
		t.Errorf("after single undo of compound: %v", ft.sources())
	}
	if err := h.Redo(ft); err != nil {
		t.Fatal(err)
	}
	if !equal(ft.sources(), []string{"x", "y", "b"}) {
		t.Errorf("after redo of compound: %v", ft.sources())
	}
}

func TestRollbackCompoundRestoresTarget(t *testing.T) {
	ft := newFakeTarget("a", "b")
	h := New(10)

	h.BeginCompound()
	rm := RemoveCells{Index: 1, Cells: []models.CellSnapshot{snap("b")}}
	_ = rm.Apply(ft)
	h.Record(rm)
	// Second step fails; the scope must roll the first step back.
	if err := h.RollbackCompound(ft); err != nil {
		t.Fatalf("RollbackCompound: %v", err)
	}

	if !equal(ft.sources(), []string{"a", "b"}) {
		t.Errorf("target not restored: %v", ft.sources())
	}
	if h.CanUndo() {
		t.Error("rolled-back scope was recorded")
	}
}

func TestEmptyCompoundRecordsNothing(t *testing.T) {
	h := New(10)
	h.BeginCompound()
	h.CommitCompound()
	if h.CanUndo() {
		t.Error("empty compound recorded")
	}
}

func TestUndoInsideOpenScopeRejected(t *testing.T) {
	h := New(10)
	cmd := InsertCells{Index: 0, Cells: []models.CellSnapshot{snap("a")}}
	ft := newFakeTarget()
	_ = cmd.Apply(ft)
	h.Record(cmd)

	h.BeginCompound()
	if err := h.Undo(ft); !errors.Is(err, apperr.ErrInvalidOperation) {
		t.Errorf("err = %v, want ErrInvalidOperation", err)
	}
	h.CommitCompound()
}

func TestNestedCompoundJoinsOuterScope(t *testing.T) {
	ft := newFakeTarget()
	h := New(10)

	h.BeginCompound()
	a := InsertCells{Index: 0, Cells: []models.CellSnapshot{snap("a")}}
	_ = a.Apply(ft)
	h.Record(a)

	h.BeginCompound()
	b := InsertCells{Index: 1, Cells: []models.CellSnapshot{snap("b")}}
	_ = b.Apply(ft)
	h.Record(b)
	h.CommitCompound()

	h.CommitCompound()

	if err := h.Undo(ft); err != nil {
		t.Fatal(err)
	}
	if len(ft.sources()) != 0 {
		t.Errorf("nested compound not undone as one unit: %v", ft.sources())
	}
}
