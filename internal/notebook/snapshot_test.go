package notebook

import (
	"errors"
	"testing"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/cell"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/trust"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	n := testNotebook(t, 10, "print(1)")
	_ = n.InsertCell(1, cell.Markdown, "# notes")
	_ = n.SetMetadata("kernel", "python3")

	c, _ := n.Cell(0)
	tok, _ := c.BeginExecution()
	_ = c.AppendOutput(models.Output{Kind: models.OutputStream, Name: "stdout", Text: "1\n"}, tok)
	_ = c.CompleteExecution(1, tok)
	n.SignAll()

	snap := n.Snapshot()

	restored := New(trust.NewHMACNotary([]byte("test-secret")), 10)
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	wantSources(t, restored, "print(1)", "# notes")
	rc, _ := restored.Cell(0)
	if got := rc.Outputs(); len(got) != 1 || got[0].Text != "1\n" {
		t.Errorf("outputs = %v", got)
	}
	if count, ok := rc.ExecutionCount(); !ok || count != 1 {
		t.Errorf("execution count = %d, %v", count, ok)
	}
	if got := restored.Metadata()["kernel"]; got != "python3" {
		t.Errorf("kernel = %v", got)
	}
	// Trust is recomputed from the persisted tags, not copied.
	if trusted, _ := restored.IsTrusted(0); !trusted {
		t.Error("trust lost across round-trip")
	}
}

func TestRestoreClearsHistory(t *testing.T) {
	n := testNotebook(t, 10, "a", "b")
	if !n.CanUndo() {
		t.Fatal("expected undoable edits")
	}
	if err := n.Restore(models.NotebookSnapshot{Cells: []models.CellSnapshot{{Kind: "code", Source: "x"}}}); err != nil {
		t.Fatal(err)
	}
	wantSources(t, n, "x")
	if err := n.Undo(); !errors.Is(err, apperr.ErrEmptyHistory) {
		t.Errorf("err = %v, want ErrEmptyHistory", err)
	}
}

func TestRestoreMalformedSnapshotLeavesModelUntouched(t *testing.T) {
	n := testNotebook(t, 10, "a")
	bad := models.NotebookSnapshot{Cells: []models.CellSnapshot{{Kind: "widget", Source: "x"}}}
	if err := n.Restore(bad); err == nil {
		t.Fatal("expected error for unknown cell kind")
	}
	wantSources(t, n, "a")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	count := 3
	snap := models.NotebookSnapshot{
		Metadata: map[string]any{"kernel": "python3"},
		Cells: []models.CellSnapshot{
			{Kind: "code", Source: "print(1)", ExecutionCount: &count,
				Outputs: []models.Output{{Kind: models.OutputStream, Name: "stdout", Text: "1\n"}}},
			{Kind: "markdown", Source: "# hi"},
		},
	}
	data, err := Encode(snap)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Cells) != 2 || got.Cells[0].Source != "print(1)" || got.Cells[1].Kind != "markdown" {
		t.Errorf("cells = %+v", got.Cells)
	}
	if got.Cells[0].ExecutionCount == nil || *got.Cells[0].ExecutionCount != 3 {
		t.Errorf("execution count = %v", got.Cells[0].ExecutionCount)
	}
	if got.Metadata["kernel"] != "python3" {
		t.Errorf("metadata = %v", got.Metadata)
	}
}

func TestDecodeRejectsInvalidJSON(t *testing.T) {
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Error("expected decode error")
	}
}
