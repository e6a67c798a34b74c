package cell

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

func codeCell(t *testing.T, source string) *Cell {
	t.Helper()
	c, err := New(Code, source)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsUnknownKind(t *testing.T) {
	if _, err := New(Kind("widget"), ""); !errors.Is(err, apperr.ErrInvalidOperation) {
		t.Errorf("err = %v, want ErrInvalidOperation", err)
	}
}

func TestSetSourceIdenticalStillNotifies(t *testing.T) {
	c := codeCell(t, "x = 1")
	rev := c.Revision()
	events := 0
	c.Observe(func(cc ContentChange) {
		if cc.Field != "source" {
			t.Errorf("field = %q", cc.Field)
		}
		events++
	})
	c.SetSource("x = 1")
	if events != 1 {
		t.Errorf("events = %d, want exactly 1 for idempotent write", events)
	}
	if c.Revision() == rev {
		t.Error("revision did not advance, trust cache would stay fresh")
	}
}

func TestAppendOutputNonCodeFails(t *testing.T) {
	c, err := New(Markdown, "# hi")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = c.AppendOutput(models.Output{Kind: models.OutputStream, Name: "stdout", Text: "x"}, 1)
	if !errors.Is(err, apperr.ErrInvalidOperation) {
		t.Errorf("err = %v, want ErrInvalidOperation", err)
	}
	if _, err := c.BeginExecution(); !errors.Is(err, apperr.ErrInvalidOperation) {
		t.Errorf("BeginExecution err = %v, want ErrInvalidOperation", err)
	}
}

func TestStaleTokenOutputDropped(t *testing.T) {
	c := codeCell(t, "print(1)")
	tok1, err := c.BeginExecution()
	if err != nil {
		t.Fatalf("BeginExecution: %v", err)
	}
	tok2, _ := c.BeginExecution()
	if tok2 <= tok1 {
		t.Fatalf("tokens not monotonic: %d then %d", tok1, tok2)
	}

	// Output from the superseded run must be silently discarded.
	if err := c.AppendOutput(models.Output{Kind: models.OutputStream, Text: "old"}, tok1); err != nil {
		t.Fatalf("stale append returned error: %v", err)
	}
	if len(c.Outputs()) != 0 {
		t.Errorf("stale output was appended: %v", c.Outputs())
	}

	// Stale completion must not alter the execution count.
	if err := c.CompleteExecution(7, tok1); err != nil {
		t.Fatalf("stale complete: %v", err)
	}
	if _, ok := c.ExecutionCount(); ok {
		t.Error("stale completion set execution count")
	}

	// Current-token results apply.
	_ = c.AppendOutput(models.Output{Kind: models.OutputStream, Text: "new"}, tok2)
	_ = c.CompleteExecution(3, tok2)
	if got := c.Outputs(); len(got) != 1 || got[0].Text != "new" {
		t.Errorf("outputs = %v", got)
	}
	if n, ok := c.ExecutionCount(); !ok || n != 3 {
		t.Errorf("execution count = %d, %v", n, ok)
	}
}

func TestBeginExecutionClearsOutputs(t *testing.T) {
	c := codeCell(t, "print(1)")
	tok, _ := c.BeginExecution()
	_ = c.AppendOutput(models.Output{Kind: models.OutputStream, Text: "1\n"}, tok)
	if len(c.Outputs()) != 1 {
		t.Fatalf("outputs = %v", c.Outputs())
	}
	_, _ = c.BeginExecution()
	if len(c.Outputs()) != 0 {
		t.Errorf("outputs not cleared on re-execution: %v", c.Outputs())
	}
}

func TestOutputChangeEmitsContentEvent(t *testing.T) {
	c := codeCell(t, "")
	var fields []string
	c.Observe(func(cc ContentChange) { fields = append(fields, cc.Field) })
	tok, _ := c.BeginExecution()
	_ = c.AppendOutput(models.Output{Kind: models.OutputStream, Text: "x"}, tok)
	c.ClearOutputs()
	want := []string{"outputs", "outputs"}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("fields = %v, want %v", fields, want)
	}
}

func TestClearOutputsNonCodeIsNoop(t *testing.T) {
	c, _ := New(Raw, "plain")
	c.ClearOutputs()
	if c.Outputs() != nil {
		t.Errorf("raw cell has outputs: %v", c.Outputs())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := codeCell(t, "print('hi')")
	tok, _ := c.BeginExecution()
	_ = c.AppendOutput(models.Output{Kind: models.OutputStream, Name: "stdout", Text: "hi\n"}, tok)
	_ = c.CompleteExecution(2, tok)
	c.SetSignature("hmac-sha256:deadbeef")

	snap := c.Snapshot()
	restored, err := FromSnapshot(snap)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if restored.Kind() != Code || restored.Source() != "print('hi')" {
		t.Errorf("kind/source = %v %q", restored.Kind(), restored.Source())
	}
	if n, ok := restored.ExecutionCount(); !ok || n != 2 {
		t.Errorf("execution count = %d, %v", n, ok)
	}
	if got := restored.Outputs(); len(got) != 1 || got[0].Text != "hi\n" {
		t.Errorf("outputs = %v", got)
	}
	if restored.Signature() != "hmac-sha256:deadbeef" {
		t.Errorf("signature = %q", restored.Signature())
	}
	// Execution tokens are session state and start over.
	if restored.Token() != 0 {
		t.Errorf("token = %d, want 0", restored.Token())
	}
}

func TestDisposeStopsNotifications(t *testing.T) {
	c := codeCell(t, "")
	calls := 0
	c.Observe(func(ContentChange) { calls++ })
	c.Dispose()
	c.SetSource("changed")
	if calls != 0 {
		t.Errorf("observer called after dispose")
	}
}
