package kernel

import (
	"context"
	"strings"
	"testing"

	"github.com/starford/laguz/internal/models"
)

func collect(t *testing.T, outputs <-chan models.Output, done <-chan Result) ([]models.Output, Result) {
	t.Helper()
	var got []models.Output
	for o := range outputs {
		got = append(got, o)
	}
	return got, <-done
}

func TestCommandExecutorStdout(t *testing.T) {
	e := NewCommandExecutor("sh")
	outputs, done := e.Execute(context.Background(), "echo hello", 1)
	got, res := collect(t, outputs, done)
	if res.Err != nil {
		t.Fatalf("result err: %v", res.Err)
	}
	if res.ExecutionCount != 1 {
		t.Errorf("execution count = %d", res.ExecutionCount)
	}
	if len(got) != 1 || got[0].Name != "stdout" || !strings.Contains(got[0].Text, "hello") {
		t.Errorf("outputs = %v", got)
	}
}

func TestCommandExecutorCountsAreMonotonic(t *testing.T) {
	e := NewCommandExecutor("sh")
	_, done1 := e.Execute(context.Background(), "true", 1)
	res1 := <-done1
	_, done2 := e.Execute(context.Background(), "true", 2)
	res2 := <-done2
	if res2.ExecutionCount <= res1.ExecutionCount {
		t.Errorf("counts = %d then %d", res1.ExecutionCount, res2.ExecutionCount)
	}
}

func TestCommandExecutorNonZeroExit(t *testing.T) {
	e := NewCommandExecutor("sh")
	outputs, done := e.Execute(context.Background(), "echo oops >&2; exit 3", 1)
	got, res := collect(t, outputs, done)
	if res.Err != nil {
		t.Fatalf("exit status should surface as an error output, got result err %v", res.Err)
	}
	var sawStderr, sawError bool
	for _, o := range got {
		if o.Kind == models.OutputStream && o.Name == "stderr" {
			sawStderr = true
		}
		if o.Kind == models.OutputError {
			sawError = true
		}
	}
	if !sawStderr || !sawError {
		t.Errorf("outputs = %v, want stderr stream and error output", got)
	}
}
