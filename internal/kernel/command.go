package kernel

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/starford/laguz/internal/models"
)

// CommandExecutor implements Executor by piping cell source to a local
// interpreter subprocess (e.g. "python3" or "sh"). Stdout becomes a
// stream output, stderr a second one, and a non-zero exit an error
// output.
type CommandExecutor struct {
	command string
	args    []string
	counter int
}

// NewCommandExecutor creates an executor running the given interpreter.
func NewCommandExecutor(command string, args ...string) *CommandExecutor {
	return &CommandExecutor{command: command, args: args}
}

// Execute runs source through the interpreter. The returned channels
// follow the Executor contract: outputs closes first, then exactly one
// Result arrives.
func (e *CommandExecutor) Execute(ctx context.Context, source string, _ uint64) (<-chan models.Output, <-chan Result) {
	e.counter++
	count := e.counter

	outputs := make(chan models.Output, 16)
	done := make(chan Result, 1)

	go func() {
		defer close(outputs)

		cmd := exec.CommandContext(ctx, e.command, e.args...)
		cmd.Stdin = strings.NewReader(source)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()

		if stdout.Len() > 0 {
			outputs <- models.Output{Kind: models.OutputStream, Name: "stdout", Text: stdout.String()}
		}
		if stderr.Len() > 0 {
			outputs <- models.Output{Kind: models.OutputStream, Name: "stderr", Text: stderr.String()}
		}

		var exitErr *exec.ExitError
		switch {
		case runErr == nil:
		case errors.As(runErr, &exitErr):
			outputs <- models.Output{
				Kind:       models.OutputError,
				ErrorName:  "ExitError",
				ErrorValue: exitErr.Error(),
			}
			runErr = nil
		}

		done <- Result{ExecutionCount: count, Err: runErr}
	}()

	return outputs, done
}
