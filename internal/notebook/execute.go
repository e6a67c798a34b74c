package notebook

import (
	"context"
	"fmt"

	"github.com/starford/laguz/internal/kernel"
	"github.com/starford/laguz/internal/models"
)

// BeginExecution starts a new run of the code cell at index i and
// returns its token. Earlier runs of the same cell are superseded: any
// output they still deliver is dropped.
func (n *Notebook) BeginExecution(i int) (uint64, error) {
	c, err := n.cells.Get(i)
	if err != nil {
		return 0, err
	}
	return c.BeginExecution()
}

// AppendOutput applies one streamed output to the cell at index i,
// subject to token gating.
func (n *Notebook) AppendOutput(i int, out models.Output, token uint64) error {
	c, err := n.cells.Get(i)
	if err != nil {
		return err
	}
	return c.AppendOutput(out, token)
}

// CompleteExecution records the final execution count for the run
// identified by token on the cell at index i.
func (n *Notebook) CompleteExecution(i, count int, token uint64) error {
	c, err := n.cells.Get(i)
	if err != nil {
		return err
	}
	return c.CompleteExecution(count, token)
}

// Run executes the code cell at index i through exec and applies the
// resulting stream synchronously as it arrives. Cancelling ctx stops
// waiting but rolls nothing back; the superseding token of the next run
// suppresses any stragglers from this one.
func (n *Notebook) Run(ctx context.Context, i int, exec kernel.Executor) error {
	c, err := n.cells.Get(i)
	if err != nil {
		return err
	}
	token, err := c.BeginExecution()
	if err != nil {
		return err
	}

	outputs, done := exec.Execute(ctx, c.Source(), token)
	for outputs != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out, ok := <-outputs:
			if !ok {
				outputs = nil
				continue
			}
			if err := c.AppendOutput(out, token); err != nil {
				return err
			}
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-done:
		if res.Err != nil {
			return fmt.Errorf("notebook: execute cell %d: %w", i, res.Err)
		}
		return c.CompleteExecution(res.ExecutionCount, token)
	}
}
