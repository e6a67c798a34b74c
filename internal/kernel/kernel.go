// Package kernel defines the execution collaborator contract the
// notebook model consumes. The model never sees a wire protocol, only a
// token-tagged stream of outputs and a completion result.
package kernel

import (
	"context"

	"github.com/starford/laguz/internal/models"
)

// Result carries the completion of one execution run.
type Result struct {
	ExecutionCount int
	Err            error
}

// Executor runs cell source and streams outputs back. Implementations
// must close the output channel before sending on the result channel,
// and must send exactly one Result. The token identifies the run; the
// model uses it to discard results from superseded executions.
type Executor interface {
	Execute(ctx context.Context, source string, token uint64) (<-chan models.Output, <-chan Result)
}
