// Package cell implements the notebook cell model: one editable unit of
// source text with, for code cells, an observable output list and
// token-gated execution state.
package cell

import (
	"fmt"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/observable"
)

// Kind discriminates cell behavior. Changing a cell's kind is modeled
// as replacing the cell, never as mutating Kind in place.
type Kind string

const (
	Code     Kind = "code"
	Markdown Kind = "markdown"
	Raw      Kind = "raw"
)

// Valid reports whether k is a known cell kind.
func (k Kind) Valid() bool {
	return k == Code || k == Markdown || k == Raw
}

// ContentChange describes a change to a cell's own content.
type ContentChange struct {
	Cell  *Cell
	Field string // "source", "outputs", or "execution_count"
}

// Cell is one unit of a notebook document. It is owned by the notebook
// model's cell sequence; views hold non-owning references.
type Cell struct {
	kind           Kind
	source         string
	executionCount *int
	outputs        *observable.Sequence[models.Output] // code cells only
	signature      string
	token          uint64
	revision       uint64

	observers map[int]func(ContentChange)
	nextID    int
	disposed  bool
}

// New constructs a cell of the given kind with initial source.
func New(kind Kind, source string) (*Cell, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("cell: unknown kind %q: %w", kind, apperr.ErrInvalidOperation)
	}
	c := &Cell{
		kind:      kind,
		source:    source,
		observers: make(map[int]func(ContentChange)),
	}
	if kind == Code {
		c.outputs = observable.New[models.Output]()
		c.outputs.Observe(func(observable.Change[models.Output]) {
			c.changed("outputs")
		})
	}
	return c, nil
}

// Kind returns the cell kind.
func (c *Cell) Kind() Kind { return c.kind }

// Source returns the current source text.
func (c *Cell) Source() string { return c.source }

// SetSource replaces the source text. It always marks trust stale and
// emits a content-changed event, even when the new text equals the old;
// idempotent writes still notify so coalescing observers stay simple.
func (c *Cell) SetSource(source string) {
	c.source = source
	c.changed("source")
}

// ExecutionCount returns the execution count and whether one is set.
func (c *Cell) ExecutionCount() (int, bool) {
	if c.executionCount == nil {
		return 0, false
	}
	return *c.executionCount, true
}

// SetExecutionCount sets the execution count directly (restore path and
// explicit caller writes). Token-gated updates go through
// CompleteExecution.
func (c *Cell) SetExecutionCount(n int) {
	c.executionCount = &n
	c.changed("execution_count")
}

// Outputs returns a copy of the current outputs. Non-code cells have none.
func (c *Cell) Outputs() []models.Output {
	if c.outputs == nil {
		return nil
	}
	return c.outputs.Items()
}

// OutputSequence exposes the underlying output list for observers that
// render incrementally. It is nil for non-code cells.
func (c *Cell) OutputSequence() *observable.Sequence[models.Output] {
	return c.outputs
}

// Token returns the current execution token. Zero means the cell has
// never been executed in this session.
func (c *Cell) Token() uint64 { return c.token }

// BeginExecution starts a new execution run: it advances the token and
// clears existing outputs. Results tagged with an older token are
// discarded from then on.
func (c *Cell) BeginExecution() (uint64, error) {
	if c.kind != Code {
		return 0, fmt.Errorf("cell: execute %s cell: %w", c.kind, apperr.ErrInvalidOperation)
	}
	c.token++
	if c.outputs.Len() > 0 {
		_, _ = c.outputs.RemoveRange(0, c.outputs.Len())
	}
	return c.token, nil
}

// AppendOutput appends one output for the run identified by token.
// Outputs carrying a stale token are silently dropped: that is an
// expected race with cancellation, not an error. Appending to a
// non-code cell fails with ErrInvalidOperation.
func (c *Cell) AppendOutput(out models.Output, token uint64) error {
	if c.kind != Code {
		return fmt.Errorf("cell: append output to %s cell: %w", c.kind, apperr.ErrInvalidOperation)
	}
	if token != c.token {
		return nil
	}
	return c.outputs.Insert(c.outputs.Len(), out)
}

// CompleteExecution records the final execution count for the run
// identified by token. Stale completions are dropped and never alter
// the count.
func (c *Cell) CompleteExecution(count int, token uint64) error {
	if c.kind != Code {
		return fmt.Errorf("cell: complete execution on %s cell: %w", c.kind, apperr.ErrInvalidOperation)
	}
	if token != c.token {
		return nil
	}
	c.executionCount = &count
	c.changed("execution_count")
	return nil
}

// ClearOutputs removes all outputs. It is a no-op on non-code cells.
func (c *Cell) ClearOutputs() {
	if c.outputs == nil || c.outputs.Len() == 0 {
		return
	}
	_, _ = c.outputs.RemoveRange(0, c.outputs.Len())
}

// Signature returns the stored trust tag, empty if the cell was never
// signed.
func (c *Cell) Signature() string { return c.signature }

// SetSignature stores a trust tag. The tag is persisted with the cell
// snapshot; whether it still verifies is the trust evaluator's call.
// Signing is not a content edit, so no content event is emitted, but
// the revision advances so cached trust state is recomputed.
func (c *Cell) SetSignature(tag string) {
	c.signature = tag
	c.revision++
}

// Revision returns a counter that advances on every change affecting
// trust (content edits and re-signing). Trust caches key on it.
func (c *Cell) Revision() uint64 { return c.revision }

// Observe registers a content-change observer and returns its handle.
func (c *Cell) Observe(fn func(ContentChange)) int {
	if c.disposed {
		return -1
	}
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	return id
}

// Unobserve removes a content-change observer.
func (c *Cell) Unobserve(handle int) {
	delete(c.observers, handle)
}

// Dispose detaches all observers, including the output list's.
func (c *Cell) Dispose() {
	c.disposed = true
	c.observers = make(map[int]func(ContentChange))
	if c.outputs != nil {
		c.outputs.Dispose()
	}
}

// Snapshot captures the cell for persistence.
func (c *Cell) Snapshot() models.CellSnapshot {
	snap := models.CellSnapshot{
		Kind:      string(c.kind),
		Source:    c.source,
		Signature: c.signature,
	}
	if c.executionCount != nil {
		n := *c.executionCount
		snap.ExecutionCount = &n
	}
	if c.outputs != nil {
		snap.Outputs = c.outputs.Items()
	}
	return snap
}

// FromSnapshot reconstructs a cell. Execution tokens and trust caches
// are session state and start fresh.
func FromSnapshot(snap models.CellSnapshot) (*Cell, error) {
	c, err := New(Kind(snap.Kind), snap.Source)
	if err != nil {
		return nil, err
	}
	c.signature = snap.Signature
	if snap.ExecutionCount != nil {
		n := *snap.ExecutionCount
		c.executionCount = &n
	}
	if c.kind == Code && len(snap.Outputs) > 0 {
		_ = c.outputs.Insert(0, snap.Outputs...)
	}
	return c, nil
}

func (c *Cell) changed(field string) {
	c.revision++
	if c.disposed {
		return
	}
	snapshot := make([]func(ContentChange), 0, len(c.observers))
	for _, fn := range c.observers {
		snapshot = append(snapshot, fn)
	}
	for _, fn := range snapshot {
		fn(ContentChange{Cell: c, Field: field})
	}
}
