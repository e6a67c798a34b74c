// Package models defines the domain types for Laguz.
package models

import "time"

// Output kinds.
const (
	OutputStream        = "stream"
	OutputExecuteResult = "execute_result"
	OutputDisplayData   = "display_data"
	OutputError         = "error"
)

// Output is one execution result unit. Outputs are immutable once
// appended to a cell; re-execution clears the whole list.
type Output struct {
	Kind string `json:"kind"`
	// Stream outputs.
	Name string `json:"name,omitempty"` // "stdout" or "stderr"
	Text string `json:"text,omitempty"`
	// Renderable outputs: MIME type -> raw payload.
	Data           map[string]string `json:"data,omitempty"`
	ExecutionCount int               `json:"execution_count,omitempty"`
	// Error outputs.
	ErrorName  string   `json:"error_name,omitempty"`
	ErrorValue string   `json:"error_value,omitempty"`
	Traceback  []string `json:"traceback,omitempty"`
}

// CellSnapshot is the persisted form of a single cell.
type CellSnapshot struct {
	Kind           string   `json:"kind"`
	Source         string   `json:"source"`
	ExecutionCount *int     `json:"execution_count,omitempty"`
	Outputs        []Output `json:"outputs,omitempty"`
	// Signature is the trust tag recorded when the cell was last signed.
	Signature string `json:"signature,omitempty"`
}

// NotebookSnapshot is a complete serializable representation of a
// notebook document. Round-tripping it through the model reproduces an
// observably identical cell sequence.
type NotebookSnapshot struct {
	Metadata map[string]any `json:"metadata,omitempty"`
	Cells    []CellSnapshot `json:"cells"`
}

// NotebookMetadata is a lightweight representation returned by list
// operations on the library.
type NotebookMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
