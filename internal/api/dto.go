package api

import (
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/notebookservice"
)

// CreateNotebookRequest is the request body for creating a notebook.
// Notebook is optional; omitting it creates an empty document.
type CreateNotebookRequest struct {
	Path     string                   `json:"path" example:"analysis/demo.ipynb" validate:"required"`
	Notebook *models.NotebookSnapshot `json:"notebook,omitempty"`
}

// EditRequest is the request body for applying edits to a notebook.
// More than one op forms a single undo unit.
type EditRequest struct {
	Ops []notebookservice.EditOp `json:"ops" validate:"required"`
}

// RunRequest selects the code cell to execute.
type RunRequest struct {
	Cell int `json:"cell"`
}

// NotebookDetail is the full notebook response type (aliased from the domain layer).
type NotebookDetail = notebookservice.NotebookDetail

// NotebookListItem is a lightweight item in a list response (aliased from the domain layer).
type NotebookListItem = notebookservice.NotebookListItem

// NotebookListResponse wraps paginated notebook listings.
type NotebookListResponse struct {
	Notebooks []NotebookListItem `json:"notebooks" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"analysis/demo.ipynb" validate:"required"`
	Title   string `json:"title" example:"Demo" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
