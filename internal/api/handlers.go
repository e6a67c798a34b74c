package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/notebookservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *notebookservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *notebookservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notebookPath extracts the notebook path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. work%2Fdemo.ipynb).
func notebookPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeServiceError maps domain errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, action, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("notebook already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrOutOfRange), errors.Is(err, apperr.ErrInvalidOperation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrEmptyHistory):
		writeJSON(w, http.StatusConflict, errorBody("nothing to undo or redo"))
	default:
		slog.Error(action+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNotebooks handles GET /api/notebooks.
//
//	@Summary		List notebooks with optional pagination and filtering
//	@Tags			notebooks
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			kernel	query		string	false	"Filter by kernel"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, title, path)
//	@Success		200		{object}	NotebookListResponse
//	@Security		BearerAuth
//	@Router			/notebooks [get]
func (h *Handler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	kernel := q.Get("kernel")
	sort := q.Get("sort")

	items, total, err := h.svc.List(r.Context(), limit, offset, kernel, sort)
	if err != nil {
		slog.Error("list notebooks failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notebooks": items,
		"total":     total,
	})
}

// GetNotebook handles GET /api/notebooks/*.
//
//	@Summary		Get a single notebook by path
//	@Tags			notebooks
//	@Produce		json
//	@Param			path	path		string	true	"Notebook path"
//	@Success		200		{object}	NotebookDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notebooks/{path} [get]
func (h *Handler) GetNotebook(w http.ResponseWriter, r *http.Request) {
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	detail, err := h.svc.Get(r.Context(), path)
	if err != nil {
		writeServiceError(w, "get notebook", path, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// CreateNotebook handles POST /api/notebooks.
//
//	@Summary		Create a new notebook
//	@Tags			notebooks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNotebookRequest	true	"Notebook to create"
//	@Success		201		{object}	NotebookDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notebooks [post]
func (h *Handler) CreateNotebook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	detail, err := h.svc.Create(r.Context(), req.Path, req.Notebook)
	if err != nil {
		writeServiceError(w, "create notebook", req.Path, err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// ReplaceNotebook handles PUT /api/notebooks/*.
//
//	@Summary		Replace a notebook's contents with optimistic concurrency
//	@Tags			notebooks
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string					true	"Notebook path"
//	@Param			If-Match	header	string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	models.NotebookSnapshot	true	"Full notebook document"
//	@Success		200		{object}	NotebookDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notebooks/{path} [put]
func (h *Handler) ReplaceNotebook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var snap models.NotebookSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	detail, err := h.svc.Replace(r.Context(), path, snap, ifMatch)
	if err != nil {
		writeServiceError(w, "replace notebook", path, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// DeleteNotebook handles DELETE /api/notebooks/*.
//
//	@Summary		Delete a notebook
//	@Tags			notebooks
//	@Param			path	path	string	true	"Notebook path"
//	@Success		204		"Notebook deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notebooks/{path} [delete]
func (h *Handler) DeleteNotebook(w http.ResponseWriter, r *http.Request) {
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.Delete(r.Context(), path); err != nil {
		writeServiceError(w, "delete notebook", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Edit handles POST /api/edits/*.
//
//	@Summary		Apply edit operations to a notebook
//	@Tags			edits
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string		true	"Notebook path"
//	@Param			body	body		EditRequest	true	"Edit operations"
//	@Success		200		{object}	NotebookDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edits/{path} [post]
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Ops) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("ops are required"))
		return
	}
	detail, err := h.svc.Edit(r.Context(), path, req.Ops)
	if err != nil {
		writeServiceError(w, "edit notebook", path, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Undo handles POST /api/undo/*.
//
//	@Summary		Undo the most recent edit
//	@Tags			edits
//	@Produce		json
//	@Param			path	path		string	true	"Notebook path"
//	@Success		200		{object}	NotebookDetail
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/undo/{path} [post]
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	detail, err := h.svc.Undo(r.Context(), path)
	if err != nil {
		writeServiceError(w, "undo", path, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Redo handles POST /api/redo/*.
//
//	@Summary		Redo the most recently undone edit
//	@Tags			edits
//	@Produce		json
//	@Param			path	path		string	true	"Notebook path"
//	@Success		200		{object}	NotebookDetail
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/redo/{path} [post]
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	detail, err := h.svc.Redo(r.Context(), path)
	if err != nil {
		writeServiceError(w, "redo", path, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Trust handles POST /api/trust/*.
//
//	@Summary		Sign every cell of a notebook as trusted
//	@Tags			trust
//	@Produce		json
//	@Param			path	path		string	true	"Notebook path"
//	@Success		200		{object}	NotebookDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/trust/{path} [post]
func (h *Handler) Trust(w http.ResponseWriter, r *http.Request) {
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	detail, err := h.svc.SignAll(r.Context(), path)
	if err != nil {
		writeServiceError(w, "trust notebook", path, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Run handles POST /api/run/*.
//
//	@Summary		Execute a code cell
//	@Tags			run
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string		true	"Notebook path"
//	@Param			body	body		RunRequest	true	"Cell to run"
//	@Success		200		{object}	NotebookDetail
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/run/{path} [post]
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	path := notebookPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	detail, err := h.svc.Run(r.Context(), path, req.Cell)
	if err != nil {
		writeServiceError(w, "run cell", path, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notebooks
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}
