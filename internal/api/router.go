package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/laguz/internal/notebookservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *notebookservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notebooks CRUD.
	r.Get("/notebooks", h.ListNotebooks)
	r.Post("/notebooks", h.CreateNotebook)
	r.Get("/notebooks/*", h.GetNotebook)
	r.Put("/notebooks/*", h.ReplaceNotebook)
	r.Delete("/notebooks/*", h.DeleteNotebook)

	// Model operations on open notebooks.
	r.Post("/edits/*", h.Edit)
	r.Post("/undo/*", h.Undo)
	r.Post("/redo/*", h.Redo)
	r.Post("/trust/*", h.Trust)
	r.Post("/run/*", h.Run)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
