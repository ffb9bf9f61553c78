package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mdcal/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents CRUD.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/{id}", h.GetDocument)
	r.Put("/documents/{id}", h.UpdateDocument)
	r.Delete("/documents/{id}", h.DeleteDocument)
	r.Post("/documents/{id}/status/next", h.CycleStatus)

	// Calendar views.
	r.Get("/calendar/{year}/{month}", h.Month)
	r.Get("/calendar.ics", h.Calendar)

	// Search.
	r.Get("/search", h.Search)
	r.Get("/fulltext", h.FullText)

	// Settings.
	r.Get("/settings/documents-folder", h.GetFolder)
	r.Put("/settings/documents-folder", h.SetFolder)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
