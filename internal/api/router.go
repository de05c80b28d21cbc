package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/refgraph/internal/auditservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *auditservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Audits.
	r.Post("/audit", h.RunAudit)
	r.Get("/report", h.Report)

	// Latest graph views.
	r.Get("/graph", h.Graph)
	r.Get("/orphans", h.Orphans)
	r.Get("/documents/*", h.DocumentRefs)

	// Run history.
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{id}", h.GetRun)
	r.Get("/runs/{id}/diff", h.DiffRuns)
	r.Get("/findings/search", h.SearchFindings)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
