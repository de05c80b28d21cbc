package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/refgraph/internal/apperr"
	"github.com/starford/refgraph/internal/auditservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *auditservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *auditservice.Service) *Handler {
	return &Handler{svc: svc}
}

// documentID extracts the document identity from the URL (everything after
// /api/documents/). Encoded slashes (02-components%2Fbutton) are accepted.
func documentID(r *http.Request) string {
	raw := strings.Trim(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func queryLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

// RunAudit handles POST /api/audit.
//
//	@Summary		Audit the corpus now
//	@Tags			audit
//	@Produce		json
//	@Success		200	{object}	AuditResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/audit [post]
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RunAudit(r.Context())
	if err != nil {
		writeError(w, "run audit", err)
		return
	}
	writeJSON(w, http.StatusOK, newAuditResponse(res))
}

// Report handles GET /api/report.
//
//	@Summary		Get the latest audit report
//	@Tags			audit
//	@Produce		json
//	@Success		200	{object}	ReportResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/report [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Latest()
	if err != nil {
		writeError(w, "report", err)
		return
	}
	writeJSON(w, http.StatusOK, ReportResponse{
		AuditResponse: newAuditResponse(res),
		Errors:        res.Report.Errors,
	})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the link graph of the latest audit
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Graph()
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Orphans handles GET /api/orphans.
//
//	@Summary		List orphan documents
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	OrphansResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/orphans [get]
func (h *Handler) Orphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.svc.Orphans()
	if err != nil {
		writeError(w, "orphans", err)
		return
	}
	writeJSON(w, http.StatusOK, OrphansResponse{Orphans: orphans})
}

// DocumentRefs handles GET /api/documents/*.
//
//	@Summary		Get one document's references and findings
//	@Tags			graph
//	@Produce		json
//	@Param			id	path		string	true	"Document identity (category/slug)"
//	@Success		200	{object}	DocumentRefs
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) DocumentRefs(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("document id is required"))
		return
	}
	refs, err := h.svc.DocumentRefs(id)
	if err != nil {
		writeError(w, "document refs", err)
		return
	}
	writeJSON(w, http.StatusOK, refs)
}

// ListRuns handles GET /api/runs.
//
//	@Summary		List stored audit runs, newest first
//	@Tags			history
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum runs"
//	@Success		200		{object}	RunListResponse
//	@Failure		501		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.svc.ListRuns(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

// GetRun handles GET /api/runs/{id}.
//
//	@Summary		Get a stored run with its findings
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Run ID"
//	@Success		200	{object}	RunDetailResponse
//	@Failure		404	{object}	errResponse
//	@Failure		501	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.svc.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, "get run", err)
		return
	}
	findings, err := h.svc.RunFindings(r.Context(), id)
	if err != nil {
		writeError(w, "get run findings", err)
		return
	}
	writeJSON(w, http.StatusOK, RunDetailResponse{Run: run, Findings: findings})
}

// DiffRuns handles GET /api/runs/{id}/diff.
//
//	@Summary		Compare the findings of two runs
//	@Tags			history
//	@Produce		json
//	@Param			id		path		string	true	"Newer run ID"
//	@Param			against	query		string	true	"Older run ID"
//	@Success		200		{object}	DiffResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs/{id}/diff [get]
func (h *Handler) DiffRuns(w http.ResponseWriter, r *http.Request) {
	against := r.URL.Query().Get("against")
	if against == "" {
		writeError(w, "diff runs", fmt.Errorf("query parameter against is required: %w", apperr.ErrInvalidInput))
		return
	}
	d, err := h.svc.Diff(r.Context(), against, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "diff runs", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// SearchFindings handles GET /api/findings/search.
//
//	@Summary		Search stored findings
//	@Tags			history
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/findings/search [get]
func (h *Handler) SearchFindings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter q is required"))
		return
	}
	hits, err := h.svc.SearchFindings(r.Context(), q, queryLimit(r))
	if err != nil {
		writeError(w, "search findings", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: hits})
}
