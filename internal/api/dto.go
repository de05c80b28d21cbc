package api

import (
	"time"

	"github.com/starford/refgraph/internal/audit"
	"github.com/starford/refgraph/internal/auditservice"
	"github.com/starford/refgraph/internal/history"
	"github.com/starford/refgraph/internal/linkgraph"
)

// AuditResponse summarizes a completed audit.
type AuditResponse struct {
	RunID       string            `json:"run_id,omitempty" example:"4f3c2b1a-..."`
	Stored      bool              `json:"stored"`
	Fingerprint string            `json:"fingerprint" validate:"required"`
	StartedAt   time.Time         `json:"started_at"`
	DurationMS  int64             `json:"duration_ms" example:"42"`
	Verdict     audit.Verdict     `json:"verdict" validate:"required"`
	Metrics     linkgraph.Metrics `json:"metrics" validate:"required"`
	ErrorCount  int               `json:"error_count" example:"3"`
}

func newAuditResponse(res *auditservice.Result) AuditResponse {
	out := AuditResponse{
		Stored:      res.Stored,
		Fingerprint: res.Report.Fingerprint,
		StartedAt:   res.StartedAt,
		DurationMS:  res.Duration.Milliseconds(),
		Verdict:     res.Verdict,
		Metrics:     res.Report.Metrics,
		ErrorCount:  len(res.Report.Errors),
	}
	if res.Run != nil {
		out.RunID = res.Run.ID
	}
	return out
}

// ReportResponse is the full latest report.
type ReportResponse struct {
	AuditResponse
	Errors []linkgraph.StructuralError `json:"errors" validate:"required"`
}

// DocumentRefs is the per-document reference view (aliased from the service layer).
type DocumentRefs = auditservice.DocumentRefs

// GraphResponse wraps the link graph.
type GraphResponse = linkgraph.Snapshot

// OrphansResponse lists orphan documents.
type OrphansResponse struct {
	Orphans []string `json:"orphans" validate:"required"`
}

// RunListResponse wraps stored runs.
type RunListResponse struct {
	Runs []history.Run `json:"runs" validate:"required"`
}

// RunDetailResponse is one stored run with its findings.
type RunDetailResponse struct {
	Run      *history.Run                `json:"run" validate:"required"`
	Findings []linkgraph.StructuralError `json:"findings" validate:"required"`
}

// DiffResponse is the finding diff between two runs (aliased from the history layer).
type DiffResponse = history.Diff

// SearchResponse wraps finding search hits.
type SearchResponse struct {
	Results []history.FindingHit `json:"results" validate:"required"`
}
