// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes refgraph audit tools for LLM integration via stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/refgraph/internal/apperr"
	"github.com/starford/refgraph/internal/audit"
	"github.com/starford/refgraph/internal/auditservice"
	"github.com/starford/refgraph/internal/directive"
)

const contractURI = "refgraph://crossref-format"

// Server wraps the MCP server with refgraph tools.
type Server struct {
	mcp       *server.MCPServer
	svc       *auditservice.Service
	extractor *directive.Extractor
}

// New creates a new MCP server with all refgraph tools registered.
// component names the declaring element; empty selects the default.
func New(svc *auditservice.Service, component string) *Server {
	s := &Server{svc: svc, extractor: directive.New(component)}

	s.mcp = server.NewMCPServer(
		"refgraph",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("run_audit",
		mcp.WithDescription("Audit the documentation corpus now and return a readable report "+
			"with findings, orphans, isolated categories and the pass/fail verdict."),
	), s.runAudit)

	s.mcp.AddTool(mcp.NewTool("get_report",
		mcp.WithDescription("Return the latest audit report as JSON. Runs an audit first if none exists."),
	), s.getReport)

	s.mcp.AddTool(mcp.NewTool("get_document_refs",
		mcp.WithDescription("Show one document's outgoing and incoming references and its findings."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document identity as category/slug (e.g. 02-components/button)")),
	), s.getDocumentRefs)

	s.mcp.AddTool(mcp.NewTool("list_orphans",
		mcp.WithDescription("List declaring documents that no other document references."),
	), s.listOrphans)

	s.mcp.AddTool(mcp.NewTool("search_findings",
		mcp.WithDescription("Search findings across stored audit runs."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), s.searchFindings)

	s.mcp.AddTool(mcp.NewTool("check_crossref",
		mcp.WithDescription("Parse the CrossRef declaration of a document draft without writing it. "+
			"Returns the parsed entries or the reason the declaration is malformed."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full MDX document content")),
	), s.checkCrossRef)

	s.mcp.AddTool(mcp.NewTool("get_crossref_contract",
		mcp.WithDescription("Returns the CrossRef declaration contract. "+
			"Call this before adding or editing related-article declarations."),
	), s.getContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "CrossRef Declaration Contract",
			mcp.WithResourceDescription("How documents declare related articles."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// latest returns the latest result, auditing first when nothing has run yet.
func (s *Server) latest(ctx context.Context) (*auditservice.Result, error) {
	res, err := s.svc.Latest()
	if errors.Is(err, apperr.ErrNoReport) {
		return s.svc.RunAudit(ctx)
	}
	return res, err
}

func (s *Server) runAudit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.RunAudit(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	if err := audit.Render(&buf, res.Report, res.Verdict); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) getReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.latest(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"fingerprint": res.Report.Fingerprint,
		"errors":      res.Report.Errors,
		"metrics":     res.Report.Metrics,
		"verdict":     res.Verdict,
	}), nil
}

func (s *Server) getDocumentRefs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.latest(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.svc.DocumentRefs(strings.Trim(id, "/"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(refs), nil
}

func (s *Server) listOrphans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := s.latest(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	orphans, err := s.svc.Orphans()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(orphans) == 0 {
		return mcp.NewToolResultText("no orphans found"), nil
	}
	return mcp.NewToolResultText(strings.Join(orphans, "\n")), nil
}

func (s *Server) searchFindings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.SearchFindings(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(hits), nil
}

// crossRefCheck is the check_crossref response.
type crossRefCheck struct {
	State    string `json:"state"`
	Line     int    `json:"line,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Count    int    `json:"count"`
	Imported bool   `json:"imported"`
	Entries  any    `json:"entries"`
}

func (s *Server) checkCrossRef(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.extractor.Extract(content)
	out := crossRefCheck{
		State:    res.State.String(),
		Line:     res.Line,
		Reason:   res.Reason,
		Count:    res.Count,
		Imported: res.Imported,
		Entries:  res.Entries,
	}
	if res.Entries == nil {
		out.Entries = []any{}
	}
	return jsonResult(out), nil
}

func (s *Server) getContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CrossRefContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     CrossRefContract,
		},
	}, nil
}
