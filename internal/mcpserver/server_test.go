package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/refgraph/internal/audit"
	"github.com/starford/refgraph/internal/auditservice"
	"github.com/starford/refgraph/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()

	dir, fs := testutil.TestCorpus(t, testutil.SampleCorpus)
	svc := auditservice.New(&audit.Auditor{Loader: fs}, audit.DefaultPolicy(),
		auditservice.WithHistory(testutil.TestDB(t), 0))
	return New(svc, ""), dir
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "run_audit":
		result, err = srv.runAudit(ctx, req)
	case "get_report":
		result, err = srv.getReport(ctx, req)
	case "get_document_refs":
		result, err = srv.getDocumentRefs(ctx, req)
	case "list_orphans":
		result, err = srv.listOrphans(ctx, req)
	case "search_findings":
		result, err = srv.searchFindings(ctx, req)
	case "check_crossref":
		result, err = srv.checkCrossRef(ctx, req)
	case "get_crossref_contract":
		result, err = srv.getContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestRunAudit(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "run_audit", nil)
	if r.IsError {
		t.Fatalf("run_audit error: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, "Cross-reference audit") || !strings.Contains(text, "audit passed") {
		t.Errorf("run_audit text = %q", text)
	}
}

func TestGetReport_AuditsOnDemand(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_report", nil)
	if r.IsError {
		t.Fatalf("get_report error: %s", resultText(r))
	}
	var got struct {
		Fingerprint string `json:"fingerprint"`
		Metrics     struct {
			EdgeCount int `json:"edge_count"`
		} `json:"metrics"`
		Verdict audit.Verdict `json:"verdict"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if got.Fingerprint == "" || got.Metrics.EdgeCount != 6 || !got.Verdict.Passed {
		t.Errorf("report = %+v", got)
	}
}

func TestGetDocumentRefs(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_document_refs", map[string]interface{}{"id": "03-patterns/forms"})
	if r.IsError {
		t.Fatalf("error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"incoming"`) {
		t.Errorf("refs = %s", resultText(r))
	}

	r = callTool(t, srv, "get_document_refs", map[string]interface{}{"id": "nope/missing"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}

	r = callTool(t, srv, "get_document_refs", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing id")
	}
}

func TestListOrphans(t *testing.T) {
	srv, dir := testServer(t)

	r := callTool(t, srv, "list_orphans", nil)
	if text := resultText(r); text != "no orphans found" {
		t.Errorf("list_orphans = %q", text)
	}

	testutil.WriteFile(t, dir, "02-components/card.mdx", testutil.CrossRefImport+
		"<CrossRef related={[{ path: \"/docs/components/button\", label: \"Button\" }, { path: \"/docs/patterns/forms\", label: \"Forms\" }]} />\n")
	callTool(t, srv, "run_audit", nil)

	r = callTool(t, srv, "list_orphans", nil)
	if text := resultText(r); text != "02-components/card" {
		t.Errorf("list_orphans = %q, want 02-components/card", text)
	}
}

func TestSearchFindings(t *testing.T) {
	srv, dir := testServer(t)
	testutil.WriteFile(t, dir, "03-patterns/tables.mdx", testutil.CrossRefImport+
		"<CrossRef related={[{ path: \"/docs/patterns/vanished\", label: \"Vanished\" }]} />\n")
	callTool(t, srv, "run_audit", nil)

	r := callTool(t, srv, "search_findings", map[string]interface{}{"query": "vanished", "limit": 5})
	if r.IsError {
		t.Fatalf("search error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "03-patterns/tables") {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestCheckCrossRef(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "check_crossref", map[string]interface{}{
		"content": testutil.CrossRefImport + "<CrossRef related={[{ path: '/docs/a/b', label: 'B' },]} />",
	})
	var got crossRefCheck
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if got.State != "present" || !got.Imported || got.Count != 1 {
		t.Errorf("check = %+v", got)
	}

	r = callTool(t, srv, "check_crossref", map[string]interface{}{
		"content": "<CrossRef related={[{ path: someVar }]} />",
	})
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if got.State != "malformed" || got.Reason == "" {
		t.Errorf("check = %+v", got)
	}
}

func TestGetContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_crossref_contract", nil)
	if !strings.Contains(resultText(r), "CrossRef Declaration Contract") {
		t.Error("contract text missing title")
	}
}
