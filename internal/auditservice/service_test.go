package auditservice

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/starford/refgraph/internal/apperr"
	"github.com/starford/refgraph/internal/audit"
	"github.com/starford/refgraph/internal/sse"
	"github.com/starford/refgraph/internal/testutil"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []sse.AuditEvent
}

func (f *fakePublisher) PublishAudit(e sse.AuditEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

type fakeObserver struct{ calls int }

func (f *fakeObserver) Observe(*audit.Report, audit.Verdict, time.Duration) { f.calls++ }

func newService(t *testing.T, opts ...Option) (*Service, string) {
	t.Helper()
	dir, fs := testutil.TestCorpus(t, testutil.SampleCorpus)
	svc := New(&audit.Auditor{Loader: fs}, audit.DefaultPolicy(), opts...)
	return svc, dir
}

func TestRunAudit_StoresOnlyOnChange(t *testing.T) {
	db := testutil.TestDB(t)
	pub := &fakePublisher{}
	obs := &fakeObserver{}
	svc, dir := newService(t, WithHistory(db, 0), WithPublisher(pub), WithObserver(obs))
	ctx := context.Background()

	first, err := svc.RunAudit(ctx)
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}
	if !first.Stored || first.Run == nil {
		t.Fatalf("first run should be stored: %+v", first)
	}
	if !first.Verdict.Passed {
		t.Errorf("sample corpus should pass: %+v", first.Verdict.Violations)
	}

	second, err := svc.RunAudit(ctx)
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}
	if second.Stored {
		t.Error("unchanged corpus should not be stored again")
	}
	if second.Run == nil || second.Run.ID != first.Run.ID {
		t.Errorf("unchanged corpus should point at the previous run")
	}

	testutil.WriteFile(t, dir, "03-patterns/tables.mdx", testutil.CrossRefImport+
		"<CrossRef related={[{ path: \"/docs/patterns/gone\", label: \"Gone\" }]} />\n")
	third, err := svc.RunAudit(ctx)
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}
	if !third.Stored || third.Verdict.Passed {
		t.Errorf("changed corpus: stored=%v passed=%v", third.Stored, third.Verdict.Passed)
	}

	runs, err := svc.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("runs = %d, want 2", len(runs))
	}

	d, err := svc.Diff(ctx, first.Run.ID, third.Run.ID)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(d.Added) != 2 || len(d.Resolved) != 0 {
		t.Errorf("diff added=%d resolved=%d, want 2/0", len(d.Added), len(d.Resolved))
	}

	if obs.calls != 3 {
		t.Errorf("observer calls = %d, want 3", obs.calls)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 3 || pub.events[1].Stored || pub.events[0].RunID == "" {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestRunAudit_WithoutHistory(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.RunAudit(context.Background())
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}
	if res.Stored || res.Run != nil {
		t.Error("nothing should be stored without history")
	}
	if _, err := svc.ListRuns(context.Background(), 5); !errors.Is(err, apperr.ErrNoHistory) {
		t.Errorf("ListRuns err = %v, want ErrNoHistory", err)
	}
}

func TestRunAudit_LoaderFailure(t *testing.T) {
	dir, fs := testutil.TestCorpus(t, nil)
	svc := New(&audit.Auditor{Loader: fs}, audit.DefaultPolicy())
	testutil.WriteFile(t, dir, "a/one.mdx", "x")
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RunAudit(context.Background()); err == nil {
		t.Fatal("expected load error for missing corpus root")
	}
	if _, err := svc.Latest(); !errors.Is(err, apperr.ErrNoReport) {
		t.Errorf("Latest err = %v, want ErrNoReport", err)
	}
}

func TestLookupsBeforeAudit(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Graph(); !errors.Is(err, apperr.ErrNoReport) {
		t.Errorf("Graph err = %v", err)
	}
	if _, err := svc.DocumentRefs("02-components/button"); !errors.Is(err, apperr.ErrNoReport) {
		t.Errorf("DocumentRefs err = %v", err)
	}
}

func TestDocumentRefs(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.RunAudit(context.Background()); err != nil {
		t.Fatal(err)
	}

	refs, err := svc.DocumentRefs("02-components/button")
	if err != nil {
		t.Fatalf("DocumentRefs: %v", err)
	}
	if !refs.Declaring || refs.Orphan {
		t.Errorf("refs = %+v", refs)
	}
	if len(refs.Outgoing) != 2 || len(refs.Incoming) != 2 {
		t.Errorf("outgoing=%d incoming=%d, want 2/2", len(refs.Outgoing), len(refs.Incoming))
	}
	if refs.Path != "02-components/button.mdx" || refs.Title != "Button" {
		t.Errorf("path=%q title=%q", refs.Path, refs.Title)
	}

	if _, err := svc.DocumentRefs("nope/missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing doc err = %v, want ErrNotFound", err)
	}

	g, err := svc.Graph()
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 3 || len(g.Edges) != 6 {
		t.Errorf("graph nodes=%d edges=%d", len(g.Nodes), len(g.Edges))
	}
	orphans, _ := svc.Orphans()
	if len(orphans) != 0 {
		t.Errorf("orphans = %v", orphans)
	}
}
