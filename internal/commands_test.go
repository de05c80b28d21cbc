package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/refgraph/internal/apperr"
	"github.com/starford/refgraph/internal/history"
	"github.com/starford/refgraph/internal/testutil"
)

func testConfig(t *testing.T, files map[string]string) *Config {
	t.Helper()
	dir, _ := testutil.TestCorpus(t, files)
	cfg := NewDefaultConfig()
	cfg.Corpus.Root = dir
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	return cfg
}

func TestAudit_Passes(t *testing.T) {
	cfg := testConfig(t, testutil.SampleCorpus)

	var out bytes.Buffer
	if err := Audit(context.Background(), WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if !strings.Contains(out.String(), "audit passed") {
		t.Errorf("output = %q", out.String())
	}
}

func TestAudit_FailsWithSentinel(t *testing.T) {
	files := map[string]string{}
	for k, v := range testutil.SampleCorpus {
		files[k] = v
	}
	files["03-patterns/tables.mdx"] = testutil.CrossRefImport +
		"<CrossRef related={[{ path: \"/docs/patterns/gone\", label: \"Gone\" }]} />\n"
	cfg := testConfig(t, files)

	var out bytes.Buffer
	err := Audit(context.Background(), WithConfig(cfg), WithOutput(&out), WithFormat(FormatJSON))
	if !errors.Is(err, apperr.ErrAuditFailed) {
		t.Fatalf("err = %v, want ErrAuditFailed", err)
	}
	var got struct {
		Verdict struct {
			Passed bool `json:"passed"`
		} `json:"verdict"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Verdict.Passed {
		t.Error("verdict should fail")
	}
}

func TestAudit_UnknownFormat(t *testing.T) {
	cfg := testConfig(t, testutil.SampleCorpus)
	err := Audit(context.Background(), WithConfig(cfg), WithOutput(&bytes.Buffer{}), WithFormat("xml"))
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestAudit_RequiresConfig(t *testing.T) {
	if err := Audit(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestListRuns(t *testing.T) {
	cfg := testConfig(t, testutil.SampleCorpus)
	if err := Audit(context.Background(), WithConfig(cfg), WithOutput(&bytes.Buffer{})); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := ListRuns(context.Background(), WithConfig(cfg), WithOutput(&out), WithFormat(FormatJSON)); err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal(out.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 || !runs[0].Passed {
		t.Errorf("runs = %+v", runs)
	}

	out.Reset()
	if err := ListRuns(context.Background(), WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), runs[0].ID[:8]) || !strings.Contains(out.String(), "pass") {
		t.Errorf("table = %q", out.String())
	}
}

func TestListRuns_HistoryDisabled(t *testing.T) {
	cfg := testConfig(t, testutil.SampleCorpus)
	cfg.History.Enabled = false
	if err := ListRuns(context.Background(), WithConfig(cfg)); !errors.Is(err, apperr.ErrNoHistory) {
		t.Fatalf("err = %v, want ErrNoHistory", err)
	}
}
