package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func tempCorpus(t *testing.T, files map[string]string, opts ...FSOption) *FS {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fs, err := NewFS(dir, opts...)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestLoad_IdentitiesAndOrder(t *testing.T) {
	fs := tempCorpus(t, map[string]string{
		"02-visual-foundations/01-color-system.mdx": "---\ntitle: Color System\n---\nbody",
		"01-overview/01-intro.md":                  "# Intro\n",
		"01-overview/notes.txt":                    "ignored",
		"index.mdx":                                "# Home",
	})

	docs, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("len(docs) = %d, want 3", len(docs))
	}
	want := []string{"01-overview/01-intro", "02-visual-foundations/01-color-system", "index"}
	for i, w := range want {
		if docs[i].ID.String() != w {
			t.Errorf("docs[%d] = %q, want %q", i, docs[i].ID.String(), w)
		}
	}
	if docs[1].Title != "Color System" {
		t.Errorf("title = %q, want Color System", docs[1].Title)
	}
	if docs[0].Title != "Intro" {
		t.Errorf("title = %q, want Intro", docs[0].Title)
	}
}

func TestLoad_CategoryAllowList(t *testing.T) {
	fs := tempCorpus(t, map[string]string{
		"01-overview/a.mdx": "a",
		"99-drafts/b.mdx":   "b",
	}, WithCategories("01-overview"))

	docs, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 1 || docs[0].ID.Category != "01-overview" {
		t.Errorf("docs = %+v, want only 01-overview/a", docs)
	}
}

func TestLoad_CustomExtensions(t *testing.T) {
	fs := tempCorpus(t, map[string]string{
		"c/a.mdx": "a",
		"c/b.md":  "b",
	}, WithExtensions("mdx"))

	docs, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 1 || docs[0].ID.Slug != "a" {
		t.Errorf("docs = %+v, want only c/a", docs)
	}
}

func TestLoad_SkipsHiddenDirs(t *testing.T) {
	fs := tempCorpus(t, map[string]string{
		".docusaurus/cache.mdx": "x",
		"c/a.mdx":               "a",
	})
	docs, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("len(docs) = %d, want 1", len(docs))
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	fs := tempCorpus(t, map[string]string{"c/a.mdx": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fs.Load(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestTraversalBlocked(t *testing.T) {
	fs := tempCorpus(t, nil)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := fs.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS("/tmp/refgraph-does-not-exist-" + t.Name()); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "refgraph-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
