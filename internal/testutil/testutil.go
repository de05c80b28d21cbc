// Package testutil provides shared test helpers for setting up corpora and
// history databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/refgraph/internal/corpus"
	"github.com/starford/refgraph/internal/history"
)

// CrossRefImport is the import line documents need to use the component.
const CrossRefImport = "import CrossRef from '@site/src/components/CrossRef';\n\n"

// SampleCorpus is a small, healthy documentation tree: three categories,
// every document linking into both other categories.
var SampleCorpus = map[string]string{
	"01-foundations/01-color.mdx": "---\ntitle: Color\n---\n" + CrossRefImport + "# Color\n\n" +
		"<CrossRef related={[\n" +
		"  { path: \"/docs/components/button\", label: \"Button\" },\n" +
		"  { path: \"/docs/patterns/forms\", label: \"Forms\" }\n" +
		"]} />\n",
	"02-components/button.mdx": CrossRefImport + "# Button\n\n" +
		"<CrossRef related={[\n" +
		"  { path: \"/docs/foundations/color\", label: \"Color\" },\n" +
		"  { path: \"/docs/patterns/forms\", label: \"Forms\" }\n" +
		"]} />\n",
	"03-patterns/forms.mdx": CrossRefImport + "# Forms\n\n" +
		"<CrossRef related={[\n" +
		"  { path: \"/docs/foundations/color\", label: \"Color\" },\n" +
		"  { path: \"/docs/components/button\", label: \"Button\" }\n" +
		"]} />\n",
}

// TestDB creates a temporary history database that is automatically cleaned up.
func TestDB(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "refgraph-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestCorpus writes files (relative path → content) to a temporary directory
// and returns it with an FS loader rooted there.
func TestCorpus(t *testing.T, files map[string]string) (string, *corpus.FS) {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		WriteFile(t, dir, rel, content)
	}
	fs, err := corpus.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// WriteFile writes content to dir/rel, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
