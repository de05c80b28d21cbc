package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/refgraph/internal/apperr"
	"github.com/starford/refgraph/internal/models"
)

// DefaultExtensions are the content file extensions loaded when none are configured.
var DefaultExtensions = []string{".md", ".mdx"}

// FS loads documents from a directory tree.
type FS struct {
	root       string // absolute path to corpus directory
	exts       map[string]struct{}
	categories map[string]struct{}
	workers    int
	logger     *slog.Logger
}

// FSOption configures an FS loader.
type FSOption func(*FS)

// WithExtensions restricts loading to files with the given extensions.
func WithExtensions(exts ...string) FSOption {
	return func(f *FS) {
		if len(exts) == 0 {
			return
		}
		f.exts = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			f.exts[strings.ToLower(e)] = struct{}{}
		}
	}
}

// WithCategories sets the allowed category directories. Documents in any
// other category are skipped with a warning. An empty list allows all.
func WithCategories(categories ...string) FSOption {
	return func(f *FS) {
		if len(categories) == 0 {
			return
		}
		f.categories = make(map[string]struct{}, len(categories))
		for _, c := range categories {
			f.categories[c] = struct{}{}
		}
	}
}

// WithWorkers bounds the number of concurrent file reads.
func WithWorkers(n int) FSOption {
	return func(f *FS) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithLogger sets the logger used for skipped files.
func WithLogger(l *slog.Logger) FSOption {
	return func(f *FS) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFS creates a loader rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...FSOption) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("corpus: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("corpus: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus: root is not a directory: %s: %w", abs, apperr.ErrInvalidCorpus)
	}
	f := &FS{root: abs, workers: 8, logger: slog.Default()}
	WithExtensions(DefaultExtensions...)(f)
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Root returns the absolute corpus directory.
func (f *FS) Root() string { return f.root }

// IsContent reports whether path (absolute or relative) names a content file.
func (f *FS) IsContent(path string) bool {
	_, ok := f.exts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// safePath resolves a relative path against the corpus root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("corpus: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("corpus: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("corpus: path escapes root: %s", rel)
	}
	return abs, nil
}

// List returns the slash-separated relative paths of every content file.
func (f *FS) List() ([]string, error) {
	var out []string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != f.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !f.IsContent(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("corpus: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a corpus file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("corpus: read %s: %w", path, err)
	}
	return data, nil
}

// Load reads every content file and returns the documents sorted by identity.
// Any read failure aborts the load.
func (f *FS) Load(ctx context.Context) ([]models.Document, error) {
	paths, err := f.List()
	if err != nil {
		return nil, err
	}

	kept := paths[:0]
	for _, p := range paths {
		id := IdentityFromPath(p)
		if f.categories != nil {
			if _, ok := f.categories[id.Category]; !ok {
				f.logger.Warn("corpus: skipping document outside known categories",
					slog.String("path", p),
					slog.String("category", id.Category))
				continue
			}
		}
		kept = append(kept, p)
	}

	docs := make([]models.Document, len(kept))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, p := range kept {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			data, err := f.Read(p)
			if err != nil {
				return err
			}
			docs[i] = NewDocument(p, data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortDocuments(docs)
	return docs, nil
}

// Verify *FS satisfies Loader at compile time.
var _ Loader = (*FS)(nil)
