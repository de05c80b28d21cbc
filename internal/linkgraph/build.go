package linkgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/refgraph/internal/directive"
	"github.com/starford/refgraph/internal/models"
	"github.com/starford/refgraph/internal/resolve"
)

// DefaultMinReferences is the minimum number of entries a declaration needs.
const DefaultMinReferences = 2

// Declaration pairs a document with its extraction result.
type Declaration struct {
	Doc    models.Document
	Result directive.Result
}

// BuildOptions tunes the folding policy.
type BuildOptions struct {
	// MinReferences is the minimum out-degree policy. Zero selects
	// DefaultMinReferences.
	MinReferences int
	// ImportPath, when set, must appear in the module path the component
	// is imported from.
	ImportPath string
	// SkipImportChecks disables missing-import and unused-import findings.
	SkipImportChecks bool
}

// Build folds declarations into a Graph and collects the structural errors
// found on the way. documents is the size of the whole corpus. Every
// declaration is evaluated independently; nothing here aborts the build.
func Build(decls []Declaration, r *resolve.Resolver, documents int, opts BuildOptions) (*Graph, []StructuralError) {
	if opts.MinReferences <= 0 {
		opts.MinReferences = DefaultMinReferences
	}

	sorted := make([]Declaration, len(decls))
	copy(sorted, decls)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Doc.ID.String() < sorted[j].Doc.ID.String()
	})

	b := &builder{g: newGraph(documents), r: r, opts: opts}
	for _, d := range sorted {
		b.fold(d)
	}
	return b.g, b.errs
}

type builder struct {
	g    *Graph
	r    *resolve.Resolver
	opts BuildOptions
	errs []StructuralError
}

func (b *builder) report(kind ErrorKind, source, path string, line int, format string, args ...any) {
	b.errs = append(b.errs, StructuralError{
		Kind:   kind,
		Source: source,
		Path:   path,
		Line:   line,
		Detail: fmt.Sprintf(format, args...),
	})
}

func (b *builder) fold(d Declaration) {
	src := d.Doc.ID.String()
	res := d.Result

	if !b.opts.SkipImportChecks {
		b.checkImports(src, res)
	}
	if res.Count > 1 {
		b.report(KindMultipleDirectives, src, "", res.Line,
			"%d declarations found, only the first is used", res.Count)
	}

	switch res.State {
	case directive.Absent:
		return
	case directive.Malformed:
		b.report(KindMalformedDirective, src, "", res.Line, "%s", res.Reason)
		return
	}

	node := b.g.ensureNode(src, DocumentNode, d.Doc.ID.Category)
	node.Declaring = true

	if n := len(res.Entries); n < b.opts.MinReferences {
		b.report(KindUnderPopulated, src, "", res.Line,
			"declares %d related articles, want at least %d", n, b.opts.MinReferences)
	}

	seenTarget := make(map[string]struct{}, len(res.Entries))
	seenPath := make(map[string]struct{}, len(res.Entries))
	for _, e := range res.Entries {
		if strings.TrimSpace(e.Label) == "" {
			b.report(KindUnderPopulated, src, e.Path, e.Line, "empty label for %s", e.Path)
		}

		rr := b.r.Resolve(e.Path)
		var target string
		switch rr.Kind {
		case resolve.Resolved:
			target = rr.Target.String()
			if target == src {
				b.report(KindSelfReference, src, e.Path, e.Line, "document references itself via %s", e.Path)
				continue
			}
			b.g.ensureNode(target, DocumentNode, rr.Target.Category)
		case resolve.IndexPage:
			target = IndexPrefix + rr.IndexKey
			b.g.ensureNode(target, IndexNode, rr.IndexCategory)
		default:
			if _, dup := seenPath[e.Path]; dup {
				b.report(KindDuplicate, src, e.Path, e.Line, "%s declared more than once", e.Path)
				continue
			}
			seenPath[e.Path] = struct{}{}
			b.reportUnresolvable(src, e, rr)
			continue
		}

		if _, dup := seenTarget[target]; dup {
			b.report(KindDuplicate, src, e.Path, e.Line, "%s declared more than once (resolves to %s)", e.Path, target)
			continue
		}
		seenTarget[target] = struct{}{}
		b.g.addEdge(Edge{Source: src, Target: target, Label: e.Label, Line: e.Line})
	}
}

func (b *builder) reportUnresolvable(src string, e models.RefEntry, rr resolve.Resolution) {
	switch rr.Kind {
	case resolve.Malformed:
		b.report(KindDangling, src, e.Path, e.Line, "%s does not resolve to any document: %s", e.Path, rr.Reason)
	case resolve.Ambiguous:
		names := make([]string, len(rr.Candidates))
		for i, c := range rr.Candidates {
			names[i] = c.String()
		}
		b.report(KindAmbiguousPath, src, e.Path, e.Line, "%s matches %s", e.Path, strings.Join(names, ", "))
	default:
		b.report(KindDangling, src, e.Path, e.Line, "%s does not resolve to any document", e.Path)
	}
}

func (b *builder) checkImports(src string, res directive.Result) {
	switch {
	case res.Used && !res.Imported:
		b.report(KindMissingImport, src, "", res.Line, "component used but not imported")
	case res.Imported && !res.Used:
		b.report(KindUnusedImport, src, "", 0, "component imported from %s but never used", res.ImportPath)
	case res.Imported && b.opts.ImportPath != "" && !strings.Contains(res.ImportPath, b.opts.ImportPath):
		b.report(KindMissingImport, src, "", 0, "component imported from %s, want %s", res.ImportPath, b.opts.ImportPath)
	}
}
