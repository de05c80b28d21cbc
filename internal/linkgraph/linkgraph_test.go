package linkgraph

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/refgraph/internal/directive"
	"github.com/starford/refgraph/internal/models"
	"github.com/starford/refgraph/internal/resolve"
)

const importLine = "import CrossRef from '@site/src/components/CrossRef';\n\n"

// refs renders a document body declaring the given paths, each labelled by
// its last segment.
func refs(paths ...string) string {
	var b strings.Builder
	b.WriteString(importLine)
	b.WriteString("# Title\n\n<CrossRef related={[\n")
	for _, p := range paths {
		label := p[strings.LastIndex(p, "/")+1:]
		fmt.Fprintf(&b, "  { path: %q, label: %q },\n", p, label)
	}
	b.WriteString("]} />\n")
	return b.String()
}

// build extracts and folds a corpus given as identity → body.
func build(t *testing.T, corpus map[string]string, opts BuildOptions) (*Graph, []StructuralError) {
	t.Helper()
	keys := make([]string, 0, len(corpus))
	for k := range corpus {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ex := directive.New("")
	ids := make([]models.Identity, 0, len(keys))
	decls := make([]Declaration, 0, len(keys))
	for _, k := range keys {
		id := models.ParseIdentity(k)
		ids = append(ids, id)
		doc := models.Document{ID: id, Path: k + ".mdx", Body: corpus[k]}
		decls = append(decls, Declaration{Doc: doc, Result: ex.Extract(doc.Body)})
	}
	return Build(decls, resolve.New(ids), len(keys), opts)
}

func kinds(errs []StructuralError) []ErrorKind {
	out := make([]ErrorKind, len(errs))
	for i, e := range errs {
		out[i] = e.Kind
	}
	return out
}

func TestBuild_WorkedScenario(t *testing.T) {
	g, errs := build(t, map[string]string{
		"guides/foo": refs("/docs/guides/bar", "/docs/guides/baz"),
		"guides/bar": refs("/docs/guides/foo", "/docs/guides/baz"),
		"guides/baz": "# Baz\n",
	}, BuildOptions{})
	require.Empty(t, errs)

	assert.Equal(t, 4, g.EdgeCount())
	assert.True(t, g.HasEdge("guides/foo", "guides/bar"))
	assert.True(t, g.HasEdge("guides/bar", "guides/foo"))
	assert.Equal(t, []string{"guides/bar", "guides/foo"}, g.Declaring())

	m := Analyze(g, AnalyzeOptions{})
	assert.InDelta(t, 2.0, m.Density, 1e-9)
	assert.Empty(t, m.Orphans, "baz declares nothing and cannot be an orphan")
	assert.Equal(t, 3, m.NodeCount)
}

func TestBuild_SingleReferenceScenario(t *testing.T) {
	g, errs := build(t, map[string]string{
		"a/foo": refs("/docs/a/bar", "/docs/a/baz"),
		"a/bar": refs("/docs/a/foo"),
		"a/baz": "",
	}, BuildOptions{})

	assert.Equal(t, []ErrorKind{KindUnderPopulated}, kinds(errs))
	assert.Equal(t, "a/bar", errs[0].Source)
	assert.Equal(t, 3, g.EdgeCount(), "under-populated declarations still contribute edges")

	m := Analyze(g, AnalyzeOptions{})
	assert.InDelta(t, 1.5, m.Density, 1e-9)
	assert.Empty(t, m.Orphans)
	assert.Empty(t, m.CircularPairs, "foo has two out-edges")
}

func TestBuild_Dangling(t *testing.T) {
	g, errs := build(t, map[string]string{
		"a/one": refs("/docs/a/two", "/docs/a/missing"),
		"a/two": "",
	}, BuildOptions{})

	require.Len(t, errs, 1)
	assert.Equal(t, KindDangling, errs[0].Kind)
	assert.Equal(t, "/docs/a/missing", errs[0].Path)
	assert.Greater(t, errs[0].Line, 0)
	assert.Equal(t, 1, g.EdgeCount())
	_, ok := g.Node("a/missing")
	assert.False(t, ok, "dangling targets are not nodes")
}

func TestBuild_SelfReference(t *testing.T) {
	g, errs := build(t, map[string]string{
		"a/one": refs("/docs/a/one", "/docs/a/two"),
		"a/two": "",
	}, BuildOptions{})

	assert.Equal(t, []ErrorKind{KindSelfReference}, kinds(errs))
	assert.False(t, g.HasEdge("a/one", "a/one"))
	assert.Equal(t, 1, g.EdgeCount())
}

func TestBuild_SelfReferenceThroughOrderPrefix(t *testing.T) {
	_, errs := build(t, map[string]string{
		"01-a/02-one": refs("/docs/a/one", "/docs/a/two"),
		"01-a/two":    "",
	}, BuildOptions{})
	assert.Equal(t, []ErrorKind{KindSelfReference}, kinds(errs))
}

func TestBuild_Duplicate(t *testing.T) {
	g, errs := build(t, map[string]string{
		"x/src": refs("/docs/x/y", "/docs/x/y", "/docs/x/z"),
		"x/y":   "",
		"x/z":   "",
	}, BuildOptions{})

	assert.Equal(t, []ErrorKind{KindDuplicate}, kinds(errs))
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, 1, g.InDegree("x/y"))
}

func TestBuild_DuplicateUnresolvedReportedOnce(t *testing.T) {
	_, errs := build(t, map[string]string{
		"x/src": refs("/docs/x/gone", "/docs/x/gone"),
	}, BuildOptions{})
	assert.Equal(t, []ErrorKind{KindDangling, KindDuplicate}, kinds(errs))
}

func TestBuild_UnderPopulated(t *testing.T) {
	g, errs := build(t, map[string]string{
		"a/one": refs("/docs/a/two"),
		"a/two": "",
	}, BuildOptions{})

	require.Len(t, errs, 1)
	assert.Equal(t, KindUnderPopulated, errs[0].Kind)
	assert.True(t, g.HasEdge("a/one", "a/two"))
}

func TestBuild_MinReferencesOption(t *testing.T) {
	_, errs := build(t, map[string]string{
		"a/one": refs("/docs/a/two", "/docs/a/three"),
		"a/two": "", "a/three": "",
	}, BuildOptions{MinReferences: 3})
	assert.Equal(t, []ErrorKind{KindUnderPopulated}, kinds(errs))
}

func TestBuild_EmptyDeclarationIsDeclaring(t *testing.T) {
	g, errs := build(t, map[string]string{
		"a/one": importLine + "<CrossRef related={[]} />\n",
	}, BuildOptions{})

	assert.Equal(t, []ErrorKind{KindUnderPopulated}, kinds(errs))
	n, ok := g.Node("a/one")
	require.True(t, ok)
	assert.True(t, n.Declaring)
	assert.Empty(t, Orphans(g), "no document has in-edges, so none is an orphan")
}

func TestBuild_EmptyLabel(t *testing.T) {
	body := importLine + `<CrossRef related={[{ path: "/docs/a/two", label: "" }, { path: "/docs/a/three", label: "Three" }]} />`
	g, errs := build(t, map[string]string{"a/one": body, "a/two": "", "a/three": ""}, BuildOptions{})

	assert.Equal(t, []ErrorKind{KindUnderPopulated}, kinds(errs))
	assert.Equal(t, 2, g.EdgeCount())
}

func TestBuild_MalformedDeclaration(t *testing.T) {
	g, errs := build(t, map[string]string{
		"a/one": importLine + `<CrossRef related={[{ path: "/docs/a/two" }]} />`,
		"a/two": "",
	}, BuildOptions{})

	assert.Equal(t, []ErrorKind{KindMalformedDirective}, kinds(errs))
	assert.Equal(t, 0, g.EdgeCount())
	_, ok := g.Node("a/one")
	assert.False(t, ok, "malformed declarations do not make a document declaring")
}

func TestBuild_AmbiguousAndMalformedPaths(t *testing.T) {
	g, errs := build(t, map[string]string{
		"01-a/src":   refs("/docs/a/setup", "/a/one", "/docs/a/one.mdx", "/docs//a/one"),
		"01-a/setup": "",
		"02-a/setup": "",
		"01-a/one":   "",
	}, BuildOptions{})

	assert.ElementsMatch(t, []ErrorKind{KindAmbiguousPath, KindDangling, KindDangling, KindDangling}, kinds(errs))
	for _, e := range errs {
		switch e.Kind {
		case KindAmbiguousPath:
			assert.Contains(t, e.Detail, "01-a/setup")
			assert.Contains(t, e.Detail, "02-a/setup")
		case KindDangling:
			assert.Contains(t, e.Detail, "does not resolve", "malformed paths are dangling, reason in detail")
		}
	}
	assert.Equal(t, 0, g.EdgeCount())
}

func TestBuild_IndexPageTargets(t *testing.T) {
	g, errs := build(t, map[string]string{
		"01-foundations/color": refs("/docs/category/components", "/docs/category/patterns"),
		"02-components/button": "",
	}, BuildOptions{})
	require.Empty(t, errs)

	n, ok := g.Node(IndexPrefix + "category/components")
	require.True(t, ok)
	assert.Equal(t, IndexNode, n.Kind)
	assert.Equal(t, "02-components", n.Category)
	assert.Equal(t, 2, g.EdgeCount())

	m := Analyze(g, AnalyzeOptions{})
	assert.InDelta(t, 2.0, m.Density, 1e-9, "index edges count toward density")
	assert.Empty(t, m.IsolatedCategories)
}

func TestBuild_ImportChecks(t *testing.T) {
	_, errs := build(t, map[string]string{
		"a/noimport": `<CrossRef related={[{ path: "/docs/a/x", label: "X" }, { path: "/docs/a/y", label: "Y" }]} />`,
		"a/unused":   importLine + "# Nothing here\n",
		"a/x":        "",
		"a/y":        "",
	}, BuildOptions{})
	assert.ElementsMatch(t, []ErrorKind{KindMissingImport, KindUnusedImport}, kinds(errs))

	_, errs = build(t, map[string]string{
		"a/wrong": "import CrossRef from '../CrossRef';\n" + refs("/docs/a/x", "/docs/a/y")[len(importLine):],
		"a/x":     "",
		"a/y":     "",
	}, BuildOptions{ImportPath: directive.DefaultImportPath})
	assert.Equal(t, []ErrorKind{KindMissingImport}, kinds(errs))

	_, errs = build(t, map[string]string{
		"a/unused": importLine,
	}, BuildOptions{SkipImportChecks: true})
	assert.Empty(t, errs)
}

func TestBuild_MultipleDirectives(t *testing.T) {
	body := refs("/docs/a/x", "/docs/a/y") + "\n<CrossRef related={[]} />\n"
	g, errs := build(t, map[string]string{"a/src": body, "a/x": "", "a/y": ""}, BuildOptions{})
	assert.Equal(t, []ErrorKind{KindMultipleDirectives}, kinds(errs))
	assert.Equal(t, 2, g.EdgeCount())
}

func TestBuild_IsDeterministic(t *testing.T) {
	corpus := map[string]string{
		"a/one":   refs("/docs/b/two", "/docs/a/gone", "/docs/c/three"),
		"b/two":   refs("/docs/a/one"),
		"c/three": refs("/docs/c/three", "/docs/b/two"),
	}
	g1, e1 := build(t, corpus, BuildOptions{})
	g2, e2 := build(t, corpus, BuildOptions{})
	assert.Equal(t, e1, e2)
	assert.Equal(t, g1.Snapshot(), g2.Snapshot())
	assert.Equal(t, Analyze(g1, AnalyzeOptions{}), Analyze(g2, AnalyzeOptions{}))
}

func TestAnalyze_NoDeclarations(t *testing.T) {
	g, errs := build(t, map[string]string{"a/one": "# One\n", "b/two": "# Two\n"}, BuildOptions{})
	require.Empty(t, errs)

	m := Analyze(g, AnalyzeOptions{})
	assert.Zero(t, m.Density)
	assert.Zero(t, m.EdgeCount)
	assert.Zero(t, m.OrphanCount)
	assert.Empty(t, m.IsolatedCategories)
	assert.Empty(t, m.CircularPairs)
	assert.Equal(t, 2, m.TotalDocuments)
	assert.NotNil(t, m.Orphans)
}

func TestAnalyze_Orphans(t *testing.T) {
	g, _ := build(t, map[string]string{
		"a/hub":   refs("/docs/a/one", "/docs/a/two"),
		"a/one":   refs("/docs/a/two", "/docs/a/hub"),
		"a/two":   refs("/docs/a/one", "/docs/a/lone"),
		"a/lone":  "",
		"a/loner": refs("/docs/a/one", "/docs/a/two"),
	}, BuildOptions{})

	assert.Equal(t, []string{"a/loner"}, Orphans(g))
}

func TestAnalyze_NoOrphansWithoutEdges(t *testing.T) {
	g, _ := build(t, map[string]string{
		"a/one": refs("/docs/a/gone"),
		"a/two": refs("/docs/b/gone"),
	}, BuildOptions{})
	require.Equal(t, 0, g.EdgeCount())
	require.Len(t, g.Declaring(), 2)

	assert.Empty(t, Orphans(g))
	assert.Zero(t, Analyze(g, AnalyzeOptions{}).OrphanCount)
}

func TestAnalyze_CircularPairs(t *testing.T) {
	g, _ := build(t, map[string]string{
		"a/p": refs("/docs/a/q"),
		"a/q": refs("/docs/a/p"),
		"a/r": refs("/docs/a/s"),
		"a/s": refs("/docs/a/r", "/docs/a/p"),
		"a/u": refs("/docs/a/v"),
		"a/v": refs("/docs/a/w"),
		"a/w": refs("/docs/a/v"),
	}, BuildOptions{})

	pairs := CircularPairs(g)
	assert.Equal(t, []CircularPair{{A: "a/p", B: "a/q"}, {A: "a/v", B: "a/w"}}, pairs)
}

func TestAnalyze_IsolatedCategories(t *testing.T) {
	g, _ := build(t, map[string]string{
		"a/one":   refs("/docs/b/two", "/docs/c/three"),
		"b/two":   refs("/docs/a/one", "/docs/b/four"),
		"b/four":  refs("/docs/b/two", "/docs/a/one"),
		"c/three": refs("/docs/c/five", "/docs/c/six"),
		"c/five":  "",
		"c/six":   "",
	}, BuildOptions{})

	assert.Equal(t, []string{"b", "c"}, IsolatedCategories(g, 2))
	assert.Equal(t, []string{"c"}, IsolatedCategories(g, 1))

	adj := CategoryAdjacency(g)
	require.Len(t, adj, 3)
	assert.Equal(t, CategoryLinks{Category: "a", Targets: []string{"b", "c"}}, adj[0])
	assert.Equal(t, CategoryLinks{Category: "c", Targets: []string{}}, adj[2])
}

func TestAnalyze_RootDocumentsHaveNoCategory(t *testing.T) {
	g, _ := build(t, map[string]string{
		"intro": refs("/docs/a/one", "/docs/b/two"),
		"a/one": "",
		"b/two": "",
	}, BuildOptions{})
	assert.Empty(t, CategoryAdjacency(g))
	assert.Empty(t, IsolatedCategories(g, 2))
}

func TestAnalyze_CoverageAndReciprocity(t *testing.T) {
	g, _ := build(t, map[string]string{
		"a/one":   refs("/docs/a/two", "/docs/a/three"),
		"a/two":   refs("/docs/a/one", "/docs/a/three"),
		"a/three": "",
		"a/four":  "",
	}, BuildOptions{})

	assert.InDelta(t, 0.5, Coverage(g), 1e-9)
	assert.InDelta(t, 1.0, Reciprocity(g), 1e-9, "only the one↔two edges are between declaring documents")
}

func TestStructuralError_String(t *testing.T) {
	e := StructuralError{Kind: KindDangling, Source: "a/b", Detail: "gone", Line: 7}
	assert.Equal(t, "a/b:7: dangling: gone", e.String())
	e.Line = 0
	assert.Equal(t, "a/b: dangling: gone", e.String())
}

func TestCountByKind(t *testing.T) {
	counts := CountByKind([]StructuralError{{Kind: KindDangling}, {Kind: KindDangling}, {Kind: KindDuplicate}})
	assert.Equal(t, 2, counts[KindDangling])
	assert.Equal(t, 1, counts[KindDuplicate])
	assert.True(t, ValidKind(KindMissingImport))
	assert.False(t, ValidKind("bogus"))
}
