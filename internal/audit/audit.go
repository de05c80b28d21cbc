// Package audit runs the reference audit over a document corpus: extraction,
// resolution, graph building and analysis in one pure pass.
package audit

import (
	"context"
	"fmt"
	"sort"

	"github.com/starford/refgraph/internal/checksum"
	"github.com/starford/refgraph/internal/corpus"
	"github.com/starford/refgraph/internal/directive"
	"github.com/starford/refgraph/internal/linkgraph"
	"github.com/starford/refgraph/internal/models"
	"github.com/starford/refgraph/internal/resolve"
)

// Options configures a run. The zero value audits the default CrossRef
// component under /docs/ with default thresholds.
type Options struct {
	Component        string
	ImportPath       string
	RoutePrefix      string
	MinReferences    int
	MinCategoryLinks int
	SkipImportChecks bool
}

// Report is the outcome of one audit run.
type Report struct {
	Graph       *linkgraph.Graph            `json:"-"`
	Errors      []linkgraph.StructuralError `json:"errors"`
	Metrics     linkgraph.Metrics           `json:"metrics"`
	Fingerprint string                      `json:"fingerprint"`
	Documents   []models.Document           `json:"-"`
}

// ErrorCounts tallies the report's errors per kind.
func (r *Report) ErrorCounts() map[linkgraph.ErrorKind]int {
	return linkgraph.CountByKind(r.Errors)
}

// ErrorsFor returns the errors whose source is the given document.
func (r *Report) ErrorsFor(id string) []linkgraph.StructuralError {
	var out []linkgraph.StructuralError
	for _, e := range r.Errors {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// Document returns the corpus document with the given identity.
func (r *Report) Document(id string) (models.Document, bool) {
	i := sort.Search(len(r.Documents), func(i int) bool {
		return r.Documents[i].ID.String() >= id
	})
	if i < len(r.Documents) && r.Documents[i].ID.String() == id {
		return r.Documents[i], true
	}
	return models.Document{}, false
}

// Run audits docs. It is deterministic: the same corpus and options always
// produce the same report.
func Run(docs []models.Document, opts Options) *Report {
	sorted := make([]models.Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.String() < sorted[j].ID.String() })

	ex := directive.New(opts.Component)
	ids := make([]models.Identity, len(sorted))
	decls := make([]linkgraph.Declaration, len(sorted))
	for i, d := range sorted {
		ids[i] = d.ID
		decls[i] = linkgraph.Declaration{Doc: d, Result: ex.Extract(d.Body)}
	}

	r := resolve.New(ids, resolve.WithPrefix(opts.RoutePrefix))
	g, errs := linkgraph.Build(decls, r, len(sorted), linkgraph.BuildOptions{
		MinReferences:    opts.MinReferences,
		ImportPath:       opts.ImportPath,
		SkipImportChecks: opts.SkipImportChecks,
	})
	if errs == nil {
		errs = []linkgraph.StructuralError{}
	}

	return &Report{
		Graph:       g,
		Errors:      errs,
		Metrics:     linkgraph.Analyze(g, linkgraph.AnalyzeOptions{MinCategoryLinks: opts.MinCategoryLinks}),
		Fingerprint: checksum.Fingerprint(sorted),
		Documents:   sorted,
	}
}

// Auditor loads a corpus and audits it.
type Auditor struct {
	Loader  corpus.Loader
	Options Options
}

// Audit loads the corpus and runs the audit. Only loader failures are
// returned as errors; content problems are part of the report.
func (a *Auditor) Audit(ctx context.Context) (*Report, error) {
	docs, err := a.Loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: load corpus: %w", err)
	}
	return Run(docs, a.Options), nil
}
