package linkgraph

import "sort"

// DefaultMinCategoryLinks is the number of distinct other categories a
// category must link to before it stops counting as isolated.
const DefaultMinCategoryLinks = 2

// AnalyzeOptions tunes the connectivity analysis.
type AnalyzeOptions struct {
	// MinCategoryLinks is the isolation threshold. Zero selects
	// DefaultMinCategoryLinks.
	MinCategoryLinks int
}

// CircularPair is two declaring documents whose only reference is each other.
// A sorts before B.
type CircularPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// CategoryLinks lists the other categories a category links out to.
type CategoryLinks struct {
	Category string   `json:"category"`
	Targets  []string `json:"targets"`
}

// Metrics is the connectivity summary of a graph.
type Metrics struct {
	TotalDocuments     int             `json:"total_documents"`
	DeclaringDocuments int             `json:"declaring_documents"`
	NodeCount          int             `json:"node_count"`
	EdgeCount          int             `json:"edge_count"`
	OrphanCount        int             `json:"orphan_count"`
	Orphans            []string        `json:"orphans"`
	IsolatedCategories []string        `json:"isolated_categories"`
	CircularPairs      []CircularPair  `json:"circular_pairs"`
	Density            float64         `json:"density"`
	Coverage           float64         `json:"coverage"`
	Reciprocity        float64         `json:"reciprocity"`
	CategoryAdjacency  []CategoryLinks `json:"category_adjacency"`
}

// Analyze computes every metric over g.
func Analyze(g *Graph, opts AnalyzeOptions) Metrics {
	orphans := Orphans(g)
	return Metrics{
		TotalDocuments:     g.DocumentCount(),
		DeclaringDocuments: len(g.Declaring()),
		NodeCount:          len(g.nodes),
		EdgeCount:          g.EdgeCount(),
		OrphanCount:        len(orphans),
		Orphans:            nonNil(orphans),
		IsolatedCategories: nonNil(IsolatedCategories(g, opts.MinCategoryLinks)),
		CircularPairs:      nonNil(CircularPairs(g)),
		Density:            Density(g),
		Coverage:           Coverage(g),
		Reciprocity:        Reciprocity(g),
		CategoryAdjacency:  nonNil(CategoryAdjacency(g)),
	}
}

// Orphans returns the declaring documents no other document links to.
// Index nodes and documents that only appear as targets never qualify, and a
// graph without edges has no orphans.
func Orphans(g *Graph) []string {
	if g.EdgeCount() == 0 {
		return nil
	}
	var out []string
	for _, id := range g.Declaring() {
		if g.InDegree(id) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// CategoryAdjacency returns, for every category with declaring documents, the
// distinct other categories its documents link to. Index pages count toward
// the category they land on. Root-level documents have no category and are
// left out.
func CategoryAdjacency(g *Graph) []CategoryLinks {
	adj := make(map[string]map[string]struct{})
	for _, id := range g.Declaring() {
		cat := g.nodes[id].Category
		if cat == "" {
			continue
		}
		if _, ok := adj[cat]; !ok {
			adj[cat] = make(map[string]struct{})
		}
	}
	for _, e := range g.edges {
		src := g.nodes[e.Source]
		dst := g.nodes[e.Target]
		if src.Category == "" || dst.Category == "" || src.Category == dst.Category {
			continue
		}
		adj[src.Category][dst.Category] = struct{}{}
	}

	out := make([]CategoryLinks, 0, len(adj))
	for cat, targets := range adj {
		cl := CategoryLinks{Category: cat, Targets: make([]string, 0, len(targets))}
		for t := range targets {
			cl.Targets = append(cl.Targets, t)
		}
		sort.Strings(cl.Targets)
		out = append(out, cl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// IsolatedCategories returns the categories linking to fewer than minLinks
// distinct other categories. A minLinks of zero or less selects
// DefaultMinCategoryLinks.
func IsolatedCategories(g *Graph, minLinks int) []string {
	if minLinks <= 0 {
		minLinks = DefaultMinCategoryLinks
	}
	var out []string
	for _, cl := range CategoryAdjacency(g) {
		if len(cl.Targets) < minLinks {
			out = append(out, cl.Category)
		}
	}
	return out
}

// CircularPairs returns the pairs of declaring documents whose entire
// outgoing edge sets are exactly each other. Each pair is reported once.
func CircularPairs(g *Graph) []CircularPair {
	visited := make(map[string]bool)
	var out []CircularPair
	for _, a := range g.Declaring() {
		if visited[a] || len(g.out[a]) != 1 {
			continue
		}
		b := g.out[a][0]
		if n, ok := g.nodes[b]; !ok || !n.Declaring || visited[b] {
			continue
		}
		if len(g.out[b]) != 1 || g.out[b][0] != a {
			continue
		}
		visited[a], visited[b] = true, true
		if b < a {
			a, b = b, a
		}
		out = append(out, CircularPair{A: a, B: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].A < out[j].A })
	return out
}

// Density is the average out-degree over declaring documents, or zero when
// nothing declares references.
func Density(g *Graph) float64 {
	n := len(g.Declaring())
	if n == 0 {
		return 0
	}
	return float64(g.EdgeCount()) / float64(n)
}

// Coverage is the share of corpus documents carrying a declaration.
func Coverage(g *Graph) float64 {
	if g.documents == 0 {
		return 0
	}
	return float64(len(g.Declaring())) / float64(g.documents)
}

// Reciprocity is the share of edges between declaring documents whose
// reverse edge also exists. Zero when there are no such edges.
func Reciprocity(g *Graph) float64 {
	var eligible, mutual int
	for _, e := range g.edges {
		dst := g.nodes[e.Target]
		if !dst.Declaring {
			continue
		}
		eligible++
		if g.HasEdge(e.Target, e.Source) {
			mutual++
		}
	}
	if eligible == 0 {
		return 0
	}
	return float64(mutual) / float64(eligible)
}
