// Package linkgraph builds the directed graph of related-article declarations
// and computes its connectivity metrics.
package linkgraph

import (
	"sort"
)

// IndexPrefix prefixes the IDs of synthetic category index nodes.
const IndexPrefix = "index:"

// NodeKind distinguishes real documents from synthetic index pages.
type NodeKind string

const (
	DocumentNode NodeKind = "document"
	IndexNode    NodeKind = "index"
)

// Node is a graph vertex.
type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Category string   `json:"category,omitempty"`
	// Declaring is true for documents that carry a parsed declaration.
	Declaring bool `json:"declaring"`
}

// Edge is a directed reference from one document to another node.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
	Line   int    `json:"line,omitempty"`
}

// Graph is the link graph of one audit run. It is built once by Build and
// is read-only afterwards.
type Graph struct {
	documents int
	nodes     map[string]*Node
	out       map[string][]string
	in        map[string][]string
	edges     []Edge
}

func newGraph(documents int) *Graph {
	return &Graph{
		documents: documents,
		nodes:     make(map[string]*Node),
		out:       make(map[string][]string),
		in:        make(map[string][]string),
	}
}

func (g *Graph) ensureNode(id string, kind NodeKind, category string) *Node {
	n, ok := g.nodes[id]
	if !ok {
		n = &Node{ID: id, Kind: kind, Category: category}
		g.nodes[id] = n
	}
	return n
}

func (g *Graph) addEdge(e Edge) {
	g.out[e.Source] = append(g.out[e.Source], e.Target)
	g.in[e.Target] = append(g.in[e.Target], e.Source)
	g.edges = append(g.edges, e)
}

// DocumentCount is the number of documents in the audited corpus, whether or
// not they appear in the graph.
func (g *Graph) DocumentCount() int { return g.documents }

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns all nodes sorted by ID.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Declaring returns the IDs of declaring documents, sorted.
func (g *Graph) Declaring() []string {
	var out []string
	for id, n := range g.nodes {
		if n.Declaring {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Edges returns all edges sorted by source, then target.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Out returns the targets of id's outgoing edges, sorted.
func (g *Graph) Out(id string) []string { return sortedCopy(g.out[id]) }

// In returns the sources of id's incoming edges, sorted.
func (g *Graph) In(id string) []string { return sortedCopy(g.in[id]) }

// OutDegree returns the number of outgoing edges of id.
func (g *Graph) OutDegree(id string) int { return len(g.out[id]) }

// InDegree returns the number of incoming edges of id.
func (g *Graph) InDegree(id string) int { return len(g.in[id]) }

// HasEdge reports whether the edge source→target exists.
func (g *Graph) HasEdge(source, target string) bool {
	for _, t := range g.out[source] {
		if t == target {
			return true
		}
	}
	return false
}

// Snapshot is a serializable view of the graph.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Snapshot returns the nodes and edges in deterministic order.
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{Nodes: nonNil(g.Nodes()), Edges: nonNil(g.Edges())}
}

func sortedCopy(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	sort.Strings(out)
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
