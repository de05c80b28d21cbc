// Package resolve maps declared article paths to stored document identities.
package resolve

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/starford/refgraph/internal/models"
)

// DefaultPrefix is the route prefix every declared path must start with.
const DefaultPrefix = "/docs/"

// indexSegment marks an auto-generated category landing page.
const indexSegment = "category"

var orderPrefixRe = regexp.MustCompile(`^\d+-`)

// Kind classifies a resolution.
type Kind int

const (
	Unresolved Kind = iota
	Resolved
	IndexPage
	Ambiguous
	Malformed
)

func (k Kind) String() string {
	switch k {
	case Unresolved:
		return "unresolved"
	case Resolved:
		return "resolved"
	case IndexPage:
		return "index-page"
	case Ambiguous:
		return "ambiguous"
	case Malformed:
		return "malformed"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Resolution is the classified result for one declared path.
type Resolution struct {
	Kind Kind
	// Path is the declared path as written.
	Path string
	// Target is set when Kind is Resolved.
	Target models.Identity
	// IndexKey identifies the synthetic index node when Kind is IndexPage,
	// e.g. "category/visual-foundations".
	IndexKey string
	// IndexCategory is the stored category the index page belongs to, or
	// its alias when no stored category matches.
	IndexCategory string
	// Candidates lists the competing identities when Kind is Ambiguous.
	Candidates []models.Identity
	// Reason explains a Malformed result.
	Reason string
}

// Resolver resolves declared paths against a fixed set of identities.
// It is read-only after construction and safe for concurrent use.
type Resolver struct {
	prefix     string
	byAlias    map[string][]models.Identity
	categories map[string][]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPrefix sets the route prefix, e.g. "/handbook/".
func WithPrefix(prefix string) Option {
	return func(r *Resolver) {
		if prefix == "" {
			return
		}
		if !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		r.prefix = prefix
	}
}

// New builds a Resolver over ids.
func New(ids []models.Identity, opts ...Option) *Resolver {
	r := &Resolver{
		prefix:     DefaultPrefix,
		byAlias:    make(map[string][]models.Identity, len(ids)),
		categories: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(r)
	}

	seenCat := make(map[string]struct{})
	for _, id := range ids {
		key := aliasKey(id.Category, strings.Split(id.Slug, "/"))
		r.byAlias[key] = append(r.byAlias[key], id)

		if _, ok := seenCat[id.Category]; !ok && id.Category != "" {
			seenCat[id.Category] = struct{}{}
			alias := StripOrder(id.Category)
			r.categories[alias] = append(r.categories[alias], id.Category)
		}
	}
	for k := range r.byAlias {
		sortIdentities(r.byAlias[k])
	}
	return r
}

// Prefix returns the route prefix in use.
func (r *Resolver) Prefix() string { return r.prefix }

// StripOrder removes a leading numeric ordering prefix such as "02-".
func StripOrder(segment string) string {
	return orderPrefixRe.ReplaceAllString(segment, "")
}

// Resolve classifies a declared path. It never panics.
func (r *Resolver) Resolve(path string) Resolution {
	res := Resolution{Path: path}

	clean := path
	if i := strings.IndexAny(clean, "#?"); i >= 0 {
		clean = clean[:i]
	}

	if reason := r.checkFormat(clean); reason != "" {
		res.Kind = Malformed
		res.Reason = reason
		return res
	}

	rest := strings.TrimPrefix(clean, r.prefix)
	segs := strings.Split(rest, "/")

	// An index segment must be followed by another segment; a trailing
	// "category" is an ordinary slug.
	for i := 0; i+1 < len(segs); i++ {
		if segs[i] != indexSegment {
			continue
		}
		res.Kind = IndexPage
		res.IndexKey = rest
		res.IndexCategory = r.categoryFor(segs[i+1])
		return res
	}

	var key string
	if len(segs) == 1 {
		key = aliasKey("", segs)
	} else {
		key = aliasKey(segs[0], segs[1:])
	}

	matches := r.byAlias[key]
	switch len(matches) {
	case 0:
		res.Kind = Unresolved
	case 1:
		res.Kind = Resolved
		res.Target = matches[0]
	default:
		res.Kind = Ambiguous
		res.Candidates = append([]models.Identity(nil), matches...)
	}
	return res
}

// categoryFor returns the stored category for a declared category alias,
// or the stripped alias itself when it does not name exactly one stored
// category.
func (r *Resolver) categoryFor(alias string) string {
	stripped := StripOrder(alias)
	if stored := r.categories[stripped]; len(stored) == 1 {
		return stored[0]
	}
	return stripped
}

func (r *Resolver) checkFormat(p string) string {
	switch {
	case !strings.HasPrefix(p, r.prefix):
		return fmt.Sprintf("path must start with %s", r.prefix)
	case p == r.prefix || strings.TrimPrefix(p, r.prefix) == "":
		return "path names no document"
	case strings.HasSuffix(p, "/"):
		return "path must not end with a slash"
	case strings.Contains(p, "//"):
		return "path must not contain empty segments"
	case strings.HasSuffix(p, ".md") || strings.HasSuffix(p, ".mdx"):
		return "path must not carry a file extension"
	}
	return ""
}

func aliasKey(category string, slug []string) string {
	parts := make([]string, len(slug))
	for i, s := range slug {
		parts[i] = StripOrder(s)
	}
	return StripOrder(category) + "/" + strings.Join(parts, "/")
}

func sortIdentities(ids []models.Identity) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
