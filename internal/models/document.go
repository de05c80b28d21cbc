// Package models defines the domain types for refgraph.
package models

import "strings"

// Identity is the stored identity of a document: its category directory and
// its slug, both exactly as they appear on disk (numeric ordering prefixes
// included).
type Identity struct {
	Category string `json:"category"`
	Slug     string `json:"slug"`
}

// String renders the identity as "category/slug", or just the slug for
// root-level documents.
func (id Identity) String() string {
	if id.Category == "" {
		return id.Slug
	}
	return id.Category + "/" + id.Slug
}

// ParseIdentity splits "category/slug" back into an Identity. A value without
// a separator is a root-level document.
func ParseIdentity(s string) Identity {
	s = strings.Trim(s, "/")
	if i := strings.Index(s, "/"); i >= 0 {
		return Identity{Category: s[:i], Slug: s[i+1:]}
	}
	return Identity{Slug: s}
}

// Document is one article of the corpus, loaded once per audit run.
type Document struct {
	ID    Identity `json:"id"`
	Path  string   `json:"path"`
	Title string   `json:"title,omitempty"`
	Body  string   `json:"-"`
}

// RefEntry is one {path, label} pair of a reference declaration.
type RefEntry struct {
	Path  string `json:"path"`
	Label string `json:"label"`
	Line  int    `json:"line"`
}
