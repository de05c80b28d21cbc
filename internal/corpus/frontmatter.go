package corpus

import (
	"bytes"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/refgraph/internal/models"
)

// NewDocument builds a Document from a corpus-relative file path and its raw
// bytes. The identity comes from the path; the title from frontmatter or the
// first H1.
func NewDocument(relPath string, data []byte) models.Document {
	relPath = strings.ReplaceAll(relPath, "\\", "/")
	fm, body := splitFrontmatter(data)
	return models.Document{
		ID:    IdentityFromPath(relPath),
		Path:  relPath,
		Title: deriveTitle(fm, body),
		Body:  string(data),
	}
}

// IdentityFromPath maps "02-visual-foundations/01-color-system.mdx" to
// {02-visual-foundations, 01-color-system}. Files directly under the root
// have no category.
func IdentityFromPath(relPath string) models.Identity {
	relPath = strings.Trim(strings.ReplaceAll(relPath, "\\", "/"), "/")
	stem := strings.TrimSuffix(relPath, path.Ext(relPath))
	if i := strings.Index(stem, "/"); i >= 0 {
		return models.Identity{Category: stem[:i], Slug: stem[i+1:]}
	}
	return models.Identity{Slug: stem}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. Missing or invalid frontmatter yields a nil map and the whole
// content as body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if t, ok := fm["title"].(string); ok && t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
