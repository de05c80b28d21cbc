// Package directive extracts related-article declarations from MDX documents.
//
// A declaration is a single JSX element of the form
//
//	<CrossRef related={[
//	  { path: "/docs/visual-foundations/color-system", label: "Color System" },
//	]} />
//
// Content inside fenced code blocks and inline code spans is ignored.
package directive

import (
	"fmt"
	"regexp"

	"github.com/starford/refgraph/internal/models"
)

// Defaults matching the documentation site's component library.
const (
	DefaultComponent  = "CrossRef"
	DefaultImportPath = "@site/src/components/CrossRef"
)

// State classifies the outcome of scanning one document.
type State int

const (
	// Absent means the document carries no declaration.
	Absent State = iota
	// Present means a declaration was found and parsed; Entries may be empty.
	Present
	// Malformed means a declaration was found but its array could not be parsed.
	Malformed
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Present:
		return "present"
	case Malformed:
		return "malformed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is the extraction outcome for one document.
type Result struct {
	State   State
	Entries []models.RefEntry
	// Line is the line of the (first) declaration, 0 when absent.
	Line int
	// Reason explains a Malformed result.
	Reason string
	// Count is the number of declarations found. Only the first is parsed.
	Count int
	// Used reports whether the component appears at all, with or without
	// a related attribute.
	Used bool
	// Imported reports whether the component is imported; ImportPath is the
	// module it is imported from.
	Imported   bool
	ImportPath string
}

// Extractor scans documents for declarations of one component.
type Extractor struct {
	component string
	startRe   *regexp.Regexp
	usageRe   *regexp.Regexp
	importRe  *regexp.Regexp
}

// New returns an Extractor for the named component. An empty name selects
// DefaultComponent.
func New(component string) *Extractor {
	if component == "" {
		component = DefaultComponent
	}
	q := regexp.QuoteMeta(component)
	return &Extractor{
		component: component,
		startRe:   regexp.MustCompile(`<` + q + `\s+related\s*=\s*\{`),
		usageRe:   regexp.MustCompile(`<` + q + `[\s/>]`),
		importRe:  regexp.MustCompile(`(?m)^\s*import\s+` + q + `\s+from\s+['"]([^'"]+)['"]`),
	}
}

// Component returns the component name this extractor looks for.
func (e *Extractor) Component() string { return e.component }

// Extract scans text and returns the declaration it carries.
func (e *Extractor) Extract(text string) Result {
	masked := string(maskCode([]byte(text)))

	var res Result
	res.Used = e.usageRe.MatchString(masked)
	if m := e.importRe.FindStringSubmatch(masked); m != nil {
		res.Imported = true
		res.ImportPath = m[1]
	}

	locs := e.startRe.FindAllStringIndex(masked, -1)
	res.Count = len(locs)
	if len(locs) == 0 {
		return res
	}

	first := locs[0]
	res.Line = lineAt(masked, first[0])

	payload, open, err := scanArray(masked, first[1])
	if err != nil {
		res.State = Malformed
		res.Reason = err.Error()
		return res
	}
	entries, err := parseLiteral(payload, lineAt(masked, open))
	if err != nil {
		res.State = Malformed
		res.Reason = err.Error()
		return res
	}

	res.State = Present
	res.Entries = entries
	return res
}
