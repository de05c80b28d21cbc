package linkgraph

import "fmt"

// ErrorKind tags a StructuralError.
type ErrorKind string

const (
	KindDangling           ErrorKind = "dangling"
	KindSelfReference      ErrorKind = "self-reference"
	KindDuplicate          ErrorKind = "duplicate"
	KindUnderPopulated     ErrorKind = "under-populated"
	KindMalformedDirective ErrorKind = "malformed-directive"
	KindAmbiguousPath      ErrorKind = "ambiguous-path"
	KindMissingImport      ErrorKind = "missing-import"
	KindUnusedImport       ErrorKind = "unused-import"
	KindMultipleDirectives ErrorKind = "multiple-directives"
)

// AllKinds lists every error kind in report order.
var AllKinds = []ErrorKind{
	KindMalformedDirective,
	KindMultipleDirectives,
	KindMissingImport,
	KindUnusedImport,
	KindUnderPopulated,
	KindDangling,
	KindAmbiguousPath,
	KindSelfReference,
	KindDuplicate,
}

// ValidKind reports whether k is a known error kind.
func ValidKind(k ErrorKind) bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// StructuralError is one content problem found while building the graph.
// It is data for the report, not a Go error.
type StructuralError struct {
	Kind   ErrorKind `json:"kind"`
	Source string    `json:"source"`
	Detail string    `json:"detail"`
	Path   string    `json:"path,omitempty"`
	Line   int       `json:"line,omitempty"`
}

func (e StructuralError) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.Source, e.Line, e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Kind, e.Detail)
}

// CountByKind tallies errors per kind.
func CountByKind(errs []StructuralError) map[ErrorKind]int {
	out := make(map[ErrorKind]int)
	for _, e := range errs {
		out[e.Kind]++
	}
	return out
}
