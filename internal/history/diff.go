package history

import (
	"context"

	"github.com/starford/refgraph/internal/linkgraph"
)

// Diff lists how findings changed between two runs.
type Diff struct {
	From     string                      `json:"from"`
	To       string                      `json:"to"`
	Added    []linkgraph.StructuralError `json:"added"`
	Resolved []linkgraph.StructuralError `json:"resolved"`
}

// findingKey identifies a finding across runs. Line numbers are left out so
// edits elsewhere in a document do not show up as churn.
func findingKey(e linkgraph.StructuralError) string {
	return string(e.Kind) + "\x00" + e.Source + "\x00" + e.Path + "\x00" + e.Detail
}

// Diff compares the findings of run fromID with those of run toID.
func (db *DB) Diff(ctx context.Context, fromID, toID string) (*Diff, error) {
	from, err := db.Findings(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := db.Findings(ctx, toID)
	if err != nil {
		return nil, err
	}
	added, resolved := diffFindings(from, to)
	return &Diff{From: fromID, To: toID, Added: added, Resolved: resolved}, nil
}

func diffFindings(from, to []linkgraph.StructuralError) (added, resolved []linkgraph.StructuralError) {
	count := func(errs []linkgraph.StructuralError) map[string]int {
		m := make(map[string]int, len(errs))
		for _, e := range errs {
			m[findingKey(e)]++
		}
		return m
	}
	before, after := count(from), count(to)

	added = []linkgraph.StructuralError{}
	for _, e := range to {
		k := findingKey(e)
		if before[k] > 0 {
			before[k]--
			continue
		}
		added = append(added, e)
	}
	resolved = []linkgraph.StructuralError{}
	for _, e := range from {
		k := findingKey(e)
		if after[k] > 0 {
			after[k]--
			continue
		}
		resolved = append(resolved, e)
	}
	return added, resolved
}
