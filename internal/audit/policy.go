package audit

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/refgraph/internal/linkgraph"
)

// Policy holds the thresholds that decide whether a report passes. The audit
// itself never judges severity; callers apply a Policy to a Report.
type Policy struct {
	// MaxOrphanRatio bounds orphans as a share of declaring documents.
	MaxOrphanRatio float64 `yaml:"max_orphan_ratio" json:"max_orphan_ratio"`
	// MaxIsolatedRatio bounds isolated categories as a share of all documents.
	MaxIsolatedRatio float64 `yaml:"max_isolated_ratio" json:"max_isolated_ratio"`
	MinDensity       float64 `yaml:"min_density" json:"min_density"`
	MaxCircularPairs int     `yaml:"max_circular_pairs" json:"max_circular_pairs"`
	// FailOn lists the error kinds that fail the audit. Other kinds are
	// reported as warnings.
	FailOn []string `yaml:"fail_on" json:"fail_on"`
}

// DefaultPolicy returns the documentation site's standing thresholds.
func DefaultPolicy() Policy {
	kinds := make([]string, len(linkgraph.AllKinds))
	for i, k := range linkgraph.AllKinds {
		kinds[i] = string(k)
	}
	return Policy{
		MaxOrphanRatio:   0.35,
		MaxIsolatedRatio: 0.2,
		MinDensity:       1.5,
		MaxCircularPairs: 0,
		FailOn:           kinds,
	}
}

// Validate validates the policy thresholds.
func (p *Policy) Validate() error {
	known := make([]interface{}, len(linkgraph.AllKinds))
	for i, k := range linkgraph.AllKinds {
		known[i] = string(k)
	}
	return validation.ValidateStruct(p,
		validation.Field(&p.MaxOrphanRatio, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&p.MaxIsolatedRatio, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&p.MinDensity, validation.Min(0.0)),
		validation.Field(&p.MaxCircularPairs, validation.Min(0)),
		validation.Field(&p.FailOn, validation.Each(validation.In(known...))),
	)
}

// Violation is one failed policy rule.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Verdict is the outcome of applying a Policy to a Report.
type Verdict struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations"`
	Warnings   []Violation `json:"warnings"`
}

// Evaluate applies the policy to r.
func (p Policy) Evaluate(r *Report) Verdict {
	v := Verdict{Violations: []Violation{}, Warnings: []Violation{}}
	m := r.Metrics

	failing := make(map[linkgraph.ErrorKind]bool, len(p.FailOn))
	for _, k := range p.FailOn {
		failing[linkgraph.ErrorKind(k)] = true
	}
	counts := r.ErrorCounts()
	for _, k := range linkgraph.AllKinds {
		n := counts[k]
		if n == 0 {
			continue
		}
		item := Violation{Rule: string(k), Message: fmt.Sprintf("%d %s finding(s)", n, k)}
		if failing[k] {
			v.Violations = append(v.Violations, item)
		} else {
			v.Warnings = append(v.Warnings, item)
		}
	}

	if m.DeclaringDocuments == 0 {
		v.Warnings = append(v.Warnings, Violation{
			Rule:    "coverage",
			Message: "no document declares related articles",
		})
	} else {
		if limit := p.MaxOrphanRatio * float64(m.DeclaringDocuments); float64(m.OrphanCount) > limit {
			v.Violations = append(v.Violations, Violation{
				Rule: "orphans",
				Message: fmt.Sprintf("%d orphan documents, at most %.1f allowed (%.0f%% of %d declaring)",
					m.OrphanCount, limit, p.MaxOrphanRatio*100, m.DeclaringDocuments),
			})
		}
		if m.Density < p.MinDensity {
			v.Violations = append(v.Violations, Violation{
				Rule:    "density",
				Message: fmt.Sprintf("density %.2f below minimum %.2f", m.Density, p.MinDensity),
			})
		}
	}

	if limit := p.MaxIsolatedRatio * float64(m.TotalDocuments); float64(len(m.IsolatedCategories)) > limit {
		v.Violations = append(v.Violations, Violation{
			Rule: "isolated-categories",
			Message: fmt.Sprintf("%d isolated categories, at most %.1f allowed",
				len(m.IsolatedCategories), limit),
		})
	}
	if n := len(m.CircularPairs); n > p.MaxCircularPairs {
		v.Violations = append(v.Violations, Violation{
			Rule:    "circular-pairs",
			Message: fmt.Sprintf("%d circular-only pairs, at most %d allowed", n, p.MaxCircularPairs),
		})
	}

	v.Passed = len(v.Violations) == 0
	return v
}
