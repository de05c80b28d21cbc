package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/refgraph/internal/linkgraph"
)

type styles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	box     lipgloss.Style
}

// newStyles binds the palette to w so color is only emitted on terminals.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#2CD7C7")),
		heading: r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#6C7A89")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("#2CD7C7")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#F4D03F")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("#E74C3C")),
		box:     r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// Render writes a human-readable report to w.
func Render(w io.Writer, r *Report, v Verdict) error {
	s := newStyles(w)
	m := r.Metrics
	var b strings.Builder

	b.WriteString(s.title.Render("Cross-reference audit"))
	b.WriteString("\n\n")

	summary := []string{
		fmt.Sprintf("Documents:           %d", m.TotalDocuments),
		fmt.Sprintf("Declaring:           %d (%.1f%% coverage)", m.DeclaringDocuments, m.Coverage*100),
		fmt.Sprintf("Edges:               %d", m.EdgeCount),
		fmt.Sprintf("Density:             %.2f", m.Density),
		fmt.Sprintf("Reciprocity:         %.1f%%", m.Reciprocity*100),
		fmt.Sprintf("Orphans:             %d", m.OrphanCount),
		fmt.Sprintf("Isolated categories: %d", len(m.IsolatedCategories)),
		fmt.Sprintf("Circular-only pairs: %d", len(m.CircularPairs)),
		fmt.Sprintf("Fingerprint:         %s", shortFingerprint(r.Fingerprint)),
	}
	b.WriteString(s.box.Render(strings.Join(summary, "\n")))
	b.WriteString("\n")

	if len(r.Errors) > 0 {
		b.WriteString("\n" + s.heading.Render(fmt.Sprintf("Findings (%d)", len(r.Errors))) + "\n")
		for _, k := range linkgraph.AllKinds {
			for _, e := range r.Errors {
				if e.Kind == k {
					b.WriteString("  " + s.warn.Render(string(e.Kind)) + " " + location(e) + " " + e.Detail + "\n")
				}
			}
		}
	}

	listSection(&b, s, "Orphans", m.Orphans)
	listSection(&b, s, "Isolated categories", m.IsolatedCategories)
	if len(m.CircularPairs) > 0 {
		pairs := make([]string, len(m.CircularPairs))
		for i, p := range m.CircularPairs {
			pairs[i] = p.A + " <-> " + p.B
		}
		listSection(&b, s, "Circular-only pairs", pairs)
	}

	b.WriteString("\n")
	for _, item := range v.Violations {
		b.WriteString(s.fail.Render("✗ "+item.Rule) + ": " + item.Message + "\n")
	}
	for _, item := range v.Warnings {
		b.WriteString(s.warn.Render("⚠ "+item.Rule) + ": " + item.Message + "\n")
	}
	if v.Passed {
		b.WriteString(s.ok.Render("✓ audit passed") + "\n")
	} else {
		b.WriteString(s.fail.Render(fmt.Sprintf("✗ audit failed with %d violation(s)", len(v.Violations))) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func listSection(b *strings.Builder, s styles, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n" + s.heading.Render(fmt.Sprintf("%s (%d)", title, len(items))) + "\n")
	for _, it := range items {
		b.WriteString("  " + s.muted.Render("•") + " " + it + "\n")
	}
}

func location(e linkgraph.StructuralError) string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d", e.Source, e.Line)
	}
	return e.Source
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// Output is the JSON form of a report and its verdict.
type Output struct {
	Report  *Report            `json:"report"`
	Verdict Verdict            `json:"verdict"`
	Graph   linkgraph.Snapshot `json:"graph"`
}

// RenderJSON writes the report, verdict and graph as indented JSON.
func RenderJSON(w io.Writer, r *Report, v Verdict) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Output{Report: r, Verdict: v, Graph: r.Graph.Snapshot()}); err != nil {
		return fmt.Errorf("audit: encode report: %w", err)
	}
	return nil
}
