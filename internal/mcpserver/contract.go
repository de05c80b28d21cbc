package mcpserver

// CrossRefContract describes how documents declare related articles so that
// LLM consumers writing or fixing documentation produce auditable markup.
const CrossRefContract = `# CrossRef Declaration Contract

Every MDX document that links to related articles declares them with exactly
one CrossRef element.

## Structure

` + "```" + `mdx
import CrossRef from '@site/src/components/CrossRef';

# Page title

...

<CrossRef related={[
  { path: "/docs/visual-foundations/color-system", label: "Color System" },
  { path: "/docs/components/button", label: "Button" },
]} />
` + "```" + `

## Rules

1. **Import the component** from ` + "`" + `@site/src/components/CrossRef` + "`" + `. Using it without
   the import, or importing it without using it, is reported.
2. **One element per document.** Only the first one is read; extra ones are reported.
3. **At least two entries.** Fewer is reported as under-populated. Every entry
   needs a non-empty ` + "`" + `label` + "`" + `.
4. **Paths are site routes**: ` + "`" + `/docs/<category>/<slug>` + "`" + ` with numeric order
   prefixes dropped (` + "`" + `01-foundations/02-color.mdx` + "`" + ` is ` + "`" + `/docs/foundations/color` + "`" + `).
   ` + "`" + `/docs/<category>` + "`" + ` targets the category index page.
5. **Targets must exist.** A path that matches no document is dangling. A path
   matching several documents is ambiguous.
6. **No self references and no duplicates** within one element.
7. **The array is a literal**: strings in single or double quotes, unquoted or
   quoted keys, trailing commas allowed. No variables, spreads or template
   expressions.
8. **Examples inside code fences or inline code are ignored.**

## Graph health

- Every declaring document should be referenced by at least one other document.
- Each category should link into at least two other categories.
- Two documents that only reference each other form a closed loop; link them
  onward.
- Aim for an average of at least 1.5 references per declaring document.
`
