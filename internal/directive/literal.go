package directive

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/refgraph/internal/models"
)

const strTag = "!!str"

// parseLiteral decodes an array literal of {path, label} records. The literal
// is read as a YAML flow sequence once scanArray has normalized it (strings
// requoted, separators spaced, comments dropped). Only a flat list of
// records with exactly the keys path and label and string values is accepted.
// firstLine is the line of the opening bracket in the document and is used to
// number the entries.
func parseLiteral(payload string, firstLine int) ([]models.RefEntry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(payload), &root); err != nil {
		return nil, fmt.Errorf("invalid array literal: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) != 1 {
		return nil, fmt.Errorf("invalid array literal: empty document")
	}
	seq := root.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, errNotArray
	}

	entries := make([]models.RefEntry, 0, len(seq.Content))
	for i, item := range seq.Content {
		entry, err := parseRecord(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entry.Line = firstLine + item.Line - 1
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseRecord(n *yaml.Node) (models.RefEntry, error) {
	var e models.RefEntry
	if n.Kind != yaml.MappingNode {
		return e, fmt.Errorf("not a {path, label} record")
	}
	if len(n.Content) != 4 {
		return e, fmt.Errorf("record must have exactly the fields path and label, got %d fields", len(n.Content)/2)
	}

	var havePath, haveLabel bool
	for i := 0; i < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Kind != yaml.ScalarNode || key.Tag != strTag {
			return e, fmt.Errorf("record key must be a name")
		}
		if val.Kind != yaml.ScalarNode || val.Tag != strTag {
			return e, fmt.Errorf("field %q must be a string", key.Value)
		}
		if val.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle) == 0 {
			return e, fmt.Errorf("field %q must be a quoted string literal", key.Value)
		}
		switch key.Value {
		case "path":
			if havePath {
				return e, fmt.Errorf("field path repeated")
			}
			havePath = true
			e.Path = val.Value
		case "label":
			if haveLabel {
				return e, fmt.Errorf("field label repeated")
			}
			haveLabel = true
			e.Label = val.Value
		default:
			return e, fmt.Errorf("unexpected field %q", key.Value)
		}
	}
	return e, nil
}
