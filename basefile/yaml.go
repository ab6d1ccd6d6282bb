package basefile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/transunit/catalog"
)

// ParseYAML parses a YAML base file, preserving key order.
func ParseYAML(data []byte, locale string) ([]catalog.Pair, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	// yaml.Unmarshal wraps the document in a DocumentNode.
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	root, err := decodeYAML(doc.Content[0])
	if err != nil {
		return nil, err
	}
	return flatten(root, locale)
}

func decodeYAML(n *yaml.Node) (*node, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return decodeYAML(n.Alias)
	case yaml.ScalarNode:
		switch n.Tag {
		case "", "!!str", "!str":
			return leaf(n.Value), nil
		}
		return nil, fmt.Errorf("line %d: value %q is not a string (%s)", n.Line, n.Value, n.Tag)
	case yaml.MappingNode:
		obj := object()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			child, err := decodeYAML(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k.Value, err)
			}
			if err := obj.set(k.Value, child); err != nil {
				return nil, fmt.Errorf("line %d: %w", k.Line, err)
			}
		}
		return obj, nil
	}
	return nil, fmt.Errorf("line %d: sequences are not supported", n.Line)
}
