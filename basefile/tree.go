package basefile

import (
	"fmt"

	"github.com/minios-linux/transunit/catalog"
)

// node is an ordered, format-neutral view of a decoded document.
type node struct {
	text   *string
	keys   []string
	fields map[string]*node
}

func leaf(s string) *node {
	return &node{text: &s}
}

func object() *node {
	return &node{fields: make(map[string]*node)}
}

func (n *node) isObject() bool {
	return n.fields != nil
}

func (n *node) set(key string, v *node) error {
	if _, ok := n.fields[key]; ok {
		return fmt.Errorf("duplicate key %q", key)
	}
	n.keys = append(n.keys, key)
	n.fields[key] = v
	return nil
}

// flatten turns a decoded document into pairs.
func flatten(root *node, locale string) ([]catalog.Pair, error) {
	if root == nil {
		return nil, nil
	}
	if !root.isObject() {
		return nil, fmt.Errorf("document root must be a map")
	}
	if len(root.keys) == 1 && root.keys[0] == locale && root.fields[locale].isObject() {
		root = root.fields[locale]
	}

	c := newCollector()
	if err := walk(root, "", c); err != nil {
		return nil, err
	}
	return c.pairs, nil
}

func walk(n *node, prefix string, c *collector) error {
	for _, k := range n.keys {
		child := n.fields[k]
		id := joinPath(prefix, k)

		if !child.isObject() {
			if err := c.add(id, catalog.Singular(*child.text)); err != nil {
				return err
			}
			continue
		}

		texts := make(map[string]string, len(child.keys))
		for _, ck := range child.keys {
			if t := child.fields[ck].text; t != nil {
				texts[ck] = *t
			}
		}
		v, isPlural, err := pluralFrom(child.keys, texts)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		if isPlural {
			if len(texts) != len(child.keys) {
				return fmt.Errorf("%s: plural variants must be strings", id)
			}
			if err := c.add(id, v); err != nil {
				return err
			}
			continue
		}
		if err := walk(child, id, c); err != nil {
			return err
		}
	}
	return nil
}
