// Package basefile reads the incoming base-locale table fed to a merge.
//
// Both JSON and YAML files are nested maps with string leaves. Nested keys
// are joined with dots, and a map holding exactly the variants zero, one
// and other is a plural value:
//
//	greeting: Hello
//	nav:
//	  home: Home
//	items:
//	  zero: No items
//	  one: One item
//	  other: "{n} items"
//
// When the whole document is wrapped in a single key equal to the base
// locale (Rails i18n style, "en:"), that level is skipped. Document order
// is preserved.
package basefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minios-linux/transunit/catalog"
)

// Read parses the base file at path. The format is picked from the
// extension (.json, .yaml, .yml).
func Read(path, locale string) ([]catalog.Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var pairs []catalog.Pair
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		pairs, err = ParseJSON(data, locale)
	case ".yaml", ".yml":
		pairs, err = ParseYAML(data, locale)
	default:
		return nil, fmt.Errorf("%s: unsupported base file format (want .json, .yaml or .yml)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pairs, nil
}

// collector accumulates pairs and rejects duplicate ids.
type collector struct {
	pairs []catalog.Pair
	seen  map[string]bool
}

func newCollector() *collector {
	return &collector{seen: make(map[string]bool)}
}

func (c *collector) add(id string, v catalog.Value) error {
	if c.seen[id] {
		return fmt.Errorf("duplicate id %q", id)
	}
	c.seen[id] = true
	c.pairs = append(c.pairs, catalog.Pair{ID: id, Value: v})
	return nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// pluralFrom builds a plural value from a map whose keys are all variant
// names. ok is false when keys is not such a map.
func pluralFrom(keys []string, values map[string]string) (catalog.Value, bool, error) {
	if len(keys) == 0 {
		return catalog.Value{}, false, nil
	}
	for _, k := range keys {
		if !isVariant(k) {
			return catalog.Value{}, false, nil
		}
	}
	for _, v := range catalog.PluralVariants {
		if _, ok := values[v]; !ok {
			return catalog.Value{}, true, fmt.Errorf("plural value is missing the %q variant", v)
		}
	}
	return catalog.PluralValue(values["zero"], values["one"], values["other"]), true, nil
}

func isVariant(k string) bool {
	for _, v := range catalog.PluralVariants {
		if k == v {
			return true
		}
	}
	return false
}
