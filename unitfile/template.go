package unitfile

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed root.template.ts
var defaultTemplate []byte

// DefaultTemplate returns the built-in root unit template.
func DefaultTemplate() []byte {
	return append([]byte(nil), defaultTemplate...)
}

// LoadTemplate reads a template from path, or returns the built-in one
// when path is empty.
func LoadTemplate(path string) ([]byte, error) {
	if path == "" {
		return DefaultTemplate(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", path, err)
	}
	return data, nil
}

// FromTemplate builds a new unit at path from template data, making sure
// every locale in locales has a (possibly empty) table.
func FromTemplate(tmpl []byte, path string, locales []string) (*File, error) {
	f, err := Parse(path, tmpl)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	for _, loc := range locales {
		f.Catalog.EnsureTable(loc)
	}
	return f, nil
}
