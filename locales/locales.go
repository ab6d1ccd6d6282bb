// Package locales is the registry of locale codes a project translates into,
// with BCP 47 validation and display metadata (native names and emoji flags).
package locales

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes locale display metadata.
type Meta struct {
	Code    string
	Name    string // native name
	English string
	Flag    string
}

// Registry holds the configured locales. The base locale always comes first.
type Registry struct {
	base  string
	codes []string
}

// Canonical validates code as a BCP 47 tag and returns its canonical form.
// Underscores are accepted as separators ("pt_br" -> "pt-BR").
func Canonical(code string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if normalized == "" {
		return "", fmt.Errorf("empty locale code")
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("invalid locale %q: %w", code, err)
	}
	return tag.String(), nil
}

// New builds a registry from base and codes. Codes are canonicalized and
// deduplicated; base is added when missing.
func New(base string, codes []string) (*Registry, error) {
	b, err := Canonical(base)
	if err != nil {
		return nil, fmt.Errorf("base locale: %w", err)
	}

	all := []string{b}
	for _, c := range codes {
		canon, err := Canonical(c)
		if err != nil {
			return nil, err
		}
		all = append(all, canon)
	}
	return &Registry{base: b, codes: lo.Uniq(all)}, nil
}

// Base returns the base locale.
func (r *Registry) Base() string {
	return r.base
}

// All returns every configured locale, base first.
func (r *Registry) All() []string {
	return append([]string(nil), r.codes...)
}

// Others returns every configured locale except the base.
func (r *Registry) Others() []string {
	return lo.Without(r.codes, r.base)
}

// Has reports whether code (in any accepted spelling) is configured.
func (r *Registry) Has(code string) bool {
	canon, err := Canonical(code)
	if err != nil {
		return false
	}
	return lo.Contains(r.codes, canon)
}

// Add registers code and returns its canonical form. Adding a known code
// is a no-op.
func (r *Registry) Add(code string) (string, error) {
	canon, err := Canonical(code)
	if err != nil {
		return "", err
	}
	if !lo.Contains(r.codes, canon) {
		r.codes = append(r.codes, canon)
	}
	return canon, nil
}

// Missing returns the configured locales absent from have.
func (r *Registry) Missing(have []string) []string {
	return lo.Without(r.codes, have...)
}

// Resolve returns best-effort display metadata for code. Unknown codes are
// passed through as their own name.
func Resolve(code string) Meta {
	canon, err := Canonical(code)
	if err != nil {
		return Meta{Code: code, Name: code}
	}
	tag := language.Make(canon)

	m := Meta{Code: canon, Flag: flag(tag)}
	m.Name = display.Self.Name(tag)
	if m.Name == "" {
		m.Name = canon
	}
	m.English = display.English.Tags().Name(tag)
	if m.English == "" {
		m.English = canon
	}
	return m
}

// flag returns the emoji flag of the tag's region, inferring the most
// likely region when none is given ("fr" -> FR).
func flag(tag language.Tag) string {
	region, conf := tag.Region()
	if conf == language.No || !region.IsCountry() {
		return ""
	}
	code := region.String()
	if len(code) != 2 {
		return ""
	}
	var b strings.Builder
	for _, r := range code {
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}
