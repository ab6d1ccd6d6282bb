// Package unitfile implements reading and writing of translation unit files.
//
// A unit file is a small TypeScript module:
//
//	import { mergeTranslations } from '@/i18n/merge'
//	import t_components_button from '@/components/button/translations'
//	import type { TranslationTable } from '@/i18n/types'
//
//	const translations: TranslationTable = {
//	  en: {
//	    greeting: 'Hello',
//	    'nav.home': 'Home',
//	    items: { zero: 'No items', one: 'One item', other: '{n} items' },
//	    ...shared.en,
//	  },
//	  fr: {
//	    // @stale
//	    greeting: 'Bonjour',
//	  },
//	}
//
//	mergeTranslations(
//	  translations,
//	  t_components_button,
//	)
//
//	export default translations
//
// Only the table literal is modelled (as a catalog.Catalog); the text before
// and after it is carried through verbatim. Import and merge-invocation
// lines are maintained by package imports.
package unitfile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/minios-linux/transunit/catalog"
)

// StaleMarker is the comment that flags an entry as out of sync.
const StaleMarker = "// @stale"

// SyntaxError reports a malformed unit file. Path, Locale and ID are filled
// in as far as they are known.
type SyntaxError struct {
	Path   string
	Locale string
	ID     string
	Line   int
	Msg    string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
	} else {
		b.WriteString("<unit>")
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.Locale != "" {
		fmt.Fprintf(&b, ": locale %q", e.Locale)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, ": id %q", e.ID)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

// ErrNoTable is returned when a file has no translation table declaration.
var ErrNoTable = errors.New("no translation table declaration found")

// File is a parsed unit file.
type File struct {
	Path string
	// TableVar is the name of the const holding the table.
	TableVar string
	// Head is the source text before the table literal's opening brace.
	Head string
	// Catalog is the table literal.
	Catalog catalog.Catalog
	// Tail is the source text after the table literal's closing brace.
	Tail string
}

// Codec converts between unit file bytes and File. The merge and import
// logic only depend on this interface.
type Codec interface {
	Parse(path string, data []byte) (*File, error)
	Marshal(f *File) ([]byte, error)
}

// TS is the TypeScript unit file codec.
type TS struct{}

// Parse implements Codec.
func (TS) Parse(path string, data []byte) (*File, error) {
	return Parse(path, data)
}

// Marshal implements Codec.
func (TS) Marshal(f *File) ([]byte, error) {
	return f.Marshal(), nil
}

// declRe finds "const <name>[: Type] = {" at the start of a line.
var declRe = regexp.MustCompile(`(?m)^[ \t]*(?:export[ \t]+)?const[ \t]+([A-Za-z_$][A-Za-z0-9_$]*)[ \t]*(?::[^=\n]+)?=[ \t]*\{`)

// Parse parses unit file data. path is only used in error messages.
func Parse(path string, data []byte) (*File, error) {
	src := string(data)
	loc := declRe.FindStringSubmatchIndex(src)
	if loc == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNoTable)
	}
	brace := loc[1] - 1
	line := 1 + strings.Count(src[:brace], "\n")

	p := &parser{lx: newLexer(src, brace, line)}
	cat, end, err := p.parseTable()
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			se.Path = path
		}
		return nil, err
	}

	return &File{
		Path:     path,
		TableVar: src[loc[2]:loc[3]],
		Head:     src[:brace],
		Catalog:  cat,
		Tail:     src[end:],
	}, nil
}

// Marshal renders the file. The table literal is always written in
// canonical form; Head and Tail are copied verbatim.
func (f *File) Marshal() []byte {
	var b strings.Builder
	b.WriteString(f.Head)
	writeCatalog(&b, f.Catalog)
	b.WriteString(f.Tail)
	return []byte(b.String())
}

// Lines splits the file into lines for line-oriented rewriting.
func (f *File) Lines() []string {
	return strings.Split(string(f.Marshal()), "\n")
}
