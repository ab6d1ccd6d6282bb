package unitfile

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/minios-linux/transunit/catalog"
)

const indent = "  "

// writeCatalog renders the table literal starting at '{' and ending at '}'.
func writeCatalog(b *strings.Builder, cat catalog.Catalog) {
	if len(cat.Tables) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteString("{\n")
	for _, t := range cat.Tables {
		for _, c := range t.Comments {
			b.WriteString(indent + c + "\n")
		}
		b.WriteString(indent + formatKey(t.LocaleKey) + ": ")
		if len(t.Entries) == 0 {
			b.WriteString("{},\n")
			continue
		}
		b.WriteString("{\n")
		for _, e := range t.Entries {
			writeEntry(b, e, indent+indent)
		}
		b.WriteString(indent + "},\n")
	}
	b.WriteString("}")
}

func writeEntry(b *strings.Builder, e catalog.Entry, pad string) {
	for _, c := range e.Comments {
		b.WriteString(pad + c + "\n")
	}
	if e.IsPassThrough() {
		b.WriteString(pad + e.Spread + ",\n")
		return
	}
	if e.Stale {
		b.WriteString(pad + StaleMarker + "\n")
	}
	b.WriteString(pad + formatKey(e.Key) + ": ")
	if !e.Value.IsPlural() {
		b.WriteString(Quote(e.Value.Text) + ",\n")
		return
	}
	p := e.Value.Plural
	b.WriteString("{\n")
	fmt.Fprintf(b, "%s%szero: %s,\n", pad, indent, Quote(p.Zero))
	fmt.Fprintf(b, "%s%sone: %s,\n", pad, indent, Quote(p.One))
	fmt.Fprintf(b, "%s%sother: %s,\n", pad, indent, Quote(p.Other))
	b.WriteString(pad + "},\n")
}

func formatKey(k catalog.Key) string {
	if k.Quoted || !catalog.IsIdentifier(k.Name) {
		return Quote(k.Name)
	}
	return k.Name
}

// Quote returns s as a single-quoted string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if unicode.IsControl(r) {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
