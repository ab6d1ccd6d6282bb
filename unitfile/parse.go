package unitfile

import (
	"strings"

	"github.com/minios-linux/transunit/catalog"
)

type parser struct {
	lx  *lexer
	tok token
	// pending holds comments seen since the last member.
	pending []token
}

func (p *parser) advance() error {
	tok, err := p.lx.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// advanceSkipComments moves to the next non-comment token, collecting
// comments into p.pending.
func (p *parser) advanceSkipComments() error {
	for {
		if err := p.advance(); err != nil {
			return err
		}
		if p.tok.kind != tokComment {
			return nil
		}
		p.pending = append(p.pending, p.tok)
	}
}

func (p *parser) takeComments() []token {
	c := p.pending
	p.pending = nil
	return c
}

func (p *parser) errorf(format string, args ...any) error {
	return p.lx.errorf(p.tok.line, format, args...)
}

// parseTable parses the top-level locale map starting at its '{'.
// It returns the byte offset just past the closing '}'.
func (p *parser) parseTable() (catalog.Catalog, int, error) {
	var cat catalog.Catalog
	if err := p.advanceSkipComments(); err != nil {
		return cat, 0, err
	}
	if p.tok.kind != tokLBrace {
		return cat, 0, p.errorf("expected '{', got %s", p.tok.kind)
	}
	if err := p.advanceSkipComments(); err != nil {
		return cat, 0, err
	}

	seen := make(map[string]bool)
	for p.tok.kind != tokRBrace {
		key, err := p.parseKey("")
		if err != nil {
			return cat, 0, err
		}
		if seen[key.Name] {
			return cat, 0, &SyntaxError{Line: p.tok.line, Locale: key.Name, Msg: "duplicate locale block"}
		}
		seen[key.Name] = true

		table := catalog.Table{Locale: key.Name, LocaleKey: key}
		for _, c := range p.takeComments() {
			table.Comments = append(table.Comments, c.text)
		}

		if err := p.expect(tokColon); err != nil {
			return cat, 0, err
		}
		if err := p.advanceSkipComments(); err != nil {
			return cat, 0, err
		}
		if p.tok.kind != tokLBrace {
			return cat, 0, &SyntaxError{Line: p.tok.line, Locale: key.Name, Msg: "locale block is not a table"}
		}
		entries, err := p.parseEntries(key.Name)
		if err != nil {
			return cat, 0, err
		}
		table.Entries = entries
		cat.Tables = append(cat.Tables, table)

		if err := p.afterMember(); err != nil {
			return cat, 0, err
		}
	}
	return cat, p.tok.end, nil
}

// afterMember consumes an optional ',' and positions on the next member
// or the closing '}'.
func (p *parser) afterMember() error {
	if err := p.advanceSkipComments(); err != nil {
		return err
	}
	switch p.tok.kind {
	case tokComma:
		return p.advanceSkipComments()
	case tokRBrace:
		return nil
	}
	return p.errorf("expected ',' or '}', got %s", p.tok.kind)
}

func (p *parser) expect(kind tokenKind) error {
	if err := p.advanceSkipComments(); err != nil {
		return err
	}
	if p.tok.kind != kind {
		return p.errorf("expected %s, got %s", kind, p.tok.kind)
	}
	return nil
}

// parseKey reads the key at the current token.
func (p *parser) parseKey(locale string) (catalog.Key, error) {
	switch p.tok.kind {
	case tokIdent:
		return catalog.Key{Name: p.tok.text}, nil
	case tokString:
		return catalog.Key{Name: p.tok.text, Quoted: true}, nil
	}
	text := p.tok.text
	if text == "" {
		text = p.tok.kind.String()
	}
	return catalog.Key{}, &SyntaxError{
		Line:   p.tok.line,
		Locale: locale,
		Msg:    "key " + text + " is neither identifier- nor string-shaped",
	}
}

// parseEntries parses a locale table starting at its '{'.
func (p *parser) parseEntries(locale string) ([]catalog.Entry, error) {
	entries := []catalog.Entry{}
	seen := make(map[string]bool)
	p.pending = nil
	if err := p.advanceSkipComments(); err != nil {
		return nil, err
	}

	for p.tok.kind != tokRBrace {
		var entry catalog.Entry
		for _, c := range p.takeComments() {
			if isStaleMarker(c.text) {
				entry.Stale = true
				continue
			}
			entry.Comments = append(entry.Comments, c.text)
		}

		if p.tok.kind == tokSpread {
			raw, err := p.lx.rawUntilDelimiter()
			if err != nil {
				return nil, err
			}
			entry.Spread = "..." + raw
			entry.Stale = false
			entries = append(entries, entry)
			if err := p.afterMember(); err != nil {
				return nil, err
			}
			continue
		}

		key, err := p.parseKey(locale)
		if err != nil {
			return nil, err
		}
		if seen[key.Name] {
			return nil, &SyntaxError{Line: p.tok.line, Locale: locale, ID: key.Name, Msg: "duplicate id"}
		}
		seen[key.Name] = true
		entry.Key = key

		if err := p.expect(tokColon); err != nil {
			return nil, err
		}
		if err := p.advanceSkipComments(); err != nil {
			return nil, err
		}
		value, err := p.parseValue(locale, key.Name)
		if err != nil {
			return nil, err
		}
		entry.Value = value
		entries = append(entries, entry)

		if err := p.afterMember(); err != nil {
			return nil, err
		}
	}
	// Comments right before '}' have no entry to attach to.
	p.pending = nil
	return entries, nil
}

func (p *parser) parseValue(locale, id string) (catalog.Value, error) {
	switch p.tok.kind {
	case tokString:
		return catalog.Singular(p.tok.text), nil
	case tokLBrace:
		return p.parsePlural(locale, id)
	}
	return catalog.Value{}, &SyntaxError{
		Line: p.tok.line, Locale: locale, ID: id,
		Msg: "value must be a string or a plural record, got " + p.tok.kind.String(),
	}
}

func (p *parser) parsePlural(locale, id string) (catalog.Value, error) {
	line := p.tok.line
	variants := make(map[string]string, 3)
	fail := func(format string, args ...any) error {
		se := p.lx.errorf(line, format, args...).(*SyntaxError)
		se.Locale = locale
		se.ID = id
		return se
	}

	if err := p.advanceSkipComments(); err != nil {
		return catalog.Value{}, err
	}
	for p.tok.kind != tokRBrace {
		var name string
		switch p.tok.kind {
		case tokIdent, tokString:
			name = p.tok.text
		default:
			return catalog.Value{}, fail("plural variant name must be zero, one or other, got %s", p.tok.kind)
		}
		if !isVariant(name) {
			return catalog.Value{}, fail("unknown plural variant %q", name)
		}
		if _, dup := variants[name]; dup {
			return catalog.Value{}, fail("duplicate plural variant %q", name)
		}
		if err := p.expect(tokColon); err != nil {
			return catalog.Value{}, err
		}
		if err := p.advanceSkipComments(); err != nil {
			return catalog.Value{}, err
		}
		if p.tok.kind != tokString {
			return catalog.Value{}, fail("plural variant %q must be a string", name)
		}
		variants[name] = p.tok.text
		if err := p.afterMember(); err != nil {
			return catalog.Value{}, err
		}
	}
	p.pending = nil

	var missing []string
	for _, name := range catalog.PluralVariants {
		if _, ok := variants[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return catalog.Value{}, fail("plural value is missing variant(s) %s", strings.Join(missing, ", "))
	}
	return catalog.PluralValue(variants["zero"], variants["one"], variants["other"]), nil
}

func isVariant(name string) bool {
	for _, v := range catalog.PluralVariants {
		if v == name {
			return true
		}
	}
	return false
}

func isStaleMarker(comment string) bool {
	c := strings.TrimSpace(comment)
	return c == StaleMarker || c == "/* @stale */"
}
