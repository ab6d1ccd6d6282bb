package unitfile

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLBrace
	tokRBrace
	tokColon
	tokComma
	tokSpread
	tokIdent
	tokString
	tokNumber
	tokComment
	tokOther
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokColon:
		return "':'"
	case tokComma:
		return "','"
	case tokSpread:
		return "'...'"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokComment:
		return "comment"
	}
	return "token"
}

type token struct {
	kind tokenKind
	text string // decoded text for strings, raw text otherwise
	line int
	pos  int // byte offset of the token start
	end  int // byte offset just past the token
}

// lexer tokenizes the object-literal subset used by unit files.
type lexer struct {
	src  string
	pos  int
	line int
}

func newLexer(src string, pos, line int) *lexer {
	return &lexer{src: src, pos: pos, line: line}
}

func (lx *lexer) errorf(line int, format string, args ...any) error {
	return &SyntaxError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch c {
		case '\n':
			lx.line++
			lx.pos++
		case ' ', '\t', '\r':
			lx.pos++
		default:
			return
		}
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()
	start := lx.pos
	tok := token{line: lx.line, pos: start}
	if lx.pos >= len(lx.src) {
		tok.kind = tokEOF
		tok.end = lx.pos
		return tok, nil
	}

	c := lx.src[lx.pos]
	switch {
	case c == '{':
		lx.pos++
		tok.kind = tokLBrace
	case c == '}':
		lx.pos++
		tok.kind = tokRBrace
	case c == ':':
		lx.pos++
		tok.kind = tokColon
	case c == ',':
		lx.pos++
		tok.kind = tokComma
	case strings.HasPrefix(lx.src[lx.pos:], "..."):
		lx.pos += 3
		tok.kind = tokSpread
	case strings.HasPrefix(lx.src[lx.pos:], "//"):
		end := strings.IndexByte(lx.src[lx.pos:], '\n')
		if end < 0 {
			end = len(lx.src) - lx.pos
		}
		lx.pos += end
		tok.kind = tokComment
		tok.text = strings.TrimRight(lx.src[start:lx.pos], " \t\r")
	case strings.HasPrefix(lx.src[lx.pos:], "/*"):
		end := strings.Index(lx.src[lx.pos+2:], "*/")
		if end < 0 {
			return tok, lx.errorf(tok.line, "unterminated block comment")
		}
		lx.pos += end + 4
		tok.kind = tokComment
		tok.text = lx.src[start:lx.pos]
		lx.line += strings.Count(tok.text, "\n")
	case c == '\'' || c == '"' || c == '`':
		s, err := lx.readString(c)
		if err != nil {
			return tok, err
		}
		tok.kind = tokString
		tok.text = s
	case isIdentStart(c):
		for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
			lx.pos++
		}
		tok.kind = tokIdent
		tok.text = lx.src[start:lx.pos]
	case c >= '0' && c <= '9':
		for lx.pos < len(lx.src) && (isIdentPart(lx.src[lx.pos]) || lx.src[lx.pos] == '.') {
			lx.pos++
		}
		tok.kind = tokNumber
		tok.text = lx.src[start:lx.pos]
	default:
		_, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		lx.pos += size
		tok.kind = tokOther
		tok.text = lx.src[start:lx.pos]
	}
	tok.end = lx.pos
	return tok, nil
}

// rawUntilDelimiter returns the source text up to the next ',' or '}' that
// is not nested inside brackets or strings. Used for spread expressions.
func (lx *lexer) rawUntilDelimiter() (string, error) {
	start := lx.pos
	startLine := lx.line
	depth := 0
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch c {
		case '\n':
			lx.line++
		case '(', '[', '{':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth == 0 {
				return strings.TrimSpace(lx.src[start:lx.pos]), nil
			}
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(lx.src[start:lx.pos]), nil
			}
		case '\'', '"', '`':
			if _, err := lx.readString(c); err != nil {
				return "", err
			}
			continue
		}
		lx.pos++
	}
	return "", lx.errorf(startLine, "unterminated spread expression")
}

func (lx *lexer) readString(quote byte) (string, error) {
	line := lx.line
	lx.pos++ // opening quote
	var b strings.Builder
	for {
		if lx.pos >= len(lx.src) {
			return "", lx.errorf(line, "unterminated string")
		}
		c := lx.src[lx.pos]
		switch {
		case c == quote:
			lx.pos++
			return b.String(), nil
		case c == '\n' && quote != '`':
			return "", lx.errorf(line, "newline in string")
		case c == '$' && quote == '`' && strings.HasPrefix(lx.src[lx.pos:], "${"):
			return "", lx.errorf(lx.line, "template interpolation is not supported in translation values")
		case c == '\\':
			if err := lx.readEscape(&b); err != nil {
				return "", err
			}
		default:
			if c == '\n' {
				lx.line++
			}
			b.WriteByte(c)
			lx.pos++
		}
	}
}

// readUnicode reads the hex digits of a \u escape, either XXXX or {X...}.
func (lx *lexer) readUnicode() (rune, error) {
	var hex string
	if strings.HasPrefix(lx.src[lx.pos:], "{") {
		end := strings.IndexByte(lx.src[lx.pos:], '}')
		if end < 0 {
			return 0, lx.errorf(lx.line, "bad unicode escape")
		}
		hex = lx.src[lx.pos+1 : lx.pos+end]
		lx.pos += end + 1
	} else {
		if lx.pos+4 > len(lx.src) {
			return 0, lx.errorf(lx.line, "bad unicode escape")
		}
		hex = lx.src[lx.pos : lx.pos+4]
		lx.pos += 4
	}
	r, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || r > utf8.MaxRune {
		return 0, lx.errorf(lx.line, "bad unicode escape \\u%s", hex)
	}
	return rune(r), nil
}

func (lx *lexer) readEscape(b *strings.Builder) error {
	lx.pos++ // backslash
	if lx.pos >= len(lx.src) {
		return lx.errorf(lx.line, "unterminated escape")
	}
	c := lx.src[lx.pos]
	lx.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case '\n':
		// Line continuation.
		lx.line++
	case 'u':
		r, err := lx.readUnicode()
		if err != nil {
			return err
		}
		// A high surrogate followed by an escaped low surrogate is one
		// code point written as UTF-16.
		if utf16.IsSurrogate(r) && r < 0xDC00 && strings.HasPrefix(lx.src[lx.pos:], `\u`) {
			save := lx.pos
			lx.pos += 2
			low, err := lx.readUnicode()
			if err == nil && low >= 0xDC00 && low <= 0xDFFF {
				r = utf16.DecodeRune(r, low)
			} else {
				lx.pos = save
			}
		}
		b.WriteRune(r)
	default:
		b.WriteByte(c)
	}
	return nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
