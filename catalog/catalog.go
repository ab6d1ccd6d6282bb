package catalog

import (
	"regexp"
	"sort"
)

// identRe matches keys that can be written without quotes.
var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// IsIdentifier reports whether s can be used as a bare key.
func IsIdentifier(s string) bool {
	return identRe.MatchString(s)
}

// Key is an entry key together with its written shape.
type Key struct {
	Name   string
	Quoted bool
}

// KeyFor returns the key shape used when writing a new id.
func KeyFor(id string) Key {
	return Key{Name: id, Quoted: !IsIdentifier(id)}
}

// Entry is one row of a locale table. Entries with a non-empty Spread are
// pass-through placeholders (e.g. "...shared") and have no key or value.
type Entry struct {
	Key      Key
	Value    Value
	Stale    bool
	Comments []string
	Spread   string
}

// IsPassThrough reports whether e is a spread placeholder.
func (e Entry) IsPassThrough() bool {
	return e.Spread != ""
}

// ID returns the entry id, or "" for pass-through entries.
func (e Entry) ID() string {
	if e.IsPassThrough() {
		return ""
	}
	return e.Key.Name
}

// Table is the ordered table of one locale.
type Table struct {
	Locale string
	// LocaleKey is the written shape of the locale code ('pt-BR' needs quotes).
	LocaleKey Key
	Comments  []string
	Entries   []Entry
}

// NewTable returns an empty table for locale.
func NewTable(locale string) Table {
	return Table{Locale: locale, LocaleKey: KeyFor(locale)}
}

// Lookup returns the entry with the given id.
func (t *Table) Lookup(id string) (Entry, bool) {
	for _, e := range t.Entries {
		if !e.IsPassThrough() && e.Key.Name == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Pairs returns the concrete entries of t as (id, value) pairs, in order.
func (t *Table) Pairs() []Pair {
	out := make([]Pair, 0, len(t.Entries))
	for _, e := range t.Entries {
		if !e.IsPassThrough() {
			out = append(out, Pair{ID: e.Key.Name, Value: e.Value})
		}
	}
	return out
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := Table{Locale: t.Locale, LocaleKey: t.LocaleKey}
	if t.Comments != nil {
		out.Comments = append([]string(nil), t.Comments...)
	}
	if t.Entries != nil {
		out.Entries = make([]Entry, len(t.Entries))
		for i, e := range t.Entries {
			out.Entries[i] = e.clone()
		}
	}
	return out
}

func (e Entry) clone() Entry {
	if e.Value.Plural != nil {
		p := *e.Value.Plural
		e.Value.Plural = &p
	}
	if e.Comments != nil {
		e.Comments = append([]string(nil), e.Comments...)
	}
	return e
}

// Catalog is every locale table of one unit, in document order.
type Catalog struct {
	Tables []Table
}

// Locales returns the locale codes in document order.
func (c *Catalog) Locales() []string {
	out := make([]string, len(c.Tables))
	for i, t := range c.Tables {
		out[i] = t.Locale
	}
	return out
}

// Table returns a pointer to the table of locale, or nil.
func (c *Catalog) Table(locale string) *Table {
	for i := range c.Tables {
		if c.Tables[i].Locale == locale {
			return &c.Tables[i]
		}
	}
	return nil
}

// EnsureTable returns the table of locale, appending an empty one if needed.
func (c *Catalog) EnsureTable(locale string) *Table {
	if t := c.Table(locale); t != nil {
		return t
	}
	c.Tables = append(c.Tables, NewTable(locale))
	return &c.Tables[len(c.Tables)-1]
}

// Clone returns a deep copy of c.
func (c Catalog) Clone() Catalog {
	out := Catalog{Tables: make([]Table, len(c.Tables))}
	for i, t := range c.Tables {
		out.Tables[i] = t.Clone()
	}
	return out
}

// ---------------------------------------------------------------------------
// Ordering
// ---------------------------------------------------------------------------

// keyLess orders bare keys before quoted keys, then by ordinal key text.
func keyLess(a, b Key) bool {
	if a.Quoted != b.Quoted {
		return !a.Quoted
	}
	return a.Name < b.Name
}

// SortEntries returns entries in canonical order. Pass-through entries stay
// at their slot indices; concrete entries are sorted into the remaining
// slots. The input slice is not modified.
func SortEntries(entries []Entry) []Entry {
	concrete := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.IsPassThrough() {
			concrete = append(concrete, e)
		}
	}
	sort.SliceStable(concrete, func(i, j int) bool {
		return keyLess(concrete[i].Key, concrete[j].Key)
	})

	out := make([]Entry, len(entries))
	next := 0
	for i, e := range entries {
		if e.IsPassThrough() {
			out[i] = e
			continue
		}
		out[i] = concrete[next]
		next++
	}
	return out
}
