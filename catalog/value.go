// Package catalog is the in-memory model of a translation unit: one ordered
// table of entries per locale. It knows nothing about the on-disk format;
// see package unitfile for the parser and serializer.
package catalog

import "strings"

// PluralVariants lists the variant names every plural value must carry,
// in canonical order.
var PluralVariants = []string{"zero", "one", "other"}

// Plural holds the three grammatical-number variants of a value.
type Plural struct {
	Zero  string
	One   string
	Other string
}

// Value is either a plain string or a Plural.
type Value struct {
	Text   string
	Plural *Plural
}

// Singular returns a plain string value.
func Singular(s string) Value {
	return Value{Text: s}
}

// PluralValue returns a plural value.
func PluralValue(zero, one, other string) Value {
	return Value{Plural: &Plural{Zero: zero, One: one, Other: other}}
}

// IsPlural reports whether v carries plural variants.
func (v Value) IsPlural() bool {
	return v.Plural != nil
}

// Equal compares two values. Plurals are compared variant by variant;
// a plural never equals a singular.
func (v Value) Equal(o Value) bool {
	if v.IsPlural() != o.IsPlural() {
		return false
	}
	if !v.IsPlural() {
		return v.Text == o.Text
	}
	return *v.Plural == *o.Plural
}

// String flattens the value for display. Plurals become "zero | one | other".
func (v Value) String() string {
	if !v.IsPlural() {
		return v.Text
	}
	return strings.Join([]string{v.Plural.Zero, v.Plural.One, v.Plural.Other}, " | ")
}

// IndexKey serializes v so that two values have the same key iff they are
// Equal. Used to build value -> ids indexes.
func (v Value) IndexKey() string {
	if !v.IsPlural() {
		return "s\x00" + v.Text
	}
	return "p\x00" + v.Plural.Zero + "\x00" + v.Plural.One + "\x00" + v.Plural.Other
}

// Variant returns the named plural variant.
func (p *Plural) Variant(name string) (string, bool) {
	switch name {
	case "zero":
		return p.Zero, true
	case "one":
		return p.One, true
	case "other":
		return p.Other, true
	}
	return "", false
}

// Pair is one (id, value) row of an incoming base-locale table.
type Pair struct {
	ID    string
	Value Value
}
