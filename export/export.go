// Package export writes one locale of every unit to tabular (CSV) or
// gettext (PO) form for translators.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/leonelquinteros/gotext"

	"github.com/minios-linux/transunit/catalog"
)

// Unit is one translation unit to export.
type Unit struct {
	// Key identifies the unit in the output (project-relative path).
	Key     string
	Catalog catalog.Catalog
}

// Row is one base-locale id with its translation.
type Row struct {
	Unit string
	ID   string
	Base catalog.Value
	// Value is nil when the locale has no entry for ID.
	Value *catalog.Value
	Stale bool
}

// Rows collects the rows of locale for every unit, in unit then base
// document order. Ids missing from the base table are not exported.
func Rows(units []Unit, baseLocale, locale string) []Row {
	var rows []Row
	for _, u := range units {
		u := u // per-iteration copy (go 1.21 loop semantics)
		base := u.Catalog.Table(baseLocale)
		if base == nil {
			continue
		}
		target := u.Catalog.Table(locale)
		for _, e := range base.Entries {
			if e.IsPassThrough() {
				continue
			}
			r := Row{Unit: u.Key, ID: e.Key.Name, Base: e.Value}
			if target != nil {
				if te, ok := target.Lookup(e.Key.Name); ok {
					v := te.Value
					r.Value = &v
					r.Stale = te.Stale
				}
			}
			rows = append(rows, r)
		}
	}
	return rows
}

// Format is an export format.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPO  Format = "po"
)

// Write writes rows in format f.
func Write(w io.Writer, f Format, rows []Row, baseLocale, locale string) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, rows, baseLocale, locale)
	case FormatPO:
		return WritePO(w, rows)
	}
	return fmt.Errorf("unknown export format %q (valid: csv, po)", f)
}

// ---------------------------------------------------------------------------
// CSV
// ---------------------------------------------------------------------------

// WriteCSV writes rows with the header: unit, id, <base>, <locale>, stale.
// Plural values are flattened to "zero | one | other".
func WriteCSV(w io.Writer, rows []Row, baseLocale, locale string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"unit", "id", baseLocale, locale, "stale"}); err != nil {
		return err
	}
	for _, r := range rows {
		value := ""
		if r.Value != nil {
			value = r.Value.String()
		}
		rec := []string{r.Unit, r.ID, r.Base.String(), value, strconv.FormatBool(r.Stale)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ---------------------------------------------------------------------------
// PO
// ---------------------------------------------------------------------------

// MsgID returns the PO msgid of an id in a unit. Plural values are exported
// as one message per variant, suffixed with the variant name.
func MsgID(unit, id, variant string) string {
	m := unit + ":" + id
	if variant != "" {
		m += "." + variant
	}
	return m
}

// WritePO writes rows as a gettext catalog. Missing translations are
// exported with an empty msgstr.
func WritePO(w io.Writer, rows []Row) error {
	po := gotext.NewPo()
	for _, r := range rows {
		if !r.Base.IsPlural() {
			tr := ""
			if r.Value != nil && !r.Value.IsPlural() {
				tr = r.Value.Text
			}
			po.Set(MsgID(r.Unit, r.ID, ""), tr)
			continue
		}
		for _, variant := range catalog.PluralVariants {
			tr := ""
			if r.Value != nil && r.Value.IsPlural() {
				tr, _ = r.Value.Plural.Variant(variant)
			}
			po.Set(MsgID(r.Unit, r.ID, variant), tr)
		}
	}

	data, err := po.MarshalText()
	if err != nil {
		return fmt.Errorf("encoding PO: %w", err)
	}
	_, err = w.Write(data)
	return err
}
