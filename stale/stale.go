// Package stale lists and clears entries flagged out of sync with the base
// locale.
package stale

import (
	"github.com/minios-linux/transunit/catalog"
)

// Item is one stale entry.
type Item struct {
	Locale string
	ID     string
	// Value is the current (outdated) translation, plurals flattened.
	Value string
}

// Collect returns every stale entry of cat in locale then document order.
func Collect(cat catalog.Catalog) []Item {
	var items []Item
	for _, t := range cat.Tables {
		for _, e := range t.Entries {
			if e.IsPassThrough() || !e.Stale {
				continue
			}
			items = append(items, Item{Locale: t.Locale, ID: e.Key.Name, Value: e.Value.String()})
		}
	}
	return items
}

// Count returns the number of stale entries per locale.
func Count(cat catalog.Catalog) map[string]int {
	counts := make(map[string]int)
	for _, it := range Collect(cat) {
		counts[it.Locale]++
	}
	return counts
}

// Clear removes the stale flag from the given ids of locale, or from every
// entry of locale when ids is empty. It returns the number of entries
// cleared. cat is modified in place.
func Clear(cat *catalog.Catalog, locale string, ids []string) int {
	t := cat.Table(locale)
	if t == nil {
		return 0
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	n := 0
	for i := range t.Entries {
		e := &t.Entries[i]
		if e.IsPassThrough() || !e.Stale {
			continue
		}
		if len(ids) > 0 && !want[e.Key.Name] {
			continue
		}
		e.Stale = false
		n++
	}
	return n
}
