// Package merge implements base-locale merging for translation units.
//
// Merge takes a unit's existing catalog and the complete new base-locale
// table, rewrites the base table and derives adjustments (deleted ids,
// renamed ids, stale ids) that Propagate applies to every other locale.
//
// A value that stays the same under a new id is treated as a rename; a
// value that changes under the same id marks translations stale. Whenever
// a rename is ambiguous (duplicate values) both sides are deleted instead.
package merge

import (
	"github.com/minios-linux/transunit/catalog"
)

// Adjustments describes what happened to base-locale ids during one merge.
type Adjustments struct {
	Deleted map[string]bool
	Renamed map[string]string // old id -> new id
	Stale   map[string]bool
}

func newAdjustments() Adjustments {
	return Adjustments{
		Deleted: make(map[string]bool),
		Renamed: make(map[string]string),
		Stale:   make(map[string]bool),
	}
}

// Empty reports whether no adjustment was recorded.
func (a Adjustments) Empty() bool {
	return len(a.Deleted) == 0 && len(a.Renamed) == 0 && len(a.Stale) == 0
}

// Result is the output of Merge.
type Result struct {
	Catalog     catalog.Catalog
	Changed     bool
	Adjustments Adjustments
	// Added lists ids appended as new base entries, in incoming order.
	Added []string
}

// Merge updates the base-locale table of existing with incoming and
// propagates the structural changes to every other locale.
// existing is not modified.
func Merge(existing catalog.Catalog, baseLocale string, incoming []catalog.Pair) Result {
	out := existing.Clone()
	base := out.EnsureTable(baseLocale)

	entries, adj, added, changed := mergeBase(base.Entries, incoming)
	base.Entries = catalog.SortEntries(entries)

	for i := range out.Tables {
		if out.Tables[i].Locale == baseLocale {
			continue
		}
		Propagate(&out.Tables[i], adj)
	}

	return Result{
		Catalog:     out,
		Changed:     changed,
		Adjustments: adj,
		Added:       added,
	}
}

// mergeBase reconciles the existing base entries with the incoming pairs.
func mergeBase(existing []catalog.Entry, incoming []catalog.Pair) ([]catalog.Entry, Adjustments, []string, bool) {
	adj := newAdjustments()

	// Index incoming.
	byID := make(map[string]catalog.Value, len(incoming))
	byValue := make(map[string][]string)
	var order []string
	for _, p := range incoming {
		if _, dup := byID[p.ID]; dup {
			// Last write wins, first position is kept.
			byID[p.ID] = p.Value
			continue
		}
		byID[p.ID] = p.Value
		order = append(order, p.ID)
	}
	for _, id := range order {
		k := byID[id].IndexKey()
		byValue[k] = append(byValue[k], id)
	}

	// Incoming ids that already exist by id can never be rename targets.
	claimed := make(map[string]bool)
	for _, e := range existing {
		if e.IsPassThrough() {
			continue
		}
		if _, ok := byID[e.Key.Name]; ok {
			claimed[e.Key.Name] = true
		}
	}

	// takenBy records which old id took a rename target. An empty string
	// marks a target poisoned by a collision.
	takenBy := make(map[string]string)
	changed := false
	result := make([]catalog.Entry, 0, len(existing)+len(incoming))

	for _, e := range existing {
		if e.IsPassThrough() {
			result = append(result, e)
			continue
		}
		id := e.Key.Name

		if v, ok := byID[id]; ok {
			if !v.Equal(e.Value) {
				e.Value = v
				adj.Stale[id] = true
				changed = true
			}
			// Base entries are never stale.
			if e.Stale {
				e.Stale = false
				changed = true
			}
			result = append(result, e)
			continue
		}

		var candidates []string
		for _, cand := range byValue[e.Value.IndexKey()] {
			if !claimed[cand] {
				candidates = append(candidates, cand)
			}
		}

		if len(candidates) != 1 {
			adj.Deleted[id] = true
			changed = true
			continue
		}

		target := candidates[0]
		if prev, taken := takenBy[target]; taken {
			// Two old ids share the value of one new id: guess neither.
			if prev != "" {
				delete(adj.Renamed, prev)
				adj.Deleted[prev] = true
				takenBy[target] = ""
			}
			adj.Deleted[id] = true
			changed = true
			continue
		}

		takenBy[target] = id
		adj.Renamed[id] = target
		changed = true
	}

	// Renames are only final once every old id has been seen, since a later
	// collision can retract an earlier rename.
	for _, e := range existing {
		if e.IsPassThrough() {
			continue
		}
		target, ok := adj.Renamed[e.Key.Name]
		if !ok {
			continue
		}
		e.Key = catalog.KeyFor(target)
		e.Value = byID[target]
		e.Stale = false
		result = append(result, e)
	}

	renamedTo := make(map[string]bool, len(adj.Renamed))
	for _, target := range adj.Renamed {
		renamedTo[target] = true
	}

	var added []string
	for _, id := range order {
		if claimed[id] || renamedTo[id] {
			continue
		}
		result = append(result, catalog.Entry{Key: catalog.KeyFor(id), Value: byID[id]})
		added = append(added, id)
		changed = true
	}

	return result, adj, added, changed
}

// Propagate applies adj to a non-base locale table in place and re-sorts it.
func Propagate(t *catalog.Table, adj Adjustments) {
	out := make([]catalog.Entry, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.IsPassThrough() {
			out = append(out, e)
			continue
		}
		id := e.Key.Name
		if target, ok := adj.Renamed[id]; ok {
			e.Key = catalog.KeyFor(target)
			out = append(out, e)
			continue
		}
		if adj.Stale[id] {
			e.Stale = true
			out = append(out, e)
			continue
		}
		if adj.Deleted[id] {
			continue
		}
		out = append(out, e)
	}
	t.Entries = catalog.SortEntries(out)
}
