package merge

import (
	"reflect"
	"testing"

	"github.com/minios-linux/transunit/catalog"
)

func table(locale string, kv ...string) catalog.Table {
	t := catalog.NewTable(locale)
	for i := 0; i+1 < len(kv); i += 2 {
		t.Entries = append(t.Entries, catalog.Entry{Key: catalog.KeyFor(kv[i]), Value: catalog.Singular(kv[i+1])})
	}
	return t
}

func pairs(kv ...string) []catalog.Pair {
	var out []catalog.Pair
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, catalog.Pair{ID: kv[i], Value: catalog.Singular(kv[i+1])})
	}
	return out
}

// flat renders a table as id=value pairs, with a trailing "!" on stale entries.
func flat(t *catalog.Table) []string {
	if t == nil {
		return nil
	}
	out := []string{}
	for _, e := range t.Entries {
		if e.IsPassThrough() {
			out = append(out, e.Spread)
			continue
		}
		s := e.Key.Name + "=" + e.Value.String()
		if e.Stale {
			s += "!"
		}
		out = append(out, s)
	}
	return out
}

func TestMergeNoop(t *testing.T) {
	existing := catalog.Catalog{Tables: []catalog.Table{table("en", "a", "Hi")}}

	res := Merge(existing, "en", pairs("a", "Hi"))
	if res.Changed {
		t.Fatal("merge of identical table should not report a change")
	}
	if !res.Adjustments.Empty() {
		t.Fatalf("adjustments = %+v, want empty", res.Adjustments)
	}
	if got := flat(res.Catalog.Table("en")); !reflect.DeepEqual(got, []string{"a=Hi"}) {
		t.Fatalf("en = %v, want [a=Hi]", got)
	}
}

func TestMergeRename(t *testing.T) {
	existing := catalog.Catalog{Tables: []catalog.Table{
		table("en", "a", "Hello"),
		table("fr", "a", "Bonjour"),
	}}

	res := Merge(existing, "en", pairs("b", "Hello"))
	if !res.Changed {
		t.Fatal("rename should report a change")
	}
	if res.Adjustments.Renamed["a"] != "b" {
		t.Fatalf("renamed = %v, want a->b", res.Adjustments.Renamed)
	}
	if got := flat(res.Catalog.Table("en")); !reflect.DeepEqual(got, []string{"b=Hello"}) {
		t.Fatalf("en = %v, want [b=Hello]", got)
	}
	if got := flat(res.Catalog.Table("fr")); !reflect.DeepEqual(got, []string{"b=Bonjour"}) {
		t.Fatalf("fr = %v, want [b=Bonjour] without stale flag", got)
	}
	if len(res.Added) != 0 {
		t.Fatalf("added = %v, want none", res.Added)
	}
}

func TestMergeValueEditMarksStale(t *testing.T) {
	existing := catalog.Catalog{Tables: []catalog.Table{
		table("en", "a", "Hello"),
		table("fr", "a", "Bonjour"),
	}}

	res := Merge(existing, "en", pairs("a", "Hi"))
	if !res.Changed {
		t.Fatal("value edit should report a change")
	}
	if got := flat(res.Catalog.Table("en")); !reflect.DeepEqual(got, []string{"a=Hi"}) {
		t.Fatalf("en = %v, want [a=Hi]", got)
	}
	if got := flat(res.Catalog.Table("fr")); !reflect.DeepEqual(got, []string{"a=Bonjour!"}) {
		t.Fatalf("fr = %v, want [a=Bonjour!]", got)
	}
}

func TestMergeAmbiguousRenameDeletesBoth(t *testing.T) {
	existing := catalog.Catalog{Tables: []catalog.Table{
		table("en", "a", "X", "b", "X"),
		table("fr", "a", "Y1", "b", "Y2"),
	}}

	res := Merge(existing, "en", pairs("c", "X"))
	if len(res.Adjustments.Renamed) != 0 {
		t.Fatalf("renamed = %v, want none", res.Adjustments.Renamed)
	}
	if !res.Adjustments.Deleted["a"] || !res.Adjustments.Deleted["b"] {
		t.Fatalf("deleted = %v, want a and b", res.Adjustments.Deleted)
	}
	if got := flat(res.Catalog.Table("en")); !reflect.DeepEqual(got, []string{"c=X"}) {
		t.Fatalf("en = %v, want [c=X]", got)
	}
	if got := flat(res.Catalog.Table("fr")); !reflect.DeepEqual(got, []string{}) {
		t.Fatalf("fr = %v, want empty", got)
	}
	if !reflect.DeepEqual(res.Added, []string{"c"}) {
		t.Fatalf("added = %v, want [c]", res.Added)
	}
}

func TestMergeThreeDuplicatesAllDeleted(t *testing.T) {
	existing := catalog.Catalog{Tables: []catalog.Table{
		table("en", "a", "X", "b", "X", "c", "X"),
		table("de", "a", "1", "b", "2", "c", "3"),
	}}

	res := Merge(existing, "en", pairs("d", "X"))
	for _, id := range []string{"a", "b", "c"} {
		if !res.Adjustments.Deleted[id] {
			t.Fatalf("%s should be deleted, deleted = %v", id, res.Adjustments.Deleted)
		}
	}
	if got := flat(res.Catalog.Table("de")); len(got) != 0 {
		t.Fatalf("de = %v, want empty", got)
	}
}

func TestMergeMultipleCandidatesIsDeletion(t *testing.T) {
	existing := catalog.Catalog{Tables: []catalog.Table{
		table("en", "a", "X"),
		table("fr", "a", "Y"),
	}}

	res := Merge(existing, "en", pairs("b", "X", "c", "X"))
	if len(res.Adjustments.Renamed) != 0 {
		t.Fatalf("renamed = %v, want none", res.Adjustments.Renamed)
	}
	if got := flat(res.Catalog.Table("en")); !reflect.DeepEqual(got, []string{"b=X", "c=X"}) {
		t.Fatalf("en = %v, want [b=X c=X]", got)
	}
	if got := flat(res.Catalog.Table("fr")); len(got) != 0 {
		t.Fatalf("fr = %v, want empty", got)
	}
}

func TestMergeExistingIDIsNotRenameTarget(t *testing.T) {
	// "c" exists by id; "a" disappears with the same value and must be deleted,
	// not renamed onto "c".
	existing := catalog.Catalog{Tables: []catalog.Table{
		table("en", "a", "X", "c", "X"),
		table("fr", "a", "Y", "c", "Z"),
	}}

	res := Merge(existing, "en", pairs("c", "X"))
	if got := flat(res.Catalog.Table("en")); !reflect.DeepEqual(got, []string{"c=X"}) {
		t.Fatalf("en = %v, want [c=X]", got)
	}
	if got := flat(res.Catalog.Table("fr")); !reflect.DeepEqual(got, []string{"c=Z"}) {
		t.Fatalf("fr = %v, want [c=Z]", got)
	}
}

func TestMergePluralValues(t *testing.T) {
	plural := func(zero, one, other string) catalog.Entry {
		return catalog.Entry{Key: catalog.KeyFor("items"), Value: catalog.PluralValue(zero, one, other)}
	}
	existing := catalog.Catalog{Tables: []catalog.Table{
		{Locale: "en", Entries: []catalog.Entry{plural("none", "one", "many")}},
		{Locale: "fr", Entries: []catalog.Entry{plural("aucun", "un", "plusieurs")}},
	}}

	same := []catalog.Pair{{ID: "items", Value: catalog.PluralValue("none", "one", "many")}}
	if res := Merge(existing, "en", same); res.Changed {
		t.Fatal("identical plural should not report a change")
	}

	edited := []catalog.Pair{{ID: "items", Value: catalog.PluralValue("none", "one", "lots")}}
	res := Merge(existing, "en", edited)
	if !res.Changed {
		t.Fatal("plural variant edit should report a change")
	}
	fr := res.Catalog.Table("fr")
	if !fr.Entries[0].Stale {
		t.Fatal("fr plural should be flagged stale")
	}

	renamed := []catalog.Pair{{ID: "things", Value: catalog.PluralValue("none", "one", "many")}}
	res = Merge(existing, "en", renamed)
	if res.Adjustments.Renamed["items"] != "things" {
		t.Fatalf("renamed = %v, want items->things", res.Adjustments.Renamed)
	}
}

func TestMergeAddsNewAndSorts(t *testing.T) {
	existing := catalog.Catalog{Tables: []catalog.Table{table("en", "b", "B")}}

	res := Merge(existing, "en", pairs("b", "B", "nav.home", "Home", "a", "A"))
	want := []string{"a=A", "b=B", "nav.home=Home"}
	if got := flat(res.Catalog.Table("en")); !reflect.DeepEqual(got, want) {
		t.Fatalf("en = %v, want %v", got, want)
	}
	if !res.Catalog.Table("en").Entries[2].Key.Quoted {
		t.Fatal("nav.home should be written quoted")
	}
}

func TestMergeKeepsPassThrough(t *testing.T) {
	en := table("en", "b", "B")
	en.Entries = append([]catalog.Entry{{Spread: "...shared.en"}}, en.Entries...)
	fr := table("fr", "b", "Bé")
	fr.Entries = append(fr.Entries, catalog.Entry{Spread: "...shared.fr"})
	existing := catalog.Catalog{Tables: []catalog.Table{en, fr}}

	res := Merge(existing, "en", pairs("b", "B2"))
	if got := flat(res.Catalog.Table("en")); !reflect.DeepEqual(got, []string{"...shared.en", "b=B2"}) {
		t.Fatalf("en = %v", got)
	}
	if got := flat(res.Catalog.Table("fr")); !reflect.DeepEqual(got, []string{"b=Bé!", "...shared.fr"}) {
		t.Fatalf("fr = %v", got)
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	existing := catalog.Catalog{Tables: []catalog.Table{
		table("en", "a", "Hello"),
		table("fr", "a", "Bonjour"),
	}}

	Merge(existing, "en", pairs("a", "Hi"))
	if existing.Tables[0].Entries[0].Value.Text != "Hello" {
		t.Fatal("base table of input was modified")
	}
	if existing.Tables[1].Entries[0].Stale {
		t.Fatal("fr table of input was modified")
	}
}

func TestPropagateStaleIsIdempotent(t *testing.T) {
	fr := table("fr", "a", "Bonjour")
	adj := newAdjustments()
	adj.Stale["a"] = true

	Propagate(&fr, adj)
	Propagate(&fr, adj)
	if len(fr.Entries) != 1 || !fr.Entries[0].Stale {
		t.Fatalf("fr = %v, want a single stale entry", flat(&fr))
	}
}

func TestMergeMissingBaseTable(t *testing.T) {
	existing := catalog.Catalog{Tables: []catalog.Table{table("fr", "a", "Bonjour")}}

	res := Merge(existing, "en", pairs("a", "Hello"))
	if !res.Changed {
		t.Fatal("adding to an empty base table should report a change")
	}
	if got := flat(res.Catalog.Table("en")); !reflect.DeepEqual(got, []string{"a=Hello"}) {
		t.Fatalf("en = %v", got)
	}
	if got := flat(res.Catalog.Table("fr")); !reflect.DeepEqual(got, []string{"a=Bonjour"}) {
		t.Fatalf("fr = %v", got)
	}
}

func TestMergeClearsStaleOnBase(t *testing.T) {
	en := table("en", "a", "Hello", "b", "Bye")
	en.Entries[0].Stale = true
	en.Entries[1].Stale = true
	existing := catalog.Catalog{Tables: []catalog.Table{en, table("fr", "a", "Bonjour")}}

	res := Merge(existing, "en", pairs("a", "Hello", "c", "Bye"))
	if !res.Changed {
		t.Fatal("clearing a stale base entry should report a change")
	}
	if got := flat(res.Catalog.Table("en")); !reflect.DeepEqual(got, []string{"a=Hello", "c=Bye"}) {
		t.Fatalf("en = %v, want [a=Hello c=Bye] without stale flags", got)
	}

	again := Merge(res.Catalog, "en", pairs("a", "Hello", "c", "Bye"))
	if again.Changed {
		t.Fatal("second merge should be a no-op")
	}
}
