package project

import (
	"context"
	"io"

	"go.uber.org/multierr"

	"github.com/minios-linux/transunit/export"
	"github.com/minios-linux/transunit/filetree"
	"github.com/minios-linux/transunit/stale"
)

// UnitStale is the stale entries of one unit.
type UnitStale struct {
	Path  string
	Key   string
	Items []stale.Item
}

// Stale collects the stale entries of every unit of tree, in tree order.
// Units that cannot be read are skipped and reported in the error.
func (p *Project) Stale(ctx context.Context, tree *filetree.Tree) ([]UnitStale, error) {
	var out []UnitStale
	var errs error
	for _, path := range tree.Paths() {
		f, err := p.ReadUnit(ctx, path)
		if err != nil {
			errs = multierr.Append(errs, UnitError{Path: path, Err: err})
			continue
		}
		if items := stale.Collect(f.Catalog); len(items) > 0 {
			out = append(out, UnitStale{Path: path, Key: p.UnitKey(path), Items: items})
		}
	}
	return out, errs
}

// ClearStale clears the stale flag of ids (all when empty) in locale for
// every unit of tree.
func (p *Project) ClearStale(ctx context.Context, tree *filetree.Tree, locale string, ids []string) *Report {
	return p.forEach(ctx, tree.Paths(), func(ctx context.Context, path string) (bool, error) {
		f, err := p.ReadUnit(ctx, path)
		if err != nil {
			return false, err
		}
		if stale.Clear(&f.Catalog, locale, ids) == 0 {
			return false, nil
		}
		return true, p.WriteUnit(ctx, f)
	})
}

// Export writes locale of every unit of tree to w in format f.
func (p *Project) Export(ctx context.Context, tree *filetree.Tree, locale string, f export.Format, w io.Writer) error {
	var units []export.Unit
	var errs error
	for _, path := range tree.Paths() {
		uf, err := p.ReadUnit(ctx, path)
		if err != nil {
			errs = multierr.Append(errs, UnitError{Path: path, Err: err})
			continue
		}
		units = append(units, export.Unit{Key: p.UnitKey(path), Catalog: uf.Catalog})
	}
	if errs != nil {
		return errs
	}
	rows := export.Rows(units, p.cfg.BaseLocale, locale)
	return export.Write(w, f, rows, p.cfg.BaseLocale, locale)
}

// Status summarizes a project.
type Status struct {
	Units   int
	Entries map[string]int // locale -> concrete entries
	Stale   map[string]int // locale -> stale entries
	Missing map[string]int // locale -> units without a table for it
}

// Status reads every unit of tree and counts entries per locale.
func (p *Project) Status(ctx context.Context, tree *filetree.Tree) (Status, error) {
	st := Status{
		Units:   tree.Len(),
		Entries: make(map[string]int),
		Stale:   make(map[string]int),
		Missing: make(map[string]int),
	}
	var errs error
	for _, path := range tree.Paths() {
		f, err := p.ReadUnit(ctx, path)
		if err != nil {
			errs = multierr.Append(errs, UnitError{Path: path, Err: err})
			continue
		}
		for _, loc := range p.cfg.Locales {
			t := f.Catalog.Table(loc)
			if t == nil {
				st.Missing[loc]++
				continue
			}
			st.Entries[loc] += len(t.Pairs())
		}
		for loc, n := range stale.Count(f.Catalog) {
			st.Stale[loc] += n
		}
	}
	return st, errs
}
