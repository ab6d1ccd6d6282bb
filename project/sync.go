package project

import (
	"context"
	"fmt"

	"github.com/minios-linux/transunit/catalog"
	"github.com/minios-linux/transunit/filetree"
	"github.com/minios-linux/transunit/merge"
)

// Update merges incoming base-locale pairs into the unit at path, propagates
// the adjustments into every other locale and writes the unit once. The
// lock snapshot of the unit is refreshed on success.
func (p *Project) Update(ctx context.Context, path string, incoming []catalog.Pair) (merge.Result, error) {
	f, err := p.ReadUnit(ctx, path)
	if err != nil {
		return merge.Result{}, err
	}

	res := merge.Merge(f.Catalog, p.cfg.BaseLocale, incoming)
	if res.Changed || !res.Adjustments.Empty() {
		f.Catalog = res.Catalog
		if err := p.WriteUnit(ctx, f); err != nil {
			return merge.Result{}, err
		}
	}

	base := res.Catalog.Table(p.cfg.BaseLocale)
	p.lock.Update(p.UnitKey(path), base.Pairs())

	p.log.Info().
		Str("unit", p.UnitKey(path)).
		Int("added", len(res.Added)).
		Int("renamed", len(res.Adjustments.Renamed)).
		Int("stale", len(res.Adjustments.Stale)).
		Int("deleted", len(res.Adjustments.Deleted)).
		Bool("changed", res.Changed).
		Msg("Merged base locale")
	return res, nil
}

// SyncUnit propagates the base-locale edits made to the unit at path since
// its lock snapshot into the other locales. The base table itself is left
// exactly as written. A unit seen for the first time only gets a snapshot.
func (p *Project) SyncUnit(ctx context.Context, path string) (bool, error) {
	f, err := p.ReadUnit(ctx, path)
	if err != nil {
		return false, err
	}
	key := p.UnitKey(path)

	base := f.Catalog.Table(p.cfg.BaseLocale)
	if base == nil {
		return false, nil
	}
	current := base.Pairs()

	snapshot, ok := p.lock.Snapshot(key)
	if !ok {
		p.lock.Update(key, current)
		p.log.Debug().Str("unit", key).Msg("Recorded first snapshot")
		return false, nil
	}
	if !p.lock.IsChanged(key, current) {
		return false, nil
	}

	// Replay the edit: the snapshot plays the existing base table and the
	// current base table is the incoming one.
	existing := f.Catalog.Clone()
	prev := existing.Table(p.cfg.BaseLocale)
	prev.Entries = make([]catalog.Entry, len(snapshot))
	for i, pair := range snapshot {
		prev.Entries[i] = catalog.Entry{Key: catalog.KeyFor(pair.ID), Value: pair.Value}
	}

	res := merge.Merge(existing, p.cfg.BaseLocale, current)
	changed := !res.Adjustments.Empty()
	if changed {
		out := res.Catalog
		restored := out.Table(p.cfg.BaseLocale)
		*restored = base.Clone()
		for i := range restored.Entries {
			restored.Entries[i].Stale = false
		}
		f.Catalog = out
		if err := p.WriteUnit(ctx, f); err != nil {
			return false, err
		}
		p.log.Info().
			Str("unit", key).
			Int("renamed", len(res.Adjustments.Renamed)).
			Int("stale", len(res.Adjustments.Stale)).
			Int("deleted", len(res.Adjustments.Deleted)).
			Msg("Propagated base locale edits")
	}

	p.lock.Update(key, current)
	return changed, nil
}

// SyncAll runs SyncUnit for the given units and drops snapshots of units
// that no longer exist in tree.
func (p *Project) SyncAll(ctx context.Context, tree *filetree.Tree, paths []string) *Report {
	report := p.forEach(ctx, paths, p.SyncUnit)

	keys := make([]string, 0, tree.Len())
	for _, path := range tree.Paths() {
		keys = append(keys, p.UnitKey(path))
	}
	p.lock.Clean(keys)
	return report
}

// SaveLock persists the lock file.
func (p *Project) SaveLock() error {
	if err := p.lock.Save(); err != nil {
		return fmt.Errorf("saving lock file: %w", err)
	}
	return nil
}
