// Package watch keeps a project in sync while its unit files are edited.
// File system events are collected for a debounce window, then the unit
// tree is updated, base-locale edits are propagated and the import
// sections of affected units are regenerated.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/minios-linux/transunit/filetree"
	"github.com/minios-linux/transunit/project"
	"github.com/minios-linux/transunit/workspace"
)

// Batch is what one debounce window changed.
type Batch struct {
	Added    []string
	Removed  []string
	Modified []string
}

// Empty reports whether the batch has nothing to apply.
func (b Batch) Empty() bool {
	return len(b.Added) == 0 && len(b.Removed) == 0 && len(b.Modified) == 0
}

// Classify sorts candidate unit paths by comparing the tree with what is
// on disk now. Intermediate events do not matter: a unit created and
// deleted within one window is ignored.
func Classify(ctx context.Context, fsys workspace.FS, tree *filetree.Tree, paths []string) (Batch, error) {
	var b Batch
	for _, path := range lo.Uniq(paths) {
		if path == tree.Root() {
			continue
		}
		exists, err := fsys.Exists(ctx, path)
		if err != nil {
			return Batch{}, err
		}
		known := tree.Has(path)
		switch {
		case exists && known:
			b.Modified = append(b.Modified, path)
		case exists:
			b.Added = append(b.Added, path)
		case known:
			b.Removed = append(b.Removed, path)
		}
	}
	return b, nil
}

// Watcher applies file changes to one project.
type Watcher struct {
	p        *project.Project
	tree     *filetree.Tree
	debounce time.Duration
	log      zerolog.Logger
}

// New returns a Watcher for p, starting from tree.
func New(p *project.Project, tree *filetree.Tree, logger zerolog.Logger) *Watcher {
	d := p.Config().Watch.Debounce
	if d <= 0 {
		d = 300 * time.Millisecond
	}
	return &Watcher{
		p:        p,
		tree:     tree,
		debounce: d,
		log:      logger.With().Str("sys", "watch").Logger(),
	}
}

// Tree returns the current unit tree.
func (w *Watcher) Tree() *filetree.Tree {
	return w.tree
}

// Apply classifies paths and applies the result: added units are inserted
// into the tree, removed ones dropped with their lock snapshot, base-locale
// edits are propagated and the parents of changed units are regenerated.
// The lock file is saved at the end.
func (w *Watcher) Apply(ctx context.Context, paths []string) (*project.Report, error) {
	b, err := Classify(ctx, w.p.FS(), w.tree, paths)
	if err != nil {
		return nil, err
	}
	if b.Empty() {
		return &project.Report{}, nil
	}

	affected := []string{w.tree.Root()}
	for _, path := range b.Removed {
		affected = append(affected, w.tree.Parent(path))
		if err := w.tree.Remove(path); err != nil {
			return nil, err
		}
		w.p.Lock().RemoveUnit(w.p.UnitKey(path))
		w.log.Info().Str("unit", w.p.UnitKey(path)).Msg("Unit removed")
	}

	var added []string
	for _, path := range b.Added {
		if err := w.tree.AddFile(path); err != nil {
			w.log.Warn().Err(err).Str("unit", w.p.UnitKey(path)).Msg("Ignoring unit")
			continue
		}
		added = append(added, path)
		affected = append(affected, path, w.tree.Parent(path))
		w.log.Info().Str("unit", w.p.UnitKey(path)).Msg("Unit added")
	}

	report := w.p.SyncAll(ctx, w.tree, append(b.Modified, added...))

	affected = lo.Filter(lo.Uniq(affected), func(path string, _ int) bool {
		return path != "" && w.tree.Has(path)
	})
	regen := w.p.Regenerate(ctx, w.tree, affected)
	report.Succeeded = lo.Uniq(append(report.Succeeded, regen.Succeeded...))
	report.Changed = lo.Uniq(append(report.Changed, regen.Changed...))
	report.Failed = append(report.Failed, regen.Failed...)

	if err := w.p.SaveLock(); err != nil {
		return report, err
	}
	w.log.Info().
		Int("added", len(added)).
		Int("removed", len(b.Removed)).
		Int("modified", len(b.Modified)).
		Int("changed", len(report.Changed)).
		Int("failed", len(report.Failed)).
		Msg("Applied changes")
	return report, nil
}

// ---------------------------------------------------------------------------
// Event loop
// ---------------------------------------------------------------------------

// Run watches the import root until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	cfg := w.p.Config()
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	dirs, err := workspace.Dirs(cfg.AbsImportRoot(), cfg.Exclude)
	if err != nil {
		return fmt.Errorf("listing directories: %w", err)
	}
	for _, d := range dirs {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("watching %s: %w", d, err)
		}
	}
	w.log.Info().Int("dirs", len(dirs)).Dur("debounce", w.debounce).Msg("Watching")

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	var pending []string

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			paths := w.observe(fw, ev)
			if len(paths) == 0 {
				continue
			}
			pending = append(pending, paths...)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("Watcher error")

		case <-timer.C:
			batch := pending
			pending = nil
			report, err := w.Apply(ctx, batch)
			if err != nil {
				w.log.Error().Err(err).Msg("Applying changes failed")
				continue
			}
			for _, f := range report.Failed {
				w.log.Error().Err(f.Err).Str("unit", w.p.UnitKey(f.Path)).Msg("Unit failed")
			}
		}
	}
}

// observe turns one event into candidate unit paths. New directories are
// watched and scanned; a removed directory yields every known unit below it.
func (w *Watcher) observe(fw *fsnotify.Watcher, ev fsnotify.Event) []string {
	cfg := w.p.Config()
	path := filepath.Clean(ev.Name)

	if w.p.IsUnitPath(path) {
		return []string{path}
	}

	switch {
	case ev.Has(fsnotify.Create):
		if lo.Contains(cfg.Exclude, filepath.Base(path)) {
			return nil
		}
		dirs, err := workspace.Dirs(path, cfg.Exclude)
		if err != nil {
			// Not a directory, or already gone.
			return nil
		}
		for _, d := range dirs {
			if err := fw.Add(d); err != nil {
				w.log.Warn().Err(err).Str("dir", d).Msg("Cannot watch directory")
			}
		}
		units, err := workspace.Scan(path, cfg.UnitFilename, cfg.Exclude)
		if err != nil {
			w.log.Warn().Err(err).Str("dir", path).Msg("Cannot scan directory")
			return nil
		}
		return units

	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return UnitsBelow(w.tree, path)
	}
	return nil
}

// UnitsBelow returns the units of tree strictly inside dir.
func UnitsBelow(tree *filetree.Tree, dir string) []string {
	prefix := filepath.Clean(dir) + string(filepath.Separator)
	return lo.Filter(tree.Paths(), func(path string, _ int) bool {
		return strings.HasPrefix(path, prefix)
	})
}
