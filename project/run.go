package project

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/transunit/filetree"
)

// UnitError is the failure of one unit in a batch.
type UnitError struct {
	Path string
	Err  error
}

func (e UnitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e UnitError) Unwrap() error {
	return e.Err
}

// Report is the outcome of a batch over several units. Successful writes
// are never rolled back when another unit fails.
type Report struct {
	Succeeded []string
	Changed   []string
	Failed    []UnitError

	mu sync.Mutex
}

func (r *Report) record(path string, changed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.Failed = append(r.Failed, UnitError{Path: path, Err: err})
		return
	}
	r.Succeeded = append(r.Succeeded, path)
	if changed {
		r.Changed = append(r.Changed, path)
	}
}

// merge appends o into r.
func (r *Report) merge(o *Report) {
	r.Succeeded = append(r.Succeeded, o.Succeeded...)
	r.Changed = append(r.Changed, o.Changed...)
	r.Failed = append(r.Failed, o.Failed...)
}

// sortPaths orders every list by path so reports do not depend on
// scheduling.
func (r *Report) sortPaths() {
	sort.Strings(r.Succeeded)
	sort.Strings(r.Changed)
	sort.Slice(r.Failed, func(i, j int) bool { return r.Failed[i].Path < r.Failed[j].Path })
}

// Err combines every unit failure, or returns nil.
func (r *Report) Err() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, f)
	}
	return err
}

// unitFunc processes one unit and reports whether it was rewritten.
type unitFunc func(ctx context.Context, path string) (bool, error)

// forEach runs fn over the deduplicated paths with at most
// Concurrency units in flight. Failures are recorded, never propagated to
// other units. Once ctx is done no new unit is started.
func (p *Project) forEach(ctx context.Context, paths []string, fn unitFunc) *Report {
	report := &Report{}
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	for _, path := range lo.Uniq(paths) {
		path := path // per-iteration copy (go 1.21 loop semantics)
		if err := ctx.Err(); err != nil {
			report.record(path, false, err)
			continue
		}
		g.Go(func() error {
			changed, err := fn(ctx, path)
			if err != nil {
				p.log.Error().Err(err).Str("unit", p.UnitKey(path)).Msg("Unit failed")
			}
			report.record(path, changed, err)
			return nil
		})
	}
	_ = g.Wait()

	report.sortPaths()
	return report
}

// forEachByDepth runs fn level by level, deepest units first.
func (p *Project) forEachByDepth(ctx context.Context, tree *filetree.Tree, paths []string, fn unitFunc) *Report {
	byDepth := lo.GroupBy(lo.Uniq(paths), func(path string) int { return tree.Depth(path) })
	depths := lo.Keys(byDepth)
	sort.Sort(sort.Reverse(sort.IntSlice(depths)))

	report := &Report{}
	for _, d := range depths {
		report.merge(p.forEach(ctx, byDepth[d], fn))
	}
	report.sortPaths()
	return report
}

// ---------------------------------------------------------------------------
// Regeneration
// ---------------------------------------------------------------------------

// regenerate rewrites the import section of one unit from its children in
// tree. The root unit is materialized from the template when missing.
func (p *Project) regenerate(tree *filetree.Tree) unitFunc {
	return func(ctx context.Context, path string) (bool, error) {
		if path == tree.Root() {
			return p.WriteRoot(ctx, tree)
		}
		if !tree.Has(path) {
			return false, fmt.Errorf("not a unit of the tree")
		}
		return p.sync.Sync(ctx, path, tree.Children(path))
	}
}

// RegenerateAll regenerates every unit of tree, deepest first.
func (p *Project) RegenerateAll(ctx context.Context, tree *filetree.Tree) *Report {
	report := p.Regenerate(ctx, tree, tree.Paths())
	p.log.Info().
		Int("units", len(report.Succeeded)+len(report.Failed)).
		Int("changed", len(report.Changed)).
		Int("failed", len(report.Failed)).
		Msg("Regenerated units")
	return report
}

// Regenerate regenerates the given units of tree, deepest first.
func (p *Project) Regenerate(ctx context.Context, tree *filetree.Tree, paths []string) *Report {
	return p.forEachByDepth(ctx, tree, paths, p.regenerate(tree))
}
