// Package project ties the transunit building blocks together for one
// project: discovering units, building the unit tree, regenerating import
// sections and merging base-locale changes, one unit at a time.
package project

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/minios-linux/transunit/config"
	"github.com/minios-linux/transunit/filetree"
	"github.com/minios-linux/transunit/format"
	"github.com/minios-linux/transunit/imports"
	"github.com/minios-linux/transunit/lockfile"
	"github.com/minios-linux/transunit/unitfile"
	"github.com/minios-linux/transunit/workspace"
)

// Project is one configured transunit project.
type Project struct {
	cfg       *config.Config
	fs        workspace.FS
	formatter format.Formatter
	sync      *imports.Synchronizer
	tmpl      []byte
	lock      *lockfile.LockFile
	log       zerolog.Logger
}

// Options configures New. Zero values pick the defaults: the OS file
// system, the formatter from the config and an empty in-memory lock file.
type Options struct {
	FS        workspace.FS
	Formatter format.Formatter
	Lock      *lockfile.LockFile
	Logger    zerolog.Logger
}

// New returns a Project for cfg.
func New(cfg *config.Config, opts Options) (*Project, error) {
	tmpl, err := unitfile.LoadTemplate(cfg.AbsRootTemplate())
	if err != nil {
		return nil, err
	}
	if _, err := unitfile.Parse("root template", tmpl); err != nil {
		return nil, fmt.Errorf("invalid root template: %w", err)
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = workspace.OS{}
	}
	f := opts.Formatter
	if f == nil {
		f = format.New(cfg.Formatter.Command, cfg.Formatter.Args, cfg.Root)
	}
	lock := opts.Lock
	if lock == nil {
		lock = lockfile.New(cfg.Root)
	}

	p := &Project{
		cfg:       cfg,
		fs:        fsys,
		formatter: f,
		tmpl:      tmpl,
		lock:      lock,
		log:       opts.Logger.With().Str("sys", "project").Logger(),
	}
	p.sync = imports.New(ImportOptions(cfg), fsys, f)
	return p, nil
}

// ImportOptions derives the import synchronizer options from cfg.
func ImportOptions(cfg *config.Config) imports.Options {
	return imports.Options{
		ImportRoot:    cfg.AbsImportRoot(),
		Alias:         cfg.ImportAlias,
		Prefix:        cfg.ImportPrefix,
		LibraryImport: cfg.LibraryImport,
		TypeImport:    cfg.TypeImport,
		MergeFunc:     cfg.MergeFunction,
		TableVar:      cfg.TableVar,
	}
}

// Config returns the project configuration.
func (p *Project) Config() *config.Config {
	return p.cfg
}

// FS returns the file system units are read from and written to.
func (p *Project) FS() workspace.FS {
	return p.fs
}

// Lock returns the lock file holding base-locale snapshots.
func (p *Project) Lock() *lockfile.LockFile {
	return p.lock
}

// Synchronizer returns the import synchronizer.
func (p *Project) Synchronizer() *imports.Synchronizer {
	return p.sync
}

// UnitKey returns the project-relative key of a unit.
func (p *Project) UnitKey(path string) string {
	return lockfile.UnitKey(p.cfg.Root, path)
}

// IsUnitPath reports whether path names a unit file under the import root.
func (p *Project) IsUnitPath(path string) bool {
	if filepath.Base(path) != p.cfg.UnitFilename {
		return false
	}
	rel, err := filepath.Rel(p.cfg.AbsImportRoot(), path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// Scan discovers every unit under the import root, root unit excluded.
func (p *Project) Scan() ([]string, error) {
	paths, err := workspace.Scan(p.cfg.AbsImportRoot(), p.cfg.UnitFilename, p.cfg.Exclude)
	if err != nil {
		return nil, err
	}
	root := p.cfg.RootUnitPath()
	out := paths[:0]
	for _, path := range paths {
		if path != root {
			out = append(out, path)
		}
	}
	return out, nil
}

// BuildTree returns the unit tree holding the root unit and paths.
func (p *Project) BuildTree(paths []string) (*filetree.Tree, error) {
	tree, err := filetree.Build(p.cfg.RootUnitPath(), paths)
	if err != nil {
		return nil, err
	}
	p.log.Debug().Int("units", tree.Len()).Msg("Built unit tree")
	return tree, nil
}

// LoadTree scans the import root and builds the unit tree.
func (p *Project) LoadTree() (*filetree.Tree, error) {
	paths, err := p.Scan()
	if err != nil {
		return nil, err
	}
	return p.BuildTree(paths)
}

// ---------------------------------------------------------------------------
// Unit I/O
// ---------------------------------------------------------------------------

// ReadUnit reads and parses the unit at path.
func (p *Project) ReadUnit(ctx context.Context, path string) (*unitfile.File, error) {
	data, err := p.fs.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return unitfile.Parse(path, data)
}

// WriteUnit formats and writes f.
func (p *Project) WriteUnit(ctx context.Context, f *unitfile.File) error {
	data, err := p.formatter.Format(ctx, f.Path, f.Marshal())
	if err != nil {
		return err
	}
	return p.fs.WriteFile(ctx, f.Path, data)
}

// WriteRoot materializes the root unit if needed and syncs its imports.
func (p *Project) WriteRoot(ctx context.Context, tree *filetree.Tree) (bool, error) {
	return tree.WriteRoot(ctx, p.fs, p.tmpl, p.cfg.Locales, p.sync)
}
