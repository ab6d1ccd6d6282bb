package project

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/minios-linux/transunit/filetree"
	"github.com/minios-linux/transunit/locales"
	"github.com/minios-linux/transunit/unitfile"
)

// AddLocale adds an empty table for code to every unit of tree and to a
// configured root template, then records code in the configuration.
// Units that already have the locale are left untouched.
func (p *Project) AddLocale(ctx context.Context, tree *filetree.Tree, code string) (string, *Report, error) {
	canon, err := locales.Canonical(code)
	if err != nil {
		return "", nil, err
	}

	// A missing root is created from the template with the new locale.
	if _, err := p.WriteRoot(ctx, tree); err != nil {
		return "", nil, fmt.Errorf("writing root unit: %w", err)
	}

	report := p.forEach(ctx, tree.Paths(), func(ctx context.Context, path string) (bool, error) {
		f, err := p.ReadUnit(ctx, path)
		if err != nil {
			return false, err
		}
		if f.Catalog.Table(canon) != nil {
			return false, nil
		}
		f.Catalog.EnsureTable(canon)
		return true, p.WriteUnit(ctx, f)
	})

	if err := p.addToTemplate(ctx, canon); err != nil {
		return canon, report, err
	}

	if !lo.Contains(p.cfg.Locales, canon) {
		p.cfg.Locales = append(p.cfg.Locales, canon)
		if err := p.cfg.SaveLocales(); err != nil {
			return canon, report, err
		}
	}
	p.log.Info().Str("locale", canon).Int("units", len(report.Changed)).Msg("Added locale")
	return canon, report, nil
}

// addToTemplate adds locale to the configured root template file. The
// built-in template needs no change: configured locales are added to it
// when the root is materialized.
func (p *Project) addToTemplate(ctx context.Context, locale string) error {
	path := p.cfg.AbsRootTemplate()
	if path == "" {
		return nil
	}
	f, err := unitfile.FromTemplate(p.tmpl, path, []string{locale})
	if err != nil {
		return err
	}
	data := f.Marshal()
	if err := p.fs.WriteFile(ctx, path, data); err != nil {
		return err
	}
	p.tmpl = data
	return nil
}
