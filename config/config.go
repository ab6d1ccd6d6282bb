// Package config loads the .transunit.yaml configuration file.
//
// Settings are resolved in this order, later sources winning:
//
//  1. built-in defaults
//  2. .transunit.yaml in the project root
//  3. TRANSUNIT_* environment variables (a .env file in the project root
//     is loaded first and never overrides variables already set)
//  4. command-line flags, applied by the caller
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/transunit/catalog"
	"github.com/minios-linux/transunit/locales"
)

// FileName is the default config file name.
const FileName = ".transunit.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRANSUNIT_"

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the .transunit.yaml structure.
type Config struct {
	// ImportRoot is the directory holding the root unit, relative to the
	// project root.
	ImportRoot string `yaml:"import_root" env:"IMPORT_ROOT"`
	// ImportAlias prefixes import specifiers. Empty means relative imports.
	ImportAlias string `yaml:"import_alias" env:"IMPORT_ALIAS"`
	// UnitFilename is the name of every unit file.
	UnitFilename string `yaml:"unit_filename" env:"UNIT_FILENAME"`
	// TableVar is the name of the table variable in unit files.
	TableVar string `yaml:"table_var" env:"TABLE_VAR"`
	// BaseLocale drives synchronization into all other locales.
	BaseLocale string `yaml:"base_locale" env:"BASE_LOCALE"`
	// Locales lists every locale, base included.
	Locales []string `yaml:"locales" env:"LOCALES"`
	// ImportPrefix starts every generated import name.
	ImportPrefix string `yaml:"import_prefix" env:"IMPORT_PREFIX"`
	// MergeFunction is called with the unit table and its children.
	MergeFunction string `yaml:"merge_function" env:"MERGE_FUNCTION"`
	// LibraryImport is the line importing MergeFunction.
	LibraryImport string `yaml:"library_import" env:"LIBRARY_IMPORT"`
	// TypeImport is the line importing the table type.
	TypeImport string `yaml:"type_import" env:"TYPE_IMPORT"`
	// RootTemplate is an optional template for the root unit, relative to
	// the project root. The built-in template is used when empty.
	RootTemplate string `yaml:"root_template,omitempty" env:"ROOT_TEMPLATE"`
	// Exclude lists directory names skipped while scanning.
	Exclude []string `yaml:"exclude" env:"EXCLUDE"`
	// Concurrency bounds how many units are processed at once.
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`

	Formatter Formatter `yaml:"formatter" envPrefix:"FORMATTER_"`
	Watch     Watch     `yaml:"watch" envPrefix:"WATCH_"`

	// Root is the absolute project root. Not read from the file.
	Root string `yaml:"-" env:"-"`
	// Path is the config file that was loaded, empty when defaults are used.
	Path string `yaml:"-" env:"-"`
}

// Formatter configures the external pretty-printer.
type Formatter struct {
	Command string   `yaml:"command" env:"COMMAND"`
	Args    []string `yaml:"args" env:"ARGS"`
}

// Watch configures the watch command.
type Watch struct {
	Debounce time.Duration `yaml:"debounce" env:"DEBOUNCE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ImportRoot:    "src",
		ImportAlias:   "@",
		UnitFilename:  "translations.ts",
		TableVar:      "translations",
		BaseLocale:    "en",
		Locales:       []string{"en"},
		ImportPrefix:  "t_",
		MergeFunction: "mergeTranslations",
		LibraryImport: "import { mergeTranslations } from '@/i18n/merge'",
		TypeImport:    "import type { TranslationTable } from '@/i18n/types'",
		Exclude:       []string{"node_modules", "dist", ".git"},
		Concurrency:   8,
		Watch:         Watch{Debounce: 300 * time.Millisecond},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load resolves the configuration of the project in rootDir. When
// configPath is empty, .transunit.yaml in rootDir is used if it exists;
// an explicit configPath must exist.
func Load(rootDir, configPath string) (*Config, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(filepath.Join(absRoot, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()
	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(absRoot, FileName)
	} else if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(absRoot, configPath)
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configPath, err)
		}
		cfg.Path = configPath
	case os.IsNotExist(err) && !explicit:
		// No config file: defaults.
	default:
		return nil, fmt.Errorf("reading %s: %w", configPath, err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("reading %s* environment: %w", EnvPrefix, err)
	}

	cfg.Root = absRoot
	if err := cfg.Validate(); err != nil {
		if cfg.Path != "" {
			return nil, fmt.Errorf("%s: %w", cfg.Path, err)
		}
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and fills derived defaults. Locale
// codes are canonicalized and the base locale is always listed first.
func (c *Config) Validate() error {
	if c.UnitFilename == "" || strings.ContainsAny(c.UnitFilename, `/\`) {
		return fmt.Errorf("unit_filename must be a plain file name, got %q", c.UnitFilename)
	}
	if !catalog.IsIdentifier(c.TableVar) {
		return fmt.Errorf("table_var %q is not an identifier", c.TableVar)
	}
	if !catalog.IsIdentifier(c.MergeFunction) {
		return fmt.Errorf("merge_function %q is not an identifier", c.MergeFunction)
	}
	if c.ImportPrefix != "" && !catalog.IsIdentifier(c.ImportPrefix) {
		return fmt.Errorf("import_prefix %q is not an identifier", c.ImportPrefix)
	}
	if strings.TrimSpace(c.TypeImport) == "" {
		return fmt.Errorf("type_import is required")
	}
	if strings.TrimSpace(c.LibraryImport) == "" {
		return fmt.Errorf("library_import is required")
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = Default().Watch.Debounce
	}

	reg, err := locales.New(c.BaseLocale, c.Locales)
	if err != nil {
		return err
	}
	c.BaseLocale = reg.Base()
	c.Locales = reg.All()
	return nil
}

// ---------------------------------------------------------------------------
// Derived paths
// ---------------------------------------------------------------------------

// AbsImportRoot returns the absolute import root.
func (c *Config) AbsImportRoot() string {
	if filepath.IsAbs(c.ImportRoot) {
		return filepath.Clean(c.ImportRoot)
	}
	return filepath.Join(c.Root, c.ImportRoot)
}

// RootUnitPath returns the path of the root unit.
func (c *Config) RootUnitPath() string {
	return filepath.Join(c.AbsImportRoot(), c.UnitFilename)
}

// AbsRootTemplate returns the absolute template path, or "" for the
// built-in template.
func (c *Config) AbsRootTemplate() string {
	if c.RootTemplate == "" || filepath.IsAbs(c.RootTemplate) {
		return c.RootTemplate
	}
	return filepath.Join(c.Root, c.RootTemplate)
}

// Registry returns the locale registry of the configuration.
func (c *Config) Registry() (*locales.Registry, error) {
	return locales.New(c.BaseLocale, c.Locales)
}
