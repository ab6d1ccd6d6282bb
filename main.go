// transunit: keeps a tree of TypeScript translation units in sync.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/transunit/basefile"
	"github.com/minios-linux/transunit/config"
	"github.com/minios-linux/transunit/export"
	"github.com/minios-linux/transunit/filetree"
	"github.com/minios-linux/transunit/locales"
	"github.com/minios-linux/transunit/lockfile"
	"github.com/minios-linux/transunit/project"
	"github.com/minios-linux/transunit/watch"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

type globalOptions struct {
	root       string
	config     string
	logLevel   string
	baseLocale string
}

var opts globalOptions

// globalFlags returns the flags shared by every subcommand.
func globalFlags(o *globalOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.StringVar(&o.root, "root", ".", "Project root directory")
	fs.StringVar(&o.config, "config", "", "Config file (default <root>/"+config.FileName+")")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&o.baseLocale, "base-locale", "", "Override the configured base locale")
	return fs
}

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// consoleWriter returns a zerolog console writer on f, colored only on a
// terminal.
func consoleWriter(f *os.File) io.Writer {
	return zerolog.ConsoleWriter{Out: f, NoColor: !isTerminal(f), TimeFormat: time.TimeOnly}
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(consoleWriter(os.Stderr)).Level(lvl).With().Timestamp().Logger(), nil
}

// ---------------------------------------------------------------------------
// Project loading
// ---------------------------------------------------------------------------

func loadConfig(o globalOptions) (*config.Config, error) {
	cfg, err := config.Load(o.root, o.config)
	if err != nil {
		return nil, err
	}
	if o.baseLocale != "" {
		cfg.BaseLocale = o.baseLocale
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// session is a loaded project with its unit tree.
type session struct {
	cfg  *config.Config
	proj *project.Project
	tree *filetree.Tree
	log  zerolog.Logger
}

func openSession(o globalOptions) (*session, error) {
	logger, err := newLogger(o.logLevel)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(o)
	if err != nil {
		return nil, err
	}
	lock, err := lockfile.Load(cfg.Root)
	if err != nil {
		return nil, err
	}
	proj, err := project.New(cfg, project.Options{Lock: lock, Logger: logger})
	if err != nil {
		return nil, err
	}
	tree, err := proj.LoadTree()
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, proj: proj, tree: tree, log: logger}, nil
}

// unitArg resolves a unit path argument relative to the project root.
func (s *session) unitArg(arg string) (string, error) {
	path := arg
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.Root, path)
	}
	path = filepath.Clean(path)
	if !s.tree.Has(path) {
		return "", fmt.Errorf("%s is not a unit of this project", arg)
	}
	return path, nil
}

// finish prints the outcome of a batch and returns its combined error.
func finish(report *project.Report, what string, keyOf func(string) string) error {
	for _, path := range report.Changed {
		logInfo("  updated %s", keyOf(path))
	}
	for _, f := range report.Failed {
		logError("  %s: %v", keyOf(f.Path), f.Err)
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%s: %d of %d units failed", what, len(report.Failed), len(report.Failed)+len(report.Succeeded))
	}
	if len(report.Changed) == 0 {
		logSuccess("%s: nothing to do (%d units)", what, len(report.Succeeded))
		return nil
	}
	logSuccess("%s: %d of %d units updated", what, len(report.Changed), len(report.Succeeded))
	return nil
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "transunit",
		Short: "Keep a tree of TypeScript translation units in sync",
		Long: `transunit: keeps a tree of TypeScript translation units in sync.

Every directory under the import root may hold a translation unit. Units
import and merge the units of their nearest descendant directories, up to
a single root unit. Base-locale edits are propagated to every other locale:
renamed keys follow, changed texts are marked stale.

Commands:
  status      Show project info and per-locale statistics
  tree        Print the unit hierarchy
  regen       Regenerate every unit's import section
  update      Merge base-locale strings from a YAML or JSON file into a unit
  sync        Propagate base-locale edits recorded since the last run
  stale       List or clear stale translations
  export      Export one locale as CSV or PO
  add-locale  Add a locale to every unit
  locales     List configured locales
  watch       Keep the project in sync while files change`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().AddFlagSet(globalFlags(&opts))

	root.AddCommand(
		newStatusCmd(),
		newTreeCmd(),
		newRegenCmd(),
		newUpdateCmd(),
		newSyncCmd(),
		newStaleCmd(),
		newExportCmd(),
		newAddLocaleCmd(),
		newLocalesCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("transunit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// status (read-only: project info + per-locale stats)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show project info and per-locale statistics",
		Long: `Show the resolved configuration, the number of units and, for every
locale, how many entries, stale entries and missing tables there are.
Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), s)
		},
	}
}

func runStatus(ctx context.Context, s *session) error {
	cfg := s.cfg

	fmt.Fprintf(os.Stderr, "\n%sProject%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", cfg.Root)
	if cfg.Path != "" {
		fmt.Fprintf(os.Stderr, "  Config:     %s\n", cfg.Path)
	} else {
		fmt.Fprintf(os.Stderr, "  Config:     defaults (no %s)\n", config.FileName)
	}
	fmt.Fprintf(os.Stderr, "  Imports:    %s (alias %q)\n", cfg.AbsImportRoot(), cfg.ImportAlias)
	fmt.Fprintf(os.Stderr, "  Unit file:  %s\n", cfg.UnitFilename)
	fmt.Fprintf(os.Stderr, "  Base:       %s\n", cfg.BaseLocale)
	fmt.Fprintf(os.Stderr, "  Locales:    %s\n", strings.Join(cfg.Locales, ", "))
	fmt.Fprintf(os.Stderr, "  Lock:       %s\n", s.proj.Lock().Summary())
	fmt.Fprintln(os.Stderr)

	st, err := s.proj.Status(ctx, s.tree)
	if err != nil {
		logWarning("Some units could not be read:\n%v", err)
	}

	fmt.Fprintf(os.Stderr, "%sUnits%s (%d)\n", colorBlue, colorReset, st.Units)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	width := langColumnWidth(cfg.Locales)
	fmt.Fprintf(os.Stderr, "\n%-*s %-8s %-8s %-8s %s\n", width+3, "Locale", "Entries", "Stale", "Missing", "Progress")
	fmt.Fprintln(os.Stderr, strings.Repeat("─", width+48))

	total := st.Entries[cfg.BaseLocale]
	for _, loc := range cfg.Locales {
		percent := 100
		if total > 0 {
			percent = st.Entries[loc] * 100 / total
		}
		fmt.Fprintf(os.Stderr, "%s %-8d %-8d %-8d %s\n",
			langCell(loc, width), st.Entries[loc], st.Stale[loc], st.Missing[loc], progressBar(percent, 20))
	}
	fmt.Fprintln(os.Stderr)

	stale := 0
	for _, n := range st.Stale {
		stale += n
	}
	if stale > 0 {
		logInfo("Run 'transunit stale' to review %d stale translations.", stale)
	}
	if units, _ := s.proj.Lock().Stats(); units == 0 {
		logInfo("Run 'transunit sync' to record base-locale snapshots.")
	}
	return nil
}

// progressBar renders percent as a colored bar followed by the number.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100

	color := colorGreen
	switch {
	case percent < 50:
		color = colorRed
	case percent < 100:
		color = colorYellow
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s%s%s %4d%%", color, bar, colorReset, percent)
}

func langColumnWidth(langs []string) int {
	w := 0
	for _, l := range langs {
		w = max(w, len(l))
	}
	return w
}

// langCell renders a locale code with its flag, padded to width.
func langCell(code string, width int) string {
	flag := locales.Resolve(code).Flag
	if flag == "" {
		flag = "  "
	}
	return fmt.Sprintf("%s %-*s", flag, width, code)
}

// ---------------------------------------------------------------------------
// tree
// ---------------------------------------------------------------------------

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the unit hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			printTree(os.Stdout, s.tree, s.proj.UnitKey)
			return nil
		},
	}
}

func printTree(w io.Writer, tree *filetree.Tree, keyOf func(string) string) {
	tree.Walk(func(n filetree.Node, depth int) {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), keyOf(n.Path))
	})
}

// ---------------------------------------------------------------------------
// regen
// ---------------------------------------------------------------------------

func newRegenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regen",
		Short: "Regenerate every unit's import section",
		Long: `Rewrite the import and merge section of every unit so it imports exactly
its direct children, deepest units first. A missing root unit is created
from the root template.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			report := s.proj.RegenerateAll(cmd.Context(), s.tree)
			return finish(report, "regen", s.proj.UnitKey)
		},
	}
}

// ---------------------------------------------------------------------------
// update
// ---------------------------------------------------------------------------

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <unit> <base-file>",
		Short: "Merge base-locale strings from a YAML or JSON file into a unit",
		Long: `Merge the base-locale strings of a YAML or JSON file into a unit. New ids
are added, ids whose text moved to another id are renamed in every locale,
changed texts mark the other locales stale and vanished ids are removed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			path, err := s.unitArg(args[0])
			if err != nil {
				return err
			}
			incoming, err := basefile.Read(args[1], s.cfg.BaseLocale)
			if err != nil {
				return err
			}

			res, err := s.proj.Update(cmd.Context(), path, incoming)
			if err != nil {
				return err
			}
			if err := s.proj.SaveLock(); err != nil {
				return err
			}

			key := s.proj.UnitKey(path)
			if !res.Changed && res.Adjustments.Empty() {
				logSuccess("%s is up to date", key)
				return nil
			}
			logSuccess("%s: %d added, %d renamed, %d stale, %d deleted", key,
				len(res.Added), len(res.Adjustments.Renamed), len(res.Adjustments.Stale), len(res.Adjustments.Deleted))
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// sync
// ---------------------------------------------------------------------------

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Propagate base-locale edits recorded since the last run",
		Long: `Compare the base-locale table of every unit with its snapshot in
` + lockfile.LockFileName + ` and propagate renames, text changes and deletions
into the other locales. Units seen for the first time are only recorded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			report := s.proj.SyncAll(cmd.Context(), s.tree, s.tree.Paths())
			if err := s.proj.SaveLock(); err != nil {
				return err
			}
			return finish(report, "sync", s.proj.UnitKey)
		},
	}
}

// ---------------------------------------------------------------------------
// stale
// ---------------------------------------------------------------------------

func newStaleCmd() *cobra.Command {
	var (
		clearMarks bool
		locale     string
		ids        []string
	)

	cmd := &cobra.Command{
		Use:   "stale",
		Short: "List or clear stale translations",
		Long: `List every translation marked stale because its base text changed.
With --clear, remove the marker after review (requires --locale; limit to
some ids with --id).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			if clearMarks {
				if locale == "" {
					return fmt.Errorf("--clear requires --locale")
				}
				canon, err := locales.Canonical(locale)
				if err != nil {
					return err
				}
				report := s.proj.ClearStale(cmd.Context(), s.tree, canon, ids)
				return finish(report, "stale --clear", s.proj.UnitKey)
			}

			units, err := s.proj.Stale(cmd.Context(), s.tree)
			if err != nil {
				logWarning("Some units could not be read:\n%v", err)
			}
			total := 0
			for _, u := range units {
				fmt.Printf("%s\n", u.Key)
				for _, it := range u.Items {
					if locale != "" && it.Locale != locale {
						continue
					}
					fmt.Printf("  %-8s %-30s %s\n", it.Locale, it.ID, it.Value)
					total++
				}
			}
			if total == 0 {
				logSuccess("No stale translations")
				return nil
			}
			logInfo("%d stale translations", total)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearMarks, "clear", false, "Clear the stale marker instead of listing")
	cmd.Flags().StringVar(&locale, "locale", "", "Only this locale")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "Only these ids (with --clear)")
	return cmd
}

// ---------------------------------------------------------------------------
// export
// ---------------------------------------------------------------------------

func newExportCmd() *cobra.Command {
	var (
		locale string
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one locale as CSV or PO",
		Long: `Export every entry of one locale, next to its base-locale text, across
all units. PO message ids are qualified with the unit key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			canon, err := locales.Canonical(locale)
			if err != nil {
				return err
			}

			w := io.Writer(os.Stdout)
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			if err := s.proj.Export(cmd.Context(), s.tree, canon, export.Format(format), w); err != nil {
				return err
			}
			if output != "" {
				logSuccess("Exported %s to %s", canon, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&locale, "locale", "", "Locale to export (required)")
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "Output format: csv or po")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	_ = cmd.MarkFlagRequired("locale")
	return cmd
}

// ---------------------------------------------------------------------------
// add-locale
// ---------------------------------------------------------------------------

func newAddLocaleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-locale <code>",
		Short: "Add a locale to every unit",
		Long: `Add an empty table for a locale to every unit and to the root template,
and record it in ` + config.FileName + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			code, report, err := s.proj.AddLocale(cmd.Context(), s.tree, args[0])
			if err != nil {
				return err
			}
			return finish(report, "add-locale "+code, s.proj.UnitKey)
		},
	}
}

// ---------------------------------------------------------------------------
// locales
// ---------------------------------------------------------------------------

func newLocalesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locales",
		Short: "List configured locales",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			reg, err := cfg.Registry()
			if err != nil {
				return err
			}
			printLocales(os.Stdout, reg)
			return nil
		},
	}
}

func printLocales(w io.Writer, reg *locales.Registry) {
	width := langColumnWidth(reg.All())
	for _, code := range reg.All() {
		m := locales.Resolve(code)
		mark := ""
		if code == reg.Base() {
			mark = " (base)"
		}
		fmt.Fprintf(w, "%s  %s / %s%s\n", langCell(code, width), m.Name, m.English, mark)
	}
}

// ---------------------------------------------------------------------------
// watch
// ---------------------------------------------------------------------------

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the project in sync while files change",
		Long: `Watch the import root. After each quiet period, new and deleted units are
applied to the tree, base-locale edits are propagated and the parents of
changed units are regenerated. Stop with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			report := s.proj.RegenerateAll(cmd.Context(), s.tree)
			if err := report.Err(); err != nil {
				logWarning("Initial regeneration had failures:\n%v", err)
			}
			logInfo("Watching %s (Ctrl+C to stop)", s.cfg.AbsImportRoot())
			if err := watch.New(s.proj, s.tree, s.log).Run(cmd.Context()); err != nil {
				return err
			}
			return s.proj.SaveLock()
		},
	}
}
