// Package imports regenerates the import section and the merge invocation
// of a translation unit from the list of its child units.
//
// Every child is imported under a name derived from its directory:
//
//	src/components/button/translations.ts  ->  t_components_button
//
// and passed to the merge function right before the default export.
package imports

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/minios-linux/transunit/format"
	"github.com/minios-linux/transunit/workspace"
)

// Options configures the generated lines.
type Options struct {
	// ImportRoot is the directory import names and specifiers are relative to.
	ImportRoot string
	// Alias prefixes import specifiers ("@" gives '@/components/translations').
	// When empty, specifiers are relative to the importing unit.
	Alias string
	// Prefix starts every import name.
	Prefix string
	// LibraryImport is the line importing the merge function.
	LibraryImport string
	// TypeImport is the line importing the table type. Always present.
	TypeImport string
	// MergeFunc is the name of the merge function.
	MergeFunc string
	// TableVar is the name of the unit's table variable.
	TableVar string
}

// Synchronizer rewrites unit files so that they import exactly their children.
type Synchronizer struct {
	opts      Options
	fs        workspace.FS
	formatter format.Formatter
}

// New returns a Synchronizer. A nil formatter means format.Builtin.
func New(opts Options, fsys workspace.FS, f format.Formatter) *Synchronizer {
	if f == nil {
		f = format.Builtin{}
	}
	return &Synchronizer{opts: opts, fs: fsys, formatter: f}
}

// Options returns the synchronizer configuration.
func (s *Synchronizer) Options() Options {
	return s.opts
}

type childImport struct {
	name string
	spec string
}

// ImportName returns the import name of the unit at childPath. Children
// always live in a directory strictly below the import root; any other path
// is an error.
func (s *Synchronizer) ImportName(childPath string) (string, error) {
	rel, err := filepath.Rel(s.opts.ImportRoot, filepath.Dir(childPath))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not below the import root %s", childPath, s.opts.ImportRoot)
	}
	segs := strings.Split(filepath.ToSlash(rel), "/")
	for i, seg := range segs {
		segs[i] = sanitize(seg)
	}
	return s.opts.Prefix + strings.Join(segs, "_"), nil
}

// specifier returns the module specifier used to import childPath from unitPath.
func (s *Synchronizer) specifier(unitPath, childPath string) string {
	noExt := strings.TrimSuffix(childPath, filepath.Ext(childPath))
	if s.opts.Alias != "" {
		rel, err := filepath.Rel(s.opts.ImportRoot, noExt)
		if err == nil {
			return s.opts.Alias + "/" + filepath.ToSlash(rel)
		}
	}
	rel, err := filepath.Rel(filepath.Dir(unitPath), noExt)
	if err != nil {
		return filepath.ToSlash(noExt)
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

func sanitize(seg string) string {
	var b strings.Builder
	for _, r := range seg {
		switch {
		case r == '_' || r == '$',
			r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// NameCollisionError reports two children that map to the same import name.
type NameCollisionError struct {
	Name   string
	First  string
	Second string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("import name %s is shared by %s and %s", e.Name, e.First, e.Second)
}

func (s *Synchronizer) childImports(unitPath string, children []string) ([]childImport, error) {
	owner := make(map[string]string, len(children))
	out := make([]childImport, 0, len(children))
	for _, c := range children {
		c = filepath.Clean(c)
		name, err := s.ImportName(c)
		if err != nil {
			return nil, err
		}
		if prev, ok := owner[name]; ok {
			if prev == c {
				continue
			}
			return nil, &NameCollisionError{Name: name, First: prev, Second: c}
		}
		owner[name] = c
		out = append(out, childImport{name: name, spec: s.specifier(unitPath, c)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// importBlock returns the desired import lines.
func (s *Synchronizer) importBlock(children []childImport) []string {
	block := make([]string, 0, len(children)+2)
	if len(children) > 0 {
		block = append(block, s.opts.LibraryImport)
	}
	for _, c := range children {
		block = append(block, fmt.Sprintf("import %s from '%s'", c.name, c.spec))
	}
	return append(block, s.opts.TypeImport)
}

// invocation returns the merge call lines.
func (s *Synchronizer) invocation(children []childImport) []string {
	lines := []string{s.opts.MergeFunc + "(", "  " + s.opts.TableVar + ","}
	for _, c := range children {
		lines = append(lines, "  "+c.name+",")
	}
	return append(lines, ")")
}

func isImportLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "import ")
}

// stmtEndRe matches the module specifier closing an import statement.
var stmtEndRe = regexp.MustCompile(`['"][^'"]*['"]\s*;?\s*$`)

// importRun returns the import statements of the contiguous run starting at
// lines[first] and the index just past it. A statement may span several
// lines ("import {\n  a,\n} from 'x'").
func importRun(lines []string, first int) ([]string, int) {
	var stmts []string
	i := first
	for i < len(lines) && isImportLine(lines[i]) {
		j := i
		for j < len(lines) && !stmtEndRe.MatchString(lines[j]) {
			j++
		}
		if j == len(lines) {
			break
		}
		stmts = append(stmts, strings.Join(lines[i:j+1], "\n"))
		i = j + 1
	}
	return stmts, i
}

var (
	spaceRe = regexp.MustCompile(`\s+`)
	punctRe = regexp.MustCompile(`\s*([{},])\s*`)
)

// normalizeImport reduces an import statement to a canonical form so that
// formatter choices (quotes, semicolons, wrapping, trailing commas) do not
// count as changes.
func normalizeImport(stmt string) string {
	n := strings.TrimSpace(spaceRe.ReplaceAllString(stmt, " "))
	n = strings.TrimSpace(strings.TrimSuffix(n, ";"))
	n = strings.ReplaceAll(n, `"`, "'")
	n = punctRe.ReplaceAllString(n, "$1")
	return strings.ReplaceAll(n, ",}", "}")
}

// Plan computes the new text of the unit at unitPath. changed reports
// whether the set of import statements differs from the current one;
// reordering and formatting do not count as a change.
func (s *Synchronizer) Plan(unitPath, text string, children []string) (string, bool, error) {
	imports, err := s.childImports(unitPath, children)
	if err != nil {
		return "", false, err
	}
	block := s.importBlock(imports)
	lines := strings.Split(text, "\n")

	first := -1
	for i, l := range lines {
		if isImportLine(l) {
			first = i
			break
		}
	}

	var prev []string
	var out []string
	if first < 0 {
		out = append(out, block...)
		out = append(out, "")
		out = append(out, lines...)
	} else {
		var end int
		prev, end = importRun(lines, first)
		out = append(out, lines[:first]...)
		out = append(out, block...)
		out = append(out, lines[end:]...)
	}

	out = s.removeInvocations(out)
	if len(imports) > 0 {
		out = s.insertInvocation(out, s.invocation(imports))
	}

	return strings.Join(out, "\n"), !sameSet(prev, block), nil
}

// removeInvocations drops every existing merge call, from its marker line
// to the first line closing the call, plus one trailing blank line.
func (s *Synchronizer) removeInvocations(lines []string) []string {
	marker := s.opts.MergeFunc + "("
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), marker) {
			out = append(out, lines[i])
			continue
		}
		j := i
		for j < len(lines) && !closesCall(lines[j]) {
			j++
		}
		if j == len(lines) {
			// Unclosed call: leave the text alone.
			out = append(out, lines[i:]...)
			break
		}
		i = j
		if i+1 < len(lines) && strings.TrimSpace(lines[i+1]) == "" {
			i++
		}
	}
	return out
}

func closesCall(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasSuffix(t, ")") || strings.HasSuffix(t, ");")
}

// insertInvocation places call right before the default export, or at the
// end of the file when there is none.
func (s *Synchronizer) insertInvocation(lines, call []string) []string {
	at := -1
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "export default") {
			at = i
			break
		}
	}
	if at < 0 {
		out := append([]string(nil), lines...)
		for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
			out = out[:len(out)-1]
		}
		out = append(out, "")
		out = append(out, call...)
		return append(out, "")
	}

	out := make([]string, 0, len(lines)+len(call)+1)
	out = append(out, lines[:at]...)
	out = append(out, call...)
	out = append(out, "")
	return append(out, lines[at:]...)
}

func sameSet(a, b []string) bool {
	as := make(map[string]bool, len(a))
	for _, l := range a {
		as[normalizeImport(l)] = true
	}
	bs := make(map[string]bool, len(b))
	for _, l := range b {
		bs[normalizeImport(l)] = true
	}
	if len(as) != len(bs) {
		return false
	}
	for l := range as {
		if !bs[l] {
			return false
		}
	}
	return true
}

// Sync rewrites the unit at unitPath so that it imports exactly children.
// The file is only written when the set of import statements changed.
func (s *Synchronizer) Sync(ctx context.Context, unitPath string, children []string) (bool, error) {
	data, err := s.fs.ReadFile(ctx, unitPath)
	if err != nil {
		return false, err
	}

	text, changed, err := s.Plan(unitPath, string(data), children)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	formatted, err := s.formatter.Format(ctx, unitPath, []byte(text))
	if err != nil {
		return false, err
	}
	if err := s.fs.WriteFile(ctx, unitPath, formatted); err != nil {
		return false, err
	}
	return true, nil
}
