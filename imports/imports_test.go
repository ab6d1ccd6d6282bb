package imports

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/transunit/workspace"
)

const (
	libImport  = "import { mergeTranslations } from '@/i18n/merge'"
	typeImport = "import type { TranslationTable } from '@/i18n/types'"
)

func testOptions() Options {
	return Options{
		ImportRoot:    "/p/src",
		Alias:         "@",
		Prefix:        "t_",
		LibraryImport: libImport,
		TypeImport:    typeImport,
		MergeFunc:     "mergeTranslations",
		TableVar:      "translations",
	}
}

const bareUnit = typeImport + `

const translations: TranslationTable = {
  en: {},
}

export default translations
`

func TestImportName(t *testing.T) {
	s := New(testOptions(), nil, nil)
	for path, want := range map[string]string{
		"/p/src/components/button/translations.ts": "t_components_button",
		"/p/src/my-widget/v2/translations.ts":      "t_my_widget_v2",
		"/p/src/a.b/translations.ts":               "t_a_b",
	} {
		got, err := s.ImportName(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
}

func TestImportNameOutsideImportRoot(t *testing.T) {
	s := New(testOptions(), nil, nil)
	for _, path := range []string{
		"/p/src/translations.ts",
		"/p/translations.ts",
		"/other/x/translations.ts",
	} {
		_, err := s.ImportName(path)
		assert.Error(t, err, path)
	}
}

func TestSpecifier(t *testing.T) {
	s := New(testOptions(), nil, nil)
	assert.Equal(t, "@/components/translations", s.specifier("/p/src/translations.ts", "/p/src/components/translations.ts"))

	opts := testOptions()
	opts.Alias = ""
	rel := New(opts, nil, nil)
	assert.Equal(t, "./components/translations", rel.specifier("/p/src/translations.ts", "/p/src/components/translations.ts"))
}

func TestPlanAddsImportsAndInvocation(t *testing.T) {
	s := New(testOptions(), nil, nil)
	children := []string{
		"/p/src/pages/translations.ts",
		"/p/src/components/translations.ts",
	}

	text, changed, err := s.Plan("/p/src/translations.ts", bareUnit, children)
	require.NoError(t, err)
	assert.True(t, changed)

	want := libImport + `
import t_components from '@/components/translations'
import t_pages from '@/pages/translations'
` + typeImport + `

const translations: TranslationTable = {
  en: {},
}

mergeTranslations(
  translations,
  t_components,
  t_pages,
)

export default translations
`
	assert.Equal(t, want, text)
}

func TestPlanReplacesPreviousInvocation(t *testing.T) {
	s := New(testOptions(), nil, nil)
	first, _, err := s.Plan("/p/src/translations.ts", bareUnit, []string{"/p/src/a/translations.ts", "/p/src/b/translations.ts"})
	require.NoError(t, err)

	second, changed, err := s.Plan("/p/src/translations.ts", first, []string{"/p/src/b/translations.ts"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, strings.Count(second, "mergeTranslations("))
	assert.NotContains(t, second, "t_a")
	assert.Contains(t, second, "mergeTranslations(\n  translations,\n  t_b,\n)\n\nexport default translations")
}

func TestPlanRemovesInvocationWhenNoChildren(t *testing.T) {
	s := New(testOptions(), nil, nil)
	withChild, _, err := s.Plan("/p/src/translations.ts", bareUnit, []string{"/p/src/a/translations.ts"})
	require.NoError(t, err)

	text, changed, err := s.Plan("/p/src/translations.ts", withChild, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, bareUnit, text)
}

func TestPlanSingleLineInvocation(t *testing.T) {
	s := New(testOptions(), nil, nil)
	src := strings.Replace(bareUnit, "export default", "mergeTranslations(translations, t_old);\n\nexport default", 1)

	text, _, err := s.Plan("/p/src/translations.ts", src, []string{"/p/src/a/translations.ts"})
	require.NoError(t, err)
	assert.NotContains(t, text, "t_old")
	assert.Equal(t, 1, strings.Count(text, "mergeTranslations("))
}

func TestPlanReorderIsNotAChange(t *testing.T) {
	s := New(testOptions(), nil, nil)
	src := libImport + `
import t_b from '@/b/translations'
import t_a from '@/a/translations'
` + typeImport + `

const translations: TranslationTable = {}

export default translations
`
	text, changed, err := s.Plan("/p/src/translations.ts", src, []string{"/p/src/a/translations.ts", "/p/src/b/translations.ts"})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, strings.Index(text, "t_a from") < strings.Index(text, "t_b from"))
}

func TestPlanWithoutImportsPrependsBlock(t *testing.T) {
	s := New(testOptions(), nil, nil)
	src := "const translations = {}\n\nexport default translations\n"

	text, changed, err := s.Plan("/p/src/translations.ts", src, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, strings.HasPrefix(text, typeImport+"\n\nconst translations"))
}

func TestSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fsys := workspace.NewMemFS(map[string]string{"/p/src/translations.ts": bareUnit})
	s := New(testOptions(), fsys, nil)
	children := []string{"/p/src/a/translations.ts"}

	changed, err := s.Sync(ctx, "/p/src/translations.ts", children)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, fsys.Writes("/p/src/translations.ts"))

	changed, err = s.Sync(ctx, "/p/src/translations.ts", children)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, fsys.Writes("/p/src/translations.ts"))
}

func TestSyncMissingFile(t *testing.T) {
	s := New(testOptions(), workspace.NewMemFS(nil), nil)
	_, err := s.Sync(context.Background(), "/p/src/translations.ts", nil)
	assert.Error(t, err)
}

// prettierish mimics a formatter that rewrites quotes, adds semicolons and
// wraps long named imports.
type prettierish struct{}

func (prettierish) Format(_ context.Context, _ string, src []byte) ([]byte, error) {
	var out []string
	for _, l := range strings.Split(string(src), "\n") {
		if strings.HasPrefix(l, "import ") {
			l = strings.ReplaceAll(l, "'", `"`) + ";"
			l = strings.Replace(l, "{ mergeTranslations }", "{\n  mergeTranslations,\n}", 1)
		}
		out = append(out, l)
	}
	return []byte(strings.Join(out, "\n")), nil
}

func TestSyncIsIdempotentAfterReformatting(t *testing.T) {
	ctx := context.Background()
	path := "/p/src/translations.ts"
	fsys := workspace.NewMemFS(map[string]string{path: bareUnit})
	s := New(testOptions(), fsys, prettierish{})
	children := []string{"/p/src/a/translations.ts", "/p/src/b/translations.ts"}

	changed, err := s.Sync(ctx, path, children)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Contains(t, fsys.Get(path), `import t_a from "@/a/translations";`)
	require.Contains(t, fsys.Get(path), "import {\n  mergeTranslations,\n} from \"@/i18n/merge\";")

	for i := 0; i < 3; i++ {
		changed, err = s.Sync(ctx, path, children)
		require.NoError(t, err)
		assert.False(t, changed, "sync %d", i+2)
	}
	assert.Equal(t, 1, fsys.Writes(path))

	changed, err = s.Sync(ctx, path, children[:1])
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestPlanReplacesWrappedImports(t *testing.T) {
	s := New(testOptions(), nil, nil)
	src := "import {\n  mergeTranslations,\n} from \"@/i18n/merge\";\n" +
		"import t_old from \"@/old/translations\";\n" +
		typeImport + ";\n\nconst translations: TranslationTable = {}\n\nexport default translations\n"

	text, changed, err := s.Plan("/p/src/translations.ts", src, []string{"/p/src/a/translations.ts"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotContains(t, text, "t_old")
	assert.NotContains(t, text, "  mergeTranslations,\n}")
	assert.True(t, strings.HasPrefix(text, libImport+"\nimport t_a from '@/a/translations'\n"+typeImport+"\n\nconst translations"))
}

func TestNormalizeImport(t *testing.T) {
	want := normalizeImport(libImport)
	for _, stmt := range []string{
		`import { mergeTranslations } from "@/i18n/merge";`,
		"import {\n  mergeTranslations,\n} from '@/i18n/merge'",
		"  import {mergeTranslations} from '@/i18n/merge' ;",
	} {
		assert.Equal(t, want, normalizeImport(stmt), stmt)
	}
	assert.NotEqual(t, want, normalizeImport("import { other } from '@/i18n/merge'"))
}

func TestPlanRejectsImportNameCollision(t *testing.T) {
	s := New(testOptions(), nil, nil)
	_, _, err := s.Plan("/p/src/translations.ts", bareUnit, []string{
		"/p/src/a-b/translations.ts",
		"/p/src/a_b/translations.ts",
	})
	var collision *NameCollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "t_a_b", collision.Name)
	assert.Equal(t, "/p/src/a-b/translations.ts", collision.First)
	assert.Equal(t, "/p/src/a_b/translations.ts", collision.Second)
}

func TestPlanIgnoresRepeatedChild(t *testing.T) {
	s := New(testOptions(), nil, nil)
	text, _, err := s.Plan("/p/src/translations.ts", bareUnit, []string{
		"/p/src/a/translations.ts",
		"/p/src/a/translations.ts",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(text, "import t_a from"))
}

func TestSyncCollisionLeavesFileUntouched(t *testing.T) {
	ctx := context.Background()
	path := "/p/src/translations.ts"
	fsys := workspace.NewMemFS(map[string]string{path: bareUnit})
	s := New(testOptions(), fsys, nil)

	_, err := s.Sync(ctx, path, []string{"/p/src/a-b/translations.ts", "/p/src/a_b/translations.ts"})
	require.Error(t, err)
	assert.Equal(t, 0, fsys.Writes(path))
	assert.Equal(t, bareUnit, fsys.Get(path))
}
