package filetree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/transunit/imports"
	"github.com/minios-linux/transunit/unitfile"
	"github.com/minios-linux/transunit/workspace"
)

const root = "/p/src/translations.ts"

func unit(dir string) string {
	return "/p/src/" + dir + "/translations.ts"
}

// shape renders the tree as "path>parent" lines in pre-order.
func shape(t *Tree) string {
	var b strings.Builder
	t.Walk(func(n Node, depth int) {
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", depth), n.Path)
	})
	return b.String()
}

func TestAddFileNests(t *testing.T) {
	tr := New(root)
	require.NoError(t, tr.AddFile(unit("a")))
	require.NoError(t, tr.AddFile(unit("a/b")))
	require.NoError(t, tr.AddFile(unit("c")))

	assert.Equal(t, []string{unit("a"), unit("c")}, tr.Children(root))
	assert.Equal(t, []string{unit("a/b")}, tr.Children(unit("a")))
	assert.Equal(t, unit("a"), tr.Parent(unit("a/b")))
	assert.Equal(t, "", tr.Parent(root))
	assert.Equal(t, 4, tr.Len())
	assert.Equal(t, 2, tr.Depth(unit("a/b")))
	assert.Equal(t, -1, tr.Depth(unit("zzz")))
}

func TestAddFileSplices(t *testing.T) {
	tr := New(root)
	require.NoError(t, tr.AddFile(unit("a/b/c")))
	require.NoError(t, tr.AddFile(unit("a/d")))
	require.NoError(t, tr.AddFile(unit("x")))
	require.Equal(t, []string{unit("a/b/c"), unit("a/d"), unit("x")}, tr.Children(root))

	require.NoError(t, tr.AddFile(unit("a")))
	assert.Equal(t, []string{unit("a"), unit("x")}, tr.Children(root))
	assert.Equal(t, []string{unit("a/b/c"), unit("a/d")}, tr.Children(unit("a")))

	require.NoError(t, tr.AddFile(unit("a/b")))
	assert.Equal(t, []string{unit("a/b"), unit("a/d")}, tr.Children(unit("a")))
	assert.Equal(t, unit("a/b"), tr.Parent(unit("a/b/c")))
}

func TestSiblingPrefixIsNotAncestor(t *testing.T) {
	tr := New(root)
	require.NoError(t, tr.AddFile(unit("app")))
	require.NoError(t, tr.AddFile(unit("apple")))
	assert.Equal(t, []string{unit("app"), unit("apple")}, tr.Children(root))
}

func TestOrderIndependence(t *testing.T) {
	paths := []string{
		unit("a"), unit("a/b"), unit("a/b/c"), unit("a/d/e"),
		unit("f"), unit("f/g/h"), unit("f/g"),
	}
	want := shape(mustBuild(t, paths))

	permute(paths, func(p []string) {
		got := shape(mustBuild(t, p))
		if got != want {
			t.Fatalf("order %v gave\n%s\nwant\n%s", p, got, want)
		}
	})
}

func mustBuild(t *testing.T, paths []string) *Tree {
	t.Helper()
	tr, err := Build(root, paths)
	require.NoError(t, err)
	return tr
}

// permute calls fn with every permutation of s (Heap's algorithm).
func permute(s []string, fn func([]string)) {
	p := append([]string(nil), s...)
	var gen func(k int)
	gen = func(k int) {
		if k == 1 {
			fn(p)
			return
		}
		gen(k - 1)
		for i := 0; i < k-1; i++ {
			if k%2 == 0 {
				p[i], p[k-1] = p[k-1], p[i]
			} else {
				p[0], p[k-1] = p[k-1], p[0]
			}
			gen(k - 1)
		}
	}
	gen(len(p))
}

func TestAddFileTwiceIsNoop(t *testing.T) {
	tr := New(root)
	require.NoError(t, tr.AddFile(unit("a")))
	require.NoError(t, tr.AddFile(unit("a")))
	assert.Equal(t, 2, tr.Len())
}

func TestDirectoryTaken(t *testing.T) {
	tr := New(root)
	require.NoError(t, tr.AddFile(unit("a")))
	err := tr.AddFile("/p/src/a/other.ts")
	assert.ErrorIs(t, err, ErrDirectoryTaken)

	err = tr.AddFile("/p/src/other.ts")
	assert.ErrorIs(t, err, ErrDirectoryTaken)
}

func TestPlacementError(t *testing.T) {
	tr := New(root)
	err := tr.AddFile("/elsewhere/translations.ts")

	var pe *PlacementError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "/elsewhere/translations.ts", pe.Path)
	assert.Equal(t, 1, tr.Len())
}

func TestRemove(t *testing.T) {
	tr := mustBuild(t, []string{unit("a"), unit("a/b"), unit("a/c"), unit("d")})

	require.NoError(t, tr.Remove(unit("a")))
	assert.False(t, tr.Has(unit("a")))
	assert.Equal(t, []string{unit("a/b"), unit("a/c"), unit("d")}, tr.Children(root))
	assert.Equal(t, root, tr.Parent(unit("a/b")))

	// The directory is free again.
	require.NoError(t, tr.AddFile(unit("a")))
	assert.Equal(t, []string{unit("a/b"), unit("a/c")}, tr.Children(unit("a")))

	assert.ErrorIs(t, tr.Remove(root), ErrRootUnit)
	assert.NoError(t, tr.Remove(unit("missing")))
}

func TestWalkAndByDepth(t *testing.T) {
	tr := mustBuild(t, []string{unit("b"), unit("a/x"), unit("a")})

	assert.Equal(t, []string{root, unit("a"), unit("a/x"), unit("b")}, tr.Paths())
	assert.Equal(t, [][]string{
		{root},
		{unit("a"), unit("b")},
		{unit("a/x")},
	}, tr.ByDepth())
}

func newSync(fsys workspace.FS) *imports.Synchronizer {
	return imports.New(imports.Options{
		ImportRoot:    "/p/src",
		Alias:         "@",
		Prefix:        "t_",
		LibraryImport: "import { mergeTranslations } from '@/i18n/merge'",
		TypeImport:    "import type { TranslationTable } from '@/i18n/types'",
		MergeFunc:     "mergeTranslations",
		TableVar:      "translations",
	}, fsys, nil)
}

func TestWriteRootCreatesFromTemplate(t *testing.T) {
	ctx := context.Background()
	fsys := workspace.NewMemFS(nil)
	tr := mustBuild(t, []string{unit("a")})

	changed, err := tr.WriteRoot(ctx, fsys, unitfile.DefaultTemplate(), []string{"en", "fr"}, newSync(fsys))
	require.NoError(t, err)
	assert.True(t, changed)

	text := fsys.Get(root)
	assert.Contains(t, text, "fr: {},")
	assert.Contains(t, text, "import t_a from '@/a/translations'")
	assert.Contains(t, text, "mergeTranslations(\n  translations,\n  t_a,\n)")

	f, err := unitfile.Parse(root, []byte(text))
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fr"}, f.Catalog.Locales())

	changed, err = tr.WriteRoot(ctx, fsys, unitfile.DefaultTemplate(), []string{"en", "fr"}, newSync(fsys))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestWriteRootFollowsChildren(t *testing.T) {
	ctx := context.Background()
	fsys := workspace.NewMemFS(nil)
	tr := mustBuild(t, []string{unit("a")})
	sync := newSync(fsys)

	_, err := tr.WriteRoot(ctx, fsys, unitfile.DefaultTemplate(), nil, sync)
	require.NoError(t, err)

	require.NoError(t, tr.Remove(unit("a")))
	changed, err := tr.WriteRoot(ctx, fsys, unitfile.DefaultTemplate(), nil, sync)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotContains(t, fsys.Get(root), "t_a")
}

func TestWriteRootWriteFailure(t *testing.T) {
	fsys := workspace.NewMemFS(nil)
	fsys.FailWrites[root] = errors.New("disk full")
	tr := New(root)

	_, err := tr.WriteRoot(context.Background(), fsys, unitfile.DefaultTemplate(), nil, newSync(fsys))
	assert.Error(t, err)
	assert.Empty(t, fsys.Paths())
}
