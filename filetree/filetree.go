// Package filetree maintains the hierarchy of translation units.
//
// Units live in an arena keyed by path. A unit's parent is the unit in the
// nearest proper ancestor directory, and its children are exactly the units
// that have it as nearest ancestor. The root unit sits in the import root
// and contains every other unit.
package filetree

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minios-linux/transunit/imports"
	"github.com/minios-linux/transunit/unitfile"
	"github.com/minios-linux/transunit/workspace"
)

// ErrRootUnit is returned when trying to remove the root unit.
var ErrRootUnit = errors.New("the root unit cannot be removed")

// ErrDirectoryTaken is returned when a directory already holds a unit.
var ErrDirectoryTaken = errors.New("directory already holds a translation unit")

// PlacementError means no unit in the tree could contain a new path. This
// breaks the assumption that every unit lives under the import root and
// is never resolved by guessing.
type PlacementError struct {
	Path string
	Root string
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("cannot place %s: no ancestor or descendant relation with any unit under %s", e.Path, e.Root)
}

type node struct {
	parent   string
	children []string // sorted
}

// Node is a read-only view of a unit in the tree.
type Node struct {
	Path     string
	Parent   string // "" for the root
	Children []string
}

// Tree is the unit hierarchy. It is not safe for concurrent mutation.
type Tree struct {
	root  string
	nodes map[string]*node
	dirs  map[string]string // directory -> unit path
}

// New returns a tree holding only the root unit at rootPath.
func New(rootPath string) *Tree {
	rootPath = filepath.Clean(rootPath)
	return &Tree{
		root:  rootPath,
		nodes: map[string]*node{rootPath: {}},
		dirs:  map[string]string{filepath.Dir(rootPath): rootPath},
	}
}

// Build returns a tree containing rootPath and every path in paths.
func Build(rootPath string, paths []string) (*Tree, error) {
	t := New(rootPath)
	for _, p := range paths {
		if err := t.AddFile(p); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Root returns the root unit path.
func (t *Tree) Root() string {
	return t.root
}

// Len returns the number of units, root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Has reports whether path is a unit in the tree.
func (t *Tree) Has(path string) bool {
	_, ok := t.nodes[filepath.Clean(path)]
	return ok
}

// contains reports whether unit x is in a position to hold n: x is the
// root, or n's directory lies strictly below x's directory.
func (t *Tree) contains(x, n string) bool {
	if x == t.root {
		return isBelow(filepath.Dir(t.root), filepath.Dir(n), true)
	}
	return isBelow(filepath.Dir(x), filepath.Dir(n), false)
}

// isBelow reports whether dir is inside base. With orSame, dir == base
// also counts.
func isBelow(base, dir string, orSame bool) bool {
	rel, err := filepath.Rel(base, dir)
	if err != nil || rel == "" {
		return false
	}
	if rel == "." {
		return orSame
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// AddFile inserts the unit at path. Adding a path twice is a no-op.
func (t *Tree) AddFile(path string) error {
	n := filepath.Clean(path)
	if _, ok := t.nodes[n]; ok {
		return nil
	}
	if other, ok := t.dirs[filepath.Dir(n)]; ok {
		return fmt.Errorf("%s: %w (%s)", n, ErrDirectoryTaken, other)
	}

	frontier := []string{t.root}
	for len(frontier) > 0 {
		x := frontier[0]
		frontier = frontier[1:]
		if !t.contains(x, n) {
			continue
		}

		var deeper []string
		for _, c := range t.nodes[x].children {
			if t.contains(c, n) {
				deeper = append(deeper, c)
			}
		}
		if len(deeper) == 0 {
			t.attach(x, n)
			return nil
		}
		frontier = append(frontier, deeper...)
	}
	return &PlacementError{Path: n, Root: t.root}
}

// attach makes n a child of parent and moves every child of parent that
// n contains under n.
func (t *Tree) attach(parent, n string) {
	p := t.nodes[parent]
	nn := &node{parent: parent}

	kept := p.children[:0:0]
	for _, c := range p.children {
		if t.contains(n, c) {
			nn.children = append(nn.children, c)
			t.nodes[c].parent = n
			continue
		}
		kept = append(kept, c)
	}
	p.children = insertSorted(kept, n)

	t.nodes[n] = nn
	t.dirs[filepath.Dir(n)] = n
}

func insertSorted(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}

// Remove deletes the unit at path. Its children move to its parent.
func (t *Tree) Remove(path string) error {
	n := filepath.Clean(path)
	if n == t.root {
		return ErrRootUnit
	}
	nn, ok := t.nodes[n]
	if !ok {
		return nil
	}

	p := t.nodes[nn.parent]
	var kept []string
	for _, c := range p.children {
		if c != n {
			kept = append(kept, c)
		}
	}
	for _, c := range nn.children {
		t.nodes[c].parent = nn.parent
		kept = insertSorted(kept, c)
	}
	p.children = kept

	delete(t.nodes, n)
	delete(t.dirs, filepath.Dir(n))
	return nil
}

// Parent returns the parent of path ("" for the root or unknown paths).
func (t *Tree) Parent(path string) string {
	if nn, ok := t.nodes[filepath.Clean(path)]; ok {
		return nn.parent
	}
	return ""
}

// Children returns a copy of the direct children of path.
func (t *Tree) Children(path string) []string {
	nn, ok := t.nodes[filepath.Clean(path)]
	if !ok {
		return nil
	}
	return append([]string(nil), nn.children...)
}

// Depth returns the number of ancestors of path, or -1 if it is unknown.
func (t *Tree) Depth(path string) int {
	p := filepath.Clean(path)
	if _, ok := t.nodes[p]; !ok {
		return -1
	}
	d := 0
	for p != t.root {
		p = t.nodes[p].parent
		d++
	}
	return d
}

// Node returns a view of the unit at path.
func (t *Tree) Node(path string) (Node, bool) {
	p := filepath.Clean(path)
	nn, ok := t.nodes[p]
	if !ok {
		return Node{}, false
	}
	return Node{Path: p, Parent: nn.parent, Children: append([]string(nil), nn.children...)}, true
}

// Walk visits every unit in pre-order, children left to right.
func (t *Tree) Walk(fn func(n Node, depth int)) {
	var visit func(p string, depth int)
	visit = func(p string, depth int) {
		n, _ := t.Node(p)
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(t.root, 0)
}

// Paths returns every unit path in pre-order.
func (t *Tree) Paths() []string {
	out := make([]string, 0, len(t.nodes))
	t.Walk(func(n Node, _ int) { out = append(out, n.Path) })
	return out
}

// ByDepth groups unit paths by depth; index 0 holds the root.
func (t *Tree) ByDepth() [][]string {
	var levels [][]string
	t.Walk(func(n Node, depth int) {
		for len(levels) <= depth {
			levels = append(levels, nil)
		}
		levels[depth] = append(levels[depth], n.Path)
	})
	return levels
}

// ---------------------------------------------------------------------------
// Persisting the root
// ---------------------------------------------------------------------------

// WriteRoot makes sure the root unit exists, creating it from tmpl with a
// table per locale when missing, then syncs its imports with its children.
func (t *Tree) WriteRoot(ctx context.Context, fsys workspace.FS, tmpl []byte, locales []string, sync *imports.Synchronizer) (bool, error) {
	exists, err := fsys.Exists(ctx, t.root)
	if err != nil {
		return false, err
	}

	created := false
	if !exists {
		f, err := unitfile.FromTemplate(tmpl, t.root, locales)
		if err != nil {
			return false, err
		}
		if err := fsys.WriteFile(ctx, t.root, f.Marshal()); err != nil {
			return false, err
		}
		created = true
	}

	changed, err := sync.Sync(ctx, t.root, t.Children(t.root))
	if err != nil {
		return created, err
	}
	return created || changed, nil
}
