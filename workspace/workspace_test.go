package workspace

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestOSWriteReadExists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "translations.ts")

	var w OS
	ok, err := w.Exists(ctx, path)
	if err != nil || ok {
		t.Fatalf("Exists before write = %v, %v; want false, nil", ok, err)
	}

	if err := w.WriteFile(ctx, path, []byte("hello")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := w.ReadFile(ctx, path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("ReadFile = %q, want hello", data)
	}

	ok, err = w.Exists(ctx, path)
	if err != nil || !ok {
		t.Fatalf("Exists after write = %v, %v; want true, nil", ok, err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestOSReadMissing(t *testing.T) {
	_, err := OS{}.ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.ts"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("ReadFile missing error = %v, want ErrNotExist", err)
	}
}

func TestMemFS(t *testing.T) {
	ctx := context.Background()
	m := NewMemFS(map[string]string{"/a/b.ts": "x"})

	if got := m.Get("/a/b.ts"); got != "x" {
		t.Fatalf("Get = %q, want x", got)
	}
	if err := m.WriteFile(ctx, "/a/c.ts", []byte("y")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if m.Writes("/a/c.ts") != 1 {
		t.Fatalf("Writes = %d, want 1", m.Writes("/a/c.ts"))
	}

	m.FailWrites["/a/b.ts"] = errors.New("disk full")
	if err := m.WriteFile(ctx, "/a/b.ts", []byte("z")); err == nil {
		t.Fatal("expected injected write failure")
	}
	if got := m.Get("/a/b.ts"); got != "x" {
		t.Fatalf("failed write changed content to %q", got)
	}

	if _, err := m.ReadFile(ctx, "/nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("ReadFile missing error = %v", err)
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	files := []string{
		"translations.ts",
		"components/translations.ts",
		"components/button/translations.ts",
		"components/button/other.ts",
		"node_modules/pkg/translations.ts",
	}
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(p, []byte(""), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	got, err := Scan(root, "translations.ts", []string{"node_modules"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []string{
		filepath.Join(root, "components/button/translations.ts"),
		filepath.Join(root, "components/translations.ts"),
		filepath.Join(root, "translations.ts"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Scan = %v, want %v", got, want)
	}

	dirs, err := Dirs(root, []string{"node_modules"})
	if err != nil {
		t.Fatalf("Dirs: %v", err)
	}
	if len(dirs) != 3 {
		t.Fatalf("Dirs = %v, want root, components, components/button", dirs)
	}
}
