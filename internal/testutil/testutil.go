// Package testutil provides shared test helpers for setting up vaults.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/vaultfold/internal/storage"
	"github.com/starford/vaultfold/internal/vaultpath"
)

// TestVault creates a temporary vault with the default denylist and returns
// its guard and store.
func TestVault(t *testing.T) (*vaultpath.Guard, *storage.FS) {
	t.Helper()
	g, err := vaultpath.NewGuard(t.TempDir(), vaultpath.DefaultProtected)
	if err != nil {
		t.Fatal(err)
	}
	return g, storage.NewFS(g)
}

// WriteFiles creates files (slash separated path → content) under root,
// creating parent folders as needed.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// MkdirAll creates folders under root.
func MkdirAll(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(d)), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

// ReadFile returns the content of a vault file, failing the test if it
// cannot be read.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// Exists reports whether a vault entry exists.
func Exists(root, rel string) bool {
	_, err := os.Lstat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

// MustResolve resolves raw through g, failing the test on error.
func MustResolve(t *testing.T, g *vaultpath.Guard, raw string) vaultpath.Path {
	t.Helper()
	p, err := g.Resolve(raw)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", raw, err)
	}
	return p
}
