package vaultpath

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/starford/vaultfold/internal/apperr"
)

// DefaultProtected is the denylist used when none is configured.
var DefaultProtected = []string{".obsidian", ".git", ".trash", "node_modules"}

// Guard resolves raw input into Paths under a fixed root.
type Guard struct {
	root      string
	protected []string
}

// NewGuard returns a Guard rooted at root. The root must exist and be a
// directory; it is made absolute and has its symlinks resolved once.
//
// Entries in protected without a slash match a folder of that name at any
// depth. Entries with a slash match that subtree relative to the root.
func NewGuard(root string, protected []string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vaultpath: resolve root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("vaultpath: resolve root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("vaultpath: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vaultpath: root is not a directory: %s", resolved)
	}

	var deny []string
	for _, p := range protected {
		p = strings.Trim(path.Clean(strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")), "/")
		if p == "" || p == "." {
			continue
		}
		deny = append(deny, p)
	}
	return &Guard{root: resolved, protected: deny}, nil
}

// Root returns the absolute, symlink-free vault root.
func (g *Guard) Root() string { return g.root }

// Protected returns the configured denylist.
func (g *Guard) Protected() []string {
	return append([]string(nil), g.protected...)
}

// Abs returns the absolute filesystem location of p.
func (g *Guard) Abs(p Path) string {
	if p.rel == "" {
		return g.root
	}
	return filepath.Join(g.root, filepath.FromSlash(p.rel))
}

// Resolve validates raw and returns it as a Path. Absolute paths, ".."
// segments and NUL bytes are rejected before the filesystem is touched. The
// longest existing prefix is then resolved through symlinks and must stay
// under the root.
func (g *Guard) Resolve(raw string) (Path, error) {
	cleaned, err := clean(raw)
	if err != nil {
		return Root, err
	}
	if cleaned == "" {
		return Root, nil
	}
	p := Path{rel: cleaned}
	if err := g.contain(raw, p); err != nil {
		return Root, err
	}
	return p, nil
}

func clean(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.IndexByte(s, 0) >= 0 {
		return "", apperr.Security("", raw, "path contains a NUL byte", "remove control characters from the path")
	}
	s = strings.ReplaceAll(s, `\`, "/")
	if isAbs(s) {
		return "", apperr.Security("", raw, "absolute paths are not allowed",
			"use a path relative to the vault root, e.g. projects/alpha")
	}
	for _, seg := range strings.Split(s, "/") {
		if seg == ".." {
			return "", apperr.Security("", raw, "path must not contain '..' segments",
				"use a path relative to the vault root without parent references")
		}
	}
	c := path.Clean(s)
	if c == "." {
		return "", nil
	}
	return strings.TrimPrefix(c, "./"), nil
}

func isAbs(s string) bool {
	if strings.HasPrefix(s, "/") || filepath.IsAbs(s) || filepath.VolumeName(s) != "" {
		return true
	}
	return len(s) >= 2 && s[1] == ':' && isLetter(s[0])
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// contain walks up from the full location until an existing entry is found,
// resolves that prefix and checks the rejoined result against the root.
func (g *Guard) contain(raw string, p Path) error {
	cur := g.Abs(p)
	var rest []string
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			full := filepath.Join(append([]string{resolved}, rest...)...)
			if !within(g.root, full) {
				return apperr.Security("", raw, "path resolves outside the vault root",
					"symbolic links that leave the vault cannot be used")
			}
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
			return apperr.Security("", raw, "path cannot be resolved", "check the path and its permissions").Wrap(err)
		}
		if _, lerr := os.Lstat(cur); lerr == nil {
			// The entry exists but its target does not: a dangling symlink.
			return apperr.Security("", raw, "path goes through a dangling symbolic link",
				"remove or fix the link before using this path")
		}
		if cur == g.root {
			return apperr.Security("", raw, "vault root is not accessible", "check that the vault directory exists")
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = filepath.Dir(cur)
	}
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Denied reports whether p lies in a denylisted subtree.
func (g *Guard) Denied(p Path) bool {
	return g.DeniedRel(p.rel)
}

// DeniedRel is Denied for a raw slash separated relative path.
func (g *Guard) DeniedRel(rel string) bool {
	rel = strings.Trim(rel, "/")
	if rel == "" || rel == "." {
		return false
	}
	segs := strings.Split(rel, "/")
	for _, d := range g.protected {
		if strings.Contains(d, "/") {
			if rel == d || strings.HasPrefix(rel, d+"/") {
				return true
			}
			continue
		}
		for _, s := range segs {
			if s == d {
				return true
			}
		}
	}
	return false
}

// IsProtected reports whether p is the vault root or a denylisted subtree.
func (g *Guard) IsProtected(p Path) bool {
	return p.IsRoot() || g.Denied(p)
}
