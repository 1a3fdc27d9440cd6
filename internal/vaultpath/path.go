// Package vaultpath confines user supplied paths to a vault root.
//
// A Path can only be obtained through Guard.Resolve, so holding one means the
// value is relative, cleaned and contained within the root after symlink
// resolution at the time it was checked.
package vaultpath

import (
	"path"
	"strings"
)

// Path is a vault-relative, slash separated, cleaned path. The zero value is
// the vault root.
type Path struct {
	rel string
}

// Root is the vault root.
var Root = Path{}

// Rel returns the relative form, "" for the root.
func (p Path) Rel() string { return p.rel }

// String returns the relative form, "." for the root.
func (p Path) String() string {
	if p.rel == "" {
		return "."
	}
	return p.rel
}

// IsRoot reports whether p is the vault root.
func (p Path) IsRoot() bool { return p.rel == "" }

// Base returns the last segment, "" for the root.
func (p Path) Base() string {
	if p.rel == "" {
		return ""
	}
	return path.Base(p.rel)
}

// Parent returns the containing folder. The parent of the root is the root.
func (p Path) Parent() Path {
	i := strings.LastIndexByte(p.rel, '/')
	if i < 0 {
		return Root
	}
	return Path{rel: p.rel[:i]}
}

// Join appends a leaf name that has already passed ValidateName.
func (p Path) Join(name string) Path {
	if p.rel == "" {
		return Path{rel: name}
	}
	return Path{rel: p.rel + "/" + name}
}

// Segments returns the path components, nil for the root.
func (p Path) Segments() []string {
	if p.rel == "" {
		return nil
	}
	return strings.Split(p.rel, "/")
}

// Depth returns the number of segments.
func (p Path) Depth() int {
	if p.rel == "" {
		return 0
	}
	return strings.Count(p.rel, "/") + 1
}

// Contains reports whether q equals p or lies underneath it. The comparison
// is by segment, so "projects" does not contain "projects-2".
func (p Path) Contains(q Path) bool {
	if p.rel == "" {
		return true
	}
	return q.rel == p.rel || strings.HasPrefix(q.rel, p.rel+"/")
}

// Rebase replaces the from prefix of p with to. ok is false when p is not
// under from.
func (p Path) Rebase(from, to Path) (Path, bool) {
	if !from.Contains(p) {
		return p, false
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(p.rel, from.rel), "/")
	if rest == "" {
		return to, true
	}
	return to.Join(rest), true
}
