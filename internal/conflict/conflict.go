// Package conflict holds the structural checks run before a folder is
// mutated. Every check returns nil when there is nothing wrong, or a
// *Violation naming the reason and the paths involved.
package conflict

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/starford/vaultfold/internal/apperr"
	"github.com/starford/vaultfold/internal/vaultpath"
)

// Reason identifies the violated invariant.
type Reason string

const (
	DestinationExists Reason = "destination_exists"
	CircularMove      Reason = "circular_move"
	SameLocation      Reason = "same_location"
	VaultRoot         Reason = "vault_root"
	ProtectedSubtree  Reason = "protected_subtree"
	NotEmpty          Reason = "not_empty"
)

// Violation describes a failed check. Other is the second path involved,
// if any.
type Violation struct {
	Reason Reason
	Path   vaultpath.Path
	Other  vaultpath.Path
	Items  int
}

// Err converts v into the typed error surfaced to callers.
func (v *Violation) Err(op string) error {
	switch v.Reason {
	case VaultRoot:
		return apperr.Security(op, v.Path.String(), "the vault root itself cannot be modified",
			"target a folder inside the vault")
	case ProtectedSubtree:
		return apperr.Security(op, v.Path.String(), "path is inside a protected folder",
			"protected folders such as .obsidian or .git cannot be changed through folder operations")
	case DestinationExists:
		return apperr.Conflict(op, v.Path.String(), "destination already exists: "+v.Other.String(),
			"choose a different name or destination, or remove the existing entry first")
	case CircularMove:
		return apperr.Conflict(op, v.Path.String(), "cannot move a folder into itself or its own subfolder: "+v.Other.String(),
			"pick a destination outside "+v.Path.String())
	case SameLocation:
		return apperr.Conflict(op, v.Path.String(), "folder is already located in "+v.Other.String(),
			"pick a different destination folder")
	case NotEmpty:
		return apperr.Conflict(op, v.Path.String(), fmt.Sprintf("folder is not empty (%d items)", v.Items),
			"set force to delete the folder and everything in it")
	default:
		return apperr.Conflict(op, v.Path.String(), string(v.Reason), "")
	}
}

// Protected reports a violation when p is the vault root or in a denylisted
// subtree.
func Protected(g *vaultpath.Guard, p vaultpath.Path) *Violation {
	if p.IsRoot() {
		return &Violation{Reason: VaultRoot, Path: p}
	}
	if g.Denied(p) {
		return &Violation{Reason: ProtectedSubtree, Path: p}
	}
	return nil
}

// Circular reports a violation when dest is source or one of its
// descendants.
func Circular(source, dest vaultpath.Path) *Violation {
	if source.Contains(dest) {
		return &Violation{Reason: CircularMove, Path: source, Other: dest}
	}
	return nil
}

// Stater reports filesystem state for vault paths.
type Stater interface {
	Lstat(p vaultpath.Path) (fs.FileInfo, error)
}

// Destination reports a violation when any entry occupies dest. An entry
// that is the same file as source (a case-only rename on a
// case-insensitive filesystem) does not count.
func Destination(st Stater, source, dest vaultpath.Path) (*Violation, error) {
	di, err := st.Lstat(dest)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if source != dest {
		if si, serr := st.Lstat(source); serr == nil && os.SameFile(si, di) {
			return nil, nil
		}
	}
	return &Violation{Reason: DestinationExists, Path: source, Other: dest}, nil
}

// Counter counts the entries below a folder.
type Counter interface {
	CountEntries(p vaultpath.Path) (int, error)
}

// NonEmpty reports a violation when p has any entries. The entry count is
// returned either way.
func NonEmpty(c Counter, p vaultpath.Path) (*Violation, int, error) {
	n, err := c.CountEntries(p)
	if err != nil {
		return nil, 0, err
	}
	if n > 0 {
		return &Violation{Reason: NotEmpty, Path: p, Items: n}, n, nil
	}
	return nil, 0, nil
}
