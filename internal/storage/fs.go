package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/starford/vaultfold/internal/models"
	"github.com/starford/vaultfold/internal/vaultpath"
)

// DocumentExt is the extension of files treated as documents.
const DocumentExt = ".md"

const tempPrefix = ".vaultfold-tmp-"

// FS implements Documents and Folders on the local file system.
type FS struct {
	guard *vaultpath.Guard
	root  string
}

var (
	_ Documents = (*FS)(nil)
	_ Folders   = (*FS)(nil)
)

// NewFS returns an FS rooted at the guard's vault root.
func NewFS(guard *vaultpath.Guard) *FS {
	return &FS{guard: guard, root: guard.Root()}
}

// DirFS exposes the vault as a read-only fs.FS.
func (f *FS) DirFS() fs.FS { return os.DirFS(f.root) }

// safePath resolves a relative document path against the vault root and
// rejects any result that escapes it or lands in a protected folder.
func (f *FS) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: invalid document path: %q", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	if f.guard.DeniedRel(filepath.ToSlash(cleaned)) {
		return "", fmt.Errorf("storage: path is protected: %s", rel)
	}
	return abs, nil
}

// ListDocuments walks the vault in lexical order. Protected folders and
// symlinked directories are not entered.
func (f *FS) ListDocuments(ctx context.Context, limit int) ([]models.Document, bool, error) {
	var out []models.Document
	truncated := false
	errStop := errors.New("stop")

	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if p == f.root {
				return walkErr
			}
			// Unreadable subtrees are skipped rather than failing the listing.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(f.root, p)
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if p != f.root && f.guard.DeniedRel(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), DocumentExt) {
			return nil
		}
		if limit > 0 && len(out) >= limit {
			truncated = true
			return errStop
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, models.Document{
			Path:      rel,
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return out, truncated, fmt.Errorf("storage: list documents: %w", err)
	}
	return out, truncated, nil
}

// HasDocument reports whether a regular document exists at path.
func (f *FS) HasDocument(path string) bool {
	abs, err := f.safePath(path)
	if err != nil {
		return false
	}
	info, err := os.Lstat(abs)
	return err == nil && info.Mode().IsRegular()
}

// ReadDocument returns the raw bytes of a document and their checksum.
func (f *FS) ReadDocument(path string) ([]byte, string, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, "", fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, Checksum(data), nil
}

// WriteDocument atomically writes content: tmp file → fsync → rename. The
// write is refused with ErrStale when the file no longer matches ifMatch.
func (f *FS) WriteDocument(path string, content []byte, ifMatch string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("storage: stat %s: %w", path, err)
	}
	if ifMatch != "" {
		current, err := os.ReadFile(abs)
		if err != nil {
			return fmt.Errorf("storage: read %s: %w", path, err)
		}
		if Checksum(current) != ifMatch {
			return fmt.Errorf("storage: write %s: %w", path, ErrStale)
		}
	}

	dir := filepath.Dir(abs)
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Lstat returns entry information without following a final symlink. A
// path running through a file reports fs.ErrNotExist.
func (f *FS) Lstat(p vaultpath.Path) (fs.FileInfo, error) {
	info, err := os.Lstat(f.guard.Abs(p))
	if errors.Is(err, syscall.ENOTDIR) {
		return nil, &fs.PathError{Op: "lstat", Path: p.String(), Err: fs.ErrNotExist}
	}
	return info, err
}

// CountEntries returns the number of files and folders below p.
func (f *FS) CountEntries(p vaultpath.Path) (int, error) {
	base := f.guard.Abs(p)
	n := 0
	err := filepath.WalkDir(base, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != base {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("storage: count %s: %w", p, err)
	}
	return n, nil
}

// Mkdir creates the folder p, and its missing parents when parents is set.
func (f *FS) Mkdir(p vaultpath.Path, parents bool) error {
	abs := f.guard.Abs(p)
	var err error
	if parents {
		err = os.MkdirAll(abs, 0o755)
	} else {
		err = os.Mkdir(abs, 0o755)
	}
	if err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", p, err)
	}
	return nil
}

// Rename moves a file or folder within the vault.
func (f *FS) Rename(from, to vaultpath.Path) error {
	if err := os.Rename(f.guard.Abs(from), f.guard.Abs(to)); err != nil {
		return fmt.Errorf("storage: rename %s -> %s: %w", from, to, err)
	}
	return nil
}

// RemoveAll deletes p and everything below it.
func (f *FS) RemoveAll(p vaultpath.Path) error {
	if p.IsRoot() {
		return fmt.Errorf("storage: refusing to remove vault root")
	}
	if err := os.RemoveAll(f.guard.Abs(p)); err != nil {
		return fmt.Errorf("storage: remove %s: %w", p, err)
	}
	return nil
}

// Checksum returns the hex SHA-256 of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
