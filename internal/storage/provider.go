// Package storage defines the vault file-system abstraction.
package storage

import (
	"context"
	"errors"
	"io/fs"

	"github.com/starford/vaultfold/internal/models"
	"github.com/starford/vaultfold/internal/vaultpath"
)

// ErrStale is returned by WriteDocument when the document changed after it
// was read.
var ErrStale = errors.New("storage: document changed since it was read")

// Documents is the note-content surface used by the reference scanner.
type Documents interface {
	// ListDocuments returns handles for Markdown files in lexical path order,
	// at most limit of them when limit > 0. truncated is true when more
	// exist.
	ListDocuments(ctx context.Context, limit int) (docs []models.Document, truncated bool, err error)
	// HasDocument reports whether a Markdown file exists at path.
	HasDocument(path string) bool
	// ReadDocument returns the raw content and its checksum.
	ReadDocument(path string) ([]byte, string, error)
	// WriteDocument atomically replaces the content when the current
	// checksum still equals ifMatch.
	WriteDocument(path string, content []byte, ifMatch string) error
}

// Folders is the directory surface used by the folder engine.
type Folders interface {
	Lstat(p vaultpath.Path) (fs.FileInfo, error)
	CountEntries(p vaultpath.Path) (int, error)
	Mkdir(p vaultpath.Path, parents bool) error
	Rename(from, to vaultpath.Path) error
	RemoveAll(p vaultpath.Path) error
}
