// Package folders implements the folder operation engine: create, rename,
// move, delete and list on a vault, with path confinement, conflict checks
// and wikilink maintenance.
package folders

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/vaultfold/internal/apperr"
	"github.com/starford/vaultfold/internal/lister"
	"github.com/starford/vaultfold/internal/models"
	"github.com/starford/vaultfold/internal/pathlock"
	"github.com/starford/vaultfold/internal/refs"
	"github.com/starford/vaultfold/internal/storage"
	"github.com/starford/vaultfold/internal/vaultpath"
)

// Limits are the scan limits, fixed for the life of an Engine.
type Limits struct {
	MaxDocumentsScanned int
	MaxTraversalDepth   int
	MaxPageSize         int
	DefaultPageSize     int
	MaxEntriesScanned   int
	RewriteWorkers      int
}

// DefaultLimits mirrors the configuration defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxDocumentsScanned: 1000,
		MaxTraversalDepth:   10,
		MaxPageSize:         200,
		DefaultPageSize:     50,
		MaxEntriesScanned:   10000,
		RewriteWorkers:      4,
	}
}

// Event kinds passed to a Notifier.
const (
	EventCreated = "created"
	EventRenamed = "renamed"
	EventMoved   = "moved"
	EventDeleted = "deleted"
)

// Notifier receives completed, non dry-run mutations.
type Notifier interface {
	FolderChanged(kind, path, newPath string)
}

// Store is the filesystem surface the engine needs.
type Store interface {
	storage.Documents
	storage.Folders
	DirFS() fs.FS
}

// Engine runs folder operations against one vault.
type Engine struct {
	guard   *vaultpath.Guard
	store   Store
	limits  Limits
	scanner *refs.Scanner
	lister  *lister.Lister
	locks   *pathlock.Locker
	notify  Notifier
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithNotifier registers a receiver for folder change events.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notify = n }
}

// New returns an Engine over store, confined by guard.
func New(guard *vaultpath.Guard, store Store, limits Limits, opts ...Option) *Engine {
	e := &Engine{
		guard:  guard,
		store:  store,
		limits: limits,
		locks:  pathlock.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.scanner = refs.NewScanner(store, refs.Limits{
		MaxDocuments: limits.MaxDocumentsScanned,
		Workers:      limits.RewriteWorkers,
	}, e.logger)
	e.lister = lister.New(store.DirFS(), guard.DeniedRel, storage.DocumentExt, lister.Limits{
		MaxDepth:    limits.MaxTraversalDepth,
		MaxPageSize: limits.MaxPageSize,
		MaxEntries:  limits.MaxEntriesScanned,
	}, e.logger)
	return e
}

// Limits returns the engine's scan limits.
func (e *Engine) Limits() Limits { return e.limits }

// Execute runs req. Validation, security, not-found and conflict failures
// are returned as *apperr.Error before anything is changed. A context that
// ends mid-operation yields a Result marked Incomplete.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.Op == nil {
		return nil, apperr.Validation("", req.Target, "no operation given", "use one of create, rename, move, delete, list")
	}
	kind := req.Op.Kind()
	opID := uuid.NewString()
	logger := e.logger.With(
		slog.String("operation_id", opID),
		slog.String("operation", string(kind)),
	)
	start := time.Now()
	logger.Info("folders: operation started",
		slog.String("path", req.Target),
		slog.Bool("dry_run", req.DryRun))

	var (
		res *Result
		err error
	)
	switch op := req.Op.(type) {
	case Create:
		res, err = e.create(ctx, req, op, logger)
	case Rename:
		res, err = e.rename(ctx, req, op, logger)
	case Move:
		res, err = e.move(ctx, req, op, logger)
	case Delete:
		res, err = e.delete(ctx, req, op, logger)
	case List:
		res, err = e.list(ctx, req, op)
	default:
		err = apperr.Validation("", req.Target, fmt.Sprintf("unsupported operation %T", req.Op), "")
	}

	if err != nil {
		err = apperr.WithOp(err, string(kind))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("folders: operation interrupted", slog.String("error", err.Error()))
			return interrupted(kind, req, err), nil
		}
		attrs := []any{slog.String("path", req.Target), slog.String("error", err.Error())}
		if errors.Is(err, apperr.ErrSecurity) {
			logger.Warn("folders: rejected unsafe path", append(attrs, slog.String("raw_input", req.Target))...)
		} else {
			logger.Info("folders: operation failed", attrs...)
		}
		return nil, err
	}

	res.Metadata[MetaOperationID] = opID
	logger.Info("folders: operation completed",
		slog.Bool("success", res.Success),
		slog.Int("warnings", len(res.Warnings)),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

// interrupted reports an operation whose context ended before it mutated
// anything.
func interrupted(kind Kind, req Request, err error) *Result {
	res := newResult(kind, req.Target, req.DryRun)
	res.Incomplete = true
	res.Message = "Operation did not complete before its deadline; nothing was changed"
	res.warn(models.Warning{Code: models.WarnInterrupted, Message: err.Error()})
	return res
}

func (e *Engine) resolve(raw string) (vaultpath.Path, error) {
	return e.guard.Resolve(raw)
}

// folderInfo stats p and requires it to be an existing folder. Symlinks
// are not followed and count as not-a-folder.
func (e *Engine) folderInfo(op string, p vaultpath.Path) (fs.FileInfo, error) {
	info, err := e.store.Lstat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound(op, p.String(), "folder does not exist",
			"check the path with the list operation")
	}
	if err != nil {
		return nil, fmt.Errorf("folders: stat %s: %w", p, err)
	}
	if !info.IsDir() {
		return nil, notAFolder(op, p, info)
	}
	return info, nil
}

func notAFolder(op string, p vaultpath.Path, info fs.FileInfo) error {
	if info.Mode()&fs.ModeSymlink != 0 {
		return apperr.NotFound(op, p.String(), "path is a symbolic link, not a folder",
			"folder operations do not follow links; target the real folder instead")
	}
	return apperr.NotFound(op, p.String(), "path is a file, not a folder",
		"use the note-management tool for files")
}

func (e *Engine) publish(kind, path, newPath string) {
	if e.notify != nil {
		e.notify.FolderChanged(kind, path, newPath)
	}
}

// applyReport copies a reference pass report into res.
func applyReport(res *Result, rep *refs.Report, dryRun bool) {
	res.Metadata[MetaReferencesUpdated] = rep.Total
	res.Metadata[MetaDocumentsScanned] = rep.Scanned
	res.Metadata[MetaScanTruncated] = rep.Truncated
	docs := make([]string, 0, len(rep.Documents))
	for _, d := range rep.Documents {
		if dryRun || d.Updated {
			docs = append(docs, d.Path)
		}
	}
	res.Metadata[MetaDocumentsUpdated] = len(docs)
	res.Metadata[MetaUpdatedDocuments] = docs
	if !dryRun {
		// Count only what was written; failed documents show up as warnings.
		written := 0
		for _, d := range rep.Documents {
			if d.Updated {
				written += d.Matches
			}
		}
		res.Metadata[MetaReferencesUpdated] = written
	}
	if rep.Incomplete {
		res.Incomplete = true
	}
	res.warn(rep.Warnings...)
}
