package folders

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/starford/vaultfold/internal/apperr"
	"github.com/starford/vaultfold/internal/conflict"
	"github.com/starford/vaultfold/internal/vaultpath"
)

func (e *Engine) create(ctx context.Context, req Request, op Create, logger *slog.Logger) (*Result, error) {
	const name = string(KindCreate)
	p, err := e.resolve(req.Target)
	if err != nil {
		return nil, err
	}
	if v := conflict.Protected(e.guard, p); v != nil {
		return nil, v.Err(name)
	}
	for _, seg := range p.Segments() {
		if _, err := vaultpath.ValidateName(seg); err != nil {
			return nil, apperr.WithOp(err, name)
		}
	}

	unlock, err := e.locks.Lock(ctx, p)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res := newResult(KindCreate, p.String(), req.DryRun)

	info, err := e.store.Lstat(p)
	switch {
	case err == nil && info.IsDir():
		res.Success = true
		res.Metadata[MetaCreated] = false
		res.Message = fmt.Sprintf("Folder already exists: %s", p)
		return res, nil
	case err == nil:
		return nil, apperr.Conflict(name, p.String(), "a file already exists at this path",
			"choose a different folder name, or use the note-management tool to manage the file")
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("folders: stat %s: %w", p, err)
	}

	if err := e.checkAncestors(name, p, op.Parents); err != nil {
		return nil, err
	}

	if req.DryRun {
		res.Success = true
		res.Metadata[MetaCreated] = false
		res.Message = fmt.Sprintf("Would create folder: %s", p)
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.store.Mkdir(p, op.Parents); err != nil {
		return nil, err
	}
	logger.Debug("folders: created", slog.String("path", p.String()))
	e.publish(EventCreated, p.Rel(), "")

	res.Success = true
	res.Metadata[MetaCreated] = true
	res.Message = fmt.Sprintf("Created folder: %s", p)
	return res, nil
}

// checkAncestors verifies that every missing ancestor of p may be created.
// Without parents the immediate parent must already be a folder.
func (e *Engine) checkAncestors(op string, p vaultpath.Path, parents bool) error {
	for anc := p.Parent(); ; anc = anc.Parent() {
		info, err := e.store.Lstat(anc)
		switch {
		case err == nil && info.IsDir():
			return nil
		case err == nil:
			return apperr.Conflict(op, p.String(), "ancestor is not a folder: "+anc.String(),
				"choose a path whose parent folders are not files")
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("folders: stat %s: %w", anc, err)
		case !parents:
			return apperr.NotFound(op, p.String(), "parent folder does not exist: "+anc.String(),
				"set create_parents to create missing parent folders, or create "+anc.String()+" first")
		}
		if anc.IsRoot() {
			return nil
		}
	}
}
