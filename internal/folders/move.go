package folders

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/starford/vaultfold/internal/apperr"
	"github.com/starford/vaultfold/internal/conflict"
	"github.com/starford/vaultfold/internal/models"
)

func (e *Engine) move(ctx context.Context, req Request, op Move, logger *slog.Logger) (*Result, error) {
	const name = string(KindMove)
	src, err := e.resolve(req.Target)
	if err != nil {
		return nil, err
	}
	if v := conflict.Protected(e.guard, src); v != nil {
		return nil, v.Err(name)
	}
	parent, err := e.resolve(op.Destination)
	if err != nil {
		return nil, err
	}
	if e.guard.Denied(parent) {
		return nil, (&conflict.Violation{Reason: conflict.ProtectedSubtree, Path: parent}).Err(name)
	}
	if v := conflict.Circular(src, parent); v != nil {
		return nil, v.Err(name)
	}
	dst := parent.Join(src.Base())
	if dst == src {
		return nil, (&conflict.Violation{Reason: conflict.SameLocation, Path: src, Other: parent}).Err(name)
	}

	unlock, err := e.locks.Lock(ctx, src, dst)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := e.folderInfo(name, src); err != nil {
		return nil, err
	}
	createParent := false
	info, err := e.store.Lstat(parent)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := e.checkAncestors(name, parent, true); err != nil {
			return nil, err
		}
		createParent = true
	case err != nil:
		return nil, fmt.Errorf("folders: stat %s: %w", parent, err)
	case !info.IsDir():
		return nil, apperr.Conflict(name, src.String(), "destination is not a folder: "+parent.String(),
			"choose an existing folder, or a path where a new folder can be created")
	}
	if v, err := conflict.Destination(e.store, src, dst); err != nil {
		return nil, fmt.Errorf("folders: check destination: %w", err)
	} else if v != nil {
		return nil, v.Err(name)
	}

	res := newResult(KindMove, src.String(), req.DryRun)
	res.NewPath = dst.String()
	if createParent {
		if req.DryRun {
			res.Message = fmt.Sprintf("Destination %s would be created. ", parent)
		} else {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := e.store.Mkdir(parent, true); err != nil {
				return nil, err
			}
			res.Message = fmt.Sprintf("Created destination %s. ", parent)
		}
	}
	prefix := res.Message
	out, err := e.relocate(ctx, res, src, dst, op.UpdateReferences, EventMoved, logger)
	if out != nil && prefix != "" {
		out.Message = prefix + out.Message
	}
	return out, err
}

func rewriteFailed(err error) models.Warning {
	return models.Warning{
		Code:    models.WarnDocumentFailed,
		Message: "folder was changed but references could not be updated: " + err.Error(),
	}
}
