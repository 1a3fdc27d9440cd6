package folders

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/starford/vaultfold/internal/apperr"
	"github.com/starford/vaultfold/internal/conflict"
	"github.com/starford/vaultfold/internal/vaultpath"
)

func (e *Engine) rename(ctx context.Context, req Request, op Rename, logger *slog.Logger) (*Result, error) {
	const name = string(KindRename)
	src, err := e.resolve(req.Target)
	if err != nil {
		return nil, err
	}
	if v := conflict.Protected(e.guard, src); v != nil {
		return nil, v.Err(name)
	}
	leaf, err := vaultpath.ValidateName(op.NewName)
	if err != nil {
		return nil, apperr.WithOp(err, name)
	}
	dst := src.Parent().Join(leaf)
	if dst == src {
		return nil, apperr.Validation(name, src.String(), "new name is the same as the current name",
			"provide a different new_name")
	}
	if v := conflict.Protected(e.guard, dst); v != nil {
		return nil, v.Err(name)
	}

	unlock, err := e.locks.Lock(ctx, src, dst)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := e.folderInfo(name, src); err != nil {
		return nil, err
	}
	if v, err := conflict.Destination(e.store, src, dst); err != nil {
		return nil, fmt.Errorf("folders: check destination: %w", err)
	} else if v != nil {
		return nil, v.Err(name)
	}

	res := newResult(KindRename, src.String(), req.DryRun)
	res.NewPath = dst.String()
	return e.relocate(ctx, res, src, dst, op.UpdateReferences, EventRenamed, logger)
}

// relocate performs the rename shared by rename and move, then runs the
// best-effort reference rewrite. Failures after the rename become warnings.
func (e *Engine) relocate(ctx context.Context, res *Result, src, dst vaultpath.Path, update bool, event string, logger *slog.Logger) (*Result, error) {
	verb, past := "rename", "Renamed"
	if event == EventMoved {
		verb, past = "move", "Moved"
	}

	if res.DryRun {
		res.Success = true
		res.Message = fmt.Sprintf("Would %s %s to %s", verb, src, dst)
		if update {
			rep, err := e.scanner.Scan(ctx, src, dst)
			if err != nil {
				return nil, err
			}
			applyReport(res, rep, true)
			res.Message += fmt.Sprintf(" and update %d references", rep.Total)
		}
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.renamePath(src, dst); err != nil {
		return nil, err
	}
	e.publish(event, src.Rel(), dst.Rel())
	res.Success = true
	res.Message = fmt.Sprintf("%s %s to %s", past, src, dst)

	if !update {
		res.Metadata[MetaReferencesUpdated] = 0
		return res, nil
	}
	// An expired context stops the rewrite early; the report says so.
	rep, err := e.scanner.Rewrite(ctx, src, dst)
	if err != nil {
		logger.Warn("folders: reference rewrite failed", slog.String("error", err.Error()))
		res.Metadata[MetaReferencesUpdated] = 0
		res.warn(rewriteFailed(err))
		return res, nil
	}
	applyReport(res, rep, false)
	res.Message += fmt.Sprintf(", updated %d references in %d documents",
		res.Metadata[MetaReferencesUpdated], res.Metadata[MetaDocumentsUpdated])
	return res, nil
}

// renamePath renames src to dst. When both name the same directory entry
// (a case-only change on a case-insensitive filesystem) the rename goes
// through a temporary sibling.
func (e *Engine) renamePath(src, dst vaultpath.Path) error {
	if e.sameFile(src, dst) {
		tmp := src.Parent().Join(".vaultfold-rename-" + uuid.NewString())
		if err := e.store.Rename(src, tmp); err != nil {
			return err
		}
		if err := e.store.Rename(tmp, dst); err != nil {
			// Put it back so the folder is not left under the temporary name.
			_ = e.store.Rename(tmp, src)
			return err
		}
		return nil
	}
	return e.store.Rename(src, dst)
}

func (e *Engine) sameFile(a, b vaultpath.Path) bool {
	if a == b {
		return false
	}
	ai, err := e.store.Lstat(a)
	if err != nil {
		return false
	}
	bi, err := e.store.Lstat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
