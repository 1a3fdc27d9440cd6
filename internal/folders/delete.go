package folders

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/vaultfold/internal/apperr"
	"github.com/starford/vaultfold/internal/conflict"
	"github.com/starford/vaultfold/internal/models"
)

func (e *Engine) delete(ctx context.Context, req Request, op Delete, logger *slog.Logger) (*Result, error) {
	const name = string(KindDelete)
	p, err := e.resolve(req.Target)
	if err != nil {
		return nil, err
	}
	if v := conflict.Protected(e.guard, p); v != nil {
		return nil, v.Err(name)
	}
	// Checked before existence so a mistyped confirmation is reported as such.
	if normalizeConfirm(op.ConfirmPath) != p.Rel() {
		return nil, apperr.Validation(name, p.String(),
			fmt.Sprintf("confirm_path %q does not match the target path", op.ConfirmPath),
			"confirmation path must equal target path: "+p.String())
	}

	unlock, err := e.locks.Lock(ctx, p)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := e.folderInfo(name, p); err != nil {
		return nil, err
	}
	v, items, err := conflict.NonEmpty(e.store, p)
	if err != nil {
		return nil, fmt.Errorf("folders: inspect %s: %w", p, err)
	}
	if v != nil && !op.Force {
		return nil, v.Err(name)
	}

	res := newResult(KindDelete, p.String(), req.DryRun)
	res.Metadata[MetaItemCount] = items

	if op.CheckReferences {
		rep, err := e.scanner.Incoming(ctx, p)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); rep.Incomplete && err != nil {
			return nil, err
		}
		affected := make([]string, 0, len(rep.Documents))
		for _, d := range rep.Documents {
			affected = append(affected, d.Path)
			res.warn(models.Warning{
				Code:    models.WarnDanglingReference,
				Path:    d.Path,
				Message: fmt.Sprintf("%s has %d references into %s that will no longer resolve", d.Path, d.Matches, p),
			})
		}
		res.warn(rep.Warnings...)
		res.Metadata[MetaAffectedNotesCount] = len(affected)
		res.Metadata[MetaAffectedNotes] = affected[:min(len(affected), affectedNotesShown)]
		res.Metadata[MetaDocumentsScanned] = rep.Scanned
	}

	if req.DryRun {
		res.Success = true
		res.Message = fmt.Sprintf("Would delete folder %s (%d items)", p, items)
		res.Message += brokenLinks(res)
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.store.RemoveAll(p); err != nil {
		return nil, err
	}
	logger.Debug("folders: deleted", slog.String("path", p.String()), slog.Int("items", items))
	e.publish(EventDeleted, p.Rel(), "")

	res.Success = true
	res.Message = fmt.Sprintf("Deleted folder %s (%d items)", p, items)
	res.Message += brokenLinks(res)
	return res, nil
}

func brokenLinks(res *Result) string {
	n, _ := res.Metadata[MetaAffectedNotesCount].(int)
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("; %d notes link into it and now have broken links", n)
}

// normalizeConfirm puts a confirmation path into the same form as Path.Rel
// without touching the filesystem.
func normalizeConfirm(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
	if s == "" {
		return "\x00"
	}
	c := strings.TrimPrefix(path.Clean(s), "/")
	if c == "." {
		return ""
	}
	return c
}
