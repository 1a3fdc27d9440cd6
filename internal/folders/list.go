package folders

import (
	"context"
	"fmt"
	"sort"

	"github.com/starford/vaultfold/internal/apperr"
	"github.com/starford/vaultfold/internal/conflict"
	"github.com/starford/vaultfold/internal/lister"
	"github.com/starford/vaultfold/internal/models"
)

func (e *Engine) list(ctx context.Context, req Request, op List) (*Result, error) {
	const name = string(KindList)
	p, err := e.resolve(req.Target)
	if err != nil {
		return nil, err
	}
	if e.guard.Denied(p) {
		return nil, (&conflict.Violation{Reason: conflict.ProtectedSubtree, Path: p}).Err(name)
	}

	size := op.PageSize
	if size == 0 {
		size = e.limits.DefaultPageSize
	}
	if size < 1 || size > e.limits.MaxPageSize {
		return nil, apperr.Validation(name, p.String(),
			fmt.Sprintf("page_size %d is out of range", op.PageSize),
			fmt.Sprintf("use a page_size between 1 and %d", e.limits.MaxPageSize))
	}
	if op.Offset < 0 {
		return nil, apperr.Validation(name, p.String(), "offset must not be negative", "use an offset of 0 or more")
	}
	if op.MaxDepth < 0 {
		return nil, apperr.Validation(name, p.String(), "max_depth must not be negative", "use 0 for the default depth")
	}

	if !p.IsRoot() {
		if _, err := e.folderInfo(name, p); err != nil {
			return nil, err
		}
	}

	res := newResult(KindList, p.String(), req.DryRun)
	if op.Recursive && op.MaxDepth > e.limits.MaxTraversalDepth {
		res.warn(models.Warning{
			Code: models.WarnDepthClamped,
			Message: fmt.Sprintf("max_depth %d exceeds the limit; listing %d levels",
				op.MaxDepth, e.limits.MaxTraversalDepth),
		})
	}

	page, err := e.lister.List(ctx, lister.Request{
		Dir:       p.Rel(),
		Recursive: op.Recursive,
		MaxDepth:  op.MaxDepth,
		Stats:     op.IncludeStats,
		Offset:    op.Offset,
		Limit:     size,
	})
	if err != nil {
		return nil, err
	}

	failed := make([]string, 0, len(page.StatsErrors))
	for path := range page.StatsErrors {
		failed = append(failed, path)
	}
	sort.Strings(failed)
	for _, path := range failed {
		res.warn(models.Warning{Code: models.WarnStatsFailed, Path: path,
			Message: "statistics unavailable: " + page.StatsErrors[path].Error()})
	}
	if page.Truncated {
		res.warn(models.Warning{
			Code:    models.WarnListTruncated,
			Message: fmt.Sprintf("listing stopped at the %s limit; total_matched is a lower bound", page.TruncatedBy),
		})
	}

	entries := page.Entries
	if entries == nil {
		entries = []lister.Entry{}
	}
	res.Success = true
	res.Metadata[MetaFolders] = entries
	res.Metadata[MetaTotalMatched] = page.TotalMatched
	res.Metadata[MetaReturned] = page.Returned
	res.Metadata[MetaHasMore] = page.HasMore
	res.Metadata[MetaOffset] = page.Offset
	res.Metadata[MetaPageSize] = page.Limit
	res.Metadata[MetaTruncated] = page.Truncated
	if op.Recursive {
		res.Metadata[MetaMaxDepth] = page.Depth
	}
	if page.Truncated {
		res.Metadata[MetaTruncatedBy] = page.TruncatedBy
	}
	if page.HasMore {
		res.Metadata[MetaNextOffset] = page.Offset + page.Returned
	}

	scope := ""
	if op.Recursive {
		scope = " (recursive)"
	}
	res.Message = fmt.Sprintf("Found %d folders%s, showing %d (offset %d)",
		page.TotalMatched, scope, page.Returned, page.Offset)
	return res, nil
}
