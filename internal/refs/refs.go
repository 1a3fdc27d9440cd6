// Package refs finds and rewrites wikilinks that point into a folder
// subtree. Passes are best-effort: a document that cannot be read or
// written produces a warning and the pass continues.
package refs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultfold/internal/models"
	"github.com/starford/vaultfold/internal/storage"
	"github.com/starford/vaultfold/internal/vaultpath"
	"github.com/starford/vaultfold/internal/wikilink"
)

// Limits bounds a single pass.
type Limits struct {
	MaxDocuments int
	Workers      int
}

// Reference is an occurrence together with the document that owns it.
type Reference struct {
	Document string `json:"document"`
	wikilink.Occurrence
	NewTarget string `json:"new_target,omitempty"`
}

// DocumentResult summarizes one document that contained matches.
type DocumentResult struct {
	Path       string      `json:"path"`
	Matches    int         `json:"matches"`
	Updated    bool        `json:"updated"`
	References []Reference `json:"-"`
}

// Report is the outcome of a pass.
type Report struct {
	Documents  []DocumentResult
	Total      int
	Scanned    int
	Written    int
	Truncated  bool
	Incomplete bool
	Warnings   []models.Warning
}

// Scanner runs passes over the vault's documents.
type Scanner struct {
	docs   storage.Documents
	limits Limits
	logger *slog.Logger
}

// NewScanner returns a Scanner over docs.
func NewScanner(docs storage.Documents, limits Limits, logger *slog.Logger) *Scanner {
	if limits.Workers <= 0 {
		limits.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{docs: docs, limits: limits, logger: logger}
}

type pass struct {
	from, to vaultpath.Path
	write    bool
	// skip excludes documents located inside from.
	skip bool
}

// Scan counts the references a rewrite of from to to would change, without
// writing anything.
func (s *Scanner) Scan(ctx context.Context, from, to vaultpath.Path) (*Report, error) {
	return s.run(ctx, pass{from: from, to: to})
}

// Rewrite replaces references under from with the same reference under to
// and writes back every document that changed.
func (s *Scanner) Rewrite(ctx context.Context, from, to vaultpath.Path) (*Report, error) {
	return s.run(ctx, pass{from: from, to: to, write: true})
}

// Incoming finds references into target held by documents outside it.
func (s *Scanner) Incoming(ctx context.Context, target vaultpath.Path) (*Report, error) {
	return s.run(ctx, pass{from: target, to: target, skip: true})
}

func (s *Scanner) run(ctx context.Context, p pass) (*Report, error) {
	if p.from.IsRoot() {
		return nil, fmt.Errorf("refs: cannot scan references to the vault root")
	}
	docs, truncated, err := s.docs.ListDocuments(ctx, s.limits.MaxDocuments)
	if err != nil {
		if ctx.Err() != nil {
			return &Report{Incomplete: true, Warnings: []models.Warning{interrupted(0)}}, nil
		}
		return nil, fmt.Errorf("refs: list documents: %w", err)
	}

	rep := &Report{Truncated: truncated}
	if truncated {
		rep.Warnings = append(rep.Warnings, models.Warning{
			Code: models.WarnScanLimit,
			Message: fmt.Sprintf("reference scan stopped after %d documents; references in later documents were not checked",
				s.limits.MaxDocuments),
		})
		s.logger.Warn("refs: scan limit reached", slog.Int("limit", s.limits.MaxDocuments))
	}

	type outcome struct {
		res     DocumentResult
		warn    *models.Warning
		skipped bool
	}
	results := make([]outcome, len(docs))

	var g errgroup.Group
	g.SetLimit(s.limits.Workers)
	for i, d := range docs {
		if p.skip && p.from.Contains(docPath(d.Path)) {
			results[i].skipped = true
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i].skipped = true
				return nil
			}
			res, warn := s.document(d.Path, p)
			results[i] = outcome{res: res, warn: warn}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.skipped {
			continue
		}
		rep.Scanned++
		if r.warn != nil {
			rep.Warnings = append(rep.Warnings, *r.warn)
		}
		if r.res.Matches == 0 {
			continue
		}
		rep.Total += r.res.Matches
		if r.res.Updated {
			rep.Written++
		}
		rep.Documents = append(rep.Documents, r.res)
	}
	if ctx.Err() != nil {
		rep.Incomplete = true
		rep.Warnings = append(rep.Warnings, interrupted(rep.Scanned))
	}
	sort.Slice(rep.Documents, func(i, j int) bool { return rep.Documents[i].Path < rep.Documents[j].Path })
	return rep, nil
}

func (s *Scanner) document(path string, p pass) (DocumentResult, *models.Warning) {
	res := DocumentResult{Path: path}
	content, sum, err := s.docs.ReadDocument(path)
	if err != nil {
		s.logger.Warn("refs: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return res, &models.Warning{Code: models.WarnDocumentFailed, Path: path,
			Message: "document could not be read: " + err.Error()}
	}

	occs := wikilink.Scan(content)
	for _, o := range occs {
		if nt, ok := s.retarget(o.Target, p.from, p.to); ok {
			res.References = append(res.References, Reference{Document: path, Occurrence: o, NewTarget: nt})
		}
	}
	res.Matches = len(res.References)
	if res.Matches == 0 || !p.write {
		return res, nil
	}

	out, n := wikilink.Rewrite(content, occs, func(o wikilink.Occurrence) (string, bool) {
		return s.retarget(o.Target, p.from, p.to)
	})
	if n == 0 {
		return res, nil
	}
	if err := s.docs.WriteDocument(path, out, sum); err != nil {
		code := models.WarnDocumentFailed
		if errors.Is(err, storage.ErrStale) {
			code = models.WarnDocumentChanged
		}
		s.logger.Warn("refs: write failed", slog.String("path", path), slog.String("error", err.Error()))
		return res, &models.Warning{Code: code, Path: path,
			Message: fmt.Sprintf("%d references were not updated: %v", res.Matches, err)}
	}
	res.Updated = true
	s.logger.Debug("refs: document rewritten", slog.String("path", path), slog.Int("references", n))
	return res, nil
}

// retarget maps a link target under from onto to. Matching is
// case-sensitive and by path segment. A link naming from exactly is only a
// folder reference when no note of that name exists.
func (s *Scanner) retarget(target string, from, to vaultpath.Path) (string, bool) {
	lead := ""
	t := target
	if strings.HasPrefix(t, "/") {
		lead = "/"
		t = t[1:]
	}
	old := from.Rel()
	switch {
	case t == old:
		if s.docs.HasDocument(old + storage.DocumentExt) {
			return "", false
		}
		return lead + to.Rel(), true
	case strings.HasPrefix(t, old+"/"):
		return lead + to.Rel() + t[len(old):], true
	}
	return "", false
}

// docPath converts a document path already produced by the store into a
// Path for containment checks.
func docPath(rel string) vaultpath.Path {
	p := vaultpath.Root
	for _, seg := range strings.Split(rel, "/") {
		p = p.Join(seg)
	}
	return p
}

func interrupted(scanned int) models.Warning {
	return models.Warning{
		Code:    models.WarnInterrupted,
		Message: fmt.Sprintf("reference pass interrupted after %d documents", scanned),
	}
}
