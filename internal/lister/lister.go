// Package lister enumerates folders page by page with optional statistics.
//
// Traversal uses an explicit stack with a depth counter. Entries are sorted
// by path so that offsets stay stable between calls on an unchanged tree.
package lister

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"
)

// Limits are the hard caps applied regardless of the request.
type Limits struct {
	MaxDepth    int
	MaxPageSize int
	MaxEntries  int
}

// Request describes one page.
type Request struct {
	// Dir is a slash separated path relative to the lister's fs.FS root;
	// "" or "." is the root.
	Dir       string
	Recursive bool
	// MaxDepth is the number of levels below Dir to include when recursive;
	// 0 means the hard cap.
	MaxDepth int
	Stats    bool
	Offset   int
	Limit    int
}

// Entry is one folder on the page. Depth 0 is an immediate child of Dir.
type Entry struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Depth int    `json:"depth"`
	*Stats
}

// Stats aggregates the contents of a folder.
type Stats struct {
	NoteCount      int       `json:"note_count"`
	TotalSizeBytes int64     `json:"total_size_bytes"`
	Modified       time.Time `json:"modified"`
	Approximate    bool      `json:"approximate,omitempty"`
}

// Truncation causes.
const (
	TruncatedByDepth   = "depth"
	TruncatedByEntries = "entries"
)

// Page is the result of List.
type Page struct {
	Entries      []Entry
	Offset       int
	Limit        int
	Returned     int
	TotalMatched int
	HasMore      bool
	// Truncated is set when TotalMatched is a lower bound because the
	// traversal stopped at a cap.
	Truncated   bool
	TruncatedBy string
	Depth       int
	StatsErrors map[string]error
}

// Lister lists folders of an fs.FS.
type Lister struct {
	fsys   fs.FS
	skip   func(rel string) bool
	ext    string
	limits Limits
	logger *slog.Logger
}

// New returns a Lister. skip reports folders to leave out entirely; ext is
// the document extension counted in NoteCount.
func New(fsys fs.FS, skip func(rel string) bool, ext string, limits Limits, logger *slog.Logger) *Lister {
	if skip == nil {
		skip = func(string) bool { return false }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Lister{fsys: fsys, skip: skip, ext: ext, limits: limits, logger: logger}
}

type frame struct {
	dir   string
	depth int
}

// List returns one page of folders under req.Dir.
func (l *Lister) List(ctx context.Context, req Request) (*Page, error) {
	root := req.Dir
	if root == "" {
		root = "."
	}
	levels := 1
	if req.Recursive {
		levels = l.limits.MaxDepth
		if req.MaxDepth > 0 && req.MaxDepth < levels {
			levels = req.MaxDepth
		}
	}
	if levels < 1 {
		levels = 1
	}
	limit := req.Limit
	if limit < 1 || (l.limits.MaxPageSize > 0 && limit > l.limits.MaxPageSize) {
		limit = l.limits.MaxPageSize
	}
	offset := max(req.Offset, 0)

	page := &Page{Offset: offset, Limit: limit, Depth: levels}
	var all []Entry
	stack := []frame{{dir: root, depth: 0}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := fs.ReadDir(l.fsys, f.dir)
		if err != nil {
			if f.dir == root {
				return nil, fmt.Errorf("lister: read %s: %w", f.dir, err)
			}
			l.logger.Warn("lister: read dir failed", slog.String("path", f.dir), slog.String("error", err.Error()))
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			rel := join(f.dir, e.Name())
			if l.skip(rel) {
				continue
			}
			if f.depth >= levels {
				// A folder exists below the deepest listed level.
				if req.Recursive {
					page.Truncated = true
					page.TruncatedBy = TruncatedByDepth
				}
				break
			}
			if l.limits.MaxEntries > 0 && len(all) >= l.limits.MaxEntries {
				page.Truncated = true
				page.TruncatedBy = TruncatedByEntries
				stack = nil
				break
			}
			all = append(all, Entry{Path: rel, Name: e.Name(), Depth: f.depth})
			if req.Recursive {
				stack = append(stack, frame{dir: rel, depth: f.depth + 1})
			}
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })
	page.TotalMatched = len(all)

	if offset < len(all) {
		end := min(offset+limit, len(all))
		page.Entries = all[offset:end]
	}
	page.Returned = len(page.Entries)
	page.HasMore = offset+page.Returned < page.TotalMatched

	if req.Stats {
		for i := range page.Entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			st, err := l.stats(page.Entries[i].Path)
			if err != nil {
				if page.StatsErrors == nil {
					page.StatsErrors = make(map[string]error)
				}
				page.StatsErrors[page.Entries[i].Path] = err
				l.logger.Warn("lister: stats failed", slog.String("path", page.Entries[i].Path), slog.String("error", err.Error()))
				continue
			}
			page.Entries[i].Stats = st
		}
	}
	return page, nil
}

// stats walks dir up to the depth cap and visits at most MaxEntries
// entries. NoteCount covers direct children only.
func (l *Lister) stats(dir string) (*Stats, error) {
	info, err := fs.Stat(l.fsys, dir)
	if err != nil {
		return nil, err
	}
	st := &Stats{Modified: info.ModTime()}
	visited := 0
	stack := []frame{{dir: dir, depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := fs.ReadDir(l.fsys, f.dir)
		if err != nil {
			if f.dir == dir {
				return nil, err
			}
			st.Approximate = true
			continue
		}
		for _, e := range entries {
			visited++
			if l.limits.MaxEntries > 0 && visited > l.limits.MaxEntries {
				st.Approximate = true
				return st, nil
			}
			rel := join(f.dir, e.Name())
			if e.IsDir() {
				if l.skip(rel) {
					continue
				}
				if f.depth+1 >= l.limits.MaxDepth {
					st.Approximate = true
					continue
				}
				stack = append(stack, frame{dir: rel, depth: f.depth + 1})
				continue
			}
			if !e.Type().IsRegular() {
				continue
			}
			fi, err := e.Info()
			if err != nil {
				st.Approximate = true
				continue
			}
			if f.depth == 0 && strings.HasSuffix(e.Name(), l.ext) {
				st.NoteCount++
			}
			st.TotalSizeBytes += fi.Size()
			if fi.ModTime().After(st.Modified) {
				st.Modified = fi.ModTime()
			}
		}
	}
	return st, nil
}

func join(dir, name string) string {
	if dir == "." || dir == "" {
		return name
	}
	return path.Join(dir, name)
}
