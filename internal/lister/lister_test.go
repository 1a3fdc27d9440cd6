package lister

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func dir() *fstest.MapFile { return &fstest.MapFile{Mode: fs.ModeDir | 0o755} }

func file(content string, mod time.Time) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(content), Mode: 0o644, ModTime: mod}
}

func defaultLimits() Limits { return Limits{MaxDepth: 10, MaxPageSize: 200, MaxEntries: 10000} }

func TestList_PaginationOver250(t *testing.T) {
	fsys := fstest.MapFS{}
	for i := 0; i < 250; i++ {
		fsys[fmt.Sprintf("big/f%03d", i)] = dir()
	}
	l := New(fsys, nil, ".md", defaultLimits(), nil)

	first, err := l.List(context.Background(), Request{Dir: "big", Limit: 200})
	if err != nil {
		t.Fatal(err)
	}
	if first.Returned != 200 || !first.HasMore || first.TotalMatched != 250 {
		t.Fatalf("first page: returned=%d hasMore=%v total=%d", first.Returned, first.HasMore, first.TotalMatched)
	}
	second, err := l.List(context.Background(), Request{Dir: "big", Limit: 200, Offset: 200})
	if err != nil {
		t.Fatal(err)
	}
	if second.Returned != 50 || second.HasMore || second.TotalMatched != 250 {
		t.Fatalf("second page: returned=%d hasMore=%v total=%d", second.Returned, second.HasMore, second.TotalMatched)
	}
}

func TestList_PagesCoverAllEntriesOnce(t *testing.T) {
	fsys := fstest.MapFS{}
	for i := 0; i < 23; i++ {
		fsys[fmt.Sprintf("p%02d/sub", i)] = dir()
	}
	l := New(fsys, nil, ".md", defaultLimits(), nil)

	seen := map[string]bool{}
	for offset := 0; ; offset += 5 {
		page, err := l.List(context.Background(), Request{Recursive: true, Offset: offset, Limit: 5})
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range page.Entries {
			if seen[e.Path] {
				t.Fatalf("duplicate entry %s", e.Path)
			}
			seen[e.Path] = true
		}
		if !page.HasMore {
			break
		}
	}
	if len(seen) != 46 {
		t.Errorf("saw %d entries, want 46", len(seen))
	}
}

func TestList_OrderAndDepth(t *testing.T) {
	fsys := fstest.MapFS{
		"a/b":   dir(),
		"a-2":   dir(),
		"c.md":  file("x", time.Time{}),
		"a/n.md": file("x", time.Time{}),
	}
	l := New(fsys, nil, ".md", defaultLimits(), nil)
	page, err := l.List(context.Background(), Request{Recursive: true, Limit: 50})
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range page.Entries {
		got = append(got, fmt.Sprintf("%s@%d", e.Path, e.Depth))
	}
	if strings.Join(got, ",") != "a@0,a-2@0,a/b@1" {
		t.Errorf("entries = %v", got)
	}
}

func TestList_SkipsProtected(t *testing.T) {
	fsys := fstest.MapFS{
		".git/objects": dir(),
		"notes":        dir(),
	}
	skip := func(rel string) bool { return rel == ".git" || strings.HasPrefix(rel, ".git/") }
	l := New(fsys, skip, ".md", defaultLimits(), nil)
	page, err := l.List(context.Background(), Request{Recursive: true, Limit: 50})
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalMatched != 1 || page.Entries[0].Path != "notes" {
		t.Errorf("entries = %+v", page.Entries)
	}
}

func TestList_DepthCapSignalsTruncation(t *testing.T) {
	fsys := fstest.MapFS{"l1/l2/l3/l4": dir()}
	l := New(fsys, nil, ".md", Limits{MaxDepth: 2, MaxPageSize: 200, MaxEntries: 100}, nil)

	page, err := l.List(context.Background(), Request{Recursive: true, MaxDepth: 50, Limit: 50})
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalMatched != 2 || !page.Truncated || page.TruncatedBy != TruncatedByDepth || page.Depth != 2 {
		t.Errorf("page = %+v", page)
	}

	full, _ := New(fsys, nil, ".md", defaultLimits(), nil).List(context.Background(), Request{Recursive: true, Limit: 50})
	if full.Truncated || full.TotalMatched != 4 {
		t.Errorf("uncapped page = %+v", full)
	}
}

func TestList_EntryCap(t *testing.T) {
	fsys := fstest.MapFS{}
	for i := 0; i < 10; i++ {
		fsys[fmt.Sprintf("d%d", i)] = dir()
	}
	l := New(fsys, nil, ".md", Limits{MaxDepth: 5, MaxPageSize: 200, MaxEntries: 4}, nil)
	page, err := l.List(context.Background(), Request{Limit: 50})
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalMatched != 4 || !page.Truncated || page.TruncatedBy != TruncatedByEntries {
		t.Errorf("page = %+v", page)
	}
}

func TestList_Stats(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	fsys := fstest.MapFS{
		"proj":            &fstest.MapFile{Mode: fs.ModeDir | 0o755, ModTime: older},
		"proj/a.md":       file("12345", older),
		"proj/b.md":       file("123", older),
		"proj/img.png":    file("xx", older),
		"proj/sub/c.md":   file("1234567890", newer),
	}
	l := New(fsys, nil, ".md", defaultLimits(), nil)
	page, err := l.List(context.Background(), Request{Stats: true, Limit: 50})
	if err != nil {
		t.Fatal(err)
	}
	st := page.Entries[0].Stats
	if st == nil {
		t.Fatal("stats missing")
	}
	if st.NoteCount != 2 || st.TotalSizeBytes != 20 || !st.Modified.Equal(newer) || st.Approximate {
		t.Errorf("stats = %+v", st)
	}
}

func TestList_OffsetPastEnd(t *testing.T) {
	fsys := fstest.MapFS{"a": dir()}
	page, err := New(fsys, nil, ".md", defaultLimits(), nil).List(context.Background(), Request{Offset: 10, Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if page.Returned != 0 || page.HasMore || page.TotalMatched != 1 {
		t.Errorf("page = %+v", page)
	}
}
