package refs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/starford/vaultfold/internal/models"
	"github.com/starford/vaultfold/internal/storage"
	"github.com/starford/vaultfold/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRewrite_PrefixBoundary(t *testing.T) {
	g, store := testutil.TestVault(t)
	testutil.WriteFiles(t, g.Root(), map[string]string{
		"index.md": "[[old/sub/note#Heading|Alias]]\n![[old/sub/note]]\n[[old-2/sub/note]]\n[[/old/x]]\n",
		"other.md": "nothing to see",
		"new/sub/note.md": "moved already",
	})
	s := NewScanner(store, Limits{MaxDocuments: 100, Workers: 2}, quietLogger())

	rep, err := s.Rewrite(context.Background(), testutil.MustResolve(t, g, "old"), testutil.MustResolve(t, g, "new"))
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	got := testutil.ReadFile(t, g.Root(), "index.md")
	want := "[[new/sub/note#Heading|Alias]]\n![[new/sub/note]]\n[[old-2/sub/note]]\n[[/new/x]]\n"
	if got != want {
		t.Errorf("index.md = %q\nwant %q", got, want)
	}
	if rep.Total != 3 || rep.Written != 1 || len(rep.Documents) != 1 || rep.Scanned != 3 {
		t.Errorf("report = %+v", rep)
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("warnings = %+v", rep.Warnings)
	}
}

func TestScan_DoesNotWrite(t *testing.T) {
	g, store := testutil.TestVault(t)
	testutil.WriteFiles(t, g.Root(), map[string]string{"a.md": "[[projects/alpha/plan]]"})
	s := NewScanner(store, Limits{MaxDocuments: 10}, quietLogger())

	rep, err := s.Scan(context.Background(), testutil.MustResolve(t, g, "projects/alpha"), testutil.MustResolve(t, g, "projects/beta"))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Total != 1 || rep.Written != 0 {
		t.Errorf("report = %+v", rep)
	}
	if got := testutil.ReadFile(t, g.Root(), "a.md"); got != "[[projects/alpha/plan]]" {
		t.Errorf("scan modified document: %q", got)
	}
	if rep.Documents[0].References[0].NewTarget != "projects/beta/plan" {
		t.Errorf("projected target = %q", rep.Documents[0].References[0].NewTarget)
	}
}

func TestRewrite_ExactMatchPrefersNote(t *testing.T) {
	g, store := testutil.TestVault(t)
	testutil.WriteFiles(t, g.Root(), map[string]string{
		"a.md":       "[[projects]] and [[projects/x]]",
		"projects.md": "a note sharing the folder name",
	})
	s := NewScanner(store, Limits{MaxDocuments: 10}, quietLogger())
	if _, err := s.Rewrite(context.Background(), testutil.MustResolve(t, g, "projects"), testutil.MustResolve(t, g, "work")); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ReadFile(t, g.Root(), "a.md"); got != "[[projects]] and [[work/x]]" {
		t.Errorf("a.md = %q", got)
	}
}

func TestRewrite_ScanLimitWarns(t *testing.T) {
	g, store := testutil.TestVault(t)
	testutil.WriteFiles(t, g.Root(), map[string]string{
		"1.md": "[[old/a]]",
		"2.md": "[[old/b]]",
		"3.md": "[[old/c]]",
	})
	s := NewScanner(store, Limits{MaxDocuments: 2}, quietLogger())
	rep, err := s.Rewrite(context.Background(), testutil.MustResolve(t, g, "old"), testutil.MustResolve(t, g, "new"))
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Truncated || rep.Total != 2 {
		t.Errorf("report = %+v", rep)
	}
	if len(rep.Warnings) != 1 || rep.Warnings[0].Code != models.WarnScanLimit {
		t.Errorf("warnings = %+v", rep.Warnings)
	}
	if got := testutil.ReadFile(t, g.Root(), "3.md"); got != "[[old/c]]" {
		t.Errorf("document past the limit was modified: %q", got)
	}
}

func TestIncoming_SkipsDocumentsInsideTarget(t *testing.T) {
	g, store := testutil.TestVault(t)
	testutil.MkdirAll(t, g.Root(), "archive/old")
	testutil.WriteFiles(t, g.Root(), map[string]string{
		"note.md":             "[[archive/old/file]]",
		"archive/old/self.md": "[[archive/old/other]]",
	})
	s := NewScanner(store, Limits{MaxDocuments: 10}, quietLogger())
	rep, err := s.Incoming(context.Background(), testutil.MustResolve(t, g, "archive/old"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Documents) != 1 || rep.Documents[0].Path != "note.md" {
		t.Errorf("documents = %+v", rep.Documents)
	}
}

type failingDocs struct {
	*storage.FS
	failWrite string
}

func (f failingDocs) WriteDocument(path string, content []byte, ifMatch string) error {
	if path == f.failWrite {
		return errors.New("disk full")
	}
	return f.FS.WriteDocument(path, content, ifMatch)
}

func TestRewrite_PartialFailureContinues(t *testing.T) {
	g, store := testutil.TestVault(t)
	testutil.WriteFiles(t, g.Root(), map[string]string{
		"a.md": "[[old/x]]",
		"b.md": "[[old/y]]",
	})
	s := NewScanner(failingDocs{FS: store, failWrite: "a.md"}, Limits{MaxDocuments: 10, Workers: 4}, quietLogger())
	rep, err := s.Rewrite(context.Background(), testutil.MustResolve(t, g, "old"), testutil.MustResolve(t, g, "new"))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Written != 1 {
		t.Errorf("written = %d, want 1", rep.Written)
	}
	if len(rep.Warnings) != 1 || rep.Warnings[0].Path != "a.md" || rep.Warnings[0].Code != models.WarnDocumentFailed {
		t.Errorf("warnings = %+v", rep.Warnings)
	}
	if !strings.Contains(testutil.ReadFile(t, g.Root(), "b.md"), "new/y") {
		t.Error("b.md should be rewritten despite a.md failing")
	}
}

func TestRewrite_CancelledContextIsIncomplete(t *testing.T) {
	g, store := testutil.TestVault(t)
	testutil.WriteFiles(t, g.Root(), map[string]string{"a.md": "[[old/x]]"})
	s := NewScanner(store, Limits{MaxDocuments: 10}, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := s.Rewrite(ctx, testutil.MustResolve(t, g, "old"), testutil.MustResolve(t, g, "new"))
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Incomplete {
		t.Errorf("report = %+v, want incomplete", rep)
	}
	if got := testutil.ReadFile(t, g.Root(), "a.md"); got != "[[old/x]]" {
		t.Errorf("a.md = %q", got)
	}
}
