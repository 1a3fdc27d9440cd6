package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/vaultfold/internal/folders"
	"github.com/starford/vaultfold/internal/testutil"
)

// testEnv sets up a temp vault, engine, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (http.Handler, string) {
	t.Helper()
	g, store := testutil.TestVault(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	engine := folders.New(g, store, folders.DefaultLimits(), folders.WithLogger(logger))
	router := NewRouter(engine, 5*time.Second, authToken != "", authToken, nil)
	return router, g.Root()
}

type resultBody struct {
	Success    bool           `json:"success"`
	Operation  string         `json:"operation"`
	Path       string         `json:"path"`
	NewPath    string         `json:"new_path"`
	Message    string         `json:"message"`
	DryRun     bool           `json:"dry_run"`
	Incomplete bool           `json:"incomplete"`
	Metadata   map[string]any `json:"metadata"`
	Warnings   []struct {
		Code string `json:"code"`
		Path string `json:"path"`
	} `json:"warnings"`
}

func post(t *testing.T, router http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/folders", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) resultBody {
	t.Helper()
	var res resultBody
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return res
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errResponse {
	t.Helper()
	var e errResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return e
}

func TestCreateFolder(t *testing.T) {
	router, root := testEnv(t, "")

	w := post(t, router, map[string]any{"operation": "create", "path": "projects/alpha"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decodeResult(t, w)
	if !res.Success || res.Operation != "create" || res.Path != "projects/alpha" {
		t.Errorf("result = %+v", res)
	}
	if res.Metadata["operation_id"] == "" || res.Metadata["operation_id"] == nil {
		t.Error("missing operation_id")
	}
	if !testutil.Exists(root, "projects/alpha") {
		t.Error("folder not created on disk")
	}

	// Idempotent repeat is 200, not 201.
	w = post(t, router, map[string]any{"operation": "create", "path": "projects/alpha"})
	if w.Code != http.StatusOK {
		t.Errorf("repeat create status = %d", w.Code)
	}
}

func TestRenameUpdatesReferences(t *testing.T) {
	router, root := testEnv(t, "")
	testutil.WriteFiles(t, root, map[string]string{
		"projects/alpha/plan.md": "# Plan",
		"index.md":               "See [[projects/alpha/plan|the plan]].",
	})

	w := post(t, router, map[string]any{"operation": "rename", "path": "projects/alpha", "new_name": "beta"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decodeResult(t, w)
	if res.NewPath != "projects/beta" || res.Metadata["references_updated"] != float64(1) {
		t.Errorf("result = %+v", res)
	}
	if got := testutil.ReadFile(t, root, "index.md"); got != "See [[projects/beta/plan|the plan]]." {
		t.Errorf("index.md = %q", got)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	router, root := testEnv(t, "")
	testutil.MkdirAll(t, root, "a", "b", "full/inner")

	tests := []struct {
		name string
		body map[string]any
		code int
		kind string
	}{
		{"unknown operation", map[string]any{"operation": "copy", "path": "a"}, http.StatusBadRequest, "validation"},
		{"missing new_name", map[string]any{"operation": "rename", "path": "a"}, http.StatusBadRequest, "validation"},
		{"traversal", map[string]any{"operation": "create", "path": "../outside"}, http.StatusForbidden, "security"},
		{"protected", map[string]any{"operation": "create", "path": ".obsidian/x"}, http.StatusForbidden, "security"},
		{"missing", map[string]any{"operation": "rename", "path": "nope", "new_name": "x"}, http.StatusNotFound, "not_found"},
		{"collision", map[string]any{"operation": "rename", "path": "a", "new_name": "b"}, http.StatusConflict, "conflict"},
		{"circular", map[string]any{"operation": "move", "path": "a", "destination": "a/sub"}, http.StatusConflict, "conflict"},
		{"non-empty", map[string]any{"operation": "delete", "path": "full", "confirm_path": "full"}, http.StatusConflict, "conflict"},
		{"bad confirm", map[string]any{"operation": "delete", "path": "a", "confirm_path": "b"}, http.StatusBadRequest, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, router, tt.body)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.code, w.Body.String())
			}
			e := decodeError(t, w)
			if e.Kind != tt.kind || e.Error == "" {
				t.Errorf("error body = %+v", e)
			}
		})
	}

	if !testutil.Exists(root, "a") || !testutil.Exists(root, "full/inner") {
		t.Error("failed operations must not change the vault")
	}
}

func TestInvalidJSONBody(t *testing.T) {
	router, _ := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/folders", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w = post(t, router, map[string]any{"operation": "create", "path": "a", "colour": "red"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", w.Code)
	}
}

func TestListFolders(t *testing.T) {
	router, root := testEnv(t, "")
	testutil.WriteFiles(t, root, map[string]string{
		"notes/a.md":          "aaa",
		"notes/deep/b.md":     "b",
		"other/c.md":          "c",
		".git/objects/x.md":   "hidden",
		"projects/alpha/s.md": "s",
	})

	w := get(router, "/folders")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decodeResult(t, w)
	folderList, _ := res.Metadata["folders"].([]any)
	if len(folderList) != 3 {
		t.Fatalf("root folders = %v", res.Metadata["folders"])
	}
	first, _ := folderList[0].(map[string]any)
	if first["path"] != "notes" || first["note_count"] != float64(1) || first["total_size_bytes"] != float64(4) {
		t.Errorf("first entry = %v", first)
	}

	w = get(router, "/folders/notes?recursive=true&stats=false")
	res = decodeResult(t, w)
	folderList, _ = res.Metadata["folders"].([]any)
	if len(folderList) != 1 {
		t.Fatalf("notes folders = %v", res.Metadata["folders"])
	}
	entry, _ := folderList[0].(map[string]any)
	if entry["path"] != "notes/deep" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["note_count"]; ok {
		t.Error("stats=false should omit statistics")
	}

	w = get(router, "/folders?limit=1&offset=1")
	res = decodeResult(t, w)
	if res.Metadata["has_more"] != true || res.Metadata["next_offset"] != float64(2) {
		t.Errorf("pagination metadata = %v", res.Metadata)
	}
}

func TestListFolders_BadQuery(t *testing.T) {
	router, _ := testEnv(t, "")

	for _, target := range []string{"/folders?limit=abc", "/folders?recursive=maybe", "/folders?limit=500"} {
		w := get(router, target)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
	if w := get(router, "/folders/.git"); w.Code != http.StatusForbidden {
		t.Errorf("protected list status = %d, want 403", w.Code)
	}
	if w := get(router, "/folders/missing"); w.Code != http.StatusNotFound {
		t.Errorf("missing list status = %d, want 404", w.Code)
	}
}

func TestEncodedFolderPath(t *testing.T) {
	router, root := testEnv(t, "")
	testutil.MkdirAll(t, root, "projects/alpha/sub")

	w := get(router, "/folders/projects%2Falpha")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if res := decodeResult(t, w); res.Path != "projects/alpha" {
		t.Errorf("path = %q", res.Path)
	}
}

func TestAuthTokenMode(t *testing.T) {
	router, _ := testEnv(t, "secret")

	w := get(router, "/folders")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/folders", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/folders", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
}

type blockingExecutor struct{}

func (blockingExecutor) Execute(ctx context.Context, req folders.Request) (*folders.Result, error) {
	<-ctx.Done()
	return &folders.Result{Operation: req.Op.Kind(), Path: req.Target, Incomplete: true,
		Metadata: map[string]any{}}, nil
}

func TestOperationTimeout(t *testing.T) {
	router := NewRouter(blockingExecutor{}, 50*time.Millisecond, false, "", nil)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- get(router, "/folders") }()

	select {
	case w := <-done:
		if res := decodeResult(t, w); !res.Incomplete || res.Success {
			t.Errorf("result = %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request was not bounded by the operation timeout")
	}
}
