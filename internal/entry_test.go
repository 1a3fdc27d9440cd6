package internal

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/starford/vaultfold/internal/folders"
	"github.com/starford/vaultfold/internal/testutil"
)

func TestSetup_RequiresConfig(t *testing.T) {
	if _, err := setup(io.Discard, nil); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestSetup_CreatesVaultAndAppliesProtected(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(t.TempDir(), "vault")
	cfg.Vault.Protected = []string{"private"}

	rt, err := setup(io.Discard, []Option{WithConfig(cfg), WithLogOutput(io.Discard)})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if !testutil.Exists(filepath.Dir(cfg.Vault.Path), "vault") {
		t.Fatal("vault directory not created")
	}

	engine := rt.engine()
	_, err = engine.Execute(context.Background(), folders.Request{Target: "private/x", Op: folders.Create{Parents: true}})
	if err == nil {
		t.Fatal("configured protected folder should be rejected")
	}
	// .git is no longer protected once the list is replaced.
	res, err := engine.Execute(context.Background(), folders.Request{Target: ".git", Op: folders.Create{}})
	if err != nil || !res.Success {
		t.Fatalf("create .git: %v", err)
	}
}
