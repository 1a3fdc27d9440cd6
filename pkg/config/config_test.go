package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Extra string `yaml:"extra"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "vault")
	file := writeFile(t, "name: ${SAMPLE_NAME}\nport: 8080\n")

	s := sample{Extra: "default"}
	if err := Load(file, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "vault" || s.Port != 8080 || s.Extra != "default" {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	file := writeFile(t, "name: x\nport: 0\n")
	s := sample{}
	err := Load(file, &s)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_ParseError(t *testing.T) {
	file := writeFile(t, "name: [unterminated\n")
	s := sample{Port: 1}
	if err := Load(file, &s); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadIfExists(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")

	s := sample{Port: 9000}
	found, err := LoadIfExists(missing, &s)
	if err != nil || found {
		t.Fatalf("missing file: found=%v err=%v", found, err)
	}
	if s.Port != 9000 {
		t.Errorf("defaults changed: %+v", s)
	}

	bad := sample{}
	if _, err := LoadIfExists(missing, &bad); err == nil {
		t.Error("defaults must still be validated")
	}

	file := writeFile(t, "port: 7000\n")
	found, err = LoadIfExists(file, &s)
	if err != nil || !found || s.Port != 7000 {
		t.Errorf("existing file: found=%v err=%v s=%+v", found, err, s)
	}
}
