package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "streamd ") {
		t.Fatalf("out=%q", out)
	}
}

func TestValidate_Summary(t *testing.T) {
	cfg := writeConfig(t, "streamd.yaml", `
managers:
  - id: m1
    rovers:
      - id: r1
        heartbeat: 1s
      - id: r2
  - id: m2
    rovers:
      - id: r1
`)
	out, err := execute(t, "validate", "--config", cfg)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "2 managers, 3 rovers") {
		t.Fatalf("out=%q", out)
	}
}

func TestValidate_ManagersDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "m3.yaml"), []byte("rovers:\n  - id: r1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := writeConfig(t, "streamd.toml", "managers_dir = '"+dir+"'\n\n[[managers]]\nid = 'm1'\n")
	out, err := execute(t, "validate", "-c", cfg)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "2 managers, 1 rovers") {
		t.Fatalf("out=%q", out)
	}
}

func TestValidate_RejectsDuplicateManagers(t *testing.T) {
	cfg := writeConfig(t, "streamd.json", `{"managers":[{"id":"m1"},{"id":"m1"}]}`)
	if _, err := execute(t, "validate", "--config", cfg); err == nil {
		t.Fatal("expected duplicate manager error")
	}
}

func TestValidate_FlagOverridesAreValidated(t *testing.T) {
	cfg := writeConfig(t, "streamd.yaml", "managers: []\n")
	if _, err := execute(t, "validate", "--config", cfg, "--log-level", "loud"); err == nil {
		t.Fatal("expected invalid log level error")
	}
}
