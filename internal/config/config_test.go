package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitSignalpostDirCreatesStructure(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitSignalpostDir(projectDir); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, sub := range []string{"logs", "state", "instances", "plugins"} {
		path := filepath.Join(projectDir, SignalpostDir, sub)
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			t.Errorf("missing directory %s: %v", sub, err)
		}
	}
	if _, err := os.Stat(filepath.Join(projectDir, SignalpostDir, "config.yaml")); err != nil {
		t.Fatalf("missing default config: %v", err)
	}
}

func TestInitSignalpostDirKeepsExistingConfig(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitSignalpostDir(projectDir); err != nil {
		t.Fatalf("init: %v", err)
	}
	custom := "version: 1\nbusiness_context: custom\n"
	path := filepath.Join(projectDir, SignalpostDir, "config.yaml")
	if err := os.WriteFile(path, []byte(custom), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := InitSignalpostDir(projectDir); err != nil {
		t.Fatalf("second init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != custom {
		t.Fatal("second init overwrote config.yaml")
	}
}

func TestNewConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Project.Dedup.Backend != "file" {
		t.Fatalf("dedup backend = %q", cfg.Project.Dedup.Backend)
	}
	if len(cfg.Platforms()) != 1 || cfg.Platforms()[0].Kind != PlatformKindLog {
		t.Fatalf("platforms = %+v", cfg.Platforms())
	}
	if cfg.Project.Extraction.Timeout.Std() != 30*time.Second {
		t.Fatalf("extraction timeout = %v", cfg.Project.Extraction.Timeout.Std())
	}
}

func writeProjectConfig(t *testing.T, projectDir, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(projectDir, SignalpostDir), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(projectDir, SignalpostDir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestNewConfigParsesDurationsAndPlatforms(t *testing.T) {
	projectDir := t.TempDir()
	writeProjectConfig(t, projectDir, `
version: 1
dedup:
  backend: memory
collaborator:
  endpoint: http://localhost:9999/v1/generate
  timeout: 90s
extraction:
  timeout: 15s
platforms:
  - name: relay
    kind: webhook
    webhook_url: https://hooks.example.com/post
    length_limit: 500
business_context: a developer tools company
`)
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Project.Collaborator.Timeout.Std() != 90*time.Second {
		t.Fatalf("collaborator timeout = %v", cfg.Project.Collaborator.Timeout.Std())
	}
	if cfg.Project.Extraction.Timeout.Std() != 15*time.Second {
		t.Fatalf("extraction timeout = %v", cfg.Project.Extraction.Timeout.Std())
	}
	platform := cfg.Platforms()[0]
	if platform.Kind != PlatformKindWebhook || platform.LengthLimit != 500 {
		t.Fatalf("platform = %+v", platform)
	}
	if cfg.Project.BusinessContext != "a developer tools company" {
		t.Fatalf("business context = %q", cfg.Project.BusinessContext)
	}
}

func TestNewConfigRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown dedup backend", "version: 1\ndedup:\n  backend: redis\n"},
		{"postgres without dsn", "version: 1\ndedup:\n  backend: postgres\n"},
		{"webhook without url", "version: 1\nplatforms:\n  - name: relay\n    kind: webhook\n"},
		{"duplicate platform names", "version: 1\nplatforms:\n  - name: a\n    kind: log\n  - name: a\n    kind: log\n"},
		{"unknown platform kind", "version: 1\nplatforms:\n  - name: a\n    kind: fax\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			projectDir := t.TempDir()
			writeProjectConfig(t, projectDir, tc.body)
			if _, err := NewConfig(projectDir); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDurationYAMLRoundTrip(t *testing.T) {
	d := Duration(45 * time.Second)
	out, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if out != "45s" {
		t.Fatalf("marshal = %v", out)
	}
}
