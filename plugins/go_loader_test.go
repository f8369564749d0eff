package plugins

import (
	"testing"
)

func TestLoadGoDefinitionDirCollectsDefinitions(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "changelog.go", `package main

func ExtractorDefinitions() ([]map[string]any, error) {
	return []map[string]any{
		{
			"id":         "changelog",
			"hosts":      []any{"changelog.example.com"},
			"strip_html": true,
		},
	}, nil
}
`)

	files, err := LoadGoDefinitionDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %d, want 1", len(files))
	}
	def := files[0].Definition
	if def.ID != "changelog" || !def.StripHTML {
		t.Fatalf("definition = %+v", def)
	}
	if len(def.Hosts) != 1 || def.Hosts[0] != "changelog.example.com" {
		t.Fatalf("hosts = %v", def.Hosts)
	}
}

func TestLoadGoDefinitionDirPropagatesPluginError(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "broken.go", `package main

import "errors"

func ExtractorDefinitions() ([]map[string]any, error) {
	return nil, errors.New("not configured")
}
`)

	if _, err := LoadGoDefinitionDir(dir); err == nil {
		t.Fatal("expected plugin error to propagate")
	}
}

func TestLoadGoDefinitionDirRequiresFunction(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "empty.go", "package main\n\nvar x = 1\n")

	if _, err := LoadGoDefinitionDir(dir); err == nil {
		t.Fatal("expected error for missing ExtractorDefinitions")
	}
}

func TestLoadGoDefinitionDirMissingDir(t *testing.T) {
	files, err := LoadGoDefinitionDir("")
	if err != nil || files != nil {
		t.Fatalf("got %v, %v", files, err)
	}
}
