package plugins

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidateRequiresIDAndHosts(t *testing.T) {
	if err := (ExtractorDefinition{Hosts: []string{"example.com"}}).Validate(); err == nil {
		t.Fatal("expected error for missing id")
	}
	if err := (ExtractorDefinition{ID: "docs"}).Validate(); err == nil {
		t.Fatal("expected error for missing hosts")
	}
	if err := (ExtractorDefinition{ID: "docs", Hosts: []string{"example.com"}}).Validate(); err != nil {
		t.Fatalf("valid definition rejected: %v", err)
	}
}

func TestValidateURLTemplateNeedsPlaceholder(t *testing.T) {
	def := ExtractorDefinition{ID: "docs", Hosts: []string{"example.com"}, URLTemplate: "https://proxy.example.com/fetch"}
	if err := def.Validate(); err == nil {
		t.Fatal("expected error for template without {link}")
	}
	def.URLTemplate = "https://proxy.example.com/fetch?url={link}"
	if err := def.Validate(); err != nil {
		t.Fatalf("templated definition rejected: %v", err)
	}
}

func TestNormalizedLowercasesHosts(t *testing.T) {
	def := ExtractorDefinition{ID: " docs ", Hosts: []string{" Example.COM ", ""}}
	normalized := def.Normalized()
	if normalized.ID != "docs" {
		t.Fatalf("id = %q", normalized.ID)
	}
	if len(normalized.Hosts) != 1 || normalized.Hosts[0] != "example.com" {
		t.Fatalf("hosts = %v", normalized.Hosts)
	}
}

func TestExtractorFetchesAndStripsHTML(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		w.Write([]byte("<html><body><h1>Release notes</h1><script>nope()</script></body></html>"))
	}))
	defer server.Close()

	def := ExtractorDefinition{
		ID:        "docs",
		Hosts:     []string{"example.com"},
		Headers:   map[string]string{"X-Api-Key": "secret"},
		StripHTML: true,
	}
	extractor := def.Extractor(server.Client())
	extraction, err := extractor.Extract(context.Background(), server.URL+"/notes")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if gotHeader != "secret" {
		t.Fatalf("header = %q", gotHeader)
	}
	if !strings.Contains(extraction.Text, "Release notes") {
		t.Fatalf("text = %q", extraction.Text)
	}
	if strings.Contains(extraction.Text, "nope") {
		t.Fatalf("script content leaked: %q", extraction.Text)
	}
	if extraction.SourceID != server.URL+"/notes" {
		t.Fatalf("sourceID = %q", extraction.SourceID)
	}
}

func TestExtractorAppliesURLTemplate(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Write([]byte("plain text"))
	}))
	defer server.Close()

	def := ExtractorDefinition{
		ID:          "proxy",
		Hosts:       []string{"example.com"},
		URLTemplate: server.URL + "/fetch?url={link}",
	}
	extractor := def.Extractor(server.Client())
	extraction, err := extractor.Extract(context.Background(), "https://example.com/post")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(gotPath, "/fetch?url=https://example.com/post") {
		t.Fatalf("path = %q", gotPath)
	}
	if extraction.Text != "plain text" {
		t.Fatalf("text = %q", extraction.Text)
	}
}

func TestExtractorRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	def := ExtractorDefinition{ID: "docs", Hosts: []string{"example.com"}}
	if _, err := def.Extractor(server.Client()).Extract(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 404")
	}
}
