// Package plugins loads custom extractor definitions from the project's
// .signalpost/plugins directory. Definitions arrive as YAML files or as Go
// files evaluated with yaegi; both describe how to fetch and reduce a class
// of links the built-in extractors don't cover.
package plugins

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/signalpost/signalpost/internal/source"
)

// ExtractorDefinition describes one plugin extractor.
//
// The struct mirrors the on-disk schema under .signalpost/plugins/*.yaml and
// stays narrow so startup can validate plugin metadata before wiring it into
// the link router.
type ExtractorDefinition struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Hosts       []string          `json:"hosts" yaml:"hosts"`
	URLTemplate string            `json:"url_template,omitempty" yaml:"url_template,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	StripHTML   bool              `json:"strip_html,omitempty" yaml:"strip_html,omitempty"`
	MaxBytes    int64             `json:"max_bytes,omitempty" yaml:"max_bytes,omitempty"`
}

// Normalized returns a trimmed copy of the definition.
func (def ExtractorDefinition) Normalized() ExtractorDefinition {
	clone := ExtractorDefinition{
		ID:          strings.TrimSpace(def.ID),
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
		URLTemplate: strings.TrimSpace(def.URLTemplate),
		StripHTML:   def.StripHTML,
		MaxBytes:    def.MaxBytes,
	}
	for _, host := range def.Hosts {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			clone.Hosts = append(clone.Hosts, host)
		}
	}
	if len(def.Headers) > 0 {
		clone.Headers = make(map[string]string, len(def.Headers))
		for key, value := range def.Headers {
			if key = strings.TrimSpace(key); key != "" {
				clone.Headers[key] = strings.TrimSpace(value)
			}
		}
	}
	return clone
}

// Validate ensures the definition is well-formed.
func (def ExtractorDefinition) Validate() error {
	normalized := def.Normalized()
	if normalized.ID == "" {
		return fmt.Errorf("plugin: id is required")
	}
	if len(normalized.Hosts) == 0 {
		return fmt.Errorf("plugin %s: at least one host is required", normalized.ID)
	}
	if normalized.URLTemplate != "" && !strings.Contains(normalized.URLTemplate, "{link}") {
		return fmt.Errorf("plugin %s: url_template must contain {link}", normalized.ID)
	}
	if normalized.MaxBytes < 0 {
		return fmt.Errorf("plugin %s: max_bytes must not be negative", normalized.ID)
	}
	return nil
}

// Kind returns the routing kind the definition registers under.
func (def ExtractorDefinition) Kind() source.Kind {
	return source.Kind("plugin:" + def.ID)
}

const defaultPluginMaxBytes = 2 << 20

// Extractor builds the runtime extractor backed by this definition.
func (def ExtractorDefinition) Extractor(client *http.Client) source.Extractor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	maxBytes := def.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultPluginMaxBytes
	}
	return source.ExtractorFunc(func(ctx context.Context, link string) (source.Extraction, error) {
		target := link
		if def.URLTemplate != "" {
			target = strings.ReplaceAll(def.URLTemplate, "{link}", link)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return source.Extraction{}, fmt.Errorf("plugin %s: build request: %w", def.ID, err)
		}
		for key, value := range def.Headers {
			req.Header.Set(key, value)
		}
		resp, err := client.Do(req)
		if err != nil {
			return source.Extraction{}, fmt.Errorf("plugin %s: fetch %s: %w", def.ID, target, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return source.Extraction{}, fmt.Errorf("plugin %s: %s replied %d", def.ID, target, resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
		if err != nil {
			return source.Extraction{}, fmt.Errorf("plugin %s: read %s: %w", def.ID, target, err)
		}
		text := string(body)
		if def.StripHTML {
			text = source.StripHTML(text)
		}
		return source.Extraction{SourceID: link, Text: strings.TrimSpace(text)}, nil
	})
}
