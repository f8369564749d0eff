package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	webUserAgent = "signalpost/1.0"
	maxBodyBytes = 2 << 20
)

var (
	spacePattern = regexp.MustCompile(`[ \t]+`)
	blankPattern = regexp.MustCompile(`\n{3,}`)
)

// skippedTags hold content that never reads as prose.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
}

// blockTags mark boundaries that become line breaks in the extracted text.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "section": true, "article": true,
}

// WebExtractor fetches a page and reduces it to readable text plus any image
// references it carries. It is the fallback adapter for links no other
// extractor claims.
type WebExtractor struct {
	client *http.Client
}

// NewWebExtractor creates a web extractor with its own HTTP client.
func NewWebExtractor() *WebExtractor {
	return &WebExtractor{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Extract implements Extractor.
func (w *WebExtractor) Extract(ctx context.Context, link string) (Extraction, error) {
	body, err := w.fetch(ctx, link)
	if err != nil {
		return Extraction{}, err
	}
	text := StripHTML(body)
	if strings.TrimSpace(text) == "" {
		return Extraction{}, fmt.Errorf("source: no readable text at %s", link)
	}
	return Extraction{
		SourceID: link,
		Text:     text,
		Media:    imageRefs(body, link),
	}, nil
}

func (w *WebExtractor) fetch(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("source: build request for %s: %w", link, err)
	}
	req.Header.Set("User-Agent", webUserAgent)
	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("source: fetch %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("source: fetch %s: status %d", link, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("source: read %s: %w", link, err)
	}
	return string(data), nil
}

// StripHTML tokenizes the markup and keeps only its text content so the
// collaborator sees prose rather than tag soup. Script, style, and noscript
// bodies are dropped; block boundaries become line breaks; entities are
// decoded by the tokenizer.
func StripHTML(markup string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return collapseWhitespace(b.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skippedTags[tag] {
				skip++
			} else if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if blockTags[string(name)] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skippedTags[tag] {
				if skip > 0 {
					skip--
				}
			} else if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

func collapseWhitespace(text string) string {
	text = spacePattern.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	text = strings.Join(lines, "\n")
	text = blankPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func imageRefs(markup, base string) []MediaRef {
	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	seen := map[string]struct{}{}
	var refs []MediaRef
	for {
		kind := tokenizer.Next()
		if kind == html.ErrorToken {
			return refs
		}
		if kind != html.StartTagToken && kind != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := tokenizer.TagName()
		if string(name) != "img" || !hasAttr {
			continue
		}
		var src, alt string
		for {
			key, val, more := tokenizer.TagAttr()
			switch string(key) {
			case "src":
				src = strings.TrimSpace(string(val))
			case "alt":
				alt = strings.TrimSpace(string(val))
			}
			if !more {
				break
			}
		}
		if src == "" || strings.HasPrefix(src, "data:") {
			continue
		}
		resolved := resolveRef(base, src)
		if resolved == "" {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		refs = append(refs, MediaRef{URL: resolved, Alt: alt})
	}
}

func resolveRef(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return ""
	}
	resolved, err := parsed.Parse(ref)
	if err != nil {
		return ""
	}
	return resolved.String()
}
