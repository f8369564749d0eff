package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SocialExtractor reads a public social post through the host's JSON
// endpoint. Reddit exposes post JSON directly; other hosts go through their
// oEmbed endpoint, which returns the post body as HTML.
type SocialExtractor struct {
	client *http.Client
}

// NewSocialExtractor creates a social post extractor.
func NewSocialExtractor() *SocialExtractor {
	return &SocialExtractor{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Extract implements Extractor.
func (s *SocialExtractor) Extract(ctx context.Context, link string) (Extraction, error) {
	host := linkHost(link)
	if host == "reddit.com" || strings.HasSuffix(host, ".reddit.com") {
		return s.extractReddit(ctx, link)
	}
	return s.extractOEmbed(ctx, link)
}

type redditListing []struct {
	Data struct {
		Children []struct {
			Data struct {
				Title    string `json:"title"`
				Selftext string `json:"selftext"`
				Author   string `json:"author"`
				URL      string `json:"url"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (s *SocialExtractor) extractReddit(ctx context.Context, link string) (Extraction, error) {
	endpoint := strings.TrimRight(link, "/") + ".json?limit=1"
	data, err := s.get(ctx, endpoint)
	if err != nil {
		return Extraction{}, err
	}
	var listing redditListing
	if err := json.Unmarshal(data, &listing); err != nil {
		return Extraction{}, fmt.Errorf("source: decode reddit post: %w", err)
	}
	if len(listing) == 0 || len(listing[0].Data.Children) == 0 {
		return Extraction{}, fmt.Errorf("source: empty reddit listing for %s", link)
	}
	post := listing[0].Data.Children[0].Data
	text := post.Title
	if post.Selftext != "" {
		text += "\n\n" + post.Selftext
	}
	if post.Author != "" {
		text += "\n— u/" + post.Author
	}
	extraction := Extraction{SourceID: link, Text: strings.TrimSpace(text)}
	if isImageURL(post.URL) {
		extraction.Media = []MediaRef{{URL: post.URL, Alt: post.Title}}
	}
	return extraction, nil
}

func (s *SocialExtractor) extractOEmbed(ctx context.Context, link string) (Extraction, error) {
	endpoint := fmt.Sprintf("https://publish.twitter.com/oembed?url=%s", url.QueryEscape(link))
	data, err := s.get(ctx, endpoint)
	if err != nil {
		return Extraction{}, err
	}
	var payload struct {
		AuthorName string `json:"author_name"`
		HTML       string `json:"html"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Extraction{}, fmt.Errorf("source: decode post embed: %w", err)
	}
	text := StripHTML(payload.HTML)
	if text == "" {
		return Extraction{}, fmt.Errorf("source: empty post body for %s", link)
	}
	if payload.AuthorName != "" {
		text += "\n— " + payload.AuthorName
	}
	return Extraction{SourceID: link, Text: text}, nil
}

func (s *SocialExtractor) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("User-Agent", webUserAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source: fetch %s: status %d", endpoint, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func isImageURL(raw string) bool {
	lowered := strings.ToLower(raw)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		if strings.HasSuffix(lowered, ext) {
			return true
		}
	}
	return false
}
