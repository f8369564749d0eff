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

// VideoExtractor fetches a video's title and transcript. It reads the oEmbed
// endpoint for metadata and a timedtext-style caption endpoint for the
// transcript body; a missing transcript degrades to title-only content.
type VideoExtractor struct {
	client *http.Client
	// captionBase overrides the caption endpoint in tests.
	captionBase string
}

// NewVideoExtractor creates a video transcript extractor.
func NewVideoExtractor() *VideoExtractor {
	return &VideoExtractor{
		client:      &http.Client{Timeout: 30 * time.Second},
		captionBase: "https://video.google.com/timedtext",
	}
}

type oembedPayload struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type timedTextPayload struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// Extract implements Extractor.
func (v *VideoExtractor) Extract(ctx context.Context, link string) (Extraction, error) {
	meta, err := v.oembed(ctx, link)
	if err != nil {
		return Extraction{}, err
	}

	var text strings.Builder
	text.WriteString(meta.Title)
	if meta.AuthorName != "" {
		fmt.Fprintf(&text, " — %s", meta.AuthorName)
	}

	if id := videoID(link); id != "" {
		if transcript, err := v.transcript(ctx, id); err == nil && transcript != "" {
			text.WriteString("\n\n")
			text.WriteString(transcript)
		}
	}

	extraction := Extraction{
		SourceID: link,
		Text:     strings.TrimSpace(text.String()),
	}
	if meta.ThumbnailURL != "" {
		extraction.Media = []MediaRef{{URL: meta.ThumbnailURL, Alt: meta.Title}}
	}
	return extraction, nil
}

func (v *VideoExtractor) oembed(ctx context.Context, link string) (oembedPayload, error) {
	endpoint := fmt.Sprintf("https://www.youtube.com/oembed?url=%s&format=json", url.QueryEscape(link))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return oembedPayload{}, fmt.Errorf("source: build oembed request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return oembedPayload{}, fmt.Errorf("source: fetch video metadata for %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return oembedPayload{}, fmt.Errorf("source: video metadata for %s: status %d", link, resp.StatusCode)
	}
	var payload oembedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oembedPayload{}, fmt.Errorf("source: decode video metadata: %w", err)
	}
	if payload.Title == "" {
		return oembedPayload{}, fmt.Errorf("source: no title for video %s", link)
	}
	return payload, nil
}

func (v *VideoExtractor) transcript(ctx context.Context, id string) (string, error) {
	endpoint := fmt.Sprintf("%s?v=%s&lang=en&fmt=json3", v.captionBase, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("source: transcript status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	var payload timedTextPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", err
	}
	var parts []string
	for _, event := range payload.Events {
		for _, seg := range event.Segs {
			if s := strings.TrimSpace(seg.UTF8); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " "), nil
}

func videoID(link string) string {
	trimmed := strings.TrimSpace(link)
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch {
	case host == "youtu.be":
		return strings.Trim(parsed.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if id := parsed.Query().Get("v"); id != "" {
			return id
		}
		if strings.HasPrefix(parsed.Path, "/shorts/") {
			return strings.Trim(strings.TrimPrefix(parsed.Path, "/shorts/"), "/")
		}
	}
	return ""
}
