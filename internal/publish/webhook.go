package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WebhookPublisher POSTs the post as JSON to an endpoint. Third-party
// schedulers (Buffer-style bridges, n8n, self-hosted relays) consume this.
type WebhookPublisher struct {
	name     string
	endpoint string
	client   *http.Client
}

// NewWebhookPublisher creates a webhook-backed publisher.
func NewWebhookPublisher(name, endpoint string) (*WebhookPublisher, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("publish: platform %q has no webhook url", name)
	}
	return &WebhookPublisher{
		name:     name,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// WithClient replaces the HTTP client (tests).
func (p *WebhookPublisher) WithClient(client *http.Client) *WebhookPublisher {
	if client != nil {
		p.client = client
	}
	return p
}

// Name returns the platform name.
func (p *WebhookPublisher) Name() string { return p.name }

// Publish delivers the post. Any non-2xx status is an error.
func (p *WebhookPublisher) Publish(ctx context.Context, post Post) error {
	body, err := json.Marshal(struct {
		Platform string `json:"platform"`
		Post
	}{Platform: p.name, Post: post})
	if err != nil {
		return fmt.Errorf("publish: encode post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("publish: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish: deliver to %s: %w", p.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("publish: %s replied %d: %s", p.name, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
