package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to an HTTP generation endpoint. The wire format is a minimal
// JSON request/response pair so any completion-style backend can sit behind
// it; the workflow never depends on a particular vendor.
type Client struct {
	endpoint string
	model    string
	timeout  time.Duration
	http     *http.Client
	limiter  *rate.Limiter
}

// ClientOption customizes the client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithRateLimit caps request frequency. Zero interval disables limiting.
func WithRateLimit(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval > 0 {
			c.limiter = rate.NewLimiter(rate.Every(interval), 2)
		}
	}
}

// NewClient creates a collaborator client for the configured endpoint.
func NewClient(endpoint, model string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := &Client{
		endpoint: endpoint,
		model:    model,
		timeout:  timeout,
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Second), 2),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type generateRequest struct {
	Model   string `json:"model,omitempty"`
	Prompt  string `json:"prompt"`
	Context string `json:"context,omitempty"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Generate implements Collaborator.
func (c *Client) Generate(ctx context.Context, prompt, contextText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm: rate limit wait: %w", err)
	}

	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Context: contextText})
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: call %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: %s returned status %d", c.endpoint, resp.StatusCode)
	}
	var payload generateResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if payload.Error != "" {
		return "", fmt.Errorf("llm: %s", payload.Error)
	}
	text := strings.TrimSpace(StripCodeFences(payload.Text))
	if text == "" {
		return "", fmt.Errorf("llm: empty completion")
	}
	return text, nil
}

// Rank implements Collaborator by asking the endpoint for a JSON array of
// candidate indices, best first.
func (c *Client) Rank(ctx context.Context, instruction string, candidates []string) ([]int, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	var prompt strings.Builder
	prompt.WriteString(instruction)
	prompt.WriteString("\n\nCandidates:\n")
	for i, candidate := range candidates {
		fmt.Fprintf(&prompt, "%d. %s\n", i, candidate)
	}
	prompt.WriteString("\nRespond with only a JSON array of candidate numbers, best first.")

	text, err := c.Generate(ctx, prompt.String(), "")
	if err != nil {
		return nil, err
	}
	var indices []int
	if err := json.Unmarshal([]byte(text), &indices); err != nil {
		return nil, fmt.Errorf("llm: parse ranking %q: %w", text, err)
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(candidates) {
			return nil, fmt.Errorf("llm: ranking index %d out of range", idx)
		}
	}
	return indices, nil
}

// StripCodeFences removes markdown code fences from completions so the JSON
// or prose inside can be used directly.
func StripCodeFences(s string) string {
	var result strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		result.WriteString(line)
		result.WriteByte('\n')
	}
	return strings.TrimSpace(result.String())
}
