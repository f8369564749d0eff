// Package asset picks at most one media attachment for a post. Every
// failure here degrades to "no asset selected"; the stage never aborts the
// workflow.
package asset

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	// Register decoders for the formats platforms accept.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/signalpost/signalpost/internal/llm"
	"github.com/signalpost/signalpost/internal/source"
)

const rankInstruction = "Pick the image that best illustrates a social media post. Judge by the alt text and URL."

// DefaultMaxBytes bounds how large a candidate image may be.
const DefaultMaxBytes = 5 << 20

// Logger is the minimal logging surface the selector needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Selection reports the selector's outcome. Asset is nil when nothing
// usable was found; Dropped counts candidates discarded during filtering.
type Selection struct {
	Asset   *source.MediaRef
	Dropped int
}

// Selector filters and ranks candidate media.
type Selector struct {
	collaborator llm.Collaborator
	client       *http.Client
	maxBytes     int64
	logger       Logger
}

// Option customizes the selector.
type Option func(*Selector)

// WithHTTPClient replaces the fetch client (tests).
func WithHTTPClient(client *http.Client) Option {
	return func(s *Selector) {
		if client != nil {
			s.client = client
		}
	}
}

// WithMaxBytes overrides the candidate size cap.
func WithMaxBytes(limit int64) Option {
	return func(s *Selector) {
		if limit > 0 {
			s.maxBytes = limit
		}
	}
}

// WithLogger installs a diagnostics logger.
func WithLogger(logger Logger) Option {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a selector.
func New(collaborator llm.Collaborator, opts ...Option) *Selector {
	selector := &Selector{
		collaborator: collaborator,
		client:       &http.Client{Timeout: 20 * time.Second},
		maxBytes:     DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(selector)
	}
	return selector
}

// Select filters candidates down to decodable, size-bounded images and picks
// the best one, ranking through the collaborator when several survive.
func (s *Selector) Select(ctx context.Context, candidates []source.MediaRef) Selection {
	var valid []source.MediaRef
	dropped := 0
	for _, candidate := range candidates {
		if err := s.probe(ctx, candidate.URL); err != nil {
			dropped++
			if s.logger != nil {
				s.logger.Printf("asset: dropping %s: %v", candidate.URL, err)
			}
			continue
		}
		valid = append(valid, candidate)
	}

	switch len(valid) {
	case 0:
		return Selection{Dropped: dropped}
	case 1:
		return Selection{Asset: &valid[0], Dropped: dropped}
	}

	labels := make([]string, len(valid))
	for i, candidate := range valid {
		label := candidate.URL
		if candidate.Alt != "" {
			label = fmt.Sprintf("%s (%s)", candidate.Alt, candidate.URL)
		}
		labels[i] = label
	}
	order, err := s.collaborator.Rank(ctx, rankInstruction, labels)
	if err != nil || len(order) == 0 || order[0] < 0 || order[0] >= len(valid) {
		if s.logger != nil && err != nil {
			s.logger.Printf("asset: ranking failed, using first valid candidate: %v", err)
		}
		return Selection{Asset: &valid[0], Dropped: dropped}
	}
	return Selection{Asset: &valid[order[0]], Dropped: dropped}
}

// probe fetches a candidate and verifies it decodes as an image within the
// size cap.
func (s *Selector) probe(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("asset: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("asset: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("asset: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return fmt.Errorf("asset: read: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return fmt.Errorf("asset: larger than %d bytes", s.maxBytes)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("asset: undecodable image: %w", err)
	}
	return nil
}
