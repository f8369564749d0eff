package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/signalpost/signalpost/internal/config"
)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestWebhookPublisherDeliversJSON(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer server.Close()

	publisher, err := NewWebhookPublisher("relay", server.URL)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	publisher.WithClient(server.Client())

	when := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	err = publisher.Publish(context.Background(), Post{Text: "hello", ScheduleAt: &when})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if received["platform"] != "relay" || received["text"] != "hello" {
		t.Fatalf("unexpected payload: %v", received)
	}
	if received["scheduleAt"] == nil {
		t.Fatal("scheduleAt missing from payload")
	}
}

func TestWebhookPublisherRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	publisher, err := NewWebhookPublisher("relay", server.URL)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	publisher.WithClient(server.Client())

	if err := publisher.Publish(context.Background(), Post{Text: "hello"}); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestAllContinuesPastFailures(t *testing.T) {
	logger := &recordingLogger{}
	publishers := []Publisher{
		failingPublisher{},
		NewLogPublisher("console", logger),
	}

	now := time.Now()
	results := All(context.Background(), publishers, Post{Text: "hi"}, now)

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].OK || results[0].Err == "" {
		t.Fatalf("first result should have failed: %+v", results[0])
	}
	if !results[1].OK {
		t.Fatalf("second result should have succeeded: %+v", results[1])
	}
	if len(logger.lines) != 1 {
		t.Fatalf("log publisher wrote %d lines, want 1", len(logger.lines))
	}
}

func TestFromConfigRejectsUnknownKind(t *testing.T) {
	_, err := FromConfig([]config.PlatformConfig{{Name: "x", Kind: "carrier-pigeon"}}, nil)
	if err == nil {
		t.Fatal("expected error for unknown platform kind")
	}
}

func TestFromConfigBuildsConfiguredPlatforms(t *testing.T) {
	publishers, err := FromConfig([]config.PlatformConfig{
		{Name: "console", Kind: config.PlatformKindLog},
		{Name: "relay", Kind: config.PlatformKindWebhook, WebhookURL: "http://localhost:9/hook"},
	}, &recordingLogger{})
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	if len(publishers) != 2 {
		t.Fatalf("publishers = %d, want 2", len(publishers))
	}
	if publishers[0].Name() != "console" || publishers[1].Name() != "relay" {
		t.Fatalf("unexpected names: %s, %s", publishers[0].Name(), publishers[1].Name())
	}
}

type failingPublisher struct{}

func (failingPublisher) Name() string { return "broken" }

func (failingPublisher) Publish(context.Context, Post) error {
	return errors.New("boom")
}
